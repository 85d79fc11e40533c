package profile

import (
	"fmt"

	"github.com/spf13/viper"

	"katydid-common-validation/pkg/validation"
)

// 声明档案加载器
// 把字段/混入声明放进 YAML 或 JSON 文件，加载为构造配置，
// 宿主代码只需补上参数集和回调即可创建实例
//
// 档案格式：
//
//	fields:
//	  login:
//	    required: 1
//	    min_length: 3
//	    alias: [user, username]
//	mixins:
//	  basic:
//	    required: 1
//	    max_length: 255
//	ignore_unknown: false
//	report_unknown: false
//	inflator:
//	  hash_delimiter: "."
//	  array_delimiter: ":"

// Load 从文件加载声明档案
// 文件格式由扩展名决定（viper 支持 yaml/json/toml 等）
//
// 注意：viper 对配置键不区分大小写，档案里的字段名、混入名和指令名
// 一律按小写读出；含大写字母的字段名会匹配不上入参键，声明时请直接用小写
func Load(path string) (validation.Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return validation.Options{}, fmt.Errorf("profile '%s': %w", path, err)
	}
	return fromViper(v, path)
}

// fromViper 把已读入的配置树转换为构造配置
func fromViper(v *viper.Viper, path string) (validation.Options, error) {
	opts := validation.Options{
		IgnoreUnknown: v.GetBool("ignore_unknown"),
		ReportUnknown: v.GetBool("report_unknown"),
	}

	fields, err := directiveMaps(v.GetStringMap("fields"))
	if err != nil {
		return validation.Options{}, fmt.Errorf("profile '%s': fields: %w", path, err)
	}
	opts.Fields = fields

	mixins, err := directiveMaps(v.GetStringMap("mixins"))
	if err != nil {
		return validation.Options{}, fmt.Errorf("profile '%s': mixins: %w", path, err)
	}
	opts.Mixins = mixins

	if v.IsSet("inflator") {
		opts.Inflator = &validation.Inflator{
			HashDelimiter:  v.GetString("inflator.hash_delimiter"),
			ArrayDelimiter: v.GetString("inflator.array_delimiter"),
			EscapeSequence: v.GetString("inflator.escape_sequence"),
		}
	}

	if v.IsSet("params") {
		opts.Params = v.GetStringMap("params")
	}

	return opts, nil
}

// directiveMaps 把配置树的一层转换为声明映射
func directiveMaps(raw map[string]any) (map[string]validation.Directives, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make(map[string]validation.Directives, len(raw))
	for name, entry := range raw {
		directives, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("'%s': expected a directive map, got %T", name, entry)
		}
		out[name] = validation.Directives(directives)
	}
	return out, nil
}
