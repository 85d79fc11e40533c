package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// 内置指令的校验函数
// 约定：校验失败时先通过 v.reportCheckError 记录错误再返回 false，
// 执行器不会为返回 false 的校验函数补发消息

// rangeSeparatorRegex between 指令参数的分隔符："1-255" 或 "1, 255"
var rangeSeparatorRegex = regexp.MustCompile(`\s*[-,]\s*`)

// patternCache 已编译的 pattern 指令正则缓存
// key: 模板字符串, value: *regexp.Regexp
var patternCache sync.Map

// checkBetween 校验值长度落在 "min-max" 区间内
func checkBetween(arg any, value string, f *FieldSpec, v *Validator) bool {
	if value == "" {
		return true
	}

	spec := toString(arg)
	parts := rangeSeparatorRegex.Split(spec, 2)
	if len(parts) != 2 {
		return true // 参数不可解析时不拦截，属于声明问题而非数据问题
	}
	min, errMin := strconv.Atoi(strings.TrimSpace(parts[0]))
	max, errMax := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errMin != nil || errMax != nil {
		return true
	}

	l := utf8.RuneCountInString(value)
	if l < min || l > max {
		v.reportCheckError(f, fmt.Sprintf("%s must contain between %s characters", f.display(), spec))
		return false
	}
	return true
}

// checkLength 校验值长度恰好为 N
func checkLength(arg any, value string, f *FieldSpec, v *Validator) bool {
	n, ok := toInt(arg)
	if !ok {
		return true
	}
	if utf8.RuneCountInString(value) != n {
		v.reportCheckError(f, fmt.Sprintf("%s must contain exactly %d characters", f.display(), n))
		return false
	}
	return true
}

// checkMatches 跨字段校验：值必须等于另一个字段的当前参数值
func checkMatches(arg any, value string, f *FieldSpec, v *Validator) bool {
	other := toString(arg)
	if other == "" {
		return true
	}

	otherValue := ""
	if raw, exists := v.params[other]; exists {
		otherValue = toString(raw)
	}

	if value != otherValue {
		otherDisplay := other
		if of, exists := v.fields[other]; exists {
			otherDisplay = of.display()
		}
		v.reportCheckError(f, fmt.Sprintf("%s does not match %s", f.display(), otherDisplay))
		return false
	}
	return true
}

// checkMaxLength 校验值长度不超过 N
func checkMaxLength(arg any, value string, f *FieldSpec, v *Validator) bool {
	n, ok := toInt(arg)
	if !ok {
		return true
	}
	if utf8.RuneCountInString(value) > n {
		v.reportCheckError(f, fmt.Sprintf("%s cannot contain more than %d characters", f.display(), n))
		return false
	}
	return true
}

// checkMinLength 校验值长度不少于 N
func checkMinLength(arg any, value string, f *FieldSpec, v *Validator) bool {
	n, ok := toInt(arg)
	if !ok {
		return true
	}
	if utf8.RuneCountInString(value) < n {
		v.reportCheckError(f, fmt.Sprintf("%s must contain at least %d characters", f.display(), n))
		return false
	}
	return true
}

// checkOptions 校验值属于枚举集合
// 参数形式："a, b, c" 或 []string / []any
func checkOptions(arg any, value string, f *FieldSpec, v *Validator) bool {
	options := toStringList(arg)
	if len(options) == 0 {
		return true
	}

	for _, opt := range options {
		if value == opt {
			return true
		}
	}
	v.reportCheckError(f, fmt.Sprintf("%s must be one of %s", f.display(), strings.Join(options, ", ")))
	return false
}

// checkPattern 校验值匹配占位符模板
// 模板语法：# 匹配一个数字，X 匹配一个字母，空格保持原样，其余字符按字面匹配
// 例如 "### ###-####" 匹配 "123 456-7890"
func checkPattern(arg any, value string, f *FieldSpec, v *Validator) bool {
	template := toString(arg)
	if template == "" {
		return true
	}

	re, err := compilePattern(template)
	if err != nil {
		return true
	}

	if !re.MatchString(value) {
		v.reportCheckError(f, fmt.Sprintf("%s does not match the pattern %s", f.display(), template))
		return false
	}
	return true
}

// compilePattern 将占位符模板编译为正则（带缓存）
func compilePattern(template string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(template); ok {
		return cached.(*regexp.Regexp), nil
	}

	var b strings.Builder
	b.WriteString("^")
	for _, r := range template {
		switch r {
		case '#':
			b.WriteString(`\d`)
		case 'X':
			b.WriteString(`[a-zA-Z]`)
		case ' ':
			b.WriteString(" ")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	patternCache.Store(template, re)
	return re, nil
}

// toString 将参数值转换为字符串形式
// 校验和过滤统一在字符串层面进行，参数本身保留原始类型
func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toInt 将指令参数转换为整数
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// toStringList 将指令参数规范化为字符串列表
// 支持逗号分隔的字符串、[]string 和 []any
func toStringList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, toString(item))
		}
		return out
	default:
		return []string{toString(v)}
	}
}

// toBool 将指令参数转换为布尔值（required 等指令接受 1/0、true/false）
func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no":
			return false
		default:
			return true
		}
	case nil:
		return false
	default:
		return true
	}
}
