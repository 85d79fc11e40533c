package validation

import (
	"fmt"
	"sort"
)

// buildAliasIndex 构建别名到规范字段名的索引
// 声明期致命错误：别名与任何字段名冲突，或与其他字段的别名冲突
// （这是编程错误而不是数据错误，立即失败而不是记录字段级错误）
func buildAliasIndex(fields map[string]*FieldSpec) (map[string]string, error) {
	index := make(map[string]string)

	// 按字段名排序遍历，保证冲突报告的确定性
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, alias := range fields[name].Aliases {
			if _, exists := fields[alias]; exists {
				return nil, fmt.Errorf("field '%s': alias '%s' collides with a field name: %w",
					name, alias, ErrAliasCollision)
			}
			if owner, exists := index[alias]; exists && owner != name {
				return nil, fmt.Errorf("field '%s': alias '%s' already claimed by field '%s': %w",
					name, alias, owner, ErrAliasCollision)
			}
			index[alias] = name
		}
	}
	return index, nil
}

// resolveAliases 单次运行的别名改写
// 对每个声明了别名的字段：参数集中存在别名键时，把值搬到规范字段键下
// （同一字段多个别名同时出现时，后声明的别名胜出），并把该字段标记为隐式目标
// 改写只在本次运行期间生效，运行结束后参数集恢复快照
func (v *Validator) resolveAliases() []string {
	var implicit []string

	names := make([]string, 0, len(v.fields))
	for name := range v.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := v.fields[name]
		moved := false
		for _, alias := range f.Aliases {
			value, exists := v.params[alias]
			if !exists {
				continue
			}
			v.params[name] = value
			delete(v.params, alias)
			moved = true
		}
		if moved {
			implicit = append(implicit, name)
		}
	}
	return implicit
}
