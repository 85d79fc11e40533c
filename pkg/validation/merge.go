package validation

import (
	"fmt"
)

// merger 规格合并器
// 在构造阶段把原始声明（字段 + 混入）解析为最终的 FieldSpec 记录，
// 每个字段产出一份全新的记录，合并只发生一次，后续 validate() 不再重新合并
type merger struct {
	// table 构造时的指令表快照
	table map[string]*DirectiveDescriptor
	// mixins 混入声明（合并始终通过这里查找，不走其他路径）
	mixins map[string]Directives
	// raw 字段原始声明
	raw map[string]Directives
	// working 合并中的指令映射，字段名 -> 指令表
	working map[string]map[string]any
	// visiting mixin_field 递归解析时的环检测
	visiting map[string]bool
	// tolerant 未知指令容忍开关（ignoreUnknown）
	tolerant bool
}

func newMerger(table map[string]*DirectiveDescriptor, fields, mixins map[string]Directives, tolerant bool) *merger {
	return &merger{
		table:    table,
		mixins:   mixins,
		raw:      fields,
		working:  make(map[string]map[string]any, len(fields)),
		visiting: make(map[string]bool),
		tolerant: tolerant,
	}
}

// resolveAll 解析全部字段声明
// 步骤：
//  1. 校验混入声明（指令已注册且 mixin 适用）
//  2. 逐字段解析：应用 mixin、mixin_field、规范化 filter/filters
//  3. 绑定为 FieldSpec 记录
func (m *merger) resolveAll() (map[string]*FieldSpec, error) {
	for name, mixin := range m.mixins {
		if err := m.validateMixin(name, mixin); err != nil {
			return nil, err
		}
	}

	out := make(map[string]*FieldSpec, len(m.raw))
	for name := range m.raw {
		working, err := m.resolveField(name)
		if err != nil {
			return nil, err
		}
		spec, err := m.bind(name, working)
		if err != nil {
			return nil, err
		}
		out[name] = spec
	}
	return out, nil
}

// validateMixin 校验混入声明里的每个指令
func (m *merger) validateMixin(name string, mixin Directives) error {
	for key := range mixin {
		d, known := m.table[key]
		if !known {
			if m.tolerant {
				continue
			}
			return fmt.Errorf("mixin '%s': directive '%s': %w", name, key, ErrUnknownDirective)
		}
		if !d.Mixin {
			return fmt.Errorf("mixin '%s': directive '%s' is not mixin-eligible", name, key)
		}
	}
	return nil
}

// resolveField 解析单个字段的指令映射（带记忆化，mixin_field 依赖复用结果）
func (m *merger) resolveField(name string) (map[string]any, error) {
	if resolved, done := m.working[name]; done {
		return resolved, nil
	}
	if m.visiting[name] {
		return nil, fmt.Errorf("field '%s': mixin_field reference cycle", name)
	}
	m.visiting[name] = true
	defer delete(m.visiting, name)

	declared, exists := m.raw[name]
	if !exists {
		return nil, fmt.Errorf("field '%s': %w", name, ErrUnknownField)
	}

	// 步骤1：校验指令键并拷入工作映射（多值指令统一规范化为列表）
	working := make(map[string]any, len(declared)+4)
	for key, value := range declared {
		d, known := m.table[key]
		if !known {
			if m.tolerant {
				continue
			}
			return nil, fmt.Errorf("field '%s': directive '%s': %w", name, key, ErrUnknownDirective)
		}
		if !d.Field {
			return nil, fmt.Errorf("field '%s': directive '%s' is not field-eligible", name, key)
		}
		if d.Multi {
			working[key] = normalizeList(value)
		} else {
			working[key] = value
		}
	}

	// 步骤2：按声明顺序应用混入
	// 混入永远不覆盖字段自己设置的单值指令；多值指令做保序去重并集
	for _, mixinName := range anyToStrings(working["mixin"]) {
		mixin, exists := m.mixins[mixinName]
		if !exists {
			return nil, fmt.Errorf("field '%s': mixin '%s': %w", name, mixinName, ErrUnknownMixin)
		}
		for key, value := range mixin {
			d, known := m.table[key]
			if !known || !d.Mixin {
				continue // validateMixin 已拦截，这里只防御
			}
			mergeDirective(working, key, value, d)
		}
	}

	// 步骤3：应用 mixin_field，从源字段"当前已解析"的规格拷贝
	// 只拷贝 mixin 适用的指令；label 和 name 拷贝后恢复为目标自己的原值
	if ref := toString(working["mixin_field"]); ref != "" {
		source, err := m.resolveField(ref)
		if err != nil {
			return nil, err
		}
		ownLabel, hadLabel := working["label"]
		ownName, hadName := working["name"]
		for key, value := range source {
			d, known := m.table[key]
			if !known || !d.Mixin {
				continue
			}
			mergeDirective(working, key, value, d)
		}
		if hadLabel {
			working["label"] = ownLabel
		} else {
			delete(working, "label")
		}
		if hadName {
			working["name"] = ownName
		} else {
			delete(working, "name")
		}
	}

	// 步骤4：把 filter 并入 filters（保序去重），移除单数键
	if single, exists := working["filter"]; exists {
		working["filters"] = unionList(normalizeList(working["filters"]), normalizeList(single))
		delete(working, "filter")
	}

	m.working[name] = working
	return working, nil
}

// bind 把合并完的指令映射绑定为 FieldSpec 记录
// default 语义是惰性的：这里只登记，执行器在"参数存在但为空串"时才取用
func (m *merger) bind(name string, working map[string]any) (*FieldSpec, error) {
	spec := &FieldSpec{
		Name:   name, // 始终覆写为注册键，声明里的 name 指令不允许偏离
		Checks: make(map[string]any),
	}

	for key, value := range working {
		switch key {
		case "name":
			// 见上，忽略声明值
		case "label":
			spec.Label = toString(value)
		case "error", "errors":
			spec.ErrorOverride = firstString(value)
		case "required":
			spec.Required = toBool(value)
		case "alias":
			spec.Aliases = anyToStrings(value)
		case "mixin":
			spec.MixinRefs = anyToStrings(value)
		case "mixin_field":
			spec.MixinFieldRef = toString(value)
		case "filters":
			spec.Filters = normalizeList(value)
		case "validation":
			fn, err := asCustomValidator(value)
			if err != nil {
				return nil, fmt.Errorf("field '%s': %w", name, err)
			}
			spec.Validation = fn
		case "value":
			spec.Value = unwrapSingle(value)
			spec.hasValue = true
		case "default":
			spec.Default = value
			spec.hasDefault = true
		default:
			spec.Checks[key] = value
		}
	}

	// 过滤器名提前校验，避免运行期才发现拼写错误
	for _, entry := range spec.Filters {
		fname, isName := entry.(string)
		if !isName {
			continue
		}
		if _, ok := filters().lookup(fname); !ok {
			return nil, fmt.Errorf("field '%s': unknown filter '%s'", name, fname)
		}
	}

	return spec, nil
}

// mergeDirective 按指令多值性合并单个指令
// 多值：保序去重并集（即使字段已设置也追加）
// 单值：字段未设置时才拷入，先到先得
func mergeDirective(working map[string]any, name string, value any, d *DirectiveDescriptor) {
	if d.Multi {
		working[name] = unionList(normalizeList(working[name]), normalizeList(value))
		return
	}
	if _, exists := working[name]; !exists {
		working[name] = value
	}
}

// normalizeList 把任意值规范化为列表
func normalizeList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return append([]any(nil), v...)
	case []string:
		out := make([]any, 0, len(v))
		for _, s := range v {
			out = append(out, s)
		}
		return out
	default:
		return []any{v}
	}
}

// unionList 保序去重的列表并集
// 不可比较的元素（过滤函数等）按指针形式参与去重
func unionList(base, extra []any) []any {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]any, 0, len(base)+len(extra))
	add := func(item any) {
		key := fmt.Sprintf("%T\x00%v", item, item)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, item)
	}
	for _, item := range base {
		add(item)
	}
	for _, item := range extra {
		add(item)
	}
	return out
}

// anyToStrings 把列表值转换为字符串切片
func anyToStrings(value any) []string {
	list := normalizeList(value)
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := toString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstString 列表值取第一个元素的字符串形式，标量值直接转换
func firstString(value any) string {
	list := normalizeList(value)
	if len(list) == 0 {
		return ""
	}
	return toString(list[0])
}

// unwrapSingle 单元素列表解包为标量
func unwrapSingle(value any) any {
	list := normalizeList(value)
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	default:
		return list
	}
}

// asCustomValidator 识别 validation 指令的回调形态
func asCustomValidator(value any) (CustomValidator, error) {
	switch fn := value.(type) {
	case CustomValidator:
		return fn, nil
	case func(v *Validator, f *FieldSpec, params map[string]any) bool:
		return fn, nil
	default:
		return nil, fmt.Errorf("validation directive must be a callback, got %T", value)
	}
}
