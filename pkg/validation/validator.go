package validation

import (
	"fmt"
	"sort"
)

// Hook 验证运行的观察钩子（日志、埋点等）
// 钩子不参与验证语义，返回值也不影响结果
type Hook interface {
	// BeforeValidate 目标字段解析完成后、逐字段处理前调用
	BeforeValidate(v *Validator, targets []string)
	// AfterValidate 本次运行结束后调用，ok 为本次结果
	AfterValidate(v *Validator, ok bool)
}

// Options 构造配置
type Options struct {
	// Params 初始参数集，值为嵌套结构时构造期自动压平
	Params map[string]any
	// Fields 字段声明，字段名 -> 指令表
	Fields map[string]Directives
	// Mixins 混入声明，混入名 -> 指令表
	Mixins map[string]Directives
	// IgnoreUnknown 未知字段/指令容忍开关，默认 false（未知即致命）
	IgnoreUnknown bool
	// ReportUnknown 开启后未知字段记录为类级错误而不是静默忽略
	// 仅在 IgnoreUnknown 同时开启时生效
	ReportUnknown bool
	// Inflator 压平/还原配置，nil 时使用默认分隔符
	Inflator *Inflator
	// Hooks 运行观察钩子
	Hooks []Hook
}

// Validator 声明式参数校验器实例
//
// 一个实例就是一份可变共享状态：字段规格在构造期合并一次，
// 每次 Validate 调用改写字段的瞬态（当前值、toggle、错误）
// 并发约束：同一实例的并发 Validate 不安全，调用方自行串行化，
// 或通过 Child 为每次逻辑校验创建独立实例
type Validator struct {
	// fields 已解析的字段规格（构造期合并，不再重新合并）
	fields map[string]*FieldSpec
	// mixins 混入声明（保留供 Child 与调试）
	mixins map[string]Directives
	// params 当前参数集（压平后的点分键映射）
	params map[string]any
	// table 构造时的指令表快照
	table map[string]*DirectiveDescriptor
	// collector 类级错误收集器
	collector *errorCollector
	// queued Queue 暂存的字段名，供后续空参 Validate 使用
	queued []string
	// inflator 压平/还原配置
	inflator *Inflator
	// hooks 运行观察钩子
	hooks []Hook

	ignoreUnknown bool
	reportUnknown bool
}

// New 创建校验器实例
// 声明级错误（未知指令、别名冲突、mixin_field 环、未知混入）在这里返回，
// 属于编程错误，不会进入错误收集器
func New(opts Options) (*Validator, error) {
	table := directives().snapshot()

	mixins := make(map[string]Directives, len(opts.Mixins))
	for name, m := range opts.Mixins {
		mixins[name] = m
	}

	resolved, err := newMerger(table, opts.Fields, mixins, opts.IgnoreUnknown).resolveAll()
	if err != nil {
		return nil, err
	}

	// 别名冲突在构造期致命（运行期改写直接走字段的别名列表）
	if _, err := buildAliasIndex(resolved); err != nil {
		return nil, err
	}

	inflator := opts.Inflator
	if inflator == nil {
		inflator = NewInflator()
	}

	params := make(map[string]any, len(opts.Params))
	for key, value := range opts.Params {
		params[key] = value
	}
	// 任一顶层值是嵌套结构时整体压平为点分键
	if hasNestedValues(params) {
		params = inflator.Flatten(params)
	}

	return &Validator{
		fields:        resolved,
		mixins:        mixins,
		params:        params,
		table:         table,
		collector:     newErrorCollector(),
		inflator:      inflator,
		hooks:         opts.Hooks,
		ignoreUnknown: opts.IgnoreUnknown,
		reportUnknown: opts.ReportUnknown,
	}, nil
}

// ============================================================================
// 参数访问
// ============================================================================

// Param 读取单个参数值，未定义时返回 nil
func (v *Validator) Param(name string) any {
	return v.params[name]
}

// SetParam 设置并返回参数值
func (v *Validator) SetParam(name string, value any) any {
	v.params[name] = value
	return value
}

// GetParams 批量读取参数值，未定义的位置为 nil
func (v *Validator) GetParams(names ...string) []any {
	out := make([]any, 0, len(names))
	for _, name := range names {
		out = append(out, v.params[name])
	}
	return out
}

// GetParamsHash 把当前参数集还原为嵌套结构
func (v *Validator) GetParamsHash() (map[string]any, error) {
	return v.inflator.Unflatten(v.params)
}

// SetParamsHash 用嵌套结构整体替换参数集，返回压平后的映射
func (v *Validator) SetParamsHash(nested map[string]any) map[string]any {
	v.params = v.inflator.Flatten(nested)
	return v.params
}

// Field 按名称获取已解析的字段规格（供自定义回调使用）
func (v *Validator) Field(name string) *FieldSpec {
	return v.fields[name]
}

// ============================================================================
// 队列与重置
// ============================================================================

// Queue 暂存字段名，供后续空参 Validate 调用使用（链式调用）
// 暂存一直保留到 Reset
func (v *Validator) Queue(names ...string) *Validator {
	for _, name := range names {
		exists := false
		for _, q := range v.queued {
			if q == name {
				exists = true
				break
			}
		}
		if !exists {
			v.queued = append(v.queued, name)
		}
	}
	return v
}

// Reset 清空暂存队列和字段瞬态状态（链式调用）
func (v *Validator) Reset() *Validator {
	v.queued = nil
	v.ResetFields()
	return v
}

// ResetErrors 清空类级和字段级错误
func (v *Validator) ResetErrors() {
	v.collector.clear()
	for _, f := range v.fields {
		f.Errors = nil
	}
}

// ResetFields 清空错误、当前值和 toggle
func (v *Validator) ResetFields() {
	v.collector.clear()
	for _, f := range v.fields {
		f.resetRun()
	}
}

// ============================================================================
// 错误访问
// ============================================================================

// Errors 返回全部类级错误消息（记录顺序，去重）
func (v *Validator) Errors() []string {
	return v.collector.errors()
}

// FieldErrors 返回指定字段的错误消息
func (v *Validator) FieldErrors(name string) []string {
	if f, exists := v.fields[name]; exists {
		return f.Errors
	}
	return nil
}

// AddError 向字段和类级错误列表追加一条消息（去重）
// f 必须是本实例的字段对象，否则返回 ErrBadErrorTarget
func (v *Validator) AddError(f *FieldSpec, message string) error {
	if f == nil {
		return ErrBadErrorTarget
	}
	if owned, exists := v.fields[f.Name]; !exists || owned != f {
		return fmt.Errorf("field '%s': %w", f.Name, ErrBadErrorTarget)
	}
	f.addError(message)
	v.collector.add(message)
	return nil
}

// ErrorCount 类级错误数量
func (v *Validator) ErrorCount() int {
	return v.collector.count()
}

// ErrorFields 返回有错误的字段及其消息列表
func (v *Validator) ErrorFields() map[string][]string {
	out := make(map[string][]string)
	for name, f := range v.fields {
		if len(f.Errors) > 0 {
			out[name] = append([]string(nil), f.Errors...)
		}
	}
	return out
}

// ErrorsToString 把类级错误按记录顺序拼接为字符串
// 不传 delimiter 时使用默认分隔符 ", "；显式传空串则不加分隔符
func (v *Validator) ErrorsToString(delimiter ...string) string {
	sep := ", "
	if len(delimiter) > 0 {
		sep = delimiter[0]
	}
	msgs := v.collector.errors()
	if len(msgs) == 0 {
		return ""
	}

	b := acquireBuilder()
	defer releaseBuilder(b)
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(msg)
	}
	return b.String()
}

// reportCheckError 记录一条校验错误
// 字段配置了 error/errors 覆盖时，生成的消息被覆盖值取代
func (v *Validator) reportCheckError(f *FieldSpec, generated string) {
	message := generated
	if f.ErrorOverride != "" {
		message = f.ErrorOverride
	}
	f.addError(message)
	v.collector.add(message)
}

// ============================================================================
// 验证执行器
// ============================================================================

// Validate 执行一次验证运行
//
// 参数形态：
//   - 字段名字符串，可带 +/- 前缀做单次 required 覆盖（"+name" 强制必填）
//   - map[string]string 一次性改名：{入参名: 目标字段名}，在解析目标前搬移参数值
//   - 无参数：使用 Queue 暂存的字段；没有暂存时按参数键推导；参数也为空时
//     校验全部声明字段（此时只跑 required 和指令校验，自定义回调不执行）
//
// 返回值：ok 表示本次运行结束后类级错误列表为空
// err 只承载声明级中止（未知字段且未开启容忍、非法参数形态），校验失败不产生 err
//
// 运行结束后参数集恢复为运行前快照，别名/改名搬移不外泄；
// 被处理字段的过滤结果以字段键写回，属于约定内的可见副作用
func (v *Validator) Validate(targets ...any) (bool, error) {
	// 阶段1：重置运行状态
	v.collector.clear()
	for _, f := range v.fields {
		f.resetRun()
	}

	// 阶段2：参数集快照（含改名和别名搬移前的原始布局）
	snapshot := make(map[string]any, len(v.params))
	for key, value := range v.params {
		snapshot[key] = value
	}

	// 阶段3：解析调用参数
	var nameTargets []string
	var mapTargets []string
	for _, target := range targets {
		switch t := target.(type) {
		case string:
			nameTargets = append(nameTargets, t)
		case map[string]string:
			// 一次性改名：参数值搬到目标字段键下，目标字段成为本次目标
			keys := make([]string, 0, len(t))
			for incoming := range t {
				keys = append(keys, incoming)
			}
			sort.Strings(keys)
			for _, incoming := range keys {
				fieldName := t[incoming]
				if value, exists := v.params[incoming]; exists {
					delete(v.params, incoming)
					v.params[fieldName] = value
				}
				mapTargets = append(mapTargets, fieldName)
			}
		default:
			v.restoreParams(snapshot, nil)
			return false, fmt.Errorf("target %v (%T): %w", target, target, ErrBadTarget)
		}
	}

	// 阶段4：toggle 解析（仅本次调用生效）
	plainNames := make([]string, 0, len(nameTargets))
	for _, name := range nameTargets {
		toggle := toggleNone
		switch {
		case len(name) > 1 && name[0] == '+':
			toggle = toggleOn
			name = name[1:]
		case len(name) > 1 && name[0] == '-':
			toggle = toggleOff
			name = name[1:]
		}
		if f, exists := v.fields[name]; exists {
			f.toggle = toggle
		}
		plainNames = append(plainNames, name)
	}

	// 阶段5：别名搬移，产出隐式目标
	implicit := v.resolveAliases()

	// 阶段6：目标字段解析（优先级见 §doc）
	var ordered []string
	noData := false
	switch {
	case len(mapTargets) > 0:
		// 改名映射决定目标，与暂存队列合并
		ordered = appendUnique(ordered, mapTargets...)
		ordered = appendUnique(ordered, v.queued...)
	case len(plainNames) > 0 || len(v.queued) > 0:
		ordered = appendUnique(ordered, plainNames...)
		ordered = appendUnique(ordered, v.queued...)
	case len(v.params) > 0:
		// 参数键推导目标（别名已搬移为规范键）
		keys := make([]string, 0, len(v.params))
		for key := range v.params {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		ordered = appendUnique(ordered, keys...)
	default:
		// 既无参数也无显式目标：校验全部声明字段，自定义回调不执行
		noData = true
		names := make([]string, 0, len(v.fields))
		for name := range v.fields {
			names = append(names, name)
		}
		sort.Strings(names)
		ordered = appendUnique(ordered, names...)
	}
	ordered = appendUnique(ordered, implicit...)

	for _, hook := range v.hooks {
		hook.BeforeValidate(v, ordered)
	}

	// 全局有参数数据时自定义回调才允许执行
	paramsExist := len(v.params) > 0 && !noData

	// 阶段7：逐字段执行
	processed := make(map[string]bool, len(ordered))
	for _, name := range ordered {
		f, exists := v.fields[name]
		if !exists {
			if !v.ignoreUnknown {
				v.restoreParams(snapshot, nil)
				return false, fmt.Errorf("'%s': %w", name, ErrUnknownField)
			}
			if v.reportUnknown {
				v.collector.add(fmt.Sprintf("found unknown field '%s'", name))
			}
			continue
		}
		v.validateField(name, f, paramsExist)
		processed[name] = true
	}

	ok := !v.collector.hasErrors()

	// 阶段8：恢复参数集快照，再把被处理字段的过滤结果写回
	v.restoreParams(snapshot, processed)

	for _, hook := range v.hooks {
		hook.AfterValidate(v, ok)
	}
	return ok, nil
}

// validateField 单字段状态机：取值 → 过滤 → required → 指令校验 → 自定义回调
func (v *Validator) validateField(name string, f *FieldSpec, paramsExist bool) {
	f.Name = name // 不变式：字段名始终等于注册键

	raw, defined := v.params[name]
	var value string
	filtered := false

	switch {
	case defined:
		value = toString(raw)
		if len(f.Filters) > 0 {
			value = applyFilters(f, value)
			filtered = true
		}
		if filtered {
			f.CurrentValue = value
			v.params[name] = value
		} else {
			f.CurrentValue = raw
		}
		// default 指令：参数存在但（过滤后）为空串时取回退值
		if value == "" && f.hasDefault {
			f.CurrentValue = f.Default
			value = toString(f.Default)
			v.params[name] = f.Default
		}
	case f.hasValue:
		// value 指令：参数缺失时的静态值
		f.CurrentValue = f.Value
		value = toString(f.Value)
		defined = true
	}

	// required 检查：未定义或空串即失败，并短路后续所有步骤
	if f.effectiveRequired() && (!defined || value == "") {
		v.reportCheckError(f, fmt.Sprintf("%s is required", f.display()))
		return
	}

	// 指令校验：强制必填或值非空时执行
	// 返回 false 的校验函数已经自行记录过错误，这里不补发
	if f.effectiveRequired() || value != "" {
		checkNames := make([]string, 0, len(f.Checks))
		for directive := range f.Checks {
			checkNames = append(checkNames, directive)
		}
		sort.Strings(checkNames)
		for _, directive := range checkNames {
			d := v.table[directive]
			if d == nil || d.Check == nil {
				continue
			}
			_ = d.Check(f.Checks[directive], value, f, v)
		}
	}

	// 自定义回调：仅在本次运行存在参数数据时执行
	// 回调返回 false 且没有记录任何新错误时补一条默认消息
	if paramsExist && f.Validation != nil {
		before := len(f.Errors)
		if !f.Validation(v, f, v.params) && len(f.Errors) == before {
			v.reportCheckError(f, fmt.Sprintf("%s did not pass validation", f.display()))
		}
	}
}

// restoreParams 恢复参数集为运行前快照
// processed 中的字段若在运行期有已定义的参数值，以字段键写回过滤结果
func (v *Validator) restoreParams(snapshot map[string]any, processed map[string]bool) {
	current := v.params
	restored := make(map[string]any, len(snapshot))
	for key, value := range snapshot {
		restored[key] = value
	}
	for name := range processed {
		f, exists := v.fields[name]
		if !exists {
			continue
		}
		if _, had := current[name]; had {
			restored[name] = f.CurrentValue
		}
	}
	v.params = restored
}

// appendUnique 追加去重，保持首次出现顺序
func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		exists := false
		for _, existing := range list {
			if existing == item {
				exists = true
				break
			}
		}
		if !exists {
			list = append(list, item)
		}
	}
	return list
}

// ============================================================================
// 子校验器
// ============================================================================

// Child 为一组字段创建独立的子校验器
// 子实例拷贝父实例的参数集、策略开关和指定字段（含其别名），
// 创建后互不影响：修改一方不会波及另一方
func (v *Validator) Child(names ...string) (*Validator, error) {
	fields := make(map[string]*FieldSpec, len(names))
	for _, name := range names {
		f, exists := v.fields[name]
		if !exists {
			return nil, fmt.Errorf("'%s': %w", name, ErrUnknownField)
		}
		fields[name] = f.clone()
	}

	if _, err := buildAliasIndex(fields); err != nil {
		return nil, err
	}

	params := make(map[string]any, len(v.params))
	for key, value := range v.params {
		params[key] = value
	}

	return &Validator{
		fields:        fields,
		mixins:        v.mixins,
		params:        params,
		table:         v.table,
		collector:     newErrorCollector(),
		inflator:      v.inflator,
		hooks:         v.hooks,
		ignoreUnknown: v.ignoreUnknown,
		reportUnknown: v.reportUnknown,
	}, nil
}
