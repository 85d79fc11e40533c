package validation

// Directives 原始声明，指令名 -> 指令值
// 字段和混入的声明都用它表示，值可以是 string、数字、bool、切片、
// 过滤函数（FilterFunc）或自定义校验回调（CustomValidator）
type Directives map[string]any

// FilterFunc 过滤函数类型，纯字符串变换
// 要求幂等：f(f(s)) == f(s)
type FilterFunc func(value string) string

// CustomValidator 自定义校验回调类型
// 返回 false 表示校验失败；回调内部可以通过 v.AddError(f, msg) 记录错误，
// 如果返回 false 且没有记录任何新错误，执行器会补一条默认错误
type CustomValidator func(v *Validator, f *FieldSpec, params map[string]any) bool

// toggleState 单次调用的 required 覆盖状态
// 每次 validate() 开始时重置，不跨调用保留
type toggleState int

const (
	toggleNone toggleState = iota // 无覆盖，使用字段声明的 required
	toggleOn                      // +field 强制必填
	toggleOff                     // -field 强制可选
)

// FieldSpec 字段的最终规格，构造时由合并器生成，之后不再重新合并
// 瞬态部分（CurrentValue/toggle/Errors）每次 validate() 运行前重置
type FieldSpec struct {
	// Name 字段名，每次运行前都会覆写为注册键，不允许偏离
	Name string
	// Label 展示名，生成错误消息时优先于 Name
	Label string
	// ErrorOverride error/errors 指令值，设置后抑制所有生成的消息
	ErrorOverride string
	// Required 静态必填标记
	Required bool
	// Aliases 别名列表（声明顺序）
	Aliases []string
	// MixinRefs mixin 指令引用的混入名（声明顺序）
	MixinRefs []string
	// MixinFieldRef mixin_field 指令引用的源字段名
	MixinFieldRef string
	// Filters 过滤器列表（声明顺序），元素为内置过滤器名或 FilterFunc
	Filters []any
	// Checks 带校验函数的指令参数，指令名 -> 参数
	Checks map[string]any
	// Validation 自定义校验回调
	Validation CustomValidator
	// Value value 指令：参数缺失时使用的静态值
	Value any
	// Default default 指令：参数存在但为空串时的回退值
	Default any

	// CurrentValue 本次运行的字段值（过滤后），每次运行前清空
	CurrentValue any
	// Errors 本次运行收集的字段级错误消息（有序去重）
	Errors []string

	// hasValue/hasDefault 区分"未声明"和"声明为 nil/空"
	hasValue   bool
	hasDefault bool
	// toggle 本次调用的 required 覆盖
	toggle toggleState
}

// MixinSpec 混入的规格：名称 + 指令表
// 只允许出现 mixin 适用的指令，构造时校验
type MixinSpec struct {
	Name       string
	Directives Directives
}

// display 错误消息中使用的字段显示名
func (f *FieldSpec) display() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// effectiveRequired 本次调用生效的必填标记
// 优先级：单次调用的 toggle 覆盖 > 字段静态声明
func (f *FieldSpec) effectiveRequired() bool {
	switch f.toggle {
	case toggleOn:
		return true
	case toggleOff:
		return false
	default:
		return f.Required
	}
}

// resetRun 清除单次运行的瞬态状态
func (f *FieldSpec) resetRun() {
	f.CurrentValue = nil
	f.Errors = nil
	f.toggle = toggleNone
}

// addError 记录一条字段级错误（去重，保持首次出现顺序）
func (f *FieldSpec) addError(message string) bool {
	if message == "" {
		return false
	}
	for _, m := range f.Errors {
		if m == message {
			return false
		}
	}
	f.Errors = append(f.Errors, message)
	return true
}

// clone 深拷贝字段规格（瞬态部分不拷贝）
// 用于 Child 子校验器：子实例与父实例互不影响
func (f *FieldSpec) clone() *FieldSpec {
	cp := &FieldSpec{
		Name:          f.Name,
		Label:         f.Label,
		ErrorOverride: f.ErrorOverride,
		Required:      f.Required,
		MixinFieldRef: f.MixinFieldRef,
		Validation:    f.Validation,
		Value:         f.Value,
		Default:       f.Default,
		hasValue:      f.hasValue,
		hasDefault:    f.hasDefault,
	}
	if len(f.Aliases) > 0 {
		cp.Aliases = append([]string(nil), f.Aliases...)
	}
	if len(f.MixinRefs) > 0 {
		cp.MixinRefs = append([]string(nil), f.MixinRefs...)
	}
	if len(f.Filters) > 0 {
		cp.Filters = append([]any(nil), f.Filters...)
	}
	if len(f.Checks) > 0 {
		cp.Checks = make(map[string]any, len(f.Checks))
		for k, v := range f.Checks {
			cp.Checks[k] = v
		}
	}
	return cp
}
