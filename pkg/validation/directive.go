package validation

import (
	"fmt"
	"regexp"
	"sync"
)

// CheckFunc 指令校验函数类型
// 参数：
//
//	arg: 指令参数（声明里写的值，如 min_length 的 3）
//	value: 字段的当前值（过滤后的字符串形式）
//	f: 字段规格
//	v: 校验器实例
//
// 返回 false 表示校验失败；失败时必须先通过 v.AddError(f, msg) 记录错误，
// 执行器不会为校验函数补发消息
type CheckFunc func(arg any, value string, f *FieldSpec, v *Validator) bool

// DirectiveDescriptor 指令描述符
// Mixin/Field 标记指令可以出现在哪类声明里，Multi 标记指令值是否为多值
// （多值指令在合并时做保序去重的并集，单值指令遵循"字段自身优先"）
type DirectiveDescriptor struct {
	Name  string
	Mixin bool
	Field bool
	Multi bool
	Check CheckFunc
}

const (
	// maxDirectiveNameLength 指令名最大长度，防止异常超长键名
	maxDirectiveNameLength = 64
)

// directiveNameRegex 指令名合法字符：小写字母、数字、下划线
var directiveNameRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

// directiveRegistry 进程级指令注册表
// 实例在构造时做一次快照，之后注册的指令只影响新构造的实例
type directiveRegistry struct {
	directives map[string]*DirectiveDescriptor
	mu         sync.RWMutex
}

var (
	// globalDirectives 全局指令注册表实例（单例）
	globalDirectives *directiveRegistry
	// directivesOnce 确保注册表只初始化一次
	directivesOnce sync.Once
)

// directives 获取全局指令注册表，首次调用时播种内置指令
func directives() *directiveRegistry {
	directivesOnce.Do(func() {
		globalDirectives = &directiveRegistry{
			directives: make(map[string]*DirectiveDescriptor, 32),
		}
		globalDirectives.seed()
	})
	return globalDirectives
}

// seed 播种内置指令表
// 标记含义见 DirectiveDescriptor；带 Check 的指令参与字段值校验
func (r *directiveRegistry) seed() {
	builtins := []*DirectiveDescriptor{
		{Name: "alias", Field: true, Multi: true},
		{Name: "between", Mixin: true, Field: true, Check: checkBetween},
		{Name: "default", Mixin: true, Field: true},
		{Name: "error", Field: true},
		{Name: "errors", Field: true},
		{Name: "filter", Mixin: true, Field: true, Multi: true},
		{Name: "filters", Mixin: true, Field: true, Multi: true},
		{Name: "label", Field: true},
		{Name: "length", Mixin: true, Field: true, Check: checkLength},
		{Name: "matches", Mixin: true, Field: true, Check: checkMatches},
		{Name: "max_length", Mixin: true, Field: true, Check: checkMaxLength},
		{Name: "min_length", Mixin: true, Field: true, Check: checkMinLength},
		{Name: "mixin", Field: true, Multi: true},
		{Name: "mixin_field", Field: true},
		{Name: "name", Field: true},
		{Name: "options", Mixin: true, Field: true, Check: checkOptions},
		{Name: "pattern", Mixin: true, Field: true, Check: checkPattern},
		{Name: "required", Mixin: true, Field: true},
		{Name: "validation", Field: true},
		{Name: "value", Mixin: true, Field: true, Multi: true},
	}
	for _, d := range builtins {
		r.directives[d.Name] = d
	}
}

// register 注册一个指令描述符
func (r *directiveRegistry) register(d *DirectiveDescriptor) error {
	if d == nil {
		return fmt.Errorf("directive registry: descriptor cannot be nil")
	}
	if d.Name == "" {
		return fmt.Errorf("directive registry: directive name cannot be empty")
	}
	if len(d.Name) > maxDirectiveNameLength {
		return fmt.Errorf("directive registry: directive name exceeds maximum length %d", maxDirectiveNameLength)
	}
	if !directiveNameRegex.MatchString(d.Name) {
		return fmt.Errorf("directive registry: invalid directive name '%s'", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.directives[d.Name]; exists {
		return fmt.Errorf("directive registry: directive '%s' already registered", d.Name)
	}
	r.directives[d.Name] = d
	return nil
}

// snapshot 复制当前指令表
// 实例持有快照而不是共享表，构造后再注册的指令不影响已有实例
func (r *directiveRegistry) snapshot() map[string]*DirectiveDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*DirectiveDescriptor, len(r.directives))
	for name, d := range r.directives {
		out[name] = d
	}
	return out
}

// RegisterDirective 注册自定义指令
// 供声明端在构造实例之前调用；已存在的指令名会返回错误
func RegisterDirective(d *DirectiveDescriptor) error {
	return directives().register(d)
}

// LookupDirective 查询指令描述符，不存在时返回 nil
func LookupDirective(name string) *DirectiveDescriptor {
	r := directives()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.directives[name]
}
