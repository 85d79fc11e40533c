package validation

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// go-playground/validator 规则桥接
// 把底层验证器的单值规则（email、url、uuid 等）包装成可注册的指令，
// 字段和混入声明里即可直接使用：{"email": {"required": 1, "email": 1}}

var (
	// bridgeValidate 底层验证器实例（全局单例，规则校验无共享状态）
	bridgeValidate *validator.Validate
	// bridgeOnce 确保底层验证器只初始化一次
	bridgeOnce sync.Once
)

// bridge 获取底层验证器实例
func bridge() *validator.Validate {
	bridgeOnce.Do(func() {
		bridgeValidate = validator.New()
	})
	return bridgeValidate
}

// RegisterRuleDirective 把一条 go-playground/validator 规则注册为指令
// name 为指令名，rule 为底层规则串（遵循 validator/v10 的标签语法，如
// "email" 或 "min=3,max=20"）；message 为失败消息模板，空串时生成
// "<显示名> is not a valid <指令名>"
// 指令对字段和混入都适用，单值
func RegisterRuleDirective(name, rule, message string) error {
	if rule == "" {
		return fmt.Errorf("rule directive '%s': rule cannot be empty", name)
	}

	return RegisterDirective(&DirectiveDescriptor{
		Name:  name,
		Mixin: true,
		Field: true,
		Check: func(arg any, value string, f *FieldSpec, v *Validator) bool {
			if err := bridge().Var(value, rule); err != nil {
				generated := message
				if generated == "" {
					generated = fmt.Sprintf("%s is not a valid %s", f.display(), name)
				} else {
					generated = fmt.Sprintf(generated, f.display())
				}
				v.reportCheckError(f, generated)
				return false
			}
			return true
		},
	})
}

// RegisterFormatDirectives 注册常用格式指令（email、url、uuid、ip）
// 重复调用幂等：已注册的指令名跳过
func RegisterFormatDirectives() error {
	formats := []struct {
		name string
		rule string
	}{
		{"email", "email"},
		{"url", "url"},
		{"uuid", "uuid"},
		{"ip", "ip"},
	}
	for _, format := range formats {
		if LookupDirective(format.name) != nil {
			continue
		}
		if err := RegisterRuleDirective(format.name, format.rule, ""); err != nil {
			return err
		}
	}
	return nil
}
