package validation

import "errors"

// 声明级错误（致命，中止构造或整次调用）
// 校验失败本身不是 Go error，而是收集到错误列表里的消息，见 collector.go
var (
	// ErrUnknownDirective 字段或混入声明里出现了注册表中不存在的指令
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrUnknownMixin mixin 指令引用了未声明的混入
	ErrUnknownMixin = errors.New("unknown mixin")
	// ErrUnknownField 参数或显式目标没有对应的字段声明
	ErrUnknownField = errors.New("unknown field")
	// ErrAliasCollision 别名与其他字段名或其他别名冲突
	ErrAliasCollision = errors.New("alias collision")
	// ErrBadErrorTarget AddError 的字段参数不是本实例的字段对象
	ErrBadErrorTarget = errors.New("error target is not a field")
	// ErrBadTarget Validate 收到了既不是字段名也不是改名映射的参数
	ErrBadTarget = errors.New("invalid validation target")
)
