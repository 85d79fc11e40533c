package validation

// errorCollector 错误收集器
// 同时维护类级错误列表（有序去重）和字段级错误归属
// 生命周期：构造时创建，每次 validate() 开始时清空
type errorCollector struct {
	// class 类级错误消息（记录顺序，去重）
	class []string
	// seen 类级去重索引
	seen map[string]bool
}

func newErrorCollector() *errorCollector {
	return &errorCollector{
		class: make([]string, 0, 8),
		seen:  make(map[string]bool, 8),
	}
}

// add 追加一条类级错误（去重，保持首次出现顺序）
func (c *errorCollector) add(message string) bool {
	if message == "" {
		return false
	}
	if c.seen[message] {
		return false
	}
	c.seen[message] = true
	c.class = append(c.class, message)
	return true
}

// errors 返回类级错误列表
func (c *errorCollector) errors() []string {
	return c.class
}

// count 类级错误数量
func (c *errorCollector) count() int {
	return len(c.class)
}

// hasErrors 是否存在错误
func (c *errorCollector) hasErrors() bool {
	return len(c.class) > 0
}

// clear 清空错误，保留底层容量
func (c *errorCollector) clear() {
	c.class = c.class[:0]
	for k := range c.seen {
		delete(c.seen, k)
	}
}
