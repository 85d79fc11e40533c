package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// 内置过滤器
// 过滤器只作用于"已定义"的参数值：参数缺失时不执行，空字符串是已定义值会执行
// 所有过滤器都是纯字符串变换且幂等

var (
	nonAlphaRegex        = regexp.MustCompile(`[^A-Za-z]`)
	nonAlphanumericRegex = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonDecimalRegex      = regexp.MustCompile(`[^0-9.,]`)
	nonNumericRegex      = regexp.MustCompile(`[^0-9]`)
	whitespaceRunRegex   = regexp.MustCompile(`\s+`)
	sentenceStartRegex   = regexp.MustCompile(`\. +[a-z]`)
)

// filterRegistry 进程级过滤器注册表
type filterRegistry struct {
	filters map[string]FilterFunc
	mu      sync.RWMutex
}

var (
	// globalFilters 全局过滤器注册表实例（单例）
	globalFilters *filterRegistry
	// filtersOnce 确保注册表只初始化一次
	filtersOnce sync.Once
)

// filters 获取全局过滤器注册表，首次调用时播种内置过滤器
func filters() *filterRegistry {
	filtersOnce.Do(func() {
		globalFilters = &filterRegistry{
			filters: make(map[string]FilterFunc, 16),
		}
		globalFilters.seed()
	})
	return globalFilters
}

// seed 播种内置过滤器
func (r *filterRegistry) seed() {
	r.filters["alpha"] = filterAlpha
	r.filters["alphanumeric"] = filterAlphanumeric
	r.filters["capitalize"] = filterCapitalize
	r.filters["decimal"] = filterDecimal
	r.filters["lowercase"] = strings.ToLower
	r.filters["numeric"] = filterNumeric
	r.filters["strip"] = filterStrip
	r.filters["titlecase"] = filterTitlecase
	r.filters["trim"] = strings.TrimSpace
	r.filters["uppercase"] = strings.ToUpper
}

// register 注册一个命名过滤器
func (r *filterRegistry) register(name string, fn FilterFunc) error {
	if name == "" {
		return fmt.Errorf("filter registry: filter name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("filter registry: filter function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
	return nil
}

// lookup 按名称查询过滤器
func (r *filterRegistry) lookup(name string) (FilterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

// RegisterFilter 注册自定义命名过滤器
// 同名注册会覆盖，便于声明端替换内置行为
func RegisterFilter(name string, fn FilterFunc) error {
	return filters().register(name, fn)
}

// filterAlpha 只保留英文字母
func filterAlpha(value string) string {
	return nonAlphaRegex.ReplaceAllString(value, "")
}

// filterAlphanumeric 只保留字母和数字
func filterAlphanumeric(value string) string {
	return nonAlphanumericRegex.ReplaceAllString(value, "")
}

// filterCapitalize 整体首字母大写，并把每个 ". " 之后的首字母大写
func filterCapitalize(value string) string {
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	value = string(runes)

	return sentenceStartRegex.ReplaceAllStringFunc(value, strings.ToUpper)
}

// filterDecimal 只保留数字、小数点和逗号
func filterDecimal(value string) string {
	return nonDecimalRegex.ReplaceAllString(value, "")
}

// filterNumeric 只保留数字
func filterNumeric(value string) string {
	return nonNumericRegex.ReplaceAllString(value, "")
}

// filterStrip 把内部空白串压缩为单个空格，再去除首尾空白
func filterStrip(value string) string {
	return strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(value, " "))
}

// filterTitlecase 先转小写，再把每个空白分隔的词首字母大写
// 词之间的空白压缩为单个空格
func filterTitlecase(value string) string {
	words := strings.Fields(strings.ToLower(value))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// applyFilters 按声明顺序执行字段的过滤器链
// 未知的过滤器名跳过（声明时已经校验过，这里只防御）
func applyFilters(f *FieldSpec, value string) string {
	for _, entry := range f.Filters {
		switch ft := entry.(type) {
		case FilterFunc:
			value = ft(value)
		case func(string) string:
			value = ft(value)
		case string:
			if fn, ok := filters().lookup(ft); ok {
				value = fn(value)
			}
		}
	}
	return value
}
