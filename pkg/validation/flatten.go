package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Inflator 嵌套结构与点分键参数集之间的双向转换器
// Flatten 把任意嵌套的 map/切片/标量结构压平为单层点分键映射，
// Unflatten 是它的精确逆运算：Unflatten(Flatten(x)) 与 x 深度相等
type Inflator struct {
	// HashDelimiter 映射层级分隔符，默认 "."
	HashDelimiter string
	// ArrayDelimiter 序列下标分隔符，默认 ":"
	ArrayDelimiter string
	// EscapeSequence 转义前缀，默认 `\`
	// 键名中出现分隔符字符时在 Flatten 阶段转义，Unflatten 阶段还原
	EscapeSequence string
}

// 默认分隔符配置
const (
	defaultHashDelimiter  = "."
	defaultArrayDelimiter = ":"
	defaultEscapeSequence = `\`
)

// NewInflator 创建使用默认分隔符的转换器
func NewInflator() *Inflator {
	return &Inflator{
		HashDelimiter:  defaultHashDelimiter,
		ArrayDelimiter: defaultArrayDelimiter,
		EscapeSequence: defaultEscapeSequence,
	}
}

// normalize 补齐零值配置，保证转换器总是可用
func (in *Inflator) normalize() {
	if in.HashDelimiter == "" {
		in.HashDelimiter = defaultHashDelimiter
	}
	if in.ArrayDelimiter == "" {
		in.ArrayDelimiter = defaultArrayDelimiter
	}
	if in.EscapeSequence == "" {
		in.EscapeSequence = defaultEscapeSequence
	}
}

// Flatten 把嵌套结构压平为点分键映射
// 例如 {"user": {"login": "x", "roles": ["a", "b"]}} 压平为
// {"user.login": "x", "user.roles:0": "a", "user.roles:1": "b"}
func (in *Inflator) Flatten(nested map[string]any) map[string]any {
	in.normalize()

	flat := make(map[string]any, len(nested))
	for key, value := range nested {
		in.flattenValue(in.escapeKey(key), value, flat)
	}
	return flat
}

// flattenValue 递归压平单个值
// 空容器没有可下探的子键，按原样保留在前缀键下，保证往返不丢失
func (in *Inflator) flattenValue(prefix string, value any, flat map[string]any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			flat[prefix] = map[string]any{}
			return
		}
		for key, item := range v {
			in.flattenValue(prefix+in.HashDelimiter+in.escapeKey(key), item, flat)
		}
	case []any:
		if len(v) == 0 {
			flat[prefix] = []any{}
			return
		}
		for i, item := range v {
			in.flattenValue(prefix+in.ArrayDelimiter+strconv.Itoa(i), item, flat)
		}
	default:
		flat[prefix] = v
	}
}

// Unflatten 把点分键映射还原为嵌套结构
// 键按字典序处理，保证序列下标按升序填充
func (in *Inflator) Unflatten(flat map[string]any) (map[string]any, error) {
	in.normalize()

	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	nested := make(map[string]any, len(flat))
	for _, key := range keys {
		tokens, err := in.tokenize(key)
		if err != nil {
			return nil, err
		}
		if err := setPath(nested, tokens, flat[key]); err != nil {
			return nil, fmt.Errorf("unflatten key '%s': %w", key, err)
		}
	}
	return nested, nil
}

// pathToken 路径的一段：映射键或序列下标
type pathToken struct {
	key     string
	index   int
	isIndex bool
}

// tokenize 把点分键解析为路径段序列，处理转义
func (in *Inflator) tokenize(key string) ([]pathToken, error) {
	var tokens []pathToken
	var current strings.Builder
	inIndex := false

	flush := func() error {
		segment := current.String()
		current.Reset()
		if inIndex {
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 {
				return fmt.Errorf("invalid sequence index '%s'", segment)
			}
			tokens = append(tokens, pathToken{index: idx, isIndex: true})
		} else {
			tokens = append(tokens, pathToken{key: segment})
		}
		return nil
	}

	i := 0
	for i < len(key) {
		switch {
		case strings.HasPrefix(key[i:], in.EscapeSequence) && len(key) > i+len(in.EscapeSequence):
			// 转义：跳过转义前缀，取后面的字面字符
			i += len(in.EscapeSequence)
			current.WriteByte(key[i])
			i++
		case strings.HasPrefix(key[i:], in.HashDelimiter):
			if err := flush(); err != nil {
				return nil, err
			}
			inIndex = false
			i += len(in.HashDelimiter)
		case strings.HasPrefix(key[i:], in.ArrayDelimiter):
			if err := flush(); err != nil {
				return nil, err
			}
			inIndex = true
			i += len(in.ArrayDelimiter)
		default:
			current.WriteByte(key[i])
			i++
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// escapeKey 转义键名中的分隔符字符
func (in *Inflator) escapeKey(key string) string {
	key = strings.ReplaceAll(key, in.EscapeSequence, in.EscapeSequence+in.EscapeSequence)
	key = strings.ReplaceAll(key, in.HashDelimiter, in.EscapeSequence+in.HashDelimiter)
	key = strings.ReplaceAll(key, in.ArrayDelimiter, in.EscapeSequence+in.ArrayDelimiter)
	return key
}

// setPath 沿路径段写入值，按需创建中间映射和序列
func setPath(root map[string]any, tokens []pathToken, value any) error {
	if len(tokens) == 0 {
		return fmt.Errorf("empty key path")
	}
	if tokens[0].isIndex {
		return fmt.Errorf("key path cannot start with a sequence index")
	}

	var container any = root
	for i, token := range tokens {
		last := i == len(tokens)-1

		if token.isIndex {
			return fmt.Errorf("internal: index token reached map context")
		}

		m, ok := container.(map[string]any)
		if !ok {
			return fmt.Errorf("path segment '%s' conflicts with a scalar value", token.key)
		}

		// 后续是序列下标时，本段指向的是一个切片链
		if !last && tokens[i+1].isIndex {
			slice, _ := m[token.key].([]any)
			slice, err := descendSlice(slice, tokens[i+1:], value)
			if err != nil {
				return err
			}
			m[token.key] = slice
			return nil
		}

		if last {
			m[token.key] = value
			return nil
		}

		next, exists := m[token.key]
		if !exists {
			child := make(map[string]any)
			m[token.key] = child
			container = child
		} else {
			container = next
		}
	}
	return nil
}

// descendSlice 沿连续的下标段展开切片，返回更新后的切片
// 最末端要么直接写入标量，要么落回 setPath 继续处理映射段
func descendSlice(slice []any, tokens []pathToken, value any) ([]any, error) {
	token := tokens[0]
	if !token.isIndex {
		return nil, fmt.Errorf("internal: expected index token")
	}

	for len(slice) <= token.index {
		slice = append(slice, nil)
	}

	if len(tokens) == 1 {
		slice[token.index] = value
		return slice, nil
	}

	if tokens[1].isIndex {
		child, _ := slice[token.index].([]any)
		child, err := descendSlice(child, tokens[1:], value)
		if err != nil {
			return nil, err
		}
		slice[token.index] = child
		return slice, nil
	}

	child, ok := slice[token.index].(map[string]any)
	if !ok || child == nil {
		child = make(map[string]any)
		slice[token.index] = child
	}
	if err := setPath(child, tokens[1:], value); err != nil {
		return nil, err
	}
	return slice, nil
}

// hasNestedValues 判断参数集中是否存在需要压平的嵌套值
func hasNestedValues(params map[string]any) bool {
	for _, value := range params {
		switch value.(type) {
		case map[string]any, []any:
			return true
		}
	}
	return false
}
