package validation

import (
	"strings"
	"sync"
)

// stringBuilderPool 字符串构建器对象池
// 用途：复用错误渲染时的 strings.Builder，减少内存分配
var stringBuilderPool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// acquireBuilder 从对象池获取构建器，使用后必须调用 releaseBuilder 归还
func acquireBuilder() *strings.Builder {
	b := stringBuilderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

// releaseBuilder 归还构建器到对象池
// 防止内存泄漏：容量过大的构建器不归还
func releaseBuilder(b *strings.Builder) {
	if b == nil || b.Cap() > 1<<16 {
		return
	}
	stringBuilderPool.Put(b)
}
