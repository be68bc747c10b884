// Package pool holds sync.Pools for the per-frame allocations of the
// renderer.
package pool

import (
	"strings"
	"sync"
)

const (
	builderSize = 256
	// builders that grew past this are dropped instead of pooled
	maxBuilderSize = 64 * 1024
)

var builderPool = sync.Pool{
	New: func() any {
		sb := &strings.Builder{}
		sb.Grow(builderSize)
		return sb
	},
}

// GetStringBuilder returns an empty builder.
func GetStringBuilder() *strings.Builder {
	return builderPool.Get().(*strings.Builder)
}

// PutStringBuilder resets sb and returns it to the pool. Strings built
// with sb stay valid.
func PutStringBuilder(sb *strings.Builder) {
	if sb == nil || sb.Cap() > maxBuilderSize {
		return
	}
	sb.Reset()
	builderPool.Put(sb)
}
