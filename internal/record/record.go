// Package record holds the keyed string record a card binds to and the
// stores that host it.
package record

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/samber/lo"
)

// ErrClosed 表示 store 已关闭。
var ErrClosed = errors.New("record store closed")

// Record 是卡片绑定的 key/value 数据，由 store 持有。
type Record map[string]string

// Clone 返回独立副本；nil 记录返回空记录。
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Keys 返回按字典序排序的 key。
func (r Record) Keys() []string {
	keys := lo.Keys(map[string]string(r))
	slices.Sort(keys)
	return keys
}

// Reader 读取当前快照。
type Reader interface {
	Snapshot() Record
}

// Writer 暂存字段写入并通过 Sync 提交。
type Writer interface {
	Set(key, value string)
	Sync(ctx context.Context) error
}

// Store 是卡片依赖的完整句柄：读快照、写字段、订阅变更。
// Subscribe 返回的通道在每次记录变化后收到最新快照，cancel 之后关闭。
type Store interface {
	Reader
	Writer
	Subscribe() (<-chan Record, func())
}

// evict 删除最旧（字典序最小）的 key，直到记录不超过 capacity。
// 返回被删除的 key。capacity <= 0 表示不限制。
func evict(r Record, capacity int) []string {
	if capacity <= 0 || len(r) <= capacity {
		return nil
	}
	keys := r.Keys()
	drop := keys[:len(keys)-capacity]
	for _, k := range drop {
		delete(r, k)
	}
	return drop
}
