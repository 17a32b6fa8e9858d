package auction

import "sort"

// ResultBuilder 有界 Top-K 分页构建器。
// 对无界候选集做一次线性扫描，只保留前 offset+limit 个，
// O(n·log k)，不用物化全集也不用整体排序。
// 挂单级和桶级查询共用，只是比较器不同。
type ResultBuilder[T any] struct {
	cmp     func(a, b T) int
	offset  int
	limit   int
	items   []T
	hasMore bool
}

func NewResultBuilder[T any](cmp func(a, b T) int, offset, limit int) *ResultBuilder[T] {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	return &ResultBuilder[T]{
		cmp:    cmp,
		offset: offset,
		limit:  limit,
		items:  make([]T, 0, offset+limit),
	}
}

// AddItem 按排名二分插入；超出窗口就淘汰当前最差的一个，
// hasMore 一旦置位保持为 true。
func (b *ResultBuilder[T]) AddItem(v T) {
	idx := sort.Search(len(b.items), func(i int) bool {
		return b.cmp(b.items[i], v) > 0
	})
	b.items = append(b.items, v)
	copy(b.items[idx+1:], b.items[idx:])
	b.items[idx] = v

	if len(b.items) > b.offset+b.limit {
		b.items = b.items[:len(b.items)-1]
		b.hasMore = true
	}
}

// GetResultRange 返回 offset 到保留序列末尾的切片
func (b *ResultBuilder[T]) GetResultRange() []T {
	if b.offset >= len(b.items) {
		return nil
	}
	return b.items[b.offset:]
}

// HasMoreResults 扫描过程中是否有候选被淘汰过
func (b *ResultBuilder[T]) HasMoreResults() bool { return b.hasMore }
