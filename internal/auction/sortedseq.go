package auction

import "sort"

// sortedSeq 二分插入维护的有序向量。
// 桶序列（按 key）和桶内挂单序列（按单价升序）都用它，
// 保证浏览顺序确定、低价优先成交。
type sortedSeq[T any] struct {
	cmp   func(a, b T) int
	elems []T
}

func newSortedSeq[T any](cmp func(a, b T) int) *sortedSeq[T] {
	return &sortedSeq[T]{cmp: cmp}
}

// insert 按序插入，相等元素排在已有元素之后（稳定）
func (s *sortedSeq[T]) insert(v T) {
	idx := sort.Search(len(s.elems), func(i int) bool {
		return s.cmp(s.elems[i], v) > 0
	})
	s.elems = append(s.elems, v)
	copy(s.elems[idx+1:], s.elems[idx:])
	s.elems[idx] = v
}

// remove 删除第一个与 v 判等的元素（按 eq 回调），找不到返回 false
func (s *sortedSeq[T]) remove(v T, eq func(a, b T) bool) bool {
	// 先二分到相等区间的起点，再线性找目标
	idx := sort.Search(len(s.elems), func(i int) bool {
		return s.cmp(s.elems[i], v) >= 0
	})
	for ; idx < len(s.elems) && s.cmp(s.elems[idx], v) == 0; idx++ {
		if eq(s.elems[idx], v) {
			copy(s.elems[idx:], s.elems[idx+1:])
			var zero T
			s.elems[len(s.elems)-1] = zero
			s.elems = s.elems[:len(s.elems)-1]
			return true
		}
	}
	return false
}

// reinsert 元素排序键变化后的归位（先删后插）
func (s *sortedSeq[T]) reinsertAt(idx int) {
	v := s.elems[idx]
	copy(s.elems[idx:], s.elems[idx+1:])
	s.elems = s.elems[:len(s.elems)-1]
	s.insert(v)
}

// indexOf 线性定位，仅小序列使用
func (s *sortedSeq[T]) indexOf(eq func(v T) bool) int {
	for i, e := range s.elems {
		if eq(e) {
			return i
		}
	}
	return -1
}

func (s *sortedSeq[T]) len() int    { return len(s.elems) }
func (s *sortedSeq[T]) all() []T    { return s.elems }
func (s *sortedSeq[T]) first() T    { return s.elems[0] }
func (s *sortedSeq[T]) empty() bool { return len(s.elems) == 0 }
