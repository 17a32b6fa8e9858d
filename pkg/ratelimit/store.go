package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time // 最后一次访问时间
	lastPass time.Time // 最后一次放行时间
}

// Store 按 key 维护令牌桶 + 最小间隔。
// 拍卖行的查询节流是逐 tick 清理的，不起单独的清理协程。
type Store struct {
	mu       sync.Mutex
	entries  map[uint64]*entry
	rate     rate.Limit
	burst    int
	minDelay time.Duration // 两次放行之间的最小间隔
	ttl      time.Duration
}

func NewStore(r rate.Limit, burst int, minDelay, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		entries:  make(map[uint64]*entry, 1024),
		rate:     r,
		burst:    burst,
		minDelay: minDelay,
		ttl:      ttl,
	}
}

// Allow 判断 key 是否放行。被拒绝时返回建议的重试等待时长。
func (s *Store) Allow(key uint64) (bool, time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now

	// 最小间隔优先判断，避免白白消耗令牌
	if s.minDelay > 0 && !e.lastPass.IsZero() {
		if wait := s.minDelay - now.Sub(e.lastPass); wait > 0 {
			return false, wait
		}
	}

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, s.minDelay
	}
	if delay := r.DelayFrom(now); delay > 0 {
		// 配额耗尽，退还预约并告知等待时间
		r.CancelAt(now)
		return false, delay
	}

	e.lastPass = now
	return true, 0
}

// Prune 淘汰超过 ttl 未访问的条目，由上层的 tick 驱动。
func (s *Store) Prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, key)
		}
	}
}

// Len 当前条目数，测试用
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
