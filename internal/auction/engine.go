package auction

import (
	"context"
	"time"
)

// Engine 把所有读写都串到一条逻辑更新线程上：
// 变更入口和查询共用一个执行队列，天然快照一致，结构不加锁。
type Engine struct {
	reg  *Registry
	cmds chan func()
	tick time.Duration
}

func NewEngine(reg *Registry) *Engine {
	return &Engine{
		reg:  reg,
		cmds: make(chan func(), 256),
		tick: reg.conf.Tick(),
	}
}

func (e *Engine) Registry() *Registry { return e.reg }

// Run 更新线程主循环，直到 ctx 取消
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-e.cmds:
			fn()
		case now := <-ticker.C:
			e.reg.Update(ctx, now)
		}
	}
}

// Submit 把闭包排到更新线程执行并等待完成
func (e *Engine) Submit(ctx context.Context, fn func(*Registry)) error {
	done := make(chan struct{})
	select {
	case e.cmds <- func() {
		defer close(done)
		fn(e.reg)
	}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call 带返回值的 Submit
func Call[T any](ctx context.Context, e *Engine, fn func(*Registry) T) (T, error) {
	var out T
	err := e.Submit(ctx, func(r *Registry) { out = fn(r) })
	return out, err
}
