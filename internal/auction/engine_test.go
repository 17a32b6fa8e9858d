package auction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngineSerializesCommands(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})
	eng := NewEngine(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	// 闭包都在更新线程上跑，Submit 返回即已执行完
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, eng.Submit(ctx, func(r *Registry) {
			order = append(order, i)
		}))
	}
	require.Len(t, order, 10)
	for i, v := range order {
		require.Equal(t, i, v)
	}

	got, err := Call(ctx, eng, func(r *Registry) HouseID {
		return r.Ledger(HouseNeutral).HouseID()
	})
	require.NoError(t, err)
	require.Equal(t, HouseNeutral, got)
}

func TestEngineSubmitAfterShutdown(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})
	eng := NewEngine(reg)

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	require.NoError(t, eng.Submit(ctx, func(r *Registry) {}))

	cancel()
	// 停机后的提交拿到 ctx 错误而不是悬挂
	err := eng.Submit(ctx, func(r *Registry) {})
	require.ErrorIs(t, err, context.Canceled)
}
