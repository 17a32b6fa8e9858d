package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Economics 押金与抽成的计算规则，数值来自配置
type Economics struct {
	// DepositRate 押金比例，默认 0.15
	DepositRate decimal.Decimal
	// MinDeposit 押金下限（铜币）
	MinDeposit uint64
	// CutRate 每个行的抽成比例，缺省用 DefaultCutRate
	CutRate map[HouseID]decimal.Decimal
	// DefaultCutRate 默认抽成比例
	DefaultCutRate decimal.Decimal
}

func DefaultEconomics() *Economics {
	return &Economics{
		DepositRate:    decimal.New(15, -2), // 0.15
		MinDeposit:     Silver,
		DefaultCutRate: decimal.New(5, -2), // 0.05
		CutRate: map[HouseID]decimal.Decimal{
			HouseGoblin: decimal.New(15, -2), // 地精行抽 15%
		},
	}
}

// Deposit 计算押金：
//  1. 按 卖价×件数×比例 取基数，低于下限补到下限
//  2. 向下取整到铜币，再向上取整到银币
//  3. 按时长单位数累乘
//
// 对件数和时长单调不减。
func (e *Economics) Deposit(sellPrice uint64, quantity uint32, duration time.Duration) uint64 {
	base := decimal.NewFromUint64(sellPrice).
		Mul(decimal.NewFromUint64(uint64(quantity))).
		Mul(e.DepositRate)

	minDep := decimal.NewFromUint64(e.MinDeposit)
	if base.LessThan(minDep) {
		base = minDep
	}

	floored := base.Floor()
	silver := decimal.NewFromUint64(Silver)
	perUnit := floored.Div(silver).Ceil().Mul(silver)

	units := uint64(duration / MinDuration)
	if units < 1 {
		units = 1
	}
	return perUnit.BigInt().Uint64() * units
}

// Cut 成交抽成：最终价 × 行抽成比例，向下取整，下限 0。
// GM 挂单不抽成由调用方控制。
func (e *Economics) Cut(houseID HouseID, finalPrice uint64) uint64 {
	rate, ok := e.CutRate[houseID]
	if !ok {
		rate = e.DefaultCutRate
	}
	cut := decimal.NewFromUint64(finalPrice).Mul(rate).Floor()
	if cut.IsNegative() {
		return 0
	}
	return cut.BigInt().Uint64()
}
