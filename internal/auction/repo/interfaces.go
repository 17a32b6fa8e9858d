package repo

import (
	"context"

	"auctionex.com/internal/auction/repo/model"
)

// AuctionTx 一次事务里允许的写操作。
// Ledger 每 tick 把当期所有变更打进同一个事务，提交失败则
// 内存态一并不生效。
type AuctionTx interface {
	InsertAuction(row *model.AuctionRow, items []model.AuctionItemRow) error
	DeleteAuction(id uint64) error
	UpdateBid(id uint64, bidder uint64, amount uint64) error
	InsertBidder(id uint64, bidder uint64) error
	UpdateItemCount(auctionID, itemGuid uint64, count uint32) error
	DeleteItem(auctionID, itemGuid uint64) error
}

// AuctionRepo 拍卖持久化入口
type AuctionRepo interface {
	// LoadAll 启动时全量加载，用于重建各 Ledger
	LoadAll(ctx context.Context) ([]model.AuctionRow, []model.AuctionItemRow, []model.AuctionBidderRow, error)
	// WithTx 在一个事务里执行 fn，fn 出错整体回滚
	WithTx(ctx context.Context, fn func(tx AuctionTx) error) error
}
