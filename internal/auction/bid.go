package auction

import (
	"context"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/metrics"
	"go.uber.org/zap"
)

// PlaceBid 对单件挂单出价。达到一口价直接成交；
// 否则登记出价并给被顶掉的前任出价人退款邮件。
// 任何校验失败都发生在落库之前，不留半截状态。
func (l *Ledger) PlaceBid(ctx context.Context, bidder PlayerRef, funds uint64, auctionID uint64, amount uint64) AuctionResult {
	listing, ok := l.byID[auctionID]
	if !ok {
		return ResultItemNotFound
	}
	if listing.IsCommodity() || listing.Seller.Guid == bidder.Guid {
		return ResultItemNotFound
	}
	if amount < listing.MinBid {
		return ResultBidIncrementTooLow
	}
	if listing.BidAmount > 0 && amount < listing.BidAmount+listing.MinBidIncrement() {
		return ResultBidIncrementTooLow
	}
	if funds < amount {
		return ResultNotEnoughMoney
	}

	// 一口价成交
	if listing.BuyoutOrUnitPrice > 0 && amount >= listing.BuyoutOrUnitPrice {
		return l.buyout(ctx, bidder, listing)
	}

	prevBidder, prevAmount := listing.Bidder, listing.BidAmount

	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		if err := tx.UpdateBid(auctionID, bidder.Guid, amount); err != nil {
			return err
		}
		return tx.InsertBidder(auctionID, bidder.Guid)
	}); err != nil {
		logger.Error(ctx, "update bid failed",
			zap.Uint64("auction", auctionID), zap.Error(err))
		return ResultDatabaseError
	}

	// 退回上一笔出价。自己加价也一样：调用方按新价全额扣款，
	// 旧的那笔只有邮件这一条回款通道。
	if prevBidder != 0 {
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: PlayerRef{Guid: prevBidder},
			Subject:  outbidSubject(listing),
			Body:     wonBody(listing.ID, listing.TotalCount(), prevAmount, listing.BuyoutOrUnitPrice),
			Money:    prevAmount,
		})
	}

	listing.RecordBid(bidder.Guid, amount)
	addIndex(l.byBidder, bidder.Guid, listing)
	// 没有一口价时展示价跟着出价走，桶里要归位
	if listing.BuyoutOrUnitPrice == 0 && listing.Bucket != nil {
		listing.Bucket.PriceChanged(listing)
	}
	l.changeNumber++
	return ResultOK
}

// buyout 一口价路径：按买断价结算并立刻摘单
func (l *Ledger) buyout(ctx context.Context, bidder PlayerRef, listing *Listing) AuctionResult {
	price := listing.BuyoutOrUnitPrice
	prevBidder, prevAmount := listing.Bidder, listing.BidAmount

	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		return tx.DeleteAuction(listing.ID)
	}); err != nil {
		logger.Error(ctx, "buyout delete failed",
			zap.Uint64("auction", listing.ID), zap.Error(err))
		return ResultDatabaseError
	}

	if prevBidder != 0 {
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: PlayerRef{Guid: prevBidder},
			Subject:  outbidSubject(listing),
			Body:     wonBody(listing.ID, listing.TotalCount(), prevAmount, price),
			Money:    prevAmount,
		})
	}

	listing.RecordBid(bidder.Guid, price)
	l.settleSold(listing, price)
	l.removeMem(listing)
	l.hooks.Sold(l.houseID, listing)
	metrics.SalesTotal.WithLabelValues(houseLabel(l.houseID), "buyout").Inc()
	return ResultOK
}
