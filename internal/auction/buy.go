package auction

import (
	"context"
	"time"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommodityQuote 短时价格保留：买家先询价，购买按报价封顶。
// 过期的报价视同不存在，购买直接失败（fail closed）。
type CommodityQuote struct {
	Token      uuid.UUID
	ItemID     uint32
	Quantity   uint32
	TotalPrice uint64
	Expiry     time.Time
}

// fillStep 撮合计划里的一步：从某条挂单取走多少件
type fillStep struct {
	listing *Listing
	take    uint32
	// full 整条挂单被清空（计划时定格，应用后 TotalCount 会变）
	full bool
}

// planFill 按单价升序贪心凑数：整摞优先，最后一条可以只取一部分。
// 买家自己的挂单跳过。凑不够返回 nil。
func (l *Ledger) planFill(buyer uint64, itemID uint32, quantity uint32) ([]fillStep, uint64) {
	tmpl := l.templates.Template(itemID)
	if tmpl == nil || !tmpl.Stackable() {
		return nil, 0
	}
	bucket, ok := l.buckets[KeyForCommodity(tmpl)]
	if !ok {
		return nil, 0
	}

	var (
		steps     []fillStep
		remaining = quantity
		total     uint64
	)
	for _, listing := range bucket.Listings.all() {
		if remaining == 0 {
			break
		}
		if listing.Seller.Guid == buyer || listing.BuyoutOrUnitPrice == 0 {
			continue
		}
		take := listing.TotalCount()
		if take > remaining {
			take = remaining
		}
		steps = append(steps, fillStep{listing: listing, take: take, full: take == listing.TotalCount()})
		total += uint64(take) * listing.BuyoutOrUnitPrice
		remaining -= take
	}
	if remaining > 0 {
		return nil, 0
	}
	return steps, total
}

// QuoteCommodity 生成一份报价并留存，同一买家后一份覆盖前一份
func (l *Ledger) QuoteCommodity(buyer PlayerRef, itemID uint32, quantity uint32, now time.Time) (*CommodityQuote, AuctionResult) {
	steps, total := l.planFill(buyer.Guid, itemID, quantity)
	if steps == nil {
		return nil, ResultNotEnoughItems
	}
	q := &CommodityQuote{
		Token:      uuid.New(),
		ItemID:     itemID,
		Quantity:   quantity,
		TotalPrice: total,
		Expiry:     now.Add(QuoteDuration),
	}
	l.quotes[buyer.Guid] = q
	return q, ResultOK
}

// CancelQuote 买家主动放弃报价
func (l *Ledger) CancelQuote(buyer PlayerRef) {
	delete(l.quotes, buyer.Guid)
}

// BuyCommodity 大宗商品买断。"数量凑齐"和"挂单变更"是一个原子单元：
// 任何失败路径都不留下部分变更。价格下行时按新总价成交（不超过报价即可）。
func (l *Ledger) BuyCommodity(ctx context.Context, buyer PlayerRef, funds uint64, itemID uint32, quantity uint32, now time.Time) (uint64, AuctionResult) {
	quote, ok := l.quotes[buyer.Guid]
	if !ok || quote.ItemID != itemID || quote.Quantity != quantity {
		metrics.BuyFailTotal.WithLabelValues(houseLabel(l.houseID), "quote_expired").Inc()
		return 0, ResultQuoteExpired
	}
	if now.After(quote.Expiry) {
		delete(l.quotes, buyer.Guid)
		metrics.BuyFailTotal.WithLabelValues(houseLabel(l.houseID), "quote_expired").Inc()
		return 0, ResultQuoteExpired
	}

	steps, total := l.planFill(buyer.Guid, itemID, quantity)
	if steps == nil {
		metrics.BuyFailTotal.WithLabelValues(houseLabel(l.houseID), "not_enough_items").Inc()
		return 0, ResultNotEnoughItems
	}
	if total > quote.TotalPrice {
		metrics.BuyFailTotal.WithLabelValues(houseLabel(l.houseID), "price_changed").Inc()
		return 0, ResultCommodityPriceChanged
	}
	if funds < total {
		metrics.BuyFailTotal.WithLabelValues(houseLabel(l.houseID), "not_enough_money").Inc()
		return 0, ResultNotEnoughMoney
	}

	// 先把整份计划写进一个事务；提交失败什么都不发生
	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		return l.persistFill(tx, steps)
	}); err != nil {
		logger.Error(ctx, "commodity buy commit failed",
			zap.Uint32("item", itemID), zap.Uint32("qty", quantity), zap.Error(err))
		return 0, ResultDatabaseError
	}

	bought := l.applyFill(steps)
	delete(l.quotes, buyer.Guid)

	l.dispatchFillMail(buyer, steps, bought)
	metrics.SalesTotal.WithLabelValues(houseLabel(l.houseID), "commodity").Inc()
	return total, ResultOK
}

// persistFill 把撮合计划翻译成行级变更
func (l *Ledger) persistFill(tx repo.AuctionTx, steps []fillStep) error {
	for _, s := range steps {
		if s.full {
			if err := tx.DeleteAuction(s.listing.ID); err != nil {
				return err
			}
			continue
		}
		remaining := s.take
		for _, it := range s.listing.Items {
			if remaining == 0 {
				break
			}
			if it.Count <= remaining {
				if err := tx.DeleteItem(s.listing.ID, it.Guid); err != nil {
					return err
				}
				remaining -= it.Count
			} else {
				if err := tx.UpdateItemCount(s.listing.ID, it.Guid, it.Count-remaining); err != nil {
					return err
				}
				remaining = 0
			}
		}
	}
	return nil
}

// applyFill 事务提交后应用内存变更，返回买家应收的物品摞。
// 整条清空的挂单走成交扩展点；部分消耗的先摘后挂，
// 让镜像端拿到新的数量和价格重建这条挂单。
func (l *Ledger) applyFill(steps []fillStep) []*Item {
	var bought []*Item
	for _, s := range steps {
		if s.full {
			bought = append(bought, s.listing.Items...)
			l.removeMem(s.listing)
			l.hooks.Sold(l.houseID, s.listing)
			continue
		}
		// 部分消耗：整摞取走，最后一摞拆分
		remaining := s.take
		kept := s.listing.Items[:0]
		for _, it := range s.listing.Items {
			switch {
			case remaining == 0:
				kept = append(kept, it)
			case it.Count <= remaining:
				bought = append(bought, it)
				remaining -= it.Count
			default:
				split := *it
				split.Guid = l.newID()
				split.Count = remaining
				bought = append(bought, &split)
				it.Count -= remaining
				remaining = 0
				kept = append(kept, it)
			}
		}
		s.listing.Items = kept
		l.changeNumber++
		l.hooks.Removed(l.houseID, s.listing)
		l.hooks.Added(l.houseID, s.listing)
	}
	return bought
}

// dispatchFillMail 买家按邮件件数上限分批收货；
// 每个受影响的卖家收一封货款邮件（价款 - 抽成，整单清空再退押金）。
func (l *Ledger) dispatchFillMail(buyer PlayerRef, steps []fillStep, bought []*Item) {
	type sellerTally struct {
		ref      PlayerRef
		gross    uint64
		deposit  uint64
		first    *Listing
		quantity uint32
	}
	sellers := make(map[uint64]*sellerTally)
	order := make([]uint64, 0, len(steps))
	for _, s := range steps {
		t, ok := sellers[s.listing.Seller.Guid]
		if !ok {
			t = &sellerTally{ref: s.listing.Seller, first: s.listing}
			sellers[s.listing.Seller.Guid] = t
			order = append(order, s.listing.Seller.Guid)
		}
		t.gross += uint64(s.take) * s.listing.BuyoutOrUnitPrice
		t.quantity += s.take
		if s.full {
			t.deposit += s.listing.Deposit
		}
	}

	for _, guid := range order {
		t := sellers[guid]
		cut := l.eco.Cut(l.houseID, t.gross)
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: t.ref,
			Subject:  soldSubject(t.first),
			Body:     soldBody(t.first.ID, t.quantity, t.gross, t.first.BuyoutOrUnitPrice, t.deposit, cut),
			Money:    t.gross - cut + t.deposit,
		})
	}

	for _, parcel := range parcelItems(bought, MaxMailItems) {
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: buyer,
			Subject:  wonSubject(steps[0].listing),
			Body:     wonBody(steps[0].listing.ID, sumCounts(parcel), 0, 0) + bonusListField(parcel[0].BonusListIDs),
			Items:    parcel,
		})
	}
}

func sumCounts(items []*Item) uint32 {
	var n uint32
	for _, it := range items {
		n += it.Count
	}
	return n
}

// pruneQuotes 过期报价逐 tick 清理
func (l *Ledger) pruneQuotes(now time.Time) {
	for guid, q := range l.quotes {
		if now.After(q.Expiry) {
			delete(l.quotes, guid)
		}
	}
}
