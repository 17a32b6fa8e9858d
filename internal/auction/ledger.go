package auction

import (
	"context"
	"strconv"
	"strings"
	"time"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/internal/auction/repo/model"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/metrics"
	"go.uber.org/zap"
)

// Ledger 单个拍卖行的总账：持有全部桶、挂单和索引。
// 所有变更都跑在一条逻辑更新线程上（见 Engine），结构内部不加锁。
type Ledger struct {
	houseID   HouseID
	eco       *Economics
	repo      repo.AuctionRepo
	mail      MailSink
	hooks     *HookList
	templates TemplateStore
	newID     func() uint64

	// buckets 按 key 查；ordered 按 key 序浏览，两者同步维护
	buckets map[BucketKey]*Bucket
	ordered *sortedSeq[*Bucket]

	byID     map[uint64]*Listing
	byOwner  map[uint64]map[uint64]*Listing
	byBidder map[uint64]map[uint64]*Listing

	// quotes 买家 guid -> 未消费的商品报价
	quotes map[uint64]*CommodityQuote
	// replicate 买家 guid -> 增量复制游标
	replicate map[uint64]*ReplicationCursor

	// changeNumber 复制协议的全局期号，任何变更自增
	changeNumber uint64
}

func NewLedger(houseID HouseID, eco *Economics, r repo.AuctionRepo, mail MailSink,
	hooks *HookList, templates TemplateStore, newID func() uint64) *Ledger {
	return &Ledger{
		houseID:   houseID,
		eco:       eco,
		repo:      r,
		mail:      mail,
		hooks:     hooks,
		templates: templates,
		newID:     newID,
		buckets:   make(map[BucketKey]*Bucket),
		ordered:   newSortedSeq(func(a, b *Bucket) int { return a.Key.Compare(b.Key) }),
		byID:      make(map[uint64]*Listing),
		byOwner:   make(map[uint64]map[uint64]*Listing),
		byBidder:  make(map[uint64]map[uint64]*Listing),
		quotes:    make(map[uint64]*CommodityQuote),
		replicate: make(map[uint64]*ReplicationCursor),
	}
}

func (l *Ledger) HouseID() HouseID { return l.houseID }

// ListParams 挂单提交参数
type ListParams struct {
	Seller            PlayerRef
	Items             []*Item
	MinBid            uint64
	BuyoutOrUnitPrice uint64
	Duration          time.Duration
	Deposit           uint64
	Flags             ListingFlags
}

// AddListing 提交一条挂单：归桶、建索引、落库、通知。
// 落库失败时内存不动，调用方拿到 ResultDatabaseError。
func (l *Ledger) AddListing(ctx context.Context, p *ListParams, now time.Time) (*Listing, AuctionResult) {
	if len(p.Items) == 0 || p.Items[0].Template == nil {
		return nil, ResultItemNotFound
	}

	listing := &Listing{
		ID:                l.newID(),
		Seller:            p.Seller,
		Items:             p.Items,
		MinBid:            p.MinBid,
		BuyoutOrUnitPrice: p.BuyoutOrUnitPrice,
		Deposit:           p.Deposit,
		StartTime:         now,
		EndTime:           now.Add(p.Duration),
		Flags:             p.Flags,
	}

	// 先落库再改内存，保证两边一致
	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		return tx.InsertAuction(l.toRow(listing), l.toItemRows(listing))
	}); err != nil {
		logger.Error(ctx, "insert auction failed",
			zap.Uint64("auction", listing.ID), zap.Error(err))
		return nil, ResultDatabaseError
	}

	l.insertMem(listing)
	l.hooks.Added(l.houseID, listing)
	return listing, ResultOK
}

// insertMem 纯内存插入，启动重建时也走这里
func (l *Ledger) insertMem(listing *Listing) {
	key := KeyForItem(listing.Items[0])
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewBucket(key, listing.Template())
		l.buckets[key] = bucket
		l.ordered.insert(bucket)
	}
	bucket.Insert(listing)

	l.byID[listing.ID] = listing
	addIndex(l.byOwner, listing.Seller.Guid, listing)
	for bidder := range listing.BidderHistory {
		addIndex(l.byBidder, bidder, listing)
	}
	l.changeNumber++
	metrics.ListingsActive.WithLabelValues(houseLabel(l.houseID)).Inc()
}

// removeMem 把挂单从所有索引里摘掉，桶空了连桶一起删
func (l *Ledger) removeMem(listing *Listing) {
	if b := listing.Bucket; b != nil {
		if empty := b.Remove(listing); empty {
			delete(l.buckets, b.Key)
			l.ordered.remove(b, func(a, v *Bucket) bool { return a == v })
		}
	}
	delete(l.byID, listing.ID)
	dropIndex(l.byOwner, listing.Seller.Guid, listing.ID)
	for bidder := range listing.BidderHistory {
		dropIndex(l.byBidder, bidder, listing.ID)
	}
	l.changeNumber++
	metrics.ListingsActive.WithLabelValues(houseLabel(l.houseID)).Dec()
}

// CancelListing 卖家撤单。有人出过价则押金没收、当前出价退回出价人；
// 物品一律邮寄回卖家。
func (l *Ledger) CancelListing(ctx context.Context, owner PlayerRef, auctionID uint64) AuctionResult {
	listing, ok := l.byID[auctionID]
	if !ok {
		return ResultItemNotFound
	}
	if listing.Seller.Guid != owner.Guid {
		return ResultNotOwner
	}

	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		return tx.DeleteAuction(auctionID)
	}); err != nil {
		logger.Error(ctx, "delete auction failed",
			zap.Uint64("auction", auctionID), zap.Error(err))
		return ResultDatabaseError
	}

	refundDeposit := uint64(0)
	if listing.Bidder == 0 {
		refundDeposit = listing.Deposit
	} else {
		// 退回当前出价
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: PlayerRef{Guid: listing.Bidder},
			Subject:  outbidSubject(listing),
			Body:     wonBody(listing.ID, listing.TotalCount(), listing.BidAmount, listing.BuyoutOrUnitPrice),
			Money:    listing.BidAmount,
		})
	}
	l.sendMail(&MailRequest{
		HouseID:  l.houseID,
		Receiver: listing.Seller,
		Subject:  cancelledSubject(listing),
		Body:     wonBody(listing.ID, listing.TotalCount(), 0, listing.BuyoutOrUnitPrice),
		Money:    refundDeposit,
		Items:    listing.Items,
	})

	l.removeMem(listing)
	l.hooks.Removed(l.houseID, listing)
	return ResultOK
}

// Update 每 tick 调一次：清理过期的报价和复制游标，
// 结算本 tick 窗口内到期的挂单。删除打进一个事务，提交失败整个
// tick 的内存变更都不生效（宁可下个 tick 重试，不能账实不符）。
func (l *Ledger) Update(ctx context.Context, now time.Time, window time.Duration) error {
	l.pruneQuotes(now)
	l.pruneReplication(now)

	deadline := now.Add(window)
	var expiring []*Listing
	for _, b := range l.ordered.all() {
		for _, listing := range b.Listings.all() {
			if !listing.EndTime.After(deadline) {
				expiring = append(expiring, listing)
			}
		}
	}
	if len(expiring) == 0 {
		return nil
	}

	if err := l.repo.WithTx(ctx, func(tx repo.AuctionTx) error {
		for _, listing := range expiring {
			if err := tx.DeleteAuction(listing.ID); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		logger.Error(ctx, "resolve tick commit failed",
			zap.Uint8("house", uint8(l.houseID)),
			zap.Int("expiring", len(expiring)),
			zap.Error(err))
		return err
	}

	for _, listing := range expiring {
		l.resolve(listing)
	}
	return nil
}

// resolve 单条挂单结算（事务已提交，只做内存和外发）
func (l *Ledger) resolve(listing *Listing) {
	switch listing.ResolveState() {
	case StateSold:
		l.settleSold(listing, listing.BidAmount)
		l.hooks.Sold(l.houseID, listing)
		metrics.SalesTotal.WithLabelValues(houseLabel(l.houseID), "sold").Inc()
	default: // 流拍：物品退回卖家，押金没收
		l.sendMail(&MailRequest{
			HouseID:  l.houseID,
			Receiver: listing.Seller,
			Subject:  expiredSubject(listing),
			Body:     wonBody(listing.ID, listing.TotalCount(), 0, listing.BuyoutOrUnitPrice),
			Items:    listing.Items,
		})
		l.hooks.Expired(l.houseID, listing)
	}
	l.removeMem(listing)
}

// settleSold 成交结算：赢家收货，卖家收款（价款 - 抽成 + 押金退回）
func (l *Ledger) settleSold(listing *Listing, price uint64) {
	cut := uint64(0)
	if listing.Flags&FlagGMListing == 0 {
		cut = l.eco.Cut(l.houseID, price)
	}
	proceeds := price - cut + listing.Deposit

	l.sendMail(&MailRequest{
		HouseID:  l.houseID,
		Receiver: PlayerRef{Guid: listing.Bidder},
		Subject:  wonSubject(listing),
		Body:     wonBody(listing.ID, listing.TotalCount(), price, listing.BuyoutOrUnitPrice) + bonusListField(bonusIDsOf(listing)),
		Items:    listing.Items,
	})
	l.sendMail(&MailRequest{
		HouseID:  l.houseID,
		Receiver: listing.Seller,
		Subject:  soldSubject(listing),
		Body:     soldBody(listing.ID, listing.TotalCount(), price, listing.BuyoutOrUnitPrice, listing.Deposit, cut),
		Money:    proceeds,
	})
}

// sendMail 邮件外发。收件人身份解析不出来（guid 为 0）时物品销毁，
// 这不算错误，记一条日志即可。
func (l *Ledger) sendMail(m *MailRequest) {
	if m.Receiver.IsEmpty() {
		logger.Warn(context.Background(), "mail receiver unresolvable, items destroyed",
			zap.Uint8("house", uint8(l.houseID)),
			zap.String("subject", m.Subject),
			zap.Int("items", len(m.Items)))
		return
	}
	if err := l.mail.Send(m); err != nil {
		logger.Error(context.Background(), "mail dispatch failed",
			zap.String("subject", m.Subject), zap.Error(err))
	}
}

func (l *Ledger) toRow(listing *Listing) *model.AuctionRow {
	return &model.AuctionRow{
		ID:                listing.ID,
		HouseID:           uint8(l.houseID),
		Owner:             listing.Seller.Guid,
		OwnerAccount:      listing.Seller.Account,
		Bidder:            listing.Bidder,
		MinBid:            listing.MinBid,
		BuyoutOrUnitPrice: listing.BuyoutOrUnitPrice,
		Deposit:           listing.Deposit,
		BidAmount:         listing.BidAmount,
		StartTime:         listing.StartTime.Unix(),
		EndTime:           listing.EndTime.Unix(),
		Flags:             uint8(listing.Flags),
	}
}

func (l *Ledger) toItemRows(listing *Listing) []model.AuctionItemRow {
	rows := make([]model.AuctionItemRow, 0, len(listing.Items))
	for _, it := range listing.Items {
		rows = append(rows, model.AuctionItemRow{
			AuctionID:    listing.ID,
			ItemGuid:     it.Guid,
			ItemID:       it.Template.ID,
			Count:        it.Count,
			ItemLevel:    it.ItemLevel,
			SuffixID:     it.SuffixID,
			PetSpeciesID: it.PetSpeciesID,
			PetLevel:     it.PetLevel,
			AppearanceID: it.AppearanceID,
			BonusListIDs: joinBonusIDs(it.BonusListIDs),
		})
	}
	return rows
}

func bonusIDsOf(listing *Listing) []uint32 {
	if len(listing.Items) == 0 {
		return nil
	}
	return listing.Items[0].BonusListIDs
}

func joinBonusIDs(ids []uint32) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func splitBonusIDs(s string) []uint32 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		if v, err := strconv.ParseUint(p, 10, 32); err == nil {
			ids = append(ids, uint32(v))
		}
	}
	return ids
}

func houseLabel(id HouseID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func addIndex(idx map[uint64]map[uint64]*Listing, key uint64, l *Listing) {
	m, ok := idx[key]
	if !ok {
		m = make(map[uint64]*Listing, 4)
		idx[key] = m
	}
	m[l.ID] = l
}

func dropIndex(idx map[uint64]map[uint64]*Listing, key uint64, id uint64) {
	if m, ok := idx[key]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(idx, key)
		}
	}
}
