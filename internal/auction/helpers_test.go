package auction

import (
	"context"
	"errors"
	"time"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/internal/auction/repo/model"
	"auctionex.com/pkg/logger"
)

func init() {
	// 测试里日志只进内存文件路径，级别调高减少噪音
	logger.Init("auction-test", "error")
}

// memRepo 内存 repo 桩：记录事务操作，可注入提交失败
type memRepo struct {
	failNext bool

	inserted []uint64
	deleted  []uint64
	bids     map[uint64]uint64 // auctionID -> bidAmount
	counts   map[[2]uint64]uint32
}

func newMemRepo() *memRepo {
	return &memRepo{
		bids:   make(map[uint64]uint64),
		counts: make(map[[2]uint64]uint32),
	}
}

func (m *memRepo) LoadAll(ctx context.Context) ([]model.AuctionRow, []model.AuctionItemRow, []model.AuctionBidderRow, error) {
	return nil, nil, nil, nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(tx repo.AuctionTx) error) error {
	if m.failNext {
		m.failNext = false
		return errors.New("commit refused")
	}
	staged := &memTx{}
	if err := fn(staged); err != nil {
		return err
	}
	// 提交：暂存操作落到 repo
	m.inserted = append(m.inserted, staged.inserted...)
	m.deleted = append(m.deleted, staged.deleted...)
	for id, amount := range staged.bids {
		m.bids[id] = amount
	}
	for k, v := range staged.counts {
		m.counts[k] = v
	}
	return nil
}

type memTx struct {
	inserted []uint64
	deleted  []uint64
	bids     map[uint64]uint64
	counts   map[[2]uint64]uint32
}

func (t *memTx) InsertAuction(row *model.AuctionRow, items []model.AuctionItemRow) error {
	t.inserted = append(t.inserted, row.ID)
	return nil
}

func (t *memTx) DeleteAuction(id uint64) error {
	t.deleted = append(t.deleted, id)
	return nil
}

func (t *memTx) UpdateBid(id uint64, bidder uint64, amount uint64) error {
	if t.bids == nil {
		t.bids = make(map[uint64]uint64)
	}
	t.bids[id] = amount
	return nil
}

func (t *memTx) InsertBidder(id uint64, bidder uint64) error { return nil }

func (t *memTx) UpdateItemCount(auctionID, itemGuid uint64, count uint32) error {
	if t.counts == nil {
		t.counts = make(map[[2]uint64]uint32)
	}
	t.counts[[2]uint64{auctionID, itemGuid}] = count
	return nil
}

func (t *memTx) DeleteItem(auctionID, itemGuid uint64) error { return nil }

// memMail 收集外发邮件
type memMail struct {
	sent []*MailRequest
}

func (m *memMail) Send(req *MailRequest) error {
	m.sent = append(m.sent, req)
	return nil
}

// memTemplates 模板桩
type memTemplates map[uint32]*ItemTemplate

func (m memTemplates) Template(id uint32) *ItemTemplate { return m[id] }

// 常用测试模板
var (
	tmplOre = &ItemTemplate{
		ID: 100, Name: "Copper Ore", Class: ClassTradeGoods,
		Quality: QualityCommon, BaseItemLevel: 10, MaxStack: 200,
	}
	tmplSword = &ItemTemplate{
		ID: 200, Name: "Sharp Sword", Class: ClassWeapon, SubClass: 1,
		InventoryType: 13, Quality: QualityRare, RequiredLevel: 20,
		BaseItemLevel: 35, MaxStack: 1,
	}
	tmplHelm = &ItemTemplate{
		ID: 300, Name: "Iron Helm", Class: ClassArmor, SubClass: 2,
		InventoryType: 1, Quality: QualityUncommon, RequiredLevel: 10,
		BaseItemLevel: 25, MaxStack: 1,
	}
)

func testTemplates() memTemplates {
	return memTemplates{tmplOre.ID: tmplOre, tmplSword.ID: tmplSword, tmplHelm.ID: tmplHelm}
}

type testEnv struct {
	repo   *memRepo
	mail   *memMail
	hooks  *HookList
	ledger *Ledger
	nextID uint64
}

func newTestEnv() *testEnv {
	env := &testEnv{repo: newMemRepo(), mail: &memMail{}, hooks: &HookList{}}
	env.ledger = NewLedger(HouseNeutral, DefaultEconomics(), env.repo, env.mail,
		env.hooks, testTemplates(), func() uint64 {
			env.nextID++
			return env.nextID
		})
	return env
}

// countingObserver 统计各扩展点触发次数
type countingObserver struct {
	added, removed, expired, sold int
}

func (o *countingObserver) OnAuctionAdd(HouseID, *Listing)        { o.added++ }
func (o *countingObserver) OnAuctionRemove(HouseID, *Listing)     { o.removed++ }
func (o *countingObserver) OnAuctionExpire(HouseID, *Listing)     { o.expired++ }
func (o *countingObserver) OnAuctionSuccessful(HouseID, *Listing) { o.sold++ }

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// listOre 挂一摞矿，单价 unitPrice，数量 qty
func (e *testEnv) listOre(seller uint64, qty uint32, unitPrice uint64) *Listing {
	guid := seller*100000 + e.nextID + 1
	l, res := e.ledger.AddListing(context.Background(), &ListParams{
		Seller:            PlayerRef{Guid: seller, Account: uint32(seller)},
		Items:             []*Item{{Guid: guid, Template: tmplOre, Count: qty, ItemLevel: tmplOre.BaseItemLevel}},
		BuyoutOrUnitPrice: unitPrice,
		Duration:          24 * time.Hour,
		Deposit:           Silver,
	}, testEpoch)
	if res != ResultOK {
		panic("listOre failed: " + res.String())
	}
	return l
}

// listSword 挂一把剑（单件，可带一口价）
func (e *testEnv) listSword(seller uint64, minBid, buyout uint64) *Listing {
	l, res := e.ledger.AddListing(context.Background(), &ListParams{
		Seller:            PlayerRef{Guid: seller, Account: uint32(seller)},
		Items:             []*Item{{Guid: seller * 7, Template: tmplSword, Count: 1, ItemLevel: 35}},
		MinBid:            minBid,
		BuyoutOrUnitPrice: buyout,
		Duration:          24 * time.Hour,
		Deposit:           Silver,
	}, testEpoch)
	if res != ResultOK {
		panic("listSword failed: " + res.String())
	}
	return l
}
