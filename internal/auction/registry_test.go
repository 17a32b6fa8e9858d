package auction

import (
	"context"
	"testing"
	"time"

	"auctionex.com/internal/auction/repo/model"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(repo *memRepo, mail *memMail) *Registry {
	return NewRegistry(HouseConf{
		QueryPerMinute:        2,
		QueryMinDelayMs:       1,
		BotQueryPerMinute:     1000,
		BotQueryMinDelayMs:    1,
		PendingDepositSeconds: 30,
	}, repo, mail, testTemplates())
}

func TestRegistryFactionRouting(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})

	require.Equal(t, HouseAlliance, reg.LedgerForFaction(FactionAlliance).HouseID())
	require.Equal(t, HouseHorde, reg.LedgerForFaction(FactionHorde).HouseID())
	require.Equal(t, HouseNeutral, reg.LedgerForFaction(FactionNeutral).HouseID())
	require.Nil(t, reg.Ledger(HouseID(99)))
	require.NotNil(t, reg.Ledger(HouseGoblin))
}

func TestRegistryCutRateFromConfig(t *testing.T) {
	reg := NewRegistry(HouseConf{CutRatePct: 10, GoblinCutRatePct: 20},
		newMemRepo(), &memMail{}, testTemplates())

	require.Equal(t, uint64(100), reg.Cut(HouseNeutral, 1000))
	require.Equal(t, uint64(200), reg.Cut(HouseGoblin, 1000))
}

func TestRegistrySharedIDAllocator(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})
	ctx := context.Background()

	a, res := reg.Ledger(HouseAlliance).AddListing(ctx, &ListParams{
		Seller:   PlayerRef{Guid: 2},
		Items:    []*Item{{Guid: 1, Template: tmplSword, Count: 1, ItemLevel: 35}},
		MinBid:   100,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)
	b, res := reg.Ledger(HouseHorde).AddListing(ctx, &ListParams{
		Seller:   PlayerRef{Guid: 3},
		Items:    []*Item{{Guid: 2, Template: tmplSword, Count: 1, ItemLevel: 35}},
		MinBid:   100,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)

	// 跨行共用一个分配器，id 全局唯一
	require.NotEqual(t, a.ID, b.ID)
}

func TestPendingDepositsAllOrNothing(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})

	reg.ReserveDeposit(9, 300, testEpoch)
	reg.ReserveDeposit(9, 300, testEpoch)
	require.Equal(t, uint64(600), reg.PendingDepositTotal(9))

	// 资金不足：一条都不收，预留原样保留
	_, ok := reg.CommitDeposits(9, 500)
	require.False(t, ok)
	require.Equal(t, uint64(600), reg.PendingDepositTotal(9))

	total, ok := reg.CommitDeposits(9, 600)
	require.True(t, ok)
	require.Equal(t, uint64(600), total)
	require.Zero(t, reg.PendingDepositTotal(9))
}

func TestPendingDepositsExpireOnTick(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})

	reg.ReserveDeposit(9, 300, testEpoch)
	reg.Update(context.Background(), testEpoch.Add(time.Minute))
	require.Zero(t, reg.PendingDepositTotal(9))
}

func TestThrottleQuerySeparatesBotQuota(t *testing.T) {
	reg := newTestRegistry(newMemRepo(), &memMail{})

	ok, _ := reg.ThrottleQuery(9, false)
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond) // 跨过最小间隔
	ok, _ = reg.ThrottleQuery(9, false)
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond)
	// 普通配额用完
	ok, retry := reg.ThrottleQuery(9, false)
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))

	// 自动化客户端走独立配额
	ok, _ = reg.ThrottleQuery(9, true)
	require.True(t, ok)
}

// rowsRepo 重建测试用：LoadAll 返回预置行
type rowsRepo struct {
	*memRepo
	rows    []model.AuctionRow
	items   []model.AuctionItemRow
	bidders []model.AuctionBidderRow
}

func (r *rowsRepo) LoadAll(ctx context.Context) ([]model.AuctionRow, []model.AuctionItemRow, []model.AuctionBidderRow, error) {
	return r.rows, r.items, r.bidders, nil
}

func TestRehydrateRebuildsLedgers(t *testing.T) {
	loaded := &rowsRepo{
		memRepo: newMemRepo(),
		rows: []model.AuctionRow{{
			ID:      41,
			HouseID: uint8(HouseNeutral),
			Owner:   2, OwnerAccount: 2,
			Bidder: 9, BidAmount: 150,
			MinBid:    100,
			Deposit:   Silver,
			StartTime: testEpoch.Unix(),
			EndTime:   testEpoch.Add(24 * time.Hour).Unix(),
		}},
		items: []model.AuctionItemRow{{
			AuctionID: 41, ItemGuid: 7, ItemID: tmplSword.ID,
			Count: 1, ItemLevel: 35, BonusListIDs: "10,20",
		}},
		bidders: []model.AuctionBidderRow{{AuctionID: 41, Bidder: 9}},
	}

	reg := newTestRegistry(newMemRepo(), &memMail{})
	require.NoError(t, reg.Rehydrate(context.Background(), loaded, testTemplates()))

	got, ok := reg.Ledger(HouseNeutral).byID[41]
	require.True(t, ok)
	require.Equal(t, uint64(150), got.BidAmount)
	require.Equal(t, uint64(9), got.Bidder)
	require.Contains(t, reg.Ledger(HouseNeutral).byBidder, uint64(9))
	require.Equal(t, uint32(1), got.TotalCount())
	require.Equal(t, []uint32{10, 20}, got.Items[0].BonusListIDs)
	require.Equal(t, 1, reg.Ledger(HouseNeutral).buckets[KeyForItem(got.Items[0])].ListingCount())

	// id 分配器续在最大 id 之后
	require.Greater(t, reg.allocateID(), uint64(41))
}

func TestRehydrateAllocatorCoversItemGuids(t *testing.T) {
	// 拆摞铸出的物品 guid 可能高过所有拍卖 id，
	// 重启后的水位线要把两个序列都盖住
	loaded := &rowsRepo{
		memRepo: newMemRepo(),
		rows: []model.AuctionRow{{
			ID:      41,
			HouseID: uint8(HouseNeutral),
			Owner:   2,
			Deposit: Silver,
			EndTime: testEpoch.Add(24 * time.Hour).Unix(),
		}},
		items: []model.AuctionItemRow{{
			AuctionID: 41, ItemGuid: 9000, ItemID: tmplOre.ID,
			Count: 5, ItemLevel: 10,
		}},
	}

	reg := newTestRegistry(newMemRepo(), &memMail{})
	require.NoError(t, reg.Rehydrate(context.Background(), loaded, testTemplates()))
	require.Greater(t, reg.allocateID(), uint64(9000))
}

func TestRehydrateSkipsBrokenRows(t *testing.T) {
	loaded := &rowsRepo{
		memRepo: newMemRepo(),
		rows: []model.AuctionRow{
			{ID: 1, HouseID: 99}, // 未知行号
			{ID: 2, HouseID: uint8(HouseNeutral)}, // 物品模板未知
			{ID: 3, HouseID: uint8(HouseNeutral)}, // 没有物品
		},
		items: []model.AuctionItemRow{
			{AuctionID: 1, ItemGuid: 1, ItemID: tmplSword.ID, Count: 1},
			{AuctionID: 2, ItemGuid: 2, ItemID: 9999, Count: 1},
		},
	}

	reg := newTestRegistry(newMemRepo(), &memMail{})
	require.NoError(t, reg.Rehydrate(context.Background(), loaded, testTemplates()))
	for _, ledger := range reg.ledgers {
		require.Empty(t, ledger.byID)
	}
}
