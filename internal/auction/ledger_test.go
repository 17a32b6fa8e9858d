package auction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddListingPersistBeforeMemory(t *testing.T) {
	env := newTestEnv()
	env.repo.failNext = true

	_, res := env.ledger.AddListing(context.Background(), &ListParams{
		Seller:   PlayerRef{Guid: 2},
		Items:    []*Item{{Guid: 1, Template: tmplSword, Count: 1, ItemLevel: 35}},
		MinBid:   100,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultDatabaseError, res)

	// 落库失败内存不动
	require.Empty(t, env.ledger.byID)
	require.Empty(t, env.ledger.buckets)

	l, res := env.ledger.AddListing(context.Background(), &ListParams{
		Seller:   PlayerRef{Guid: 2},
		Items:    []*Item{{Guid: 1, Template: tmplSword, Count: 1, ItemLevel: 35}},
		MinBid:   100,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)
	require.Contains(t, env.repo.inserted, l.ID)
	require.Contains(t, env.ledger.byID, l.ID)
}

func TestBrowseBucketsFilters(t *testing.T) {
	env := newTestEnv()
	env.listOre(2, 10, 5)
	env.listSword(3, 100, 500)
	env.listSword(4, 80, 0)
	helm, res := env.ledger.AddListing(context.Background(), &ListParams{
		Seller:   PlayerRef{Guid: 5},
		Items:    []*Item{{Guid: 55, Template: tmplHelm, Count: 1, ItemLevel: 25}},
		MinBid:   50,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)

	all := env.ledger.BrowseBuckets(nil, nil, 0, 50)
	require.Len(t, all.Items, 3)
	require.False(t, all.HasMore)

	// 名称子串，大小写不敏感
	page := env.ledger.BrowseBuckets(&BrowseFilter{Name: "sword"}, nil, 0, 50)
	require.Len(t, page.Items, 1)
	require.Equal(t, tmplSword.ID, page.Items[0].Key.ItemID)

	// 精确匹配
	page = env.ledger.BrowseBuckets(&BrowseFilter{Name: "sword", ExactMatch: true}, nil, 0, 50)
	require.Empty(t, page.Items)
	page = env.ledger.BrowseBuckets(&BrowseFilter{Name: "sharp sword", ExactMatch: true}, nil, 0, 50)
	require.Len(t, page.Items, 1)

	// 需求等级区间
	page = env.ledger.BrowseBuckets(&BrowseFilter{MinLevel: 15}, nil, 0, 50)
	require.Len(t, page.Items, 1)
	require.Equal(t, tmplSword.ID, page.Items[0].Key.ItemID)

	// 品质掩码
	page = env.ledger.BrowseBuckets(&BrowseFilter{QualityMask: 1 << QualityUncommon}, nil, 0, 50)
	require.Len(t, page.Items, 1)
	require.Equal(t, helm.Template().ID, page.Items[0].Key.ItemID)

	// 类过滤
	page = env.ledger.BrowseBuckets(&BrowseFilter{
		Classes: &ClassFilter{Class: int16(ClassWeapon), SubClass: -1, InventoryType: -1},
	}, nil, 0, 50)
	require.Len(t, page.Items, 1)
}

type fakeCollection map[uint32]bool

func (c fakeCollection) OwnsAppearance(id uint32) bool { return c[id] }

func TestBrowseBucketsUncollectedOnly(t *testing.T) {
	env := newTestEnv()
	_, res := env.ledger.AddListing(context.Background(), &ListParams{
		Seller:   PlayerRef{Guid: 2},
		Items:    []*Item{{Guid: 1, Template: tmplSword, Count: 1, ItemLevel: 35, AppearanceID: 501}},
		MinBid:   100,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)
	_, res = env.ledger.AddListing(context.Background(), &ListParams{
		Seller:   PlayerRef{Guid: 3},
		Items:    []*Item{{Guid: 2, Template: tmplHelm, Count: 1, ItemLevel: 25, AppearanceID: 502}},
		MinBid:   50,
		Duration: 24 * time.Hour,
	}, testEpoch)
	require.Equal(t, ResultOK, res)

	// 501 已收集：只剩头盔桶
	page := env.ledger.BrowseBuckets(&BrowseFilter{
		UncollectedOnly: true,
		Collection:      fakeCollection{501: true},
	}, nil, 0, 50)
	require.Len(t, page.Items, 1)
	require.Equal(t, tmplHelm.ID, page.Items[0].Key.ItemID)

	// 没有收藏状态时过滤不放行
	page = env.ledger.BrowseBuckets(&BrowseFilter{UncollectedOnly: true}, nil, 0, 50)
	require.Empty(t, page.Items)
}

func TestBrowseBucketsPriceSort(t *testing.T) {
	env := newTestEnv()
	env.listOre(2, 5, 40)
	env.listSword(3, 0, 7)
	env.listSword(4, 0, 3) // 同桶里更便宜的一口价

	asc := env.ledger.BrowseBuckets(nil, []SortSpec{{Column: SortByPrice}}, 0, 50)
	require.Len(t, asc.Items, 2)
	require.Equal(t, uint64(3), asc.Items[0].MinPrice)
	require.Equal(t, uint64(40), asc.Items[1].MinPrice)

	desc := env.ledger.BrowseBuckets(nil, []SortSpec{{Column: SortByPrice, Desc: true}}, 0, 50)
	require.Equal(t, uint64(40), desc.Items[0].MinPrice)
}

func TestListingsByBucketOrderAndPaging(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 30; i++ {
		env.listOre(uint64(2+i), 1, uint64(100-i))
	}
	key := KeyForCommodity(tmplOre)

	page := env.ledger.ListingsByBucket(key, []SortSpec{{Column: SortByPrice}}, 10, 10)
	require.Len(t, page.Items, 10)
	require.True(t, page.HasMore)
	// 第 11~20 便宜的：单价 81..90
	require.Equal(t, uint64(81), page.Items[0].DisplayPrice())
	require.Equal(t, uint64(90), page.Items[9].DisplayPrice())

	tail := env.ledger.ListingsByBucket(key, []SortSpec{{Column: SortByPrice}}, 20, 10)
	require.Len(t, tail.Items, 10)
	require.False(t, tail.HasMore)
}

func TestListingsByOwnerAndBidder(t *testing.T) {
	env := newTestEnv()
	s1 := env.listSword(2, 100, 0)
	env.listSword(3, 100, 0)
	env.listOre(2, 5, 10)

	mine := env.ledger.ListingsByOwner(2, nil, 0, 50)
	require.Len(t, mine.Items, 2)

	require.Equal(t, ResultOK, env.ledger.PlaceBid(context.Background(), PlayerRef{Guid: 9}, 1000, s1.ID, 100))
	bids := env.ledger.ListingsByBidder(9, nil, 0, 50)
	require.Len(t, bids.Items, 1)
	require.Equal(t, s1.ID, bids.Items[0].ID)
}

func TestUpdateResolvesExpired(t *testing.T) {
	env := newTestEnv()
	sword := env.listSword(2, 100, 0)
	ore := env.listOre(3, 5, 10)
	env.mail.sent = nil

	// tick 窗口覆盖到期时刻：流拍物品退回，押金没收
	now := sword.EndTime.Add(-time.Minute)
	require.NoError(t, env.ledger.Update(context.Background(), now, 2*time.Minute))

	require.Empty(t, env.ledger.byID)
	require.ElementsMatch(t, []uint64{sword.ID, ore.ID}, env.repo.deleted)
	require.Len(t, env.mail.sent, 2)
	for _, m := range env.mail.sent {
		require.Zero(t, m.Money)
		require.NotEmpty(t, m.Items)
	}
}

func TestUpdateResolvesSold(t *testing.T) {
	env := newTestEnv()
	sword := env.listSword(2, 100, 0)
	require.Equal(t, ResultOK, env.ledger.PlaceBid(context.Background(), PlayerRef{Guid: 9}, 1000, sword.ID, 200))
	env.mail.sent = nil

	require.NoError(t, env.ledger.Update(context.Background(), sword.EndTime, time.Minute))

	var win, sold *MailRequest
	for _, m := range env.mail.sent {
		switch m.Receiver.Guid {
		case 9:
			win = m
		case 2:
			sold = m
		}
	}
	require.NotNil(t, win)
	require.Len(t, win.Items, 1)
	// 200 - 5% 抽成 + 押金
	require.NotNil(t, sold)
	require.Equal(t, uint64(200-10)+Silver, sold.Money)
}

func TestUpdateCommitFailureLeavesTickIntact(t *testing.T) {
	env := newTestEnv()
	sword := env.listSword(2, 100, 0)
	env.mail.sent = nil

	env.repo.failNext = true
	err := env.ledger.Update(context.Background(), sword.EndTime, time.Minute)
	require.Error(t, err)

	// 提交失败整个 tick 不生效，下个 tick 重试
	require.Contains(t, env.ledger.byID, sword.ID)
	require.Empty(t, env.mail.sent)

	require.NoError(t, env.ledger.Update(context.Background(), sword.EndTime, time.Minute))
	require.NotContains(t, env.ledger.byID, sword.ID)
	require.Len(t, env.mail.sent, 1)
}

func TestSendMailDestroysWhenReceiverEmpty(t *testing.T) {
	env := newTestEnv()
	env.ledger.sendMail(&MailRequest{
		HouseID: HouseNeutral,
		Subject: "100:0:4",
		Items:   []*Item{{Guid: 1, Template: tmplOre, Count: 5}},
	})
	require.Empty(t, env.mail.sent)
}
