package ws

import (
	"testing"

	"auctionex.com/internal/auction"
	"github.com/stretchr/testify/require"
)

func listingFixture(id uint64) *auction.Listing {
	return &auction.Listing{
		ID: id,
		Items: []*auction.Item{{
			Guid: id * 10,
			Template: &auction.ItemTemplate{
				ID: 100, Name: "Copper Ore", Class: auction.ClassTradeGoods, MaxStack: 200,
			},
			Count: 20,
		}},
		BuyoutOrUnitPrice: 7,
	}
}

func TestHubRoutesEventsByHouse(t *testing.T) {
	h := NewHub(8)
	neutral := h.subscribe(auction.HouseNeutral)
	alliance := h.subscribe(auction.HouseAlliance)
	defer h.unsubscribe(auction.HouseAlliance, alliance)

	h.OnAuctionAdd(auction.HouseNeutral, listingFixture(1))
	h.OnAuctionSuccessful(auction.HouseNeutral, listingFixture(2))

	ev := <-neutral.ch
	require.Equal(t, "add", ev.Type)
	require.Equal(t, uint64(1), ev.AuctionID)
	require.Equal(t, uint32(100), ev.ItemID)
	require.Equal(t, uint32(20), ev.Quantity)
	require.Equal(t, uint64(7), ev.Price)

	ev = <-neutral.ch
	require.Equal(t, "sold", ev.Type)

	// 别的行订阅者收不到
	select {
	case ev := <-alliance.ch:
		t.Fatalf("alliance subscriber got %+v", ev)
	default:
	}

	h.unsubscribe(auction.HouseNeutral, neutral)
	// 退订后通道已关闭
	_, open := <-neutral.ch
	require.False(t, open)
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub(2)
	sub := h.subscribe(auction.HouseNeutral)
	defer h.unsubscribe(auction.HouseNeutral, sub)

	for i := 1; i <= 5; i++ {
		h.OnAuctionAdd(auction.HouseNeutral, listingFixture(uint64(i)))
	}

	// 慢客户端只留下前两条，其余丢弃，发布方不阻塞
	require.Len(t, sub.ch, 2)
	ev := <-sub.ch
	require.Equal(t, uint64(1), ev.AuctionID)
	ev = <-sub.ch
	require.Equal(t, uint64(2), ev.AuctionID)
}

func TestHubPublishToHouseWithoutSubscribers(t *testing.T) {
	h := NewHub(2)
	// 没有订阅者也不 panic
	h.OnAuctionRemove(auction.HouseGoblin, listingFixture(1))
	h.OnAuctionExpire(auction.HouseGoblin, listingFixture(2))
}
