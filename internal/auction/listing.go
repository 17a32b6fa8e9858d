package auction

import "time"

// ListingState 挂单状态机：
// Active -> Sold（结算时有出价人）
// Active -> Expired（无人出价到期）
// Active -> BoughtOut（一口价/商品买断）
// Active -> Cancelled（卖家撤单）
// 商品挂单在清零前可以多次被部分消耗，期间仍是 Active。
type ListingState uint8

const (
	StateActive ListingState = iota
	StateSold
	StateExpired
	StateBoughtOut
	StateCancelled
)

// ListingFlags 服务端标志位
type ListingFlags uint8

const (
	// FlagGMListing GM 代挂，不收押金不抽成
	FlagGMListing ListingFlags = 1 << iota
)

// Listing 一条卖单：单件物品或同质堆叠，外加出价状态。
// 同一时刻恰好挂在一个桶下（反向引用，不拥有桶）。
type Listing struct {
	ID uint64

	Seller PlayerRef
	// Bidder 当前最高出价人，0 表示无人出价
	Bidder uint64
	// BidderHistory 出过价的所有玩家，去重，用于结算后清理索引
	BidderHistory map[uint64]struct{}

	// Items 同质物品。len>1 或模板可堆叠 => 商品挂单，按单价计价；
	// 否则按整单计价。
	Items []*Item

	MinBid uint64
	// BidAmount 当前出价，0 表示还没人出过
	BidAmount uint64
	// BuyoutOrUnitPrice 一口价（整单）或单价（商品），0 表示不可买断
	BuyoutOrUnitPrice uint64
	// Deposit 卖家已付押金，结算成功退回
	Deposit uint64

	StartTime time.Time
	EndTime   time.Time
	Flags     ListingFlags

	// Bucket 所属桶的反向引用
	Bucket *Bucket
}

// IsCommodity 商品挂单按单价计价、可部分买断
func (l *Listing) IsCommodity() bool {
	if len(l.Items) > 1 {
		return true
	}
	return len(l.Items) == 1 && l.Items[0].Template.Stackable()
}

// TotalCount 剩余总件数
func (l *Listing) TotalCount() uint32 {
	var n uint32
	for _, it := range l.Items {
		n += it.Count
	}
	return n
}

// Template 挂单物品的模板（同质，取第一件）
func (l *Listing) Template() *ItemTemplate {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[0].Template
}

// DisplayPrice 展示价：商品用单价；单件用一口价，没有一口价用当前出价，
// 还没人出价就用起拍价。桶的最低价聚合也按这个口径。
func (l *Listing) DisplayPrice() uint64 {
	if l.IsCommodity() {
		return l.BuyoutOrUnitPrice
	}
	if l.BuyoutOrUnitPrice > 0 {
		return l.BuyoutOrUnitPrice
	}
	if l.BidAmount > 0 {
		return l.BidAmount
	}
	return l.MinBid
}

// MinBidIncrement 下一口的最小加价。还没人出价时为 0（直接出起拍价即可）。
func (l *Listing) MinBidIncrement() uint64 {
	if l.BidAmount == 0 {
		return 0
	}
	inc := l.BidAmount * MinBidRaisePct / 100
	if inc == 0 {
		inc = 1
	}
	return inc
}

// RecordBid 登记一次有效出价
func (l *Listing) RecordBid(bidder uint64, amount uint64) {
	l.Bidder = bidder
	l.BidAmount = amount
	if l.BidderHistory == nil {
		l.BidderHistory = make(map[uint64]struct{}, 4)
	}
	l.BidderHistory[bidder] = struct{}{}
}

// ResolveState 结算时刻的终态：有出价人成交，否则流拍
func (l *Listing) ResolveState() ListingState {
	if l.Bidder != 0 {
		return StateSold
	}
	return StateExpired
}
