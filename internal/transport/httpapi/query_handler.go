package httpapi

import (
	"time"

	"auctionex.com/internal/auction"
	"github.com/gin-gonic/gin"
)

type sortPayload struct {
	Column uint8 `json:"column"`
	Desc   bool  `json:"desc"`
}

func toSorts(in []sortPayload) []auction.SortSpec {
	out := make([]auction.SortSpec, 0, len(in))
	for _, s := range in {
		out = append(out, auction.SortSpec{Column: auction.SortColumn(s.Column), Desc: s.Desc})
	}
	return out
}

type browseReq struct {
	Player    uint64 `json:"player" binding:"required"`
	Automated bool   `json:"automated"`

	Name        string `json:"name"`
	ExactMatch  bool   `json:"exact_match"`
	MinLevel    uint8  `json:"min_level"`
	MaxLevel    uint8  `json:"max_level"`
	QualityMask uint32 `json:"quality_mask"`
	Class       *struct {
		Class         int16 `json:"class"`
		SubClass      int16 `json:"sub_class"`
		InventoryType int16 `json:"inventory_type"`
	} `json:"class_filter"`
	UncollectedOnly bool `json:"uncollected_only"`

	Sorts  []sortPayload `json:"sorts"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

type bucketView struct {
	ItemID        uint32 `json:"item_id"`
	ItemLevel     uint16 `json:"item_level"`
	PetSpeciesID  uint16 `json:"pet_species_id,omitempty"`
	SuffixID      uint16 `json:"suffix_id,omitempty"`
	Name          string `json:"name"`
	MinPrice      uint64 `json:"min_price"`
	QualityMask   uint32 `json:"quality_mask"`
	RequiredLevel uint8  `json:"required_level"`
	Listings      int    `json:"listings"`
}

type listingView struct {
	AuctionID uint64 `json:"auction_id"`
	ItemID    uint32 `json:"item_id"`
	Quantity  uint32 `json:"quantity"`
	MinBid    uint64 `json:"min_bid"`
	BidAmount uint64 `json:"bid_amount"`
	Buyout    uint64 `json:"buyout_or_unit_price"`
	EndsInS   int64  `json:"ends_in_s"`
	Seller    uint64 `json:"seller"`
	Bidder    uint64 `json:"bidder,omitempty"`
}

type pageView[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

func bucketViews(in []*auction.Bucket) []bucketView {
	out := make([]bucketView, 0, len(in))
	for _, b := range in {
		out = append(out, bucketView{
			ItemID:        b.Key.ItemID,
			ItemLevel:     b.Key.ItemLevel,
			PetSpeciesID:  b.Key.PetSpeciesID,
			SuffixID:      b.Key.SuffixID,
			Name:          b.Name,
			MinPrice:      b.MinPrice,
			QualityMask:   b.QualityMask,
			RequiredLevel: b.RequiredLevel,
			Listings:      b.ListingCount(),
		})
	}
	return out
}

func listingViews(in []*auction.Listing, now time.Time) []listingView {
	out := make([]listingView, 0, len(in))
	for _, l := range in {
		v := listingView{
			AuctionID: l.ID,
			Quantity:  l.TotalCount(),
			MinBid:    l.MinBid,
			BidAmount: l.BidAmount,
			Buyout:    l.BuyoutOrUnitPrice,
			EndsInS:   int64(l.EndTime.Sub(now).Seconds()),
			Seller:    l.Seller.Guid,
			Bidder:    l.Bidder,
		}
		if t := l.Template(); t != nil {
			v.ItemID = t.ID
		}
		out = append(out, v)
	}
	return out
}

// pageWindow 缺省一页 50 条，客户端传 0 不至于拿到空页
func pageWindow(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// throttleGate 查询类入口统一过节流
func (h *Handler) throttleGate(c *gin.Context, player uint64, automated bool) bool {
	type gate struct {
		allowed bool
		retry   time.Duration
	}
	g, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) gate {
		allowed, retry := r.ThrottleQuery(player, automated)
		return gate{allowed: allowed, retry: retry}
	})
	if err != nil {
		unavailable(c)
		return false
	}
	if !g.allowed {
		throttled(c, g.retry)
		return false
	}
	return true
}

// Browse 全局浏览桶
func (h *Handler) Browse(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req browseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if !h.throttleGate(c, req.Player, req.Automated) {
		return
	}
	offset, limit := pageWindow(req.Offset, req.Limit)

	filter := &auction.BrowseFilter{
		Name:        req.Name,
		ExactMatch:  req.ExactMatch,
		MinLevel:    req.MinLevel,
		MaxLevel:    req.MaxLevel,
		QualityMask: req.QualityMask,
	}
	if req.Class != nil {
		filter.Classes = &auction.ClassFilter{
			Class:         req.Class.Class,
			SubClass:      req.Class.SubClass,
			InventoryType: req.Class.InventoryType,
		}
	}
	if req.UncollectedOnly {
		filter.UncollectedOnly = true
		if h.collections != nil {
			filter.Collection = h.collections.CollectionFor(req.Player)
		}
	}
	page, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.Page[*auction.Bucket] {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.Page[*auction.Bucket]{}
		}
		return ledger.BrowseBuckets(filter, toSorts(req.Sorts), offset, limit)
	})
	if err != nil {
		unavailable(c)
		return
	}
	ok(c, pageView[bucketView]{Items: bucketViews(page.Items), HasMore: page.HasMore})
}

type bucketListReq struct {
	Player    uint64 `json:"player" binding:"required"`
	Automated bool   `json:"automated"`

	ItemID       uint32 `json:"item_id" binding:"required"`
	ItemLevel    uint16 `json:"item_level"`
	PetSpeciesID uint16 `json:"pet_species_id"`
	SuffixID     uint16 `json:"suffix_id"`

	Sorts  []sortPayload `json:"sorts"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// BucketListings 一个桶内的挂单
func (h *Handler) BucketListings(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req bucketListReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if !h.throttleGate(c, req.Player, req.Automated) {
		return
	}
	offset, limit := pageWindow(req.Offset, req.Limit)
	key := auction.BucketKey{
		ItemID:       req.ItemID,
		ItemLevel:    req.ItemLevel,
		PetSpeciesID: req.PetSpeciesID,
		SuffixID:     req.SuffixID,
	}
	page, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.Page[*auction.Listing] {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.Page[*auction.Listing]{}
		}
		return ledger.ListingsByBucket(key, toSorts(req.Sorts), offset, limit)
	})
	if err != nil {
		unavailable(c)
		return
	}
	ok(c, pageView[listingView]{Items: listingViews(page.Items, time.Now()), HasMore: page.HasMore})
}

// ItemListings 按物品 ID 列挂单
func (h *Handler) ItemListings(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req bucketListReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if !h.throttleGate(c, req.Player, req.Automated) {
		return
	}
	offset, limit := pageWindow(req.Offset, req.Limit)
	page, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.Page[*auction.Listing] {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.Page[*auction.Listing]{}
		}
		return ledger.ListingsByItemID(req.ItemID, toSorts(req.Sorts), offset, limit)
	})
	if err != nil {
		unavailable(c)
		return
	}
	ok(c, pageView[listingView]{Items: listingViews(page.Items, time.Now()), HasMore: page.HasMore})
}

type ownReq struct {
	Player    uint64        `json:"player" binding:"required"`
	Automated bool          `json:"automated"`
	Sorts     []sortPayload `json:"sorts"`
	Offset    int           `json:"offset"`
	Limit     int           `json:"limit"`
}

// MyListings 玩家自己的挂单
func (h *Handler) MyListings(c *gin.Context) {
	h.ownerOrBidder(c, true)
}

// MyBids 玩家出过价的挂单
func (h *Handler) MyBids(c *gin.Context) {
	h.ownerOrBidder(c, false)
}

func (h *Handler) ownerOrBidder(c *gin.Context, owner bool) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req ownReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if !h.throttleGate(c, req.Player, req.Automated) {
		return
	}
	offset, limit := pageWindow(req.Offset, req.Limit)
	page, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.Page[*auction.Listing] {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.Page[*auction.Listing]{}
		}
		if owner {
			return ledger.ListingsByOwner(req.Player, toSorts(req.Sorts), offset, limit)
		}
		return ledger.ListingsByBidder(req.Player, toSorts(req.Sorts), offset, limit)
	})
	if err != nil {
		unavailable(c)
		return
	}
	ok(c, pageView[listingView]{Items: listingViews(page.Items, time.Now()), HasMore: page.HasMore})
}

type replicateReq struct {
	Player    uint64 `json:"player" binding:"required"`
	Global    uint64 `json:"global"`
	Cursor    uint64 `json:"cursor"`
	Tombstone uint64 `json:"tombstone"`
	Count     int    `json:"count"`
}

type replicateView struct {
	Global    uint64        `json:"global"`
	Cursor    uint64        `json:"cursor"`
	Tombstone uint64        `json:"tombstone"`
	Listings  []listingView `json:"listings"`
}

// Replicate 增量全量重同步
func (h *Handler) Replicate(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req replicateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	type out struct {
		page  *auction.ReplicationPage
		retry time.Duration
	}
	o, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) out {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return out{}
		}
		page, retry := ledger.Replicate(req.Player, req.Global, req.Cursor, req.Tombstone, req.Count, time.Now())
		return out{page: page, retry: retry}
	})
	if err != nil {
		unavailable(c)
		return
	}
	if o.page == nil {
		throttled(c, o.retry)
		return
	}
	ok(c, replicateView{
		Global:    o.page.Global,
		Cursor:    o.page.Cursor,
		Tombstone: o.page.Tombstone,
		Listings:  listingViews(o.page.Listings, time.Now()),
	})
}
