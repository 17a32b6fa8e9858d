package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"auctionex.com/internal/auction"
	"auctionex.com/pkg/xerr"
	"github.com/gin-gonic/gin"
)

// Handler 把 HTTP 请求翻译成更新线程上的闭包。
// 网络编码是外部协作者，这里只做参数绑定和结果回写。
type Handler struct {
	eng *auction.Engine
	// collections 可选；不配时"只看未收集"过滤返回空结果
	collections auction.CollectionResolver
}

func NewHandler(eng *auction.Engine, collections auction.CollectionResolver) *Handler {
	return &Handler{eng: eng, collections: collections}
}

type respBody struct {
	Code   string      `json:"code"`
	Result interface{} `json:"result,omitempty"`
	// RetryAfterMs 节流被拒时的建议重试间隔
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

func ok(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, respBody{Code: auction.ResultOK.String(), Result: result})
}

func fail(c *gin.Context, r auction.AuctionResult) {
	c.JSON(http.StatusOK, respBody{Code: r.String()})
}

func throttled(c *gin.Context, retry time.Duration) {
	c.JSON(http.StatusTooManyRequests, respBody{
		Code:         auction.ResultThrottled.String(),
		RetryAfterMs: retry.Milliseconds(),
	})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, xerr.NewErrCode(xerr.RequestParamsError))
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, xerr.NewErrCode(xerr.ServerCommonError))
}

func houseParam(c *gin.Context) (auction.HouseID, bool) {
	v, err := strconv.ParseUint(c.Param("house"), 10, 8)
	if err != nil {
		badRequest(c)
		return 0, false
	}
	return auction.HouseID(v), true
}

type itemPayload struct {
	Guid         uint64   `json:"guid"`
	ItemID       uint32   `json:"item_id"`
	Count        uint32   `json:"count"`
	ItemLevel    uint16   `json:"item_level"`
	SuffixID     uint16   `json:"suffix_id"`
	PetSpeciesID uint16   `json:"pet_species_id"`
	PetLevel     uint8    `json:"pet_level"`
	AppearanceID uint32   `json:"appearance_id"`
	BonusListIDs []uint32 `json:"bonus_list_ids"`
}

type listReq struct {
	Seller  uint64 `json:"seller" binding:"required"`
	Account uint32 `json:"account"`
	Funds   uint64 `json:"funds"`
	// Listings 一批挂单，押金整批校验，一条不够全批拒绝
	Listings []struct {
		Items             []itemPayload `json:"items" binding:"required"`
		MinBid            uint64        `json:"min_bid"`
		BuyoutOrUnitPrice uint64        `json:"buyout_or_unit_price"`
		DurationHours     int           `json:"duration_hours" binding:"required"`
	} `json:"listings" binding:"required"`
}

type sellResult struct {
	AuctionIDs   []uint64 `json:"auction_ids"`
	TotalDeposit uint64   `json:"total_deposit"`
}

// List 挂单（支持一批多条）。流程：逐条算押金并预留，
// 整批校验可负担性，通过后逐条入账。
func (h *Handler) List(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req listReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	templates := h.eng.Registry().Templates()
	type outcome struct {
		result  auction.AuctionResult
		ids     []uint64
		deposit uint64
	}
	out, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) outcome {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return outcome{result: auction.ResultItemNotFound}
		}
		now := time.Now()

		// 先整批预留押金
		type prepared struct {
			params  *auction.ListParams
			deposit uint64
		}
		batch := make([]prepared, 0, len(req.Listings))
		for _, lr := range req.Listings {
			items := make([]*auction.Item, 0, len(lr.Items))
			var qty uint32
			for _, ip := range lr.Items {
				tmpl := templates.Template(ip.ItemID)
				if tmpl == nil {
					return outcome{result: auction.ResultItemNotFound}
				}
				items = append(items, &auction.Item{
					Guid:         ip.Guid,
					Template:     tmpl,
					Count:        ip.Count,
					ItemLevel:    ip.ItemLevel,
					SuffixID:     ip.SuffixID,
					PetSpeciesID: ip.PetSpeciesID,
					PetLevel:     ip.PetLevel,
					AppearanceID: ip.AppearanceID,
					BonusListIDs: ip.BonusListIDs,
				})
				qty += ip.Count
			}
			duration := time.Duration(lr.DurationHours) * time.Hour
			unitOrBuyout := lr.BuyoutOrUnitPrice
			deposit := r.Deposit(unitOrBuyout, qty, duration)
			r.ReserveDeposit(req.Seller, deposit, now)
			batch = append(batch, prepared{
				params: &auction.ListParams{
					Seller:            auction.PlayerRef{Guid: req.Seller, Account: req.Account},
					Items:             items,
					MinBid:            lr.MinBid,
					BuyoutOrUnitPrice: unitOrBuyout,
					Duration:          duration,
					Deposit:           deposit,
				},
				deposit: deposit,
			})
		}

		if _, affordable := r.CommitDeposits(req.Seller, req.Funds); !affordable {
			return outcome{result: auction.ResultNotEnoughMoney}
		}

		// 中途失败不回滚已入账的：把落地的 id 和押金一并带回，
		// 调用方按这份清单结算，失败码只覆盖没落地的部分
		ids := make([]uint64, 0, len(batch))
		var landed uint64
		for _, p := range batch {
			listing, res := ledger.AddListing(c.Request.Context(), p.params, now)
			if res != auction.ResultOK {
				return outcome{result: res, ids: ids, deposit: landed}
			}
			ids = append(ids, listing.ID)
			landed += p.deposit
		}
		return outcome{result: auction.ResultOK, ids: ids, deposit: landed}
	})
	if err != nil {
		unavailable(c)
		return
	}
	if out.result != auction.ResultOK {
		if len(out.ids) > 0 {
			c.JSON(http.StatusOK, respBody{
				Code:   out.result.String(),
				Result: sellResult{AuctionIDs: out.ids, TotalDeposit: out.deposit},
			})
			return
		}
		fail(c, out.result)
		return
	}
	ok(c, sellResult{AuctionIDs: out.ids, TotalDeposit: out.deposit})
}

type bidReq struct {
	Bidder    uint64 `json:"bidder" binding:"required"`
	Funds     uint64 `json:"funds"`
	AuctionID uint64 `json:"auction_id" binding:"required"`
	Amount    uint64 `json:"amount" binding:"required"`
}

// Bid 出价/一口价
func (h *Handler) Bid(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req bidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.AuctionResult {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.ResultItemNotFound
		}
		return ledger.PlaceBid(c.Request.Context(), auction.PlayerRef{Guid: req.Bidder}, req.Funds, req.AuctionID, req.Amount)
	})
	if err != nil {
		unavailable(c)
		return
	}
	if res != auction.ResultOK {
		fail(c, res)
		return
	}
	ok(c, nil)
}

type cancelReq struct {
	Owner     uint64 `json:"owner" binding:"required"`
	AuctionID uint64 `json:"auction_id" binding:"required"`
}

// Cancel 撤单
func (h *Handler) Cancel(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) auction.AuctionResult {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return auction.ResultItemNotFound
		}
		return ledger.CancelListing(c.Request.Context(), auction.PlayerRef{Guid: req.Owner}, req.AuctionID)
	})
	if err != nil {
		unavailable(c)
		return
	}
	if res != auction.ResultOK {
		fail(c, res)
		return
	}
	ok(c, nil)
}

type quoteReq struct {
	Buyer    uint64 `json:"buyer" binding:"required"`
	ItemID   uint32 `json:"item_id" binding:"required"`
	Quantity uint32 `json:"quantity" binding:"required"`
}

type quoteResult struct {
	Token      string `json:"token"`
	TotalPrice uint64 `json:"total_price"`
	ExpiresInS int64  `json:"expires_in_s"`
}

// Quote 商品询价
func (h *Handler) Quote(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	type out struct {
		q   *auction.CommodityQuote
		res auction.AuctionResult
	}
	o, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) out {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return out{res: auction.ResultItemNotFound}
		}
		q, res := ledger.QuoteCommodity(auction.PlayerRef{Guid: req.Buyer}, req.ItemID, req.Quantity, time.Now())
		return out{q: q, res: res}
	})
	if err != nil {
		unavailable(c)
		return
	}
	if o.res != auction.ResultOK {
		fail(c, o.res)
		return
	}
	ok(c, quoteResult{
		Token:      o.q.Token.String(),
		TotalPrice: o.q.TotalPrice,
		ExpiresInS: int64(time.Until(o.q.Expiry).Seconds()),
	})
}

// CancelQuote 放弃询价
func (h *Handler) CancelQuote(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	buyer, err := strconv.ParseUint(c.Query("buyer"), 10, 64)
	if err != nil {
		badRequest(c)
		return
	}
	_ = h.eng.Submit(c.Request.Context(), func(r *auction.Registry) {
		if ledger := r.Ledger(houseID); ledger != nil {
			ledger.CancelQuote(auction.PlayerRef{Guid: buyer})
		}
	})
	ok(c, nil)
}

type buyReq struct {
	Buyer    uint64 `json:"buyer" binding:"required"`
	Funds    uint64 `json:"funds"`
	ItemID   uint32 `json:"item_id" binding:"required"`
	Quantity uint32 `json:"quantity" binding:"required"`
}

// Buy 商品买断（需先询价）
func (h *Handler) Buy(c *gin.Context) {
	houseID, okh := houseParam(c)
	if !okh {
		return
	}
	var req buyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	type out struct {
		total uint64
		res   auction.AuctionResult
	}
	o, err := auction.Call(c.Request.Context(), h.eng, func(r *auction.Registry) out {
		ledger := r.Ledger(houseID)
		if ledger == nil {
			return out{res: auction.ResultItemNotFound}
		}
		total, res := ledger.BuyCommodity(c.Request.Context(),
			auction.PlayerRef{Guid: req.Buyer}, req.Funds, req.ItemID, req.Quantity, time.Now())
		return out{total: total, res: res}
	})
	if err != nil {
		unavailable(c)
		return
	}
	if o.res != auction.ResultOK {
		fail(c, o.res)
		return
	}
	ok(c, gin.H{"total_price": o.total})
}
