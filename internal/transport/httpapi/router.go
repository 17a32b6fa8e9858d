package httpapi

import (
	"strconv"

	"auctionex.com/internal/auction"
	"auctionex.com/internal/transport/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes 挂全部路由
func Routes(r *gin.Engine, h *Handler, hub *ws.Hub) {
	api := r.Group("/api/auction/:house")
	{
		api.POST("/list", h.List)
		api.POST("/bid", h.Bid)
		api.POST("/cancel", h.Cancel)
		api.POST("/quote", h.Quote)
		api.DELETE("/quote", h.CancelQuote)
		api.POST("/buy", h.Buy)
		api.POST("/browse", h.Browse)
		api.POST("/bucket", h.BucketListings)
		api.POST("/item", h.ItemListings)
		api.POST("/mine", h.MyListings)
		api.POST("/bids", h.MyBids)
		api.POST("/replicate", h.Replicate)
	}

	r.GET("/ws/:house", func(c *gin.Context) {
		v, err := strconv.ParseUint(c.Param("house"), 10, 8)
		if err != nil {
			c.Status(400)
			return
		}
		hub.ServeWS(c.Writer, c.Request, auction.HouseID(v))
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
}
