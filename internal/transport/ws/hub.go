package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"auctionex.com/internal/auction"
	"auctionex.com/pkg/logger"
	"auctionex.com/pkg/safe"
	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

// ListingEvent 镜像给客户端的挂单变更事件
type ListingEvent struct {
	Type      string `json:"type"` // add/remove/expire/sold
	HouseID   uint8  `json:"house_id"`
	AuctionID uint64 `json:"auction_id"`
	ItemID    uint32 `json:"item_id"`
	Quantity  uint32 `json:"quantity"`
	Price     uint64 `json:"price"`
}

type subscriber struct {
	ch chan ListingEvent
}

// Hub 按行号分主题广播。作为 Observer 挂在 Registry 的扩展点上，
// 慢客户端直接丢事件，不能拖住更新线程。
type Hub struct {
	mu    sync.RWMutex
	subs  map[auction.HouseID]map[*subscriber]struct{}
	qsize int
}

func NewHub(perSubQueue int) *Hub {
	if perSubQueue <= 0 {
		perSubQueue = 64
	}
	return &Hub{
		subs:  make(map[auction.HouseID]map[*subscriber]struct{}),
		qsize: perSubQueue,
	}
}

func (h *Hub) subscribe(house auction.HouseID) *subscriber {
	s := &subscriber{ch: make(chan ListingEvent, h.qsize)}
	h.mu.Lock()
	m := h.subs[house]
	if m == nil {
		m = make(map[*subscriber]struct{})
		h.subs[house] = m
	}
	m[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(house auction.HouseID, s *subscriber) {
	h.mu.Lock()
	if m := h.subs[house]; m != nil {
		delete(m, s)
		if len(m) == 0 {
			delete(h.subs, house)
		}
	}
	// close 必须在锁内，publish 的发送也在锁内，避免向已关闭通道发送
	close(s.ch)
	h.mu.Unlock()
}

func (h *Hub) publish(house auction.HouseID, ev ListingEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[house] {
		select {
		case s.ch <- ev:
		default:
			// drop
		}
	}
}

func eventOf(kind string, houseID auction.HouseID, l *auction.Listing) ListingEvent {
	ev := ListingEvent{
		Type:      kind,
		HouseID:   uint8(houseID),
		AuctionID: l.ID,
		Quantity:  l.TotalCount(),
		Price:     l.DisplayPrice(),
	}
	if t := l.Template(); t != nil {
		ev.ItemID = t.ID
	}
	return ev
}

// Observer 扩展点实现

func (h *Hub) OnAuctionAdd(houseID auction.HouseID, l *auction.Listing) {
	h.publish(houseID, eventOf("add", houseID, l))
}

func (h *Hub) OnAuctionRemove(houseID auction.HouseID, l *auction.Listing) {
	h.publish(houseID, eventOf("remove", houseID, l))
}

func (h *Hub) OnAuctionExpire(houseID auction.HouseID, l *auction.Listing) {
	h.publish(houseID, eventOf("expire", houseID, l))
}

func (h *Hub) OnAuctionSuccessful(houseID auction.HouseID, l *auction.Listing) {
	h.publish(houseID, eventOf("sold", houseID, l))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS 升级连接并开始推送某个行的事件流
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, house auction.HouseID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(r.Context(), "ws upgrade failed", zap.Error(err))
		return
	}

	sub := h.subscribe(house)
	ctx := r.Context()

	// 读协程只负责发现断连
	safe.Go(func() {
		defer h.unsubscribe(house, sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	safe.GoCtx(ctx, func(ctx context.Context) {
		defer conn.Close()
		for ev := range sub.ch {
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	})
}
