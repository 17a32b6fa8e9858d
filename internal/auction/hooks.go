package auction

// Observer 脚本扩展点。按注册顺序逐个同步调用，fire-and-forget：
// 回调不返回错误，也影响不了引擎状态。
type Observer interface {
	OnAuctionAdd(houseID HouseID, l *Listing)
	OnAuctionRemove(houseID HouseID, l *Listing)
	OnAuctionExpire(houseID HouseID, l *Listing)
	OnAuctionSuccessful(houseID HouseID, l *Listing)
}

// HookList 显式有序的观察者列表
type HookList struct {
	observers []Observer
}

func (h *HookList) Register(o Observer) {
	h.observers = append(h.observers, o)
}

func (h *HookList) Added(houseID HouseID, l *Listing) {
	for _, o := range h.observers {
		o.OnAuctionAdd(houseID, l)
	}
}

func (h *HookList) Removed(houseID HouseID, l *Listing) {
	for _, o := range h.observers {
		o.OnAuctionRemove(houseID, l)
	}
}

func (h *HookList) Expired(houseID HouseID, l *Listing) {
	for _, o := range h.observers {
		o.OnAuctionExpire(houseID, l)
	}
}

func (h *HookList) Sold(houseID HouseID, l *Listing) {
	for _, o := range h.observers {
		o.OnAuctionSuccessful(houseID, l)
	}
}
