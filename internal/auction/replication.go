package auction

import (
	"sort"
	"time"
)

// 复制协议的节流参数
const (
	// ReplicationWindow 两次复制请求之间的最小间隔
	ReplicationWindow = 5 * time.Second
	// replicationCursorTTL 长期不来的游标逐 tick 淘汰
	replicationCursorTTL = 5 * time.Minute
)

// ReplicationCursor 每个玩家的全量重同步进度：(期号, 游标, 墓碑)。
// 客户端原样带回这三元组才允许继续翻页，防止乱翻。
type ReplicationCursor struct {
	Global    uint64
	Cursor    uint64
	Tombstone uint64

	nextAllowed time.Time
	lastSeen    time.Time
}

// ReplicationPage 一页复制响应
type ReplicationPage struct {
	Global    uint64
	Cursor    uint64
	Tombstone uint64
	Listings  []*Listing
}

// Replicate 增量复制。服务条件：客户端三元组与服务端一致，
// 或节流窗口已过（视为重新开一轮）。否则拒绝并给出重试时长。
func (l *Ledger) Replicate(player uint64, global, cursor, tombstone uint64, count int, now time.Time) (*ReplicationPage, time.Duration) {
	if count <= 0 {
		count = 100
	}

	st, ok := l.replicate[player]
	if !ok {
		st = &ReplicationCursor{}
		l.replicate[player] = st
	}
	st.lastSeen = now

	tupleMatch := ok && global == st.Global && cursor == st.Cursor && tombstone == st.Tombstone
	windowOver := !now.Before(st.nextAllowed)
	if !tupleMatch && !windowOver {
		return nil, st.nextAllowed.Sub(now)
	}
	if !tupleMatch {
		// 新一轮：从头扫，期号定格在当前变更号
		st.Global = l.changeNumber
		st.Cursor = 0
		st.Tombstone = 0
	}

	ids := make([]uint64, 0, len(l.byID))
	for id := range l.byID {
		if id > st.Cursor {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	page := &ReplicationPage{Global: st.Global}
	serve := ids
	if len(serve) > count {
		serve = serve[:count]
	}
	for _, id := range serve {
		page.Listings = append(page.Listings, l.byID[id])
	}

	if len(serve) > 0 {
		st.Cursor = serve[len(serve)-1]
	}
	if len(ids) > count {
		// 还有剩余，墓碑保持 0
		st.Tombstone = 0
	} else {
		// 本轮扫完，墓碑落在现存最老的挂单上
		st.Tombstone = l.oldestListingID()
	}
	st.nextAllowed = now.Add(ReplicationWindow)

	page.Cursor = st.Cursor
	page.Tombstone = st.Tombstone
	return page, 0
}

func (l *Ledger) oldestListingID() uint64 {
	var oldest uint64
	for id := range l.byID {
		if oldest == 0 || id < oldest {
			oldest = id
		}
	}
	return oldest
}

// pruneReplication 淘汰闲置游标，由 Update 的 tick 驱动
func (l *Ledger) pruneReplication(now time.Time) {
	for player, st := range l.replicate {
		if now.Sub(st.lastSeen) > replicationCursorTTL {
			delete(l.replicate, player)
		}
	}
}
