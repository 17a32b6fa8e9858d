package auction

import (
	"fmt"
	"strconv"
	"strings"
)

// MailType 邮件模板类型
type MailType uint8

const (
	MailAuctionWon MailType = iota + 1
	MailAuctionSold
	MailAuctionExpired
	MailAuctionOutbid
	MailAuctionCancelled
	MailAuctionRemoved
)

// MailRequest 发给邮件系统的投递请求。邮件投递是外部协作者，
// 这里只负责把字段按约定格式拼好。
type MailRequest struct {
	HouseID    HouseID   `json:"house_id"`
	Receiver   PlayerRef `json:"receiver"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Money      uint64    `json:"money"`
	Items      []*Item   `json:"items,omitempty"`
	Expiration uint32    `json:"expiration_hours,omitempty"`
}

// MailSink 邮件出口。离线玩家同样投递；连身份都解析不出来时
// 由调用方决定销毁物品。
type MailSink interface {
	Send(m *MailRequest) error
}

// 邮件主题/正文用冒号分隔的定长字段，客户端按位置解析：
//   subject: 模板ID:0:邮件类型
//   body(won):  拍卖ID:件数:成交价:买断价
//   body(sold): 拍卖ID:件数:成交价:买断价:押金:抽成
func wonSubject(l *Listing) string {
	return fmt.Sprintf("%d:0:%d", l.Template().ID, MailAuctionWon)
}

func soldSubject(l *Listing) string {
	return fmt.Sprintf("%d:0:%d", l.Template().ID, MailAuctionSold)
}

func expiredSubject(l *Listing) string {
	return fmt.Sprintf("%d:0:%d", l.Template().ID, MailAuctionExpired)
}

func outbidSubject(l *Listing) string {
	return fmt.Sprintf("%d:0:%d", l.Template().ID, MailAuctionOutbid)
}

func cancelledSubject(l *Listing) string {
	return fmt.Sprintf("%d:0:%d", l.Template().ID, MailAuctionCancelled)
}

func wonBody(auctionID uint64, qty uint32, bid, buyout uint64) string {
	return fmt.Sprintf("%d:%d:%d:%d", auctionID, qty, bid, buyout)
}

func soldBody(auctionID uint64, qty uint32, price, buyout, deposit, cut uint64) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d", auctionID, qty, price, buyout, deposit, cut)
}

// bonusListField bonus 列表拼进正文尾部，空列表省略
func bonusListField(ids []uint32) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return ":" + strings.Join(parts, ",")
}

// parcelItems 把购得物品按每封邮件的件数上限切成批次
func parcelItems(items []*Item, perMail int) [][]*Item {
	if perMail <= 0 {
		perMail = MaxMailItems
	}
	var parcels [][]*Item
	for len(items) > perMail {
		parcels = append(parcels, items[:perMail])
		items = items[perMail:]
	}
	if len(items) > 0 {
		parcels = append(parcels, items)
	}
	return parcels
}
