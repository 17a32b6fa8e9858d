package auction

import "time"

// 货币单位（铜币为最小单位）
const (
	Copper uint64 = 1
	Silver uint64 = 100 * Copper
	Gold   uint64 = 100 * Silver
)

// 拍卖行常量
const (
	// MinDuration 挂单的最小时长单位，押金按这个单位累乘
	MinDuration = 12 * time.Hour
	// MaxMailItems 一封邮件最多附带的物品数
	MaxMailItems = 12
	// QuoteDuration 大宗商品报价的有效期，过期按不存在处理
	QuoteDuration = 30 * time.Second
	// MinBidRaisePct 出价最小加价比例（相对当前出价）
	MinBidRaisePct = 5
	// MaxBucketAppearances 一个桶最多统计的外观数
	MaxBucketAppearances = 4
)

// HouseID 拍卖行编号
type HouseID uint8

const (
	HouseAlliance HouseID = 2
	HouseHorde    HouseID = 6
	HouseNeutral  HouseID = 7
	// HouseGoblin 地精中立行，手续费更高
	HouseGoblin HouseID = 1
)

// Faction 阵营，路由到对应的拍卖行
type Faction uint8

const (
	FactionAlliance Faction = iota + 1
	FactionHorde
	FactionNeutral
)

// ItemQuality 物品品质
type ItemQuality uint8

const (
	QualityPoor ItemQuality = iota
	QualityCommon
	QualityUncommon
	QualityRare
	QualityEpic
	QualityLegendary
	QualityArtifact
	MaxQuality
)

// ItemClass 物品大类，这里只区分到引擎关心的程度
type ItemClass uint8

const (
	ClassConsumable ItemClass = iota
	ClassContainer
	ClassWeapon
	ClassArmor
	ClassTradeGoods
	ClassBattlePet
	ClassMiscellaneous
)

// PlayerRef 玩家标识。玩家/会话模型是外部协作者，这里只携带身份
type PlayerRef struct {
	Guid    uint64 // 角色 GUID
	Account uint32 // 账号 ID
}

func (p PlayerRef) IsEmpty() bool { return p.Guid == 0 }

// ItemTemplate 物品模板（堆叠商品按模板归桶）
type ItemTemplate struct {
	ID            uint32
	Name          string
	Class         ItemClass
	SubClass      uint8
	InventoryType uint8
	Quality       ItemQuality
	RequiredLevel uint8
	BaseItemLevel uint16
	MaxStack      uint32 // >1 即可堆叠
}

// Stackable 可堆叠即按商品（commodity）处理
func (t *ItemTemplate) Stackable() bool { return t != nil && t.MaxStack > 1 }

// Item 挂单里的一件（或一摞）物品。物品本体对引擎是不透明值，
// 这里只保留归桶、展示和重建需要的字段。
type Item struct {
	Guid         uint64
	Template     *ItemTemplate
	Count        uint32
	ItemLevel    uint16 // 计算后的物品等级
	SuffixID     uint16 // 随机后缀
	PetSpeciesID uint16 // 战斗宠物种类，非宠物为 0
	PetLevel     uint8
	AppearanceID uint32   // 外观（幻化）ID，0 表示无
	BonusListIDs []uint32 // 邮件里要原样带回的 bonus 列表
}

// TemplateStore 模板查询，由物品系统提供。
// 找不到模板属于校验类错误，由调用方传播。
type TemplateStore interface {
	Template(id uint32) *ItemTemplate
}

// AuctionResult 操作结果码，按原样回给客户端
type AuctionResult uint8

const (
	ResultOK AuctionResult = iota
	ResultItemNotFound
	ResultDatabaseError
	ResultNotEnoughMoney
	ResultNotEnoughItems
	ResultCommodityPriceChanged
	ResultQuoteExpired
	ResultBidIncrementTooLow
	ResultAlreadyOutbid
	ResultNotOwner
	ResultThrottled
)

func (r AuctionResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultItemNotFound:
		return "item_not_found"
	case ResultDatabaseError:
		return "database_error"
	case ResultNotEnoughMoney:
		return "not_enough_money"
	case ResultNotEnoughItems:
		return "not_enough_items"
	case ResultCommodityPriceChanged:
		return "commodity_price_changed"
	case ResultQuoteExpired:
		return "quote_expired"
	case ResultBidIncrementTooLow:
		return "bid_increment_too_low"
	case ResultAlreadyOutbid:
		return "already_outbid"
	case ResultNotOwner:
		return "not_owner"
	case ResultThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}
