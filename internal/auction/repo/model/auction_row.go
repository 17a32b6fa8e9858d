package model

// AuctionRow 拍卖主表，一行一条挂单
type AuctionRow struct {
	ID                uint64 `gorm:"column:id;primaryKey"`
	HouseID           uint8  `gorm:"column:house_id;index"`
	Owner             uint64 `gorm:"column:owner"`
	OwnerAccount      uint32 `gorm:"column:owner_account"`
	Bidder            uint64 `gorm:"column:bidder"`
	MinBid            uint64 `gorm:"column:min_bid"`
	BuyoutOrUnitPrice uint64 `gorm:"column:buyout_price"`
	Deposit           uint64 `gorm:"column:deposit"`
	BidAmount         uint64 `gorm:"column:bid_amount"`
	StartTime         int64  `gorm:"column:start_time"` // unix 秒
	EndTime           int64  `gorm:"column:end_time"`
	Flags             uint8  `gorm:"column:flags"`
}

func (AuctionRow) TableName() string { return "auctions" }

// AuctionItemRow 拍卖附属物品表。物品字段够重建内存态即可，
// 物品本体归物品系统管。
type AuctionItemRow struct {
	AuctionID    uint64 `gorm:"column:auction_id;primaryKey"`
	ItemGuid     uint64 `gorm:"column:item_guid;primaryKey"`
	ItemID       uint32 `gorm:"column:item_id"`
	Count        uint32 `gorm:"column:count"`
	ItemLevel    uint16 `gorm:"column:item_level"`
	SuffixID     uint16 `gorm:"column:suffix_id"`
	PetSpeciesID uint16 `gorm:"column:pet_species_id"`
	PetLevel     uint8  `gorm:"column:pet_level"`
	AppearanceID uint32 `gorm:"column:appearance_id"`
	BonusListIDs string `gorm:"column:bonus_list_ids"` // 逗号分隔
}

func (AuctionItemRow) TableName() string { return "auction_items" }

// AuctionBidderRow 出价历史表，一行一个出过价的玩家
type AuctionBidderRow struct {
	AuctionID uint64 `gorm:"column:auction_id;primaryKey"`
	Bidder    uint64 `gorm:"column:bidder;primaryKey"`
}

func (AuctionBidderRow) TableName() string { return "auction_bidders" }
