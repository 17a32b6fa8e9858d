package mysql

import (
	"context"

	"auctionex.com/internal/auction/repo"
	"auctionex.com/internal/auction/repo/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auctionRepo struct {
	db *gorm.DB
}

func NewAuctionRepo(db *gorm.DB) repo.AuctionRepo {
	return &auctionRepo{db: db}
}

func (r *auctionRepo) LoadAll(ctx context.Context) ([]model.AuctionRow, []model.AuctionItemRow, []model.AuctionBidderRow, error) {
	var rows []model.AuctionRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, nil, nil, err
	}
	var items []model.AuctionItemRow
	if err := r.db.WithContext(ctx).Order("auction_id ASC, item_guid ASC").Find(&items).Error; err != nil {
		return nil, nil, nil, err
	}
	var bidders []model.AuctionBidderRow
	if err := r.db.WithContext(ctx).Find(&bidders).Error; err != nil {
		return nil, nil, nil, err
	}
	return rows, items, bidders, nil
}

func (r *auctionRepo) WithTx(ctx context.Context, fn func(tx repo.AuctionTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&auctionTx{tx: tx})
	})
}

type auctionTx struct {
	tx *gorm.DB
}

func (t *auctionTx) InsertAuction(row *model.AuctionRow, items []model.AuctionItemRow) error {
	if err := t.tx.Create(row).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := t.tx.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

func (t *auctionTx) DeleteAuction(id uint64) error {
	if err := t.tx.Where("id = ?", id).Delete(&model.AuctionRow{}).Error; err != nil {
		return err
	}
	if err := t.tx.Where("auction_id = ?", id).Delete(&model.AuctionItemRow{}).Error; err != nil {
		return err
	}
	return t.tx.Where("auction_id = ?", id).Delete(&model.AuctionBidderRow{}).Error
}

func (t *auctionTx) UpdateBid(id uint64, bidder uint64, amount uint64) error {
	return t.tx.Model(&model.AuctionRow{}).Where("id = ?", id).
		Updates(map[string]interface{}{"bidder": bidder, "bid_amount": amount}).Error
}

func (t *auctionTx) InsertBidder(id uint64, bidder uint64) error {
	// 同一玩家反复出价会撞主键，忽略冲突即可
	return t.tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.AuctionBidderRow{AuctionID: id, Bidder: bidder}).Error
}

func (t *auctionTx) UpdateItemCount(auctionID, itemGuid uint64, count uint32) error {
	return t.tx.Model(&model.AuctionItemRow{}).
		Where("auction_id = ? AND item_guid = ?", auctionID, itemGuid).
		Update("count", count).Error
}

func (t *auctionTx) DeleteItem(auctionID, itemGuid uint64) error {
	return t.tx.Where("auction_id = ? AND item_guid = ?", auctionID, itemGuid).
		Delete(&model.AuctionItemRow{}).Error
}
