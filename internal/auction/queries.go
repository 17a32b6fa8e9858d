package auction

import "strings"

// CollectionState 玩家收藏状态，外部协作者。
// "只看未收集"过滤逐个候选询问。
type CollectionState interface {
	OwnsAppearance(appearanceID uint32) bool
}

// CollectionResolver 按玩家取收藏状态，由收藏系统实现
type CollectionResolver interface {
	CollectionFor(player uint64) CollectionState
}

// ClassFilter 类/子类/栏位三级过滤，-1 表示该级不限
type ClassFilter struct {
	Class         int16
	SubClass      int16
	InventoryType int16
}

func (f *ClassFilter) matches(b *Bucket) bool {
	if f == nil || f.Class < 0 {
		return true
	}
	if ItemClass(f.Class) != b.ItemClass {
		return false
	}
	if f.SubClass >= 0 && uint8(f.SubClass) != b.ItemSubClass {
		return false
	}
	if f.InventoryType >= 0 && uint8(f.InventoryType) != b.InventoryType {
		return false
	}
	return true
}

// BrowseFilter 全局浏览的过滤条件
type BrowseFilter struct {
	// Name 名称匹配，ExactMatch 为 false 时做子串匹配（大小写不敏感）
	Name       string
	ExactMatch bool
	// MinLevel/MaxLevel 需求等级区间，0 表示不限
	MinLevel uint8
	MaxLevel uint8
	// QualityMask 品质位掩码，0 表示不限
	QualityMask uint32
	Classes     *ClassFilter
	// UncollectedOnly 只看未收集外观，需要传 Collection
	UncollectedOnly bool
	Collection      CollectionState
}

func (f *BrowseFilter) matches(b *Bucket) bool {
	if f == nil {
		return true
	}
	if f.Name != "" {
		if f.ExactMatch {
			if !strings.EqualFold(b.Name, f.Name) {
				return false
			}
		} else if !strings.Contains(strings.ToLower(b.Name), strings.ToLower(f.Name)) {
			return false
		}
	}
	if f.MinLevel > 0 && b.RequiredLevel < f.MinLevel {
		return false
	}
	if f.MaxLevel > 0 && b.RequiredLevel > f.MaxLevel {
		return false
	}
	if f.QualityMask != 0 && b.QualityMask&f.QualityMask == 0 {
		return false
	}
	if !f.Classes.matches(b) {
		return false
	}
	if f.UncollectedOnly {
		if f.Collection == nil {
			return false
		}
		owned := 0
		for _, app := range b.Appearances {
			if f.Collection.OwnsAppearance(app.id) {
				owned++
			}
		}
		// 全部外观都已收集的桶不展示
		if len(b.Appearances) > 0 && owned == len(b.Appearances) {
			return false
		}
	}
	return true
}

// Page 一页查询结果
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// BrowseBuckets 全局浏览：过滤 + 复合排序 + 有界分页。
// 每个可见候选喂进 ResultBuilder，一趟扫描出精确的一页。
func (l *Ledger) BrowseBuckets(f *BrowseFilter, sorts []SortSpec, offset, limit int) Page[*Bucket] {
	builder := NewResultBuilder(BuildBucketComparator(sorts), offset, limit)
	for _, b := range l.ordered.all() {
		if f.matches(b) {
			builder.AddItem(b)
		}
	}
	return Page[*Bucket]{Items: builder.GetResultRange(), HasMore: builder.HasMoreResults()}
}

// ListingsByBucket 列出一个桶内的挂单
func (l *Ledger) ListingsByBucket(key BucketKey, sorts []SortSpec, offset, limit int) Page[*Listing] {
	builder := NewResultBuilder(BuildListingComparator(sorts), offset, limit)
	if b, ok := l.buckets[key]; ok {
		for _, listing := range b.Listings.all() {
			builder.AddItem(listing)
		}
	}
	return Page[*Listing]{Items: builder.GetResultRange(), HasMore: builder.HasMoreResults()}
}

// ListingsByItemID 按物品 ID 列出挂单（跨该物品的全部桶）
func (l *Ledger) ListingsByItemID(itemID uint32, sorts []SortSpec, offset, limit int) Page[*Listing] {
	builder := NewResultBuilder(BuildListingComparator(sorts), offset, limit)
	for _, b := range l.ordered.all() {
		if b.Key.ItemID != itemID {
			continue
		}
		for _, listing := range b.Listings.all() {
			builder.AddItem(listing)
		}
	}
	return Page[*Listing]{Items: builder.GetResultRange(), HasMore: builder.HasMoreResults()}
}

// ListingsByOwner 玩家自己的挂单
func (l *Ledger) ListingsByOwner(owner uint64, sorts []SortSpec, offset, limit int) Page[*Listing] {
	builder := NewResultBuilder(BuildListingComparator(sorts), offset, limit)
	for _, listing := range l.byOwner[owner] {
		builder.AddItem(listing)
	}
	return Page[*Listing]{Items: builder.GetResultRange(), HasMore: builder.HasMoreResults()}
}

// ListingsByBidder 玩家出过价的挂单
func (l *Ledger) ListingsByBidder(bidder uint64, sorts []SortSpec, offset, limit int) Page[*Listing] {
	builder := NewResultBuilder(BuildListingComparator(sorts), offset, limit)
	for _, listing := range l.byBidder[bidder] {
		builder.AddItem(listing)
	}
	return Page[*Listing]{Items: builder.GetResultRange(), HasMore: builder.HasMoreResults()}
}
