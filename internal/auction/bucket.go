package auction

// appearanceRef 桶内某个外观的引用计数
type appearanceRef struct {
	id   uint32
	refs uint32
}

// Bucket 同一归桶键下所有活跃挂单的聚合。
// 聚合量增量维护；只有被删挂单正好持有极值时才全量重扫。
// 不变量：桶存在 <=> 挂单序列非空。
type Bucket struct {
	Key BucketKey

	// 展示元数据，建桶时从模板取一次
	Name          string
	ItemClass     ItemClass
	ItemSubClass  uint8
	InventoryType uint8
	RequiredLevel uint8
	// SortLevel 按大类派生的排序等级：战斗宠物用宠物等级，其余用物品等级
	SortLevel uint16

	// 运行聚合
	MinPrice      uint64
	QualityMask   uint32
	QualityCounts [MaxQuality]uint32
	// Appearances 最多记 4 个不同外观及其引用数
	Appearances []appearanceRef
	MinPetLevel uint8
	MaxPetLevel uint8

	// Listings 活跃挂单，展示价升序（二分插入），同价按挂单先后
	Listings *sortedSeq[*Listing]
}

func listingPriceCmp(a, b *Listing) int {
	pa, pb := a.DisplayPrice(), b.DisplayPrice()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// ListingCount 桶内活跃挂单数
func (b *Bucket) ListingCount() int { return b.Listings.len() }

// NewBucket 从首条挂单的模板建桶
func NewBucket(key BucketKey, tmpl *ItemTemplate) *Bucket {
	b := &Bucket{
		Key:           key,
		Name:          tmpl.Name,
		ItemClass:     tmpl.Class,
		ItemSubClass:  tmpl.SubClass,
		InventoryType: tmpl.InventoryType,
		RequiredLevel: tmpl.RequiredLevel,
		SortLevel:     key.ItemLevel,
		Listings:      newSortedSeq(listingPriceCmp),
	}
	return b
}

// Insert 挂单入桶并增量更新聚合
func (b *Bucket) Insert(l *Listing) {
	b.Listings.insert(l)
	l.Bucket = b
	b.absorb(l)
}

// absorb 把一条挂单的贡献并入聚合
func (b *Bucket) absorb(l *Listing) {
	price := l.DisplayPrice()
	if b.MinPrice == 0 || price < b.MinPrice {
		b.MinPrice = price
	}

	tmpl := l.Template()
	q := tmpl.Quality
	if q < MaxQuality {
		b.QualityMask |= 1 << q
		b.QualityCounts[q]++
	}

	for _, it := range l.Items {
		if it.AppearanceID != 0 {
			b.addAppearance(it.AppearanceID)
		}
		if it.PetSpeciesID != 0 {
			if b.MinPetLevel == 0 || it.PetLevel < b.MinPetLevel {
				b.MinPetLevel = it.PetLevel
			}
			if it.PetLevel > b.MaxPetLevel {
				b.MaxPetLevel = it.PetLevel
			}
			// 战斗宠物桶按宠物等级排序
			if tmpl.Class == ClassBattlePet && uint16(it.PetLevel) > b.SortLevel {
				b.SortLevel = uint16(it.PetLevel)
			}
		}
	}
}

func (b *Bucket) addAppearance(id uint32) {
	for i := range b.Appearances {
		if b.Appearances[i].id == id {
			b.Appearances[i].refs++
			return
		}
	}
	if len(b.Appearances) < MaxBucketAppearances {
		b.Appearances = append(b.Appearances, appearanceRef{id: id, refs: 1})
	}
}

// Remove 挂单出桶。被删挂单持有极值（最低价、唯一外观、宠物等级端点）
// 时触发全量重扫，否则只做计数递减。返回桶是否已空。
func (b *Bucket) Remove(l *Listing) bool {
	b.Listings.remove(l, func(a, v *Listing) bool { return a == v })
	l.Bucket = nil

	if b.Listings.empty() {
		return true
	}

	if b.needRescan(l) {
		b.rescan()
		return false
	}

	q := l.Template().Quality
	if q < MaxQuality {
		b.QualityCounts[q]--
		if b.QualityCounts[q] == 0 {
			b.QualityMask &^= 1 << q
		}
	}
	for _, it := range l.Items {
		if it.AppearanceID != 0 {
			b.dropAppearance(it.AppearanceID)
		}
	}
	return false
}

func (b *Bucket) dropAppearance(id uint32) {
	for i := range b.Appearances {
		if b.Appearances[i].id == id {
			b.Appearances[i].refs--
			if b.Appearances[i].refs == 0 {
				b.Appearances = append(b.Appearances[:i], b.Appearances[i+1:]...)
			}
			return
		}
	}
}

// needRescan 删掉的挂单是否持有某个极值
func (b *Bucket) needRescan(l *Listing) bool {
	if l.DisplayPrice() <= b.MinPrice {
		return true
	}
	for _, it := range l.Items {
		if it.PetSpeciesID != 0 && (it.PetLevel <= b.MinPetLevel || it.PetLevel >= b.MaxPetLevel) {
			return true
		}
	}
	return false
}

// rescan 从当前挂单集重建全部聚合
func (b *Bucket) rescan() {
	b.MinPrice = 0
	b.QualityMask = 0
	b.QualityCounts = [MaxQuality]uint32{}
	b.Appearances = b.Appearances[:0]
	b.MinPetLevel, b.MaxPetLevel = 0, 0
	b.SortLevel = b.Key.ItemLevel
	for _, l := range b.Listings.all() {
		b.absorb(l)
	}
}

// PriceChanged 挂单展示价变化（有人出价）后归位并修聚合
func (b *Bucket) PriceChanged(l *Listing) {
	idx := b.Listings.indexOf(func(v *Listing) bool { return v == l })
	if idx >= 0 {
		b.Listings.reinsertAt(idx)
	}
	// 序列按价升序，首位就是新的最低价
	b.MinPrice = b.Listings.first().DisplayPrice()
}
