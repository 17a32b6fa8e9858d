package auction

// BucketKey 归桶键。两个挂单 key 相等即视为同一种商品。
// 可堆叠商品: (模板ID, 基础物品等级, 0, 0)
// 不可堆叠:   (条目ID, 计算后物品等级, 宠物种类, 随机后缀)
type BucketKey struct {
	ItemID       uint32
	ItemLevel    uint16
	PetSpeciesID uint16
	SuffixID     uint16
}

// Compare 给有序桶序列用的全序。按 ItemID, ItemLevel, PetSpeciesID, SuffixID 逐列比较。
func (k BucketKey) Compare(o BucketKey) int {
	if k.ItemID != o.ItemID {
		if k.ItemID < o.ItemID {
			return -1
		}
		return 1
	}
	if k.ItemLevel != o.ItemLevel {
		if k.ItemLevel < o.ItemLevel {
			return -1
		}
		return 1
	}
	if k.PetSpeciesID != o.PetSpeciesID {
		if k.PetSpeciesID < o.PetSpeciesID {
			return -1
		}
		return 1
	}
	if k.SuffixID != o.SuffixID {
		if k.SuffixID < o.SuffixID {
			return -1
		}
		return 1
	}
	return 0
}

// KeyForCommodity 堆叠商品按模板归桶
func KeyForCommodity(tmpl *ItemTemplate) BucketKey {
	return BucketKey{
		ItemID:    tmpl.ID,
		ItemLevel: tmpl.BaseItemLevel,
	}
}

// KeyForItem 为一件物品推导归桶键。可堆叠物品退化为模板键。
func KeyForItem(item *Item) BucketKey {
	if item.Template.Stackable() {
		return KeyForCommodity(item.Template)
	}
	return BucketKey{
		ItemID:       item.Template.ID,
		ItemLevel:    item.ItemLevel,
		PetSpeciesID: item.PetSpeciesID,
		SuffixID:     item.SuffixID,
	}
}
