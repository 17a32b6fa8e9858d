package auction

import "strings"

// SortColumn 客户端可选的排序列
type SortColumn uint8

const (
	SortByPrice SortColumn = iota
	SortByName
	SortByLevel
	SortByQuality
	SortByTimeLeft
	SortByBid
)

// SortSpec 一列排序及方向
type SortSpec struct {
	Column SortColumn
	Desc   bool
}

func applyDir(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func cmpU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BuildBucketComparator 把运行期排序列拼成一个复合比较器：
// 第一个非零的列定胜负，列全平后按 key 保证顺序稳定。
func BuildBucketComparator(sorts []SortSpec) func(a, b *Bucket) int {
	return func(a, b *Bucket) int {
		for _, s := range sorts {
			var c int
			switch s.Column {
			case SortByPrice:
				c = cmpU64(a.MinPrice, b.MinPrice)
			case SortByName:
				c = strings.Compare(a.Name, b.Name)
			case SortByLevel:
				c = int(a.SortLevel) - int(b.SortLevel)
			case SortByQuality:
				c = int(highestQuality(a)) - int(highestQuality(b))
			default:
				continue
			}
			if c != 0 {
				return applyDir(c, s.Desc)
			}
		}
		return a.Key.Compare(b.Key)
	}
}

// BuildListingComparator 挂单级复合比较器。
// 末位平局固定按开始时间升序、再按 id 升序（与落库顺序一致）。
func BuildListingComparator(sorts []SortSpec) func(a, b *Listing) int {
	return func(a, b *Listing) int {
		for _, s := range sorts {
			var c int
			switch s.Column {
			case SortByPrice:
				c = cmpU64(a.DisplayPrice(), b.DisplayPrice())
			case SortByName:
				c = strings.Compare(a.Template().Name, b.Template().Name)
			case SortByLevel:
				c = int(itemLevelOf(a)) - int(itemLevelOf(b))
			case SortByQuality:
				c = int(a.Template().Quality) - int(b.Template().Quality)
			case SortByTimeLeft:
				switch {
				case a.EndTime.Before(b.EndTime):
					c = -1
				case b.EndTime.Before(a.EndTime):
					c = 1
				}
			case SortByBid:
				c = cmpU64(a.BidAmount, b.BidAmount)
			default:
				continue
			}
			if c != 0 {
				return applyDir(c, s.Desc)
			}
		}
		if !a.StartTime.Equal(b.StartTime) {
			if a.StartTime.Before(b.StartTime) {
				return -1
			}
			return 1
		}
		return cmpU64(a.ID, b.ID)
	}
}

func highestQuality(b *Bucket) ItemQuality {
	for q := MaxQuality; q > 0; q-- {
		if b.QualityMask&(1<<(q-1)) != 0 {
			return q - 1
		}
	}
	return QualityPoor
}

func itemLevelOf(l *Listing) uint16 {
	if len(l.Items) == 0 {
		return 0
	}
	return l.Items[0].ItemLevel
}
