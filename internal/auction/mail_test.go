package auction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMailSubjectAndBodyFormat(t *testing.T) {
	env := newTestEnv()
	sword := env.listSword(2, 100, 500)

	require.Equal(t, "200:0:1", wonSubject(sword))
	require.Equal(t, "200:0:2", soldSubject(sword))
	require.Equal(t, "41:1:500:500", wonBody(41, 1, 500, 500))
	require.Equal(t, "41:1:500:500:100:25", soldBody(41, 1, 500, 500, 100, 25))
	require.Equal(t, ":10,20", bonusListField([]uint32{10, 20}))
	require.Equal(t, "", bonusListField(nil))
}

func TestParcelItemsHonorsPerMailCap(t *testing.T) {
	items := make([]*Item, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, &Item{Guid: uint64(i + 1), Template: tmplOre, Count: 1})
	}

	parcels := parcelItems(items, MaxMailItems)
	require.Len(t, parcels, 3)
	require.Len(t, parcels[0], MaxMailItems)
	require.Len(t, parcels[1], MaxMailItems)
	require.Len(t, parcels[2], 1)

	// 不重不漏
	total := 0
	for _, p := range parcels {
		total += len(p)
	}
	require.Equal(t, 25, total)

	require.Empty(t, parcelItems(nil, MaxMailItems))
}
