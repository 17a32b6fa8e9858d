package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReplicatePagesThroughAllListings(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 5; i++ {
		env.listOre(uint64(2+i), 1, uint64(10+i))
	}

	now := testEpoch
	page, retry := env.ledger.Replicate(9, 0, 0, 0, 2, now)
	require.Zero(t, retry)
	require.Len(t, page.Listings, 2)
	// 还有剩余时墓碑保持 0
	require.Zero(t, page.Tombstone)

	// 原样带回三元组就能立刻翻下一页
	page2, retry := env.ledger.Replicate(9, page.Global, page.Cursor, page.Tombstone, 2, now.Add(time.Second))
	require.Zero(t, retry)
	require.Len(t, page2.Listings, 2)
	require.Equal(t, page.Global, page2.Global)
	require.Greater(t, page2.Cursor, page.Cursor)

	// 最后一页：墓碑落在现存最老的挂单上
	page3, retry := env.ledger.Replicate(9, page2.Global, page2.Cursor, page2.Tombstone, 2, now.Add(2*time.Second))
	require.Zero(t, retry)
	require.Len(t, page3.Listings, 1)
	require.Equal(t, env.ledger.oldestListingID(), page3.Tombstone)

	// 不重不漏
	seen := map[uint64]bool{}
	for _, p := range []*ReplicationPage{page, page2, page3} {
		for _, l := range p.Listings {
			require.False(t, seen[l.ID])
			seen[l.ID] = true
		}
	}
	require.Len(t, seen, 5)
}

func TestReplicateThrottlesBadTuple(t *testing.T) {
	env := newTestEnv()
	env.listOre(2, 1, 10)

	now := testEpoch
	page, retry := env.ledger.Replicate(9, 0, 0, 0, 10, now)
	require.Zero(t, retry)
	require.NotNil(t, page)

	// 窗口内乱带三元组：拒绝并给出重试时长
	bad, retry := env.ledger.Replicate(9, 777, 0, 0, 10, now.Add(time.Second))
	require.Nil(t, bad)
	require.Equal(t, ReplicationWindow-time.Second, retry)

	// 窗口过了视为重开一轮，从头扫
	fresh, retry := env.ledger.Replicate(9, 777, 0, 0, 10, now.Add(ReplicationWindow))
	require.Zero(t, retry)
	require.Len(t, fresh.Listings, 1)
}

func TestReplicateGlobalPinsAtRoundStart(t *testing.T) {
	env := newTestEnv()
	env.listOre(2, 1, 10)

	page, _ := env.ledger.Replicate(9, 0, 0, 0, 10, testEpoch)
	before := page.Global

	// 轮中有新变更不影响本轮期号
	env.listOre(3, 1, 20)
	page2, _ := env.ledger.Replicate(9, page.Global, page.Cursor, page.Tombstone, 10, testEpoch.Add(time.Second))
	require.Equal(t, before, page2.Global)
}

func TestPruneReplicationDropsIdleCursors(t *testing.T) {
	env := newTestEnv()
	env.listOre(2, 1, 10)

	env.ledger.Replicate(9, 0, 0, 0, 10, testEpoch)
	require.Contains(t, env.ledger.replicate, uint64(9))

	env.ledger.pruneReplication(testEpoch.Add(replicationCursorTTL + time.Second))
	require.NotContains(t, env.ledger.replicate, uint64(9))
}
