// Package snowflake generates 64-bit, time-ordered ids. The layout is
// 41 bits of millisecond timestamp, 5 bits of shard, 12 bits of sequence,
// which keeps ids unique across a small fixed set of generator shards.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

const (
	// Custom epoch: 2024-01-01T00:00:00Z
	epochMillis = int64(1704067200000)

	shardBits    = 5
	sequenceBits = 12

	maxShard    = (1 << shardBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	shardShift     = sequenceBits
	timestampShift = sequenceBits + shardBits
)

// Generator produces ids for a single shard. Safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	shard    int64
	lastTime int64
	sequence int64
}

func NewGenerator(shard int64) (*Generator, error) {
	if shard < 0 || shard > maxShard {
		return nil, fmt.Errorf("snowflake: shard %d out of range [0,%d]", shard, maxShard)
	}
	return &Generator{shard: shard}, nil
}

// NextID returns the next id. When the per-millisecond sequence overflows it
// spins until the clock advances.
func (g *Generator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastTime {
		// Clock went backwards; reuse the last timestamp and rely on the
		// sequence until real time catches up.
		now = g.lastTime
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			for now <= g.lastTime {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	return (now-epochMillis)<<timestampShift | g.shard<<shardShift | g.sequence
}
