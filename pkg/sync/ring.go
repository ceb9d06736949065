package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over stripe indexes.
type ring struct {
	hashRing *treemap.Map

	// first caches the value of the min entry, since treemap.Map.Min() is
	// O(log n).
	first int
}

// newRing places replicas points on the ring for each of the stripes.
func newRing(stripes, replicas uint) *ring {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for stripe := 0; stripe < int(stripes); stripe++ {
		keyHash, _ := murmur3.Sum128([]byte(fmt.Sprintf("stripe%d", stripe)))
		keyHashBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(keyHashBytes, keyHash)

		for i := 0; i < int(replicas); i++ {
			indexBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(indexBytes, uint32(i))

			hasher := murmur3.New128()
			_, _ = hasher.Write(keyHashBytes)
			_, _ = hasher.Write(indexBytes)
			hash, _ := hasher.Sum128()
			hashRing.Put(int64(hash), stripe)
		}
	}

	r := &ring{hashRing: hashRing}
	if _, first := hashRing.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// shard returns the stripe key maps to.
func (r *ring) shard(key []byte) int {
	hasher := murmur3.New128()
	_, _ = hasher.Write(key)
	raw, _ := hasher.Sum128()

	_, stripe := r.hashRing.Ceiling(int64(raw))
	if stripe != nil {
		return stripe.(int)
	}
	return r.first
}
