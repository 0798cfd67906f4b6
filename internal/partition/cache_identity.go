package partition

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/codec"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// cacheIdentity computes the opaque cache key for req against the state
// it was materialized into: stream identity + materialized sequence +
// tolerance policy (class and epsilon), per §4.8 "cache identity is a
// function of (stream, tick or sequence, algorithm_hash-relevant
// options)". Two requests that would produce byte-identical polygon sets
// hash to the same key; any difference in policy class or epsilon
// (Lenient's configured value) changes it.
func cacheIdentity(req Request, state topology.State) (string, error) {
	raw, err := codec.EncodeState(topology.State{
		Identity: state.Identity, LastEventSequence: state.LastEventSequence,
	})
	if err != nil {
		return "", fmt.Errorf("partition: encode cache identity stream component: %w", err)
	}

	h := sha256.New()
	h.Write(raw)
	h.Write([]byte{byte(req.Policy.Class)})
	var epsBits [8]byte
	binary.BigEndian.PutUint64(epsBits[:], math.Float64bits(req.Policy.Epsilon))
	h.Write(epsBits[:])

	return hex.EncodeToString(h.Sum(nil)), nil
}
