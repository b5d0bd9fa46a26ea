package hashring

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// KeyHasher maps a logical key of comparable type K onto the uint32 hash
// space used for routing. Implementations MUST be deterministic and
// process-independent: the same key must hash identically across calls,
// processes, and restarts (spec §8 "Routing determinism").
type KeyHasher[K comparable] func(K) uint32

// RingHasher maps a ring-node label (shard id + replica index, e.g.
// "shard-3#00042") onto the uint32 hash space used to place virtual nodes on
// the consistent-hash ring.
type RingHasher func(label string) uint32

// DefaultKeyHasher returns the library's default KeyHasher for K: 64-bit
// xxHash over the key's canonical byte form, xor-folded to 32 bits. xxHash is
// the fast non-cryptographic mixer the pack's own sharded caches use for the
// same purpose (IvanBrykalov-shardcache uses FNV-1a for the same role;
// xxHash is adopted here instead since it is the hasher AKJUS-bsc-erigon
// reaches for on its hot paths).
//
// Supported key kinds: string, []byte, fixed-size byte arrays, all integer
// widths, and fmt.Stringer. Any other type causes DefaultKeyHasher's
// returned function to panic on first use — silently hashing an unsupported
// type poorly would be worse than failing loudly at call time.
func DefaultKeyHasher[K comparable]() KeyHasher[K] {
	return func(k K) uint32 {
		return truncate(xxhash.Sum64(canonicalBytes(k)))
	}
}

// DefaultRingHasher is the library's default RingHasher: 32-bit FNV-1a,
// a cheap, allocation-free mixer well suited to the small,
// short-lived label strings the ring constructs at topology-mutation time.
func DefaultRingHasher() RingHasher {
	return func(label string) uint32 {
		const (
			offset32 = 2166136261
			prime32  = 16777619
		)
		h := uint32(offset32)
		for i := 0; i < len(label); i++ {
			h ^= uint32(label[i])
			h *= prime32
		}
		return h
	}
}

// StableKeyDigest returns a 64-bit xxHash digest of k's canonical byte form,
// independent of process, locale, and bitness. The migration planner uses
// it (spec §4.8) to break ties deterministically between moves that share
// a (Source, Target) pair.
func StableKeyDigest[K comparable](k K) uint64 {
	return xxhash.Sum64(canonicalBytes(k))
}

func truncate(h uint64) uint32 {
	return uint32(h ^ (h >> 32))
}

func canonicalBytes[K comparable](k K) []byte {
	switch v := any(k).(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case [16]byte:
		return v[:]
	case [32]byte:
		return v[:]
	case int:
		return leBytes(uint64(v))
	case int8:
		return leBytes(uint64(uint8(v)))
	case int16:
		return leBytes(uint64(uint16(v)))
	case int32:
		return leBytes(uint64(uint32(v)))
	case int64:
		return leBytes(uint64(v))
	case uint:
		return leBytes(uint64(v))
	case uint8:
		return leBytes(uint64(v))
	case uint16:
		return leBytes(uint64(v))
	case uint32:
		return leBytes(uint64(v))
	case uint64:
		return leBytes(v)
	case uintptr:
		return leBytes(uint64(v))
	case fmt.Stringer:
		return []byte(v.String())
	default:
		panic(fmt.Sprintf("hashring: unsupported key type %T; convert the key to string or supply a custom KeyHasher", k))
	}
}

func leBytes(u uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
	return b
}
