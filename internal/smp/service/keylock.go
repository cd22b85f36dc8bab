package service

import (
	"hash/fnv"
	"sync"
)

// numKeyShards bounds the number of mutexes guarding each key space.
const numKeyShards = 128

// keyLocks serializes writes per registration key across the metadata and
// redirect registries, which each only lock themselves. Distinct keys may
// share a shard.
type keyLocks struct {
	shards [numKeyShards]sync.Mutex
}

func (l *keyLocks) lock(key string) func() {
	m := &l.shards[shardOf(key)]
	m.Lock()
	return m.Unlock
}

// groupLocks orders group lifecycle changes against writes beneath a group.
// Creating or deleting a group holds the write side; saving a registration
// or a business card holds the read side for the whole write, so nothing is
// stored under a group whose cascade already ran.
type groupLocks struct {
	shards [numKeyShards]sync.RWMutex
}

func (l *groupLocks) lock(key string) func() {
	m := &l.shards[shardOf(key)]
	m.Lock()
	return m.Unlock
}

func (l *groupLocks) rlock(key string) func() {
	m := &l.shards[shardOf(key)]
	m.RLock()
	return m.RUnlock
}

func shardOf(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numKeyShards
}
