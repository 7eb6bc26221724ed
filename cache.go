// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2014-2018 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package squashfs

import "sync"

// metadataBlockEntry is what the metadata cache stores per block: the
// decompressed payload and the on-disk length of the block, the latter
// needed to compute the offset of the next block without re-reading the
// 2-byte header.
type metadataBlockEntry struct {
	data      []byte
	onDiskLen int
}

// blockCache memoizes decompressed blocks keyed by their absolute on-disk
// offset. It grows monotonically: nothing is ever evicted, per spec (v1
// caches are unbounded for the life of a Handle). Multiple lookups are
// safe to run concurrently; filling a miss is safe against concurrent
// fillers racing to decompress the same offset (the loser's work is
// discarded, not stored twice under different keys).
type blockCache struct {
	mu      sync.Mutex
	entries map[int64]metadataBlockEntry
}

func newBlockCache() *blockCache {
	return &blockCache{entries: make(map[int64]metadataBlockEntry)}
}

func (c *blockCache) get(offset int64) (metadataBlockEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[offset]
	return e, ok
}

func (c *blockCache) put(offset int64, e metadataBlockEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[offset] = e
}

// fragmentCache memoizes decompressed fragment blocks keyed by their
// absolute on-disk offset. Kept as a distinct type from blockCache (even
// though the implementation is identical) because the two caches answer
// different questions in the data model of §3/§4.4: one is metadata-block
// identity, the other is fragment-block identity, and aliasing them would
// be a bug if either key space ever grows a type-specific field.
type fragmentCache struct {
	mu      sync.Mutex
	entries map[int64][]byte
}

func newFragmentCache() *fragmentCache {
	return &fragmentCache{entries: make(map[int64][]byte)}
}

func (c *fragmentCache) get(offset int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[offset]
	return b, ok
}

func (c *fragmentCache) put(offset int64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[offset] = data
}
