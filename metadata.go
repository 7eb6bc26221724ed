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
 *
 * https://www.kernel.org/doc/html/v5.8/filesystems/squashfs.html
 */

package squashfs

import (
	"io"

	"github.com/sqfsgo/squashfs/internal"
	"github.com/sqfsgo/squashfs/internal/tracelog"
)

// metadataReader presents the chain of 8 KiB metadata blocks starting at a
// given absolute image offset as one seekable byte stream, hiding the
// 48/16 (block_start, offset) split from every caller. This is the type
// the design notes ask to centralize the split in; nothing else in the
// package parses a metadata block header directly.
//
// Grounded on the teacher's metaBlockReader, whose constructor
// (metablockReaderCreate) and read/seek methods were referenced but never
// implemented in the prototype.
type metadataReader struct {
	src     io.ReaderAt
	backend CompressionBackend
	cache   *blockCache

	block int64  // absolute offset of the current block's 2-byte header
	data  []byte // decompressed payload of the current block
	pos   int    // read position within data
}

func newMetadataReader(src io.ReaderAt, backend CompressionBackend, cache *blockCache, start int64) *metadataReader {
	return &metadataReader{
		src:     src,
		backend: backend,
		cache:   cache,
		block:   start,
	}
}

// seek positions the stream at the given metadata reference, loading and
// decompressing the target block through the cache if it isn't already in
// hand. Re-seeking to the same (block, offset) and reading N bytes always
// yields the same bytes, since the cache entry is immutable once filled.
func (m *metadataReader) seek(block int64, offset int) error {
	if m.data == nil || m.block != block {
		data, err := m.loadBlock(block)
		if err != nil {
			return err
		}
		m.block = block
		m.data = data
	}
	if offset > len(m.data) {
		return newErr(KindInvalidMetadataHeader, block, "metadata offset past end of decompressed block", nil)
	}
	m.pos = offset
	return nil
}

// position reports the current (block, offset) pair.
func (m *metadataReader) position() (int64, int) {
	return m.block, m.pos
}

// read fills buf, transparently crossing block boundaries.
func (m *metadataReader) read(buf []byte) error {
	if m.data == nil {
		data, err := m.loadBlock(m.block)
		if err != nil {
			return err
		}
		m.data = data
	}

	for len(buf) > 0 {
		if m.pos >= len(m.data) {
			next, err := m.advance()
			if err != nil {
				return err
			}
			m.block = next
			data, err := m.loadBlock(next)
			if err != nil {
				return err
			}
			m.data = data
			m.pos = 0
		}

		n := copy(buf, m.data[m.pos:])
		m.pos += n
		buf = buf[n:]
	}
	return nil
}

// advance computes the absolute offset of the block following the current
// one: header (2 bytes) plus the current block's on-disk payload length.
func (m *metadataReader) advance() (int64, error) {
	entry, ok := m.cache.get(m.block)
	if !ok {
		// Should not happen: loadBlock always populates the cache on
		// success before returning.
		return 0, newErr(KindInvalidMetadataHeader, m.block, "metadata block missing from cache", nil)
	}
	return m.block + 2 + int64(entry.onDiskLen), nil
}

// loadBlock returns the decompressed payload for the block at offset,
// filling the cache on a miss. Errors during a fill are reported to the
// caller and nothing is inserted, so the next attempt retries.
func (m *metadataReader) loadBlock(offset int64) ([]byte, error) {
	if entry, ok := m.cache.get(offset); ok {
		return entry.data, nil
	}

	header := make([]byte, 2)
	if _, err := m.src.ReadAt(header, offset); err != nil {
		return nil, wrapIo(offset, "reading metadata block header", err)
	}
	raw := internal.ReadUint16(header)
	stored := raw&0x8000 != 0
	onDiskLen := int(raw &^ 0x8000)

	payload := make([]byte, onDiskLen)
	if onDiskLen > 0 {
		if _, err := m.src.ReadAt(payload, offset+2); err != nil {
			return nil, wrapIo(offset+2, "reading metadata block payload", err)
		}
	}

	data, err := decompressBlock(m.backend, payload, stored, internal.MetadataBlockSize)
	if err != nil {
		return nil, err
	}

	tracelog.Tracef("decompressed metadata block at %d (%d -> %d bytes, stored=%v)", offset, onDiskLen, len(data), stored)
	m.cache.put(offset, metadataBlockEntry{data: data, onDiskLen: onDiskLen})
	return data, nil
}
