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

import (
	"bytes"

	. "gopkg.in/check.v1"
)

type metadataSuite struct{}

var _ = Suite(&metadataSuite{})

// putStoredBlock appends one metadata block with the stored (uncompressed)
// bit set, so tests never need a real compressor.
func putStoredBlock(buf *bytes.Buffer, payload []byte) {
	header := uint16(len(payload)) | 0x8000
	buf.WriteByte(byte(header))
	buf.WriteByte(byte(header >> 8))
	buf.Write(payload)
}

func (s *metadataSuite) TestReadAcrossBlockBoundary(c *C) {
	var raw bytes.Buffer
	putStoredBlock(&raw, []byte("0123456789"))
	putStoredBlock(&raw, []byte("ABCDE"))

	m := newMetadataReader(bytes.NewReader(raw.Bytes()), nil, newBlockCache(), 0)
	c.Assert(m.seek(0, 5), IsNil)

	got := make([]byte, 10)
	c.Assert(m.read(got), IsNil)
	c.Check(string(got), Equals, "56789ABCDE")
}

func (s *metadataSuite) TestSeekReusesCachedBlock(c *C) {
	var raw bytes.Buffer
	putStoredBlock(&raw, []byte("hello world"))

	cache := newBlockCache()
	m := newMetadataReader(bytes.NewReader(raw.Bytes()), nil, cache, 0)
	c.Assert(m.seek(0, 0), IsNil)
	first := make([]byte, 5)
	c.Assert(m.read(first), IsNil)

	// Re-seeking to the same block/offset should yield identical bytes,
	// served from the cache rather than re-reading the source.
	c.Assert(m.seek(0, 0), IsNil)
	second := make([]byte, 5)
	c.Assert(m.read(second), IsNil)
	c.Check(second, DeepEquals, first)

	_, ok := cache.get(0)
	c.Check(ok, Equals, true)
}

func (s *metadataSuite) TestPositionTracksBlockAndOffset(c *C) {
	var raw bytes.Buffer
	putStoredBlock(&raw, []byte("abcdefgh"))

	m := newMetadataReader(bytes.NewReader(raw.Bytes()), nil, newBlockCache(), 0)
	c.Assert(m.seek(0, 3), IsNil)
	buf := make([]byte, 2)
	c.Assert(m.read(buf), IsNil)

	block, offset := m.position()
	c.Check(block, Equals, int64(0))
	c.Check(offset, Equals, 5)
}

func (s *metadataSuite) TestSeekPastBlockEndErrors(c *C) {
	var raw bytes.Buffer
	putStoredBlock(&raw, []byte("abc"))

	m := newMetadataReader(bytes.NewReader(raw.Bytes()), nil, newBlockCache(), 0)
	err := m.seek(0, 99)
	c.Assert(err, NotNil)
	c.Check(err.(*Error).Kind, Equals, KindInvalidMetadataHeader)
}
