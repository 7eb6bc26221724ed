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

	"github.com/sqfsgo/squashfs/internal"
	. "gopkg.in/check.v1"
)

type inodeSuite struct{}

var _ = Suite(&inodeSuite{})

func putUint64(buf *bytes.Buffer, v uint64) {
	putUint32(buf, uint32(v))
	putUint32(buf, uint32(v>>32))
}

func putCommonHeader(buf *bytes.Buffer, itype uint16) {
	putUint16(buf, itype)
	putUint16(buf, 0o644) // mode
	putUint16(buf, 1)     // uid idx
	putUint16(buf, 2)     // gid idx
	putUint32(buf, 1700000000)
	putUint32(buf, 9)
}

// readerFor wraps body in a single stored metadata block and returns a
// metadataReader seeked to its start, ready for decodeInode.
func readerFor(c *C, body []byte) *metadataReader {
	var raw bytes.Buffer
	putStoredBlock(&raw, body)
	m := newMetadataReader(bytes.NewReader(raw.Bytes()), nil, newBlockCache(), 0)
	c.Assert(m.seek(0, 0), IsNil)
	return m
}

func (s *inodeSuite) TestDecodeBasicDirectory(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeDirectory)
	putUint32(&buf, 1234) // dir block
	putUint32(&buf, 3)    // nlink
	putUint16(&buf, 42)   // dir size
	putUint16(&buf, 7)    // dir offset
	putUint32(&buf, 1)    // parent ino

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.IsDir(), Equals, true)
	c.Check(n.DirBlock, Equals, uint32(1234))
	c.Check(n.Nlink, Equals, uint32(3))
	c.Check(n.DirSize, Equals, uint32(42))
	c.Check(n.DirOffset, Equals, uint16(7))
	c.Check(n.ParentIno, Equals, uint32(1))
}

func (s *inodeSuite) TestDecodeExtendedDirectorySkipsIndex(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeExtendedDirectory)
	putUint32(&buf, 5)     // nlink
	putUint32(&buf, 100)   // dir size
	putUint32(&buf, 9999)  // dir block
	putUint32(&buf, 2)     // parent ino
	putUint16(&buf, 1)     // index count
	putUint16(&buf, 11)    // dir offset
	putUint32(&buf, internal.NoXattr)
	// one directory-index entry: index(4) + start(4) + name_size(4) + name
	putUint32(&buf, 0)
	putUint32(&buf, 0)
	putUint32(&buf, 2) // name_size (len-1)
	buf.WriteString("abc")

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.DirBlock, Equals, uint32(9999))
	c.Check(n.DirSize, Equals, uint32(100))
}

func (s *inodeSuite) TestDecodeBasicFileWithoutFragment(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeFile)
	putUint32(&buf, 4096)                  // start block
	putUint32(&buf, internal.NoFragment)   // fragment index
	putUint32(&buf, 0)                     // fragment offset
	putUint32(&buf, 200000)                // size: spans 2 blocks @ 131072
	putUint32(&buf, 500|internal.DataBlockUncompressedFlag)
	putUint32(&buf, 700)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.IsRegular(), Equals, true)
	c.Check(n.HasFragment(), Equals, false)
	c.Assert(n.BlockSizes, HasLen, 2)
	c.Check(BlockStored(n.BlockSizes[0]), Equals, true)
	c.Check(BlockCompressedLen(n.BlockSizes[0]), Equals, uint32(500))
	c.Check(BlockCompressedLen(n.BlockSizes[1]), Equals, uint32(700))
}

func (s *inodeSuite) TestDecodeBasicFileWithFragment(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeFile)
	putUint32(&buf, 4096)
	putUint32(&buf, 3)      // fragment index
	putUint32(&buf, 17)     // fragment offset
	putUint32(&buf, 100)    // size smaller than one block: zero full blocks
	// no block-size-list entries follow: count is 0

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.HasFragment(), Equals, true)
	c.Check(n.FragOffset, Equals, uint32(17))
	c.Check(n.BlockSizes, HasLen, 0)
}

func (s *inodeSuite) TestDecodeExtendedFile(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeExtendedFile)
	putUint64(&buf, 8192)               // start block
	putUint64(&buf, 300000)             // size
	putUint64(&buf, 0)                  // sparse
	putUint32(&buf, 1)                  // nlink
	putUint32(&buf, internal.NoFragment)
	putUint32(&buf, 0)
	putUint32(&buf, internal.NoXattr)
	putUint32(&buf, 111)
	putUint32(&buf, 222)
	putUint32(&buf, 333)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.Size, Equals, uint64(300000))
	c.Assert(n.BlockSizes, HasLen, 3)
}

func (s *inodeSuite) TestDecodeSymlink(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeSymlink)
	putUint32(&buf, 1) // nlink
	target := "../usr/bin/busybox"
	putUint32(&buf, uint32(len(target)))
	buf.WriteString(target)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.IsSymlink(), Equals, true)
	c.Check(string(n.Target), Equals, target)
}

func (s *inodeSuite) TestDecodeExtendedSymlinkReadsXattr(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeExtendedSymlink)
	putUint32(&buf, 1)
	target := "lib"
	putUint32(&buf, uint32(len(target)))
	buf.WriteString(target)
	putUint32(&buf, 55)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(string(n.Target), Equals, target)
	c.Check(n.XattrIndex, Equals, uint32(55))
}

func (s *inodeSuite) TestDecodeCharDevice(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeCharDev)
	putUint32(&buf, 1)
	putUint32(&buf, 0x0105)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.DevID, Equals, uint32(0x0105))
}

func (s *inodeSuite) TestDecodeFifo(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, internal.InodeTypeFifo)
	putUint32(&buf, 2)

	n, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, IsNil)
	c.Check(n.Nlink, Equals, uint32(2))
}

func (s *inodeSuite) TestDecodeUnknownTypeErrors(c *C) {
	var buf bytes.Buffer
	putCommonHeader(&buf, 0)

	_, err := decodeInode(readerFor(c, buf.Bytes()), 131072)
	c.Assert(err, NotNil)
	c.Check(err.(*Error).Kind, Equals, KindInvalidInode)
}
