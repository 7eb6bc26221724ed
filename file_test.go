// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2021 Canonical Ltd
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
	"io"

	"github.com/sqfsgo/squashfs/internal"
	. "gopkg.in/check.v1"
)

type fileSuite struct{}

var _ = Suite(&fileSuite{})

// countingReaderAt wraps a ReaderAt and counts how many times ReadAt lands
// at each offset, so a test can assert a block is only ever fetched once.
type countingReaderAt struct {
	io.ReaderAt
	reads map[int64]int
}

func newCountingReaderAt(data []byte) *countingReaderAt {
	return &countingReaderAt{ReaderAt: bytes.NewReader(data), reads: make(map[int64]int)}
}

func (r *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r.reads[off]++
	return r.ReaderAt.ReadAt(p, off)
}

// identityBackend treats its input as already-decompressed, just copying
// it to dst and counting how many times it was asked to.
type identityBackend struct{ calls int }

func (b *identityBackend) Decompress(src, dst []byte) (int, error) {
	b.calls++
	n := copy(dst, src)
	return n, nil
}

func (s *fileSuite) TestReadSpansFullBlocksAndFragmentTail(c *C) {
	const blockSize = 16
	block0 := bytes.Repeat([]byte("A"), blockSize)
	block1 := bytes.Repeat([]byte("B"), blockSize)
	fragPadding := []byte("----------") // unrelated bytes before our tail
	tail := []byte("TAIL!")

	var img bytes.Buffer
	img.Write(block0)
	img.Write(block1)
	fragStart := int64(img.Len())
	img.Write(fragPadding)
	img.Write(tail)

	h := &Handle{
		src:       bytes.NewReader(img.Bytes()),
		sb:        &Superblock{BlockSize: blockSize},
		backend:   &identityBackend{},
		fragCache: newFragmentCache(),
	}
	n := &Inode{
		Type:       internal.InodeTypeFile,
		Size:       uint64(2*blockSize + len(tail)),
		StartBlock: 0,
		FragIndex:  0,
		FragOffset: uint32(len(fragPadding)),
		BlockSizes: []uint32{blockSize, blockSize},
	}

	f := &File{
		h:             h,
		inode:         n,
		size:          int64(n.Size),
		blockSize:     blockSize,
		numFullBlocks: len(n.BlockSizes),
		blockOffsets:  []int64{0, blockSize},
		fragEntry:     fragmentEntry{Start: fragStart, Size: uint32(len(fragPadding) + len(tail))},
		fragStart:     n.FragOffset,
	}

	got, err := ReadAll(f)
	c.Assert(err, IsNil)
	want := append(append(append([]byte{}, block0...), block1...), tail...)
	c.Check(got, DeepEquals, want)
}

func (s *fileSuite) TestSeekThenReadMidBlock(c *C) {
	const blockSize = 8
	block := []byte("0123456789ABCDEF") // two blocks of 8

	h := &Handle{
		src:     bytes.NewReader(block),
		sb:      &Superblock{BlockSize: blockSize},
		backend: &identityBackend{},
	}
	n := &Inode{
		Type:       internal.InodeTypeFile,
		Size:       uint64(len(block)),
		StartBlock: 0,
		FragIndex:  internal.NoFragment,
		BlockSizes: []uint32{blockSize, blockSize},
	}

	f, err := newFile(h, n)
	c.Assert(err, IsNil)

	pos, err := f.Seek(10, io.SeekStart)
	c.Assert(err, IsNil)
	c.Check(pos, Equals, int64(10))

	buf := make([]byte, 4)
	nRead, err := f.Read(buf)
	c.Assert(err, IsNil)
	c.Check(string(buf[:nRead]), Equals, "ABCD")
}

func (s *fileSuite) TestRereadingSameBlockDoesNotRefetch(c *C) {
	const blockSize = 8
	block := []byte("0123456789ABCDEF")
	src := newCountingReaderAt(block)

	h := &Handle{
		src:     src,
		sb:      &Superblock{BlockSize: blockSize},
		backend: &identityBackend{},
	}
	n := &Inode{
		Type:       internal.InodeTypeFile,
		Size:       uint64(len(block)),
		StartBlock: 0,
		FragIndex:  internal.NoFragment,
		BlockSizes: []uint32{blockSize, blockSize},
	}

	f, err := newFile(h, n)
	c.Assert(err, IsNil)

	buf := make([]byte, 2)
	for i := 0; i < 4; i++ {
		_, err := f.Seek(0, io.SeekStart)
		c.Assert(err, IsNil)
		_, err = f.Read(buf)
		c.Assert(err, IsNil)
	}
	c.Check(src.reads[0], Equals, 1)
}

func (s *fileSuite) TestFragmentDecompressedOnceAcrossFiles(c *C) {
	const blockSize = 16
	tail := []byte("shared-tail")

	backend := &identityBackend{}
	h := &Handle{
		src:       bytes.NewReader(tail),
		sb:        &Superblock{BlockSize: blockSize},
		backend:   backend,
		fragCache: newFragmentCache(),
	}

	entry := fragmentEntry{Start: 0, Size: uint32(len(tail))}
	n1 := &Inode{Type: internal.InodeTypeFile, Size: uint64(len(tail)), FragIndex: 0}
	n2 := &Inode{Type: internal.InodeTypeFile, Size: uint64(len(tail)), FragIndex: 0}

	f1 := &File{h: h, inode: n1, size: int64(n1.Size), blockSize: blockSize, fragEntry: entry}
	f2 := &File{h: h, inode: n2, size: int64(n2.Size), blockSize: blockSize, fragEntry: entry}

	got1, err := ReadAll(f1)
	c.Assert(err, IsNil)
	got2, err := ReadAll(f2)
	c.Assert(err, IsNil)

	c.Check(string(got1), Equals, string(tail))
	c.Check(string(got2), Equals, string(tail))
	c.Check(backend.calls, Equals, 1)
}
