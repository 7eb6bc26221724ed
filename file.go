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
 *
 * https://www.kernel.org/doc/html/v5.8/filesystems/squashfs.html
 */

package squashfs

import "io"

// File is a seekable, read-only view over a regular file's contents,
// stitching together full-size data blocks with the optional shared tail
// fragment. It implements io.Reader, io.Seeker and io.Closer (Close is a
// no-op: the underlying image stays open until the Handle is closed).
//
// Grounded on the teacher's readInodeFileData, generalized from "read the
// whole file up front" to block-at-a-time per spec.md §4.8, and
// corroborated by go-diskfs's squashfs.File.Read (same contiguous-blocks-
// plus-fragment-tail split).
type File struct {
	h     *Handle
	inode *Inode

	size      int64
	blockSize int64
	pos       int64

	// blockOffsets[i] is the absolute on-disk offset of full data block i.
	blockOffsets []int64
	numFullBlocks int

	curBlockIdx  int
	curBlockData []byte
	haveCur      bool

	fragEntry fragmentEntry
	fragStart uint32 // offset within the decompressed fragment block
}

func newFile(h *Handle, inode *Inode) (*File, error) {
	f := &File{
		h:             h,
		inode:         inode,
		size:          int64(inode.Size),
		blockSize:     int64(h.sb.BlockSize),
		numFullBlocks: len(inode.BlockSizes),
	}

	offset := int64(inode.StartBlock)
	f.blockOffsets = make([]int64, len(inode.BlockSizes))
	for i, entry := range inode.BlockSizes {
		f.blockOffsets[i] = offset
		offset += int64(BlockCompressedLen(entry))
	}

	if inode.HasFragment() {
		entry, err := h.fragmentEntry(int(inode.FragIndex))
		if err != nil {
			return nil, err
		}
		f.fragEntry = entry
		f.fragStart = inode.FragOffset
	}

	return f, nil
}

// Size returns the file's logical size.
func (f *File) Size() int64 { return f.size }

func (f *File) Close() error { return nil }

// Seek repositions the file without doing any I/O; the next Read triggers
// whatever decompression that position needs.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = f.size + offset
	default:
		return 0, newErr(KindInvalidPath, -1, "invalid whence", nil)
	}
	if newPos < 0 || newPos > f.size {
		return 0, newErr(KindIo, -1, "seek position out of range", nil)
	}
	f.pos = newPos
	return f.pos, nil
}

// Read implements io.Reader.
func (f *File) Read(buf []byte) (int, error) {
	if f.pos >= f.size {
		return 0, io.EOF
	}

	total := 0
	for total < len(buf) && f.pos < f.size {
		blockIdx := int(f.pos / f.blockSize)

		var (
			data       []byte
			withinBlck int64
			err        error
		)
		if blockIdx < f.numFullBlocks {
			data, err = f.fullBlock(blockIdx)
			if err != nil {
				return total, err
			}
			withinBlck = f.pos - int64(blockIdx)*f.blockSize
		} else {
			data, err = f.fragmentBlock()
			if err != nil {
				return total, err
			}
			localTail := f.pos - int64(f.numFullBlocks)*f.blockSize
			withinBlck = int64(f.fragStart) + localTail
		}

		if withinBlck < 0 || withinBlck > int64(len(data)) {
			return total, newErr(KindTruncated, -1, "block shorter than expected for this offset", nil)
		}

		avail := data[withinBlck:]
		if remaining := f.size - f.pos; int64(len(avail)) > remaining {
			avail = avail[:remaining]
		}
		n := copy(buf[total:], avail)
		if n == 0 {
			break
		}
		total += n
		f.pos += int64(n)
	}
	return total, nil
}

// fullBlock returns the decompressed bytes of data block idx, decompressing
// and caching it if it isn't the block already in hand. Only one full
// block is ever retained: a single file reading linearly needs at most
// one at a time, and the decompressed block belongs to this file alone
// (unlike a fragment, which is shared, it isn't worth keeping indefinitely).
func (f *File) fullBlock(idx int) ([]byte, error) {
	if f.haveCur && f.curBlockIdx == idx {
		return f.curBlockData, nil
	}

	entry := f.inode.BlockSizes[idx]
	onDiskLen := BlockCompressedLen(entry)
	stored := BlockStored(entry)

	raw := make([]byte, onDiskLen)
	if onDiskLen > 0 {
		if _, err := f.h.src.ReadAt(raw, f.blockOffsets[idx]); err != nil {
			return nil, wrapIo(f.blockOffsets[idx], "reading data block", err)
		}
	}

	data, err := decompressBlock(f.h.backend, raw, stored, int(f.blockSize))
	if err != nil {
		return nil, err
	}

	f.curBlockIdx = idx
	f.curBlockData = data
	f.haveCur = true
	return data, nil
}

// fragmentBlock returns the decompressed bytes of this file's shared
// fragment block, via the image-wide fragment cache: many small files'
// tails live in the same fragment block, and re-decompressing it per file
// would be the single biggest avoidable cost on a full-tree dump.
func (f *File) fragmentBlock() ([]byte, error) {
	if cached, ok := f.h.fragCache.get(f.fragEntry.Start); ok {
		return cached, nil
	}

	raw := make([]byte, f.fragEntry.Size)
	if f.fragEntry.Size > 0 {
		if _, err := f.h.src.ReadAt(raw, f.fragEntry.Start); err != nil {
			return nil, wrapIo(f.fragEntry.Start, "reading fragment block", err)
		}
	}

	data, err := decompressBlock(f.h.backend, raw, f.fragEntry.Stored, int(f.blockSize))
	if err != nil {
		return nil, err
	}
	f.h.fragCache.put(f.fragEntry.Start, data)
	return data, nil
}

// ReadAll reads the file's entire contents. Convenience wrapper used by
// tests and by callers that don't need streaming.
func ReadAll(f *File) ([]byte, error) {
	buf := make([]byte, f.Size())
	_, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}
