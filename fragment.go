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
	"io"

	"github.com/sqfsgo/squashfs/internal"
)

// fragmentEntrySize is 16 bytes on disk: 8-byte start offset, 4-byte
// on-disk size (with the compression flag in its high bit), 4 bytes
// unused. Grounded on original_source/squinter's FragmentEntry, whose
// FromBytes::BYTE_SIZE is 16 even though only the first 12 bytes are
// meaningful.
const fragmentEntrySize = 16
const fragmentsPerBlock = internal.MetadataBlockSize / fragmentEntrySize

// fragmentEntry is one row of the fragment lookup table: where the shared
// fragment block lives and how large its on-disk (possibly compressed)
// payload is.
type fragmentEntry struct {
	Start  int64
	Size   uint32
	Stored bool
}

type fragmentTable struct {
	blockPtrs []int64
	count     int
}

func loadFragmentTable(src io.ReaderAt, tableStart int64, count int) (*fragmentTable, error) {
	if count == 0 {
		return &fragmentTable{count: 0}, nil
	}
	blockCount := (count + fragmentsPerBlock - 1) / fragmentsPerBlock
	buf := make([]byte, blockCount*8)
	if _, err := src.ReadAt(buf, tableStart); err != nil {
		return nil, wrapIo(tableStart, "reading fragment table block pointers", err)
	}
	ptrs := make([]int64, blockCount)
	for i := range ptrs {
		ptrs[i] = internal.ReadInt64(buf[i*8:])
	}
	return &fragmentTable{blockPtrs: ptrs, count: count}, nil
}

func (t *fragmentTable) lookup(m *metadataReader, idx int) (fragmentEntry, error) {
	if idx < 0 || idx >= t.count {
		return fragmentEntry{}, newErr(KindInvalidInode, -1, "fragment table index out of range", nil)
	}
	blockIdx := idx / fragmentsPerBlock
	offsetInBlock := (idx % fragmentsPerBlock) * fragmentEntrySize

	if err := m.seek(t.blockPtrs[blockIdx], offsetInBlock); err != nil {
		return fragmentEntry{}, err
	}
	buf := make([]byte, 12)
	if err := m.read(buf); err != nil {
		return fragmentEntry{}, err
	}

	rawSize := internal.ReadUint32(buf[8:])
	return fragmentEntry{
		Start:  internal.ReadInt64(buf[0:]),
		Size:   rawSize & internal.DataBlockSizeMask,
		Stored: rawSize&internal.FragmentUncompressedFlag != 0,
	}, nil
}
