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

// exportEntrySize is 8 bytes: a metadata reference to the inode owning a
// given (1-based) inode number.
const exportEntrySize = 8
const exportsPerBlock = internal.MetadataBlockSize / exportEntrySize

// exportTable maps inode number → metadata reference for NFS-style
// export; absent entirely when the superblock's export_table offset is
// the all-ones sentinel or the EXPORTABLE flag is clear. It has no cycles
// by construction (spec.md §9) so it needs no cycle detection.
type exportTable struct {
	blockPtrs []int64
	count     int
}

const noExportTable = -1 // sentinel for export_table_start == 0xFFFFFFFFFFFFFFFF

func loadExportTable(src io.ReaderAt, tableStart int64, inodeCount int) (*exportTable, error) {
	if tableStart == noExportTable || inodeCount == 0 {
		return &exportTable{count: 0}, nil
	}
	blockCount := (inodeCount + exportsPerBlock - 1) / exportsPerBlock
	buf := make([]byte, blockCount*8)
	if _, err := src.ReadAt(buf, tableStart); err != nil {
		return nil, wrapIo(tableStart, "reading export table block pointers", err)
	}
	ptrs := make([]int64, blockCount)
	for i := range ptrs {
		ptrs[i] = internal.ReadInt64(buf[i*8:])
	}
	return &exportTable{blockPtrs: ptrs, count: inodeCount}, nil
}

// lookup resolves a 1-based inode number to the metadata reference of its
// inode.
func (t *exportTable) lookup(m *metadataReader, inodeNumber uint32) (internal.MetadataRef, error) {
	idx := int(inodeNumber) - 1
	if idx < 0 || idx >= t.count {
		return internal.MetadataRef{}, newErr(KindNotFound, -1, "inode number not present in export table", nil)
	}
	blockIdx := idx / exportsPerBlock
	offsetInBlock := (idx % exportsPerBlock) * exportEntrySize

	if err := m.seek(t.blockPtrs[blockIdx], offsetInBlock); err != nil {
		return internal.MetadataRef{}, err
	}
	buf := make([]byte, 8)
	if err := m.read(buf); err != nil {
		return internal.MetadataRef{}, err
	}
	return internal.ParseMetadataRef(internal.ReadUint64(buf)), nil
}
