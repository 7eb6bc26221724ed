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
)

// minBlockSize and maxBlockSize bound the superblock's block_size field to
// the range every mkfs-produced image stays within: 4 KiB to 1 MiB.
const (
	minBlockSize = 4096
	maxBlockSize = 1 << 20
)

// Superblock is the parsed 96-byte header at the start of every SquashFS
// image. Field names and layout follow §6 of the spec.
type Superblock struct {
	InodeCount      uint32
	ModificationTime uint32
	BlockSize       uint32
	FragmentCount   uint32
	CompressorID    uint16
	BlockLog        uint16
	Flags           uint16
	IdCount         uint16
	VersionMajor    uint16
	VersionMinor    uint16
	RootInodeRef    internal.MetadataRef
	BytesUsed       int64
	IdTableStart    int64
	XattrTableStart int64
	InodeTableStart int64
	DirTableStart   int64
	FragTableStart  int64
	ExportTableStart int64
}

func (sb *Superblock) hasFlag(bit uint16) bool { return sb.Flags&bit != 0 }

func parseSuperblock(data []byte) (*Superblock, error) {
	if len(data) < internal.SuperblockSize {
		return nil, newErr(KindTruncated, 0, "superblock shorter than 96 bytes", nil)
	}

	magic, _ := internal.CheckedUint32(data[0:])
	if magic != internal.Magic {
		return nil, newErr(KindNotSquashFs, 0, "bad magic", nil)
	}

	sb := &Superblock{}
	sb.InodeCount = internal.ReadUint32(data[4:])
	sb.ModificationTime = internal.ReadUint32(data[8:])
	sb.BlockSize = internal.ReadUint32(data[12:])
	sb.FragmentCount = internal.ReadUint32(data[16:])
	sb.CompressorID = internal.ReadUint16(data[20:])
	sb.BlockLog = internal.ReadUint16(data[22:])
	sb.Flags = internal.ReadUint16(data[24:])
	sb.IdCount = internal.ReadUint16(data[26:])
	sb.VersionMajor = internal.ReadUint16(data[28:])
	sb.VersionMinor = internal.ReadUint16(data[30:])
	sb.RootInodeRef = internal.ParseMetadataRef(internal.ReadUint64(data[32:]))
	sb.BytesUsed = internal.ReadInt64(data[40:])
	sb.IdTableStart = internal.ReadInt64(data[48:])
	sb.XattrTableStart = internal.ReadInt64(data[56:])
	sb.InodeTableStart = internal.ReadInt64(data[64:])
	sb.DirTableStart = internal.ReadInt64(data[72:])
	sb.FragTableStart = internal.ReadInt64(data[80:])
	sb.ExportTableStart = internal.ReadInt64(data[88:])

	if sb.VersionMajor != internal.VersionMajor || sb.VersionMinor != internal.VersionMinor {
		return nil, newErr(KindUnsupportedVersion, 0x1c, "only squashfs 4.0 is supported", nil)
	}

	if sb.BlockSize == 0 || sb.BlockSize&(sb.BlockSize-1) != 0 {
		return nil, newErr(KindInvalidMetadataHeader, 0xc, "block size is not a power of two", nil)
	}
	if sb.BlockSize < minBlockSize || sb.BlockSize > maxBlockSize {
		return nil, newErr(KindInvalidMetadataHeader, 0xc, "block size outside the 4 KiB-1 MiB range", nil)
	}
	if uint32(1)<<sb.BlockLog != sb.BlockSize {
		return nil, newErr(KindInvalidMetadataHeader, 0xc, "block size and block_log disagree", nil)
	}

	return sb, nil
}

func readSuperblock(src io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, internal.SuperblockSize)
	if _, err := src.ReadAt(buf, 0); err != nil {
		return nil, wrapIo(0, "reading superblock", err)
	}
	return parseSuperblock(buf)
}
