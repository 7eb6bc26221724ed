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
	"github.com/sqfsgo/squashfs/internal"
)

// Inode is the decoded form of one of the fourteen on-disk inode variants.
// Every field that doesn't apply to a given Type is left at its zero
// value; callers switch on Type (or use the IsDir/IsRegular/IsSymlink
// helpers) before reading type-specific fields, exactly as the on-disk
// format requires.
type Inode struct {
	Type   uint16
	Mode   uint16
	UidIdx uint16
	GidIdx uint16
	Mtime  uint32
	Number uint32

	// directory (basic and extended)
	Nlink      uint32
	DirSize    uint32
	DirBlock   uint32
	DirOffset  uint16
	ParentIno  uint32
	XattrIndex uint32

	// regular file (basic and extended)
	StartBlock  uint64
	FragIndex   uint32
	FragOffset  uint32
	Size        uint64
	BlockSizes  []uint32
	SparseBytes uint64

	// symlink
	Target []byte

	// device
	DevID uint32
}

func (n *Inode) IsDir() bool {
	return n.Type == internal.InodeTypeDirectory || n.Type == internal.InodeTypeExtendedDirectory
}

func (n *Inode) IsRegular() bool {
	return n.Type == internal.InodeTypeFile || n.Type == internal.InodeTypeExtendedFile
}

func (n *Inode) IsSymlink() bool {
	return n.Type == internal.InodeTypeSymlink || n.Type == internal.InodeTypeExtendedSymlink
}

func (n *Inode) HasFragment() bool {
	return n.IsRegular() && n.FragIndex != internal.NoFragment
}

// decodeInode reads one inode from m at its current position, dispatching
// on the leading type field. blockSize is needed to compute the length of
// a basic regular-file inode's block-size list, which the format does not
// prefix with an explicit count (see spec.md §3's invariant on
// fragment_index/file_size).
//
// Grounded on the teacher's inodeRegularRead (block-size-list loop) and on
// original_source/squinter's Inode::read match arms, extended here to
// cover every basic/extended variant named in spec.md §3.
func decodeInode(m *metadataReader, blockSize uint32) (*Inode, error) {
	head := make([]byte, 16)
	if err := m.read(head); err != nil {
		return nil, err
	}

	n := &Inode{
		Type:   internal.ReadUint16(head[0:]),
		Mode:   internal.ReadUint16(head[2:]),
		UidIdx: internal.ReadUint16(head[4:]),
		GidIdx: internal.ReadUint16(head[6:]),
		Mtime:  internal.ReadUint32(head[8:]),
		Number: internal.ReadUint32(head[12:]),
	}

	switch n.Type {
	case internal.InodeTypeDirectory:
		buf := make([]byte, 16)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.DirBlock = internal.ReadUint32(buf[0:])
		n.Nlink = internal.ReadUint32(buf[4:])
		n.DirSize = uint32(internal.ReadUint16(buf[8:]))
		n.DirOffset = internal.ReadUint16(buf[10:])
		n.ParentIno = internal.ReadUint32(buf[12:])

	case internal.InodeTypeExtendedDirectory:
		buf := make([]byte, 24)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])
		n.DirSize = internal.ReadUint32(buf[4:])
		n.DirBlock = internal.ReadUint32(buf[8:])
		n.ParentIno = internal.ReadUint32(buf[12:])
		indexCount := internal.ReadUint16(buf[16:])
		n.DirOffset = internal.ReadUint16(buf[18:])
		n.XattrIndex = internal.ReadUint32(buf[20:])
		// The i_count index entries that follow speed up large-directory
		// lookups in mkfs-produced images; this reader always does a
		// linear scan of the directory table, so they're skipped rather
		// than parsed.
		if err := skipDirIndex(m, int(indexCount)); err != nil {
			return nil, err
		}

	case internal.InodeTypeFile:
		buf := make([]byte, 16)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.StartBlock = uint64(internal.ReadUint32(buf[0:]))
		n.FragIndex = internal.ReadUint32(buf[4:])
		n.FragOffset = internal.ReadUint32(buf[8:])
		n.Size = uint64(internal.ReadUint32(buf[12:]))
		count := blockCountFor(n.Size, n.FragIndex, uint64(blockSize))
		sizes, err := readBlockSizes(m, count)
		if err != nil {
			return nil, err
		}
		n.BlockSizes = sizes

	case internal.InodeTypeExtendedFile:
		buf := make([]byte, 40)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.StartBlock = internal.ReadUint64(buf[0:])
		n.Size = internal.ReadUint64(buf[8:])
		n.SparseBytes = internal.ReadUint64(buf[16:])
		n.Nlink = internal.ReadUint32(buf[24:])
		n.FragIndex = internal.ReadUint32(buf[28:])
		n.FragOffset = internal.ReadUint32(buf[32:])
		n.XattrIndex = internal.ReadUint32(buf[36:])
		count := blockCountFor(n.Size, n.FragIndex, uint64(blockSize))
		sizes, err := readBlockSizes(m, count)
		if err != nil {
			return nil, err
		}
		n.BlockSizes = sizes

	case internal.InodeTypeSymlink, internal.InodeTypeExtendedSymlink:
		buf := make([]byte, 8)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])
		targetLen := internal.ReadUint32(buf[4:])
		target := make([]byte, targetLen)
		if err := m.read(target); err != nil {
			return nil, err
		}
		n.Target = target
		if n.Type == internal.InodeTypeExtendedSymlink {
			xbuf := make([]byte, 4)
			if err := m.read(xbuf); err != nil {
				return nil, err
			}
			n.XattrIndex = internal.ReadUint32(xbuf)
		}

	case internal.InodeTypeBlockDev, internal.InodeTypeCharDev:
		buf := make([]byte, 8)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])
		n.DevID = internal.ReadUint32(buf[4:])

	case internal.InodeTypeExtendedBlockDev, internal.InodeTypeExtendedCharDev:
		buf := make([]byte, 12)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])
		n.DevID = internal.ReadUint32(buf[4:])
		n.XattrIndex = internal.ReadUint32(buf[8:])

	case internal.InodeTypeFifo, internal.InodeTypeSocket:
		buf := make([]byte, 4)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])

	case internal.InodeTypeExtendedFifo, internal.InodeTypeExtendedSocket:
		buf := make([]byte, 8)
		if err := m.read(buf); err != nil {
			return nil, err
		}
		n.Nlink = internal.ReadUint32(buf[0:])
		n.XattrIndex = internal.ReadUint32(buf[4:])

	default:
		return nil, newErr(KindInvalidInode, -1, "unknown inode type", nil)
	}

	return n, nil
}

// blockCountFor mirrors the invariant in spec.md §3: when there's no tail
// fragment, file_size is covered entirely by dedicated blocks (rounded
// up); when there is one, only the full-block portion is dedicated.
func blockCountFor(size uint64, fragIndex uint32, blockSize uint64) int {
	if fragIndex == internal.NoFragment {
		count := size / blockSize
		if size%blockSize != 0 {
			count++
		}
		return int(count)
	}
	return int(size / blockSize)
}

func readBlockSizes(m *metadataReader, count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	buf := make([]byte, count*4)
	if err := m.read(buf); err != nil {
		return nil, err
	}
	sizes := make([]uint32, count)
	for i := 0; i < count; i++ {
		sizes[i] = internal.ReadUint32(buf[i*4:])
	}
	return sizes, nil
}

// skipDirIndex consumes the variable-length directory-index entries that
// follow an extended-directory inode: each is a fixed 12-byte header
// (index, start, name_size) followed by name_size+1 bytes of name.
func skipDirIndex(m *metadataReader, count int) error {
	for i := 0; i < count; i++ {
		buf := make([]byte, 12)
		if err := m.read(buf); err != nil {
			return err
		}
		nameSize := internal.ReadUint32(buf[8:])
		if err := m.read(make([]byte, nameSize+1)); err != nil {
			return err
		}
	}
	return nil
}

// BlockCompressedLen and BlockStored decode one entry of an inode's
// block-size list, per spec.md §3 and §6.
func BlockStored(entry uint32) bool { return entry&internal.DataBlockUncompressedFlag != 0 }
func BlockCompressedLen(entry uint32) uint32 { return entry & internal.DataBlockSizeMask }
