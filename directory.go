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

import (
	"strings"

	"github.com/sqfsgo/squashfs/internal"
	"github.com/sqfsgo/squashfs/internal/tracelog"
)

const (
	directoryHeaderSize = 12
	directoryEntrySize  = 8
)

// dirHeader introduces up to 256 entries sharing an inode-block base and an
// inode-number base for delta encoding.
type dirHeader struct {
	count       uint32
	inodeBlock  uint32
	inodeNumBase uint32
}

// rawDirEntry is one decoded entry, with its inode reference fully
// reconstructed (header.inodeBlock as the high bits, the entry's own
// offset as the low bits) and its inode number resolved from the header's
// base plus the entry's signed delta.
type rawDirEntry struct {
	InodeRef    internal.MetadataRef
	InodeNumber uint32
	Type        uint16
	Name        string
}

func readDirHeader(m *metadataReader) (dirHeader, error) {
	buf := make([]byte, directoryHeaderSize)
	if err := m.read(buf); err != nil {
		return dirHeader{}, err
	}
	return dirHeader{
		count:        internal.ReadUint32(buf[0:]),
		inodeBlock:   internal.ReadUint32(buf[4:]),
		inodeNumBase: internal.ReadUint32(buf[8:]),
	}, nil
}

func readDirEntry(m *metadataReader, h dirHeader) (rawDirEntry, int, error) {
	buf := make([]byte, directoryEntrySize)
	if err := m.read(buf); err != nil {
		return rawDirEntry{}, 0, err
	}

	offset := internal.ReadUint16(buf[0:])
	delta := internal.ReadInt16(buf[2:])
	etype := internal.ReadUint16(buf[4:])
	nameSize := internal.ReadUint16(buf[6:])

	// On disk, the stored size is (actual name length - 1); there is no
	// terminator byte.
	name := make([]byte, int(nameSize)+1)
	if err := m.read(name); err != nil {
		return rawDirEntry{}, 0, err
	}

	entry := rawDirEntry{
		InodeRef:    internal.MetadataRef{Block: int64(h.inodeBlock), Offset: int(offset)},
		InodeNumber: uint32(int64(h.inodeNumBase) + int64(delta)),
		Type:        etype,
		Name:        string(name),
	}
	bytesRead := directoryEntrySize + len(name)
	return entry, bytesRead, nil
}

// readDirectory decodes the full entry list of a directory given its
// (block, offset) reference and its logical size in bytes. SquashFS counts
// three phantom bytes in the stored size for the virtual '.' and '..'
// entries, which are never actually encoded, so the decoder stops at
// size-3 rather than size. Grounded verbatim on the teacher's
// directory.go loadEntries, including its "count is one less than
// specified" comment.
func readDirectory(m *metadataReader, ref internal.MetadataRef, size uint32) ([]rawDirEntry, error) {
	if size < internal.DirectoryEmptySize {
		return nil, newErr(KindInvalidDirectory, -1, "directory size smaller than the empty-directory minimum", nil)
	}
	if size == internal.DirectoryEmptySize {
		return nil, nil
	}
	if err := m.seek(ref.Block, ref.Offset); err != nil {
		return nil, err
	}

	budget := int(size) - internal.DirectoryEmptySize
	var entries []rawDirEntry
	bytesRead := 0
	for bytesRead < budget {
		h, err := readDirHeader(m)
		if err != nil {
			return entries, err
		}
		bytesRead += directoryHeaderSize

		if h.count >= internal.DirectoryMaxEntryCount {
			return entries, newErr(KindInvalidDirectory, -1, "directory header entry count out of range", nil)
		}

		// squashfs is littered with magic arithmetic: count is actually
		// one less than the number of entries that follow.
		for i := 0; i < int(h.count)+1; i++ {
			entry, n, err := readDirEntry(m, h)
			if err != nil {
				return entries, err
			}
			entries = append(entries, entry)
			bytesRead += n
		}
	}

	tracelog.Tracef("decoded directory at %d/%d: %d entries", ref.Block, ref.Offset, len(entries))
	return entries, nil
}

// splitPath splits an absolute, slash-delimited path into its non-empty
// components. Leading/trailing/doubled slashes collapse; no further
// normalization (".", "..") is performed — matching spec.md's "unnormalized
// components permitted".
func splitPath(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, newErr(KindInvalidPath, -1, "path must be absolute", nil)
	}
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps, nil
}

// findEntry looks up name among dir's entries without following symlinks.
func findEntry(entries []rawDirEntry, name string) (rawDirEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return rawDirEntry{}, false
}
