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

// Package squashfs reads SquashFS v4.0 images: the read-only, block
// -compressed filesystem format used by Linux distribution installers,
// container base layers and embedded firmware. A Handle opens an image
// backed by any io.ReaderAt and resolves paths against it without ever
// materializing the whole tree in memory.
package squashfs

import (
	"io"
	"sync"
	"time"

	"github.com/sqfsgo/squashfs/internal"
	"github.com/sqfsgo/squashfs/internal/tracelog"
)

// maxSymlinkDepth bounds how many symlink hops path resolution will chase
// before giving up; SquashFS images are built from a real directory tree
// so genuine cycles shouldn't occur, but a hostile or corrupt image could
// construct one.
const maxSymlinkDepth = 40

// Handle is an open SquashFS image. It owns the compressor, the shared
// metadata-block cache, the fragment cache, and the three lookup tables,
// and is the receiver for every public operation in this package.
//
// spec.md §5 describes a Handle as meant for single-threaded use by one
// caller; the mutex here is a safety margin, not a concurrency feature —
// the metadataReaders it guards are single-cursor streams and would
// otherwise corrupt their position under concurrent calls.
type Handle struct {
	src     io.ReaderAt
	sb      *Superblock
	backend CompressionBackend

	cache     *blockCache
	fragCache *fragmentCache

	mu       sync.Mutex
	inodeMD  *metadataReader
	dirMD    *metadataReader
	idMD     *metadataReader
	fragMD   *metadataReader
	exportMD *metadataReader

	idT     *idTable
	fragT   *fragmentTable
	exportT *exportTable

	rootInode *Inode

	followSymlinks bool
}

// Open parses the superblock at the start of src, builds the configured
// compressor, and eagerly decodes the root inode; everything else (id,
// fragment and export table rows, non-root inodes, directory contents) is
// resolved lazily as operations ask for it.
func Open(src io.ReaderAt, opts ...OpenOption) (*Handle, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger != nil {
		tracelog.SetLogger(cfg.logger)
	}

	sb, err := readSuperblock(src)
	if err != nil {
		return nil, err
	}
	tracelog.Tracef("opened image: blockSize=%d inodes=%d compressor=%d", sb.BlockSize, sb.InodeCount, sb.CompressorID)

	// The compressor's own options block, when present, is itself encoded
	// as a metadata block compressed with that compressor's defaults —
	// squashfs-tools bootstraps it the same way: build once with no
	// options to read the options block, then rebuild with them applied.
	backend, err := newCompressionBackend(sb.CompressorID, nil)
	if err != nil {
		return nil, err
	}
	if sb.hasFlag(internal.FlagCompressorOptions) {
		bootstrapCache := newBlockCache()
		optionsMD := newMetadataReader(src, backend, bootstrapCache, int64(internal.SuperblockSize))
		backend, err = newCompressionBackend(sb.CompressorID, optionsMD)
		if err != nil {
			return nil, err
		}
	}

	cache := newBlockCache()
	fragCache := newFragmentCache()

	idT, err := loadIDTable(src, sb.IdTableStart, int(sb.IdCount))
	if err != nil {
		return nil, err
	}
	fragT, err := loadFragmentTable(src, sb.FragTableStart, int(sb.FragmentCount))
	if err != nil {
		return nil, err
	}
	exportCount := 0
	if sb.hasFlag(internal.FlagExportable) {
		exportCount = int(sb.InodeCount)
	}
	exportT, err := loadExportTable(src, sb.ExportTableStart, exportCount)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		src:            src,
		sb:             sb,
		backend:        backend,
		cache:          cache,
		fragCache:      fragCache,
		inodeMD:        newMetadataReader(src, backend, cache, sb.InodeTableStart),
		dirMD:          newMetadataReader(src, backend, cache, sb.DirTableStart),
		idMD:           newMetadataReader(src, backend, cache, sb.IdTableStart),
		fragMD:         newMetadataReader(src, backend, cache, sb.FragTableStart),
		exportMD:       newMetadataReader(src, backend, cache, sb.ExportTableStart),
		idT:            idT,
		fragT:          fragT,
		exportT:        exportT,
		followSymlinks: cfg.followSymlinks,
	}

	root, err := h.decodeInodeAt(sb.RootInodeRef)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		return nil, newErr(KindInvalidInode, -1, "root inode is not a directory", nil)
	}
	h.rootInode = root

	return h, nil
}

// decodeInodeAt decodes the inode at ref from the shared inode-table
// stream. Every inode lookup in the package funnels through here so the
// mutex and the stream are never touched from two places at once.
//
// ref.Block, like every directory-entry and directory-inode reference in
// the format, is stored on disk relative to the start of its table; it is
// translated to an absolute image offset here, the one place that needs
// to know it.
func (h *Handle) decodeInodeAt(ref internal.MetadataRef) (*Inode, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.inodeMD.seek(h.sb.InodeTableStart+ref.Block, ref.Offset); err != nil {
		return nil, err
	}
	return decodeInode(h.inodeMD, h.sb.BlockSize)
}

func (h *Handle) readDirectoryAt(ref internal.MetadataRef, size uint32) ([]rawDirEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	abs := internal.MetadataRef{Block: h.sb.DirTableStart + ref.Block, Offset: ref.Offset}
	return readDirectory(h.dirMD, abs, size)
}

func (h *Handle) resolveUid(idx uint16) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idT.lookup(h.idMD, int(idx))
}

func (h *Handle) fragmentEntry(idx int) (fragmentEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fragT.lookup(h.fragMD, idx)
}

// InodeByNumber resolves a 1-based inode number through the export table.
// Only meaningful when the image was built with NFS export support
// (spec.md §3's EXPORTABLE flag); callers that don't need it can ignore
// this entirely.
func (h *Handle) InodeByNumber(number uint32) (*Inode, error) {
	h.mu.Lock()
	ref, err := h.exportT.lookup(h.exportMD, number)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return h.decodeInodeAt(ref)
}

// resolve walks path from the root, returning the inode it names along
// with the absolute component list that actually got there (which can
// differ from the input when a symlink was followed).
func (h *Handle) resolve(path string) (*Inode, []string, error) {
	comps, err := splitPath(path)
	if err != nil {
		return nil, nil, err
	}
	return h.resolveFrom(h.rootInode, comps, 0)
}

// resolveFrom walks comps starting at the root, following symlinks at
// every component boundary — mid-path or final — only when
// h.followSymlinks is set; with the default false, a symlink used as a
// directory component fails the next iteration's IsDir check rather than
// being transparently followed. It recurses at depth+1 whenever a
// symlink target needs resolving from the root again, so a symlink's
// target is always expressed as an absolute component list before
// recursing.
func (h *Handle) resolveFrom(dir *Inode, comps []string, depth int) (*Inode, []string, error) {
	cur := dir
	var curPath []string

	for _, name := range comps {
		if !cur.IsDir() {
			return nil, nil, newErr(KindNotADirectory, -1, "path component is not a directory", nil)
		}
		entries, err := h.readDirectoryAt(internal.MetadataRef{Block: int64(cur.DirBlock), Offset: int(cur.DirOffset)}, cur.DirSize)
		if err != nil {
			return nil, nil, err
		}
		entry, ok := findEntry(entries, name)
		if !ok {
			return nil, nil, newErr(KindNotFound, -1, "no such file or directory", nil)
		}

		next, err := h.decodeInodeAt(entry.InodeRef)
		if err != nil {
			return nil, nil, err
		}
		curPath = append(append([]string{}, curPath...), name)

		if next.IsSymlink() && h.followSymlinks {
			if depth >= maxSymlinkDepth {
				return nil, nil, newErr(KindInvalidPath, -1, "too many levels of symlinks", nil)
			}
			targetComps := joinSymlinkTarget(curPath[:len(curPath)-1], string(next.Target))
			resolved, resolvedPath, err := h.resolveFrom(h.rootInode, targetComps, depth+1)
			if err != nil {
				return nil, nil, err
			}
			cur, curPath = resolved, resolvedPath
			continue
		}

		cur = next
	}
	return cur, curPath, nil
}

// joinSymlinkTarget resolves a symlink's stored target against the
// directory containing the symlink, handling "." and ".." the way a path
// is normally walked (unlike splitPath, which deliberately leaves "." and
// ".." in a caller-supplied path alone).
func joinSymlinkTarget(base []string, target string) []string {
	var comps []string
	if len(target) > 0 && target[0] == '/' {
		comps = nil
	} else {
		comps = append([]string{}, base...)
	}
	for _, c := range splitRaw(target) {
		switch c {
		case "", ".":
			continue
		case "..":
			if len(comps) > 0 {
				comps = comps[:len(comps)-1]
			}
		default:
			comps = append(comps, c)
		}
	}
	return comps
}

func splitRaw(p string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				out = append(out, p[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// ReadDir returns the directory entries at path, in on-disk order (which
// is not sorted, by design: spec.md makes no ordering guarantee, and
// imposing one would cost a full decode-then-sort on every call).
func (h *Handle) ReadDir(path string) ([]DirEntry, error) {
	n, _, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, newErr(KindNotADirectory, -1, "not a directory", nil)
	}

	raw, err := h.readDirectoryAt(internal.MetadataRef{Block: int64(n.DirBlock), Offset: int(n.DirOffset)}, n.DirSize)

	// readDirectory returns whatever it managed to decode alongside a
	// decode error for the entry it choked on; pass both on rather than
	// discarding the partial result, matching os.ReadDir's own shape.
	out := make([]DirEntry, len(raw))
	for i, e := range raw {
		out[i] = DirEntry{h: h, name: e.Name, ref: e.InodeRef, typ: e.Type}
	}
	return out, err
}

// statInode builds the public Stat for an already-decoded inode.
func (h *Handle) statInode(n *Inode, name string) (Stat, error) {
	uid, err := h.resolveUid(n.UidIdx)
	if err != nil {
		return Stat{}, err
	}
	gid, err := h.resolveUid(n.GidIdx)
	if err != nil {
		return Stat{}, err
	}

	size := int64(0)
	if n.IsRegular() {
		size = int64(n.Size)
	} else if n.IsSymlink() {
		size = int64(len(n.Target))
	}

	return Stat{
		name:    name,
		size:    size,
		mode:    fileModeFromInode(n),
		modTime: time.Unix(int64(n.Mtime), 0),
		uid:     uid,
		gid:     gid,
		nlink:   n.Nlink,
		ino:     n.Number,
		typ:     n.Type,
	}, nil
}

// Stat resolves path and returns its metadata, without following a
// trailing symlink component (the metadata of the link itself, not its
// target) unless the Handle was opened with WithFollowSymlinks.
func (h *Handle) Stat(path string) (Stat, error) {
	n, comps, err := h.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	name := "/"
	if len(comps) > 0 {
		name = comps[len(comps)-1]
	}
	return h.statInode(n, name)
}

// Metadata is an alias for Stat, named after the operation in spec.md §4.9.
func (h *Handle) Metadata(path string) (Stat, error) { return h.Stat(path) }

// OpenFile resolves path and returns a seekable reader over its contents.
// It errors with ErrNotAFile if path names anything other than a regular
// file (including a directory or an unresolved symlink).
func (h *Handle) OpenFile(path string) (*File, error) {
	n, _, err := h.resolve(path)
	if err != nil {
		return nil, err
	}
	if !n.IsRegular() {
		return nil, newErr(KindNotAFile, -1, "not a regular file", nil)
	}
	return newFile(h, n)
}

// Readlink resolves path with symlink following switched off for every
// component, the final one included, and returns the raw target bytes exactly as stored on disk (SquashFS
// symlink targets are arbitrary bytes, not necessarily valid UTF-8).
func (h *Handle) Readlink(path string) ([]byte, error) {
	saved := h.followSymlinks
	h.followSymlinks = false
	n, _, err := h.resolve(path)
	h.followSymlinks = saved
	if err != nil {
		return nil, err
	}
	if !n.IsSymlink() {
		return nil, newErr(KindInvalidPath, -1, "not a symlink", nil)
	}
	return n.Target, nil
}
