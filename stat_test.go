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
	"io/fs"

	"github.com/sqfsgo/squashfs/internal"
	. "gopkg.in/check.v1"
)

type statSuite struct{}

var _ = Suite(&statSuite{})

func (s *statSuite) TestFileModeFromInodeDirectory(c *C) {
	n := &Inode{Type: internal.InodeTypeDirectory, Mode: 0o755}
	mode := fileModeFromInode(n)
	c.Check(mode.IsDir(), Equals, true)
	c.Check(mode.Perm(), Equals, fs.FileMode(0o755))
}

func (s *statSuite) TestFileModeFromInodeSymlink(c *C) {
	n := &Inode{Type: internal.InodeTypeExtendedSymlink, Mode: 0o777}
	mode := fileModeFromInode(n)
	c.Check(mode&fs.ModeSymlink, Equals, fs.ModeSymlink)
}

func (s *statSuite) TestFileModeFromInodeCharDevice(c *C) {
	n := &Inode{Type: internal.InodeTypeCharDev, Mode: 0o600}
	mode := fileModeFromInode(n)
	c.Check(mode&fs.ModeCharDevice, Equals, fs.ModeCharDevice)
	c.Check(mode&fs.ModeDevice, Equals, fs.ModeDevice)
}

func (s *statSuite) TestFileModeFromInodeRegularFileHasNoTypeBits(c *C) {
	n := &Inode{Type: internal.InodeTypeFile, Mode: 0o644}
	mode := fileModeFromInode(n)
	c.Check(mode, Equals, fs.FileMode(0o644))
}

func (s *statSuite) TestDirEntryInfoDecodesTargetInode(c *C) {
	var inodeBody bytes.Buffer
	putUint16(&inodeBody, internal.InodeTypeDirectory)
	putUint16(&inodeBody, 0o755)
	putUint16(&inodeBody, 0) // uid idx
	putUint16(&inodeBody, 0) // gid idx
	putUint32(&inodeBody, 1700000000)
	putUint32(&inodeBody, 7) // inode number
	putUint32(&inodeBody, 0) // dir block
	putUint32(&inodeBody, 2) // nlink
	putUint16(&inodeBody, 3) // dir size (empty)
	putUint16(&inodeBody, 0) // dir offset
	putUint32(&inodeBody, 1) // parent ino

	var raw bytes.Buffer
	putStoredBlock(&raw, inodeBody.Bytes())

	var idBody bytes.Buffer
	putUint32(&idBody, 0) // id #0 -> uid/gid 0
	idMetaOffset := int64(raw.Len())
	putStoredBlock(&raw, idBody.Bytes())

	src := bytes.NewReader(raw.Bytes())

	h := &Handle{
		src:     src,
		sb:      &Superblock{InodeTableStart: 0},
		backend: &identityBackend{},
		cache:   newBlockCache(),
		idT:     &idTable{blockPtrs: []int64{idMetaOffset}, count: 1},
	}
	h.inodeMD = newMetadataReader(src, h.backend, h.cache, 0)
	h.idMD = newMetadataReader(src, h.backend, h.cache, idMetaOffset)

	e := DirEntry{h: h, name: "sub", ref: internal.MetadataRef{Block: 0, Offset: 0}, typ: internal.InodeTypeDirectory}

	fi, err := e.Info()
	c.Assert(err, IsNil)
	c.Check(fi.Name(), Equals, "sub")
	c.Check(fi.IsDir(), Equals, true)
}
