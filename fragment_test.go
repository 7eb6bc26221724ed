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

type fragmentSuite struct{}

var _ = Suite(&fragmentSuite{})

func (s *fragmentSuite) TestLookupDecodesStoredFlag(c *C) {
	var metaBlock bytes.Buffer
	putUint64(&metaBlock, 0x10000)                                      // start
	putUint32(&metaBlock, 256|internal.FragmentUncompressedFlag)        // size, stored
	putUint32(&metaBlock, 0)                                            // padding

	var raw bytes.Buffer
	putStoredBlock(&raw, metaBlock.Bytes())
	tableStart := int64(raw.Len())
	putUint64(&raw, 0)

	src := bytes.NewReader(raw.Bytes())
	ft, err := loadFragmentTable(src, tableStart, 1)
	c.Assert(err, IsNil)

	m := newMetadataReader(src, nil, newBlockCache(), 0)
	e, err := ft.lookup(m, 0)
	c.Assert(err, IsNil)
	c.Check(e.Start, Equals, int64(0x10000))
	c.Check(e.Size, Equals, uint32(256))
	c.Check(e.Stored, Equals, true)
}

func (s *fragmentSuite) TestLookupCompressedFlagClear(c *C) {
	var metaBlock bytes.Buffer
	putUint64(&metaBlock, 0)
	putUint32(&metaBlock, 4096)
	putUint32(&metaBlock, 0)

	var raw bytes.Buffer
	putStoredBlock(&raw, metaBlock.Bytes())
	tableStart := int64(raw.Len())
	putUint64(&raw, 0)

	src := bytes.NewReader(raw.Bytes())
	ft, err := loadFragmentTable(src, tableStart, 1)
	c.Assert(err, IsNil)

	m := newMetadataReader(src, nil, newBlockCache(), 0)
	e, err := ft.lookup(m, 0)
	c.Assert(err, IsNil)
	c.Check(e.Stored, Equals, false)
	c.Check(e.Size, Equals, uint32(4096))
}

func (s *fragmentSuite) TestLookupOutOfRange(c *C) {
	ft, err := loadFragmentTable(bytes.NewReader(nil), 0, 0)
	c.Assert(err, IsNil)
	_, err = ft.lookup(nil, 0)
	c.Assert(err, NotNil)
	c.Check(err.(*Error).Kind, Equals, KindInvalidInode)
}
