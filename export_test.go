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

type exportSuite struct{}

var _ = Suite(&exportSuite{})

func (s *exportSuite) TestLookupResolvesOneBasedInodeNumber(c *C) {
	ref := internal.MetadataRef{Block: 4096, Offset: 32}

	var metaBlock bytes.Buffer
	putUint64(&metaBlock, 0) // entry for inode #1 (unused in this test)
	putUint64(&metaBlock, ref.Encode())

	var raw bytes.Buffer
	putStoredBlock(&raw, metaBlock.Bytes())
	tableStart := int64(raw.Len())
	putUint64(&raw, 0)

	src := bytes.NewReader(raw.Bytes())
	et, err := loadExportTable(src, tableStart, 2)
	c.Assert(err, IsNil)

	m := newMetadataReader(src, nil, newBlockCache(), 0)
	got, err := et.lookup(m, 2)
	c.Assert(err, IsNil)
	c.Check(got, Equals, ref)
}

func (s *exportSuite) TestAbsentTableSentinel(c *C) {
	et, err := loadExportTable(bytes.NewReader(nil), noExportTable, 10)
	c.Assert(err, IsNil)
	c.Check(et.count, Equals, 0)
}

func (s *exportSuite) TestLookupInodeZeroIsOutOfRange(c *C) {
	et, err := loadExportTable(bytes.NewReader(nil), noExportTable, 0)
	c.Assert(err, IsNil)
	_, err = et.lookup(nil, 0)
	c.Assert(err, NotNil)
	c.Check(err.(*Error).Kind, Equals, KindNotFound)
}
