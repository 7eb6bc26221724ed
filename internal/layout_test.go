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

package internal

import (
	. "gopkg.in/check.v1"
)

type layoutSuite struct{}

var _ = Suite(&layoutSuite{})

func (s *layoutSuite) TestMetadataRefRoundTrip(c *C) {
	ref := MetadataRef{Block: 1 << 30, Offset: 0x1fff}
	got := ParseMetadataRef(ref.Encode())
	c.Check(got, Equals, ref)
}

func (s *layoutSuite) TestMetadataRefZero(c *C) {
	c.Check(ParseMetadataRef(0), Equals, MetadataRef{Block: 0, Offset: 0})
}

func (s *layoutSuite) TestDataBlockSizeMaskExcludesFlag(c *C) {
	entry := uint32(4096) | DataBlockUncompressedFlag
	c.Check(entry&DataBlockSizeMask, Equals, uint32(4096))
	c.Check(entry&DataBlockUncompressedFlag, Equals, uint32(DataBlockUncompressedFlag))
}
