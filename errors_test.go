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
	"errors"
	"io"

	. "gopkg.in/check.v1"
)

type errorsSuite struct{}

var _ = Suite(&errorsSuite{})

func (s *errorsSuite) TestErrorsIsMatchesKind(c *C) {
	err := newErr(KindNotFound, 123, "no such entry", nil)
	c.Check(errors.Is(err, ErrNotFound), Equals, true)
	c.Check(errors.Is(err, ErrNotADirectory), Equals, false)
}

func (s *errorsSuite) TestWrapIoUnwrapsToCause(c *C) {
	err := wrapIo(10, "reading superblock", io.ErrUnexpectedEOF)
	c.Check(errors.Is(err, ErrIo), Equals, true)
	c.Check(errors.Is(err, io.ErrUnexpectedEOF), Equals, true)
}

func (s *errorsSuite) TestErrorMessageIncludesOffset(c *C) {
	err := newErr(KindInvalidInode, 42, "bad type", nil)
	c.Check(err.Error(), Matches, ".*offset 42.*bad type.*")
}

func (s *errorsSuite) TestErrorMessageWithoutOffset(c *C) {
	err := newErr(KindInvalidPath, -1, "must be absolute", nil)
	c.Check(err.Error(), Matches, "^squashfs: InvalidPath: must be absolute$")
}
