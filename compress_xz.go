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
	"bytes"
	"io"

	"github.com/sqfsgo/squashfs/internal"
	"github.com/sqfsgo/squashfs/internal/tracelog"
	"github.com/ulikunitz/xz"
)

// xzBackend decodes compressor id 4. Options, when present, are an 8-byte
// metadata block immediately after the superblock: dictionary size and an
// executable-filter bitmask we don't act on (tuning hints only, per spec).
type xzBackend struct {
	dictionarySize int
}

func xzParseOptions(m *metadataReader) (int, int, error) {
	buffer := make([]byte, 8)
	if err := m.read(buffer); err != nil {
		return -1, -1, err
	}

	dictionarySize := internal.ReadInt32(buffer[0:])
	executableFilters := internal.ReadInt32(buffer[4:])
	return int(dictionarySize), int(executableFilters), nil
}

func newXzBackend(m *metadataReader) (xzBackend, error) {
	dictionarySize := -1
	if m != nil {
		size, _, err := xzParseOptions(m)
		if err != nil {
			// compressor options are tuning hints only; a parse failure
			// here is non-fatal per spec.
			tracelog.Noticef("failed to parse xz compressor options, using defaults: %v", err)
		} else {
			dictionarySize = size
		}
	}

	return xzBackend{dictionarySize: dictionarySize}, nil
}

func (xb xzBackend) Decompress(src, dst []byte) (int, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, err
	}
	if xb.dictionarySize > 0 {
		r.DictCap = xb.dictionarySize
	}

	n, err := io.ReadFull(r, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}
	return n, nil
}
