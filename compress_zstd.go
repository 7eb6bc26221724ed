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
 */

package squashfs

import (
	"github.com/klauspost/compress/zstd"
	"github.com/sqfsgo/squashfs/internal/tracelog"
)

// zstdBackend decodes compressor id 6. Options, when present, are a single
// 32-bit compression-level hint the encoder used; the decoder doesn't need
// it, so a parse failure there is harmless.
type zstdBackend struct {
	decoder *zstd.Decoder
}

func newZstdBackend(m *metadataReader) (*zstdBackend, error) {
	if m != nil {
		buf := make([]byte, 4)
		if err := m.read(buf); err != nil {
			tracelog.Noticef("failed to read zstd compressor options, ignoring: %v", err)
		}
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdBackend{decoder: dec}, nil
}

func (zb *zstdBackend) Decompress(src, dst []byte) (int, error) {
	out, err := zb.decoder.DecodeAll(src, nil)
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, newErr(KindOversizeBlock, -1, "zstd output exceeds expected size", nil)
	}
	n := copy(dst, out)
	return n, nil
}
