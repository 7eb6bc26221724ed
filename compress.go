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
	"github.com/sqfsgo/squashfs/internal"
)

// CompressionBackend decompresses one block at a time. A single instance is
// reusable across calls but is not safe for concurrent use by multiple
// goroutines. Handle holds its mutex while metadata blocks are decoded, but
// File's data-block and fragment reads call the backend without it.
type CompressionBackend interface {
	// Decompress decompresses src into dst, returning the number of bytes
	// written to dst. len(dst) is the expected maximum output size; the
	// backend must not write more than len(dst) bytes.
	Decompress(src, dst []byte) (int, error)
}

// newCompressionBackend builds the backend selected by the superblock's
// compressor id, reading compressor options from optionsBlock if present
// (optionsBlock is nil when the superblock's COMPRESSOR_OPTIONS flag is
// clear).
func newCompressionBackend(id uint16, optionsBlock *metadataReader) (CompressionBackend, error) {
	switch id {
	case internal.CompressionZlib:
		return newZlibBackend(), nil
	case internal.CompressionXz:
		return newXzBackend(optionsBlock)
	case internal.CompressionZstd:
		return newZstdBackend(optionsBlock)
	case internal.CompressionLzma, internal.CompressionLzo, internal.CompressionLz4:
		return nil, newErr(KindUnsupportedCompressor, -1,
			"lzma/lzo/lz4 are not supported by this implementation", nil)
	default:
		return nil, newErr(KindUnsupportedCompressor, -1, "unknown compressor id", nil)
	}
}

// decompressBlock implements the Compressed Block Reader contract of the
// spec: given raw bytes and whether they are stored as an uncompressed
// literal, produce the decompressed payload capped at maxLen.
func decompressBlock(backend CompressionBackend, raw []byte, stored bool, maxLen int) ([]byte, error) {
	if stored {
		if len(raw) > maxLen {
			return nil, newErr(KindOversizeBlock, -1, "stored block exceeds expected size", nil)
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}

	dst := make([]byte, maxLen)
	n, err := backend.Decompress(raw, dst)
	if err != nil {
		return nil, newErr(KindDecompressFailure, -1, "decompression failed", err)
	}
	if n > maxLen {
		return nil, newErr(KindOversizeBlock, -1, "decompressed block exceeds expected size", nil)
	}
	return dst[:n], nil
}
