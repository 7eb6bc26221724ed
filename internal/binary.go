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

// Package internal holds the on-disk primitives shared by the squashfs
// package: little-endian decoding and the fixed-size struct layouts that
// make up the SquashFS v4 wire format.
package internal

import "fmt"

// ErrTruncated is returned by the Checked* helpers when fewer bytes remain
// in the source than the requested field needs.
type ErrTruncated struct {
	Want int
	Got  int
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("squashfs: truncated read: want %d bytes, got %d", e.Want, e.Got)
}

func need(data []byte, n int) error {
	if len(data) < n {
		return &ErrTruncated{Want: n, Got: len(data)}
	}
	return nil
}

func ReadUint16(data []byte) uint16 {
	return uint16(data[0]) | uint16(data[1])<<8
}

func ReadInt16(data []byte) int16 {
	return int16(ReadUint16(data))
}

func ReadUint32(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

func ReadInt32(data []byte) int32 {
	return int32(ReadUint32(data))
}

func ReadUint64(data []byte) uint64 {
	return uint64(data[0]) | uint64(data[1])<<8 | uint64(data[2])<<16 | uint64(data[3])<<24 |
		uint64(data[4])<<32 | uint64(data[5])<<40 | uint64(data[6])<<48 | uint64(data[7])<<56
}

func ReadInt64(data []byte) int64 {
	return int64(ReadUint64(data))
}

// CheckedUint16 is like ReadUint16 but fails instead of panicking when data
// is too short. The superblock parser uses CheckedUint32 for the magic; the
// other decoders use the Read* helpers on buffers of known length.
func CheckedUint16(data []byte) (uint16, error) {
	if err := need(data, 2); err != nil {
		return 0, err
	}
	return ReadUint16(data), nil
}

func CheckedUint32(data []byte) (uint32, error) {
	if err := need(data, 4); err != nil {
		return 0, err
	}
	return ReadUint32(data), nil
}

func CheckedUint64(data []byte) (uint64, error) {
	if err := need(data, 8); err != nil {
		return 0, err
	}
	return ReadUint64(data), nil
}
