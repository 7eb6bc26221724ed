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

import "github.com/sqfsgo/squashfs/internal/tracelog"

type config struct {
	followSymlinks bool
	logger         tracelog.Logger
}

func defaultConfig() *config {
	return &config{followSymlinks: false}
}

// OpenOption configures a Handle at Open time. Functional options, matching
// the with-option pattern the rest of this corpus uses rather than a config
// struct literal.
type OpenOption func(*config)

// WithFollowSymlinks makes path resolution transparently follow symlink
// components instead of stopping at them. Off by default: a reader that
// wants to inspect a symlink itself (Readlink) would otherwise never see
// it if intermediate resolution silently chased it away.
func WithFollowSymlinks(follow bool) OpenOption {
	return func(c *config) { c.followSymlinks = follow }
}

// WithLogger makes Open install l as the package-wide tracelog logger (the
// default discards everything). The setting is not per Handle: from then on
// l receives trace and notice output from every Handle.
func WithLogger(l tracelog.Logger) OpenOption {
	return func(c *config) { c.logger = l }
}
