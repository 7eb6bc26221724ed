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

// Package tracelog is a minimal logging seam for the squashfs package: cache
// fills, compressor selection and directory decodes are traced through a
// Logger, defaulting to a no-op so the library stays silent unless a caller
// wires up something louder.
package tracelog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// A Logger receives low-volume diagnostic traces from the reader. It is
// intentionally narrower than a general-purpose logging interface: the
// library has exactly one thing to say at each call site, not a level
// hierarchy to configure.
type Logger interface {
	// Trace is for events on the hot path (block decompressed, cache
	// hit/miss) that are useful when debugging but too frequent for
	// Notice.
	Trace(msg string)
	// Notice is for events the caller should see regardless of verbosity,
	// such as falling back to a non-fatal compressor-options parse error.
	Notice(msg string)
}

type nullLogger struct{}

func (nullLogger) Trace(string)  {}
func (nullLogger) Notice(string) {}

// Null is a Logger that discards everything.
var Null Logger = nullLogger{}

// Std adapts the standard library's log package to Logger.
type Std struct {
	*log.Logger
}

func (s Std) Trace(msg string)  { s.Output(2, "TRACE: "+msg) }
func (s Std) Notice(msg string) { s.Output(2, "NOTICE: "+msg) }

// NewStd returns a Logger that writes to os.Stderr with the standard
// library's default flags.
func NewStd() Std {
	return Std{log.New(os.Stderr, "squashfs: ", log.LstdFlags)}
}

var (
	mu      sync.RWMutex
	current Logger = Null
)

// SetLogger installs the package-wide Logger that every trace goes to.
// Open calls it when given the WithLogger option.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = Null
	}
	current = l
}

// Default returns the package-wide default Logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Tracef and Noticef are convenience wrappers over Default().
func Tracef(format string, args ...interface{}) {
	Default().Trace(fmt.Sprintf(format, args...))
}

func Noticef(format string, args ...interface{}) {
	Default().Notice(fmt.Sprintf(format, args...))
}
