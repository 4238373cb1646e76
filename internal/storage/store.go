// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/jeranaias/saul/internal/util"
)

// TimestampLayout is the sortable local-time prefix of saved files.
const TimestampLayout = "20060102-150405"

// timestampPrefix matches the prefix produced by Timestamp plus its separator.
var timestampPrefix = regexp.MustCompile(`^\d{8}-\d{6}-`)

// SaveResult is the on-disk identity of a saved version.
type SaveResult struct {
	// SVGPath is the absolute path of the written file.
	SVGPath string
	// FilenameWithTimestamp is the file name without its extension.
	FilenameWithTimestamp string
}

// =============================================================================
// STORE
// =============================================================================

// Store writes SVG versions into a directory.
type Store struct {
	// Dir is the output directory. Empty means the working directory at the
	// time of each save.
	Dir string

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewStore creates a store writing into dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) dir() (string, error) {
	if s.Dir != "" {
		return filepath.Abs(s.Dir)
	}
	return os.Getwd()
}

// Save writes svg to <dir>/<timestamp>-<base>.svg.
func (s *Store) Save(svg, base string) (*SaveResult, error) {
	dir, err := s.dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	name := Timestamp(s.now()) + "-" + base
	path := filepath.Join(dir, name+".svg")

	if err := util.AtomicWriteFile(path, []byte(svg), 0644); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}

	return &SaveResult{SVGPath: path, FilenameWithTimestamp: name}, nil
}

// =============================================================================
// NAMING
// =============================================================================

// Timestamp formats t in local time as YYYYMMDD-HHMMSS.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// RemoveTimestampPrefix strips a leading YYYYMMDD-HHMMSS- token so a saved
// name can be reused as the base of the next save.
func RemoveTimestampPrefix(name string) string {
	return timestampPrefix.ReplaceAllString(name, "")
}
