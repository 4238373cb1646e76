// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	when := time.Date(2025, 10, 6, 14, 30, 22, 0, time.Local)
	store := &Store{Dir: dir, Now: fixedClock(when)}

	res, err := store.Save("<svg><rect/></svg>", "red-house")
	require.NoError(t, err)

	assert.Equal(t, "20251006-143022-red-house", res.FilenameWithTimestamp)
	assert.True(t, filepath.IsAbs(res.SVGPath))
	assert.Equal(t, filepath.Join(dir, "20251006-143022-red-house.svg"), res.SVGPath)

	content, err := os.ReadFile(res.SVGPath)
	require.NoError(t, err)
	assert.Equal(t, "<svg><rect/></svg>", string(content))
}

func TestStore_SuccessiveSavesKeepHistory(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	store := &Store{Dir: dir, Now: func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}}

	first, err := store.Save("<svg>1</svg>", "logo")
	require.NoError(t, err)
	second, err := store.Save("<svg>2</svg>", RemoveTimestampPrefix(first.FilenameWithTimestamp))
	require.NoError(t, err)

	assert.NotEqual(t, first.SVGPath, second.SVGPath)
	assert.Equal(t, "20250102-030407-logo", second.FilenameWithTimestamp)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTimestamp(t *testing.T) {
	when := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	if got := Timestamp(when); got != "20240309-070501" {
		t.Errorf("Timestamp = %q, want %q", got, "20240309-070501")
	}
}

func TestRemoveTimestampPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"20251006-143022-red-house", "red-house"},
		{"red-house", "red-house"},
		{"2025106-143022-short-date", "2025106-143022-short-date"},
		{"20251006-143022-20251006-143023-nested", "20251006-143023-nested"},
		{"20251006-143022-", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RemoveTimestampPrefix(tt.input); got != tt.want {
			t.Errorf("RemoveTimestampPrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
