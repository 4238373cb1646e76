// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists SVG versions to disk.
//
// Every save writes a new file named <YYYYMMDD-HHMMSS>-<name>.svg, so the
// directory doubles as an append-only history ordered by timestamp.
//
// # Usage
//
//	store := storage.NewStore("")
//	res, err := store.Save(svg, "red-house")
//	next := storage.RemoveTimestampPrefix(res.FilenameWithTimestamp)
package storage
