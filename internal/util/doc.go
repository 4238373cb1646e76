// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by saul's packages.
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation for single-line output
package util
