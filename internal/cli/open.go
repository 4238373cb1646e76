// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// OpenFunc opens a file for viewing.
type OpenFunc func(ctx context.Context, path string) error

// openerCommand returns the command that opens path in the default
// application for goos.
func openerCommand(goos, path string) (string, []string, error) {
	switch goos {
	case "windows":
		// The empty quoted string is the window title.
		return "cmd", []string{"/c", "start", `""`, path}, nil
	case "darwin":
		return "open", []string{path}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return "xdg-open", []string{path}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenInBrowser opens path with the system handler, which for .svg files is
// normally the browser. It returns once the handler has been launched; the
// handler outlives ctx.
func OpenInBrowser(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, args, err := openerCommand(runtime.GOOS, path)
	if err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	go cmd.Wait()
	return nil
}
