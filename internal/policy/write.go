package policy

import (
	"log/slog"
	"os"
	"path/filepath"
)

// WriteTable writes the rendered policy table to path, fully replacing
// any previous table.
//
// The write is atomic: content goes to a temporary file in the target
// directory which is fsynced and renamed over the destination. At every
// external observation point the file holds either the complete old
// table or the complete new one, so an agent reload never consumes a
// half-written table.
func WriteTable(path string, result Result) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tls_policy-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	// Cleanup on any failure path. Rename makes the removal a no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(result.Render()); err != nil {
		tmp.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	slog.Info("policy table written",
		"path", path,
		"lines", len(result.Lines),
		"diagnostics", len(result.Diagnostics),
	)
	return nil
}
