package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/modelcritic/internal/schema"
)

// Export writes result to path in format, inferring the format from the
// extension when format is empty. The file is written to a temporary
// sibling and renamed into place so a failed export never leaves a
// truncated document behind.
func Export(path string, result *schema.AuditResult, format string) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	r, err := NewRenderer(format)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	data, err := r.Render(ForExport(result))
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file in path's directory and renames
// it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
