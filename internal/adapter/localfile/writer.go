package localfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/covid-dashboard-etl/internal/domain"
)

// ArtifactWriter implements pipeline.ArtifactWriter. Each file is replaced
// atomically: readers see either the previous or the new document.
type ArtifactWriter struct {
	reportPath      string
	testsPerDayPath string
}

// NewArtifactWriter creates a writer. An empty testsPerDayPath skips the
// secondary artifact.
func NewArtifactWriter(reportPath, testsPerDayPath string) *ArtifactWriter {
	return &ArtifactWriter{reportPath: reportPath, testsPerDayPath: testsPerDayPath}
}

// WriteArtifacts replaces data.json and, when configured, testsPerDay.json.
func (w *ArtifactWriter) WriteArtifacts(ctx context.Context, a domain.Artifacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFileAtomic(w.reportPath, a.Report); err != nil {
		return err
	}
	if w.testsPerDayPath == "" {
		return nil
	}
	return WriteFileAtomic(w.testsPerDayPath, a.TestsPerDay)
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
