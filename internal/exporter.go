package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// ExportInput holds parameters for ExportRecords.
type ExportInput struct {
	Results   certstore.ResultSet
	Directory string // results directory, recorded in the CBOM evidence
	OutDir    string
	Password  string
	CBOM      bool
}

// ExportRecords writes the export files of every record into OutDir and,
// when requested, a CycloneDX CBOM named cbom.json. It returns the paths
// written.
func ExportRecords(input ExportInput) ([]string, error) {
	ids := input.Results.Identifiers()
	prefixes, err := exportPrefixes(ids)
	if err != nil {
		return nil, err
	}

	fw := &filesystemWriter{outDir: input.OutDir}
	var written []string

	for _, id := range ids {
		rec := input.Results[id]
		chain, err := acmefacts.ParseChain([]byte(rec.Chain))
		if err != nil {
			return written, fmt.Errorf("parsing chain of %s: %w", id, err)
		}
		files, err := certstore.GenerateExportFiles(certstore.ExportInput{
			Record:   rec,
			Chain:    chain,
			Prefix:   prefixes[id],
			Password: input.Password,
		})
		if err != nil {
			return written, err
		}
		paths, err := fw.WriteFiles(files)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
		slog.Debug("exported record", "identifier", id, "files", len(files))
	}

	if input.CBOM {
		bom, err := BuildCBOM(BuildCBOMInput{Results: input.Results, Directory: input.Directory})
		if err != nil {
			return written, err
		}
		path := filepath.Join(input.OutDir, "cbom.json")
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("creating %s: %w", path, err)
		}
		if err := WriteCBOM(f, bom); err != nil {
			_ = f.Close()
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("closing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// exportPrefixes maps each identifier to its sanitized file prefix. Two
// identifiers sharing a prefix would overwrite each other's files.
func exportPrefixes(ids []string) (map[string]string, error) {
	prefixes := make(map[string]string, len(ids))
	owners := make(map[string]string, len(ids))
	for _, id := range ids {
		prefix := certstore.SanitizeFileName(id)
		if other, ok := owners[prefix]; ok {
			return nil, fmt.Errorf("identifiers %q and %q both export as %q", other, id, prefix)
		}
		owners[prefix] = id
		prefixes[id] = prefix
	}
	return prefixes, nil
}

// filesystemWriter writes export files to the local filesystem under outDir.
type filesystemWriter struct {
	outDir string
}

// WriteFiles creates outDir and writes each file into it.
func (w *filesystemWriter) WriteFiles(files []certstore.ExportFile) ([]string, error) {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", w.outDir, err)
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(w.outDir, f.Name)
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
