package certstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensiblebit/acmefacts"
)

// Scanner reads <identifier>.pem / <identifier>.ca pairs from one directory.
type Scanner struct {
	fsys      fs.FS
	dir       string
	missingCN MissingCNPolicy
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithFS scans fsys instead of the operating system directory. The
// directory name is still used in error messages.
func WithFS(fsys fs.FS) ScannerOption {
	return func(s *Scanner) {
		s.fsys = fsys
	}
}

// WithMissingCN sets the policy for certificates without a Common Name.
func WithMissingCN(p MissingCNPolicy) ScannerOption {
	return func(s *Scanner) {
		s.missingCN = p
	}
}

// NewScanner creates a Scanner for dir. An empty dir selects DefaultDir.
func NewScanner(dir string, opts ...ScannerOption) *Scanner {
	if dir == "" {
		dir = DefaultDir
	}
	s := &Scanner{
		dir:       dir,
		missingCN: MissingCNError,
	}
	for _, o := range opts {
		o(s)
	}
	if s.fsys == nil {
		s.fsys = os.DirFS(dir)
	}
	return s
}

// Dir returns the scanned directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan reads every certificate pair in the directory. A missing directory
// or one without *.pem files yields an empty ResultSet. Any read, parse or
// Common Name failure aborts the scan and no records are returned.
func (s *Scanner) Scan(ctx context.Context) (ResultSet, error) {
	// fs.Glob ignores I/O errors, so a missing directory is simply empty.
	matches, err := fs.Glob(s.fsys, "*"+certExt)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}
	slog.Debug("scanning certificate directory", "dir", s.dir, "matches", len(matches))

	rs := make(ResultSet, len(matches))
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// hidden files are not results, matching shell glob semantics
		if strings.HasPrefix(name, ".") {
			slog.Debug("ignoring hidden file", "name", name)
			continue
		}
		rec, err := s.readRecord(strings.TrimSuffix(name, certExt))
		if err != nil {
			if errors.Is(err, acmefacts.ErrNoCommonName) && s.missingCN == MissingCNSkip {
				slog.Warn("skipping certificate without common name", "identifier", rec.Identifier)
				continue
			}
			return nil, err
		}
		rs[rec.Identifier] = rec
	}
	return rs, nil
}

func (s *Scanner) readRecord(id string) (Record, error) {
	rec := Record{Identifier: id}

	certPath := id + certExt
	crt, err := fs.ReadFile(s.fsys, certPath)
	if err != nil {
		return rec, fmt.Errorf("reading %s: %w", s.displayPath(certPath), err)
	}
	chainPath := id + chainExt
	chain, err := fs.ReadFile(s.fsys, chainPath)
	if err != nil {
		return rec, fmt.Errorf("reading %s: %w", s.displayPath(chainPath), err)
	}

	cert, err := acmefacts.ParseCertificate(crt)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", s.displayPath(certPath), err)
	}

	cn, err := acmefacts.CommonName(cert)
	switch {
	case errors.Is(err, acmefacts.ErrNoCommonName) && s.missingCN == MissingCNEmpty:
		cn = ""
	case err != nil:
		return rec, fmt.Errorf("%s: %w", s.displayPath(certPath), err)
	}

	slog.Debug("read certificate", "identifier", id, "cn", cn, "not_after", cert.NotAfter)

	rec.Certificate = strings.TrimSpace(string(crt))
	rec.Chain = strings.TrimSpace(string(chain))
	rec.CommonName = cn
	rec.Parsed = cert
	return rec, nil
}

func (s *Scanner) displayPath(name string) string {
	return filepath.Join(s.dir, name)
}
