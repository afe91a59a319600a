package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// DB is the scan inventory.
type DB struct {
	*sqlx.DB
}

// NewDB creates and initializes a new in-memory inventory. Use
// SaveToDisk/LoadFromDisk to persist or restore data.
func NewDB() (*DB, error) {
	// Pin to a single connection: each :memory: connection is a separate
	// database. PRAGMAs go in the DSN so they survive reconnections.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	dbObj := &DB{DB: db}
	if err := dbObj.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	slog.Debug("database initialized")
	return dbObj, nil
}

// OpenInventory returns an in-memory inventory seeded from path when the
// file exists.
func OpenInventory(path string) (*DB, error) {
	db, err := NewDB()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := db.LoadFromDisk(path); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("checking inventory %s: %w", path, err)
	}
	return db, nil
}

// SaveToDisk writes the in-memory database to path. VACUUM INTO refuses an
// existing target, so the copy goes to a sibling temp file which then
// replaces path.
func (db *DB) SaveToDisk(path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)
	if _, err := db.Exec("VACUUM INTO ?", tmp); err != nil {
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	slog.Info("database saved to disk", "path", path)
	return nil
}

// LoadFromDisk copies scans and certificates from an on-disk database into
// the in-memory database. The file is read once and then detached.
func (db *DB) LoadFromDisk(path string) error {
	_, err := db.Exec("ATTACH DATABASE ? AS diskdb", path)
	if err != nil {
		return fmt.Errorf("attaching database %s: %w", path, err)
	}
	defer func() {
		if _, err := db.Exec("DETACH DATABASE diskdb"); err != nil {
			slog.Warn("detaching database", "path", path, "error", err)
		}
	}()

	_, err = db.Exec(`INSERT OR IGNORE INTO scans (scan_id, scanned_at, directory, record_count)
		SELECT scan_id, scanned_at, directory, record_count FROM diskdb.scans`)
	if err != nil {
		return fmt.Errorf("loading scans from %s: %w", path, err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO certificates (scan_id, identifier, common_name, serial_number, cert_type, key_type, not_before, expiry, sans, fingerprint, pem, chain)
		SELECT scan_id, identifier, common_name, serial_number, cert_type, key_type, not_before, expiry, sans, fingerprint, pem, chain FROM diskdb.certificates`)
	if err != nil {
		return fmt.Errorf("loading certificates from %s: %w", path, err)
	}

	slog.Info("database loaded from disk", "path", path)
	return nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			scan_id      text PRIMARY KEY,
			scanned_at   timestamp NOT NULL,
			directory    text NOT NULL,
			record_count integer NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating scans table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			scan_id       text NOT NULL REFERENCES scans(scan_id),
			identifier    text NOT NULL,
			common_name   text,
			serial_number text NOT NULL,
			cert_type     text NOT NULL,
			key_type      text NOT NULL,
			not_before    timestamp NOT NULL,
			expiry        timestamp NOT NULL,
			sans          text,
			fingerprint   text NOT NULL,
			pem           blob NOT NULL,
			chain         blob NOT NULL,
			PRIMARY KEY(scan_id, identifier)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating certificates table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificates_identifier ON certificates (identifier);
	`)
	if err != nil {
		return fmt.Errorf("creating identifier index on certificates table: %w", err)
	}
	return nil
}

// RecordScanInput holds parameters for RecordScan.
type RecordScanInput struct {
	Results   certstore.ResultSet
	Directory string
	ScannedAt time.Time // zero means time.Now()
}

// RecordScan stores a scan and all of its records in one transaction and
// returns the new scan id.
func (db *DB) RecordScan(input RecordScanInput) (string, error) {
	at := input.ScannedAt
	if at.IsZero() {
		at = time.Now()
	}
	scan := ScanRow{
		ScanID:      uuid.NewString(),
		ScannedAt:   at.UTC(),
		Directory:   input.Directory,
		RecordCount: len(input.Results),
	}

	tx, err := db.Beginx()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExec(`
		INSERT INTO scans (scan_id, scanned_at, directory, record_count)
		VALUES (:scan_id, :scanned_at, :directory, :record_count)
	`, scan)
	if err != nil {
		return "", fmt.Errorf("inserting scan: %w", err)
	}

	for _, id := range input.Results.Identifiers() {
		row, err := certificateRow(scan.ScanID, input.Results[id])
		if err != nil {
			return "", err
		}
		_, err = tx.NamedExec(`
			INSERT INTO certificates (scan_id, identifier, common_name, serial_number, cert_type, key_type, not_before, expiry, sans, fingerprint, pem, chain)
			VALUES (:scan_id, :identifier, :common_name, :serial_number, :cert_type, :key_type, :not_before, :expiry, :sans, :fingerprint, :pem, :chain)
		`, row)
		if err != nil {
			return "", fmt.Errorf("inserting certificate %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing scan: %w", err)
	}
	slog.Debug("scan recorded", "scan_id", scan.ScanID, "records", scan.RecordCount)
	return scan.ScanID, nil
}

func certificateRow(scanID string, rec certstore.Record) (CertificateRow, error) {
	cert := rec.Parsed
	if cert == nil {
		parsed, err := acmefacts.ParseCertificate([]byte(rec.Certificate))
		if err != nil {
			return CertificateRow{}, fmt.Errorf("record %s: %w", rec.Identifier, err)
		}
		cert = parsed
	}
	sans, err := json.Marshal(acmefacts.CertSANs(cert))
	if err != nil {
		return CertificateRow{}, fmt.Errorf("marshaling SANs for %s: %w", rec.Identifier, err)
	}
	return CertificateRow{
		ScanID:       scanID,
		Identifier:   rec.Identifier,
		CommonName:   sql.NullString{String: rec.CommonName, Valid: rec.CommonName != ""},
		SerialNumber: cert.SerialNumber.String(),
		CertType:     acmefacts.GetCertificateType(cert),
		KeyType:      certstore.GetKeyType(cert),
		NotBefore:    cert.NotBefore.UTC(),
		Expiry:       cert.NotAfter.UTC(),
		SANsJSON:     types.JSONText(sans),
		Fingerprint:  acmefacts.CertFingerprint(cert),
		PEM:          rec.Certificate,
		Chain:        rec.Chain,
	}, nil
}

// GetScans returns all recorded scans, newest first.
func (db *DB) GetScans() ([]ScanRow, error) {
	var scans []ScanRow
	err := db.Select(&scans, "SELECT * FROM scans ORDER BY scanned_at DESC, scan_id")
	if err != nil {
		return nil, fmt.Errorf("getting scans: %w", err)
	}
	return scans, nil
}

// GetCertificates returns the certificates stored for a scan, ordered by
// identifier.
func (db *DB) GetCertificates(scanID string) ([]CertificateRow, error) {
	var certs []CertificateRow
	err := db.Select(&certs, "SELECT * FROM certificates WHERE scan_id = ? ORDER BY identifier", scanID)
	if err != nil {
		return nil, fmt.Errorf("getting certificates for scan %s: %w", scanID, err)
	}
	return certs, nil
}

// GetCertificate returns one certificate row, or nil when the scan has no
// record with that identifier.
func (db *DB) GetCertificate(scanID, identifier string) (*CertificateRow, error) {
	var cert CertificateRow
	err := db.Get(&cert, "SELECT * FROM certificates WHERE scan_id = ? AND identifier = ?", scanID, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting certificate: %w", err)
	}
	return &cert, nil
}

// History returns every stored row for identifier across scans, oldest
// first. A changed fingerprint between rows marks a renewal.
func (db *DB) History(identifier string) ([]CertificateRow, error) {
	var certs []CertificateRow
	err := db.Select(&certs, `SELECT c.* FROM certificates c
		INNER JOIN scans s ON s.scan_id = c.scan_id
		WHERE c.identifier = ?
		ORDER BY s.scanned_at`, identifier)
	if err != nil {
		return nil, fmt.Errorf("getting history for %s: %w", identifier, err)
	}
	return certs, nil
}
