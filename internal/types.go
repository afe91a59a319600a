package internal

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScanRow records one invocation of the scanner.
type ScanRow struct {
	ScanID      string    `db:"scan_id" json:"scan_id"`
	ScannedAt   time.Time `db:"scanned_at" json:"scanned_at"`
	Directory   string    `db:"directory" json:"directory"`
	RecordCount int       `db:"record_count" json:"record_count"`
}

// CertificateRow encodes a scanned certificate and its metadata
type CertificateRow struct {
	ScanID       string         `db:"scan_id" json:"scan_id"`
	Identifier   string         `db:"identifier" json:"identifier"`
	CommonName   sql.NullString `db:"common_name" json:"-"`
	SerialNumber string         `db:"serial_number" json:"serial_number"`
	CertType     string         `db:"cert_type" json:"cert_type"`
	KeyType      string         `db:"key_type" json:"key_type"`
	NotBefore    time.Time      `db:"not_before" json:"not_before"`
	Expiry       time.Time      `db:"expiry" json:"expiry"`
	SANsJSON     types.JSONText `db:"sans" json:"sans"`
	Fingerprint  string         `db:"fingerprint" json:"sha256_fingerprint"`
	PEM          string         `db:"pem" json:"-"`
	Chain        string         `db:"chain" json:"-"`
}
