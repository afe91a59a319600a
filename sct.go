package acmefacts

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	ct "github.com/google/certificate-transparency-go"
	cttls "github.com/google/certificate-transparency-go/tls"
	ctx509 "github.com/google/certificate-transparency-go/x509"
)

// SCT is a Signed Certificate Timestamp embedded in a certificate by the
// issuing CA.
type SCT struct {
	LogID     string    `json:"log_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EmbeddedSCTs decodes the SCT list extension of cert. Publicly trusted ACME
// certificates carry two or more; certificates without the extension return
// an empty slice.
func EmbeddedSCTs(cert *x509.Certificate) ([]SCT, error) {
	ctCert, err := ctx509.ParseCertificate(cert.Raw)
	if err != nil && ctx509.IsFatal(err) {
		return nil, fmt.Errorf("parsing certificate for SCTs: %w", err)
	}
	if ctCert == nil {
		return nil, nil
	}

	scts := make([]SCT, 0, len(ctCert.SCTList.SCTList))
	for i, serialized := range ctCert.SCTList.SCTList {
		var sct ct.SignedCertificateTimestamp
		rest, err := cttls.Unmarshal(serialized.Val, &sct)
		if err != nil {
			return nil, fmt.Errorf("decoding SCT %d: %w", i, err)
		}
		if len(rest) > 0 {
			return nil, fmt.Errorf("decoding SCT %d: %d trailing bytes", i, len(rest))
		}
		scts = append(scts, SCT{
			LogID:     base64.StdEncoding.EncodeToString(sct.LogID.KeyID[:]),
			Timestamp: ct.TimestampToTime(sct.Timestamp).UTC(),
		})
	}
	return scts, nil
}
