package internal

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// BuildCBOMInput holds parameters for BuildCBOM.
type BuildCBOMInput struct {
	Results   certstore.ResultSet
	Directory string
	Now       time.Time // zero means time.Now()
}

// BuildCBOM describes every scanned certificate as a CycloneDX
// cryptographic-asset component. Each component's evidence points at the
// certificate file it came from.
func BuildCBOM(input BuildCBOMInput) (cdx.BOM, error) {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	// the CycloneDX schema rejects null arrays
	components := []cdx.Component{}
	for _, id := range input.Results.Identifiers() {
		rec := input.Results[id]
		cert := rec.Parsed
		if cert == nil {
			parsed, err := acmefacts.ParseCertificate([]byte(rec.Certificate))
			if err != nil {
				return cdx.BOM{}, fmt.Errorf("record %s: %w", id, err)
			}
			cert = parsed
		}
		components = append(components, certComponent(rec, cert, filepath.Join(input.Directory, id+".pem")))
	}

	return cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: now.UTC().Format(time.RFC3339),
			Component: &cdx.Component{
				Type:    cdx.ComponentTypeApplication,
				Name:    "acmefacts",
				Version: buildVersion(),
			},
		},
		Components: &components,
	}, nil
}

// WriteCBOM encodes the BOM as pretty-printed JSON.
func WriteCBOM(w io.Writer, bom cdx.BOM) error {
	if err := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom); err != nil {
		return fmt.Errorf("encoding CBOM: %w", err)
	}
	return nil
}

func certComponent(rec certstore.Record, cert *x509.Certificate, path string) cdx.Component {
	return cdx.Component{
		BOMRef:  "crypto/certificate/" + rec.Identifier + "@" + acmefacts.CertFingerprint(cert),
		Type:    cdx.ComponentTypeCryptographicAsset,
		Name:    certstore.DisplayName(certstore.Record{CommonName: rec.CommonName, Parsed: cert}),
		Version: cert.SerialNumber.String(),
		CryptoProperties: &cdx.CryptoProperties{
			AssetType: cdx.CryptoAssetTypeCertificate,
			CertificateProperties: &cdx.CertificateProperties{
				SubjectName:           cert.Subject.String(),
				IssuerName:            cert.Issuer.String(),
				NotValidBefore:        cert.NotBefore.UTC().Format(time.RFC3339),
				NotValidAfter:         cert.NotAfter.UTC().Format(time.RFC3339),
				SignatureAlgorithmRef: signatureAlgorithmRef(cert),
				SubjectPublicKeyRef:   subjectPublicKeyRef(cert),
				CertificateFormat:     "X.509",
				CertificateExtension:  filepath.Ext(path),
			},
		},
		Evidence: &cdx.Evidence{
			Occurrences: &[]cdx.EvidenceOccurrence{{Location: path}},
		},
	}
}

func signatureAlgorithmRef(cert *x509.Certificate) cdx.BOMReference {
	switch cert.SignatureAlgorithm {
	case x509.SHA1WithRSA:
		return "crypto/algorithm/sha-1-rsa@1.2.840.113549.1.1.5"
	case x509.SHA256WithRSA:
		return "crypto/algorithm/sha-256-rsa@1.2.840.113549.1.1.11"
	case x509.SHA384WithRSA:
		return "crypto/algorithm/sha-384-rsa@1.2.840.113549.1.1.12"
	case x509.SHA512WithRSA:
		return "crypto/algorithm/sha-512-rsa@1.2.840.113549.1.1.13"
	case x509.ECDSAWithSHA1:
		return "crypto/algorithm/sha-1-ecdsa@1.2.840.10045.4.1"
	case x509.ECDSAWithSHA256:
		return "crypto/algorithm/sha-256-ecdsa@1.2.840.10045.4.3.2"
	case x509.ECDSAWithSHA384:
		return "crypto/algorithm/sha-384-ecdsa@1.2.840.10045.4.3.3"
	case x509.ECDSAWithSHA512:
		return "crypto/algorithm/sha-512-ecdsa@1.2.840.10045.4.3.4"
	case x509.SHA256WithRSAPSS:
		return "crypto/algorithm/sha-256-rsassa-pss@1.2.840.113549.1.1.10"
	case x509.SHA384WithRSAPSS:
		return "crypto/algorithm/sha-384-rsassa-pss@1.2.840.113549.1.1.10"
	case x509.SHA512WithRSAPSS:
		return "crypto/algorithm/sha-512-rsassa-pss@1.2.840.113549.1.1.10"
	case x509.PureEd25519:
		return "crypto/algorithm/ed25519@1.3.101.112"
	default:
		return ""
	}
}

// subjectPublicKeyRef names the key algorithm component. Keys without a
// registered reference get an empty one.
func subjectPublicKeyRef(cert *x509.Certificate) cdx.BOMReference {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return cdx.BOMReference(fmt.Sprintf("crypto/key/rsa-%d@1.2.840.113549.1.1.1", pub.N.BitLen()))
	case *ecdsa.PublicKey:
		switch pub.Params().BitSize {
		case 256:
			return "crypto/key/ecdsa-p256@1.2.840.10045.3.1.7"
		case 384:
			return "crypto/key/ecdsa-p384@1.3.132.0.34"
		case 521:
			return "crypto/key/ecdsa-p521@1.3.132.0.35"
		}
	case ed25519.PublicKey:
		return "crypto/key/ed25519-256@1.3.101.112"
	}
	slog.Debug("no CBOM reference for public key", "algorithm", acmefacts.PublicKeyAlgorithmName(cert.PublicKey), "size", acmefacts.PublicKeySize(cert.PublicKey))
	return ""
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "unknown"
	}
	return info.Main.Version
}
