package internal

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// testCA holds a CA certificate and its private key for signing leaf certs.
type testCA struct {
	cert    *x509.Certificate
	certPEM []byte
	key     *ecdsa.PrivateKey
}

// testLeaf holds a leaf certificate signed by a CA.
type testLeaf struct {
	cert    *x509.Certificate
	certPEM []byte
}

func newSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}
	return serial
}

func signCert(t *testing.T, tmpl, parent *x509.Certificate, pub, signer any) (*x509.Certificate, []byte) {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, signer)
	if err != nil {
		t.Fatalf("create certificate %q: %v", tmpl.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate %q: %v", tmpl.Subject.CommonName, err)
	}
	return cert, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// newECDSACA generates a self-signed ECDSA root CA for testing.
func newECDSACA(t *testing.T) testCA {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA CA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          newSerial(t),
		Subject:               pkix.Name{CommonName: "Test ECDSA Root CA", Organization: []string{"TestOrg"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	cert, certPEM := signCert(t, tmpl, tmpl, &key.PublicKey, key)
	return testCA{cert: cert, certPEM: certPEM, key: key}
}

// newIntermediate generates an intermediate CA signed by parent.
func newIntermediate(t *testing.T, parent testCA) testCA {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate intermediate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          newSerial(t),
		Subject:               pkix.Name{CommonName: "Test Intermediate CA", Organization: []string{"TestOrg"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(5 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	cert, certPEM := signCert(t, tmpl, parent.cert, &key.PublicKey, parent.key)
	return testCA{cert: cert, certPEM: certPEM, key: key}
}

// newLeaf generates a server leaf with the given CN and DNS SANs expiring at
// notAfter, signed by ca.
func newLeaf(t *testing.T, ca testCA, cn string, sans []string, notAfter time.Time) testLeaf {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     sans,
		NotBefore:    time.Now().Add(-2 * time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	cert, certPEM := signCert(t, tmpl, ca.cert, &key.PublicKey, ca.key)
	return testLeaf{cert: cert, certPEM: certPEM}
}

// newECDSALeaf is newLeaf valid for 90 days with the CN as its only SAN.
func newECDSALeaf(t *testing.T, ca testCA, cn string) testLeaf {
	t.Helper()
	return newLeaf(t, ca, cn, []string{cn}, time.Now().Add(90*24*time.Hour))
}

// newExpiredLeaf generates a leaf that expired an hour ago.
func newExpiredLeaf(t *testing.T, ca testCA, cn string) testLeaf {
	t.Helper()
	return newLeaf(t, ca, cn, []string{cn}, time.Now().Add(-time.Hour))
}

// writeFile writes data to dir/name, failing the test on error.
func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// writePair writes <id>.pem and <id>.ca the way acme.sh deploys them.
func writePair(t *testing.T, dir, id string, leaf testLeaf, chain ...testCA) {
	t.Helper()
	writeFile(t, dir, id+".pem", leaf.certPEM)
	var ca []byte
	for _, c := range chain {
		ca = append(ca, c.certPEM...)
	}
	writeFile(t, dir, id+".ca", ca)
}

// scanDir runs the scanner over dir with default options.
func scanDir(t *testing.T, dir string) certstore.ResultSet {
	t.Helper()
	rs, err := certstore.NewScanner(dir).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	return rs
}

// twoRecordSet returns a scanned result set with records "alpha" (90 days,
// chain through an intermediate) and "beta" (10 days, chain is the root).
func twoRecordSet(t *testing.T) (certstore.ResultSet, testCA) {
	t.Helper()
	root := newECDSACA(t)
	inter := newIntermediate(t, root)
	dir := t.TempDir()
	writePair(t, dir, "alpha", newECDSALeaf(t, inter, "alpha.example.com"), inter)
	writePair(t, dir, "beta", newLeaf(t, root, "beta.example.com", []string{"beta.example.com", "www.beta.example.com"}, time.Now().Add(10*24*time.Hour)), root)
	return scanDir(t, dir), root
}
