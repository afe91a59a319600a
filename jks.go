package acmefacts

import (
	"bytes"
	"cmp"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// EncodeJKSTrustStore creates a Java KeyStore holding each certificate as a
// TrustedCertificateEntry. Aliases are alias, alias-1, alias-2, ... in chain
// order.
func EncodeJKSTrustStore(alias string, certs []*x509.Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}

	ks := keystore.New()
	now := time.Now()
	for i, cert := range certs {
		name := alias
		if i > 0 {
			name = fmt.Sprintf("%s-%d", alias, i)
		}
		if err := ks.SetTrustedCertificateEntry(name, keystore.TrustedCertificateEntry{
			CreationTime: now,
			Certificate: keystore.Certificate{
				Type:    "X.509",
				Content: cert.Raw,
			},
		}); err != nil {
			return nil, fmt.Errorf("setting JKS trusted entry %q: %w", name, err)
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("storing JKS: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJKSTrustStore loads a Java KeyStore and returns its trusted
// certificates sorted by alias, with numeric suffixes compared as numbers so
// alias-2 comes before alias-10. Private key entries are ignored.
func DecodeJKSTrustStore(data []byte, password string) ([]*x509.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}

	aliases := ks.Aliases()
	slices.SortFunc(aliases, compareAliases)

	var certs []*x509.Certificate
	for _, alias := range aliases {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			return nil, fmt.Errorf("reading JKS entry %q: %w", alias, err)
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			return nil, fmt.Errorf("parsing JKS entry %q: %w", alias, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("JKS contains no trusted certificates")
	}
	return certs, nil
}

// compareAliases orders aliases by base name, then by numeric "-N" suffix.
// An alias without a suffix sorts before its suffixed siblings.
func compareAliases(a, b string) int {
	baseA, nA := splitAlias(a)
	baseB, nB := splitAlias(b)
	if c := cmp.Compare(baseA, baseB); c != 0 {
		return c
	}
	if c := cmp.Compare(nA, nB); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func splitAlias(alias string) (string, int) {
	i := strings.LastIndexByte(alias, '-')
	if i < 0 {
		return alias, 0
	}
	n, err := strconv.Atoi(alias[i+1:])
	if err != nil || n < 0 {
		return alias, 0
	}
	return alias[:i], n
}
