package acmefacts

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// EncodePKCS7 creates a certs-only PKCS#7/P7B bundle from a certificate chain.
// Returns the DER-encoded PKCS#7 SignedData structure.
func EncodePKCS7(certs []*x509.Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}
	var derBytes []byte
	for _, cert := range certs {
		derBytes = append(derBytes, cert.Raw...)
	}
	return pkcs7.DegenerateCertificate(derBytes)
}

// DecodePKCS7 decodes a DER-encoded PKCS#7 bundle and returns the certificates it contains.
// Returns an error if decoding fails or the bundle contains no certificates.
func DecodePKCS7(derData []byte) ([]*x509.Certificate, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	return p7.Certificates, nil
}

// EncodePKCS12TrustStore creates a PKCS#12 truststore holding certs as
// trusted entries, with no private key.
func EncodePKCS12TrustStore(certs []*x509.Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}
	data, err := gopkcs12.Modern.EncodeTrustStore(certs, password)
	if err != nil {
		return nil, fmt.Errorf("encoding PKCS#12 truststore: %w", err)
	}
	return data, nil
}

// DecodePKCS12TrustStore returns the trusted certificates in a PKCS#12 truststore.
func DecodePKCS12TrustStore(pfxData []byte, password string) ([]*x509.Certificate, error) {
	certs, err := gopkcs12.DecodeTrustStore(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("decoding PKCS#12 truststore: %w", err)
	}
	return certs, nil
}
