package acmefacts

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"testing"
)

var oidOrganization = asn1.ObjectIdentifier{2, 5, 4, 10}

func TestCommonName_EncodedOrder(t *testing.T) {
	// WHY: The first CN in encoded order wins, even when other attributes
	// precede it and a second CN follows.
	t.Parallel()

	cert := selfSigned(t, &x509.Certificate{
		Subject: pkix.Name{ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oidOrganization, Value: "Example"},
			{Type: oidCommonName, Value: "example.com"},
			{Type: oidCommonName, Value: "second.example.com"},
		}},
	})

	got, err := CommonName(cert)
	if err != nil {
		t.Fatal(err)
	}
	if got != "example.com" {
		t.Errorf("CommonName = %q, want example.com", got)
	}
}

func TestCommonName_Simple(t *testing.T) {
	t.Parallel()
	_, _, leaf := buildChain(t, 2)

	got, err := CommonName(leaf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "chain-leaf.example.com" {
		t.Errorf("CommonName = %q, want chain-leaf.example.com", got)
	}
}

func TestCommonName_Missing(t *testing.T) {
	t.Parallel()
	cert := selfSigned(t, &x509.Certificate{
		Subject:  pkix.Name{Organization: []string{"No CN Org"}},
		DNSNames: []string{"nocn.example.com"},
	})

	_, err := CommonName(cert)
	if !errors.Is(err, ErrNoCommonName) {
		t.Errorf("expected ErrNoCommonName, got %v", err)
	}
}

func TestCommonName_StringTypes(t *testing.T) {
	// WHY: The CN may use any DirectoryString encoding; BMPString in
	// particular needs UTF-16 decoding rather than a byte copy.
	t.Parallel()

	bmp := func(s string) []byte {
		var out []byte
		for _, r := range s {
			out = append(out, byte(r>>8), byte(r))
		}
		return out
	}

	tests := []struct {
		name  string
		tag   int
		bytes []byte
		want  string
	}{
		{"UTF8String", asn1.TagUTF8String, []byte("bücher.example"), "bücher.example"},
		{"PrintableString", asn1.TagPrintableString, []byte("printable.example"), "printable.example"},
		{"IA5String", asn1.TagIA5String, []byte("ia5.example"), "ia5.example"},
		{"BMPString", asn1.TagBMPString, bmp("bmp.example"), "bmp.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rdns := pkix.RDNSequence{
				{{Type: oidCommonName, Value: asn1.RawValue{Tag: tt.tag, Bytes: tt.bytes}}},
			}
			raw, err := asn1.Marshal(rdns)
			if err != nil {
				t.Fatal(err)
			}
			cert := selfSigned(t, &x509.Certificate{RawSubject: raw})

			got, err := CommonName(cert)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("CommonName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstAttribute_Malformed(t *testing.T) {
	t.Parallel()
	if _, err := firstAttribute([]byte{0x31, 0x00}, oidCommonName); err == nil {
		t.Error("expected error for a SET where the RDNSequence belongs")
	}
}
