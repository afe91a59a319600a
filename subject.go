package acmefacts

import (
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrNoCommonName is returned by CommonName when the subject carries no CN
// attribute.
var ErrNoCommonName = errors.New("certificate subject has no common name")

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

const (
	tagUniversalString = cbasn1.Tag(28)
	tagBMPString       = cbasn1.Tag(30)
)

// CommonName returns the value of the first CN attribute of the certificate
// subject, walking the raw RDNSequence in the order it is encoded. A subject
// such as "O=Example, CN=a, CN=b" yields "a".
func CommonName(cert *x509.Certificate) (string, error) {
	return firstAttribute(cert.RawSubject, oidCommonName)
}

func firstAttribute(rawName []byte, want asn1.ObjectIdentifier) (string, error) {
	input := cryptobyte.String(rawName)
	var rdnSeq cryptobyte.String
	if !input.ReadASN1(&rdnSeq, cbasn1.SEQUENCE) {
		return "", errors.New("malformed subject: invalid RDNSequence")
	}
	for !rdnSeq.Empty() {
		var rdn cryptobyte.String
		if !rdnSeq.ReadASN1(&rdn, cbasn1.SET) {
			return "", errors.New("malformed subject: invalid RDN")
		}
		for !rdn.Empty() {
			var atv cryptobyte.String
			if !rdn.ReadASN1(&atv, cbasn1.SEQUENCE) {
				return "", errors.New("malformed subject: invalid attribute")
			}
			var oid asn1.ObjectIdentifier
			if !atv.ReadASN1ObjectIdentifier(&oid) {
				return "", errors.New("malformed subject: invalid attribute type")
			}
			if !oid.Equal(want) {
				continue
			}
			var value cryptobyte.String
			var tag cbasn1.Tag
			if !atv.ReadAnyASN1(&value, &tag) {
				return "", errors.New("malformed subject: invalid attribute value")
			}
			return decodeDirectoryString(tag, value)
		}
	}
	return "", ErrNoCommonName
}

// decodeDirectoryString converts the string types allowed in a
// DirectoryString (plus IA5String) to Go strings.
func decodeDirectoryString(tag cbasn1.Tag, value []byte) (string, error) {
	switch tag {
	case cbasn1.UTF8String:
		if !utf8.Valid(value) {
			return "", errors.New("invalid UTF8String in subject")
		}
		return string(value), nil
	case cbasn1.PrintableString, cbasn1.IA5String, cbasn1.T61String:
		return string(value), nil
	case tagBMPString:
		if len(value)%2 != 0 {
			return "", errors.New("invalid BMPString in subject")
		}
		units := make([]uint16, 0, len(value)/2)
		for i := 0; i < len(value); i += 2 {
			units = append(units, uint16(value[i])<<8|uint16(value[i+1]))
		}
		return string(utf16.Decode(units)), nil
	case tagUniversalString:
		if len(value)%4 != 0 {
			return "", errors.New("invalid UniversalString in subject")
		}
		runes := make([]rune, 0, len(value)/4)
		for i := 0; i < len(value); i += 4 {
			runes = append(runes, rune(value[i])<<24|rune(value[i+1])<<16|rune(value[i+2])<<8|rune(value[i+3]))
		}
		return string(runes), nil
	default:
		return "", fmt.Errorf("unsupported string type (tag %d) in subject", tag)
	}
}
