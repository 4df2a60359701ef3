package metadata

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// IDPCertificates extracts the certificates of every signing KeyDescriptor
// and every KeyDescriptor with no use attribute from the first
// IDPSSODescriptor of an IdP's EntityDescriptor, for building a trust store. This is the missing half of
// insaplace-saml's ServiceMultipleProvider.Metadata() (service_multiple_provider.go),
// which only ever builds this SP's own KeyDescriptors; resolving the IdP's
// published certificates back into *x509.Certificate is new surface this
// package needs to let a caller go from fetched IdP metadata straight to a
// samlvalidate.TrustEngine.
func IDPCertificates(ed *EntityDescriptor) ([]*x509.Certificate, error) {
	if ed == nil || len(ed.IDPSSODescriptors) == 0 {
		return nil, fmt.Errorf("metadata: entity %q has no IDPSSODescriptor", safeEntityID(ed))
	}

	var certs []*x509.Certificate
	for _, kd := range ed.IDPSSODescriptors[0].KeyDescriptors {
		if kd.Use != "" && kd.Use != "signing" {
			continue
		}
		for _, xc := range kd.KeyInfo.X509Data.X509Certificates {
			der, err := base64.StdEncoding.DecodeString(collapseWhitespace(xc.Data))
			if err != nil {
				return nil, fmt.Errorf("metadata: decode X509Certificate: %w", err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return nil, fmt.Errorf("metadata: parse X509Certificate: %w", err)
			}
			certs = append(certs, cert)
		}
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("metadata: entity %q published no usable signing certificate", safeEntityID(ed))
	}
	return certs, nil
}

func safeEntityID(ed *EntityDescriptor) string {
	if ed == nil {
		return ""
	}
	return ed.EntityID
}

func collapseWhitespace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
