package metadata

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "samlvalidate-test-idp"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestSPMetadataBuilderRoundTripsThroughParseEntityMetadata(t *testing.T) {
	cert := selfSignedCert(t)
	builder := SPMetadataBuilder{
		EntityID:             "https://sp.example/entity",
		Certificate:          cert,
		AcsURL:               url.URL{Scheme: "https", Host: "sp.example", Path: "/acs"},
		WantAssertionsSigned: true,
	}
	ed := builder.Build()

	data, err := xml.Marshal(ed)
	require.NoError(t, err)

	parsed, err := ParseEntityMetadata(data)
	require.NoError(t, err)
	require.Equal(t, "https://sp.example/entity", parsed.EntityID)
	require.Len(t, parsed.SPSSODescriptors, 1)
	require.NotNil(t, SPWantsAssertionsSigned(parsed))
	require.True(t, *SPWantsAssertionsSigned(parsed))
}

// TestParseEntityMetadataFallsBackFromEntitiesDescriptor matches
// insaplace-saml's own reason for this fallback (samlsp/fetch_metadata.go):
// many IdPs wrap a single entity's metadata in an <EntitiesDescriptor>.
func TestParseEntityMetadataFallsBackFromEntitiesDescriptor(t *testing.T) {
	entities := &EntitiesDescriptor{
		EntityDescriptors: []EntityDescriptor{
			{EntityID: "https://sp-only.example/entity"},
			{
				EntityID: "https://idp.example/entity",
				IDPSSODescriptors: []IDPSSODescriptor{
					{SSODescriptor: SSODescriptor{RoleDescriptor: RoleDescriptor{ProtocolSupportEnumeration: "urn:oasis:names:tc:SAML:2.0:protocol"}}},
				},
			},
		},
	}
	data, err := xml.Marshal(entities)
	require.NoError(t, err)

	entity, err := ParseEntityMetadata(data)
	require.NoError(t, err)
	require.Equal(t, "https://idp.example/entity", entity.EntityID)
}

func TestParseEntitiesMetadataFallsBackFromEntityDescriptor(t *testing.T) {
	entity := &EntityDescriptor{EntityID: "https://idp.example/entity"}
	data, err := xml.Marshal(entity)
	require.NoError(t, err)

	entities, err := ParseEntitiesMetadata(data)
	require.NoError(t, err)
	require.Len(t, entities.EntityDescriptors, 1)
	require.Equal(t, "https://idp.example/entity", entities.EntityDescriptors[0].EntityID)
}

func TestIDPCertificatesExtractsSigningCertificate(t *testing.T) {
	cert := selfSignedCert(t)
	ed := &EntityDescriptor{
		EntityID: "https://idp.example/entity",
		IDPSSODescriptors: []IDPSSODescriptor{
			{
				SSODescriptor: SSODescriptor{
					RoleDescriptor: RoleDescriptor{
						KeyDescriptors: []KeyDescriptor{
							{
								Use: "signing",
								KeyInfo: KeyInfo{X509Data: X509Data{X509Certificates: []X509Certificate{
									{Data: certToBase64(t, cert)},
								}}},
							},
						},
					},
				},
			},
		},
	}

	certs, err := IDPCertificates(ed)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	require.Equal(t, cert.Raw, certs[0].Raw)
}

func TestIDPCertificatesErrorsWithoutIDPSSODescriptor(t *testing.T) {
	_, err := IDPCertificates(&EntityDescriptor{EntityID: "https://sp-only.example/entity"})
	require.Error(t, err)
}

func certToBase64(t *testing.T, cert *x509.Certificate) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(cert.Raw)
}
