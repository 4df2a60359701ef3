package metadata

import (
	"crypto/x509"
	"encoding/base64"
	"net/url"
)

// SPMetadataBuilder produces this SP's own EntityDescriptor, adapted from
// insaplace-saml's ServiceMultipleProvider.Metadata() (service_multiple_provider.go):
// the AuthnRequest-issuing, WAYF-redirecting parts of that type are out of
// this validator's scope (spec.md §1) and have been dropped; what survives
// is the SP metadata shape, because WantAssertionsSigned published here is
// exactly the "SP descriptor" override samlvalidate.Config.
// SPWantsAssertionsSigned consumes (spec.md §4.6.7).
type SPMetadataBuilder struct {
	EntityID string

	Certificate           *x509.Certificate
	Intermediates         []*x509.Certificate
	AcsURL                url.URL
	SloURL                url.URL
	AuthnNameIDFormat     NameIDFormat
	WantAssertionsSigned  bool
	AuthnRequestsSigned   bool
	LogoutBindings        []string
}

// Build renders the SP's EntityDescriptor.
func (b SPMetadataBuilder) Build() *EntityDescriptor {
	validUntil := TimeNow().Add(DefaultValidDuration)

	var keyDescriptors []KeyDescriptor
	if b.Certificate != nil {
		certBytes := append([]byte(nil), b.Certificate.Raw...)
		for _, intermediate := range b.Intermediates {
			certBytes = append(certBytes, intermediate.Raw...)
		}
		keyDescriptors = []KeyDescriptor{
			{
				Use: "encryption",
				KeyInfo: KeyInfo{
					X509Data: X509Data{
						X509Certificates: []X509Certificate{{Data: base64.StdEncoding.EncodeToString(certBytes)}},
					},
				},
				EncryptionMethods: []EncryptionMethod{
					{Algorithm: "http://www.w3.org/2001/04/xmlenc#aes128-cbc"},
					{Algorithm: "http://www.w3.org/2001/04/xmlenc#aes256-cbc"},
					{Algorithm: "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p"},
				},
			},
			{
				Use: "signing",
				KeyInfo: KeyInfo{
					X509Data: X509Data{
						X509Certificates: []X509Certificate{{Data: base64.StdEncoding.EncodeToString(certBytes)}},
					},
				},
			},
		}
	}

	sloEndpoints := make([]Endpoint, len(b.LogoutBindings))
	for i, binding := range b.LogoutBindings {
		sloEndpoints[i] = Endpoint{Binding: binding, Location: b.SloURL.String(), ResponseLocation: b.SloURL.String()}
	}

	authnRequestsSigned := b.AuthnRequestsSigned
	wantAssertionsSigned := b.WantAssertionsSigned

	return &EntityDescriptor{
		EntityID:   firstSet(b.EntityID, b.AcsURL.String()),
		ValidUntil: validUntil,
		SPSSODescriptors: []SPSSODescriptor{
			{
				SSODescriptor: SSODescriptor{
					RoleDescriptor: RoleDescriptor{
						ProtocolSupportEnumeration: "urn:oasis:names:tc:SAML:2.0:protocol",
						KeyDescriptors:             keyDescriptors,
						ValidUntil:                 &validUntil,
					},
					SingleLogoutServices: sloEndpoints,
					NameIDFormats:        []NameIDFormat{b.AuthnNameIDFormat},
				},
				AuthnRequestsSigned:  &authnRequestsSigned,
				WantAssertionsSigned: &wantAssertionsSigned,
				AssertionConsumerServices: []IndexedEndpoint{
					{Binding: HTTPPostBinding, Location: b.AcsURL.String(), Index: 1},
					{Binding: HTTPArtifactBinding, Location: b.AcsURL.String(), Index: 2},
				},
			},
		},
	}
}

// SPWantsAssertionsSigned extracts the WantAssertionsSigned override an SP
// publishes in its own metadata, for feeding into
// samlvalidate.Config.SPWantsAssertionsSigned.
func SPWantsAssertionsSigned(ed *EntityDescriptor) *bool {
	if ed == nil || len(ed.SPSSODescriptors) == 0 {
		return nil
	}
	return ed.SPSSODescriptors[0].WantAssertionsSigned
}
