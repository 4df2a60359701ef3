// Package metadata adapts the teacher's SP/IdP metadata model and fetch
// helpers into supporting, binding-layer infrastructure for samlvalidate.
// SP metadata generation and IdP metadata resolution are explicit
// non-goals of the core validator (spec.md §1); this package exists only
// so the demo and tests have a real way to obtain and describe trust
// material, grounded on insaplace-saml's own metadata types and
// samlsp/fetch_metadata.go.
package metadata

import (
	"encoding/xml"
	"time"
)

// DefaultValidDuration is how long generated SP metadata is considered
// valid, matching the teacher's own constant.
const DefaultValidDuration = 24 * time.Hour

// TimeNow is overridable for deterministic tests, mirroring the teacher's
// package-level TimeNow var in service_multiple_provider.go.
var TimeNow = time.Now

// NameIDFormat mirrors samlvalidate.NameIDFormat to avoid a dependency
// from this binding-layer package back onto the core module's internal
// naming (the two are kept as distinct, explicitly convertible types).
type NameIDFormat string

const (
	HTTPPostBinding     = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
	HTTPArtifactBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Artifact"
)

// X509Certificate is a single base64 DER certificate, as embedded in
// KeyInfo/X509Data.
type X509Certificate struct {
	Data string `xml:",chardata"`
}

// X509Data wraps one or more certificates associated with a key.
type X509Data struct {
	X509Certificates []X509Certificate `xml:"X509Certificate"`
}

// KeyInfo carries the public key material for a KeyDescriptor.
type KeyInfo struct {
	X509Data X509Data `xml:"X509Data"`
}

// EncryptionMethod names one algorithm a KeyDescriptor supports.
type EncryptionMethod struct {
	Algorithm string `xml:",attr"`
}

// KeyDescriptor describes one signing or encryption key an entity
// publishes in its metadata.
type KeyDescriptor struct {
	Use               string             `xml:",attr,omitempty"`
	KeyInfo           KeyInfo            `xml:"KeyInfo"`
	EncryptionMethods []EncryptionMethod `xml:"EncryptionMethod,omitempty"`
}

// Endpoint is a single protocol endpoint (e.g. a Single Logout Service).
type Endpoint struct {
	Binding          string `xml:",attr"`
	Location         string `xml:",attr"`
	ResponseLocation string `xml:",attr,omitempty"`
}

// IndexedEndpoint is an Endpoint that also carries an index, as used for
// AssertionConsumerService entries.
type IndexedEndpoint struct {
	Binding  string `xml:",attr"`
	Location string `xml:",attr"`
	Index    int    `xml:",attr"`
}

// RoleDescriptor is the shared base of SP/IdP role descriptors.
type RoleDescriptor struct {
	ProtocolSupportEnumeration string          `xml:",attr"`
	KeyDescriptors             []KeyDescriptor `xml:"KeyDescriptor,omitempty"`
	ValidUntil                 *time.Time      `xml:",attr,omitempty"`
}

// SSODescriptor is the shared base of SP/IdP SSO descriptors.
type SSODescriptor struct {
	RoleDescriptor
	SingleLogoutServices []Endpoint     `xml:"SingleLogoutService,omitempty"`
	NameIDFormats        []NameIDFormat `xml:"NameIDFormat,omitempty"`
}

// SPSSODescriptor describes a service provider's SAML role.
type SPSSODescriptor struct {
	SSODescriptor
	AuthnRequestsSigned       *bool             `xml:",attr,omitempty"`
	WantAssertionsSigned      *bool             `xml:",attr,omitempty"`
	AssertionConsumerServices []IndexedEndpoint `xml:"AssertionConsumerService,omitempty"`
}

// IDPSSODescriptor describes an identity provider's SAML role. It is used
// to locate the IdP inside a multi-entity EntitiesDescriptor document and
// as the source of the IdP's certificates in IDPCertificates.
type IDPSSODescriptor struct {
	SSODescriptor
	SingleSignOnServices []Endpoint `xml:"SingleSignOnService,omitempty"`
}

// EntityDescriptor is a single entity's SAML metadata document.
type EntityDescriptor struct {
	XMLName           xml.Name           `xml:"EntityDescriptor"`
	EntityID          string             `xml:",attr"`
	ValidUntil        time.Time          `xml:",attr,omitempty"`
	SPSSODescriptors  []SPSSODescriptor  `xml:"SPSSODescriptor,omitempty"`
	IDPSSODescriptors []IDPSSODescriptor `xml:"IDPSSODescriptor,omitempty"`
}

// EntitiesDescriptor wraps one or more EntityDescriptor elements, and
// optionally names a WAYF/discovery service via Name.
type EntitiesDescriptor struct {
	XMLName           xml.Name           `xml:"EntitiesDescriptor"`
	Name              *string            `xml:",attr,omitempty"`
	EntityDescriptors []EntityDescriptor `xml:"EntityDescriptor,omitempty"`
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
