package samlvalidate

import (
	"encoding/xml"
	"time"

	"github.com/beevik/etree"
)

// NameIDFormat identifies the SAML NameID format URI in use.
type NameIDFormat string

// The NameID formats defined by the SAML 2.0 core and SAML 1.1.
const (
	UnspecifiedNameIDFormat  NameIDFormat = "urn:oasis:names:tc:SAML:1.1:nameid-format:unspecified"
	TransientNameIDFormat    NameIDFormat = "urn:oasis:names:tc:SAML:2.0:nameid-format:transient"
	EmailAddressNameIDFormat NameIDFormat = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
	PersistentNameIDFormat   NameIDFormat = "urn:oasis:names:tc:SAML:2.0:nameid-format:persistent"
	EncryptedNameIDFormat    NameIDFormat = "urn:oasis:names:tc:SAML:2.0:nameid-format:encrypted"
)

// SAML 2.0 protocol bindings.
const (
	HTTPPostBinding     = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
	HTTPRedirectBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect"
	HTTPArtifactBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Artifact"
)

// StatusSuccess is the only status code value the validator treats as
// acceptable for further processing.
const StatusSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"

// SAML2Version is the only protocol version this validator accepts.
const SAML2Version = "2.0"

// Issuer identifies the entity that created a protocol message or assertion.
type Issuer struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Format  string   `xml:",attr,omitempty"`
	Value   string   `xml:",chardata"`
}

// StatusCode is a (possibly nested) status code value, used to represent the
// status "chain" carried by StatusFailure errors.
type StatusCode struct {
	XMLName    xml.Name    `xml:"urn:oasis:names:tc:SAML:2.0:protocol StatusCode"`
	Value      string      `xml:"Value,attr"`
	StatusCode *StatusCode `xml:"StatusCode,omitempty"`
}

// Status is the top-level <samlp:Status> of a Response.
type Status struct {
	XMLName      xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Status"`
	StatusCode   StatusCode `xml:"StatusCode"`
	StatusMessage string    `xml:"StatusMessage,omitempty"`
}

// Chain flattens the (possibly nested) status code into a slice of Value
// strings, top-level first, for inclusion in a StatusFailure error.
func (s Status) Chain() []string {
	var out []string
	for c := &s.StatusCode; c != nil; c = c.StatusCode {
		out = append(out, c.Value)
	}
	return out
}

// NameID is a SAML subject identifier.
type NameID struct {
	XMLName         xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion NameID"`
	NameQualifier   string   `xml:",attr,omitempty"`
	SPNameQualifier string   `xml:",attr,omitempty"`
	Format          string   `xml:",attr,omitempty"`
	SPProvidedID    string   `xml:",attr,omitempty"`
	Value           string   `xml:",chardata"`
}

// BaseID is the unqualified subject identifier element, used when NameID is
// not present.
type BaseID struct {
	XMLName         xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion BaseID"`
	NameQualifier   string   `xml:",attr,omitempty"`
	SPNameQualifier string   `xml:",attr,omitempty"`
	Value           string   `xml:",chardata"`
}

// EncryptedID wraps an encrypted subject identifier. The core never
// inspects its content directly; it is handed to a Decrypter.
type EncryptedID struct {
	XMLName  xml.Name      `xml:"urn:oasis:names:tc:SAML:2.0:assertion EncryptedID"`
	Element  *etree.Element `xml:"-"`
}

// SubjectConfirmationData carries the bearer confirmation's time window and
// intended recipient.
type SubjectConfirmationData struct {
	XMLName      xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmationData"`
	NotBefore    *time.Time `xml:",attr,omitempty"`
	NotOnOrAfter *time.Time `xml:",attr,omitempty"`
	Recipient    string     `xml:",attr,omitempty"`
	InResponseTo string     `xml:",attr,omitempty"`
	Address      string     `xml:",attr,omitempty"`
}

// SubjectConfirmation is one method by which a relying party may confirm
// that the subject of the assertion is the one presenting it.
type SubjectConfirmation struct {
	XMLName                 xml.Name                 `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmation"`
	Method                  string                   `xml:",attr"`
	BaseID                  *BaseID                  `xml:",omitempty"`
	NameID                  *NameID                  `xml:",omitempty"`
	EncryptedID             *EncryptedID             `xml:",omitempty"`
	SubjectConfirmationData *SubjectConfirmationData `xml:",omitempty"`
}

// BearerMethod is the only confirmation method this validator accepts.
const BearerMethod = "urn:oasis:names:tc:SAML:2.0:cm:bearer"

// Subject names the principal that is the subject of all the statements in
// an assertion.
type Subject struct {
	XMLName              xml.Name              `xml:"urn:oasis:names:tc:SAML:2.0:assertion Subject"`
	NameID               *NameID               `xml:",omitempty"`
	BaseID               *BaseID               `xml:",omitempty"`
	EncryptedID          *EncryptedID          `xml:",omitempty"`
	SubjectConfirmations []SubjectConfirmation `xml:"SubjectConfirmation,omitempty"`
}

// Audience is a single entry of an AudienceRestriction.
type Audience struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Audience"`
	Value   string   `xml:",chardata"`
}

// AudienceRestriction limits the parties to whom an assertion may be
// presented.
type AudienceRestriction struct {
	XMLName   xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:assertion AudienceRestriction"`
	Audiences []Audience `xml:"Audience"`
}

// Conditions constrains the time window and audience of an assertion.
type Conditions struct {
	XMLName              xml.Name              `xml:"urn:oasis:names:tc:SAML:2.0:assertion Conditions"`
	NotBefore            *time.Time            `xml:",attr,omitempty"`
	NotOnOrAfter         *time.Time            `xml:",attr,omitempty"`
	AudienceRestrictions []AudienceRestriction `xml:"AudienceRestriction,omitempty"`
}

// AuthnContextClassRef identifies the class of authentication context used.
type AuthnContextClassRef struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContextClassRef"`
	Value   string   `xml:",chardata"`
}

// AuthenticatingAuthority names an entity that participated in the
// authentication, distinct from the asserting IdP, in a proxied chain.
type AuthenticatingAuthority struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthenticatingAuthority"`
	Value   string   `xml:",chardata"`
}

// AuthnContext describes the context of an authentication event.
type AuthnContext struct {
	XMLName                   xml.Name                  `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContext"`
	AuthnContextClassRef      *AuthnContextClassRef     `xml:",omitempty"`
	AuthenticatingAuthorities []AuthenticatingAuthority `xml:"AuthenticatingAuthority,omitempty"`
}

// AuthnStatement records that the subject was authenticated at a point in
// time, by what means, and for how long the resulting session is valid.
type AuthnStatement struct {
	XMLName              xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnStatement"`
	AuthnInstant         time.Time  `xml:",attr"`
	SessionIndex         string     `xml:",attr,omitempty"`
	SessionNotOnOrAfter  *time.Time `xml:",attr,omitempty"`
	AuthnContext         AuthnContext
}

// AttributeValue is a single value of a SAML attribute.
type AttributeValue struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeValue"`
	Type    string   `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

// Attribute is a single named, possibly multi-valued, SAML attribute.
type Attribute struct {
	XMLName      xml.Name         `xml:"urn:oasis:names:tc:SAML:2.0:assertion Attribute"`
	Name         string           `xml:",attr"`
	FriendlyName string           `xml:",attr,omitempty"`
	NameFormat   string           `xml:",attr,omitempty"`
	Values       []AttributeValue `xml:"AttributeValue,omitempty"`
}

// EncryptedAttribute wraps an attribute whose value is only available after
// decryption.
type EncryptedAttribute struct {
	XMLName xml.Name       `xml:"urn:oasis:names:tc:SAML:2.0:assertion EncryptedAttribute"`
	Element *etree.Element `xml:"-"`
}

// AttributeStatement carries the attributes asserted about the subject.
type AttributeStatement struct {
	XMLName             xml.Name             `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeStatement"`
	Attributes          []Attribute          `xml:"Attribute,omitempty"`
	EncryptedAttributes []EncryptedAttribute `xml:"EncryptedAttribute,omitempty"`
}

// Assertion is a single SAML assertion as consumed by the validator. The
// embedded Element, when non-nil, is the parsed XML tree used for signature
// verification; binding layers that build an Assertion by hand (e.g. in
// tests) may leave it nil for assertions that are never signed.
type Assertion struct {
	XMLName             xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Assertion"`
	ID                  string   `xml:",attr"`
	Version             string   `xml:",attr"`
	IssueInstant        time.Time `xml:",attr"`
	Issuer              *Issuer
	Signature           *etree.Element `xml:"-"`
	Subject             *Subject
	Conditions          *Conditions
	AuthnStatements     []AuthnStatement     `xml:"AuthnStatement,omitempty"`
	AttributeStatements []AttributeStatement `xml:"AttributeStatement,omitempty"`

	// Element is the raw parsed tree of this assertion, required by the
	// TrustEngine to verify Signature. Populated by the binding layer (or by
	// DecryptAssertions, for assertions recovered from EncryptedAssertion).
	Element *etree.Element `xml:"-"`
}

// HasAuthnStatement reports whether this assertion carries at least one
// authentication statement, the gate for subject-assertion selection.
func (a *Assertion) HasAuthnStatement() bool {
	return len(a.AuthnStatements) > 0
}

// EncryptedAssertion wraps an assertion whose plaintext is only available
// after decryption via a Decrypter.
type EncryptedAssertion struct {
	XMLName xml.Name       `xml:"urn:oasis:names:tc:SAML:2.0:assertion EncryptedAssertion"`
	Element *etree.Element `xml:"-"`
}

// Response is the SAML envelope under validation: a samlp:Response
// containing a status and zero or more (possibly encrypted) assertions.
type Response struct {
	XMLName             xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol Response"`
	ID                  string   `xml:",attr"`
	InResponseTo        string   `xml:",attr,omitempty"`
	Version             string   `xml:",attr"`
	IssueInstant        time.Time `xml:",attr"`
	Destination         string    `xml:",attr,omitempty"`
	Issuer              *Issuer
	Signature           *etree.Element `xml:"-"`
	Status              Status
	Assertions          []Assertion          `xml:"Assertion,omitempty"`
	EncryptedAssertions []EncryptedAssertion `xml:"EncryptedAssertion,omitempty"`

	// Element is the raw parsed tree of the top-level Response, required by
	// the TrustEngine to verify Signature.
	Element *etree.Element `xml:"-"`
}

// AuthnRequest is the minimal view of a previously issued request the
// validator needs for InResponseTo / ACS cross-checks. The full request
// builder lives outside the core (spec §1 out-of-scope).
type AuthnRequest struct {
	XMLName                     xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol AuthnRequest"`
	ID                          string   `xml:",attr"`
	Version                     string   `xml:",attr"`
	IssueInstant                time.Time `xml:",attr"`
	Destination                 string    `xml:",attr,omitempty"`
	ProtocolBinding              string   `xml:",attr,omitempty"`
	AssertionConsumerServiceIndex *int    `xml:",attr,omitempty"`
	AssertionConsumerServiceURL   string  `xml:",attr,omitempty"`
	Issuer                       *Issuer
}
