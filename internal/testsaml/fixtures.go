// Package testsaml builds signed, self-contained SAML fixtures shared by
// the package's _test.go files: a self-signed IdP key pair, a goxmldsig
// signing context, and helpers assembling a minimal valid Response/
// Assertion pair matching spec.md §8 scenario 1 ("happy path").
package testsaml

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/xml"
	"math/big"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	saml "github.com/insaplace/samlvalidate"
)

// IdP entity id, SP entity id, and ACS location used across fixtures.
const (
	IdPEntityID = "https://idp.example/entity"
	SPEntityID  = "https://sp.example/entity"
	ACSLocation = "https://sp.example/acs"
)

// KeyPair is an in-memory self-signed RSA key pair implementing
// dsig.X509KeyStore, used to sign fixtures and to build the matching trust
// engine in the same test.
type KeyPair struct {
	Key  *rsa.PrivateKey
	Cert *x509.Certificate
}

// GetKeyPair implements dsig.X509KeyStore.
func (k KeyPair) GetKeyPair() (crypto.Signer, []byte, error) {
	return k.Key, k.Cert.Raw, nil
}

// NewKeyPair generates a fresh self-signed RSA key pair for one test.
func NewKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "samlvalidate-test-idp"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Key: key, Cert: cert}, nil
}

// CertStore adapts a single KeyPair's certificate into a
// dsig.X509CertificateStore for building a TrustEngine.
type CertStore struct {
	Cert *x509.Certificate
}

func (s CertStore) Certificates() ([]*x509.Certificate, error) {
	return []*x509.Certificate{s.Cert}, nil
}

// SignElement signs el in place using an enveloped signature, returning the
// signed root element.
func SignElement(kp *KeyPair, el *etree.Element) (*etree.Element, error) {
	ctx := dsig.NewDefaultSigningContext(kp)
	return ctx.SignEnveloped(el)
}

// HappyPathResponse builds a complete, unsigned Response matching spec.md
// §8 scenario 1, with a single bearer-confirmed assertion carrying one
// authn statement. issueInstant/authnInstant/notOnOrAfter are all relative
// to now so tests stay stable regardless of wall-clock time.
func HappyPathResponse(now time.Time, inResponseTo, assertionID string) *saml.Response {
	notOnOrAfter := now.Add(5 * time.Minute)
	authnInstant := now.Add(-10 * time.Second)

	assertion := saml.Assertion{
		ID:           assertionID,
		Version:      saml.SAML2Version,
		IssueInstant: now,
		Issuer:       &saml.Issuer{Value: IdPEntityID},
		Subject: &saml.Subject{
			NameID: &saml.NameID{Format: string(saml.PersistentNameIDFormat), Value: "subject-1"},
			SubjectConfirmations: []saml.SubjectConfirmation{
				{
					Method: saml.BearerMethod,
					SubjectConfirmationData: &saml.SubjectConfirmationData{
						NotOnOrAfter: &notOnOrAfter,
						Recipient:    ACSLocation,
						InResponseTo: inResponseTo,
					},
				},
			},
		},
		Conditions: &saml.Conditions{
			NotOnOrAfter: &notOnOrAfter,
			AudienceRestrictions: []saml.AudienceRestriction{
				{Audiences: []saml.Audience{{Value: SPEntityID}}},
			},
		},
		AuthnStatements: []saml.AuthnStatement{
			{
				AuthnInstant: authnInstant,
				SessionIndex: "s1",
				AuthnContext: saml.AuthnContext{
					AuthnContextClassRef: &saml.AuthnContextClassRef{Value: "urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"},
				},
			},
		},
	}

	return &saml.Response{
		ID:           "_resp1",
		InResponseTo: inResponseTo,
		Version:      saml.SAML2Version,
		IssueInstant: now,
		Destination:  ACSLocation,
		Issuer:       &saml.Issuer{Value: IdPEntityID},
		Status:       saml.Status{StatusCode: saml.StatusCode{Value: saml.StatusSuccess}},
		Assertions:   []saml.Assertion{assertion},
	}
}

// MarshalElement is a small helper for tests that need to sign and then
// re-parse a Response or Assertion's XML form.
func MarshalElement(v interface{}) (*etree.Element, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc.Root(), nil
}
