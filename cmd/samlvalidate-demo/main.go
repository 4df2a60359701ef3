// Command samlvalidate-demo wires samlvalidate.Validator behind a minimal
// ACS endpoint. Binding decode (base64 HTTP-POST body handling) is
// explicitly out of the core validator's scope (spec.md §1); this command
// exists only to exercise the teacher's goji router and httperr error
// mapping the way insaplace-saml's own samlsp package would, not to
// satisfy any spec.md operation.
//
// It also exercises the two packages that validation itself doesn't need
// at request time but a deployment does: package metadata fetches and
// parses the IdP's published EntityDescriptor to build a TrustEngine, and
// package keystore loads this SP's own signing/encryption key pair from a
// PKCS#12 bundle to both publish SP metadata and populate Context.Decrypter.
package main

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/crewjam/httperr"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/zenazn/goji"
	"github.com/zenazn/goji/web"

	saml "github.com/insaplace/samlvalidate"
	"github.com/insaplace/samlvalidate/keystore"
	"github.com/insaplace/samlvalidate/metadata"
)

var (
	idpMetadataURL = flag.String("idp-metadata-url", "", "URL of the IdP's SAML metadata document; when set, the demo fetches it and trusts only the certificates it publishes")
	spEntityID     = flag.String("sp-entity-id", "https://sp.example/saml/metadata", "this SP's entity id")
	spACSURL       = flag.String("sp-acs-url", "https://sp.example/saml/acs", "this SP's assertion consumer service URL")
	spKeystorePath = flag.String("sp-keystore", "", "path to a PKCS#12 bundle holding this SP's signing/encryption key pair; when set, the demo publishes the certificate in its own metadata and decrypts EncryptedAssertions with the private key")
	spKeystorePass = flag.String("sp-keystore-password", "", "password for -sp-keystore")
)

// server holds everything the demo needs to validate one incoming
// AuthnResponse: the Validator itself, the Context describing its
// configuration and collaborators, and the SP's own metadata document (if
// a keystore was configured) to serve back to the IdP.
type server struct {
	validator  saml.Validator
	ctx        saml.Context
	spMetadata *metadata.EntityDescriptor
}

func (s *server) acs(c web.C, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErr(w, httperr.Error{Code: http.StatusBadRequest, Err: err})
		return
	}
	raw, err := base64.StdEncoding.DecodeString(r.PostForm.Get("SAMLResponse"))
	if err != nil {
		writeErr(w, httperr.Error{Code: http.StatusBadRequest, Err: fmt.Errorf("decode SAMLResponse: %w", err)})
		return
	}

	var resp saml.Response
	if err := xml.Unmarshal(raw, &resp); err != nil {
		writeErr(w, httperr.Error{Code: http.StatusBadRequest, Err: fmt.Errorf("unmarshal response: %w", err)})
		return
	}

	cred, err := s.validator.Validate(s.ctx, &resp)
	if err != nil {
		writeErr(w, httperr.Error{Code: statusFor(err), Err: err})
		return
	}

	fmt.Fprintf(w, "authenticated as %s (issuer %s, session %s)\n", cred.NameID.Value, cred.IssuerEntityID, cred.SessionIndex)
}

// writeErr renders a crewjam/httperr.Error the way the teacher's stack is
// meant to be used: the Code/Err pair set the HTTP response directly.
func writeErr(w http.ResponseWriter, e httperr.Error) {
	http.Error(w, e.Err.Error(), e.Code)
}

// statusFor maps a samlvalidate.ValidationError onto an HTTP status code,
// the demo's equivalent of the teacher's own error-to-HTTP-status
// convention from the crewjam/httperr dependency.
func statusFor(err error) int {
	ve, ok := err.(*saml.ValidationError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ve.Kind {
	case saml.InvalidMessage, saml.EndpointMismatch, saml.IssuerMismatch, saml.IssueInstant,
		saml.InResponseToMismatch, saml.AssertionCondition, saml.AudienceRestriction,
		saml.AuthnInstant, saml.AuthnSessionCriteria, saml.AuthnContextClassRef:
		return http.StatusBadRequest
	case saml.StatusFailure, saml.SignatureRequired, saml.SignatureValidation,
		saml.NoSubjectAssertion, saml.SubjectConfirmation, saml.Replay:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) metadata(c web.C, w http.ResponseWriter, r *http.Request) {
	if s.spMetadata == nil {
		io.WriteString(w, "no -sp-keystore configured for this demo; nothing to publish\n")
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	if err := xml.NewEncoder(w).Encode(s.spMetadata); err != nil {
		writeErr(w, httperr.Error{Code: http.StatusInternalServerError, Err: err})
	}
}

// buildTrustEngineProvider fetches and parses the IdP's published metadata
// and trusts exactly the certificates it publishes, via
// metadata.FetchEntityMetadata and metadata.IDPCertificates. Without
// -idp-metadata-url the demo falls back to a TrustEngineProvider whose
// Build always errors, so Validate rejects every response with
// SignatureValidation rather than validating against an empty trust store.
func buildTrustEngineProvider(metadataURL string) (saml.SignatureTrustEngineProvider, error) {
	if metadataURL == "" {
		return saml.StaticTrustEngineProvider{}, nil
	}

	u, err := url.Parse(metadataURL)
	if err != nil {
		return nil, fmt.Errorf("parse -idp-metadata-url: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ed, err := metadata.FetchEntityMetadata(ctx, http.DefaultClient, *u)
	if err != nil {
		return nil, fmt.Errorf("fetch IdP metadata: %w", err)
	}

	certs, err := metadata.IDPCertificates(ed)
	if err != nil {
		return nil, fmt.Errorf("extract IdP signing certificates: %w", err)
	}

	engine := saml.NewDsigTrustEngine(&dsig.MemoryX509CertificateStore{Roots: certs})
	return saml.StaticTrustEngineProvider{Engine: engine}, nil
}

// loadSPKeyPair loads this SP's signing/encryption key pair from a PKCS#12
// bundle via keystore.LoadPKCS12, for both publishing SP metadata and
// populating Context.Decrypter.
func loadSPKeyPair(path, password string) (*keystore.KeyPair, error) {
	der, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read -sp-keystore: %w", err)
	}
	kp, err := keystore.LoadPKCS12(der, password)
	if err != nil {
		return nil, fmt.Errorf("load -sp-keystore: %w", err)
	}
	return kp, nil
}

func main() {
	flag.Parse()

	trustProvider, err := buildTrustEngineProvider(*idpMetadataURL)
	if err != nil {
		log.Fatalf("samlvalidate-demo: %v", err)
	}

	acsURL, err := url.Parse(*spACSURL)
	if err != nil {
		log.Fatalf("samlvalidate-demo: parse -sp-acs-url: %v", err)
	}

	s := &server{
		validator: saml.Validator{Scope: "samlvalidate-demo"},
		ctx: saml.Context{
			Config: saml.Config{
				WantAuthnResponsesSigned:  true,
				WantAssertionsSigned:      true,
				MaxAuthenticationLifetime: 300,
				AcceptedClockSkew:         90,
			},
			Endpoint:            saml.EndpointContext{Location: *spACSURL},
			Self:                saml.SelfEntityContext{EntityID: *spEntityID},
			Peer:                saml.PeerEntityContext{EntityID: *idpMetadataURL},
			TrustEngineProvider: trustProvider,
		},
	}

	if *spKeystorePath != "" {
		kp, err := loadSPKeyPair(*spKeystorePath, *spKeystorePass)
		if err != nil {
			log.Fatalf("samlvalidate-demo: %v", err)
		}
		s.ctx.Decrypter = keystore.Decrypter{Key: kp.PrivateKey}

		s.spMetadata = metadata.SPMetadataBuilder{
			EntityID:             *spEntityID,
			Certificate:          kp.Certificate,
			AcsURL:               *acsURL,
			WantAssertionsSigned: s.ctx.Config.WantAssertionsSigned,
		}.Build()
	}

	goji.Get("/saml/metadata", s.metadata)
	goji.Post("/saml/acs", s.acs)

	log.Println("samlvalidate-demo listening")
	goji.Serve()
}
