package samlvalidate

import (
	"errors"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// TrustEngine (C2) verifies an XML signature against trust material
// configured for a named peer entity. It wraps a *dsig.ValidationContext
// the same way other_examples/17ff8dd7_dexidp-dex__connector-saml-saml.go.go's
// provider.validator field does, and the teacher's own stack (goxmldsig +
// beevik/etree) is used unmodified for the actual cryptographic work.
type TrustEngine interface {
	// Verify checks the signature embedded in root against the trust
	// material configured for expectedEntityID. It must fail if root carries
	// no signature at all; callers that want "verify if present" semantics
	// use VerifyIfPresent instead.
	Verify(root *etree.Element, expectedEntityID string) error
}

// SignatureTrustEngineProvider builds a TrustEngine for a validation call,
// per spec §6. Implementations are expected to be reusable and safe for
// concurrent use, mirroring goxmldsig's own ValidationContext contract.
type SignatureTrustEngineProvider interface {
	Build() (TrustEngine, error)
}

// DsigTrustEngine is the reference TrustEngine, a thin adapter over
// goxmldsig's ValidationContext. CertificateStore supplies the per-entity
// trust material; entity scoping is left to the store implementation
// (e.g. one store per configured IdP) since goxmldsig's CertificateStore
// interface does not take an entity id itself.
type DsigTrustEngine struct {
	Ctx *dsig.ValidationContext
}

// NewDsigTrustEngine builds a TrustEngine backed by the given certificate
// store, using goxmldsig's default validation context the way
// other_examples/17ff8dd7_dexidp-dex__connector-saml-saml.go.go does via
// dsig.NewDefaultValidationContext.
func NewDsigTrustEngine(store dsig.X509CertificateStore) *DsigTrustEngine {
	return &DsigTrustEngine{Ctx: dsig.NewDefaultValidationContext(store)}
}

// Verify implements TrustEngine. expectedEntityID is accepted for interface
// symmetry; entity scoping is the certificate store's responsibility.
func (e *DsigTrustEngine) Verify(root *etree.Element, expectedEntityID string) error {
	if root == nil {
		return errors.New("samlvalidate: no signed element to verify")
	}
	if e.Ctx == nil {
		return errors.New("samlvalidate: trust engine has no validation context")
	}
	if _, err := e.Ctx.Validate(root); err != nil {
		return err
	}
	return nil
}

// VerifyIfPresent is a no-op when sig is nil; callers enforce mandatoriness
// of the signature separately (spec §4.2).
func VerifyIfPresent(engine TrustEngine, root *etree.Element, sig *etree.Element, expectedEntityID string) error {
	if sig == nil {
		return nil
	}
	return engine.Verify(root, expectedEntityID)
}

// StaticTrustEngineProvider returns a fixed, pre-built TrustEngine — useful
// when a single IdP's key material is known ahead of time (tests, the
// demo), rather than resolved afresh per call.
type StaticTrustEngineProvider struct {
	Engine TrustEngine
}

func (p StaticTrustEngineProvider) Build() (TrustEngine, error) {
	if p.Engine == nil {
		return nil, errors.New("samlvalidate: no trust engine configured")
	}
	return p.Engine, nil
}
