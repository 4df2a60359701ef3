package samlvalidate

import (
	"github.com/insaplace/samlvalidate/logger"
)

// Config is the read-only configuration snapshot consumed by a validation
// call (spec §9's "split into a read-only configuration view and a
// per-request working set" generalization of the mutable context the
// source threads through every step).
type Config struct {
	WantAuthnResponsesSigned bool
	WantAssertionsSigned     bool
	// SPWantsAssertionsSigned, when non-nil, overrides WantAssertionsSigned
	// per spec §4.6.7 ("SP descriptor taking precedence when available").
	SPWantsAssertionsSigned *bool

	AllSignatureValidationDisabled bool

	// MaxAuthenticationLifetime bounds issueInstant/authnInstant windows, in
	// seconds. <= 0 disables the corresponding check (spec §4.1).
	MaxAuthenticationLifetime int

	// AcceptedClockSkew is the tolerance, in seconds, applied to notBefore/
	// notOnOrAfter checks (conditions and bearer confirmation data) and to
	// the replay-cache expiry. The issueInstant/authnInstant windows and the
	// sessionNotOnOrAfter check do not apply it.
	AcceptedClockSkew int

	ResponseDestinationMandatory bool

	// RequiredAuthnContextClassRefs, when non-empty, must all be present
	// among an assertion's authn context class refs (spec §4.6.6).
	RequiredAuthnContextClassRefs []string

	// NameIDAttribute, when set and present in the converted attributes,
	// overrides the subject name id derivation (spec §4.6 "Principal
	// derivation").
	NameIDAttribute string

	URIComparator      URIComparator
	AttributeConverter AttributeConverter
}

func (c Config) uriComparator() URIComparator {
	if c.URIComparator != nil {
		return c.URIComparator
	}
	return PortNormalizingURIComparator{}
}

func (c Config) attributeConverter() AttributeConverter {
	if c.AttributeConverter != nil {
		return c.AttributeConverter
	}
	return PassthroughAttributeConverter{}
}

// wantsAssertionsSigned resolves the effective "wants assertions signed"
// flag, giving the SP descriptor override precedence when present, per
// spec §4.6.7.
func (c Config) wantsAssertionsSigned() bool {
	if c.SPWantsAssertionsSigned != nil {
		return *c.SPWantsAssertionsSigned
	}
	return c.WantAssertionsSigned
}

// EndpointContext describes the SP's assertion-consumer endpoint that
// bearer confirmations and Destination must bind to (spec §3).
type EndpointContext struct {
	Location         string
	ResponseLocation string
	Index            int
	Binding          string
}

// acceptableDestinations returns the set of URLs a Response's Destination
// may equal, per spec §4.5.6.
func (e EndpointContext) acceptableDestinations() []string {
	out := make([]string, 0, 2)
	if e.Location != "" {
		out = append(out, e.Location)
	}
	if e.ResponseLocation != "" && e.ResponseLocation != e.Location {
		out = append(out, e.ResponseLocation)
	}
	return out
}

// PeerEntityContext describes the expected IdP and whether it has been
// authenticated by an outer layer (e.g. via TLS client auth or a prior
// back-channel exchange), per spec §3.
type PeerEntityContext struct {
	EntityID      string
	Authenticated bool
}

// SelfEntityContext names the SP's own entity id, used as the expected
// audience (spec §3).
type SelfEntityContext struct {
	EntityID string
}

// RequestContext, when the response carries an InResponseTo that resolved
// against the SentMessageStore, carries the original request's ACS
// expectations for the non-fatal cross-checks in spec §4.5.7.
type RequestContext struct {
	Request *AuthnRequest
}

// Context is the full per-request input to Validate: a read-only
// configuration view plus the injected collaborators. The per-request
// working set is kept apart from it (workingSet) and never leaves a
// Validate call. Collaborators are injected here; all three
// (ReplayCache, SentMessageStore, LogoutHandler) must be safe for
// concurrent use by independent requests (spec §5).
type Context struct {
	Config Config

	Endpoint EndpointContext
	Peer     PeerEntityContext
	Self     SelfEntityContext

	TrustEngineProvider SignatureTrustEngineProvider
	Decrypter           Decrypter
	ReplayCache         ReplayCache
	SentMessageStore    SentMessageStore
	LogoutHandler       LogoutHandler

	// AssertionHandlers run, in order, against the selected subject
	// assertion once it has fully validated but before the credential is
	// built. This generalizes the teacher's samlsp.AssertionHandler
	// integration hook (a single HandleAssertion(*Assertion) error method)
	// into an injected strategy list rather than an open class extension
	// point, per spec §9.
	AssertionHandlers []AssertionHandler

	Log logger.Interface
}

// AssertionHandler lets an embedding application attach extra,
// application-specific checks or side effects to the selected subject
// assertion (e.g. enforcing a group membership policy) without the core
// validator knowing about them.
type AssertionHandler interface {
	HandleAssertion(assertion *Assertion) error
}

func (c Context) log() logger.Interface {
	if c.Log != nil {
		return c.Log
	}
	return logger.DefaultLogger
}

// workingSet is the mutable, per-request state accumulated while
// validating a single assertion's subject (spec §3's "mutable outputs").
// It never escapes one Validate call.
type workingSet struct {
	subjectAssertion         *Assertion
	baseID                   *BaseID
	nameID                   *NameID
	samlIDFound              bool
	acceptedConfirmations    []SubjectConfirmation
}
