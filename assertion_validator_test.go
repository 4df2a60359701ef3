package samlvalidate

import (
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"

	"github.com/insaplace/samlvalidate/internal/testsaml"
)

func assertionValidator(now time.Time) AssertionValidator {
	return AssertionValidator{
		Clock:       fixedClock(now),
		Replay:      ReplayGuard{Cache: NewInMemoryReplayCache(func() time.Time { return now })},
		ReplayScope: "test",
	}
}

func TestAssertionValidatorHappyPath(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")

	av := assertionValidator(now)
	assertion, ws, err := av.SelectAndValidate(baseContext(now), resp, noopTrustEngine{})
	require.NoError(t, err)
	require.Equal(t, "_a1", assertion.ID)
	require.NotNil(t, ws.nameID)
	require.Equal(t, "subject-1", ws.nameID.Value)
}

func TestAssertionValidatorRejectsAudienceMismatch(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")
	resp.Assertions[0].Conditions.AudienceRestrictions[0].Audiences[0].Value = "https://not-the-sp.example/entity"

	av := assertionValidator(now)
	_, _, err := av.SelectAndValidate(baseContext(now), resp, noopTrustEngine{})
	ve := requireValidationError(t, err)
	require.Equal(t, AudienceRestriction, ve.Kind)
}

func TestAssertionValidatorRequiresAssertionSignatureWhenUnauthenticated(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")

	ctx := baseContext(now)
	ctx.Peer.Authenticated = false

	av := assertionValidator(now)
	_, _, err := av.SelectAndValidate(ctx, resp, noopTrustEngine{})
	ve := requireValidationError(t, err)
	require.Equal(t, SignatureRequired, ve.Kind)
}

func TestAssertionValidatorDetectsReplay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	av := assertionValidator(now)
	ctx := baseContext(now)

	resp1 := testsaml.HappyPathResponse(now, "", "_dup")
	_, _, err := av.SelectAndValidate(ctx, resp1, noopTrustEngine{})
	require.NoError(t, err)

	resp2 := testsaml.HappyPathResponse(now, "", "_dup")
	_, _, err = av.SelectAndValidate(ctx, resp2, noopTrustEngine{})
	ve := requireValidationError(t, err)
	require.Equal(t, Replay, ve.Kind, "%# v", pretty.Formatter(ve))
}

func TestAssertionValidatorAcceptsPortVariantRecipient(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")
	resp.Assertions[0].Subject.SubjectConfirmations[0].SubjectConfirmationData.Recipient = "https://sp.example:443/acs"

	av := assertionValidator(now)
	_, _, err := av.SelectAndValidate(baseContext(now), resp, noopTrustEngine{})
	require.NoError(t, err)
}

func TestAssertionValidatorSkipsAssertionWithoutAuthnStatement(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")
	noAuthn := resp.Assertions[0]
	noAuthn.ID = "_no-authn"
	noAuthn.AuthnStatements = nil
	resp.Assertions = append([]Assertion{noAuthn}, resp.Assertions...)

	av := assertionValidator(now)
	assertion, _, err := av.SelectAndValidate(baseContext(now), resp, noopTrustEngine{})
	require.NoError(t, err)
	require.Equal(t, "_a1", assertion.ID, "the candidate lacking an authn statement must be skipped, not selected")
}

func TestAssertionValidatorEnforcesRequiredAuthnContextClassRefs(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")

	ctx := baseContext(now)
	ctx.Config.RequiredAuthnContextClassRefs = []string{"urn:oasis:names:tc:SAML:2.0:ac:classes:X509"}

	av := assertionValidator(now)
	_, _, err := av.SelectAndValidate(ctx, resp, noopTrustEngine{})
	ve := requireValidationError(t, err)
	require.Equal(t, AuthnContextClassRef, ve.Kind)
}
