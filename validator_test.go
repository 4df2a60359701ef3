package samlvalidate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/insaplace/samlvalidate/internal/testsaml"
)

// TestValidatorHappyPath covers spec.md §8 scenario 1: a well-formed,
// unsigned-but-trusted response from an authenticated peer yields a
// Credential whose fields are exactly those carried by the assertion.
func TestValidatorHappyPath(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")

	v := Validator{Scope: "happy-path", Clock: fixedClock(now)}
	cred, err := v.Validate(baseContext(now), resp)
	require.NoError(t, err)

	want := &Credential{
		NameID:                NameID{Format: string(PersistentNameIDFormat), Value: "subject-1"},
		IssuerEntityID:         testsaml.IdPEntityID,
		Conditions:             resp.Assertions[0].Conditions,
		SessionIndex:           "s1",
		AuthnContextClassRefs:  []string{"urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"},
	}
	if diff := cmp.Diff(want, cred); diff != "" {
		t.Fatalf("credential mismatch (-want +got):\n%s", diff)
	}
}

// TestValidatorRejectsReplayedAssertion covers spec.md §8 scenario 2:
// presenting the identical response twice must succeed once and then fail
// with a Replay error, across two independent Validate calls sharing one
// replay cache.
func TestValidatorRejectsReplayedAssertion(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := baseContext(now)
	ctx.ReplayCache = NewInMemoryReplayCache(func() time.Time { return now })

	v := Validator{Scope: "replay-scenario", Clock: fixedClock(now)}

	first := testsaml.HappyPathResponse(now, "", "_replayed")
	_, err := v.Validate(ctx, first)
	require.NoError(t, err)

	second := testsaml.HappyPathResponse(now, "", "_replayed")
	_, err = v.Validate(ctx, second)
	ve := requireValidationError(t, err)
	require.Equal(t, Replay, ve.Kind)
}

// TestValidatorNameIDAttributeOverride covers spec.md §8 testable property
// 9: when Config.NameIDAttribute names a converted attribute present on the
// assertion, it supersedes the subject's own NameID.
func TestValidatorNameIDAttributeOverride(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")
	resp.Assertions[0].AttributeStatements = []AttributeStatement{
		{Attributes: []Attribute{
			{Name: "uid", Values: []AttributeValue{{Value: "override-subject"}}},
		}},
	}

	ctx := baseContext(now)
	ctx.Config.NameIDAttribute = "uid"

	v := Validator{Scope: "nameid-override", Clock: fixedClock(now)}
	cred, err := v.Validate(ctx, resp)
	require.NoError(t, err)
	require.Equal(t, "override-subject", cred.NameID.Value)
}

// TestValidatorRoundTripsConvertedAttributes covers spec.md §8 testable
// property 10: attributes present on the selected assertion survive into
// the credential, order-preserved, through the configured converter.
func TestValidatorRoundTripsConvertedAttributes(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")
	resp.Assertions[0].AttributeStatements = []AttributeStatement{
		{Attributes: []Attribute{
			{Name: "mail", Values: []AttributeValue{{Value: "person@example.org"}}},
			{Name: "roles", Values: []AttributeValue{{Value: "a,b,c"}}},
		}},
	}

	ctx := baseContext(now)
	ctx.Config.AttributeConverter = DelimitedAttributeConverter{Delimited: map[string]string{"roles": ","}}

	v := Validator{Scope: "attrs-round-trip", Clock: fixedClock(now)}
	cred, err := v.Validate(ctx, resp)
	require.NoError(t, err)

	want := []ConvertedAttribute{
		{Name: "mail", Values: []string{"person@example.org"}},
		{Name: "roles", Values: []string{"a", "b", "c"}},
	}
	if diff := cmp.Diff(want, cred.Attributes); diff != "" {
		t.Fatalf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidatorSignatureRequiredWhenPeerUnauthenticatedAndEnvelopeUnsigned(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := testsaml.HappyPathResponse(now, "", "_a1")

	ctx := baseContext(now)
	ctx.Peer.Authenticated = false

	v := Validator{Scope: "unauthenticated-peer", Clock: fixedClock(now)}
	_, err := v.Validate(ctx, resp)
	ve := requireValidationError(t, err)
	require.Equal(t, SignatureRequired, ve.Kind)
}
