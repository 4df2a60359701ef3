package samlvalidate

import "github.com/beevik/etree"

// Validator (the package's entry point) composes C1–C6 per spec §2: C5
// runs first on the envelope, then C3 decrypts encrypted assertions into a
// per-call copy of the response, then C6 selects and validates the subject assertion and builds
// the credential. Validate is a synchronous, blocking call on one logical
// request (spec §5); it holds no state of its own beyond what Context
// injects.
type Validator struct {
	// Scope partitions the replay cache across validator classes/instances
	// (spec §4.4's "scope string is the validator's identity").
	Scope string
	Clock  Clock
}

// Validate runs the full pipeline against resp using the collaborators and
// configuration carried in ctx, returning either a Credential or a
// *ValidationError. Any prior envelope-level message-replay check (spec
// §4.4's "implemented by the base layer") must already have run before
// this is called.
func (v Validator) Validate(ctx Context, resp *Response) (*Credential, error) {
	engine, err := v.buildTrustEngine(ctx)
	if err != nil {
		return nil, err
	}

	protocol := ProtocolValidator{Clock: v.Clock}
	reqCtx, err := protocol.Validate(ctx, resp, engine)
	if err != nil {
		return nil, err
	}

	// Decrypted assertions are appended to a per-call copy of the response,
	// so the caller's Response is left as it was passed in.
	view := *resp
	view.Assertions = append([]Assertion(nil), resp.Assertions...)
	resp = &view
	decryptor := DecryptionGateway{Decrypter: ctx.Decrypter, Log: ctx.log()}
	decryptor.DecryptAssertions(resp)

	assertionValidator := AssertionValidator{
		Clock:       v.Clock,
		Replay:      ReplayGuard{Cache: ctx.ReplayCache, Log: ctx.log()},
		Decryptor:   decryptor,
		ReplayScope: v.scope(),
	}
	assertion, ws, err := assertionValidator.SelectAndValidate(ctx, resp, engine)
	if err != nil {
		return nil, err
	}

	assertion.AttributeStatements = append([]AttributeStatement(nil), assertion.AttributeStatements...)
	for i := range assertion.AttributeStatements {
		decryptor.DecryptAttributes(&assertion.AttributeStatements[i])
	}

	for _, handler := range ctx.AssertionHandlers {
		if err := handler.HandleAssertion(assertion); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return nil, ve
			}
			return nil, wrapErr(NoSubjectAssertion, err, "assertion handler rejected assertion %q", assertion.ID)
		}
	}

	return v.buildCredential(ctx, resp, assertion, ws, reqCtx)
}

func (v Validator) scope() string {
	if v.Scope != "" {
		return v.Scope
	}
	return "samlvalidate"
}

func (v Validator) buildTrustEngine(ctx Context) (TrustEngine, error) {
	if ctx.TrustEngineProvider == nil {
		return noopTrustEngine{}, nil
	}
	engine, err := ctx.TrustEngineProvider.Build()
	if err != nil {
		return nil, wrapErr(SignatureValidation, err, "failed to build trust engine")
	}
	return engine, nil
}

// noopTrustEngine is used only when no SignatureTrustEngineProvider is
// configured at all; it fails closed on any attempt to verify an actual
// signature, so a misconfigured Context cannot silently accept unverified
// signed content.
type noopTrustEngine struct{}

func (noopTrustEngine) Verify(root *etree.Element, expectedEntityID string) error {
	return newErr(SignatureValidation, "no trust engine configured to verify signature")
}

func (v Validator) buildCredential(ctx Context, resp *Response, assertion *Assertion, ws *workingSet, reqCtx *RequestContext) (*Credential, error) {
	attrs := convertAttributes(assertion.AttributeStatements, ctx.Config.attributeConverter())

	nameID, err := v.resolveNameID(ctx, ws, attrs)
	if err != nil {
		return nil, err
	}

	var sessionIndex string
	if len(assertion.AuthnStatements) > 0 {
		sessionIndex = assertion.AuthnStatements[0].SessionIndex
	}

	if ctx.LogoutHandler != nil {
		ctx.LogoutHandler.RecordSession(sessionIndex, nameID.Value)
	}

	var classRefs []string
	var authorities []string
	for _, stmt := range assertion.AuthnStatements {
		if stmt.AuthnContext.AuthnContextClassRef != nil && stmt.AuthnContext.AuthnContextClassRef.Value != "" {
			classRefs = append(classRefs, stmt.AuthnContext.AuthnContextClassRef.Value)
		}
		for _, auth := range stmt.AuthnContext.AuthenticatingAuthorities {
			authorities = append(authorities, auth.Value)
		}
	}

	issuerEntityID := ""
	if assertion.Issuer != nil {
		issuerEntityID = assertion.Issuer.Value
	}

	inResponseTo := resp.InResponseTo
	if reqCtx != nil && reqCtx.Request != nil {
		inResponseTo = reqCtx.Request.ID
	}

	return &Credential{
		NameID:                    nameID,
		IssuerEntityID:            issuerEntityID,
		Attributes:                attrs,
		Conditions:                assertion.Conditions,
		SessionIndex:              sessionIndex,
		AuthnContextClassRefs:     classRefs,
		AuthenticatingAuthorities: authorities,
		InResponseTo:              inResponseTo,
	}, nil
}

// resolveNameID implements spec §4.6 "Principal derivation": the
// configured NameIDAttribute, when present among the converted attributes,
// wins; otherwise the subject identifier recorded during subject
// validation is used, and it must not be absent at this point.
func (v Validator) resolveNameID(ctx Context, ws *workingSet, attrs []ConvertedAttribute) (NameID, error) {
	if ctx.Config.NameIDAttribute != "" {
		if value, ok := firstAttributeValue(attrs, ctx.Config.NameIDAttribute); ok {
			return NameID{Value: value, Format: string(UnspecifiedNameIDFormat)}, nil
		}
	}
	if ws.nameID != nil {
		return *ws.nameID, nil
	}
	if ws.baseID != nil {
		return NameID{
			Value:           ws.baseID.Value,
			NameQualifier:   ws.baseID.NameQualifier,
			SPNameQualifier: ws.baseID.SPNameQualifier,
		}, nil
	}
	return NameID{}, newErr(NoSubjectAssertion, "no subject identifier was established; preceding checks were inconsistent")
}
