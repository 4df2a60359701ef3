package samlvalidate

// AssertionValidator (C6) selects the authn-bearing assertion, validates
// its subject/conditions/authn-statements/signature, and assembles the
// credential (spec §4.6).
type AssertionValidator struct {
	Clock       Clock
	Replay      ReplayGuard
	Decryptor   DecryptionGateway
	ReplayScope string
}

// SelectAndValidate iterates resp.Assertions in document order and returns
// the first one that both has an authn statement and passes
// validateAssertion, along with the working set accumulated while
// validating its subject. Per spec §4.6 "Selection": if no candidate
// succeeds, the first error raised (if any) is surfaced; otherwise
// NoSubjectAssertion.
func (v AssertionValidator) SelectAndValidate(ctx Context, resp *Response, engine TrustEngine) (*Assertion, *workingSet, error) {
	var firstErr error
	for i := range resp.Assertions {
		assertion := &resp.Assertions[i]
		if !assertion.HasAuthnStatement() {
			continue
		}
		ws, err := v.validateAssertion(ctx, engine, assertion)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return assertion, ws, nil
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return nil, nil, newErr(NoSubjectAssertion, "no assertion carried an authn statement that validated")
}

func (v AssertionValidator) validateAssertion(ctx Context, engine TrustEngine, assertion *Assertion) (*workingSet, error) {
	if assertion.Version != SAML2Version {
		return nil, newErr(InvalidMessage, "unsupported SAML version %q on assertion %q", assertion.Version, assertion.ID)
	}
	if !v.Clock.IsWithinMaxAge(assertion.IssueInstant, ctx.Config.MaxAuthenticationLifetime) {
		return nil, newErr(IssueInstant, "assertion %q issue instant outside max authentication lifetime", assertion.ID)
	}
	if assertion.Issuer != nil && assertion.Issuer.Value != "" && assertion.Issuer.Value != ctx.Peer.EntityID {
		return nil, newErr(IssuerMismatch, "assertion issuer %q does not match expected peer %q", assertion.Issuer.Value, ctx.Peer.EntityID)
	}

	if assertion.Subject == nil {
		return nil, newErr(NoSubjectAssertion, "assertion %q has no subject", assertion.ID)
	}
	ws, err := v.validateSubject(ctx, assertion)
	if err != nil {
		return nil, err
	}

	if err := v.validateConditions(ctx, assertion); err != nil {
		return nil, err
	}

	if err := v.validateAuthnStatements(ctx, assertion); err != nil {
		return nil, err
	}

	if err := v.validateSignature(ctx, engine, assertion); err != nil {
		return nil, err
	}

	ws.subjectAssertion = assertion
	return ws, nil
}

func (v AssertionValidator) validateConditions(ctx Context, assertion *Assertion) error {
	cond := assertion.Conditions
	if cond == nil {
		return nil
	}
	skew := ctx.Config.AcceptedClockSkew
	if cond.NotBefore != nil && !v.Clock.NotBeforeOK(*cond.NotBefore, skew) {
		return newErr(AssertionCondition, "assertion %q conditions notBefore not yet valid", assertion.ID)
	}
	if cond.NotOnOrAfter != nil && !v.Clock.NotOnOrAfterOK(*cond.NotOnOrAfter, skew) {
		return newErr(AssertionCondition, "assertion %q conditions notOnOrAfter has expired", assertion.ID)
	}
	if len(cond.AudienceRestrictions) == 0 {
		return newErr(AudienceRestriction, "assertion %q has no audience restrictions", assertion.ID)
	}
	found := false
	for _, ar := range cond.AudienceRestrictions {
		for _, aud := range ar.Audiences {
			if aud.Value == ctx.Self.EntityID {
				found = true
			}
		}
	}
	if !found {
		return newErr(AudienceRestriction, "assertion %q audience restrictions do not contain %q", assertion.ID, ctx.Self.EntityID)
	}
	return nil
}

func (v AssertionValidator) validateAuthnStatements(ctx Context, assertion *Assertion) error {
	var classRefs []string
	for _, stmt := range assertion.AuthnStatements {
		if !v.Clock.IsWithinMaxAge(stmt.AuthnInstant, ctx.Config.MaxAuthenticationLifetime) {
			return newErr(AuthnInstant, "assertion %q authn instant outside max authentication lifetime", assertion.ID)
		}
		if stmt.SessionNotOnOrAfter != nil && !v.Clock.InFuture(*stmt.SessionNotOnOrAfter) {
			return newErr(AuthnSessionCriteria, "assertion %q sessionNotOnOrAfter has passed", assertion.ID)
		}
		if stmt.AuthnContext.AuthnContextClassRef != nil && stmt.AuthnContext.AuthnContextClassRef.Value != "" {
			classRefs = append(classRefs, stmt.AuthnContext.AuthnContextClassRef.Value)
		}
	}
	if len(ctx.Config.RequiredAuthnContextClassRefs) > 0 {
		provided := make(map[string]bool, len(classRefs))
		for _, c := range classRefs {
			provided[c] = true
		}
		for _, required := range ctx.Config.RequiredAuthnContextClassRefs {
			if !provided[required] {
				return newErr(AuthnContextClassRef, "required authn context class ref %q not satisfied by assertion %q", required, assertion.ID)
			}
		}
	}
	return nil
}

func (v AssertionValidator) validateSignature(ctx Context, engine TrustEngine, assertion *Assertion) error {
	if assertion.Signature != nil {
		if err := engine.Verify(assertion.Element, ctx.Peer.EntityID); err != nil {
			return wrapErr(SignatureValidation, err, "assertion %q signature did not verify", assertion.ID)
		}
		return nil
	}
	if ctx.Config.wantsAssertionsSigned() {
		return newErr(SignatureRequired, "assertion %q signature required but absent", assertion.ID)
	}
	if !ctx.Peer.Authenticated && !ctx.Config.AllSignatureValidationDisabled {
		return newErr(SignatureRequired, "assertion %q is unsigned and peer is unauthenticated", assertion.ID)
	}
	return nil
}

// validateSubject implements spec §4.6 "Subject validation".
func (v AssertionValidator) validateSubject(ctx Context, assertion *Assertion) (*workingSet, error) {
	subject := assertion.Subject
	ws := &workingSet{}

	nameID := subject.NameID
	baseID := subject.BaseID
	if subject.EncryptedID != nil {
		if decrypted := v.Decryptor.DecryptNameID(subject.EncryptedID); decrypted != nil {
			nameID = decrypted
		}
	}
	if nameID != nil {
		ws.nameID = nameID
		ws.samlIDFound = true
	} else if baseID != nil {
		ws.baseID = baseID
		ws.samlIDFound = true
	}

	for _, conf := range subject.SubjectConfirmations {
		if conf.Method != BearerMethod {
			continue
		}
		if !v.confirmationDataOK(ctx, conf) {
			continue
		}
		expiresAt := v.Clock.ExpiresAt(*conf.SubjectConfirmationData.NotOnOrAfter, ctx.Config.AcceptedClockSkew)
		if err := v.Replay.Check(v.ReplayScope, assertion.ID, expiresAt); err != nil {
			return nil, err
		}

		if !ws.samlIDFound {
			confNameID := conf.NameID
			if conf.EncryptedID != nil {
				if decrypted := v.Decryptor.DecryptNameID(conf.EncryptedID); decrypted != nil {
					confNameID = decrypted
				}
			}
			if confNameID != nil {
				ws.nameID = confNameID
				ws.samlIDFound = true
			} else if conf.BaseID != nil {
				ws.baseID = conf.BaseID
				ws.samlIDFound = true
			}
		}
		ws.acceptedConfirmations = append(ws.acceptedConfirmations, conf)
		return ws, nil
	}

	return nil, newErr(SubjectConfirmation, "no bearer subject confirmation was accepted")
}

// confirmationDataOK checks the bearer-specific rules of spec §4.6: present
// data, no notBefore, valid notOnOrAfter, recipient equal to the SP
// endpoint under the configured comparator.
func (v AssertionValidator) confirmationDataOK(ctx Context, conf SubjectConfirmation) bool {
	data := conf.SubjectConfirmationData
	if data == nil {
		return false
	}
	if data.NotBefore != nil {
		return false
	}
	if data.NotOnOrAfter == nil {
		return false
	}
	if !v.Clock.NotOnOrAfterOK(*data.NotOnOrAfter, ctx.Config.AcceptedClockSkew) {
		return false
	}
	if data.Recipient == "" {
		return false
	}
	if !isParseableURI(data.Recipient) {
		return false
	}
	return ctx.Config.uriComparator().Equal(data.Recipient, ctx.Endpoint.Location)
}

func isParseableURI(s string) bool {
	return parseURIOK(s)
}
