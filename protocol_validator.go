package samlvalidate

// ProtocolValidator (C5) checks the Response envelope: status, version,
// issuer, issue instant, destination, InResponseTo, and the response-level
// signature. Steps run strictly in the order given by spec §4.5, so that
// cheaper, more diagnostic errors surface before expensive crypto (spec
// §5 "Ordering").
type ProtocolValidator struct {
	Clock Clock
}

// Validate runs the full C5 sequence. On success it returns the resolved
// RequestContext (nil if InResponseTo was absent or unresolved and no
// SentMessageStore rejection applies).
func (p ProtocolValidator) Validate(ctx Context, resp *Response, engine TrustEngine) (*RequestContext, error) {
	if err := p.checkStatus(resp); err != nil {
		return nil, err
	}
	if err := p.checkVersion(resp); err != nil {
		return nil, err
	}
	if err := p.checkSignature(ctx, resp, engine); err != nil {
		return nil, err
	}
	if err := p.checkIssueInstant(ctx, resp); err != nil {
		return nil, err
	}
	reqCtx, err := p.checkInResponseTo(ctx, resp)
	if err != nil {
		return nil, err
	}
	if err := p.checkDestination(ctx, resp); err != nil {
		return nil, err
	}
	p.crossCheckRequest(ctx, resp, reqCtx)
	if err := p.checkIssuer(ctx, resp); err != nil {
		return nil, err
	}
	return reqCtx, nil
}

func (p ProtocolValidator) checkStatus(resp *Response) error {
	if resp.Status.StatusCode.Value != StatusSuccess {
		return statusFailure(resp.Status.Chain())
	}
	return nil
}

func (p ProtocolValidator) checkVersion(resp *Response) error {
	if resp.Version != SAML2Version {
		return newErr(InvalidMessage, "unsupported SAML version %q", resp.Version)
	}
	return nil
}

func (p ProtocolValidator) checkSignature(ctx Context, resp *Response, engine TrustEngine) error {
	if ctx.Config.WantAuthnResponsesSigned && resp.Signature == nil {
		return newErr(SignatureRequired, "response signature required but absent")
	}
	if resp.Signature == nil {
		return nil
	}
	if err := engine.Verify(resp.Element, ctx.Peer.EntityID); err != nil {
		return wrapErr(SignatureValidation, err, "response signature did not verify")
	}
	return nil
}

func (p ProtocolValidator) checkIssueInstant(ctx Context, resp *Response) error {
	if !p.Clock.IsWithinMaxAge(resp.IssueInstant, ctx.Config.MaxAuthenticationLifetime) {
		return newErr(IssueInstant, "response issue instant %s outside max authentication lifetime", resp.IssueInstant)
	}
	return nil
}

func (p ProtocolValidator) checkInResponseTo(ctx Context, resp *Response) (*RequestContext, error) {
	if resp.InResponseTo == "" || ctx.SentMessageStore == nil {
		return nil, nil
	}
	req, ok := ctx.SentMessageStore.Get(resp.InResponseTo)
	if !ok {
		return nil, newErr(InResponseToMismatch, "no sent request found for InResponseTo %q", resp.InResponseTo)
	}
	return &RequestContext{Request: req}, nil
}

func (p ProtocolValidator) checkDestination(ctx Context, resp *Response) error {
	acceptable := ctx.Endpoint.acceptableDestinations()
	if resp.Destination == "" {
		if ctx.Config.ResponseDestinationMandatory {
			return newErr(EndpointMismatch, "response has no destination and one is mandatory")
		}
		return nil
	}
	cmp := ctx.Config.uriComparator()
	for _, d := range acceptable {
		if cmp.Equal(resp.Destination, d) {
			return nil
		}
	}
	return newErr(EndpointMismatch, "response destination %q matches neither endpoint location nor response location", resp.Destination)
}

// crossCheckRequest logs (never fails on) ACS index/URL/binding mismatches
// against the original request, per spec §4.5.7 — the SAML spec leaves
// these informational.
func (p ProtocolValidator) crossCheckRequest(ctx Context, resp *Response, reqCtx *RequestContext) {
	if reqCtx == nil || reqCtx.Request == nil {
		return
	}
	req := reqCtx.Request
	log := ctx.log()
	if req.AssertionConsumerServiceIndex != nil {
		if *req.AssertionConsumerServiceIndex != ctx.Endpoint.Index {
			log.Printf("warning: request ACS index %d does not match resolved endpoint index %d", *req.AssertionConsumerServiceIndex, ctx.Endpoint.Index)
		}
		return
	}
	if req.AssertionConsumerServiceURL != "" && req.AssertionConsumerServiceURL != ctx.Endpoint.Location {
		log.Printf("warning: request ACS URL %q does not match resolved endpoint location %q", req.AssertionConsumerServiceURL, ctx.Endpoint.Location)
	}
	if req.ProtocolBinding != "" && req.ProtocolBinding != ctx.Endpoint.Binding {
		log.Printf("warning: request protocol binding %q does not match resolved endpoint binding %q", req.ProtocolBinding, ctx.Endpoint.Binding)
	}
}

func (p ProtocolValidator) checkIssuer(ctx Context, resp *Response) error {
	if resp.Issuer == nil || resp.Issuer.Value == "" {
		return nil
	}
	if resp.Issuer.Value != ctx.Peer.EntityID {
		return newErr(IssuerMismatch, "response issuer %q does not match expected peer %q", resp.Issuer.Value, ctx.Peer.EntityID)
	}
	return nil
}
