package samlvalidate

// Credential is the normalized authenticated principal produced by a
// successful Validate call (spec §3).
type Credential struct {
	NameID                    NameID
	IssuerEntityID            string
	Attributes                []ConvertedAttribute
	Conditions                *Conditions
	SessionIndex              string
	AuthnContextClassRefs     []string
	AuthenticatingAuthorities []string
	InResponseTo              string
}
