package samlvalidate

import (
	"github.com/insaplace/samlvalidate/logger"
)

// Decrypter (C3's collaborator) decrypts an EncryptedAssertion, an
// EncryptedID, or an EncryptedAttribute. Key provisioning and the actual
// XML-Encryption primitives are out of scope for this package (spec §1);
// a reference implementation lives in package keystore.
type Decrypter interface {
	DecryptAssertion(ea *EncryptedAssertion) (*Assertion, error)
	DecryptNameID(eid *EncryptedID) (*NameID, error)
	DecryptAttribute(ea *EncryptedAttribute) (*Attribute, error)
}

// DecryptionGateway (C3) decrypts encrypted assertions and identifiers when
// a Decrypter is configured, tolerating per-item failure: a single
// malformed encrypted element is logged and skipped rather than aborting
// the whole response, per spec §4.3.
type DecryptionGateway struct {
	Decrypter Decrypter
	Log       logger.Interface
}

func (g DecryptionGateway) log() logger.Interface {
	if g.Log != nil {
		return g.Log
	}
	return logger.DefaultLogger
}

// DecryptAssertions appends every EncryptedAssertion in response that
// successfully decrypts to response's Assertions list. It modifies the
// Response it is given; Validator.Validate hands it a per-call copy so the
// caller's Response is not changed. It is a no-op if no Decrypter is
// configured.
func (g DecryptionGateway) DecryptAssertions(response *Response) {
	if g.Decrypter == nil || len(response.EncryptedAssertions) == 0 {
		return
	}
	for i := range response.EncryptedAssertions {
		ea := &response.EncryptedAssertions[i]
		assertion, err := g.Decrypter.DecryptAssertion(ea)
		if err != nil {
			g.log().Printf("skipping encrypted assertion: decryption failed: %v", err)
			continue
		}
		if assertion == nil {
			continue
		}
		response.Assertions = append(response.Assertions, *assertion)
	}
}

// DecryptNameID returns the decrypted name id, or nil when absent or when
// decryption fails. Failures here never propagate as errors (spec §4.3).
func (g DecryptionGateway) DecryptNameID(eid *EncryptedID) *NameID {
	if eid == nil || g.Decrypter == nil {
		return nil
	}
	nameID, err := g.Decrypter.DecryptNameID(eid)
	if err != nil {
		g.log().Printf("failed to decrypt encrypted id: %v", err)
		return nil
	}
	return nameID
}

// DecryptAttributes decrypts every EncryptedAttribute in stmt and appends
// the successfully recovered ones to stmt's Attributes, with the same
// skip-on-failure policy as DecryptAssertions.
func (g DecryptionGateway) DecryptAttributes(stmt *AttributeStatement) {
	if g.Decrypter == nil || len(stmt.EncryptedAttributes) == 0 {
		return
	}
	for i := range stmt.EncryptedAttributes {
		ea := &stmt.EncryptedAttributes[i]
		attr, err := g.Decrypter.DecryptAttribute(ea)
		if err != nil {
			g.log().Printf("skipping encrypted attribute: decryption failed: %v", err)
			continue
		}
		if attr == nil {
			continue
		}
		stmt.Attributes = append(stmt.Attributes, *attr)
	}
}
