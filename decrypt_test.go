package samlvalidate

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/xml"
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/insaplace/samlvalidate/internal/testsaml"
	"github.com/insaplace/samlvalidate/keystore"
)

// recordingLogger captures Printf calls for assertions on the
// skip-and-log policy, instead of writing to stderr during tests.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Println(v ...interface{}) {}

func TestDecryptionGatewaySkipsUndecryptableAssertion(t *testing.T) {
	first, second, log := twoUndecryptableAssertions(t)

	resp := &Response{EncryptedAssertions: []EncryptedAssertion{{Element: first}, {Element: second}}}
	gw := DecryptionGateway{Decrypter: keystore.Decrypter{Key: mustRSAKey(t)}, Log: log}
	gw.DecryptAssertions(resp)

	require.Len(t, resp.Assertions, 0, "both assertions were encrypted to a different key, so neither should decrypt")
	require.NotEmpty(t, log.lines, "a decrypt failure must be logged, not silently dropped")
}

func TestDecryptionGatewayDecryptsWhatItCanAndSkipsTheRest(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	goodPlain, err := xml.Marshal(Assertion{ID: "_ok", Version: SAML2Version})
	require.NoError(t, err)
	good, err := testsaml.EncryptElement(&key.PublicKey, goodPlain)
	require.NoError(t, err)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	badPlain, err := xml.Marshal(Assertion{ID: "_bad", Version: SAML2Version})
	require.NoError(t, err)
	bad, err := testsaml.EncryptElement(&otherKey.PublicKey, badPlain)
	require.NoError(t, err)

	log := &recordingLogger{}
	resp := &Response{EncryptedAssertions: []EncryptedAssertion{{Element: good}, {Element: bad}}}
	gw := DecryptionGateway{Decrypter: keystore.Decrypter{Key: key}, Log: log}
	gw.DecryptAssertions(resp)

	require.Len(t, resp.Assertions, 1)
	require.Equal(t, "_ok", resp.Assertions[0].ID)
	require.NotEmpty(t, log.lines, "the undecryptable second assertion must still be logged")
}

func TestDecryptionGatewayDecryptNameIDReturnsNilOnFailure(t *testing.T) {
	key := mustRSAKey(t)
	otherKey := mustRSAKey(t)

	plain, err := xml.Marshal(NameID{Value: "subject-1"})
	require.NoError(t, err)
	el, err := testsaml.EncryptElement(&otherKey.PublicKey, plain)
	require.NoError(t, err)

	log := &recordingLogger{}
	gw := DecryptionGateway{Decrypter: keystore.Decrypter{Key: key}, Log: log}
	got := gw.DecryptNameID(&EncryptedID{Element: el})
	require.Nil(t, got)
	require.NotEmpty(t, log.lines)
}

func TestDecryptionGatewayDecryptAttributesSkipsOnFailure(t *testing.T) {
	key := mustRSAKey(t)
	otherKey := mustRSAKey(t)

	goodPlain, err := xml.Marshal(Attribute{Name: "mail", Values: []AttributeValue{{Value: "person@example.org"}}})
	require.NoError(t, err)
	good, err := testsaml.EncryptElement(&key.PublicKey, goodPlain)
	require.NoError(t, err)

	badPlain, err := xml.Marshal(Attribute{Name: "roles", Values: []AttributeValue{{Value: "admin"}}})
	require.NoError(t, err)
	bad, err := testsaml.EncryptElement(&otherKey.PublicKey, badPlain)
	require.NoError(t, err)

	log := &recordingLogger{}
	stmt := &AttributeStatement{EncryptedAttributes: []EncryptedAttribute{{Element: good}, {Element: bad}}}
	gw := DecryptionGateway{Decrypter: keystore.Decrypter{Key: key}, Log: log}
	gw.DecryptAttributes(stmt)

	require.Len(t, stmt.Attributes, 1)
	require.Equal(t, "mail", stmt.Attributes[0].Name)
	require.NotEmpty(t, log.lines)
}

func mustRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func twoUndecryptableAssertions(t *testing.T) (*etree.Element, *etree.Element, *recordingLogger) {
	t.Helper()
	wrongKey := mustRSAKey(t)
	plain, err := xml.Marshal(Assertion{ID: "_a", Version: SAML2Version})
	require.NoError(t, err)
	first, err := testsaml.EncryptElement(&wrongKey.PublicKey, plain)
	require.NoError(t, err)
	second, err := testsaml.EncryptElement(&wrongKey.PublicKey, plain)
	require.NoError(t, err)
	return first, second, &recordingLogger{}
}
