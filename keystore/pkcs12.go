// Package keystore loads SP/IdP signing and encryption key material, and
// provides a reference Decrypter, for tests and the demo. Key provisioning
// itself is out of the core validator's scope (spec.md §1 — "key
// provisioning and signature primitives" are external collaborators); this
// package is the supporting infrastructure a real deployment needs to
// actually obtain that material.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

// KeyPair is a decoded private key plus its leaf certificate, as produced
// by LoadPKCS12.
type KeyPair struct {
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate
}

// LoadPKCS12 decodes a PKCS#12 bundle (the conventional way SAML signing
// and encryption key pairs are distributed and loaded, matching the
// ecosystem's own pkcs12.Decode usage rather than hand-rolled ASN.1
// parsing) into a KeyPair.
func LoadPKCS12(der []byte, password string) (*KeyPair, error) {
	key, cert, err := pkcs12.Decode(der, password)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode pkcs12: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keystore: pkcs12 bundle does not contain an RSA private key")
	}
	return &KeyPair{PrivateKey: rsaKey, Certificate: cert}, nil
}
