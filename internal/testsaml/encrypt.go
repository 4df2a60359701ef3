package testsaml

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"

	"github.com/beevik/etree"
)

// xmlenc algorithm identifiers matching keystore.Decrypter's expectations.
const (
	algRSAOAEP   = "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p"
	algAES128CBC = "http://www.w3.org/2001/04/xmlenc#aes128-cbc"
)

type encryptionMethodXML struct {
	Algorithm string `xml:"Algorithm,attr"`
}

type encryptedKeyXML struct {
	XMLName          xml.Name             `xml:"EncryptedKey"`
	EncryptionMethod encryptionMethodXML `xml:"EncryptionMethod"`
	CipherValue      string               `xml:"CipherData>CipherValue"`
}

type keyInfoXML struct {
	EncryptedKey encryptedKeyXML `xml:"EncryptedKey"`
}

type encryptedDataXML struct {
	XMLName          xml.Name             `xml:"EncryptedData"`
	EncryptionMethod encryptionMethodXML `xml:"EncryptionMethod"`
	KeyInfo          keyInfoXML           `xml:"KeyInfo"`
	CipherValue      string               `xml:"CipherData>CipherValue"`
}

// EncryptElement builds a minimal <xenc:EncryptedData> element wrapping
// plaintext, RSA-OAEP-wrapping a fresh AES-128 content key the way
// keystore.Decrypter expects to unwrap it: a counterpart fixture for testing
// the decrypt side of C3 without a third-party xmlenc encoder (there is
// none in the retrieved corpus, matching keystore.Decrypter's own
// stdlib-only grounding).
func EncryptElement(pub *rsa.PublicKey, plaintext []byte) (*etree.Element, error) {
	aesKey := make([]byte, 16)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	cipherWithIV := append(append([]byte(nil), iv...), ciphertext...)

	wrappedKey, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, aesKey, nil)
	if err != nil {
		return nil, err
	}

	ed := encryptedDataXML{
		EncryptionMethod: encryptionMethodXML{Algorithm: algAES128CBC},
		KeyInfo: keyInfoXML{
			EncryptedKey: encryptedKeyXML{
				EncryptionMethod: encryptionMethodXML{Algorithm: algRSAOAEP},
				CipherValue:      base64.StdEncoding.EncodeToString(wrappedKey),
			},
		},
		CipherValue: base64.StdEncoding.EncodeToString(cipherWithIV),
	}

	data, err := xml.Marshal(ed)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc.Root(), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}
