package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// envelopePattern matches "{AES}" or "{AES<n>}" with a non-zero decimal key
// id carrying no leading zero.
var envelopePattern = regexp.MustCompile(`^\{AES([1-9][0-9]*)?\}`)

type aesMethod struct {
	keyStore KeyStore
	tenantID string
	keyID    string
}

func (a *aesMethod) Name() MethodID { return AES256PKCS5 }

func (a *aesMethod) IsEncrypted(v value.V) bool {
	s, ok := v.AsStr()
	if !ok {
		return false
	}
	return envelopePattern.MatchString(s)
}

func (a *aesMethod) envelope() string {
	if a.keyID == "" {
		return "{AES}"
	}
	return "{AES" + a.keyID + "}"
}

func (a *aesMethod) keyParams(keyID string) ([]byte, []byte, *pkerr.Error) {
	params, err := a.keyStore.Find(AES256PKCS5, keyID, a.tenantID)
	if err != nil {
		return nil, nil, err
	}
	key, iv := []byte(params["key"]), []byte(params["iv"])
	if len(key) != 32 || len(iv) != 16 {
		return nil, nil, pkerr.Newf(pkerr.AesCrypto, "crypto.aesMethod.keyParams", "key store returned key/iv of the wrong length for tenant %q", a.tenantID)
	}
	return key, iv, nil
}

func (a *aesMethod) Encrypt(v value.V) (value.V, *pkerr.Error) {
	if v.IsNone() {
		return v, nil
	}
	plain, serr := stringifyScalar(v)
	if serr != nil {
		return value.None(), serr
	}

	key, iv, err := a.keyParams(a.keyID)
	if err != nil {
		return value.None(), err
	}

	block, cerr := aes.NewCipher(key)
	if cerr != nil {
		return value.None(), pkerr.Newf(pkerr.AesCrypto, "crypto.aesMethod.Encrypt", "%v", cerr)
	}
	padded := pkcs5Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(out, padded)

	return value.Str(a.envelope() + base64.StdEncoding.EncodeToString(out)), nil
}

func (a *aesMethod) Decrypt(v value.V) (value.V, *pkerr.Error) {
	s, ok := v.AsStr()
	if !ok {
		return v, nil
	}
	loc := envelopePattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return value.None(), pkerr.New(pkerr.AesCrypto, "crypto.aesMethod.Decrypt")
	}
	keyID := ""
	if loc[2] != -1 {
		keyID = s[loc[2]:loc[3]]
	}
	body := s[loc[1]:]

	key, iv, err := a.keyParams(keyID)
	if err != nil {
		return value.None(), err
	}

	raw, derr := base64.StdEncoding.DecodeString(body)
	if derr != nil {
		return value.None(), pkerr.Newf(pkerr.AesCrypto, "crypto.aesMethod.Decrypt", "%v", derr)
	}
	block, cerr := aes.NewCipher(key)
	if cerr != nil {
		return value.None(), pkerr.Newf(pkerr.AesCrypto, "crypto.aesMethod.Decrypt", "%v", cerr)
	}
	out := make([]byte, len(raw))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(out, raw)

	plain, perr := pkcs5Unpad(out, aes.BlockSize)
	if perr != nil {
		return value.None(), perr
	}
	return value.Str(string(plain)), nil
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	pad := strings.Repeat(string(rune(padLen)), padLen)
	return append(data, []byte(pad)...)
}

func pkcs5Unpad(data []byte, blockSize int) ([]byte, *pkerr.Error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, pkerr.New(pkerr.AesCrypto, "crypto.pkcs5Unpad")
	}
	padLen := int(data[n-1])
	if padLen <= 0 || padLen > blockSize || padLen > n {
		return nil, pkerr.New(pkerr.AesCrypto, "crypto.pkcs5Unpad")
	}
	return data[:n-padLen], nil
}
