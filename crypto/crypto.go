// Package crypto implements the pluggable crypto suite: AES-256 CFB with
// PKCS#5 padding, one-way MD5/SHA-256 digests, and non-reversible masking
// methods (mail/center/last/date). Each Method is stateless beyond the
// tenant/key-id it was constructed with, and is safe for concurrent use.
package crypto

import (
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// MethodID names one of the factor-level encrypt methods a schema can
// declare.
type MethodID string

const (
	None         MethodID = "None"
	AES256PKCS5  MethodID = "AES256-PKCS5"
	MD5          MethodID = "MD5"
	SHA256       MethodID = "SHA256"
	MaskMail     MethodID = "MaskMail"
	MaskCenter3  MethodID = "MaskCenter3"
	MaskCenter5  MethodID = "MaskCenter5"
	MaskLast3    MethodID = "MaskLast3"
	MaskLast6    MethodID = "MaskLast6"
	MaskDay      MethodID = "MaskDay"
	MaskMonth    MethodID = "MaskMonth"
	MaskMonthDay MethodID = "MaskMonthDay"
)

// Method is one crypto algorithm bound to a value.
type Method interface {
	Name() MethodID
	IsEncrypted(v value.V) bool
	Encrypt(v value.V) (value.V, *pkerr.Error)
	Decrypt(v value.V) (value.V, *pkerr.Error)
}

// KeyStore resolves {method, key_id?, tenant_id} to AES key material.
type KeyStore interface {
	Find(method MethodID, keyID, tenantID string) (map[string]string, *pkerr.Error)
}

// New builds the Method for a factor's declared encrypt method. AES needs a
// KeyStore and the owning tenant; keyID is the optional `<n>` suffix from a
// schema that pins a specific key generation — empty string resolves to the
// tenant's current key (see DESIGN.md's AES key-id Open Question).
func New(id MethodID, ks KeyStore, tenantID, keyID string) (Method, *pkerr.Error) {
	switch id {
	case None:
		return noneMethod{}, nil
	case AES256PKCS5:
		return &aesMethod{keyStore: ks, tenantID: tenantID, keyID: keyID}, nil
	case MD5:
		return md5Method{}, nil
	case SHA256:
		return sha256Method{}, nil
	case MaskMail:
		return maskMailMethod{}, nil
	case MaskCenter3:
		return maskDigitsMethod{n: 3, fromCenter: true}, nil
	case MaskCenter5:
		return maskDigitsMethod{n: 5, fromCenter: true}, nil
	case MaskLast3:
		return maskDigitsMethod{n: 3, fromCenter: false}, nil
	case MaskLast6:
		return maskDigitsMethod{n: 6, fromCenter: false}, nil
	case MaskDay:
		return dateMaskMethod{day: true}, nil
	case MaskMonth:
		return dateMaskMethod{month: true}, nil
	case MaskMonthDay:
		return dateMaskMethod{day: true, month: true}, nil
	default:
		return nil, pkerr.Newf(pkerr.EncryptNotSupport, "crypto.New", "unknown method %q", id)
	}
}

type noneMethod struct{}

func (noneMethod) Name() MethodID                          { return None }
func (noneMethod) IsEncrypted(v value.V) bool               { return false }
func (noneMethod) Encrypt(v value.V) (value.V, *pkerr.Error) { return v, nil }
func (noneMethod) Decrypt(v value.V) (value.V, *pkerr.Error) { return v, nil }

// stringifyScalar renders a non-Map/List value to its plain-string form for
// methods that only encrypt Str directly: other scalars are stringified,
// Map/List are an error.
func stringifyScalar(v value.V) (string, *pkerr.Error) {
	if v.IsMap() || v.IsList() {
		return "", pkerr.New(pkerr.EncryptNotSupport, "crypto.stringifyScalar")
	}
	return v.PlainString(), nil
}
