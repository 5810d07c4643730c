package crypto

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

type md5Method struct{}

func (md5Method) Name() MethodID { return MD5 }

func (md5Method) IsEncrypted(v value.V) bool {
	s, ok := v.AsStr()
	return ok && strings.HasPrefix(s, "{MD5}")
}

func (md5Method) Encrypt(v value.V) (value.V, *pkerr.Error) {
	if v.IsNone() {
		return v, nil
	}
	s, err := stringifyScalar(v)
	if err != nil {
		return value.None(), err
	}
	sum := md5.Sum([]byte(s))
	return value.Str("{MD5}" + hex.EncodeToString(sum[:])), nil
}

func (md5Method) Decrypt(v value.V) (value.V, *pkerr.Error) {
	s, ok := v.AsStr()
	if !ok || !strings.HasPrefix(s, "{MD5}") {
		return value.None(), pkerr.New(pkerr.AesCrypto, "crypto.md5Method.Decrypt")
	}
	return value.Str(strings.TrimPrefix(s, "{MD5}")), nil
}

type sha256Method struct{}

func (sha256Method) Name() MethodID { return SHA256 }

func (sha256Method) IsEncrypted(v value.V) bool {
	s, ok := v.AsStr()
	return ok && strings.HasPrefix(s, "{SHA256}")
}

func (sha256Method) Encrypt(v value.V) (value.V, *pkerr.Error) {
	if v.IsNone() {
		return v, nil
	}
	s, err := stringifyScalar(v)
	if err != nil {
		return value.None(), err
	}
	sum := sha256.Sum256([]byte(s))
	return value.Str("{SHA256}" + hex.EncodeToString(sum[:])), nil
}

func (sha256Method) Decrypt(v value.V) (value.V, *pkerr.Error) {
	s, ok := v.AsStr()
	if !ok || !strings.HasPrefix(s, "{SHA256}") {
		return value.None(), pkerr.New(pkerr.AesCrypto, "crypto.sha256Method.Decrypt")
	}
	return value.Str(strings.TrimPrefix(s, "{SHA256}")), nil
}
