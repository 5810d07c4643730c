package crypto

import (
	"testing"
	"time"

	"github.com/alfreddata/pipelinekernel/value"
)

func TestAESRoundTrip(t *testing.T) {
	ks := NewMemoryKeyStore()
	ks.Put(AES256PKCS5, "", "tenant-1", map[string]string{
		"key": "0123456789abcdefghijklmnopqrstuv",
		"iv":  "wxyz0123456789ab",
	})
	m, err := New(AES256PKCS5, ks, "tenant-1", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	enc, eerr := m.Encrypt(value.Str("abc"))
	if eerr != nil {
		t.Fatalf("encrypt: %v", eerr)
	}
	s, _ := enc.AsStr()
	if s[:5] != "{AES}" {
		t.Fatalf("expected {AES} envelope, got %q", s)
	}
	if !m.IsEncrypted(enc) {
		t.Error("IsEncrypted should report true for an AES envelope")
	}

	dec, derr := m.Decrypt(enc)
	if derr != nil {
		t.Fatalf("decrypt: %v", derr)
	}
	if got, _ := dec.AsStr(); got != "abc" {
		t.Errorf("round-trip mismatch: got %q", got)
	}
}

func TestAESKeyID(t *testing.T) {
	ks := NewMemoryKeyStore()
	ks.Put(AES256PKCS5, "3", "tenant-1", map[string]string{
		"key": "0123456789abcdefghijklmnopqrstuv",
		"iv":  "wxyz0123456789ab",
	})
	m, err := New(AES256PKCS5, ks, "tenant-1", "3")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	enc, eerr := m.Encrypt(value.Str("hello"))
	if eerr != nil {
		t.Fatalf("encrypt: %v", eerr)
	}
	s, _ := enc.AsStr()
	if s[:6] != "{AES3}" {
		t.Fatalf("expected {AES3} envelope, got %q", s)
	}
	dec, derr := m.Decrypt(enc)
	if derr != nil {
		t.Fatalf("decrypt: %v", derr)
	}
	if got, _ := dec.AsStr(); got != "hello" {
		t.Errorf("round-trip mismatch: got %q", got)
	}
}

func TestMD5SHA256(t *testing.T) {
	md5m, _ := New(MD5, nil, "", "")
	enc, _ := md5m.Encrypt(value.Str("abc"))
	if s, _ := enc.AsStr(); s[:5] != "{MD5}" {
		t.Errorf("expected MD5 envelope, got %q", s)
	}

	shaM, _ := New(SHA256, nil, "", "")
	enc2, _ := shaM.Encrypt(value.Str("abc"))
	if s, _ := enc2.AsStr(); s[:8] != "{SHA256}" {
		t.Errorf("expected SHA256 envelope, got %q", s)
	}
}

func TestMaskMail(t *testing.T) {
	m, _ := New(MaskMail, nil, "", "")
	v, _ := m.Encrypt(value.Str("jdoe@example.com"))
	if s, _ := v.AsStr(); s != "*****@example.com" {
		t.Errorf("got %q", s)
	}
	none, _ := m.Encrypt(value.Str("not-an-email"))
	if !none.IsNone() {
		t.Errorf("expected None for missing @, got %v", none)
	}
}

func TestMaskCenter3(t *testing.T) {
	m, _ := New(MaskCenter3, nil, "", "")
	v, _ := m.Encrypt(value.Str("123a456"))
	if s, _ := v.AsStr(); s != "12*a**6" {
		t.Errorf("got %q, want %q", s, "12*a**6")
	}
	v2, _ := m.Encrypt(value.Str("ab"))
	if s, _ := v2.AsStr(); s != "**" {
		t.Errorf("got %q, want \"**\"", s)
	}
}

func TestMaskLast3(t *testing.T) {
	m, _ := New(MaskLast3, nil, "", "")
	v, _ := m.Encrypt(value.Str("ab1c"))
	if s, _ := v.AsStr(); s != "a***" {
		t.Errorf("got %q, want %q", s, "a***")
	}
}

func TestMaskMonthDayOnDate(t *testing.T) {
	m, _ := New(MaskMonthDay, nil, "", "")
	d := value.Date(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	masked, err := m.Encrypt(d)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	tm, ok := masked.AsTime()
	if !ok || tm.Month() != time.January || tm.Day() != 1 || tm.Year() != 2024 {
		t.Errorf("got %v", tm)
	}
}

func TestMaskDayOnString(t *testing.T) {
	m, _ := New(MaskDay, nil, "", "")
	masked, err := m.Encrypt(value.Str("2024-06-15"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	s, _ := masked.AsStr()
	if s != "2024-06-01" {
		t.Errorf("got %q, want %q", s, "2024-06-01")
	}
}
