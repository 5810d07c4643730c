package crypto

import (
	"strings"
	"time"

	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

// dateMaskMethod implements MaskDay / MaskMonth / MaskMonthDay: on
// Date/DateTime values, reset the named calendar field(s) to 1; on a Str that
// loosely parses to one, re-render using the matched format so every
// non-digit separator is preserved verbatim.
type dateMaskMethod struct {
	day   bool
	month bool
}

func (m dateMaskMethod) Name() MethodID {
	switch {
	case m.day && m.month:
		return MaskMonthDay
	case m.day:
		return MaskDay
	default:
		return MaskMonth
	}
}

func (dateMaskMethod) IsEncrypted(v value.V) bool { return false }

func (m dateMaskMethod) Encrypt(v value.V) (value.V, *pkerr.Error) {
	switch {
	case v.IsDate():
		t, _ := v.AsTime()
		return value.Date(m.zero(t)), nil
	case v.IsDateTime():
		t, _ := v.AsTime()
		return value.DateTime(m.zero(t)), nil
	case v.IsStr():
		s, _ := v.AsStr()
		return m.maskString(s)
	default:
		return value.None(), pkerr.New(pkerr.EncryptNotSupport, "crypto.dateMaskMethod.Encrypt")
	}
}

func (dateMaskMethod) Decrypt(v value.V) (value.V, *pkerr.Error) {
	return value.None(), pkerr.New(pkerr.EncryptNotSupport, "crypto.dateMaskMethod.Decrypt")
}

func (m dateMaskMethod) zero(t time.Time) time.Time {
	y, mo, d := t.Date()
	if m.month {
		mo = time.January
	}
	if m.day {
		d = 1
	}
	return time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (m dateMaskMethod) maskString(s string) (value.V, *pkerr.Error) {
	_, info, err := dtparse.ParseLooseDetailed(s)
	if err != nil {
		return value.None(), err
	}
	spans := dtparse.TokenSpans(info.Format)

	digits := make([]byte, 0, len(s))
	digitPositions := make([]int, 0, len(s))
	for i, r := range []rune(s) {
		if r >= '0' && r <= '9' {
			digits = append(digits, byte(r))
			digitPositions = append(digitPositions, i)
		}
	}

	offset := 0
	for _, span := range spans {
		if offset+span.Width > len(digits) {
			break
		}
		if (span.Code == 'm' && m.month) || (span.Code == 'd' && m.day) {
			zero := strings.Repeat("0", span.Width-1) + "1"
			copy(digits[offset:offset+span.Width], zero)
		}
		offset += span.Width
	}

	out := []rune(s)
	for i, pos := range digitPositions {
		out[pos] = rune(digits[i])
	}
	return value.Str(string(out)), nil
}
