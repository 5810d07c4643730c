package crypto

import (
	"strings"

	"github.com/alfreddata/pipelinekernel/pkerr"
	"github.com/alfreddata/pipelinekernel/value"
)

type maskMailMethod struct{}

func (maskMailMethod) Name() MethodID { return MaskMail }
func (maskMailMethod) IsEncrypted(v value.V) bool { return false }

func (maskMailMethod) Encrypt(v value.V) (value.V, *pkerr.Error) {
	s, ok := v.AsStr()
	if !ok {
		return value.None(), nil
	}
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return value.None(), nil
	}
	return value.Str("*****" + s[at:]), nil
}

func (maskMailMethod) Decrypt(v value.V) (value.V, *pkerr.Error) { return v, nil }

// maskDigitsMethod implements MaskCenterN / MaskLastN: N characters closest
// to either the middle (alternating right/left) or the
// end (walking backward) are replaced with '*', preferring ASCII-digit
// positions when there are at least N of them in the string.
type maskDigitsMethod struct {
	n          int
	fromCenter bool
}

func (m maskDigitsMethod) Name() MethodID {
	if m.fromCenter {
		if m.n == 3 {
			return MaskCenter3
		}
		return MaskCenter5
	}
	if m.n == 3 {
		return MaskLast3
	}
	return MaskLast6
}

func (maskDigitsMethod) IsEncrypted(v value.V) bool { return false }

func (m maskDigitsMethod) Encrypt(v value.V) (value.V, *pkerr.Error) {
	s, ok := v.AsStr()
	if !ok {
		return value.None(), nil
	}
	return value.Str(maskDigits(s, m.n, m.fromCenter)), nil
}

func (maskDigitsMethod) Decrypt(v value.V) (value.V, *pkerr.Error) {
	return value.None(), pkerr.New(pkerr.EncryptNotSupport, "crypto.maskDigitsMethod.Decrypt")
}

func maskDigits(s string, n int, fromCenter bool) string {
	runes := []rune(s)
	length := len(runes)
	if length <= n {
		return strings.Repeat("*", length)
	}

	indices := maskWalkOrder(length, fromCenter)

	digitCount := 0
	for _, r := range runes {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}

	masked := make(map[int]bool, n)
	digitsOnly := digitCount >= n
	for _, idx := range indices {
		if len(masked) >= n {
			break
		}
		if digitsOnly && !(runes[idx] >= '0' && runes[idx] <= '9') {
			continue
		}
		masked[idx] = true
	}

	out := make([]rune, length)
	copy(out, runes)
	for idx := range masked {
		out[idx] = '*'
	}
	return string(out)
}

// maskWalkOrder builds the index visiting order: for the center mask it
// starts at (length-1)/2 and alternates right then left; for the last mask
// it walks straight back from the final index.
func maskWalkOrder(length int, fromCenter bool) []int {
	if !fromCenter {
		idxs := make([]int, 0, length)
		for i := length - 1; i >= 0; i-- {
			idxs = append(idxs, i)
		}
		return idxs
	}

	start := (length - 1) / 2
	idxs := []int{start}
	for offset := 1; len(idxs) < length; offset++ {
		right := start + offset
		left := start - offset
		if right < length {
			idxs = append(idxs, right)
		}
		if left >= 0 {
			idxs = append(idxs, left)
		}
	}
	return idxs
}
