// Package dtparse implements loose date/time string parsing: given a digit
// string of unknown shape, find a registered format whose computed width
// matches and try it. Formats are strptime-style tokens (%Y, %m, %d, %H, %M,
// %S, %f/%3f, %z); width and millisecond/timezone flags are computed once
// per format string and cached in a format-length map.
package dtparse

import (
	"strings"
	"sync"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

// Info is the computed shape of one format string.
type Info struct {
	Format   string // normalized token string, %f always rewritten to %3f
	Layout   string // Go reference-time layout equivalent
	Len      int    // expected width of a matching digit run
	HasMilli bool
	HasTZ    bool
}

var (
	formatMu    sync.RWMutex
	formatCache = map[string]*Info{}
)

// token width/flag table, grounded on DateTimeFormatterSupport::build.
var unsupportedTokens = map[string]bool{
	"C": true, "q": true, "B": true, "b": true, "h": true, "e": true,
	"A": true, "a": true, "w": true, "u": true, "U": true, "W": true,
	"G": true, "g": true, "V": true, "j": true, "D": true, "x": true,
	"F": true, "v": true, "k": true, "I": true, "l": true, "P": true,
	"p": true, ".f": true, ".3f": true, ".6f": true, ".9f": true,
	"6f": true, "9f": true, "R": true, "T": true, "X": true, "r": true,
	"Z": true, ":z": true, "::z": true, ":::z": true, "#z": true,
	"c": true, "+": true, "s": true,
}

var goLayoutToken = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
}

// GetFormat returns the cached Info for a format string, computing it on
// first use. Safe for concurrent use.
func GetFormat(format string) *Info {
	formatMu.RLock()
	if info, ok := formatCache[format]; ok {
		formatMu.RUnlock()
		return info
	}
	formatMu.RUnlock()

	info := computeFormat(format)

	formatMu.Lock()
	formatCache[format] = info
	formatMu.Unlock()
	return info
}

// ComputeFormats precomputes and caches Info for every format in the list,
// grounded on DateTimeFormatMap::compute_formats (batch warmup at startup).
func ComputeFormats(formats []string) {
	for _, f := range formats {
		GetFormat(f)
	}
}

func computeFormat(format string) *Info {
	var (
		length     int
		hasMilli   bool
		hasTZ      bool
		normalized strings.Builder
		layout     strings.Builder
	)

	parts := strings.Split(format, "%")
	for i, part := range parts {
		if i == 0 {
			// text before the first '%' is not a token.
			layout.WriteString(part)
			continue
		}
		switch part {
		case "Y":
			length += 4
			normalized.WriteString("%Y")
			layout.WriteString(goLayoutToken['Y'])
		case "y", "m", "d", "H", "M", "S":
			length += 2
			normalized.WriteByte('%')
			normalized.WriteByte(part[0])
			layout.WriteString(goLayoutToken[part[0]])
		case "f", "3f":
			length += 3
			hasMilli = true
			normalized.WriteString("%3f")
			layout.WriteString("000")
		case "z":
			length += 5
			hasTZ = true
			normalized.WriteString("%z")
			layout.WriteString("-0700")
		default:
			if unsupportedTokens[part] {
				length += 100
			}
			// else: unknown/ignored literal text between tokens (rare).
		}
	}

	return &Info{
		Format:   normalized.String(),
		Layout:   layout.String(),
		Len:      length,
		HasMilli: hasMilli,
		HasTZ:    hasTZ,
	}
}

// TokenSpan is one %-token of a format string and the digit width it
// consumes from a stripped digit run.
type TokenSpan struct {
	Code  byte // 'Y','y','m','d','H','M','S','f','z'
	Width int
}

// TokenSpans breaks a format string into its ordered token widths, the same
// walk computeFormat does, exported for callers (date-mask crypto methods)
// that need to know which digit positions of a matched string belong to
// which calendar field.
func TokenSpans(format string) []TokenSpan {
	var spans []TokenSpan
	parts := strings.Split(format, "%")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		switch part {
		case "Y":
			spans = append(spans, TokenSpan{'Y', 4})
		case "y", "m", "d", "H", "M", "S":
			spans = append(spans, TokenSpan{part[0], 2})
		case "f", "3f":
			spans = append(spans, TokenSpan{'f', 3})
		case "z":
			spans = append(spans, TokenSpan{'z', 5})
		}
	}
	return spans
}

// ValidPart strips str down to its ASCII digits and '+' characters,
// grounded on DateTimeFormatterSupport::valid_part. Returns the stripped
// string and its rune count.
func ValidPart(str string) (string, int) {
	var b strings.Builder
	count := 0
	for _, r := range str {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
			count++
		}
	}
	return b.String(), count
}

// errNotFound builds the STDE-0000x "no suitable format" error for a target type.
func errNotFound(code pkerr.Code, str, targetType string) *pkerr.Error {
	return pkerr.Newf(code, "dtparse.parse", "no suitable format for parsing %q into a %s", str, targetType)
}

// errParseFailed builds the STDE-0000x "could not parse" error for a target type.
func errParseFailed(code pkerr.Code, str, targetType string) *pkerr.Error {
	return pkerr.Newf(code, "dtparse.parse", "%q could not be parsed into a %s", str, targetType)
}
