package dtparse

import (
	"time"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

// tryParse attempts every candidate format for the given digit run, in
// registration order, returning the first one that parses successfully.
// Go only reads fractional seconds after a '.', so for a %f format a dot is
// inserted before the fraction digits in both the layout and the input.
func tryParse(validPart string, candidates []*Info) (time.Time, *Info, bool) {
	for _, info := range candidates {
		layout, input := info.Layout, validPart
		if info.HasMilli {
			off := 0
			for _, sp := range TokenSpans(info.Format) {
				if sp.Code == 'f' {
					break
				}
				off += sp.Width
			}
			if off <= len(layout) && off <= len(input) {
				layout = layout[:off] + "." + layout[off:]
				input = input[:off] + "." + input[off:]
			}
		}
		if t, err := time.Parse(layout, input); err == nil {
			return t, info, true
		}
	}
	return time.Time{}, nil, false
}

func parseWith(str string, code pkerr.Code, targetType string, candidatesOf func(int) []*Info) (time.Time, error) {
	validPart, length := ValidPart(str)
	candidates := candidatesOf(length)
	if len(candidates) == 0 {
		return time.Time{}, errNotFound(code, str, targetType)
	}
	if t, _, ok := tryParse(validPart, candidates); ok {
		return t, nil
	}
	return time.Time{}, errParseFailed(code, str, targetType)
}

// ParseDate loosely parses a date-only string (e.g. "20240102") against the
// DATE_FORMATS registry, grounded on LooseDateFormatter::parse_date.
func ParseDate(str string) (time.Time, error) {
	return parseWith(str, pkerr.DateParse, "date", dateCategory.candidatesOf)
}

// ParseDateTime loosely parses a datetime string against DATETIME_FORMATS.
func ParseDateTime(str string) (time.Time, error) {
	return parseWith(str, pkerr.DateTimeParse, "datetime", dateTimeCategory.candidatesOf)
}

// ParseFullDateTime loosely parses a datetime-with-fraction string against
// FULL_DATETIME_FORMATS.
func ParseFullDateTime(str string) (time.Time, error) {
	return parseWith(str, pkerr.FullDateTimeParse, "full datetime", fullDateTimeCategory.candidatesOf)
}

// ParseTime loosely parses a time-only string against TIME_FORMATS.
func ParseTime(str string) (time.Time, error) {
	return parseWith(str, pkerr.TimeParse, "time", timeCategory.candidatesOf)
}

// ParseLoose tries date, datetime, and full-datetime formats together,
// in that registration order, for callers that don't know which shape a
// value holds ahead of time. Grounded on LooseDateFormatter, whose public
// API folds all three categories into one length-keyed map.
func ParseLoose(str string) (time.Time, error) {
	return parseWith(str, pkerr.DateTimeParse, "date or datetime", looseCandidatesOf)
}

// ParseLooseDetailed is ParseLoose but also returns the matched format's
// Info, for callers (date-mask crypto methods) that must re-render the
// original string with only specific calendar fields replaced.
func ParseLooseDetailed(str string) (time.Time, *Info, error) {
	validPart, length := ValidPart(str)
	candidates := looseCandidatesOf(length)
	if len(candidates) == 0 {
		return time.Time{}, nil, errNotFound(pkerr.DateTimeParse, str, "date or datetime")
	}
	if t, info, ok := tryParse(validPart, candidates); ok {
		return t, info, nil
	}
	return time.Time{}, nil, errParseFailed(pkerr.DateTimeParse, str, "date or datetime")
}

// Init precomputes and caches every registered format across all four
// categories, so the first real parse call pays no compute cost. Intended
// to be called once at service startup after config.Load.
func Init() {
	ComputeFormats(dateCategory.formatsFromEnv())
	ComputeFormats(dateTimeCategory.formatsFromEnv())
	ComputeFormats(fullDateTimeCategory.formatsFromEnv())
	ComputeFormats(timeCategory.formatsFromEnv())
}
