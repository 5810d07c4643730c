package dtparse

import (
	"os"
	"strings"
)

// category groups one shape of date/time string (date-only, datetime,
// full datetime with fraction, time-only) with its default format list,
// its env override key, and the matching rule used to pick candidates of
// a given digit width (grounded on the `Formats` trait).
type category struct {
	envKey  string
	formats []string
	okWith  func(info *Info, length int) bool
}

func defaultOkWith(info *Info, length int) bool {
	if length > 14 {
		if info.HasTZ {
			if length > 19 {
				return info.HasMilli
			}
			return info.Len == length
		}
		return info.HasMilli
	}
	return info.Len == length
}

func timeOkWith(info *Info, length int) bool {
	return info.Len == length
}

var dateCategory = category{
	envKey:  "DATE_FORMATS",
	formats: []string{"%Y%m%d", "%d%m%Y", "%m%d%Y"},
	okWith:  defaultOkWith,
}

var dateTimeCategory = category{
	envKey: "DATETIME_FORMATS",
	formats: []string{
		"%Y%m%d%H%M%S", "%d%m%Y%H%M%S", "%m%d%Y%H%M%S",
		"%Y%m%d%H%M", "%d%m%Y%H%M", "%m%d%Y%H%M",
	},
	okWith: defaultOkWith,
}

var fullDateTimeCategory = category{
	envKey:  "FULL_DATETIME_FORMATS",
	formats: []string{"%Y%m%d%H%M%S%f", "%d%m%Y%H%M%S%f", "%m%d%Y%H%M%S%f"},
	okWith:  defaultOkWith,
}

var timeCategory = category{
	envKey:  "TIME_FORMATS",
	formats: []string{"%H%M%S", "%H%M"},
	okWith:  timeOkWith,
}

// formatsFromEnv reads a comma-separated format list override, falling back
// to the category default when unset or empty.
func (c category) formatsFromEnv() []string {
	if v, ok := os.LookupEnv(c.envKey); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return c.formats
}

func (c category) infos() []*Info {
	formats := c.formatsFromEnv()
	infos := make([]*Info, 0, len(formats))
	for _, f := range formats {
		infos = append(infos, GetFormat(f))
	}
	return infos
}

// candidatesOf returns every format of this category whose computed shape
// matches a digit run of the given length, per the category's okWith rule.
func (c category) candidatesOf(length int) []*Info {
	var out []*Info
	for _, info := range c.infos() {
		if c.okWith(info, length) {
			out = append(out, info)
		}
	}
	return out
}

// looseCandidatesOf merges the length-matching candidates of all three
// date/datetime categories, in date, datetime, full-datetime order,
// grounded on LooseDateFormatter::default_formats.
func looseCandidatesOf(length int) []*Info {
	var out []*Info
	out = append(out, dateCategory.candidatesOf(length)...)
	out = append(out, dateTimeCategory.candidatesOf(length)...)
	out = append(out, fullDateTimeCategory.candidatesOf(length)...)
	return out
}
