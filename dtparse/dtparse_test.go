package dtparse

import (
	"testing"

	"github.com/alfreddata/pipelinekernel/pkerr"
)

func TestComputeFormatWidths(t *testing.T) {
	cases := []struct {
		format   string
		wantLen  int
		wantMil  bool
		wantTZ   bool
	}{
		{"%Y%m%d", 8, false, false},
		{"%Y%m%d%H%M%S", 14, false, false},
		{"%Y%m%d%H%M%S%f", 17, true, false},
		{"%H%M", 4, false, false},
		{"%Y%m%d%H%M%S%z", 19, false, true},
	}
	for _, c := range cases {
		info := GetFormat(c.format)
		if info.Len != c.wantLen {
			t.Errorf("%s: len = %d, want %d", c.format, info.Len, c.wantLen)
		}
		if info.HasMilli != c.wantMil {
			t.Errorf("%s: hasMilli = %v, want %v", c.format, info.HasMilli, c.wantMil)
		}
		if info.HasTZ != c.wantTZ {
			t.Errorf("%s: hasTZ = %v, want %v", c.format, info.HasTZ, c.wantTZ)
		}
	}
}

func TestGetFormatIsCached(t *testing.T) {
	a := GetFormat("%Y%m%d")
	b := GetFormat("%Y%m%d")
	if a != b {
		t.Error("GetFormat should return the same cached pointer for repeated calls")
	}
}

func TestValidPart(t *testing.T) {
	s, n := ValidPart("2024-01-02")
	if s != "20240102" || n != 8 {
		t.Errorf("ValidPart = %q, %d; want \"20240102\", 8", s, n)
	}
}

func TestParseDateAmbiguousOrderYMD(t *testing.T) {
	tm, err := ParseDate("20240102")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if tm.Year() != 2024 || tm.Month() != 1 || tm.Day() != 2 {
		t.Errorf("ParseDate = %v, want 2024-01-02", tm)
	}
}

func TestParseDateTime(t *testing.T) {
	tm, err := ParseDateTime("20240102153045")
	if err != nil {
		t.Fatalf("ParseDateTime: %v", err)
	}
	if tm.Hour() != 15 || tm.Minute() != 30 || tm.Second() != 45 {
		t.Errorf("ParseDateTime = %v, want 15:30:45", tm)
	}
}

func TestParseFullDateTime(t *testing.T) {
	tm, err := ParseFullDateTime("20240102153045123")
	if err != nil {
		t.Fatalf("ParseFullDateTime: %v", err)
	}
	if tm.Nanosecond()/1e6 != 123 {
		t.Errorf("ParseFullDateTime millis = %d, want 123", tm.Nanosecond()/1e6)
	}
}

func TestParseTime(t *testing.T) {
	tm, err := ParseTime("1530")
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if tm.Hour() != 15 || tm.Minute() != 30 {
		t.Errorf("ParseTime = %v, want 15:30", tm)
	}
}

func TestParseDateNoMatchingLengthReturnsNotFound(t *testing.T) {
	_, err := ParseDate("1")
	if !pkerr.Is(err, pkerr.DateParse) {
		t.Fatalf("expected DateParse error, got %v", err)
	}
}

func TestParseLooseCombinesCategories(t *testing.T) {
	tm, err := ParseLoose("20240102")
	if err != nil {
		t.Fatalf("ParseLoose: %v", err)
	}
	if tm.Year() != 2024 {
		t.Errorf("ParseLoose = %v, want year 2024", tm)
	}

	tm, err = ParseLoose("20240102153045")
	if err != nil {
		t.Fatalf("ParseLoose datetime: %v", err)
	}
	if tm.Hour() != 15 {
		t.Errorf("ParseLoose datetime = %v, want hour 15", tm)
	}
}
