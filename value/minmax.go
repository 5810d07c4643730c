package value

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alfreddata/pipelinekernel/dtparse"
	"github.com/alfreddata/pipelinekernel/pkerr"
)

// minmaxOrder selects whether exchange keeps the lesser or greater candidate.
type minmaxOrder int

const (
	orderMin minmaxOrder = iota
	orderMax
)

// minmaxState accumulates typed candidates across a List, postponing
// string elements until the typed pass completes. Grounded on
// MinmaxState/MinmaxFinder: decimal, datetime, date, and time candidates
// are mutually exclusive except that date and datetime may mix, in which
// case datetime downgrades to its date part.
type minmaxState struct {
	order minmaxOrder

	hasDecimal bool
	minDecimal decimal.Decimal
	hasDateTime bool
	minDateTime V
	hasDate     bool
	minDate     V
	hasTime     bool
	minTime     V

	stringElems []string
}

func newMinmaxState(order minmaxOrder) *minmaxState {
	return &minmaxState{order: order}
}

func (s *minmaxState) keepsNew(current, candidate V) bool {
	c, err := Compare(candidate, current)
	if err != nil {
		return false
	}
	if s.order == orderMin {
		return c < 0
	}
	return c > 0
}

func notSupported(loc string) *pkerr.Error {
	return pkerr.New(pkerr.ValuesNotComparable, loc)
}

func (s *minmaxState) exchangeDecimal(d decimal.Decimal) *pkerr.Error {
	if s.hasDateTime || s.hasDate || s.hasTime {
		return notSupported("value.minmax.exchangeDecimal")
	}
	if !s.hasDecimal || s.keepsNew(Num(s.minDecimal), Num(d)) {
		s.minDecimal = d
	}
	s.hasDecimal = true
	return nil
}

func (s *minmaxState) exchangeDateTime(dt V) *pkerr.Error {
	if s.hasDecimal || s.hasTime {
		return notSupported("value.minmax.exchangeDateTime")
	}
	if !s.hasDateTime || s.keepsNew(s.minDateTime, dt) {
		s.minDateTime = dt
	}
	s.hasDateTime = true
	datePart := Date(dt.t)
	if s.minDate.kind == KindNone || s.keepsNew(s.minDate, datePart) {
		s.minDate = datePart
	}
	return nil
}

func (s *minmaxState) exchangeDate(d V) *pkerr.Error {
	if s.hasDecimal || s.hasTime {
		return notSupported("value.minmax.exchangeDate")
	}
	if !s.hasDate || s.keepsNew(s.minDate, d) {
		s.minDate = d
	}
	s.hasDate = true
	return nil
}

func (s *minmaxState) exchangeTime(t V) *pkerr.Error {
	if s.hasDecimal || s.hasDateTime || s.hasDate {
		return notSupported("value.minmax.exchangeTime")
	}
	if !s.hasTime || s.keepsNew(s.minTime, t) {
		s.minTime = t
	}
	s.hasTime = true
	return nil
}

func (s *minmaxState) addStringElement(str string) *pkerr.Error {
	if str == "" {
		return nil
	}
	if strings.TrimSpace(str) == "" {
		return notSupported("value.minmax.addStringElement")
	}
	s.stringElems = append(s.stringElems, str)
	return nil
}

func (s *minmaxState) resolveAsDecimal() *pkerr.Error {
	for _, str := range s.stringElems {
		d, err := decimal.NewFromString(strings.TrimSpace(str))
		if err != nil {
			return notSupported("value.minmax.resolveAsDecimal")
		}
		if err := s.exchangeDecimal(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *minmaxState) resolveAsDate() *pkerr.Error {
	for _, str := range s.stringElems {
		t, err := dtparse.ParseLoose(str)
		if err != nil {
			return notSupported("value.minmax.resolveAsDate")
		}
		if err := s.exchangeDate(Date(t)); err != nil {
			return err
		}
	}
	return nil
}

func (s *minmaxState) resolveAsDateTime() *pkerr.Error {
	downgraded := false
	for _, str := range s.stringElems {
		if !downgraded {
			if t, err := dtparse.ParseDateTime(str); err == nil {
				if err := s.exchangeDateTime(DateTime(t)); err != nil {
					return err
				}
				continue
			}
		}
		if t, err := dtparse.ParseDate(str); err == nil {
			downgraded = true
			if err := s.exchangeDate(Date(t)); err != nil {
				return err
			}
			continue
		}
		return notSupported("value.minmax.resolveAsDateTime")
	}
	return nil
}

func (s *minmaxState) resolveAsTime() *pkerr.Error {
	for _, str := range s.stringElems {
		t, err := dtparse.ParseTime(str)
		if err != nil {
			return notSupported("value.minmax.resolveAsTime")
		}
		if err := s.exchangeTime(Time(t)); err != nil {
			return err
		}
	}
	return nil
}

// resolveStringElements applies the postponed string candidates using the
// priority decimal > datetime > date > time once the typed pass has
// established (or failed to establish) a dominant type.
func (s *minmaxState) resolveStringElements() *pkerr.Error {
	if len(s.stringElems) == 0 {
		return nil
	}

	switch {
	case s.hasDecimal:
		return s.resolveAsDecimal()
	case s.hasDate:
		return s.resolveAsDate()
	case s.hasDateTime:
		return s.resolveAsDateTime()
	case s.hasTime:
		return s.resolveAsTime()
	}

	// none of decimal/datetime/date/time detected yet: classify each
	// element independently, preferring decimal, then datetime/date
	// (with downgrade), then time.
	for _, str := range s.stringElems {
		if !(s.hasDateTime || s.hasDate || s.hasTime) {
			if d, err := decimal.NewFromString(strings.TrimSpace(str)); err == nil {
				if err := s.exchangeDecimal(d); err != nil {
					return err
				}
				continue
			}
		}
		if !(s.hasDecimal || s.hasTime) {
			if !s.hasDate {
				if t, err := dtparse.ParseDateTime(str); err == nil {
					if err := s.exchangeDateTime(DateTime(t)); err != nil {
						return err
					}
					continue
				}
			}
			if t, err := dtparse.ParseLoose(str); err == nil {
				if err := s.exchangeDate(Date(t)); err != nil {
					return err
				}
				continue
			}
		}
		if !(s.hasDecimal || s.hasDateTime || s.hasDate) {
			if t, err := dtparse.ParseTime(str); err == nil {
				if err := s.exchangeTime(Time(t)); err != nil {
					return err
				}
				continue
			}
		}
	}
	return nil
}

// result returns the final extremum, preferring decimal > date > datetime
// > time (date before datetime mirrors the downgrade rule: once any date
// value is present, the result is reported as a Date).
func (s *minmaxState) result() V {
	switch {
	case s.hasDecimal:
		return Num(s.minDecimal)
	case s.hasDate:
		return s.minDate
	case s.hasDateTime:
		return s.minDateTime
	case s.hasTime:
		return s.minTime
	default:
		return None()
	}
}

// findTyped runs the shared collect/resolve/result pipeline, restricting
// which typed kinds are accepted via the exchange callback (so Min/MinNum/
// MinDate/etc. all share this engine, per MinmaxFinder's find/find_decimal/
// find_date/find_datetime/find_time variants).
func findTyped(list []V, order minmaxOrder, exchangeTyped func(s *minmaxState, elem V) (*pkerr.Error, bool), resolveStrings func(s *minmaxState) *pkerr.Error) (V, *pkerr.Error) {
	if len(list) == 0 {
		return None(), nil
	}
	s := newMinmaxState(order)
	for _, elem := range list {
		switch elem.kind {
		case KindStr:
			if err := s.addStringElement(elem.str); err != nil {
				return None(), err
			}
		case KindNone:
			// ignored
		default:
			if err, handled := exchangeTyped(s, elem); !handled {
				return None(), notSupported("value.minmax.find")
			} else if err != nil {
				return None(), err
			}
		}
	}
	if err := resolveStrings(s); err != nil {
		return None(), err
	}
	return s.result(), nil
}

func anyExchange(s *minmaxState, elem V) (*pkerr.Error, bool) {
	switch elem.kind {
	case KindNum:
		d, _ := elem.AsDecimal()
		return s.exchangeDecimal(d), true
	case KindDateTime:
		return s.exchangeDateTime(elem), true
	case KindDate:
		return s.exchangeDate(elem), true
	case KindTime:
		return s.exchangeTime(elem), true
	default:
		return nil, false
	}
}

// Min and Max accept any comparable typed candidates, downgrading mixed
// Date/DateTime input.
func Min(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMin, anyExchange, (*minmaxState).resolveStringElements)
}

func Max(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMax, anyExchange, (*minmaxState).resolveStringElements)
}

func decimalExchange(s *minmaxState, elem V) (*pkerr.Error, bool) {
	if elem.kind != KindNum {
		return nil, false
	}
	d, _ := elem.AsDecimal()
	return s.exchangeDecimal(d), true
}

// MinNum/MaxNum restrict candidates to Num, resolving postponed strings as
// decimals only.
func MinNum(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMin, decimalExchange, (*minmaxState).resolveAsDecimal)
}

func MaxNum(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMax, decimalExchange, (*minmaxState).resolveAsDecimal)
}

func dateExchange(s *minmaxState, elem V) (*pkerr.Error, bool) {
	if elem.kind != KindDate {
		return nil, false
	}
	return s.exchangeDate(elem), true
}

// MinDate/MaxDate restrict candidates to Date.
func MinDate(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMin, dateExchange, (*minmaxState).resolveAsDate)
}

func MaxDate(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMax, dateExchange, (*minmaxState).resolveAsDate)
}

func dateTimeExchange(s *minmaxState, elem V) (*pkerr.Error, bool) {
	switch elem.kind {
	case KindDateTime:
		return s.exchangeDateTime(elem), true
	case KindDate:
		return s.exchangeDate(elem), true
	default:
		return nil, false
	}
}

// MinDateTime/MaxDateTime accept DateTime and Date (with downgrade).
func MinDateTime(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMin, dateTimeExchange, func(s *minmaxState) *pkerr.Error {
		if s.hasDate {
			return s.resolveAsDate()
		}
		return s.resolveAsDateTime()
	})
}

func MaxDateTime(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMax, dateTimeExchange, func(s *minmaxState) *pkerr.Error {
		if s.hasDate {
			return s.resolveAsDate()
		}
		return s.resolveAsDateTime()
	})
}

func timeExchange(s *minmaxState, elem V) (*pkerr.Error, bool) {
	if elem.kind != KindTime {
		return nil, false
	}
	return s.exchangeTime(elem), true
}

// MinTime/MaxTime restrict candidates to Time.
func MinTime(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMin, timeExchange, (*minmaxState).resolveAsTime)
}

func MaxTime(v V) (V, *pkerr.Error) {
	list, _ := v.AsList()
	return findTyped(list, orderMax, timeExchange, (*minmaxState).resolveAsTime)
}
