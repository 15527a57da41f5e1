package aggregator

import (
	"strings"
)

const (
	HoursPerYear  = 40 * 52
	MonthsPerYear = 12
)

// Annualize converts a median quote to a yearly figure. Hourly quotes are
// multiplied by 2080 and monthly quotes by 12; any other pay period is
// taken as already annual. A null median stays null.
func Annualize(median *float64, payPeriod *string) *float64 {
	if median == nil {
		return nil
	}
	annual := *median
	if payPeriod != nil {
		switch strings.ToUpper(strings.TrimSpace(*payPeriod)) {
		case "HOURLY":
			annual = *median * HoursPerYear
		case "MONTHLY":
			annual = *median * MonthsPerYear
		}
	}
	return &annual
}

// Range is max minus min, or null unless both are known.
func Range(lo, hi *float64) *float64 {
	if lo == nil || hi == nil {
		return nil
	}
	r := *hi - *lo
	return &r
}

// mean accumulates an average that ignores null inputs.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.count++
}

func (m *mean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	v := m.sum / float64(m.count)
	return &v
}
