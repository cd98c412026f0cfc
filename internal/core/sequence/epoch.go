package sequence

import (
	"fmt"
	"time"
)

// Epoch is the resolved period component of a counter key.
// Zero value means the module issues one continuous sequence.
type Epoch struct {
	Year          *int
	FinancialYear *string
}

// Hints carries optional explicit epoch values from callers (for example a
// backfill that numbers historical records under their original period).
// A hint is honored only when the module's configuration uses that mode.
type Hints struct {
	Year          *int
	FinancialYear *string
}

// FinancialYearLabel computes the FY label for a date given the month the
// fiscal year starts (1-12). A date belongs to its own calendar year when its
// month is at or past the start month, otherwise to the previous year.
// March 2025 with start month 4 is FY24; May 2025 is FY25.
func FinancialYearLabel(t time.Time, startMonth int) string {
	if startMonth < 1 || startMonth > 12 {
		startMonth = DefaultFinancialYearStart
	}
	year := t.Year()
	if int(t.Month()) < startMonth {
		year--
	}
	return fmt.Sprintf("FY%02d", year%100)
}

// IsFinancialYearLabel reports whether s has the exact FY<YY> shape produced
// by FinancialYearLabel. Anything else would end up verbatim inside issued
// identifiers and seed a junk counter key.
func IsFinancialYearLabel(s string) bool {
	if len(s) != 4 || s[0] != 'F' || s[1] != 'Y' {
		return false
	}
	return s[2] >= '0' && s[2] <= '9' && s[3] >= '0' && s[3] <= '9'
}

// ResolveEpoch determines the counter-key period for one issuance.
// Explicit hints override the reference time; hints for a mode the config
// does not use are ignored.
func ResolveEpoch(cfg Config, hints *Hints, now time.Time) Epoch {
	switch cfg.EpochMode() {
	case EpochFinancialYear:
		if hints != nil && hints.FinancialYear != nil {
			label := *hints.FinancialYear
			return Epoch{FinancialYear: &label}
		}
		label := FinancialYearLabel(now, cfg.FinancialYearStart)
		return Epoch{FinancialYear: &label}

	case EpochCalendarYear:
		if hints != nil && hints.Year != nil {
			year := *hints.Year
			return Epoch{Year: &year}
		}
		year := now.Year()
		return Epoch{Year: &year}

	default:
		return Epoch{}
	}
}

// FormatID assembles the wire-visible identifier string.
// Shapes (bit-exact, parsed by external reporting):
//
//	SRPL-<MODULE>-<SEQ>
//	SRPL-<MODULE>-<YYYY>-<SEQ>
//	SRPL-<MODULE>-FY<YY>-<SEQ>
func FormatID(module ModuleCode, epoch Epoch, value int64, padding int) string {
	if padding <= 0 {
		padding = DefaultPadding
	}
	switch {
	case epoch.FinancialYear != nil:
		return fmt.Sprintf("SRPL-%s-%s-%0*d", module, *epoch.FinancialYear, padding, value)
	case epoch.Year != nil:
		return fmt.Sprintf("SRPL-%s-%d-%0*d", module, *epoch.Year, padding, value)
	default:
		return fmt.Sprintf("SRPL-%s-%0*d", module, padding, value)
	}
}
