package sequence

import "time"

// Default formatting values used when a module has no stored configuration.
const (
	DefaultPadding            = 6
	DefaultFinancialYearStart = 4 // April, Indian fiscal year
)

// EpochMode selects which (if any) period component an ID carries.
type EpochMode int

const (
	// EpochNone issues one continuous sequence per module.
	EpochNone EpochMode = iota

	// EpochCalendarYear partitions the sequence by four-digit calendar year.
	EpochCalendarYear

	// EpochFinancialYear partitions the sequence by fiscal-year label (FY25).
	EpochFinancialYear
)

// Config holds per-module formatting configuration.
// One row exists per module code; created lazily with defaults on first use.
type Config struct {
	ModuleCode         ModuleCode `db:"module_code"`
	UseYearPrefix      bool       `db:"use_year_prefix"`
	UseFinancialYear   bool       `db:"use_financial_year"`
	FinancialYearStart int        `db:"financial_year_start"`
	Padding            int        `db:"padding"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// DefaultConfig returns the configuration synthesized for a module on first use:
// no year prefix, padding 6.
func DefaultConfig(module ModuleCode) Config {
	return Config{
		ModuleCode:         module,
		UseYearPrefix:      false,
		UseFinancialYear:   false,
		FinancialYearStart: DefaultFinancialYearStart,
		Padding:            DefaultPadding,
	}
}

// EpochMode resolves which formatting branch applies.
// When both flags are set, financial year wins.
func (c Config) EpochMode() EpochMode {
	switch {
	case c.UseFinancialYear:
		return EpochFinancialYear
	case c.UseYearPrefix:
		return EpochCalendarYear
	default:
		return EpochNone
	}
}

// EffectivePadding returns the configured padding or the default when unset.
func (c Config) EffectivePadding() int {
	if c.Padding <= 0 {
		return DefaultPadding
	}
	return c.Padding
}

// Counter is the durable per-(module, epoch) sequence state.
// Exactly one row exists per distinct (module, year, financial year) key and
// CurrentValue never decreases once the row is created.
type Counter struct {
	ModuleCode    ModuleCode `db:"module_code"`
	Year          *int       `db:"year"`
	FinancialYear *string    `db:"financial_year"`
	CurrentValue  int64      `db:"current_value"`
	LastResetAt   time.Time  `db:"last_reset_at"`
}
