package model

import "time"

// User represents a user in the system
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Frequency describes how often a medication is scheduled to be taken
type Frequency string

const (
	FrequencyOnceDaily       Frequency = "once_daily"
	FrequencyTwiceDaily      Frequency = "twice_daily"
	FrequencyThreeTimesDaily Frequency = "three_times_daily"
	FrequencyFourTimesDaily  Frequency = "four_times_daily"
	FrequencyEveryOtherDay   Frequency = "every_other_day"
	FrequencyWeekly          Frequency = "weekly"
	FrequencyMonthly         Frequency = "monthly"
	FrequencyAsNeeded        Frequency = "as_needed"
	FrequencyOther           Frequency = "other"
)

// Valid reports whether f is one of the known frequency values
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThreeTimesDaily,
		FrequencyFourTimesDaily, FrequencyEveryOtherDay, FrequencyWeekly,
		FrequencyMonthly, FrequencyAsNeeded, FrequencyOther:
		return true
	}
	return false
}

// DailyDoses returns the number of doses expected per day for daily
// frequencies. Frequencies with a longer period (every other day, weekly,
// monthly) and unscheduled frequencies (as needed, other) return 0; their
// expectations are computed per period, not per day.
func (f Frequency) DailyDoses() int {
	switch f {
	case FrequencyOnceDaily:
		return 1
	case FrequencyTwiceDaily:
		return 2
	case FrequencyThreeTimesDaily:
		return 3
	case FrequencyFourTimesDaily:
		return 4
	default:
		return 0
	}
}

// ConstraintType identifies a dosage constraint variant
type ConstraintType string

const (
	ConstraintMinTimeBetween      ConstraintType = "min_time_between"
	ConstraintMaxPerPeriod        ConstraintType = "max_per_period"
	ConstraintMaxCumulativeAmount ConstraintType = "max_cumulative_amount"
	ConstraintTimeWindow          ConstraintType = "time_window"
	ConstraintCustom              ConstraintType = "custom"
)

// DosageConstraint is a safety rule limiting when or how often a medication
// may be taken. Exactly one parameter block is expected to match Type; a
// constraint whose parameter block is missing is treated as satisfied rather
// than as an error, so a misconfigured rule can never lock a user out of
// logging a dose.
type DosageConstraint struct {
	Type                ConstraintType             `json:"type"`
	MinTimeBetween      *MinTimeBetweenParams      `json:"min_time_between,omitempty"`
	MaxPerPeriod        *MaxPerPeriodParams        `json:"max_per_period,omitempty"`
	MaxCumulativeAmount *MaxCumulativeAmountParams `json:"max_cumulative_amount,omitempty"`
	TimeWindow          *TimeWindowParams          `json:"time_window,omitempty"`
	Note                *string                    `json:"note,omitempty"`
}

// MinTimeBetweenParams requires a minimum spacing between taken doses
type MinTimeBetweenParams struct {
	DurationMinutes int `json:"duration_minutes"`
}

// MaxPerPeriodParams caps the number of taken doses within a rolling period
type MaxPerPeriodParams struct {
	MaxCount    int `json:"max_count"`
	PeriodHours int `json:"period_hours"`
}

// MaxCumulativeAmountParams caps the total amount taken within a rolling
// period. The per-dose amount is parsed from the medication's dosage text.
type MaxCumulativeAmountParams struct {
	MaxAmount   float64 `json:"max_amount"`
	Unit        string  `json:"unit"`
	PeriodHours int     `json:"period_hours"`
}

// TimeWindowParams restricts doses to a time-of-day window. Either bound may
// be absent, in which case it is not checked.
type TimeWindowParams struct {
	NotBefore *string `json:"not_before,omitempty"`
	NotAfter  *string `json:"not_after,omitempty"`
}

// Medication represents a medication record
type Medication struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	Name          string             `json:"name"`
	Dosage        string             `json:"dosage"`
	Frequency     Frequency          `json:"frequency"`
	ReminderTimes []string           `json:"reminder_times,omitempty"`
	Constraints   []DosageConstraint `json:"constraints,omitempty"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       *time.Time         `json:"end_date,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Active        bool               `json:"active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// DoseStatus records whether a logged dose was taken or deliberately skipped
type DoseStatus string

const (
	DoseTaken   DoseStatus = "taken"
	DoseSkipped DoseStatus = "skipped"
)

// MedicationLog represents a single dose event for a medication
type MedicationLog struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medication_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Status       DoseStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Report represents a generated adherence report
type Report struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	FilePath       string    `json:"file_path"`
	GeneratedAt    time.Time `json:"generated_at"`
	CreatedAt      time.Time `json:"created_at"`
}
