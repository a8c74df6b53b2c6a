// Package engine evaluates medication safety rules against dose log history.
//
// Every function in this package is a pure function of its arguments: the
// reference instant is always passed in explicitly, nothing reads the system
// clock, and repeated evaluation over the same snapshot is deterministic.
// The engine also never returns errors. Malformed constraints, unparseable
// time strings and unparseable dosage amounts all degrade to "no violation"
// so that a data or parsing bug can never block a user from logging a dose.
package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/wellnest-io/wellnest-backend/pkg/model"
)

// ConstraintViolation reports a single violated dosage constraint.
// TimeUntilAllowed, when present and positive, makes the violation blocking:
// the dose becomes allowed after that wait. Violations without a wait
// duration are informational only (e.g. a dose outside its time-of-day
// window).
type ConstraintViolation struct {
	Constraint       model.DosageConstraint `json:"constraint"`
	Message          string                 `json:"message"`
	TimeUntilAllowed *time.Duration         `json:"time_until_allowed,omitempty"`
}

// Blocking reports whether the violation prevents the dose right now
func (v ConstraintViolation) Blocking() bool {
	return v.TimeUntilAllowed != nil && *v.TimeUntilAllowed > 0
}

var leadingAmount = regexp.MustCompile(`\d+(\.\d+)?`)

// Evaluate checks a proposed dose time against every constraint declared on
// the medication and returns all violations found. Constraints combine as a
// logical AND: any single violation means the dose is not clear. History may
// arrive in any order; it is sorted most-recent-first before evaluation.
func Evaluate(med model.Medication, history []model.MedicationLog, proposedAt time.Time) []ConstraintViolation {
	logs := sortedByTimeDesc(history)

	var violations []ConstraintViolation
	for _, c := range med.Constraints {
		var v *ConstraintViolation
		switch c.Type {
		case model.ConstraintMinTimeBetween:
			v = evaluateMinTimeBetween(c, logs, proposedAt)
		case model.ConstraintMaxPerPeriod:
			v = evaluateMaxPerPeriod(c, logs, proposedAt)
		case model.ConstraintMaxCumulativeAmount:
			v = evaluateMaxCumulativeAmount(c, med.Dosage, logs, proposedAt)
		case model.ConstraintTimeWindow:
			v = evaluateTimeWindow(c, proposedAt)
		case model.ConstraintCustom:
			// informational only, never violated
		}
		if v != nil {
			violations = append(violations, *v)
		}
	}

	return violations
}

// CanTakeAt reports whether a dose at the given instant violates nothing
func CanTakeAt(med model.Medication, history []model.MedicationLog, at time.Time) bool {
	return len(Evaluate(med, history, at)) == 0
}

// NextAvailableAt computes the earliest instant a dose becomes allowed,
// taking the longest wait among all blocking violations. When there are no
// violations the given instant itself is returned. When violations exist but
// none carries a wait duration there is no computable next time — an
// informational violation blocks until external state changes (for example
// the clock moving into a permitted time window) — and ok is false.
func NextAvailableAt(med model.Medication, history []model.MedicationLog, at time.Time) (time.Time, bool) {
	violations := Evaluate(med, history, at)
	if len(violations) == 0 {
		return at, true
	}

	var maxWait time.Duration
	found := false
	for _, v := range violations {
		if v.TimeUntilAllowed == nil {
			continue
		}
		found = true
		if *v.TimeUntilAllowed > maxWait {
			maxWait = *v.TimeUntilAllowed
		}
	}
	if !found {
		return time.Time{}, false
	}

	return at.Add(maxWait), true
}

func evaluateMinTimeBetween(c model.DosageConstraint, logs []model.MedicationLog, proposedAt time.Time) *ConstraintViolation {
	if c.MinTimeBetween == nil || c.MinTimeBetween.DurationMinutes <= 0 {
		return nil
	}

	last := latestTaken(logs)
	if last == nil {
		// first dose is always allowed
		return nil
	}

	minutesSince := int(proposedAt.Sub(last.Timestamp).Minutes())
	if minutesSince >= c.MinTimeBetween.DurationMinutes {
		return nil
	}

	wait := time.Duration(c.MinTimeBetween.DurationMinutes-minutesSince) * time.Minute
	return &ConstraintViolation{
		Constraint:       c,
		Message:          fmt.Sprintf("Wait %s before taking another dose", formatMinutes(c.MinTimeBetween.DurationMinutes-minutesSince)),
		TimeUntilAllowed: &wait,
	}
}

func evaluateMaxPerPeriod(c model.DosageConstraint, logs []model.MedicationLog, proposedAt time.Time) *ConstraintViolation {
	if c.MaxPerPeriod == nil || c.MaxPerPeriod.MaxCount <= 0 || c.MaxPerPeriod.PeriodHours <= 0 {
		return nil
	}

	period := time.Duration(c.MaxPerPeriod.PeriodHours) * time.Hour
	periodStart := proposedAt.Add(-period)

	var inWindow []model.MedicationLog
	for _, l := range logs {
		if l.Status == model.DoseTaken && l.Timestamp.After(periodStart) {
			inWindow = append(inWindow, l)
		}
	}
	if len(inWindow) < c.MaxPerPeriod.MaxCount {
		return nil
	}

	// the cap clears once the oldest dose in the window ages out
	oldest := inWindow[0]
	for _, l := range inWindow[1:] {
		if l.Timestamp.Before(oldest.Timestamp) {
			oldest = l
		}
	}
	wait := oldest.Timestamp.Add(period).Sub(proposedAt)
	if wait < 0 {
		wait = 0
	}

	return &ConstraintViolation{
		Constraint:       c,
		Message:          fmt.Sprintf("Maximum %d dose(s) per %s reached", c.MaxPerPeriod.MaxCount, describePeriod(c.MaxPerPeriod.PeriodHours)),
		TimeUntilAllowed: &wait,
	}
}

func evaluateMaxCumulativeAmount(c model.DosageConstraint, dosage string, logs []model.MedicationLog, proposedAt time.Time) *ConstraintViolation {
	if c.MaxCumulativeAmount == nil || c.MaxCumulativeAmount.MaxAmount <= 0 || c.MaxCumulativeAmount.PeriodHours <= 0 {
		return nil
	}

	perDose, ok := parseDosageAmount(dosage)
	if !ok {
		// no parseable amount on the medication, so the cap cannot apply
		return nil
	}

	periodStart := proposedAt.Add(-time.Duration(c.MaxCumulativeAmount.PeriodHours) * time.Hour)
	count := 0
	for _, l := range logs {
		if l.Status == model.DoseTaken && l.Timestamp.After(periodStart) {
			count++
		}
	}

	// every logged dose is assumed to equal one full declared dosage amount;
	// per-dose amounts are not recorded on the log itself
	total := float64(count) * perDose
	if total < c.MaxCumulativeAmount.MaxAmount {
		return nil
	}

	return &ConstraintViolation{
		Constraint: c,
		Message: fmt.Sprintf("Maximum %s%s per %s reached",
			strconv.FormatFloat(c.MaxCumulativeAmount.MaxAmount, 'f', -1, 64),
			c.MaxCumulativeAmount.Unit,
			describePeriod(c.MaxCumulativeAmount.PeriodHours)),
	}
}

func evaluateTimeWindow(c model.DosageConstraint, proposedAt time.Time) *ConstraintViolation {
	if c.TimeWindow == nil {
		return nil
	}

	proposed := MinutesOfDay(proposedAt)

	if c.TimeWindow.NotBefore != nil {
		if bound, ok := ParseClock(*c.TimeWindow.NotBefore); ok && proposed < bound {
			return &ConstraintViolation{
				Constraint: c,
				Message:    fmt.Sprintf("Not to be taken before %s", *c.TimeWindow.NotBefore),
			}
		}
	}
	if c.TimeWindow.NotAfter != nil {
		if bound, ok := ParseClock(*c.TimeWindow.NotAfter); ok && proposed >= bound {
			return &ConstraintViolation{
				Constraint: c,
				Message:    fmt.Sprintf("Not to be taken at or after %s", *c.TimeWindow.NotAfter),
			}
		}
	}

	return nil
}

// parseDosageAmount extracts the leading numeric amount from free-text dosage
// like "500mg" or "2.5 ml". A medication without a parseable amount disables
// cumulative-amount constraints entirely.
func parseDosageAmount(dosage string) (float64, bool) {
	match := leadingAmount.FindString(dosage)
	if match == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// latestTaken returns the most recent taken log, expecting logs sorted
// most-recent-first
func latestTaken(logs []model.MedicationLog) *model.MedicationLog {
	for i := range logs {
		if logs[i].Status == model.DoseTaken {
			return &logs[i]
		}
	}
	return nil
}

func sortedByTimeDesc(logs []model.MedicationLog) []model.MedicationLog {
	sorted := make([]model.MedicationLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}

// formatMinutes renders a wait in human units: plain minutes under an hour,
// otherwise "Xh Ym" with the minutes part omitted when zero
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	rem := minutes % 60
	if rem == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rem)
}

// describePeriod names a rolling period for violation messages
func describePeriod(hours int) string {
	switch hours {
	case 24:
		return "day"
	case 168:
		return "week"
	case 720:
		return "month"
	}
	if hours < 24 {
		return fmt.Sprintf("%d hour(s)", hours)
	}
	return fmt.Sprintf("%d day(s)", hours/24)
}
