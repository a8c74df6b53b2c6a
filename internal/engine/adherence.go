package engine

import (
	"time"

	"github.com/wellnest-io/wellnest-backend/pkg/model"
)

// AdherenceSummary aggregates dose logs against the expected schedule over a
// date range
type AdherenceSummary struct {
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalExpected int       `json:"total_expected"`
	TotalTaken    int       `json:"total_taken"`
	TotalSkipped  int       `json:"total_skipped"`
	TotalMissed   int       `json:"total_missed"`
}

// Rate returns the fraction of expected doses actually taken. For
// unscheduled frequencies (as needed, other) there is no expectation and the
// rate is reported as 0.
func (s AdherenceSummary) Rate() float64 {
	if s.TotalExpected == 0 {
		return 0
	}
	return float64(s.TotalTaken) / float64(s.TotalExpected)
}

// SummarizeAdherence partitions a medication's logs within [startDate,
// endDate] into taken and skipped and derives the missed count from the
// expected schedule. Missed is floored at zero: over-logging must never
// produce a negative count.
func SummarizeAdherence(frequency model.Frequency, logs []model.MedicationLog, startDate, endDate time.Time) AdherenceSummary {
	summary := AdherenceSummary{
		StartDate:     startDate,
		EndDate:       endDate,
		TotalExpected: expectedDoses(frequency, startDate, endDate),
	}

	for _, l := range logs {
		if l.Timestamp.Before(startDate) || l.Timestamp.After(endDate) {
			continue
		}
		switch l.Status {
		case model.DoseTaken:
			summary.TotalTaken++
		case model.DoseSkipped:
			summary.TotalSkipped++
		}
	}

	missed := summary.TotalExpected - summary.TotalTaken - summary.TotalSkipped
	if missed < 0 {
		missed = 0
	}
	summary.TotalMissed = missed

	return summary
}

// expectedDoses computes how many doses the frequency calls for across the
// inclusive day range. Period frequencies expect one dose per elapsed period
// rather than per day; unscheduled frequencies expect none.
func expectedDoses(frequency model.Frequency, startDate, endDate time.Time) int {
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	if days < 1 {
		return 0
	}

	if perDay := frequency.DailyDoses(); perDay > 0 {
		return days * perDay
	}

	switch frequency {
	case model.FrequencyEveryOtherDay:
		return (days + 1) / 2
	case model.FrequencyWeekly:
		return (days + 6) / 7
	case model.FrequencyMonthly:
		return (days + 29) / 30
	default:
		// as needed / other: adherence is not meaningful
		return 0
	}
}
