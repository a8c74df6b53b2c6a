package engine

import (
	"sort"
	"time"

	"github.com/wellnest-io/wellnest-backend/pkg/model"
)

// reminderGraceMinutes is how long before a reminder a taken dose still
// counts as satisfying it.
const reminderGraceMinutes = 30

// OverdueMedication reports a scheduled reminder that has passed today
// without a matching taken dose
type OverdueMedication struct {
	Medication     model.Medication `json:"medication"`
	ScheduledTime  string           `json:"scheduled_time"`
	OverdueMinutes int              `json:"overdue_minutes"`
}

// DetectOverdue scans each active medication's reminder times against
// today's taken logs and returns the medications that are currently overdue,
// most overdue first. A medication contributes at most one entry: the first
// unmet reminder found. As-needed medications have no schedule and are never
// overdue. Reminders that fail to parse are skipped. All comparisons are
// time-of-day only; reminders and logs are assumed to share now's calendar
// day.
func DetectOverdue(medications []model.Medication, todaysLogs []model.MedicationLog, now time.Time) []OverdueMedication {
	takenByMedication := make(map[string][]int)
	for _, l := range todaysLogs {
		if l.Status != model.DoseTaken {
			continue
		}
		takenByMedication[l.MedicationID] = append(takenByMedication[l.MedicationID], MinutesOfDay(l.Timestamp))
	}

	nowMinutes := MinutesOfDay(now)

	var overdue []OverdueMedication
	for _, med := range medications {
		if med.Frequency == model.FrequencyAsNeeded || len(med.ReminderTimes) == 0 {
			continue
		}

		taken := takenByMedication[med.ID]
		for _, reminder := range med.ReminderTimes {
			reminderMinutes, ok := ParseClock(reminder)
			if !ok {
				continue
			}
			if reminderMinutes >= nowMinutes {
				continue
			}
			if satisfied(taken, reminderMinutes) {
				continue
			}

			overdue = append(overdue, OverdueMedication{
				Medication:     med,
				ScheduledTime:  reminder,
				OverdueMinutes: nowMinutes - reminderMinutes,
			})
			break
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].OverdueMinutes > overdue[j].OverdueMinutes
	})

	return overdue
}

// satisfied reports whether any taken dose landed at or after the reminder's
// grace boundary
func satisfied(takenMinutes []int, reminderMinutes int) bool {
	boundary := reminderMinutes - reminderGraceMinutes
	for _, m := range takenMinutes {
		if m >= boundary {
			return true
		}
	}
	return false
}
