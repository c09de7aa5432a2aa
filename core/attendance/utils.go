package attendance

import (
	"sort"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

func sortByNumber(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].SessionNumber < sessions[j].SessionNumber
	})
}

func earliestDate(sessions []Session) core.Date {
	var d core.Date
	for _, s := range sessions {
		if d.IsZero() || s.SessionDate.Before(d) {
			d = s.SessionDate
		}
	}
	return d
}

// TeacherSessions counts the sessions each teacher taught, in first-taught order.
func TeacherSessions(sessions []Session) (teacherIDs []string, counts map[string]int) {
	counts = make(map[string]int)
	sorted := append([]Session{}, sessions...)
	sortByNumber(sorted)
	for _, s := range sorted {
		if _, ok := counts[s.TeacherID]; !ok {
			teacherIDs = append(teacherIDs, s.TeacherID)
		}
		counts[s.TeacherID]++
	}
	return teacherIDs, counts
}
