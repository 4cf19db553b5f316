package doses

import (
	"context"
	"sort"
	"strings"
	"time"
)

// DaySummary es el estado agregado de un día de calendario.
type DaySummary struct {
	Date   string    `json:"date"` // YYYY-MM-DD
	Status DayStatus `json:"status"`
	Due    int       `json:"due"`
	Taken  int       `json:"taken"`
	Missed int       `json:"missed"`
}

// AdherenceReport es una vista derivada, nunca persistida: se recalcula en
// cada consulta para no quedar stale cuando se edita historial.
type AdherenceReport struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Days  []DaySummary `json:"days"`
	// Percentage = taken / (taken + missed) sobre el rango. nil cuando no
	// hay eventos resueltos (sin datos, no 0%).
	Percentage *float64 `json:"percentage"`
	// Streak: días consecutivos más recientes con status taken. Un día
	// partial o missed lo corta; un día none no lo corta ni lo extiende.
	Streak int `json:"streak"`
}

// Adherence computa el reporte para [from, to) como un fold puro sobre los
// eventos agrupados por día: misma data de entrada, mismo resultado.
func (s *Service) Adherence(ctx context.Context, userID string, from, to time.Time) (AdherenceReport, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || !from.Before(to) {
		return AdherenceReport{}, ErrInvalidInput
	}

	events, err := s.repo.ListByUser(ctx, userID, ListFilter{
		From:     &from,
		To:       &to,
		Statuses: []Status{StatusPending, StatusTaken, StatusMissed, StatusSnoozed},
	})
	if err != nil {
		return AdherenceReport{}, err
	}

	return foldAdherence(events, from, to), nil
}

const dayKeyLayout = "2006-01-02"

func foldAdherence(events []DoseEvent, from, to time.Time) AdherenceReport {
	type bucket struct {
		due, taken, missed int
	}
	byDay := map[string]*bucket{}

	for _, e := range events {
		key := e.ScheduledAt.In(from.Location()).Format(dayKeyLayout)
		b := byDay[key]
		if b == nil {
			b = &bucket{}
			byDay[key] = b
		}
		b.due++
		switch e.Status {
		case StatusTaken:
			b.taken++
		case StatusMissed:
			b.missed++
		}
		// pending y snoozed cuentan como due pero no entran al denominador
		// hasta resolverse
	}

	loc := from.Location()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	days := make([]DaySummary, 0)
	totalTaken, totalMissed := 0, 0

	for day := start; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayKeyLayout)
		d := DaySummary{Date: key, Status: DayNone}
		if b, ok := byDay[key]; ok {
			d.Due = b.due
			d.Taken = b.taken
			d.Missed = b.missed
			d.Status = dayStatus(b.due, b.taken, b.missed)
			totalTaken += b.taken
			totalMissed += b.missed
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	var pct *float64
	if denom := totalTaken + totalMissed; denom > 0 {
		v := float64(totalTaken) / float64(denom) * 100
		pct = &v
	}

	return AdherenceReport{
		From:       from.Format(dayKeyLayout),
		To:         to.Format(dayKeyLayout),
		Days:       days,
		Percentage: pct,
		Streak:     streak(days),
	}
}

// dayStatus deriva el estado del día solo de los eventos resueltos:
// todo taken => taken, algún missed sin tomas => missed, mezcla => partial.
// Sin resueltos (nada due, o todo pendiente aún) => none.
func dayStatus(due, taken, missed int) DayStatus {
	switch {
	case taken == 0 && missed == 0:
		return DayNone
	case missed == 0 && taken == due:
		return DayTaken
	case taken == 0:
		return DayMissed
	default:
		return DayPartial
	}
}

// streak cuenta desde el día más reciente hacia atrás: taken suma, none se
// saltea, partial o missed corta.
func streak(days []DaySummary) int {
	n := 0
	for i := len(days) - 1; i >= 0; i-- {
		switch days[i].Status {
		case DayTaken:
			n++
		case DayNone:
			continue
		default:
			return n
		}
	}
	return n
}
