package doses

import (
	"time"

	"med-adherence/internal/domain/medications"
)

// GenerateDue calcula los instantes de toma de una regla dentro del rango
// semiabierto [from, to). Es una función pura: determinista, sin duplicados,
// ordenada ascendente. La persistencia idempotente la hace el Service.
func GenerateDue(rule medications.Rule, from, to time.Time) []time.Time {
	if !from.Before(to) {
		return nil
	}

	// La regla acota el rango: nada antes del inicio del tratamiento,
	// nada después del fin (si lo hay).
	if rule.Start.After(from) {
		from = rule.Start
	}
	if rule.End != nil && rule.End.Before(to) {
		to = rule.End.Add(time.Nanosecond) // End es inclusivo
	}
	if !from.Before(to) {
		return nil
	}

	switch rule.Kind {
	case medications.RuleTimes:
		return dueAtFixedTimes(rule.Times, from, to)
	case medications.RuleInterval:
		return dueAtInterval(rule.Start, rule.IntervalHours, from, to)
	default:
		// as_needed no genera calendario
		return nil
	}
}

func dueAtFixedTimes(times []string, from, to time.Time) []time.Time {
	loc := from.Location()
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)

	out := make([]time.Time, 0)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, hhmm := range times {
			t, err := time.Parse("15:04", hhmm)
			if err != nil {
				continue // la regla ya se validó al crearla
			}
			instant := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			if instant.Before(from) || !instant.Before(to) {
				continue
			}
			out = append(out, instant)
		}
	}
	return out
}

func dueAtInterval(anchor time.Time, hours int, from, to time.Time) []time.Time {
	if hours < 1 {
		return nil
	}
	step := time.Duration(hours) * time.Hour

	// Primer instante del tren (anchor + k*step) dentro de [from, to).
	t := anchor
	if t.Before(from) {
		elapsed := from.Sub(anchor)
		k := elapsed / step
		if elapsed%step != 0 {
			k++
		}
		t = anchor.Add(k * step)
	}

	out := make([]time.Time, 0)
	for ; t.Before(to); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}
