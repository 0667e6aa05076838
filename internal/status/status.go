// Package status holds the canonical ticket and schedule status vocabulary
// and the normalization of the many historical spellings found in imported
// data ("Concluído", "concluido", "CONCLUIDO", ...). Normalization is total:
// unknown input is rejected, never coerced to a default.
package status

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical ticket statuses, stored verbatim.
const (
	Open       = "Aberto"
	InProgress = "Em Andamento"
	Completed  = "Concluido"
	Cancelled  = "Cancelado"
)

// Canonical schedule statuses.
const (
	Scheduled         = "agendado"
	Started           = "iniciado"
	ScheduleCompleted = "concluido"
	ScheduleCancelled = "cancelado"
)

// Ticket types.
const (
	TypeCorrective = "corretiva"
	TypePreventive = "preventiva"
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, trims and strips diacritics.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// NormalizeTicket maps raw input to a canonical ticket status. The prefix set
// covers every spelling observed in the legacy data.
func NormalizeTicket(raw string) (string, bool) {
	switch n := Fold(raw); {
	case strings.HasPrefix(n, "conclu"):
		return Completed, true
	case strings.HasPrefix(n, "em and"):
		return InProgress, true
	case strings.HasPrefix(n, "abert"):
		return Open, true
	case strings.HasPrefix(n, "canc"):
		return Cancelled, true
	}
	return "", false
}

// NormalizeSchedule maps raw input to a canonical schedule status.
func NormalizeSchedule(raw string) (string, bool) {
	switch n := Fold(raw); {
	case strings.HasPrefix(n, "conclu"):
		return ScheduleCompleted, true
	case strings.HasPrefix(n, "inici"):
		return Started, true
	case strings.HasPrefix(n, "canc"):
		return ScheduleCancelled, true
	case strings.HasPrefix(n, "agend"):
		return Scheduled, true
	}
	return "", false
}

// IsActive reports whether a canonical ticket status still demands work.
func IsActive(s string) bool {
	return s == Open || s == InProgress
}

// NormalizeType maps raw input to a ticket type, defaulting to corretiva as
// the legacy data does.
func NormalizeType(raw string) string {
	if Fold(raw) == TypePreventive {
		return TypePreventive
	}
	return TypeCorrective
}
