package agenda

import (
	"strconv"
	"strings"
)

// ParseWindow extracts an agenda window in days from free-text command
// arguments. Recognized phrases select a fixed window; a bare number is
// taken verbatim; anything else falls back to a week.
func ParseWindow(args []string) int {
	text := strings.ToLower(strings.Join(args, " "))

	switch {
	case strings.Contains(text, "bulan") && strings.Contains(text, "depan"):
		return 30
	case strings.Contains(text, "minggu") && strings.Contains(text, "ini"):
		return 7
	}

	if n, err := strconv.Atoi(text); err == nil && n > 0 {
		return n
	}
	return 7
}

// WindowLabel renders a window length for alt text, e.g. "Agenda
// Seminggu Kedepan".
func WindowLabel(days int) string {
	switch {
	case days == 7:
		return "Seminggu"
	case days == 30 || days == 31:
		return "Sebulan"
	default:
		return strconv.Itoa(days) + " Hari"
	}
}
