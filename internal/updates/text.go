package updates

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
)

const ellipsis = "…"

// truncate shortens s to at most max runes, ending in an ellipsis when cut
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-1]), " ") + ellipsis
}

// headline formats a title and caps it at the stored title length
func headline(format string, args ...any) string {
	return truncate(fmt.Sprintf(format, args...), maxTitleLength)
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func pinKindLabel(pin models.Pin) string {
	if pin.IsEvent() {
		return "event"
	}
	return "discussion"
}

func pinEntity(pin models.Pin) models.RelatedEntity {
	return models.RelatedEntity{ID: pin.ID, Type: "pin", Label: pin.Title}
}

func userEntity(id, name string) models.RelatedEntity {
	return models.RelatedEntity{ID: id, Type: "user", Label: name}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * float64(time.Hour)))
}

// windowLabel is the compact form used as the idempotency key, e.g. 24h or 15m
func windowLabel(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	}
	return d.String()
}

func describeWindow(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int64(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
