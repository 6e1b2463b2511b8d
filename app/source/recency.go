package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/bgnews/newsrelay/app/post"
)

const RecentWindow = 24 * time.Hour

// Relative time markers used by Polish listings for items from the last hours.
var todayMarkers = []string{"teraz", "sek", "min", "godz", "dzisiaj", "dziś", "today"}

// Absolute listing dates such as "15.10.2026" or "Dodano: 5.10.2026 r."
var listingDate = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)

// IsRecent reports whether the item was published within the last days
// calendar days (today counts as the first). Feed items carry a timestamp;
// listing items carry either a relative marker such as "3 godziny temu" or an
// absolute dd.mm.yyyy date.
func IsRecent(item post.Item, now time.Time, days int) bool {
	if days <= 0 {
		days = 1
	}

	if item.PublishedAt != nil {
		age := now.Sub(*item.PublishedAt)
		return age >= -time.Hour && age < time.Duration(days)*RecentWindow
	}

	marker := strings.ToLower(item.Time)
	if marker == "" {
		return false
	}

	if match := listingDate.FindString(marker); match != "" {
		return withinDays(match, now, days)
	}

	for _, m := range todayMarkers {
		if strings.Contains(marker, m) {
			return true
		}
	}
	return false
}

func withinDays(date string, now time.Time, days int) bool {
	published, err := time.ParseInLocation("2.1.2006", date, now.Location())
	if err != nil {
		return false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	oldest := today.AddDate(0, 0, -(days - 1))
	return !published.Before(oldest) && !published.After(today)
}
