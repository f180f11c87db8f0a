package sources

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var russianMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var (
	russianDateRe = regexp.MustCompile(`(?i)(\d{1,2})\s+([а-яё]+)\s+(\d{4})`)
	isoDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// ParseRussianDate разбирает дату вида «28 августа 2026» или ISO-дату внутри
// строки. Возвращает unix-миллисекунды или 0, если дату распознать не удалось.
func ParseRussianDate(raw string, loc *time.Location) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if loc == nil {
		loc = time.Local
	}

	if m := russianDateRe.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if month, ok := russianMonths[strings.ToLower(m[2])]; ok {
			return time.Date(year, month, day, 0, 0, 0, 0, loc).UnixMilli()
		}
	}

	if iso := isoDateRe.FindString(raw); iso != "" {
		if t, err := time.ParseInLocation("2006-01-02", iso, loc); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
