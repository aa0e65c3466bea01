package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	englishDateRe   = regexp.MustCompile(`\bon (\p{L}+) (\d{1,2})`)
	ukrainianDateRe = regexp.MustCompile(`на (\d{1,2}) (\p{L}+)`)
)

var englishMonths = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// Genitive forms, as used after a day number ("на 5 березня").
var ukrainianMonths = map[string]time.Month{
	"січня":     time.January,
	"лютого":    time.February,
	"березня":   time.March,
	"квітня":    time.April,
	"травня":    time.May,
	"червня":    time.June,
	"липня":     time.July,
	"серпня":    time.August,
	"вересня":   time.September,
	"жовтня":    time.October,
	"листопада": time.November,
	"грудня":    time.December,
}

type monthDay struct {
	month time.Month
	day   int
}

// findMonthDay looks for an explicit calendar date in lower-cased text. The
// Ukrainian form wins when both are present.
func findMonthDay(text string) (monthDay, bool) {
	if m := ukrainianDateRe.FindStringSubmatch(text); m != nil {
		if month, ok := ukrainianMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			return monthDay{month: month, day: day}, true
		}
	}
	if m := englishDateRe.FindStringSubmatch(text); m != nil {
		if month, ok := englishMonths[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			return monthDay{month: month, day: day}, true
		}
	}
	return monthDay{}, false
}

// resolve pins md to a year. A fixed year is used as-is; otherwise the year is
// taken from now and rolls over when the date has already passed.
func (md monthDay) resolve(now time.Time, fixedYear int) (string, bool) {
	year := fixedYear
	if year == 0 {
		year = now.Year()
	}
	d, ok := calendarDate(year, md.month, md.day, now.Location())
	if !ok {
		return "", false
	}
	if fixedYear == 0 {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if d.Before(today) {
			if d, ok = calendarDate(year+1, md.month, md.day, now.Location()); !ok {
				return "", false
			}
		}
	}
	return d.Format(DateLayout), true
}

// calendarDate rejects days that time.Date would silently normalise, such as
// February 30.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// relativeDate resolves words like "tomorrow" against now. Any prompt that
// mentions tomorrow, including "day after tomorrow", means now+1.
func relativeDate(text string, now time.Time) (string, bool) {
	var offset int
	switch {
	case containsAny(text, "tomorrow", "завтра"):
		offset = 1
	case containsAny(text, "today", "сьогодні"):
		offset = 0
	default:
		return "", false
	}
	return now.AddDate(0, 0, offset).Format(DateLayout), true
}

var relativeWords = []string{"tomorrow", "today", "завтра", "сьогодні"}

func stripRelativeWords(s string) string {
	for _, w := range relativeWords {
		s = strings.ReplaceAll(s, w, "")
	}
	return strings.Join(strings.Fields(s), " ")
}
