package calendar

import (
	"fmt"
	"strings"
	"time"
)

const bsFirstYear = 2070

// bsAnchor is 2070-01-01 BS.
var bsAnchor = time.Date(2013, time.April, 14, 0, 0, 0, 0, time.UTC)

// bsMonthDays holds month lengths for BS years starting at bsFirstYear.
var bsMonthDays = [][12]int{
	{31, 31, 31, 32, 31, 31, 29, 30, 30, 29, 30, 30}, // 2070
	{31, 31, 32, 31, 31, 31, 30, 29, 30, 29, 30, 30}, // 2071
	{31, 32, 31, 32, 31, 30, 30, 29, 30, 29, 30, 30}, // 2072
	{31, 32, 31, 32, 31, 30, 30, 30, 29, 29, 30, 31}, // 2073
	{31, 31, 31, 32, 31, 31, 30, 29, 30, 29, 30, 30}, // 2074
	{31, 31, 32, 31, 31, 31, 30, 29, 30, 29, 30, 30}, // 2075
	{31, 32, 31, 32, 31, 30, 30, 30, 29, 29, 30, 30}, // 2076
	{31, 32, 31, 32, 31, 30, 30, 30, 29, 30, 29, 31}, // 2077
	{31, 31, 31, 32, 31, 31, 30, 29, 30, 29, 30, 30}, // 2078
	{31, 31, 32, 31, 31, 31, 30, 29, 30, 29, 30, 30}, // 2079
	{31, 32, 31, 32, 31, 30, 30, 30, 29, 29, 30, 30}, // 2080
	{31, 32, 31, 32, 31, 30, 30, 30, 29, 30, 29, 31}, // 2081
	{31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30}, // 2082
	{31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30}, // 2083
	{31, 31, 32, 31, 31, 30, 30, 30, 29, 30, 30, 30}, // 2084
}

type bikramSambat struct{}

func (bikramSambat) System() System { return Nepali }

// Parse accepts YYYY-MM-DD or YYYY/MM/DD in Bikram Sambat.
func (bikramSambat) Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "/", "-"))
	var y, m, d int
	if _, err := fmt.Sscanf(value, "%d-%d-%d", &y, &m, &d); err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid nepali date %q", value)
	}
	return bsToGregorian(y, m, d)
}

func (bikramSambat) Format(t time.Time) (string, error) {
	y, m, d, err := gregorianToBS(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), nil
}

func bsToGregorian(year, month, day int) (time.Time, error) {
	idx := year - bsFirstYear
	if idx < 0 || idx >= len(bsMonthDays) {
		return time.Time{}, fmt.Errorf("%w: %d", ErrUnsupportedDate, year)
	}
	if month < 1 || month > 12 || day < 1 || day > bsMonthDays[idx][month-1] {
		return time.Time{}, fmt.Errorf("calendar: invalid nepali date %04d-%02d-%02d", year, month, day)
	}
	days := 0
	for i := 0; i < idx; i++ {
		days += yearLength(i)
	}
	for i := 0; i < month-1; i++ {
		days += bsMonthDays[idx][i]
	}
	days += day - 1
	return bsAnchor.AddDate(0, 0, days), nil
}

func gregorianToBS(t time.Time) (int, int, int, error) {
	remaining := DaysBetween(bsAnchor, t)
	if remaining < 0 {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedDate, t.Format("2006-01-02"))
	}
	for idx := range bsMonthDays {
		length := yearLength(idx)
		if remaining >= length {
			remaining -= length
			continue
		}
		for month, monthDays := range bsMonthDays[idx] {
			if remaining < monthDays {
				return bsFirstYear + idx, month + 1, remaining + 1, nil
			}
			remaining -= monthDays
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedDate, t.Format("2006-01-02"))
}

func yearLength(idx int) int {
	total := 0
	for _, d := range bsMonthDays[idx] {
		total += d
	}
	return total
}
