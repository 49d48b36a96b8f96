package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timeframePattern = regexp.MustCompile(`^(?i:last|past)\s+(\d+\s+)?(day|week|month|year)s?$`)

// ParseTimeframe 解析 "last 6 months" / "past week" 这类相对时间，
// 返回以 now 为终点的起止日期 (YYYY-MM-DD)。无法识别时 ok 为 false。
func ParseTimeframe(timeframe string, now time.Time) (start, end string, ok bool) {
	m := timeframePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(timeframe)))
	if m == nil {
		return "", "", false
	}

	n := 1
	if s := strings.TrimSpace(m[1]); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return "", "", false
		}
		n = v
	}

	var from time.Time
	switch m[2] {
	case "day":
		from = now.AddDate(0, 0, -n)
	case "week":
		from = now.AddDate(0, 0, -7*n)
	case "month":
		from = now.AddDate(0, -n, 0)
	case "year":
		from = now.AddDate(-n, 0, 0)
	}

	return from.Format(time.DateOnly), now.Format(time.DateOnly), true
}
