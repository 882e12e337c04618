package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gardu-monitor-backend/internal/model"
)

var (
	isoMonthRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})(?:-\d{1,2})?$`)
	slashMonthRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
)

// Month normalises a month bucket to "YYYY-MM". It accepts "2024-05",
// "2024-5", "2024-05-17" and "05/2024".
func Month(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	var yearStr, monthStr string
	if m := isoMonthRe.FindStringSubmatch(s); m != nil {
		yearStr, monthStr = m[1], m[2]
	} else if m := slashMonthRe.FindStringSubmatch(s); m != nil {
		yearStr, monthStr = m[2], m[1]
	} else {
		return "", fmt.Errorf("unable to parse month: %q", raw)
	}

	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(monthStr)
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month out of range: %q", raw)
	}
	return fmt.Sprintf("%04d-%02d", year, month), nil
}

// Period maps the spellings used by operators onto a model.Period.
func Period(raw string) (model.Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "siang", "day":
		return model.PeriodSiang, nil
	case "malam", "night":
		return model.PeriodMalam, nil
	}
	return "", fmt.Errorf("unknown period: %q", raw)
}
