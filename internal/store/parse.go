package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var areaPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d+)?`)

// parseArea extracts a floor area from the free-text size field. The string
// must start with a numeric token and mention a square-area unit ("sq");
// anything else yields nil rather than a guessed value.
func parseArea(displaySize string) *float64 {
	if !strings.Contains(displaySize, "sq") {
		return nil
	}
	token := areaPattern.FindString(displaySize)
	if token == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &value
}

var addedOrReducedLayouts = []string{"02/01/2006", "02-01-2006", "2/1/2006"}

// parseAddedOrReduced extracts the trailing date token of an "Added on
// 13/07/2023" style field. Day-first dates and the words "today" and
// "yesterday" are understood; anything unparseable yields nil.
func parseAddedOrReduced(s string, now time.Time) *time.Time {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	token := fields[len(fields)-1]

	switch strings.ToLower(token) {
	case "today":
		day := now.Truncate(24 * time.Hour)
		return &day
	case "yesterday":
		day := now.Truncate(24 * time.Hour).AddDate(0, 0, -1)
		return &day
	}

	for _, layout := range addedOrReducedLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return &t
		}
	}
	return nil
}

var firstVisibleLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05"}

func parseFirstVisible(s string) *time.Time {
	for _, layout := range firstVisibleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
