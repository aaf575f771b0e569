package siri

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration parses the ISO-8601 duration subset SIRI uses for update and
// heartbeat intervals (days, hours, minutes, seconds). Year and month
// designators are rejected: they have no fixed length and no interval in this
// system is remotely that long.
func ParseDuration(value string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(value)
	if matches == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", value)
	}

	var total time.Duration
	if matches[1] != "" {
		days, _ := strconv.Atoi(matches[1])
		total += time.Duration(days) * 24 * time.Hour
	}
	if matches[2] != "" {
		hours, _ := strconv.Atoi(matches[2])
		total += time.Duration(hours) * time.Hour
	}
	if matches[3] != "" {
		minutes, _ := strconv.Atoi(matches[3])
		total += time.Duration(minutes) * time.Minute
	}
	if matches[4] != "" {
		seconds, err := strconv.ParseFloat(matches[4], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in duration %q", value)
		}
		total += time.Duration(seconds * float64(time.Second))
	}
	return total, nil
}

// FormatDuration renders a duration as an ISO-8601 "PTnS" value, the form the
// downstream delivery messages carry.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("PT%dS", int(d.Seconds()))
}
