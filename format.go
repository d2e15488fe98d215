package goOTP

import (
	"strconv"
	"time"
)

// FormatDuration renders a wait time for end users. Sub-second remainders
// round up. Under a minute it is "N seconds"; under an hour "M minutes"
// with " S seconds" appended when non-zero; otherwise "H hours" with
// " M minutes" appended when non-zero.
func FormatDuration(d time.Duration) string {
	total := ceilSeconds(d)

	switch {
	case total < 60:
		return strconv.FormatInt(total, 10) + " seconds"
	case total < 3600:
		minutes, seconds := total/60, total%60
		out := strconv.FormatInt(minutes, 10) + " minutes"
		if seconds != 0 {
			out += " " + strconv.FormatInt(seconds, 10) + " seconds"
		}
		return out
	default:
		hours, minutes := total/3600, (total%3600)/60
		out := strconv.FormatInt(hours, 10) + " hours"
		if minutes != 0 {
			out += " " + strconv.FormatInt(minutes, 10) + " minutes"
		}
		return out
	}
}

// ceilSeconds returns d in whole seconds, rounded up and floored at zero.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
