package model

// DurationLabels lists the selectable video length buckets in form order.
// Labels are minutes of finished video; values are pipeline seconds.
var DurationLabels = []string{"6-9", "10-12", "18-20", "30-40"}

var durationSeconds = map[string]int{
	"6-9":   450,
	"10-12": 660,
	"18-20": 1140,
	"30-40": 2100,
}

const fallbackDurationSeconds = 2100

// ResolveDurationSeconds maps a length label to seconds. Unknown labels fall
// back to the longest bucket so a malformed selection never blocks submission.
func ResolveDurationSeconds(label string) int {
	if secs, ok := durationSeconds[label]; ok {
		return secs
	}
	return fallbackDurationSeconds
}
