package extract

import (
	"regexp"
	"strconv"
)

// SuccessMarker is printed by the download script right before a clean exit.
// Exit code zero without it is still treated as a failure.
const SuccessMarker = "SUCCESS"

var progressPattern = regexp.MustCompile(`PROGRESS:([^:\s]+):([0-9.]+)%?`)

// ParseProgress extracts a job id and percentage from one line of subprocess
// output. Lines without a well-formed PROGRESS marker report ok=false and are
// treated as plain diagnostics by the caller.
func ParseProgress(line string) (id string, percent float64, ok bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	percent, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return "", 0, false
	}
	return m[1], percent, true
}
