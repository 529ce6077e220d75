package logs

import (
	"regexp"
	"strconv"
	"strings"

	"swipely/internal/logging"
)

// JobFilter keeps lines tagged with the given job id in either log format.
func JobFilter(jobID int64) func(string) bool {
	id := strconv.FormatInt(jobID, 10)
	pattern := regexp.MustCompile(`(^|\s)` + logging.FieldJobID + `=` + id + `(\s|$)|"` + logging.FieldJobID + `":\s*"?` + id + `\b`)
	return func(line string) bool {
		return pattern.MatchString(line)
	}
}

// LevelFilter keeps lines at or above level. Unrecognized lines pass.
func LevelFilter(level string) func(string) bool {
	minimum := levelRank(level)
	if minimum <= 0 {
		return nil
	}
	return func(line string) bool {
		rank := lineLevel(line)
		return rank == 0 || rank >= minimum
	}
}

// All combines filters; nil entries are ignored.
func All(filters ...func(string) bool) func(string) bool {
	var active []func(string) bool
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(line string) bool {
		for _, f := range active {
			if !f(line) {
				return false
			}
		}
		return true
	}
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 1
	case "INFO":
		return 2
	case "WARN", "WARNING":
		return 3
	case "ERROR":
		return 4
	default:
		return 0
	}
}

var jsonLevel = regexp.MustCompile(`"level":\s*"([A-Za-z]+)"`)

func lineLevel(line string) int {
	if m := jsonLevel.FindStringSubmatch(line); m != nil {
		return levelRank(m[1])
	}
	// console lines start with "<timestamp> <LEVEL> "
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	return levelRank(fields[1])
}
