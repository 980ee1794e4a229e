package serialmux

import "strings"

// Line kinds printed by the rangefinder firmware.
const (
	LineTypePoll    = "poll"
	LineTypeStatus  = "status"
	LineTypeUnknown = "unknown"
)

// ClassifyLine returns a coarse type for a console line so that consumers can
// skip chatter without running the full parser.
func ClassifyLine(line string) string {
	switch {
	case strings.Contains(line, "[POLL:"):
		return LineTypePoll
	case strings.HasPrefix(line, "["), strings.HasPrefix(line, "#"):
		return LineTypeStatus
	default:
		return LineTypeUnknown
	}
}
