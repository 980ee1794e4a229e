package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoSamples is returned for lines that carry no poll result.
	ErrNoSamples = errors.New("no poll samples in line")
	// ErrMalformedSample is returned when a poll token cannot be parsed.
	ErrMalformedSample = errors.New("malformed poll sample")
)

var pollPattern = regexp.MustCompile(`\[POLL:([^,\]]*),([^\]]*)\]`)

// ParsePollLine extracts every `[POLL:<step>,<distance>]` token from a line.
// Fractional distances are truncated. If any token is malformed, the
// well-formed samples are still returned together with an error wrapping
// ErrMalformedSample.
func ParsePollLine(line string) ([]Sample, error) {
	matches := pollPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil, ErrNoSamples
	}

	samples := make([]Sample, 0, len(matches))
	var errs []error
	for _, m := range matches {
		s, err := parsePollToken(m[1], m[2])
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrMalformedSample, m[0], err))
			continue
		}
		samples = append(samples, s)
	}
	return samples, errors.Join(errs...)
}

func parsePollToken(step, distance string) (Sample, error) {
	angle, err := strconv.Atoi(strings.TrimSpace(step))
	if err != nil {
		return Sample{}, fmt.Errorf("step: %w", err)
	}
	if angle < 0 {
		return Sample{}, fmt.Errorf("step %d is negative", angle)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(distance), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("distance: %w", err)
	}
	if d < 0 {
		return Sample{}, fmt.Errorf("distance %v is negative", d)
	}

	return Sample{AngleDegrees: NormaliseAngle(angle), Distance: int(d)}, nil
}

// FormatPoll renders a sample in the device's serial line format.
func FormatPoll(s Sample) string {
	return fmt.Sprintf("[POLL:%d,%d]", s.AngleDegrees, s.Distance)
}
