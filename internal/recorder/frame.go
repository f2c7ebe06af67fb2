package recorder

import (
	"math"
	"strconv"
	"strings"
)

const (
	// FrameLength is the exact length of a channel data line.
	FrameLength = 31
	// MaxMagnitude is the largest value the recorder reports as a real measurement.
	// Anything beyond it is the instrument's over-range or burnout marker.
	MaxMagnitude = 999.0
)

// ChannelReading is one decoded channel line. Valid is false for the invalid sentinel.
type ChannelReading struct {
	Channel string  `json:"channel"`
	Value   float64 `json:"value"`
	Valid   bool    `json:"valid"`
	Unit    string  `json:"unit"`
	Status  string  `json:"status"`
}

// Float returns the value, or nil for the invalid sentinel.
func (r ChannelReading) Float() *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// Readings maps channel ids onto their latest reading.
type Readings map[string]ChannelReading

// Decode splits a raw response into lines and decodes every channel data line.
// Lines of any other length are skipped.
func Decode(raw string) Readings {
	out := make(Readings)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if r, ok := DecodeLine(line); ok {
			out[r.Channel] = r
		}
	}
	return out
}

// DecodeLine decodes a single fixed-width line:
//
//	[0] status  [2:6] channel  [10:18] unit  [18] sign  [19:31] mantissa+exponent
func DecodeLine(line string) (ChannelReading, bool) {
	if len(line) != FrameLength {
		return ChannelReading{}, false
	}

	value, valid := ParseScientific(line[18:19] + line[19:31])

	return ChannelReading{
		Channel: line[2:6],
		Value:   value,
		Valid:   valid,
		Unit:    strings.TrimSpace(line[10:18]),
		Status:  line[0:1],
	}, true
}

// ParseScientific parses a signed "<mantissa>E<exponent>" string.
// It returns false for non-numeric input and for magnitudes above MaxMagnitude.
func ParseScientific(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], strings.TrimSpace(s[1:])
	}

	mantissa, exponent, found := strings.Cut(s, "E")
	if !found {
		return 0, false
	}

	base, err := strconv.ParseFloat(sign+mantissa, 64)
	if err != nil || math.IsNaN(base) || math.IsInf(base, 0) {
		return 0, false
	}
	exp, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, false
	}

	value := base * math.Pow10(exp)
	if math.IsNaN(value) || math.Abs(value) > MaxMagnitude {
		return 0, false
	}

	return value, true
}
