package powermeter

import (
	"strconv"
	"strings"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
)

// Command asks for voltage, current, active power and integrated energy.
const Command = ":MEAS? U,I,P,WH\n"

// fieldLabels lists the accepted labels per position. The meter echoes the
// energy field as WP; WH is accepted as an alias.
var fieldLabels = [4][]string{
	{"U"},
	{"I"},
	{"P"},
	{"WP", "WH"},
}

// ParseResponse decodes a reply such as
//
//	U +110.14E+0;I +0.0000E+0;P +000.00E+0;WP +00.0000E+0
func ParseResponse(raw string) (series.Power, error) {
	errFactory := errors.New()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return series.Power{}, errFactory.New(ErrMalformed).WithData("empty response")
	}

	fields := strings.Split(raw, ";")
	if len(fields) != len(fieldLabels) {
		return series.Power{}, errFactory.New(ErrFieldCount).WithData(raw)
	}

	var values [4]float64
	for i, field := range fields {
		parts := strings.Fields(field)
		if len(parts) != 2 {
			return series.Power{}, errFactory.New(ErrMalformed).WithData(field)
		}
		if !labelMatches(i, parts[0]) {
			return series.Power{}, errFactory.New(ErrFieldLabel).WithData(parts[0])
		}
		v, err := parseValue(parts[1])
		if err != nil {
			return series.Power{}, err
		}
		values[i] = v
	}

	return series.Power{
		Voltage: series.Float(values[0]),
		Current: series.Float(values[1]),
		Power:   series.Float(values[2]),
		Energy:  series.Float(values[3]),
	}, nil
}

func labelMatches(pos int, label string) bool {
	for _, l := range fieldLabels[pos] {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// parseValue accepts only a signed mantissa followed by E and an integer exponent.
func parseValue(s string) (float64, error) {
	errFactory := errors.New()

	if len(s) < 4 || (s[0] != '+' && s[0] != '-') {
		return 0, errFactory.New(ErrFieldFormat).WithData(s)
	}
	mantissa, exponent, found := strings.Cut(s[1:], "E")
	if !found || mantissa == "" || exponent == "" {
		return 0, errFactory.New(ErrFieldFormat).WithData(s)
	}
	if _, err := strconv.Atoi(exponent); err != nil {
		return 0, errFactory.Wrap(ErrFieldFormat, err).WithData(s)
	}
	for _, r := range mantissa {
		if (r < '0' || r > '9') && r != '.' {
			return 0, errFactory.New(ErrFieldFormat).WithData(s)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrFieldFormat, err).WithData(s)
	}
	return v, nil
}
