package station

import (
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

// ParseChannels expands a channel list such as "0001-0010,0101-0110,0205" into sorted
// four-digit channel ids. A range must stay inside one two-digit section.
func ParseChannels(spec string) ([]string, error) {
	errFactory := errors.New()

	seen := make(map[string]struct{})
	var channels []string
	add := func(ch string) error {
		if _, dup := seen[ch]; dup {
			return errFactory.New(ErrDuplicate).WithData(ch)
		}
		seen[ch] = struct{}{}
		channels = append(channels, ch)
		return nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		first, last, isRange := strings.Cut(part, "-")
		if !isRange {
			if !ValidChannel(part) {
				return nil, errFactory.New(ErrInvalidChannel).WithData(part)
			}
			if err := add(part); err != nil {
				return nil, err
			}
			continue
		}

		first, last = strings.TrimSpace(first), strings.TrimSpace(last)
		if !ValidChannel(first) || !ValidChannel(last) {
			return nil, errFactory.New(ErrInvalidChannel).WithData(part)
		}
		if first[:2] != last[:2] {
			return nil, errFactory.New(ErrRangeSection).WithData(part)
		}

		lo, _ := strconv.Atoi(first[2:])
		hi, _ := strconv.Atoi(last[2:])
		if lo > hi {
			return nil, errFactory.New(ErrInvalidChannel).WithData(part)
		}
		for n := lo; n <= hi; n++ {
			if err := add(first[:2] + twoDigits(n)); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(channels)
	return channels, nil
}

// ValidChannel reports whether ch is a four-digit channel id.
func ValidChannel(ch string) bool {
	if len(ch) != 4 {
		return false
	}
	for i := 0; i < len(ch); i++ {
		if ch[i] < '0' || ch[i] > '9' {
			return false
		}
	}
	return true
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
