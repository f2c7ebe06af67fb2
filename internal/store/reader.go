package store

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
)

// Latest returns the most recent data file of a station in dir.
func Latest(dir string, stationID int) (string, error) {
	errFactory := errors.New()

	matches, err := filepath.Glob(filepath.Join(dir, "*_station"+strconv.Itoa(stationID)+".csv"))
	if err != nil {
		return "", errFactory.Wrap(ErrRead, err)
	}
	if len(matches) == 0 {
		return "", errFactory.New(ErrNoFile).WithData(dir)
	}

	// The timestamp prefix sorts lexically in time order.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ReadSamples reads a data file back. Row times are interpreted in loc.
// Rows that do not parse are skipped; a file without a header is an error.
func ReadSamples(path string, loc *time.Location) (Metadata, []series.Sample, error) {
	errFactory := errors.New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil, errFactory.Wrap(ErrNoFile, err).WithData(path)
		}
		return Metadata{}, nil, errFactory.Wrap(ErrRead, err).WithData(path)
	}
	defer f.Close()

	if loc == nil {
		loc = time.Local
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var (
		meta    Metadata
		samples []series.Sample
		width   = -1
	)

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return meta, samples, errFactory.Wrap(ErrRead, err).WithData(path)
		}
		if len(row) == 0 {
			continue
		}

		switch {
		case strings.HasPrefix(row[0], dateTimePrefix):
			if t, err := time.ParseInLocation(StampLayout, strings.TrimPrefix(row[0], dateTimePrefix), loc); err == nil {
				meta.Started = t
			}
		case strings.HasPrefix(row[0], modelPrefix):
			meta.Model = strings.TrimPrefix(row[0], modelPrefix)
		case row[0] == "Date":
			if width >= 0 {
				continue
			}
			if len(row) < 2+len(PowerColumns) {
				return meta, nil, errFactory.New(ErrNoHeader).WithData(path)
			}
			width = len(row) - 2 - len(PowerColumns)
			meta.Labels = append([]string(nil), row[2:2+width]...)
		default:
			if width < 0 {
				continue
			}
			if s, ok := parseRow(row, width, loc); ok {
				samples = append(samples, s)
			}
		}
	}

	if width < 0 {
		return meta, nil, errFactory.New(ErrNoHeader).WithData(path)
	}
	return meta, samples, nil
}

func parseRow(row []string, width int, loc *time.Location) (series.Sample, bool) {
	if len(row) != 2+width+len(PowerColumns) {
		return series.Sample{}, false
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, row[0]+" "+row[1], loc)
	if err != nil {
		return series.Sample{}, false
	}

	s := series.Sample{
		Time:         t,
		Temperatures: make([]*float64, width),
	}
	for i := 0; i < width; i++ {
		s.Temperatures[i] = parseValue(row[2+i])
	}
	p := row[2+width:]
	s.Power = series.Power{
		Voltage: parseValue(p[0]),
		Current: parseValue(p[1]),
		Power:   parseValue(p[2]),
		Energy:  parseValue(p[3]),
	}
	return s, true
}

func parseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
