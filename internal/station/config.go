package station

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"codeberg.org/mutker/fridgebench/internal/efficiency"
	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/powermeter"
	"codeberg.org/mutker/fridgebench/internal/report"
)

const (
	MaxStations = 6

	DefaultFreezerTemp = -18.0
	DefaultFridgeTemp  = 3.0
)

// DefaultIntervals is the enumerated set of sample intervals.
var DefaultIntervals = []time.Duration{
	10 * time.Second,
	60 * time.Second,
	180 * time.Second,
	300 * time.Second,
}

// defaultChannelRanges is the recorder wiring of the lab, per station.
var defaultChannelRanges = [MaxStations]string{
	"0001-0010,0101-0110",
	"0201-0210,0301-0310",
	"0401-0410,1001-1010",
	"0701-0710,0801-0810",
	"0501-0510,0601-0610",
	"1101-1110,1201-1210",
}

// Enclosure describes the unit under test. A zero FridgeVolume disables the efficiency grade.
type Enclosure struct {
	FreezerVolume float64 `json:"freezer_volume" mapstructure:"freezer_volume"`
	FridgeVolume  float64 `json:"fridge_volume" mapstructure:"fridge_volume"`
	Fan           bool    `json:"fan" mapstructure:"fan"`
	FreezerTemp   float64 `json:"freezer_temp" mapstructure:"freezer_temp"`
	FridgeTemp    float64 `json:"fridge_temp" mapstructure:"fridge_temp"`
}

// Rated reports whether the enclosure carries enough data for an efficiency grade.
func (e Enclosure) Rated() bool {
	return e.FridgeVolume > 0
}

// Config is the configuration of one station.
type Config struct {
	ID         int               `json:"id"`
	Meter      powermeter.Config `json:"meter"`
	Channels   []string          `json:"channels"`
	Aliases    map[string]string `json:"aliases,omitempty"`
	Interval   time.Duration     `json:"interval"`
	StorageDir string            `json:"storage_dir"`
	Model      string            `json:"model"`
	Enclosure  Enclosure         `json:"enclosure"`
}

// DefaultConfig returns the lab default of station id with the meter at base+id.
func DefaultConfig(id int, meterBase string, meterPort int) (Config, error) {
	errFactory := errors.New()

	if id < 1 || id > MaxStations {
		return Config{}, errFactory.New(ErrInvalidStation).WithData(id)
	}
	channels, err := ParseChannels(defaultChannelRanges[id-1])
	if err != nil {
		return Config{}, err
	}
	host, err := powermeter.StationHost(meterBase, id)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ID: id,
		Meter: powermeter.Config{
			Host: host,
			Port: meterPort,
		},
		Channels: channels,
		Interval: DefaultIntervals[0],
		Model:    "NA",
		Enclosure: Enclosure{
			FreezerTemp: DefaultFreezerTemp,
			FridgeTemp:  DefaultFridgeTemp,
		},
	}, nil
}

// Check validates the shape of the configuration. It does not require a storage location or
// enabled channels; Validate does.
func (c Config) Check() error {
	errFactory := errors.New()

	if c.ID < 1 || c.ID > MaxStations {
		return errFactory.New(ErrInvalidStation).WithData(c.ID)
	}
	seen := make(map[string]struct{}, len(c.Channels))
	for _, ch := range c.Channels {
		if !ValidChannel(ch) {
			return errFactory.New(ErrInvalidChannel).WithData(ch)
		}
		if _, dup := seen[ch]; dup {
			return errFactory.New(ErrDuplicate).WithData(ch)
		}
		seen[ch] = struct{}{}
	}
	if c.Interval <= 0 {
		return errFactory.New(ErrInvalidInterval).WithData(c.Interval)
	}
	if err := c.Meter.Validate(); err != nil {
		return err
	}
	if c.Enclosure.FreezerVolume < 0 || c.Enclosure.FridgeVolume < 0 {
		return errFactory.New(efficiency.ErrInvalidVolume).WithData(c.Enclosure)
	}
	return nil
}

// Validate checks everything a collection run needs.
func (c Config) Validate() error {
	errFactory := errors.New()

	if err := c.Check(); err != nil {
		return err
	}
	if c.StorageDir == "" {
		return errFactory.New(ErrNoStorage).WithData(c.ID)
	}
	if len(c.Channels) == 0 {
		return errFactory.New(ErrNoChannels).WithData(c.ID)
	}
	return nil
}

// CheckInterval rejects intervals outside allowed. An empty allowed set accepts any positive interval.
func (c Config) CheckInterval(allowed []time.Duration) error {
	if len(allowed) == 0 || slices.Contains(allowed, c.Interval) {
		return nil
	}
	return errors.New().New(ErrInvalidInterval).WithData(fmt.Sprintf("%s not in %v", c.Interval, allowed))
}

// Label returns the header label of a channel: its alias, or CH<id>.
func (c Config) Label(ch string) string {
	if alias := strings.TrimSpace(c.Aliases[ch]); alias != "" {
		return alias
	}
	return "CH" + ch
}

func (c Config) Labels() []string {
	out := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		out[i] = c.Label(ch)
	}
	return out
}

func (c Config) Columns() []report.Column {
	out := make([]report.Column, len(c.Channels))
	for i, ch := range c.Channels {
		out[i] = report.Column{Channel: ch, Label: c.Label(ch)}
	}
	return out
}

// Clone returns a copy that shares no slices or maps with c.
func (c Config) Clone() Config {
	out := c
	out.Channels = slices.Clone(c.Channels)
	if c.Aliases != nil {
		out.Aliases = make(map[string]string, len(c.Aliases))
		for k, v := range c.Aliases {
			out.Aliases[k] = v
		}
	}
	return out
}
