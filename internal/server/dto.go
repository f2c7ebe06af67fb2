package server

import (
	"maps"
	"strings"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/station"
)

// configBody is the wire form of a station configuration. Channels is a range list such as
// "0001-0010,0101-0110"; Interval is in seconds.
type configBody struct {
	Channels   string            `json:"channels"`
	Aliases    map[string]string `json:"aliases,omitempty"`
	Interval   int               `json:"interval"`
	StorageDir string            `json:"storage_dir"`
	Model      string            `json:"model"`
	MeterHost  string            `json:"meter_host"`
	MeterPort  int               `json:"meter_port"`
	Enclosure  *enclosureBody    `json:"enclosure,omitempty"`
}

// enclosureBody carries the enclosure fields of a config update. A missing field keeps the
// stored value.
type enclosureBody struct {
	FreezerVolume *float64 `json:"freezer_volume,omitempty"`
	FridgeVolume  *float64 `json:"fridge_volume,omitempty"`
	Fan           *bool    `json:"fan,omitempty"`
	FreezerTemp   *float64 `json:"freezer_temp,omitempty"`
	FridgeTemp    *float64 `json:"fridge_temp,omitempty"`
}

func enclosureToBody(e station.Enclosure) *enclosureBody {
	return &enclosureBody{
		FreezerVolume: &e.FreezerVolume,
		FridgeVolume:  &e.FridgeVolume,
		Fan:           &e.Fan,
		FreezerTemp:   &e.FreezerTemp,
		FridgeTemp:    &e.FridgeTemp,
	}
}

func (b *enclosureBody) apply(e station.Enclosure) station.Enclosure {
	if b == nil {
		return e
	}
	if b.FreezerVolume != nil {
		e.FreezerVolume = *b.FreezerVolume
	}
	if b.FridgeVolume != nil {
		e.FridgeVolume = *b.FridgeVolume
	}
	if b.Fan != nil {
		e.Fan = *b.Fan
	}
	if b.FreezerTemp != nil {
		e.FreezerTemp = *b.FreezerTemp
	}
	if b.FridgeTemp != nil {
		e.FridgeTemp = *b.FridgeTemp
	}
	return e
}

func configToBody(cfg station.Config) configBody {
	return configBody{
		Channels:   strings.Join(cfg.Channels, ","),
		Aliases:    maps.Clone(cfg.Aliases),
		Interval:   int(cfg.Interval / time.Second),
		StorageDir: cfg.StorageDir,
		Model:      cfg.Model,
		MeterHost:  cfg.Meter.Host,
		MeterPort:  cfg.Meter.Port,
		Enclosure:  enclosureToBody(cfg.Enclosure),
	}
}

// apply merges b onto base. Empty strings, zero numbers and missing enclosure fields keep the
// base value.
func (b configBody) apply(base station.Config) (station.Config, error) {
	cfg := base.Clone()

	if strings.TrimSpace(b.Channels) != "" {
		channels, err := station.ParseChannels(b.Channels)
		if err != nil {
			return station.Config{}, err
		}
		cfg.Channels = channels
	}
	if b.Aliases != nil {
		cfg.Aliases = maps.Clone(b.Aliases)
	}
	if b.Interval < 0 {
		return station.Config{}, errors.New().New(station.ErrInvalidInterval).WithData(b.Interval)
	}
	if b.Interval > 0 {
		cfg.Interval = time.Duration(b.Interval) * time.Second
	}
	if b.StorageDir != "" {
		cfg.StorageDir = b.StorageDir
	}
	if b.Model != "" {
		cfg.Model = b.Model
	}
	if b.MeterHost != "" {
		cfg.Meter.Host = b.MeterHost
	}
	if b.MeterPort != 0 {
		cfg.Meter.Port = b.MeterPort
	}
	cfg.Enclosure = b.Enclosure.apply(cfg.Enclosure)
	return cfg, nil
}
