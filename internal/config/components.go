package config

import (
	"time"

	"codeberg.org/mutker/fridgebench/internal/archive"
	"codeberg.org/mutker/fridgebench/internal/efficiency"
	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/mqtt"
	"codeberg.org/mutker/fridgebench/internal/recorder"
	"codeberg.org/mutker/fridgebench/internal/server"
	"codeberg.org/mutker/fridgebench/internal/station"
	"codeberg.org/mutker/fridgebench/internal/telemetry"
)

func (c *Config) RecorderConfig() recorder.Config {
	cfg := recorder.DefaultConfig()
	cfg.Address = c.Recorder.Address
	if c.Recorder.DialTimeout > 0 {
		cfg.DialTimeout = c.Recorder.DialTimeout
	}
	if c.Recorder.Settle > 0 {
		cfg.Settle = c.Recorder.Settle
	}
	if c.Recorder.ReadTimeout > 0 {
		cfg.ReadTimeout = c.Recorder.ReadTimeout
	}
	return cfg
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{Interval: c.Recorder.PollInterval}
}

func (c *Config) ArchiveConfig() archive.Config {
	cfg := archive.DefaultConfig()
	cfg.Enabled = c.Archive.Enabled
	cfg.DBPath = c.Archive.DBPath
	cfg.BatchSize = c.Archive.BatchSize
	cfg.BatchTimeout = c.Archive.BatchTimeout
	cfg.MaxBuffered = c.Archive.MaxBuffered
	return cfg
}

func (c *Config) MQTTConfig() mqtt.Config {
	return mqtt.Config{
		Enabled:   c.MQTT.Enabled,
		Host:      c.MQTT.Host,
		Port:      c.MQTT.Port,
		Username:  c.MQTT.Username,
		Password:  c.MQTT.Password,
		ClientID:  c.MQTT.ClientID,
		BaseTopic: c.MQTT.BaseTopic,
		QoS:       byte(c.MQTT.QoS),
		Timeout:   c.MQTT.Timeout,
	}
}

func (c *Config) ServerConfig() server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = c.Listen
	cfg.HTTPLog = c.HTTPLog
	return cfg
}

// SampleIntervals returns the allowed sample intervals.
func (c *Config) SampleIntervals() []time.Duration {
	out := make([]time.Duration, len(c.Intervals))
	for i, s := range c.Intervals {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

func (c *Config) Basis() efficiency.PercentBasis {
	if c.PercentBasis == "top" {
		return efficiency.PercentTopTier
	}
	return efficiency.PercentMatchedTier
}

// StationConfigs returns the configuration of every station: the lab default overlaid with
// the matching [[stations]] entry.
func (c *Config) StationConfigs() ([]station.Config, error) {
	errFactory := errors.New()

	overrides := make(map[int]StationConfig, len(c.Stations))
	for _, sc := range c.Stations {
		if sc.ID < 1 || sc.ID > station.MaxStations {
			return nil, errFactory.New(station.ErrInvalidStation).WithData(sc.ID)
		}
		if _, dup := overrides[sc.ID]; dup {
			return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "station defined twice").WithData(sc.ID)
		}
		overrides[sc.ID] = sc
	}

	out := make([]station.Config, 0, station.MaxStations)
	for id := 1; id <= station.MaxStations; id++ {
		cfg, err := station.DefaultConfig(id, c.Meter.BaseHost, c.Meter.Port)
		if err != nil {
			return nil, err
		}
		cfg.Meter.DialTimeout = c.Meter.DialTimeout
		cfg.Meter.IOTimeout = c.Meter.IOTimeout
		cfg.StorageDir = c.StorageDir

		if sc, ok := overrides[id]; ok {
			if cfg, err = sc.apply(cfg); err != nil {
				return nil, err
			}
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (sc StationConfig) apply(cfg station.Config) (station.Config, error) {
	if sc.Channels != "" {
		channels, err := station.ParseChannels(sc.Channels)
		if err != nil {
			return station.Config{}, err
		}
		cfg.Channels = channels
	}
	if len(sc.Aliases) > 0 {
		cfg.Aliases = make(map[string]string, len(sc.Aliases))
		for ch, alias := range sc.Aliases {
			cfg.Aliases[ch] = alias
		}
	}
	if sc.Interval > 0 {
		cfg.Interval = time.Duration(sc.Interval) * time.Second
	}
	if sc.StorageDir != "" {
		cfg.StorageDir = sc.StorageDir
	}
	if sc.Model != "" {
		cfg.Model = sc.Model
	}
	if sc.MeterHost != "" {
		cfg.Meter.Host = sc.MeterHost
	}
	if sc.MeterPort > 0 {
		cfg.Meter.Port = sc.MeterPort
	}

	enc := sc.Enclosure
	cfg.Enclosure.FreezerVolume = enc.FreezerVolume
	cfg.Enclosure.FridgeVolume = enc.FridgeVolume
	cfg.Enclosure.Fan = enc.Fan
	if enc.FreezerTemp != nil {
		cfg.Enclosure.FreezerTemp = *enc.FreezerTemp
	}
	if enc.FridgeTemp != nil {
		cfg.Enclosure.FridgeTemp = *enc.FridgeTemp
	}
	return cfg, nil
}
