package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/station"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// BridgeStateTopic carries the retained online/offline availability of the process.
func BridgeStateTopic(base string) string {
	return fmt.Sprintf("%s/bridge/state", base)
}

// SampleTopic carries every sample recorded by a station.
func SampleTopic(base string, stationID int) string {
	return fmt.Sprintf("%s/station%d/sample", base, stationID)
}

type channelValue struct {
	Channel string   `json:"channel"`
	Label   string   `json:"label"`
	Value   *float64 `json:"value"`
}

type samplePayload struct {
	Station  int            `json:"station"`
	RunID    string         `json:"run_id"`
	Model    string         `json:"model,omitempty"`
	Time     time.Time      `json:"time"`
	Channels []channelValue `json:"channels"`
	Power    series.Power   `json:"power"`
}

// SamplePayload encodes rec as the JSON document published on SampleTopic.
func SamplePayload(rec station.Record) ([]byte, error) {
	p := samplePayload{
		Station:  rec.StationID,
		RunID:    rec.RunID,
		Model:    rec.Model,
		Time:     rec.Sample.Time,
		Channels: make([]channelValue, len(rec.Channels)),
		Power:    rec.Sample.Power,
	}
	for i, ch := range rec.Channels {
		cv := channelValue{Channel: ch, Label: "CH" + ch}
		if i < len(rec.Labels) {
			cv.Label = rec.Labels[i]
		}
		if i < len(rec.Sample.Temperatures) {
			cv.Value = rec.Sample.Temperatures[i]
		}
		p.Channels[i] = cv
	}
	return json.Marshal(p)
}
