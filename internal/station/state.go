package station

// State is the collection state of a station.
type State int

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
