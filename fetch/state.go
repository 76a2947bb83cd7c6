package fetch

// Status is the phase of a Controller
type Status int

const (
	// StatusIdle means nothing has been requested since creation or reset
	StatusIdle Status = iota
	// StatusLoading means a request is in flight
	StatusLoading
	// StatusSucceeded means the last request produced data
	StatusSucceeded
	// StatusFailed means the last request failed; Data may be stale
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Controller
type State[T any] struct {
	Data    T
	HasData bool
	Loading bool
	Err     error
	Status  Status
}

func (s State[T]) withStatus() State[T] {
	switch {
	case s.Loading:
		s.Status = StatusLoading
	case s.Err != nil:
		s.Status = StatusFailed
	case s.HasData:
		s.Status = StatusSucceeded
	default:
		s.Status = StatusIdle
	}
	return s
}
