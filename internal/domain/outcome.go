package domain

import "fmt"

// Status tags how a pipeline stage finished.
type Status int

const (
	StatusOK Status = iota
	StatusDegraded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome records the status of a stage and, when not OK, why.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

func OK() Outcome { return Outcome{Status: StatusOK} }

func Degraded(reason string, err error) Outcome {
	return Outcome{Status: StatusDegraded, Reason: reason, Err: err}
}

func Failed(reason string, err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Err: err}
}

func (o Outcome) IsOK() bool { return o.Status == StatusOK }

func (o Outcome) String() string {
	if o.Status == StatusOK {
		return "ok"
	}
	if o.Err != nil {
		return fmt.Sprintf("%s(%s: %v)", o.Status, o.Reason, o.Err)
	}
	return fmt.Sprintf("%s(%s)", o.Status, o.Reason)
}
