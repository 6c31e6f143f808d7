package mirror

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

type ActionType uint8

const (
	ActionTypeDownload ActionType = 0
	ActionTypeUpload   ActionType = 1
	ActionTypeDelete   ActionType = 2
)

func (a ActionType) String() string {
	switch a {
	case ActionTypeDownload:
		return "download"
	case ActionTypeUpload:
		return "upload"
	case ActionTypeDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

type Status uint8

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "ok"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is the result of one action on one path. Err carries the reason
// for a skip or the cause of a failure.
type Outcome struct {
	Type   ActionType
	Path   string
	Status Status
	Bytes  int64
	Err    error
}

func succeeded(actionType ActionType, path string, n int64) Outcome {
	return Outcome{Type: actionType, Path: path, Status: StatusSuccess, Bytes: n}
}

func skipped(actionType ActionType, path string, reason error) Outcome {
	return Outcome{Type: actionType, Path: path, Status: StatusSkipped, Err: reason}
}

func failed(actionType ActionType, path string, err error) Outcome {
	return Outcome{Type: actionType, Path: path, Status: StatusFailed, Err: err}
}

type Outcomes []Outcome

func (o Outcomes) Count(status Status) int {
	n := 0
	for _, outcome := range o {
		if outcome.Status == status {
			n++
		}
	}
	return n
}

func (o Outcomes) Bytes() int64 {
	var n int64
	for _, outcome := range o {
		n += outcome.Bytes
	}
	return n
}

func (o Outcomes) Summary() string {
	return fmt.Sprintf("%d ok, %d skipped, %d failed, %s",
		o.Count(StatusSuccess),
		o.Count(StatusSkipped),
		o.Count(StatusFailed),
		humanize.Bytes(uint64(o.Bytes())),
	)
}

// Report collects everything one top-level operation did.
type Report struct {
	Diff     DiffResult
	Download Outcomes
	Upload   Outcomes
	Elapsed  time.Duration
}

func (r *Report) Bytes() int64 {
	return r.Download.Bytes() + r.Upload.Bytes()
}

func (r *Report) MbPerSecond() float64 {
	ms := r.Elapsed.Milliseconds()
	if r.Bytes() == 0 || ms == 0 {
		return 0
	}
	return (float64(r.Bytes()) / float64(ms) * 1000) / 1024.0 / 1024.0
}

func (r *Report) Failed() int {
	return r.Download.Count(StatusFailed) + r.Upload.Count(StatusFailed)
}
