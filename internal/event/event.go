package event

import (
	"time"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// Type identifies the kind of event.
type Type int

const (
	Started Type = iota + 1
	ProgressChanged
	Failed
	Completed
)

var typeNames = [...]string{
	Started:         "Started",
	ProgressChanged: "ProgressChanged",
	Failed:          "Failed",
	Completed:       "Completed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Operation names the kind of transfer a visitor performs, so one
// subscriber can tell apart events from different visitors.
type Operation int

const (
	Unknown Operation = iota
	Buffering
	Downloading
	Uploading
	Zipping
)

var operationNames = [...]string{
	Unknown:     "unknown",
	Buffering:   "buffering",
	Downloading: "downloading",
	Uploading:   "uploading",
	Zipping:     "zipping",
}

func (o Operation) String() string {
	if o >= 0 && int(o) < len(operationNames) {
		return operationNames[o]
	}
	return "unknown"
}

// Event is a single notification from a visitor monitor.
type Event struct {
	Timestamp    time.Time
	Error        error
	Source       fileservice.Descriptor
	Destination  string // ProgressChanged
	RelativeName string // ProgressChanged
	Message      string // Failed
	Transferred  uint64 // bytes of the current item
	Percent      int    // 0..100 for ProgressChanged
	Type         Type
	Operation    Operation
}
