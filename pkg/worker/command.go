package worker

import (
	"github.com/google/uuid"

	"github.com/camsync/camsync/pkg/prop"
	"github.com/camsync/camsync/pkg/sink"
)

// Verb names a worker command.
type Verb string

const (
	VerbPrime       Verb = "prime"
	VerbTrigger     Verb = "trigger"
	VerbStop        Verb = "stop"
	VerbRelease     Verb = "release"
	VerbGetProperty Verb = "get_property"
	VerbSetProperty Verb = "set_property"
	VerbState       Verb = "state"
	// VerbDisarm returns a primed device to Stopped without capturing.
	VerbDisarm Verb = "disarm"
)

// Command is one request to a worker. ID correlates it with its Response
// and is assigned by Channel.Do when left zero.
type Command struct {
	ID   uuid.UUID
	Verb Verb
	Args interface{}
}

// Response answers the Command with the same ID.
type Response struct {
	ID  uuid.UUID
	Err error
	// Value holds the property value for get_property and the State for
	// state.
	Value interface{}
	// Timestamps holds the capture times, in milliseconds since the first
	// frame, returned by stop.
	Timestamps []float64
}

// PrimeArgs are the arguments of prime.
type PrimeArgs struct {
	// Path is the recording output. Empty records timestamps only.
	Path string
	// Backend names a registered codec. Empty uses Config.Backend.
	Backend string
	// PrimaryFrameRate is required on a secondary.
	PrimaryFrameRate float64
	// Stream, when set, receives frames instead of a recorder.
	Stream *sink.Slot
}

// PropertyArgs are the arguments of get_property and set_property.
type PropertyArgs struct {
	Name  prop.Name
	Value interface{}
}
