package ai

import "context"

// OutcomeKind classifies one backend attempt.
type OutcomeKind int

const (
	// Succeeded means the backend produced a usable payload.
	Succeeded OutcomeKind = iota
	// RecoverableFailure means the next backend should be tried:
	// network error, timeout, quota, malformed content.
	RecoverableFailure
	// FatalFailure means the request itself is bad and every backend
	// would reject it the same way. Stop immediately.
	FatalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case RecoverableFailure:
		return "recoverable"
	case FatalFailure:
		return "fatal"
	}
	return "unknown"
}

// Outcome is the tagged result of invoking one backend. Adapters reduce
// each backend's native error shapes to this, keeping the fallback loop
// backend-agnostic.
type Outcome struct {
	Kind    OutcomeKind
	Payload string
	Reason  error
}

func Success(payload string) Outcome {
	return Outcome{Kind: Succeeded, Payload: payload}
}

func Recoverable(reason error) Outcome {
	return Outcome{Kind: RecoverableFailure, Reason: reason}
}

func Fatal(reason error) Outcome {
	return Outcome{Kind: FatalFailure, Reason: reason}
}

// Request is one model invocation payload, shared by every backend in a
// candidate list.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int

	// WantJSON makes adapters reject replies that do not contain a
	// JSON object, and trim chatter around the object when one exists.
	WantJSON bool
}

// Backend is one interchangeable model endpoint.
type Backend interface {
	ID() string
	Invoke(ctx context.Context, req Request) Outcome
}
