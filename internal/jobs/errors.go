package jobs

import (
	"errors"
	"fmt"
)

// ErrGatewayUnavailable is wrapped by every call on a gateway that was never configured.
var ErrGatewayUnavailable = errors.New("persistence gateway unavailable")

// ErrJobNotFound reports a lookup for an id the gateway does not hold.
var ErrJobNotFound = errors.New("job not found")

// Stage names the agent step a ScrapeFailure happened in.
type Stage string

// Agent stages.
const (
	StageSession  Stage = "session"
	StageNavigate Stage = "navigate"
	StageSettle   Stage = "settle"
	StageScroll   Stage = "scroll"
	StageCapture  Stage = "capture"
	StageParse    Stage = "parse"
)

// ScrapeFailure means an agent could not produce a result at all.
type ScrapeFailure struct {
	Source Source
	Stage  Stage
	Err    error
}

func (e *ScrapeFailure) Error() string {
	return fmt.Sprintf("scrape %s failed at %s: %v", e.Source, e.Stage, e.Err)
}

func (e *ScrapeFailure) Unwrap() error {
	return e.Err
}

// CardParseError describes a single card that could not be extracted.
// Agents recover it locally; it never escapes a run.
type CardParseError struct {
	Source Source
	Index  int
	Err    error
}

func (e *CardParseError) Error() string {
	return fmt.Sprintf("parse %s card %d: %v", e.Source, e.Index, e.Err)
}

func (e *CardParseError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed gateway operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
