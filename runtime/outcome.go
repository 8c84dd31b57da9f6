package runtime

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/reel/framer"
	"github.com/pithecene-io/reel/ttyrec"
)

// Stage names the part of a run that failed.
type Stage string

// Stages of a run.
const (
	StageConfig  Stage = "config"
	StageParse   Stage = "parse"
	StageDecode  Stage = "decode"
	StageEmulate Stage = "emulate"
	StageDiff    Stage = "diff"
	StagePool    Stage = "pool"
	StageEmit    Stage = "emit"
	StageStore   Stage = "store"
	StageNotify  Stage = "notify"
)

// StageError attributes a run failure to a stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// OutcomeStatus classifies how a run ended.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeSuccess          OutcomeStatus = "success"
	OutcomeConfigError      OutcomeStatus = "config_error"
	OutcomeMalformedCapture OutcomeStatus = "malformed_capture"
	OutcomeTranscodeError   OutcomeStatus = "transcode_error"
	OutcomeOutputError      OutcomeStatus = "output_error"
	OutcomeAdapterError     OutcomeStatus = "adapter_error"
)

// Process exit codes.
const (
	ExitCodeSuccess   = 0 // artifact written (and notification delivered, if any)
	ExitCodeUsage     = 1 // invalid arguments or configuration
	ExitCodeMalformed = 2 // malformed capture record
	ExitCodeOutput    = 3 // diff engine, emit or storage failure
	ExitCodeAdapter   = 4 // completion notification failed; artifact is written
)

// Outcome is the classified result of a run.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}

// ExitCode maps the outcome to a process exit code.
func (o *Outcome) ExitCode() int {
	switch o.Status {
	case OutcomeSuccess:
		return ExitCodeSuccess
	case OutcomeMalformedCapture:
		return ExitCodeMalformed
	case OutcomeTranscodeError, OutcomeOutputError:
		return ExitCodeOutput
	case OutcomeAdapterError:
		return ExitCodeAdapter
	default:
		return ExitCodeUsage
	}
}

// DetermineOutcome classifies err. A nil err is success.
//
// Classification order:
//  1. *ttyrec.RecordError anywhere in the chain: malformed capture
//  2. *framer.DiffEngineError: transcode error
//  3. *StageError by stage
//  4. anything else: config error
func DetermineOutcome(err error) *Outcome {
	if err == nil {
		return &Outcome{Status: OutcomeSuccess, Message: "transcode completed successfully"}
	}

	var recErr *ttyrec.RecordError
	if errors.As(err, &recErr) {
		return &Outcome{Status: OutcomeMalformedCapture, Message: err.Error()}
	}
	var diffErr *framer.DiffEngineError
	if errors.As(err, &diffErr) {
		return &Outcome{Status: OutcomeTranscodeError, Message: err.Error()}
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case StageParse:
			return &Outcome{Status: OutcomeMalformedCapture, Message: err.Error()}
		case StageDecode, StageEmulate, StageDiff, StagePool:
			return &Outcome{Status: OutcomeTranscodeError, Message: err.Error()}
		case StageEmit, StageStore:
			return &Outcome{Status: OutcomeOutputError, Message: err.Error()}
		case StageNotify:
			return &Outcome{Status: OutcomeAdapterError, Message: err.Error()}
		}
	}
	return &Outcome{Status: OutcomeConfigError, Message: err.Error()}
}
