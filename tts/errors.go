package tts

import (
	"errors"
	"fmt"
)

// Common errors for speech engines.
var (
	ErrEngineClosed         = errors.New("speech engine is closed")
	ErrEngineNotInitialized = errors.New("speech engine is not initialized")
	ErrEmptyText            = errors.New("empty text provided")
	ErrTextTooLong          = errors.New("text exceeds engine limit")
	ErrInvalidRate          = errors.New("rate must be between 0.5 and 2.0")
	ErrInvalidLanguage      = errors.New("invalid language code")
	ErrUnknownEngine        = errors.New("unknown speech engine")
	ErrNotPlaying           = errors.New("no audio is playing")
)

// ErrorCode classifies an utterance failure reported through OnError.
type ErrorCode int

const (
	// CodeSynthesis means the synthesizer could not produce audio.
	CodeSynthesis ErrorCode = iota + 1
	// CodeOutput means the audio device rejected the audio.
	CodeOutput
	// CodeNetwork means a networked synthesizer could not reach its service.
	CodeNetwork
	// CodeInvalidRequest means the text or settings were rejected.
	CodeInvalidRequest
)

// String returns the string representation of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeSynthesis:
		return "synthesis"
	case CodeOutput:
		return "output"
	case CodeNetwork:
		return "network"
	case CodeInvalidRequest:
		return "invalid-request"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// EngineError describes the failure of one utterance.
type EngineError struct {
	Code        ErrorCode
	UtteranceID string
	Err         error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("utterance %s: %s error: %v", e.UtteranceID, e.Code, e.Err)
	}
	return fmt.Sprintf("utterance %s: %s error", e.UtteranceID, e.Code)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NetworkError marks a synthesizer failure as caused by the network, so the
// engine reports CodeNetwork instead of CodeSynthesis.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// codeFor maps a synthesizer error to the code reported to listeners.
func codeFor(err error) ErrorCode {
	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		return CodeNetwork
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrTextTooLong):
		return CodeInvalidRequest
	default:
		return CodeSynthesis
	}
}
