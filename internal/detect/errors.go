package detect

import "errors"

var (
	// ErrSourceUnavailable means the source video could not be opened or a
	// read failed mid-stream. Fatal to the whole run.
	ErrSourceUnavailable = errors.New("source video unavailable")

	// ErrInvalidFrame means a frame pair could not be compared (missing or
	// mismatched pixel data). The offending comparison is skipped.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrJudgeUnavailable means the semantic judge could not be reached
	// (transport or auth failure). Retryable.
	ErrJudgeUnavailable = errors.New("semantic judge unavailable")

	// ErrMalformedVerdict means the judge answered but its verdict could not
	// be parsed into the expected shape.
	ErrMalformedVerdict = errors.New("malformed judge verdict")
)
