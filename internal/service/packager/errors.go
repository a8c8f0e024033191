package packager

import "errors"

// Failure classes. Every error returned by Run is a *StageError whose cause
// wraps at most one of these.
var (
	// ErrManifestIO means the manifest could not be read, parsed, used or written.
	ErrManifestIO = errors.New("manifest i/o error")
	// ErrArchiveIO means a matched file could not be read or the archive could not be written.
	ErrArchiveIO = errors.New("archive i/o error")
	// ErrChecksumIO means the distribution directory could not be listed or a digest could not be written.
	ErrChecksumIO = errors.New("checksum i/o error")

	errOutOfOrder = errors.New("stage out of order")
	errUnsafeName = errors.New("manifest name and version do not form a plain file name")
)

// StageError names the stage a run failed in.
type StageError struct {
	// Stage is the human-readable stage name.
	Stage string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}
