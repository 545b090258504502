package index

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound means no persisted artifact pair exists; a build is
	// required. It is not a ConfigurationError.
	ErrIndexNotFound = errors.New("index artifact not found")
	// ErrDimensionMismatch is wrapped in a ConfigurationError when vectors
	// disagree with the embedder dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrArtifactMismatch is wrapped in a ConfigurationError when the two
	// artifact files do not belong to the same build.
	ErrArtifactMismatch = errors.New("vector and mapping artifacts do not match")
	// ErrNoEmbedder is wrapped in a ConfigurationError when the index has no
	// embedding provider.
	ErrNoEmbedder = errors.New("no embedding provider configured")

	// errVersionSkew marks an ErrArtifactMismatch caused by the two files
	// coming from different builds, as seen while a new pair is written.
	errVersionSkew = errors.New("artifact versions differ")
)

// ConfigurationError reports a fatal setup problem: an unavailable embedding
// model, a dimension mismatch or a corrupt persisted index. It is not
// retried.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("index %s: configuration error: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}
