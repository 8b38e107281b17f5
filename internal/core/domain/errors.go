package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter marks malformed configuration. It surfaces at
	// construction time, never mid-run.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrSourceUnavailable marks one source failing or timing out within an
	// iteration. Recovered locally as an empty contribution.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAllSourcesUnavailable marks every source in the active set failing
	// in the same iteration. Fatal for the run.
	ErrAllSourcesUnavailable = errors.New("all sources unavailable")
	// ErrUnmappedQueryType marks a router mapping with no entry for a
	// classified type. Configuration bug, surfaced immediately.
	ErrUnmappedQueryType = errors.New("unmapped query type")
	// ErrTemporary marks transient infrastructure failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
