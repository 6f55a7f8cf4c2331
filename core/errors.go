package core

import "errors"

// Sentinel errors forming the module's error taxonomy. Callers classify
// failures with errors.Is; wrap sites add detail via fmt.Errorf and %w.
var (
	// ErrInvalidArgument marks a caller contract violation (bad limit,
	// malformed turn context). Reported immediately, never deferred.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrServiceTimeout marks a narration call that exceeded its deadline.
	// Recovered locally by deterministic fallback, never escalated.
	ErrServiceTimeout = errors.New("narration service timeout")

	// ErrServiceError marks a narration call that failed outright.
	// Recovered locally by deterministic fallback, never escalated.
	ErrServiceError = errors.New("narration service error")

	// ErrConfiguration marks an unusable session setup (missing narrator,
	// empty actor list). Fatal before the first round only.
	ErrConfiguration = errors.New("configuration error")
)

// Recoverable reports whether err is a narration failure the session absorbs
// via fallback rather than surfacing to the host.
func Recoverable(err error) bool {
	return errors.Is(err, ErrServiceTimeout) || errors.Is(err, ErrServiceError)
}
