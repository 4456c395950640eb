package grove

import (
	"errors"
	"strings"

	"github.com/reusee/e5"
)

var (
	// ErrNotBuilt is returned when Resolve is called before Build.
	ErrNotBuilt = errors.New("container not built")

	// ErrAlreadyBuilt is returned when Register or Build is called after the
	// container has already been built.
	ErrAlreadyBuilt = errors.New("container already built")

	// ErrAlreadyShutdown is returned by every Shutdown call after the first.
	ErrAlreadyShutdown = errors.New("container already shut down")

	// ErrUnresolvedDependency is returned when no binding satisfies a
	// requested single service.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrCycleDetected is returned when a key is requested again while it is
	// still being resolved. The error message includes the full chain.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrConstructionFailure is returned when a factory produces a value that
	// does not fit the key it was registered for. Errors returned by the
	// factories themselves are passed through unchanged.
	ErrConstructionFailure = errors.New("construction failure")

	// ErrBadDefinition is returned for malformed registrations.
	ErrBadDefinition = errors.New("bad definition")
)

func formatPath(path []Key) string {
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

func unresolvedError(key Key, path []Key) error {
	return we.With(
		e5.Info("no binding for %v", key),
		e5.Info("path: %s", formatPath(path)),
	)(
		ErrUnresolvedDependency,
	)
}

func cycleError(key Key, path []Key) error {
	chain := make([]Key, 0, len(path)+1)
	chain = append(chain, path...)
	chain = append(chain, key)
	return we.With(
		e5.Info("%s", formatPath(chain)),
	)(
		ErrCycleDetected,
	)
}

func badDefinition(format string, args ...any) error {
	return we.With(
		e5.Info(format, args...),
	)(
		ErrBadDefinition,
	)
}
