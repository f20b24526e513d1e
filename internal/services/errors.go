package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks missing or unusable configuration, such as
	// absent credentials. No network call is attempted for these.
	ErrConfiguration = errors.New("configuration error")
	// ErrStorage marks state-store failures. These abort the whole run.
	ErrStorage = errors.New("storage error")
	// ErrTransient marks download/upload/timeout failures worth retrying on
	// a later run. The current candidate is skipped.
	ErrTransient = errors.New("transient failure")
	// ErrRateLimited marks a 429 from the publish target. The run stops and
	// the persisted cooldown keeps future runs away until it expires.
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthentication marks a non-429 login failure. Further publish
	// attempts in the same run short-circuit without retrying.
	ErrAuthentication = errors.New("authentication error")
	// ErrProtocol marks an unexpected response shape from a remote API.
	// Only the current candidate fails.
	ErrProtocol = errors.New("protocol error")
)

// Wrap tags err with the given classification marker and component/operation
// context. The marker should be one of the exported sentinel errors above;
// a nil marker defaults to ErrTransient.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// AbortsRun reports whether the error must end the run instead of merely
// skipping the current candidate.
func AbortsRun(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrRateLimited)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
