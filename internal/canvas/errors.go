package canvas

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyIdea is returned when an idea has no text after trimming.
var ErrEmptyIdea = errors.New("idea text is empty")

// ErrProbeFailed wraps any error from Store.ProbeExists. It is never fatal:
// the resolver treats it as "canvas no longer exists".
var ErrProbeFailed = errors.New("canvas probe failed")

// Tier names one canvas creation strategy.
type Tier string

const (
	TierCached     Tier = "cached"
	TierChannel    Tier = "channel"
	TierStandalone Tier = "standalone"
	TierFile       Tier = "file"
)

// CreationError is the failure of a single creation tier.
type CreationError struct {
	Tier Tier
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s canvas: %v", e.Tier, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// ResolutionError is returned by Resolve when every tier failed.
// It unwraps to the first tier's error; later tiers are kept in Attempts
// for logging.
type ResolutionError struct {
	Channel  string
	Attempts []*CreationError
}

func (e *ResolutionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("resolve canvas for %s: no creation tiers configured", e.Channel)
	}
	return fmt.Sprintf("resolve canvas for %s: %v", e.Channel, e.Attempts[0])
}

// Unwrap returns the first tier's failure.
func (e *ResolutionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[0]
}

// Cause returns the original error of the first tier.
func (e *ResolutionError) Cause() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[0].Err
}

// Summary lists every tier failure, for logs.
func (e *ResolutionError) Summary() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return strings.Join(parts, "; ")
}

// AdvisoryKind classifies a non-fatal failure.
type AdvisoryKind string

const (
	// AdvisoryShare: granting the channel access to a standalone canvas failed.
	AdvisoryShare AdvisoryKind = "share"
)

// Advisory is a failure that was logged but did not change the outcome.
type Advisory struct {
	Kind AdvisoryKind
	Err  error
}

func (a Advisory) Error() string {
	return fmt.Sprintf("%s (advisory): %v", a.Kind, a.Err)
}
