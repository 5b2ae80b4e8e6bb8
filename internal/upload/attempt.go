package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Veraticus/showroom/internal/model"
)

// ErrInvalidTransition is returned for a move the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid upload transition")

// Phase is where an upload attempt stands.
type Phase int

// Upload phases.
const (
	PhaseIdle Phase = iota
	PhaseFileSelected
	PhaseValidating
	PhaseRejected
	PhaseAccepted
	PhaseUploading
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseFileSelected:
		return "FileSelected"
	case PhaseValidating:
		return "Validating"
	case PhaseRejected:
		return "Rejected"
	case PhaseAccepted:
		return "Accepted"
	case PhaseUploading:
		return "Uploading"
	case PhaseSucceeded:
		return "Succeeded"
	case PhaseFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// Attempt is one upload from file selection to outcome. It is safe for
// concurrent use so a view can read it while an upload runs.
type Attempt struct {
	candidate *model.UploadCandidate
	policy    Policy
	message   string
	phase     Phase
	mu        sync.Mutex
}

// NewAttempt starts an idle attempt governed by policy.
func NewAttempt(policy Policy) *Attempt {
	return &Attempt{policy: policy}
}

// Prepare inspects path and runs it through selection and validation.
// A rejected file returns the attempt together with a *common.ValidationError.
func Prepare(path string, policy Policy) (*Attempt, error) {
	candidate, err := Inspect(path)
	if err != nil {
		return nil, err
	}

	a := NewAttempt(policy)
	if err := a.Select(candidate); err != nil {
		return nil, err
	}
	return a, a.Validate()
}

// Policy returns the attempt's validation policy.
func (a *Attempt) Policy() Policy {
	return a.policy
}

// Phase returns the current phase.
func (a *Attempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Message is the rejection or failure reason, or the success message.
func (a *Attempt) Message() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.message
}

// Candidate returns a copy of the selected file, or nil.
func (a *Attempt) Candidate() *model.UploadCandidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.candidate == nil {
		return nil
	}
	c := *a.candidate
	return &c
}

func (a *Attempt) transition(to Phase, allowed ...Phase) error {
	for _, from := range allowed {
		if a.phase == from {
			a.phase = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.phase, to)
}

// Select picks a file. It is allowed whenever no upload is in flight.
func (a *Attempt) Select(c *model.UploadCandidate) error {
	if c == nil {
		return fmt.Errorf("%w: no file", ErrInvalidTransition)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.transition(PhaseFileSelected,
		PhaseIdle, PhaseFileSelected, PhaseRejected, PhaseSucceeded, PhaseFailed); err != nil {
		return err
	}
	selected := *c
	selected.Validated = false
	selected.ErrorReason = ""
	a.candidate = &selected
	a.message = ""
	return nil
}

// Validate runs the policy over the selected file and lands in Accepted or
// Rejected. The rejection is returned as a *common.ValidationError.
func (a *Attempt) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.transition(PhaseValidating, PhaseFileSelected); err != nil {
		return err
	}

	if err := a.policy.Validate(a.candidate); err != nil {
		a.phase = PhaseRejected
		a.candidate.ErrorReason = err.Error()
		a.message = err.Error()
		return err
	}

	a.phase = PhaseAccepted
	a.candidate.Validated = true
	return nil
}

// BeginUpload marks the accepted file as in flight. A failed attempt may be
// resubmitted by the user.
func (a *Attempt) BeginUpload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.transition(PhaseUploading, PhaseAccepted, PhaseFailed); err != nil {
		return err
	}
	a.message = ""
	return nil
}

// Succeed records a successful upload and discards the candidate.
func (a *Attempt) Succeed(message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.transition(PhaseSucceeded, PhaseUploading); err != nil {
		return err
	}
	a.candidate = nil
	a.message = message
	return nil
}

// Fail records a failed upload. The candidate is kept for resubmission.
func (a *Attempt) Fail(message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.transition(PhaseFailed, PhaseUploading); err != nil {
		return err
	}
	a.message = message
	return nil
}

// Reset returns to Idle from any phase except Uploading.
func (a *Attempt) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == PhaseUploading {
		return fmt.Errorf("%w: cannot reset while uploading", ErrInvalidTransition)
	}
	a.phase = PhaseIdle
	a.candidate = nil
	a.message = ""
	return nil
}
