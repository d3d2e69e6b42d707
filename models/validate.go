package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid marks a record that violates a model invariant.
var ErrInvalid = errors.New("invalid record")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	switch s {
	case StatusLead, StatusProspect, StatusCustomer, StatusInactive:
		return true
	}
	return false
}

// Valid reports whether s is a known pipeline stage.
func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageProspect, StageQualified, StageProposal, StageNegotiation, StageClosed, StageLost:
		return true
	}
	return false
}

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionCall, InteractionMessage, InteractionMeeting, InteractionEmail, InteractionNote:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParseClientStatus parses a case-insensitive status name.
func ParseClientStatus(s string) (ClientStatus, error) {
	v := ClientStatus(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", invalid("unknown client status %q (valid: lead, prospect, customer, inactive)", s)
	}
	return v, nil
}

// ParseStage parses a case-insensitive stage name.
func ParseStage(s string) (Stage, error) {
	v := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", invalid("unknown stage %q (valid: lead, prospect, qualified, proposal, negotiation, closed, lost)", s)
	}
	return v, nil
}

// ParseInteractionType parses a case-insensitive interaction type.
func ParseInteractionType(s string) (InteractionType, error) {
	v := InteractionType(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", invalid("unknown interaction type %q (valid: call, message, meeting, email, note)", s)
	}
	return v, nil
}

// ParsePriority parses a case-insensitive priority.
func ParsePriority(s string) (Priority, error) {
	v := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", invalid("unknown priority %q (valid: low, medium, high)", s)
	}
	return v, nil
}

func validProbability(p *int) error {
	if p != nil && (*p < 0 || *p > 100) {
		return invalid("probability %d outside 0-100", *p)
	}
	return nil
}

// Dates are stored as four-digit-year timestamps.
var (
	MinDate = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	MaxDate = time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC).UnixMilli()
)

func validDate(field string, ms *int64) error {
	if ms != nil && (*ms < MinDate || *ms > MaxDate) {
		return invalid("%s %d outside years 0000-9999", field, *ms)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validDuration(d *int) error {
	if d != nil && *d < 0 {
		return invalid("negative duration %d", *d)
	}
	return nil
}

func (in ClientInput) Validate() error {
	if !in.Status.Valid() {
		return invalid("unknown client status %q", in.Status)
	}
	return nil
}

func (p ClientPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown client status %q", *p.Status)
	}
	return nil
}

func (in OpportunityInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("opportunity title is required")
	}
	if in.ClientID == "" {
		return invalid("opportunity clientId is required")
	}
	if in.Value < 0 {
		return invalid("negative value %d", in.Value)
	}
	if !in.Stage.Valid() {
		return invalid("unknown stage %q", in.Stage)
	}
	return firstErr(validProbability(in.Probability), validDate("expectedCloseDate", in.ExpectedCloseDate))
}

func (p OpportunityPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("opportunity title is required")
	}
	if p.ClientID != nil && *p.ClientID == "" {
		return invalid("opportunity clientId is required")
	}
	if p.Value != nil && *p.Value < 0 {
		return invalid("negative value %d", *p.Value)
	}
	if p.Stage != nil && !p.Stage.Valid() {
		return invalid("unknown stage %q", *p.Stage)
	}
	return firstErr(validProbability(p.Probability), validDate("expectedCloseDate", p.ExpectedCloseDate))
}

func (in InteractionInput) Validate() error {
	if in.ClientID == "" {
		return invalid("interaction clientId is required")
	}
	if !in.Type.Valid() {
		return invalid("unknown interaction type %q", in.Type)
	}
	return firstErr(validDuration(in.Duration), validDate("date", &in.Date), validDate("followUpDate", in.FollowUpDate))
}

func (p InteractionPatch) Validate() error {
	if p.ClientID != nil && *p.ClientID == "" {
		return invalid("interaction clientId is required")
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("unknown interaction type %q", *p.Type)
	}
	return firstErr(validDuration(p.Duration), validDate("date", p.Date), validDate("followUpDate", p.FollowUpDate))
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("task title is required")
	}
	if !in.Priority.Valid() {
		return invalid("unknown priority %q", in.Priority)
	}
	return validDate("dueDate", &in.DueDate)
}

func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("task title is required")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return invalid("unknown priority %q", *p.Priority)
	}
	return validDate("dueDate", p.DueDate)
}
