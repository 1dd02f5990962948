// Package models defines the core domain types for archivist.
package models

import (
	"strings"
	"time"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Label returns the wording used when describing the entry to the oracle.
func (k Kind) Label() string {
	if k == KindDirectory {
		return "文件夹"
	}
	return "文件"
}

// Tier is a retention classification.
type Tier string

const (
	TierPermanent Tier = "永久"
	TierLongTerm  Tier = "长期"
	TierShortTerm Tier = "短期"
)

// Tiers lists every retention tier, longest retention first.
var Tiers = []Tier{TierPermanent, TierLongTerm, TierShortTerm}

var tierNames = map[Tier]string{
	TierPermanent: "Permanent",
	TierLongTerm:  "LongTerm",
	TierShortTerm: "ShortTerm",
}

// Name returns the English name of the tier.
func (t Tier) Name() string { return tierNames[t] }

// Valid reports whether t is one of the recognized tiers.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// ParseTier resolves a tier label ("长期") or English name ("LongTerm").
func ParseTier(s string) (Tier, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if s == string(t) || strings.EqualFold(s, t.Name()) {
			return t, true
		}
	}
	return "", false
}

// ReservedNames returns the directory names that hold filed material.
// Entries with these names are never classified.
func ReservedNames() []string {
	names := make([]string, len(Tiers))
	for i, t := range Tiers {
		names[i] = string(t)
	}
	return names
}

// IsReserved reports whether name is a tier directory name.
func IsReserved(name string) bool {
	for _, t := range Tiers {
		if name == string(t) {
			return true
		}
	}
	return false
}

// Decision is a parsed, validated oracle answer.
type Decision struct {
	Tier       Tier   `json:"tier"`
	Department string `json:"department"`
	Raw        string `json:"raw"`
}

// String renders the decision in the oracle's tier-department form.
func (d Decision) String() string {
	return string(d.Tier) + "-" + d.Department
}

// State tracks an entry through the pipeline.
type State string

const (
	StatePending              State = "pending"
	StateClassifying          State = "classifying"
	StateClassified           State = "classified"
	StateClassificationFailed State = "classification_failed"
	StateMoving               State = "moving"
	StateMoved                State = "moved"
	StateMoveFailed           State = "move_failed"
	StateCancelled            State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateMoved, StateClassificationFailed, StateMoveFailed, StateCancelled:
		return true
	}
	return false
}

// Entry is one filesystem object awaiting classification.
type Entry struct {
	Name       string        `json:"name"`
	SourcePath string        `json:"source_path"`
	Kind       Kind          `json:"kind"`
	Decision   *Decision     `json:"decision,omitempty"`
	TargetPath string        `json:"target_path,omitempty"`
	Failure    *Failure      `json:"failure,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	State      State         `json:"state"`
}

// Succeeded reports whether the entry reached its destination.
func (e *Entry) Succeeded() bool {
	return e.State == StateMoved
}

// Fail records f and moves the entry into the matching terminal state.
func (e *Entry) Fail(f *Failure) {
	e.Failure = f
	switch {
	case f.Kind == FailureCancelled:
		e.State = StateCancelled
	case e.State == StateMoving || e.State == StateClassified:
		e.State = StateMoveFailed
	default:
		e.State = StateClassificationFailed
	}
}

// BatchResult is the aggregate outcome of one run over one source folder.
type BatchResult struct {
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
	Entries    []*Entry      `json:"entries"`
	// Failure is set when the batch aborted before touching any entry.
	Failure *Failure `json:"failure,omitempty"`
}

// Tally recomputes the counters from the entry states.
func (r *BatchResult) Tally() {
	r.Total = len(r.Entries)
	r.Succeeded = 0
	r.Failed = 0
	for _, e := range r.Entries {
		if e.Succeeded() {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
}
