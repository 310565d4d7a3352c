// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AssignmentStatus is the assignment's lifecycle state. Transitions are
// draft -> generating -> completed or failed. Completed and failed are
// terminal; only an explicit regenerate resets an assignment to draft.
type AssignmentStatus string

const (
	StatusDraft      AssignmentStatus = "draft"
	StatusGenerating AssignmentStatus = "generating"
	StatusCompleted  AssignmentStatus = "completed"
	StatusFailed     AssignmentStatus = "failed"
)

// Terminal reports whether the status permits no further transition except
// an explicit regenerate.
func (s AssignmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Assignment is one learner's document-generation job against a captured
// brief snapshot.
type Assignment struct {
	// ID is the assignment's unique identifier (UUID).
	ID string `json:"id" yaml:"id"`

	// UserID identifies the owning learner. Every operation checks it.
	UserID string `json:"user_id" yaml:"user_id"`

	// Status is the lifecycle state.
	Status AssignmentStatus `json:"status" yaml:"status"`

	// TotalTokens is the provider token count for the whole run: planner
	// call plus every block. Zero until the run completes.
	TotalTokens int `json:"total_tokens" yaml:"total_tokens"`

	// PlannerTokens is the token count of the planning call alone.
	PlannerTokens int `json:"planner_tokens" yaml:"planner_tokens"`

	// BlocksGenerated counts persisted content blocks. On a failed run this
	// reflects how far writing got.
	BlocksGenerated int `json:"blocks_generated" yaml:"blocks_generated"`

	// Error holds the failure message for a failed run. Empty otherwise.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// StartedAt is when generation last began. Zero for a draft.
	StartedAt time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`

	// FinishedAt is when generation last reached a terminal state.
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`

	// CreatedAt is when the assignment was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is when any field last changed.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
