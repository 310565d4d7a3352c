// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate drives the generation pipeline for one assignment:
// plan, write, augment, debit, assemble, render. It owns the assignment
// state machine (draft, generating, completed, failed) and guarantees the
// quota ledger is debited at most once per run, at the end, never on a
// failed run.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/coursework-engine/internal/assemble"
	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/internal/ledger"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/internal/planner"
	"github.com/pdiddy/coursework-engine/internal/render"
	"github.com/pdiddy/coursework-engine/internal/store"
	"github.com/pdiddy/coursework-engine/internal/writer"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// ErrOwnership marks an operation on an assignment the user does not own.
var ErrOwnership = errors.New("assignment belongs to another user")

// Orchestrator runs the generation pipeline against persisted assignments.
// One orchestrator instance serves all assignments; the store's guarded
// status transition keeps concurrent starts on the same assignment out.
type Orchestrator struct {
	store    *store.Store
	ledger   *ledger.Ledger
	client   completion.Client
	renderer render.Renderer
	notifier Notifier
	log      *logging.Logger
}

// New wires an orchestrator. A nil notifier defaults to logging events and
// a nil logger to a no-op one.
func New(st *store.Store, led *ledger.Ledger, client completion.Client, renderer render.Renderer, notifier Notifier, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Orchestrator{
		store:    st,
		ledger:   led,
		client:   client,
		renderer: renderer,
		notifier: notifier,
		log:      log,
	}
}

// StartGeneration claims a draft assignment and launches its generation run
// as a detached background task. The caller gets the task handle back
// immediately; starting an assignment that is already generating or in a
// terminal state fails with store.ErrConflict. A non-empty userID must
// match the assignment's owner.
//
// The run deliberately does not inherit ctx: the triggering caller may be a
// short-lived request, and the run outlives it.
func (o *Orchestrator) StartGeneration(ctx context.Context, assignmentID, userID string) (*Task, error) {
	asg, err := o.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && asg.UserID != userID {
		return nil, ErrOwnership
	}

	if err := o.store.BeginGeneration(ctx, assignmentID, time.Now().UTC()); err != nil {
		return nil, err
	}
	o.notifier.GenerationStarted(assignmentID, asg.UserID)

	task := startTask(assignmentID, func() error {
		return o.run(context.Background(), assignmentID, asg.UserID)
	})
	return task, nil
}

// run executes one claimed generation run end to end. Any error before the
// completed transition moves the assignment to failed with the message
// captured; the ledger is never debited as part of failure handling.
func (o *Orchestrator) run(ctx context.Context, assignmentID, userID string) (err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
		if err != nil {
			o.fail(ctx, assignmentID, err)
		}
	}()

	snapshot, err := o.store.GetSnapshot(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	plan, err := planner.Plan(ctx, o.client, snapshot, o.log)
	if err != nil {
		return fmt.Errorf("planning outline: %w", err)
	}
	if err := o.store.SavePlan(ctx, assignmentID, plan); err != nil {
		return fmt.Errorf("persisting plan: %w", err)
	}

	blocks, err := writer.New(o.client, o.store, o.log).Run(ctx, assignmentID, snapshot, plan)
	if err != nil {
		return err
	}

	total := plan.TokensUsed
	for _, block := range blocks {
		total += block.TokensUsed
	}

	balance, err := o.ledger.Debit(ctx, userID, int64(total), "generation "+assignmentID)
	if err != nil {
		return fmt.Errorf("debiting %d tokens: %w", total, err)
	}
	o.log.Info("ledger debited", "assignment", assignmentID, "tokens", total, "balance", balance)

	doc, err := assemble.Assemble(snapshot.UnitTitle, blocks)
	if err != nil {
		return fmt.Errorf("assembling document: %w", err)
	}
	artifactPath, err := o.renderer.Render(doc, assignmentID)
	if err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}

	finished := time.Now()
	if err := o.store.MarkCompleted(ctx, assignmentID, total, plan.TokensUsed, len(blocks), finished.UTC()); err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}

	o.notifier.GenerationCompleted(assignmentID, total, finished.Sub(started), artifactPath)
	return nil
}

// fail records a run failure. The failure message is what status reports to
// the user, so it carries the cause, not just "failed".
func (o *Orchestrator) fail(ctx context.Context, assignmentID string, cause error) {
	if err := o.store.MarkFailed(ctx, assignmentID, cause.Error(), time.Now().UTC()); err != nil {
		o.log.Error("recording failure", "assignment", assignmentID, "error", err, "cause", cause)
	}
	o.notifier.GenerationFailed(assignmentID, cause.Error())
}

// StatusInfo is a point-in-time view of an assignment's progress.
type StatusInfo struct {
	// Assignment is the persisted assignment record.
	Assignment types.Assignment `json:"assignment" yaml:"assignment"`

	// BlocksDone is the number of persisted blocks right now. During a run
	// it advances as the writer checkpoints.
	BlocksDone int `json:"blocks_done" yaml:"blocks_done"`

	// PlanItems is the planned outline length, zero until a plan exists.
	PlanItems int `json:"plan_items" yaml:"plan_items"`
}

// Status reports an assignment's current state and writing progress.
func (o *Orchestrator) Status(ctx context.Context, assignmentID, userID string) (*StatusInfo, error) {
	asg, err := o.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && asg.UserID != userID {
		return nil, ErrOwnership
	}

	count, err := o.store.CountBlocks(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	info := &StatusInfo{Assignment: *asg, BlocksDone: count}
	plan, err := o.store.GetPlan(ctx, assignmentID)
	switch {
	case err == nil:
		info.PlanItems = len(plan.Items)
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}
	return info, nil
}

// ContentView is the raw generated material for an assignment: the outline
// plan and the persisted blocks, before assembly. Plan is nil when the run
// never got far enough to persist one.
type ContentView struct {
	Plan   *types.GenerationPlan `json:"plan" yaml:"plan"`
	Blocks []types.ContentBlock  `json:"blocks" yaml:"blocks"`
}

// Content returns the assignment's plan and persisted blocks as written. It
// works on partial progress too: a failed run exposes whatever blocks the
// writer checkpointed before the failure.
func (o *Orchestrator) Content(ctx context.Context, assignmentID, userID string) (*ContentView, error) {
	asg, err := o.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && asg.UserID != userID {
		return nil, ErrOwnership
	}

	view := &ContentView{}
	plan, err := o.store.GetPlan(ctx, assignmentID)
	switch {
	case err == nil:
		view.Plan = plan
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	view.Blocks, err = o.store.ListBlocks(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if view.Plan == nil && len(view.Blocks) == 0 {
		return nil, fmt.Errorf("assignment %s has no generated content", assignmentID)
	}
	return view, nil
}

// Document assembles the assignment's persisted blocks into the final
// document model, the same assembly a completed run hands to the renderer.
func (o *Orchestrator) Document(ctx context.Context, assignmentID, userID string) (*types.Document, error) {
	asg, err := o.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && asg.UserID != userID {
		return nil, ErrOwnership
	}

	blocks, err := o.store.ListBlocks(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("assignment %s has no generated content", assignmentID)
	}

	snapshot, err := o.store.GetSnapshot(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return assemble.Assemble(snapshot.UnitTitle, blocks)
}

// Regenerate is the administrative reset: it returns a terminal assignment
// to draft, discarding its plan, blocks, and recorded totals. Tokens
// already debited for previous runs are not refunded.
func (o *Orchestrator) Regenerate(ctx context.Context, assignmentID string) error {
	if err := o.store.ResetToDraft(ctx, assignmentID); err != nil {
		return err
	}
	o.log.Info("assignment reset to draft", "assignment", assignmentID)
	return nil
}
