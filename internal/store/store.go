// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists assignments, generation plans, and content blocks
// in a SQLite database. It owns every status transition an assignment can
// make; the generating transition is a guarded update so that exactly one
// run can claim a draft assignment.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

const dbFile = "coursework.db"

var (
	// ErrNotFound marks a lookup for an assignment that does not exist.
	ErrNotFound = errors.New("assignment not found")

	// ErrConflict marks a status transition the assignment's current state
	// does not permit.
	ErrConflict = errors.New("assignment status conflict")
)

// Store manages the assignment SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates the assignment database at stateDir/coursework.db,
// creating the schema if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = "state"
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			planner_tokens INTEGER NOT NULL DEFAULT 0,
			blocks_generated INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL DEFAULT '',
			finished_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id)`,
		`CREATE TABLE IF NOT EXISTS plans (
			assignment_id TEXT PRIMARY KEY REFERENCES assignments(id),
			plan TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blocks (
			assignment_id TEXT NOT NULL REFERENCES assignments(id),
			block_order INTEGER NOT NULL,
			item TEXT NOT NULL,
			content TEXT NOT NULL,
			table_data TEXT,
			image TEXT,
			refs TEXT,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (assignment_id, block_order)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateAssignment records a new draft assignment owned by userID, capturing
// the brief snapshot it will generate against. The snapshot is immutable
// from here on; later brief edits do not affect this assignment.
func (s *Store) CreateAssignment(ctx context.Context, userID string, snapshot *types.BriefSnapshot) (*types.Assignment, error) {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	now := time.Now().UTC()
	asg := &types.Assignment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    types.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assignments (id, user_id, status, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		asg.ID, asg.UserID, string(asg.Status), string(snapshotJSON),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting assignment: %w", err)
	}
	return asg, nil
}

// GetAssignment looks up one assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id string) (*types.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, total_tokens, planner_tokens, blocks_generated,
		        error, started_at, finished_at, created_at, updated_at
		 FROM assignments WHERE id = ?`, id)
	return scanAssignment(row)
}

// ListAssignments returns assignments newest first. An empty userID lists
// every user's assignments.
func (s *Store) ListAssignments(ctx context.Context, userID string) ([]types.Assignment, error) {
	query := `SELECT id, user_id, status, total_tokens, planner_tokens, blocks_generated,
	                 error, started_at, finished_at, created_at, updated_at
	          FROM assignments`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []types.Assignment
	for rows.Next() {
		asg, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *asg)
	}
	return out, rows.Err()
}

// GetSnapshot returns the brief snapshot captured when the assignment was
// created.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*types.BriefSnapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM assignments WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot types.BriefSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}

// BeginGeneration moves a draft assignment to generating. The update is
// guarded on the current status, so a second caller targeting the same
// assignment loses the race and gets ErrConflict.
func (s *Store) BeginGeneration(ctx context.Context, id string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments
		 SET status = ?, error = '', started_at = ?, finished_at = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(types.StatusGenerating), formatTime(startedAt), formatTime(time.Now().UTC()),
		id, string(types.StatusDraft),
	)
	if err != nil {
		return fmt.Errorf("claiming assignment: %w", err)
	}
	return s.transitionOutcome(ctx, res, id)
}

// MarkCompleted records a successful run's totals and moves the assignment
// to its terminal completed state.
func (s *Store) MarkCompleted(ctx context.Context, id string, totalTokens, plannerTokens, blocksGenerated int, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments
		 SET status = ?, total_tokens = ?, planner_tokens = ?, blocks_generated = ?,
		     finished_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(types.StatusCompleted), totalTokens, plannerTokens, blocksGenerated,
		formatTime(finishedAt), formatTime(time.Now().UTC()),
		id, string(types.StatusGenerating),
	)
	if err != nil {
		return fmt.Errorf("completing assignment: %w", err)
	}
	return s.transitionOutcome(ctx, res, id)
}

// MarkFailed captures the failure message and moves the assignment to its
// terminal failed state. Blocks persisted before the failure stay, and the
// recorded block count reflects how far writing got.
func (s *Store) MarkFailed(ctx context.Context, id string, message string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments
		 SET status = ?, error = ?,
		     blocks_generated = (SELECT COUNT(*) FROM blocks WHERE assignment_id = assignments.id),
		     finished_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(types.StatusFailed), message,
		formatTime(finishedAt), formatTime(time.Now().UTC()),
		id, string(types.StatusGenerating),
	)
	if err != nil {
		return fmt.Errorf("failing assignment: %w", err)
	}
	return s.transitionOutcome(ctx, res, id)
}

// ResetToDraft is the administrative regenerate action: it clears the plan,
// the blocks, and the recorded totals, returning a terminal assignment to
// draft. An in-flight assignment cannot be reset.
func (s *Store) ResetToDraft(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM assignments WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	if types.AssignmentStatus(status) == types.StatusGenerating {
		return fmt.Errorf("%w: cannot reset while generating", ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE assignment_id = ?`, id); err != nil {
		return fmt.Errorf("clearing blocks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE assignment_id = ?`, id); err != nil {
		return fmt.Errorf("clearing plan: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE assignments
		 SET status = ?, total_tokens = 0, planner_tokens = 0, blocks_generated = 0,
		     error = '', started_at = '', finished_at = '', updated_at = ?
		 WHERE id = ?`,
		string(types.StatusDraft), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("resetting assignment: %w", err)
	}

	return tx.Commit()
}

// SavePlan persists the generation plan for an assignment. A plan saved
// after a regenerate replaces the cleared one.
func (s *Store) SavePlan(ctx context.Context, id string, plan *types.GenerationPlan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (assignment_id, plan, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(assignment_id) DO UPDATE SET plan=excluded.plan, created_at=excluded.created_at`,
		id, string(planJSON), formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// GetPlan returns the persisted plan, or ErrNotFound if none was saved.
func (s *Store) GetPlan(ctx context.Context, id string) (*types.GenerationPlan, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan FROM plans WHERE assignment_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	var plan types.GenerationPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &plan, nil
}

// AppendBlock persists one content block as the writer's checkpoint. The
// block's order must be the next unused position for its assignment;
// anything else indicates interleaved writers and is rejected.
func (s *Store) AppendBlock(ctx context.Context, block *types.ContentBlock) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(block_order) + 1, 0) FROM blocks WHERE assignment_id = ?`,
		block.AssignmentID).Scan(&next)
	if err != nil {
		return fmt.Errorf("reading block count: %w", err)
	}
	if block.BlockOrder != next {
		return fmt.Errorf("block order %d out of sequence, expected %d", block.BlockOrder, next)
	}

	itemJSON, err := json.Marshal(block.Item)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	tableJSON, err := marshalOptional(block.Table != nil, block.Table)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	imageJSON, err := marshalOptional(block.Image != nil, block.Image)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	refsJSON, err := marshalOptional(len(block.References) > 0, block.References)
	if err != nil {
		return fmt.Errorf("encoding references: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blocks (assignment_id, block_order, item, content, table_data, image, refs, tokens_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block.AssignmentID, block.BlockOrder, string(itemJSON), block.Content,
		tableJSON, imageJSON, refsJSON, block.TokensUsed, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("inserting block %d: %w", block.BlockOrder, err)
	}

	return tx.Commit()
}

// ListBlocks returns an assignment's blocks in persisted order.
func (s *Store) ListBlocks(ctx context.Context, id string) ([]types.ContentBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT assignment_id, block_order, item, content, table_data, image, refs, tokens_used
		 FROM blocks WHERE assignment_id = ? ORDER BY block_order`, id)
	if err != nil {
		return nil, fmt.Errorf("listing blocks: %w", err)
	}
	defer rows.Close()

	var blocks []types.ContentBlock
	for rows.Next() {
		var (
			block                          types.ContentBlock
			itemJSON                       string
			tableJSON, imageJSON, refsJSON sql.NullString
		)
		if err := rows.Scan(&block.AssignmentID, &block.BlockOrder, &itemJSON, &block.Content,
			&tableJSON, &imageJSON, &refsJSON, &block.TokensUsed); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		if err := json.Unmarshal([]byte(itemJSON), &block.Item); err != nil {
			return nil, fmt.Errorf("decoding item: %w", err)
		}
		if tableJSON.Valid {
			block.Table = &types.TableData{}
			if err := json.Unmarshal([]byte(tableJSON.String), block.Table); err != nil {
				return nil, fmt.Errorf("decoding table: %w", err)
			}
		}
		if imageJSON.Valid {
			block.Image = &types.ImagePlaceholder{}
			if err := json.Unmarshal([]byte(imageJSON.String), block.Image); err != nil {
				return nil, fmt.Errorf("decoding image: %w", err)
			}
		}
		if refsJSON.Valid {
			if err := json.Unmarshal([]byte(refsJSON.String), &block.References); err != nil {
				return nil, fmt.Errorf("decoding references: %w", err)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// CountBlocks returns the number of persisted blocks, which during a run is
// the writer's live progress.
func (s *Store) CountBlocks(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocks WHERE assignment_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting blocks: %w", err)
	}
	return count, nil
}

// transitionOutcome classifies a guarded update that changed no rows:
// either the assignment does not exist, or its status blocked the move.
func (s *Store) transitionOutcome(ctx context.Context, res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking transition: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM assignments WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	return fmt.Errorf("%w: assignment is %s", ErrConflict, status)
}

// scanAssignment reads one assignment row from a row or rows scanner.
func scanAssignment(row interface{ Scan(...any) error }) (*types.Assignment, error) {
	var (
		asg                                         types.Assignment
		status                                      string
		startedAt, finishedAt, createdAt, updatedAt string
	)
	err := row.Scan(&asg.ID, &asg.UserID, &status, &asg.TotalTokens, &asg.PlannerTokens,
		&asg.BlocksGenerated, &asg.Error, &startedAt, &finishedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning assignment: %w", err)
	}

	asg.Status = types.AssignmentStatus(status)
	if asg.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if asg.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	if asg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if asg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &asg, nil
}

// marshalOptional encodes v when present, or yields NULL.
func marshalOptional(present bool, v any) (any, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
