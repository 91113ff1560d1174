// Package missionlog persists landing-planner activity to SQLite: one row per
// run, plus the state transitions, finalized landing decisions, and published
// setpoints observed during it. NaN setpoint axes are stored as NULL so the
// unconstrained convention survives the round trip.
package missionlog

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/perch-aero/safeland/internal/landing"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the mission-log database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) a mission-log database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mission log: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create mission log schema: %w", err)
	}
	return &Store{db}, nil
}

// BeginRun inserts a new run row and returns its generated ID.
func (s *Store) BeginRun(label string) (string, error) {
	runID := uuid.New().String()
	_, err := s.Exec(
		`INSERT INTO landing_runs (run_id, label, started_unix_nanos) VALUES (?, ?, ?)`,
		runID, label, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// FinishRun records the final controller state and tick count for a run.
func (s *Store) FinishRun(runID string, finalState landing.GPState, ticks int64) error {
	_, err := s.Exec(
		`UPDATE landing_runs SET finished_unix_nanos = ?, final_state = ?, ticks = ? WHERE run_id = ?`,
		time.Now().UnixNano(), string(finalState), ticks, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordTransition stores one state change.
func (s *Store) RecordTransition(runID string, gridSeq int64, from, to landing.GPState) error {
	_, err := s.Exec(
		`INSERT INTO landing_transitions (run_id, grid_seq, from_state, to_state, ts_unix_nanos)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, gridSeq, string(from), string(to), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecordDecision stores one finalized landing verdict together with the score
// spread that produced it.
func (s *Store) RecordDecision(runID string, gridSeq int64, canLand, inverted bool, scores []float32) error {
	minScore, maxScore := scoreRange(scores)
	_, err := s.Exec(
		`INSERT INTO landing_decisions (run_id, grid_seq, can_land, inverted, min_score, max_score, ts_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, gridSeq, boolInt(canLand), boolInt(inverted), minScore, maxScore, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// RecordSetpoint stores one published setpoint.
func (s *Store) RecordSetpoint(runID string, gridSeq int64, state landing.GPState, sp landing.Setpoint) error {
	_, err := s.Exec(
		`INSERT INTO landing_setpoints (run_id, grid_seq, state, pos_x, pos_y, pos_z, vel_x, vel_y, vel_z, yaw, yaw_speed, ts_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, gridSeq, string(state),
		nullable(sp.Position.X), nullable(sp.Position.Y), nullable(sp.Position.Z),
		nullable(sp.Velocity.X), nullable(sp.Velocity.Y), nullable(sp.Velocity.Z),
		nullable(sp.Yaw), nullable(sp.YawSpeed), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record setpoint: %w", err)
	}
	return nil
}

// TransitionRecord is one persisted state change.
type TransitionRecord struct {
	GridSeq   int64
	FromState landing.GPState
	ToState   landing.GPState
}

// GetTransitions returns a run's state changes in insertion order.
func (s *Store) GetTransitions(runID string) ([]TransitionRecord, error) {
	rows, err := s.Query(
		`SELECT grid_seq, from_state, to_state FROM landing_transitions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var from, to string
		if err := rows.Scan(&rec.GridSeq, &from, &to); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.FromState = landing.GPState(from)
		rec.ToState = landing.GPState(to)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DecisionRecord is one persisted landing verdict.
type DecisionRecord struct {
	GridSeq  int64
	CanLand  bool
	Inverted bool
	MinScore float64
	MaxScore float64
}

// GetDecisions returns a run's finalized verdicts in insertion order.
func (s *Store) GetDecisions(runID string) ([]DecisionRecord, error) {
	rows, err := s.Query(
		`SELECT grid_seq, can_land, inverted, min_score, max_score FROM landing_decisions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var canLand, inverted int
		if err := rows.Scan(&rec.GridSeq, &canLand, &inverted, &rec.MinScore, &rec.MaxScore); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.CanLand = canLand != 0
		rec.Inverted = inverted != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountSetpoints returns the number of setpoints stored for a run.
func (s *Store) CountSetpoints(runID string) (int64, error) {
	var n int64
	err := s.QueryRow(`SELECT COUNT(*) FROM landing_setpoints WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count setpoints: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullable maps NaN (unconstrained axis) to NULL.
func nullable(v float32) interface{} {
	if math.IsNaN(float64(v)) {
		return nil
	}
	return float64(v)
}

func scoreRange(scores []float32) (min, max float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	min, max = float64(scores[0]), float64(scores[0])
	for _, s := range scores[1:] {
		if float64(s) < min {
			min = float64(s)
		}
		if float64(s) > max {
			max = float64(s)
		}
	}
	return min, max
}
