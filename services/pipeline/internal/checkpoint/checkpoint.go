// Package checkpoint records which pipeline stages have completed, so an
// interrupted run can resume at the first stage that did not.
package checkpoint

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"jobmart/common/cache"
	"jobmart/services/pipeline/internal/errors"
)

type Stage string

const (
	StageLoad      Stage = "load"
	StageClean     Stage = "clean"
	StageAnalytics Stage = "analytics"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageLoad, StageClean, StageAnalytics}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown stage %q", s), nil)
}

// Downstream returns the stages after s.
func Downstream(s Stage) []Stage {
	for i, st := range Stages {
		if st == s {
			return Stages[i+1:]
		}
	}
	return nil
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Record struct {
	RunID      string         `json:"run_id"`
	Stage      Stage          `json:"stage"`
	Status     Status         `json:"status"`
	Tables     map[string]int `json:"tables,omitempty"`
	Error      string         `json:"error,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}

func (r *Record) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

func (r *Record) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func New(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func key(s Stage) string {
	return "checkpoint:" + string(s)
}

// Complete records a finished stage and forgets every downstream stage,
// whose outputs were built from the previous contents.
func (s *Store) Complete(ctx context.Context, rec Record) error {
	rec.Status = StatusCompleted
	if err := s.cache.Set(ctx, key(rec.Stage), &rec, s.ttl); err != nil {
		return errors.Storage(fmt.Sprintf("recording %s checkpoint", rec.Stage), err)
	}
	for _, d := range Downstream(rec.Stage) {
		if err := s.cache.Delete(ctx, key(d)); err != nil {
			return errors.Storage(fmt.Sprintf("invalidating %s checkpoint", d), err)
		}
	}
	return nil
}

// Fail records a stage that stopped with an error.
func (s *Store) Fail(ctx context.Context, rec Record, cause error) error {
	rec.Status = StatusFailed
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := s.cache.Set(ctx, key(rec.Stage), &rec, s.ttl); err != nil {
		return errors.Storage(fmt.Sprintf("recording %s failure", rec.Stage), err)
	}
	return nil
}

// Get returns the stage's record, or nil when none is stored.
func (s *Store) Get(ctx context.Context, stage Stage) (*Record, error) {
	var rec Record
	err := s.cache.Get(ctx, key(stage), &rec)
	if stderrors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage(fmt.Sprintf("reading %s checkpoint", stage), err)
	}
	return &rec, nil
}

// ResumeFrom returns the first stage without a completed record. done is
// true when every stage has completed.
func (s *Store) ResumeFrom(ctx context.Context) (stage Stage, done bool, err error) {
	for _, st := range Stages {
		rec, err := s.Get(ctx, st)
		if err != nil {
			return "", false, err
		}
		if rec == nil || rec.Status != StatusCompleted {
			return st, false, nil
		}
	}
	return "", true, nil
}

// Reset forgets every stage.
func (s *Store) Reset(ctx context.Context) error {
	for _, st := range Stages {
		if err := s.cache.Delete(ctx, key(st)); err != nil {
			return errors.Storage("resetting checkpoints", err)
		}
	}
	return nil
}
