package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewPublisherWithoutURL(t *testing.T) {
	p, err := NewPublisher("", time.Second, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer p.Close()

	if _, ok := p.(noopPublisher); !ok {
		t.Errorf("NewPublisher(\"\") = %T, want noopPublisher", p)
	}
	if err := p.PublishStageCompleted(context.Background(), StageCompleted{Stage: "load"}); err != nil {
		t.Errorf("PublishStageCompleted() error = %v", err)
	}
}

func TestStageCompletedJSON(t *testing.T) {
	e := StageCompleted{
		RunID:      "r1",
		Stage:      "clean",
		Tables:     map[string]int{"jobs": 2},
		DurationMS: 15,
		FinishedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"run_id":"r1","stage":"clean","tables":{"jobs":2},"duration_ms":15,"finished_at":"2024-04-01T12:00:00Z"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
