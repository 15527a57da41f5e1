package memory

import (
	"context"
	"testing"

	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/table"
)

var schema = table.Schema{
	Namespace: "analytics",
	Name:      "job_overview",
	Columns: []table.Column{
		{Name: "job_id", Type: table.String},
		{Name: "skills", Type: table.StringArray},
	},
	Key: []string{"job_id"},
}

func TestReplaceIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	in := table.New(schema)
	in.Append("1", []string{"Go"})
	if err := s.Replace(ctx, in); err != nil {
		t.Fatal(err)
	}

	in.Rows[0][0] = "mutated"
	in.Rows[0][1].([]string)[0] = "mutated"

	got, err := s.Read(ctx, schema)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Rows[0][0] != "1" || got.Rows[0][1].([]string)[0] != "Go" {
		t.Errorf("stored table changed through caller's rows: %v", got.Rows)
	}

	got.Rows[0][0] = "mutated"
	again, _ := s.Read(ctx, schema)
	if again.Rows[0][0] != "1" {
		t.Error("stored table changed through a read copy")
	}
}

func TestReadMissing(t *testing.T) {
	_, err := New().Read(context.Background(), schema)
	if !errors.Is(err, errors.ErrTypeNotFound) {
		t.Errorf("Read() error = %v, want NOT_FOUND", err)
	}
}

func TestNamespacesAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := New()
	other := schema
	other.Namespace = "clean"

	if err := s.Replace(ctx, table.New(other)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read(ctx, schema); !errors.Is(err, errors.ErrTypeNotFound) {
		t.Errorf("Read() across namespaces error = %v", err)
	}
	if names := s.Tables(); len(names) != 1 || names[0] != "clean.job_overview" {
		t.Errorf("Tables() = %v", names)
	}
}
