package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/loader"
	"jobmart/services/pipeline/internal/models"
)

func writeSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rows := map[string]string{
		"companies":  "\n1,Acme,,,,,,,,",
		"postings":   "\n10,,Engineer,,,,,1" + strings.Repeat(",", 23),
		"skills":     "\nIT,Information Technology",
		"job_skills": "\n10,IT",
	}
	for _, schema := range models.RawSchemas {
		path := filepath.Join(dir, filepath.FromSlash(loader.Files[schema.Name]))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		data := strings.Join(models.Header(schema), ",") + rows[schema.Name] + "\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestRunCommand(t *testing.T) {
	dir := writeSources(t)
	if err := execute(t, "run", "--backend", "memory", "--data", dir); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if err := execute(t, "run", "--backend", "memory", "--data", dir, "--resume"); err != nil {
		t.Fatalf("run --resume error = %v", err)
	}
}

func TestStageCommandNeedsUpstream(t *testing.T) {
	err := execute(t, "analytics", "--backend", "memory", "--data", t.TempDir())
	if !errors.Is(err, errors.ErrTypeNotFound) {
		t.Errorf("analytics on an empty store error = %v, want NOT_FOUND", err)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want errors.ErrorType
	}{
		{"unknown stage", []string{"run", "--backend", "memory", "--from", "publish"}, errors.ErrTypeInvalidInput},
		{"unknown coercion", []string{"load", "--backend", "memory", "--coercion", "loose"}, errors.ErrTypeInvalidInput},
		{"unknown backend", []string{"load", "--backend", "oracle"}, errors.ErrTypeInvalidInput},
		{"from with resume", []string{"run", "--backend", "memory", "--from", "clean", "--resume"}, errors.ErrTypeInvalidInput},
		{"missing sources", []string{"load", "--backend", "memory", "--data", "/nonexistent/jobmart"}, errors.ErrTypeStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestMigrateMemoryIsNoop(t *testing.T) {
	if err := execute(t, "migrate", "--backend", "memory"); err != nil {
		t.Errorf("migrate error = %v", err)
	}
}
