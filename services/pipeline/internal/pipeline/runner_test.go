package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"reflect"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap/zaptest"

	"jobmart/common/cache"
	"jobmart/common/cache/memory"
	"jobmart/services/pipeline/internal/aggregator"
	"jobmart/services/pipeline/internal/checkpoint"
	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/events"
	"jobmart/services/pipeline/internal/loader"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/normalizer"
	memstore "jobmart/services/pipeline/internal/store/memory"
	"jobmart/services/pipeline/internal/table"
)

// csvFile renders rows keyed by header name; missing columns are empty.
func csvFile(schema table.Schema, rows ...map[string]string) *fstest.MapFile {
	header := models.Header(schema)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for _, r := range rows {
		record := make([]string, len(header))
		for i, h := range header {
			record[i] = r[h]
		}
		_ = w.Write(record)
	}
	w.Flush()
	return &fstest.MapFile{Data: buf.Bytes()}
}

func fixture() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, schema := range models.RawSchemas {
		fsys[loader.Files[schema.Name]] = csvFile(schema)
	}

	fsys[loader.Files[models.RawCompanies.Name]] = csvFile(models.RawCompanies,
		map[string]string{"company_id": "1009", "name": "IBM", "company_size": "7", "state": "NY"},
		map[string]string{"company_id": "1009.0", "description": "Big blue"},
		map[string]string{"company_id": "2000", "name": "Idle Co"},
	)
	fsys[loader.Files[models.RawPostings.Name]] = csvFile(models.RawPostings,
		map[string]string{"job_id": "1", "company_id": "1009.0", "title": "Engineer", "views": "10",
			"med_salary": "50", "pay_period": "HOURLY", "formatted_experience_level": "Entry level"},
		map[string]string{"job_id": "2", "company_id": "1009", "title": "Analyst", "remote_allowed": "1"},
		map[string]string{"job_id": "3", "company_id": "9999", "title": "Orphan"},
	)
	fsys[loader.Files[models.RawSkills.Name]] = csvFile(models.RawSkills,
		map[string]string{"skill_abr": "IT", "skill_name": "Information Technology"},
		map[string]string{"skill_abr": "ENG", "skill_name": "Engineering"},
	)
	fsys[loader.Files[models.RawJobSkills.Name]] = csvFile(models.RawJobSkills,
		map[string]string{"job_id": "1", "skill_abr": "IT"},
		map[string]string{"job_id": "2", "skill_abr": "IT"},
		map[string]string{"job_id": "1", "skill_abr": "ENG"},
		map[string]string{"job_id": "3", "skill_abr": "IT"},
	)
	fsys[loader.Files[models.RawIndustries.Name]] = csvFile(models.RawIndustries,
		map[string]string{"industry_id": "4", "industry_name": "Software"},
	)
	fsys[loader.Files[models.RawJobIndustries.Name]] = csvFile(models.RawJobIndustries,
		map[string]string{"job_id": "1", "industry_id": "4.0"},
	)
	fsys[loader.Files[models.RawSalaries.Name]] = csvFile(models.RawSalaries,
		map[string]string{"salary_id": "10", "job_id": "1", "med_salary": "50", "pay_period": "HOURLY"},
		map[string]string{"salary_id": "11", "job_id": "2", "med_salary": "5000", "min_salary": "4000",
			"max_salary": "6000", "pay_period": "MONTHLY"},
	)
	fsys[loader.Files[models.RawBenefits.Name]] = csvFile(models.RawBenefits,
		map[string]string{"job_id": "1", "inferred": "", "type": "401(K)"},
		map[string]string{"job_id": "1", "inferred": "1", "type": "401(K)"},
	)
	return fsys
}

type recordingPublisher struct {
	events []events.StageCompleted
}

func (p *recordingPublisher) PublishStageCompleted(_ context.Context, e events.StageCompleted) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

type harness struct {
	runner      *Runner
	store       *memstore.Store
	checkpoints *checkpoint.Store
	publisher   *recordingPublisher
}

func newHarness(t *testing.T, fsys fstest.MapFS, coercion string) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	h := &harness{
		store:       memstore.New(),
		checkpoints: checkpoint.New(memory.New(cache.DefaultOptions()), time.Hour),
		publisher:   &recordingPublisher{},
	}
	h.runner = NewRunner(
		loader.New(loader.NewFSSource(fsys), 4, logger),
		normalizer.New(normalizer.Options{CoercionPolicy: coercion}, logger),
		aggregator.New(logger),
		h.store,
		h.checkpoints,
		h.publisher,
		logger,
	)
	n := 0
	h.runner.newRunID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return h
}

func (h *harness) read(t *testing.T, schema table.Schema) *table.Table {
	t.Helper()
	tbl, err := h.store.Read(context.Background(), schema)
	if err != nil {
		t.Fatalf("Read(%s) error = %v", schema.FullName(), err)
	}
	return tbl
}

func (h *harness) snapshot(t *testing.T, schemas ...[]table.Schema) map[string]*table.Table {
	t.Helper()
	out := map[string]*table.Table{}
	for _, group := range schemas {
		for _, s := range group {
			out[s.FullName()] = h.read(t, s)
		}
	}
	return out
}

func TestRunBuildsEveryStage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture(), config.CoercionStrict)

	if err := h.runner.Run(ctx, checkpoint.StageLoad); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	clean, err := models.CleanModelFromTables([]*table.Table{
		h.read(t, models.CompaniesSchema),
		h.read(t, models.JobsSchema),
		h.read(t, models.JobIndustriesSchema),
		h.read(t, models.JobBenefitsSchema),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(clean.Companies) != 2 || clean.Companies[0].ID != "1009" || *clean.Companies[0].Description != "Big blue" {
		t.Errorf("companies = %+v", clean.Companies)
	}
	if len(clean.Jobs) != 2 {
		t.Errorf("jobs = %+v, want the orphan posting dropped", clean.Jobs)
	}
	if len(clean.JobIndustries) != 1 || clean.JobIndustries[0].IndustryID != "4" {
		t.Errorf("job_industries = %+v", clean.JobIndustries)
	}
	if len(clean.JobBenefits) != 1 || clean.JobBenefits[0].Inferred == nil || !*clean.JobBenefits[0].Inferred {
		t.Errorf("job_benefits = %+v", clean.JobBenefits)
	}

	demand := h.read(t, models.SkillDemandSchema)
	if len(demand.Rows) != 2 || demand.Rows[0][0] != "IT" || demand.Rows[0][2] != int64(2) {
		t.Errorf("skill_demand = %v", demand.Rows)
	}

	activity := h.read(t, models.CompanyActivitySchema)
	var total int64
	for _, row := range activity.Rows {
		total += row[2].(int64)
	}
	if len(activity.Rows) != 2 || total != 2 || activity.Rows[1][0] != "2000" || activity.Rows[1][2] != int64(0) {
		t.Errorf("company_activity = %v", activity.Rows)
	}

	salaries := h.read(t, models.SalaryNormalizedSchema)
	annual := map[string]float64{}
	for _, row := range salaries.Rows {
		annual[row[0].(string)] = *row[9].(*float64)
	}
	if annual["10"] != 104000 || annual["11"] != 60000 {
		t.Errorf("annual salaries = %v", annual)
	}

	if len(h.publisher.events) != 3 {
		t.Fatalf("published %d events, want 3", len(h.publisher.events))
	}
	for i, stage := range checkpoint.Stages {
		e := h.publisher.events[i]
		if e.Stage != string(stage) || e.RunID != "run-1" {
			t.Errorf("event %d = %+v", i, e)
		}
	}
	if got := h.publisher.events[1].Tables["jobs"]; got != 2 {
		t.Errorf("clean event jobs count = %d, want 2", got)
	}
}

func TestRebuildIsIdentical(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture(), config.CoercionStrict)

	if err := h.runner.Run(ctx, checkpoint.StageLoad); err != nil {
		t.Fatal(err)
	}
	first := h.snapshot(t, models.RawSchemas, models.CleanSchemas, models.AnalyticsSchemas)

	if err := h.runner.Run(ctx, checkpoint.StageLoad); err != nil {
		t.Fatal(err)
	}
	second := h.snapshot(t, models.RawSchemas, models.CleanSchemas, models.AnalyticsSchemas)

	if !reflect.DeepEqual(first, second) {
		t.Error("second run produced different tables")
	}
}

func TestStagesRunIndependently(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, fixture(), config.CoercionStrict)

	err := h.runner.Clean(ctx)
	if !errors.Is(err, errors.ErrTypeNotFound) {
		t.Fatalf("Clean() before Load error = %v, want NOT_FOUND", err)
	}

	if err := h.runner.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.runner.Clean(ctx); err != nil {
		t.Fatal(err)
	}
	before := h.snapshot(t, models.CleanSchemas)

	if err := h.runner.Analytics(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.runner.Analytics(ctx); err != nil {
		t.Fatal(err)
	}
	if after := h.snapshot(t, models.CleanSchemas); !reflect.DeepEqual(before, after) {
		t.Error("analytics stage changed clean tables")
	}
}

func TestStrictCoercionFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	fsys := fixture()
	h := newHarness(t, fsys, config.CoercionStrict)

	if err := h.runner.Run(ctx, checkpoint.StageLoad); err != nil {
		t.Fatal(err)
	}
	before := h.snapshot(t, models.CleanSchemas, models.AnalyticsSchemas)

	fsys[loader.Files[models.RawPostings.Name]] = csvFile(models.RawPostings,
		map[string]string{"job_id": "1", "company_id": "1009", "views": "lots"},
	)
	err := h.runner.Run(ctx, checkpoint.StageLoad)
	if !errors.Is(err, errors.ErrTypeCoercion) {
		t.Fatalf("Run() error = %v, want COERCION", err)
	}

	if after := h.snapshot(t, models.CleanSchemas, models.AnalyticsSchemas); !reflect.DeepEqual(before, after) {
		t.Error("failed clean stage changed stored tables")
	}
	rec, _ := h.checkpoints.Get(ctx, checkpoint.StageClean)
	if rec == nil || rec.Status != checkpoint.StatusFailed {
		t.Errorf("clean checkpoint = %+v, want failed", rec)
	}
	if rec, _ := h.checkpoints.Get(ctx, checkpoint.StageAnalytics); rec != nil {
		t.Errorf("analytics checkpoint = %+v, want none after upstream reload", rec)
	}
}

func TestLenientCoercionNullsValues(t *testing.T) {
	fsys := fixture()
	fsys[loader.Files[models.RawPostings.Name]] = csvFile(models.RawPostings,
		map[string]string{"job_id": "1", "company_id": "1009", "views": "lots", "med_salary": "-5"},
	)
	h := newHarness(t, fsys, config.CoercionLenient)

	if err := h.runner.Run(context.Background(), checkpoint.StageLoad); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	jobs, err := models.CleanModelFromTables([]*table.Table{h.read(t, models.JobsSchema)})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.Jobs) != 1 || jobs.Jobs[0].Views != nil || jobs.Jobs[0].MedSalary != nil {
		t.Errorf("jobs = %+v, want views and med_salary nulled", jobs.Jobs)
	}
}

func TestStructuralErrorStopsBeforeWriting(t *testing.T) {
	fsys := fixture()
	fsys[loader.Files[models.RawSkills.Name]] = &fstest.MapFile{Data: []byte("abbr,name\n")}
	h := newHarness(t, fsys, config.CoercionStrict)

	err := h.runner.Run(context.Background(), checkpoint.StageLoad)
	if !errors.Is(err, errors.ErrTypeStructural) {
		t.Fatalf("Run() error = %v, want STRUCTURAL", err)
	}
	if names := h.store.Tables(); len(names) != 0 {
		t.Errorf("tables written despite structural error: %v", names)
	}
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	fsys := fixture()
	h := newHarness(t, fsys, config.CoercionStrict)

	if err := h.runner.Load(ctx); err != nil {
		t.Fatal(err)
	}

	// A reload would now fail, so success proves the load stage was skipped.
	fsys[loader.Files[models.RawSkills.Name]] = &fstest.MapFile{Data: []byte("abbr,name\n")}

	if err := h.runner.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if _, done, _ := h.checkpoints.ResumeFrom(ctx); !done {
		t.Error("stages incomplete after Resume")
	}
	h.read(t, models.JobOverviewSchema)

	published := len(h.publisher.events)
	if err := h.runner.Resume(ctx); err != nil {
		t.Fatalf("second Resume() error = %v", err)
	}
	if len(h.publisher.events) != published {
		t.Error("Resume() reran stages after a complete run")
	}
}
