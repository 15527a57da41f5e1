// Package loader reads the source CSV export into raw tables.
package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/table"
)

// Files maps each raw table to its path under the data root.
var Files = map[string]string{
	models.RawCompanies.Name:           "companies/companies.csv",
	models.RawCompanyIndustries.Name:   "companies/company_industries.csv",
	models.RawCompanySpecialities.Name: "companies/company_specialities.csv",
	models.RawEmployeeCounts.Name:      "companies/employee_counts.csv",
	models.RawBenefits.Name:            "jobs/benefits.csv",
	models.RawJobIndustries.Name:       "jobs/job_industries.csv",
	models.RawJobSkills.Name:           "jobs/job_skills.csv",
	models.RawSalaries.Name:            "jobs/salaries.csv",
	models.RawIndustries.Name:          "mappings/industries.csv",
	models.RawSkills.Name:              "mappings/skills.csv",
	models.RawPostings.Name:            "postings.csv",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Loader struct {
	source      Source
	concurrency int
	logger      *zap.Logger
}

func New(source Source, concurrency int, logger *zap.Logger) *Loader {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Loader{source: source, concurrency: concurrency, logger: logger}
}

// Load parses every source file. It returns only when all files parsed
// cleanly, so a structural problem in any file leaves nothing half loaded.
func (l *Loader) Load(ctx context.Context) (models.RawSet, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	var mu sync.Mutex
	out := make(models.RawSet, len(models.RawSchemas))

	for _, schema := range models.RawSchemas {
		g.Go(func() error {
			t, err := l.loadFile(gCtx, schema, Files[schema.Name])
			if err != nil {
				return err
			}
			mu.Lock()
			out[schema.Name] = t
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) loadFile(ctx context.Context, schema table.Schema, name string) (*table.Table, error) {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := Parse(rc, schema, name)
	if err != nil {
		return nil, err
	}

	l.logger.Info("parsed source file",
		zap.String("file", name),
		zap.String("table", schema.Name),
		zap.Int("rows", t.Len()))
	return t, nil
}

// Parse reads one CSV file into a raw table. The header must equal the
// table's declared columns exactly and every record must have the same
// width. Values are kept verbatim.
func Parse(r io.Reader, schema table.Schema, name string) (*table.Table, error) {
	want := models.Header(schema)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(want)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Structural(fmt.Sprintf("%s: empty file", name), nil)
	}
	if err != nil {
		return nil, errors.Structural(fmt.Sprintf("%s: reading header", name), err)
	}
	if len(header) > 0 {
		header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	}
	if !slices.Equal(header, want) {
		return nil, errors.Structural(fmt.Sprintf("%s: header %v does not match %v", name, header, want), nil)
	}

	t := table.New(schema)
	var n int64
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Structural(fmt.Sprintf("%s: reading record", name), err)
		}
		n++
		row := make([]any, 0, len(record)+1)
		row = append(row, n)
		for _, v := range record {
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
