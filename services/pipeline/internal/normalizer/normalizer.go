// Package normalizer builds the clean relational model from the raw tables:
// deduplicated dimensions, the job fact, link tables and salary quotes.
package normalizer

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/ident"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/table"
)

type Options struct {
	CoercionPolicy string
	DimensionMerge string
}

type Normalizer struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Normalizer {
	if opts.CoercionPolicy == "" {
		opts.CoercionPolicy = config.CoercionStrict
	}
	if opts.DimensionMerge == "" {
		opts.DimensionMerge = config.MergeFirstNonNull
	}
	return &Normalizer{opts: opts, logger: logger}
}

// build carries the state of one Normalize call.
type build struct {
	n       *Normalizer
	raw     models.RawSet
	coerce  *coercer
	model   *models.CleanModel
	dropped map[string]int

	companyIDs  map[string]bool
	industryIDs map[string]bool
	skillAbrs   map[string]bool
	jobIDs      map[string]bool
}

// Normalize is a pure function of the raw tables. Dimensions are built
// first because every fact and link filters against them.
func (n *Normalizer) Normalize(raw models.RawSet) (*models.CleanModel, error) {
	b := &build{
		n:       n,
		raw:     raw,
		coerce:  newCoercer(n.opts.CoercionPolicy, n.logger),
		model:   &models.CleanModel{},
		dropped: make(map[string]int),
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"companies", b.companies},
		{"industries", b.industries},
		{"skills", b.skills},
		{"jobs", b.jobs},
		{"job_industries", b.jobIndustries},
		{"job_skills", b.jobSkills},
		{"job_benefits", b.jobBenefits},
		{"job_salaries", b.jobSalaries},
		{"company_industries", b.companyIndustries},
		{"company_specialities", b.companySpecialities},
		{"employee_counts", b.employeeCounts},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("build %s: %w", step.name, err)
		}
	}

	b.coerce.summary()
	b.logDropped()
	return b.model, nil
}

func (b *build) drop(reason string) {
	b.dropped[reason]++
}

func (b *build) logDropped() {
	reasons := make([]string, 0, len(b.dropped))
	for r := range b.dropped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		b.n.logger.Info("rows excluded from clean model",
			zap.String("reason", r),
			zap.Int("count", b.dropped[r]))
	}
}

func (b *build) companies() error {
	cols := []string{"name", "description", "company_size", "state", "country", "city", "zip_code", "address", "url"}
	rows := mergeByKey(b.raw.Get(models.RawCompanies), "company_id", ident.Canonical, cols, b.n.opts.DimensionMerge)

	b.companyIDs = make(map[string]bool, len(rows))
	for _, r := range rows {
		size, err := b.coerce.integer(fieldRef{"companies", "company_size", "company_id=" + r.key}, deref(r.values[2]))
		if err != nil {
			return err
		}
		b.model.Companies = append(b.model.Companies, models.Company{
			ID:          r.key,
			Name:        r.values[0],
			Description: r.values[1],
			Size:        size,
			State:       r.values[3],
			Country:     r.values[4],
			City:        r.values[5],
			ZipCode:     r.values[6],
			Address:     r.values[7],
			URL:         r.values[8],
		})
		b.companyIDs[r.key] = true
	}
	return nil
}

func (b *build) industries() error {
	rows := mergeByKey(b.raw.Get(models.RawIndustries), "industry_id", ident.Canonical, []string{"industry_name"}, b.n.opts.DimensionMerge)

	b.industryIDs = make(map[string]bool, len(rows))
	for _, r := range rows {
		b.model.Industries = append(b.model.Industries, models.Industry{ID: r.key, Name: r.values[0]})
		b.industryIDs[r.key] = true
	}
	return nil
}

func (b *build) skills() error {
	rows := mergeByKey(b.raw.Get(models.RawSkills), "skill_abr", trimmedKey, []string{"skill_name"}, b.n.opts.DimensionMerge)

	b.skillAbrs = make(map[string]bool, len(rows))
	for _, r := range rows {
		b.model.Skills = append(b.model.Skills, models.Skill{Abr: r.key, Name: r.values[0]})
		b.skillAbrs[r.key] = true
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func rowRef(cur *table.Cursor) string {
	return fmt.Sprintf("row %d", cur.Int64(models.SourceRowColumn))
}
