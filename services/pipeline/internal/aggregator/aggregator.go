// Package aggregator derives the analytics tables from the clean model.
// Every output is sorted so that equal inputs give identical tables.
package aggregator

import (
	"sort"

	"go.uber.org/zap"

	"jobmart/services/pipeline/internal/models"
)

type Aggregator struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

func (a *Aggregator) Aggregate(m *models.CleanModel) *models.Analytics {
	jobs := make(map[string]*models.Job, len(m.Jobs))
	for i := range m.Jobs {
		jobs[m.Jobs[i].ID] = &m.Jobs[i]
	}

	records := SalaryRecords(m.JobSalaries, jobs)
	out := &models.Analytics{
		SkillDemand:     SkillDemand(m.JobSkills, m.Skills),
		IndustryDemand:  IndustryDemand(m.JobIndustries, m.Industries),
		CompanyActivity: CompanyActivity(m.Companies, m.Jobs),
		SalaryRecords:   records,
		SalaryByTitle: SummarizeSalaries(records, func(r models.SalaryRecord) *string {
			return r.Title
		}),
		SalaryByExperience: SummarizeSalaries(records, func(r models.SalaryRecord) *string {
			if j, ok := jobs[r.JobID]; ok {
				return j.FormattedExperienceLevel
			}
			return nil
		}),
		JobOverview: JobOverview(m),
	}

	a.logger.Info("analytics computed",
		zap.Int("skill_demand", len(out.SkillDemand)),
		zap.Int("industry_demand", len(out.IndustryDemand)),
		zap.Int("company_activity", len(out.CompanyActivity)),
		zap.Int("salary_normalized", len(out.SalaryRecords)),
		zap.Int("salary_by_title", len(out.SalaryByTitle)),
		zap.Int("job_overview", len(out.JobOverview)))
	return out
}

type demand struct {
	key   string
	name  *string
	count int64
}

// countDemand counts link rows per key and looks names up afterwards, so a
// key without a name still reports its count.
func countDemand(keys []string, names map[string]*string) []demand {
	counts := make(map[string]int64)
	for _, k := range keys {
		counts[k]++
	}
	out := make([]demand, 0, len(counts))
	for k, c := range counts {
		out = append(out, demand{key: k, name: names[k], count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func SkillDemand(links []models.JobSkill, skills []models.Skill) []models.SkillDemand {
	names := make(map[string]*string, len(skills))
	for _, s := range skills {
		names[s.Abr] = s.Name
	}
	keys := make([]string, len(links))
	for i, l := range links {
		keys[i] = l.SkillAbr
	}

	var out []models.SkillDemand
	for _, d := range countDemand(keys, names) {
		out = append(out, models.SkillDemand{SkillAbr: d.key, SkillName: d.name, JobCount: d.count})
	}
	return out
}

func IndustryDemand(links []models.JobIndustry, industries []models.Industry) []models.IndustryDemand {
	names := make(map[string]*string, len(industries))
	for _, i := range industries {
		names[i.ID] = i.Name
	}
	keys := make([]string, len(links))
	for i, l := range links {
		keys[i] = l.IndustryID
	}

	var out []models.IndustryDemand
	for _, d := range countDemand(keys, names) {
		out = append(out, models.IndustryDemand{IndustryID: d.key, IndustryName: d.name, JobCount: d.count})
	}
	return out
}

// CompanyActivity counts jobs for every company, including companies with
// no postings at all.
func CompanyActivity(companies []models.Company, jobs []models.Job) []models.CompanyActivity {
	counts := make(map[string]int64, len(companies))
	for _, j := range jobs {
		counts[j.CompanyID]++
	}

	out := make([]models.CompanyActivity, 0, len(companies))
	for _, c := range companies {
		out = append(out, models.CompanyActivity{CompanyID: c.ID, CompanyName: c.Name, JobCount: counts[c.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].JobCount != out[j].JobCount {
			return out[i].JobCount > out[j].JobCount
		}
		return out[i].CompanyID < out[j].CompanyID
	})
	return out
}

// SalaryRecords annualizes every salary quote and attaches the job title.
func SalaryRecords(salaries []models.JobSalary, jobs map[string]*models.Job) []models.SalaryRecord {
	out := make([]models.SalaryRecord, 0, len(salaries))
	for _, s := range salaries {
		r := models.SalaryRecord{
			SalaryID:         s.ID,
			JobID:            s.JobID,
			PayPeriod:        s.PayPeriod,
			Currency:         s.Currency,
			CompensationType: s.CompensationType,
			MinSalary:        s.MinSalary,
			MedSalary:        s.MedSalary,
			MaxSalary:        s.MaxSalary,
			AnnualSalary:     Annualize(s.MedSalary, s.PayPeriod),
			SalaryRange:      Range(s.MinSalary, s.MaxSalary),
		}
		if j, ok := jobs[s.JobID]; ok {
			r.Title = j.Title
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SalaryID < out[j].SalaryID })
	return out
}

type summaryGroup struct {
	label                 *string
	count                 int64
	min, med, max, annual mean
}

// SummarizeSalaries averages the records with a known median per group
// label. Rows are ordered by average annual salary descending, then label
// ascending; nulls sort last in both keys.
func SummarizeSalaries(records []models.SalaryRecord, label func(models.SalaryRecord) *string) []models.SalarySummary {
	groups := make(map[string]*summaryGroup)
	var nullGroup *summaryGroup

	for _, r := range records {
		if r.MedSalary == nil {
			continue
		}
		l := label(r)

		var g *summaryGroup
		if l == nil {
			if nullGroup == nil {
				nullGroup = &summaryGroup{}
			}
			g = nullGroup
		} else {
			g = groups[*l]
			if g == nil {
				g = &summaryGroup{label: l}
				groups[*l] = g
			}
		}

		g.count++
		g.min.add(r.MinSalary)
		g.med.add(r.MedSalary)
		g.max.add(r.MaxSalary)
		g.annual.add(r.AnnualSalary)
	}

	all := make([]*summaryGroup, 0, len(groups)+1)
	for _, g := range groups {
		all = append(all, g)
	}
	if nullGroup != nil {
		all = append(all, nullGroup)
	}

	out := make([]models.SalarySummary, 0, len(all))
	for _, g := range all {
		out = append(out, models.SalarySummary{
			Label:           g.label,
			SalaryCount:     g.count,
			AvgMinSalary:    g.min.value(),
			AvgMedSalary:    g.med.value(),
			AvgMaxSalary:    g.max.value(),
			AvgAnnualSalary: g.annual.value(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareNullableDesc(out[i].AvgAnnualSalary, out[j].AvgAnnualSalary); c != 0 {
			return c < 0
		}
		return lessNullableString(out[i].Label, out[j].Label)
	})
	return out
}

// compareNullableDesc orders larger values first and nulls last.
func compareNullableDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}

func lessNullableString(a, b *string) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// JobOverview denormalizes each job with its company name, sorted skill and
// industry names, and salary figures. Missing associations give empty lists.
func JobOverview(m *models.CleanModel) []models.JobOverview {
	companyNames := make(map[string]*string, len(m.Companies))
	for _, c := range m.Companies {
		companyNames[c.ID] = c.Name
	}
	skillNames := make(map[string]*string, len(m.Skills))
	for _, s := range m.Skills {
		skillNames[s.Abr] = s.Name
	}
	industryNames := make(map[string]*string, len(m.Industries))
	for _, i := range m.Industries {
		industryNames[i.ID] = i.Name
	}

	jobSkills := make(map[string][]string)
	for _, l := range m.JobSkills {
		if n := skillNames[l.SkillAbr]; n != nil {
			jobSkills[l.JobID] = append(jobSkills[l.JobID], *n)
		}
	}
	jobIndustries := make(map[string][]string)
	for _, l := range m.JobIndustries {
		if n := industryNames[l.IndustryID]; n != nil {
			jobIndustries[l.JobID] = append(jobIndustries[l.JobID], *n)
		}
	}

	out := make([]models.JobOverview, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		skills := append([]string{}, jobSkills[j.ID]...)
		sort.Strings(skills)
		industries := append([]string{}, jobIndustries[j.ID]...)
		sort.Strings(industries)

		out = append(out, models.JobOverview{
			JobID:            j.ID,
			Title:            j.Title,
			CompanyID:        j.CompanyID,
			CompanyName:      companyNames[j.CompanyID],
			Location:         j.Location,
			Skills:           skills,
			Industries:       industries,
			MinSalary:        j.MinSalary,
			MedSalary:        j.MedSalary,
			MaxSalary:        j.MaxSalary,
			PayPeriod:        j.PayPeriod,
			Currency:         j.Currency,
			NormalizedSalary: j.NormalizedSalary,
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out
}
