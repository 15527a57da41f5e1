package aggregator

import (
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"jobmart/services/pipeline/internal/models"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestAnnualize(t *testing.T) {
	tests := []struct {
		name   string
		median *float64
		period *string
		want   *float64
	}{
		{"hourly", f(50), s("HOURLY"), f(104000)},
		{"monthly", f(5000), s("MONTHLY"), f(60000)},
		{"yearly", f(80000), s("YEARLY"), f(80000)},
		{"weekly taken as annual", f(80000), s("WEEKLY"), f(80000)},
		{"unknown period", f(80000), nil, f(80000)},
		{"lower case hourly", f(10), s(" hourly "), f(20800)},
		{"null median", nil, s("HOURLY"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Annualize(tt.median, tt.period)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Annualize() = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func TestRange(t *testing.T) {
	if got := Range(f(90000), f(120000)); got == nil || *got != 30000 {
		t.Errorf("Range(90000, 120000) = %v, want 30000", deref(got))
	}
	if got := Range(f(90000), nil); got != nil {
		t.Errorf("Range(90000, nil) = %v, want nil", *got)
	}
	if got := Range(nil, f(1)); got != nil {
		t.Errorf("Range(nil, 1) = %v, want nil", *got)
	}
}

func TestSkillDemandCountsLinks(t *testing.T) {
	links := []models.JobSkill{
		{JobID: "1", SkillAbr: "IT"},
		{JobID: "2", SkillAbr: "IT"},
		{JobID: "3", SkillAbr: "IT"},
		{JobID: "1", SkillAbr: "ENG"},
		{JobID: "2", SkillAbr: "ORPHAN"},
	}
	skills := []models.Skill{
		{Abr: "IT", Name: s("Information Technology")},
		{Abr: "ENG", Name: s("Engineering")},
		{Abr: "SALE", Name: s("Sales")},
	}

	got := SkillDemand(links, skills)
	want := []models.SkillDemand{
		{SkillAbr: "IT", SkillName: s("Information Technology"), JobCount: 3},
		{SkillAbr: "ENG", SkillName: s("Engineering"), JobCount: 1},
		{SkillAbr: "ORPHAN", SkillName: nil, JobCount: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SkillDemand() = %+v, want %+v", got, want)
	}
}

func TestIndustryDemandKeepsUnnamedKeys(t *testing.T) {
	got := IndustryDemand(
		[]models.JobIndustry{{JobID: "1", IndustryID: "4"}, {JobID: "2", IndustryID: "7"}, {JobID: "3", IndustryID: "7"}},
		[]models.Industry{{ID: "4", Name: s("Software")}},
	)
	if len(got) != 2 || got[0].IndustryID != "7" || got[0].JobCount != 2 || got[0].IndustryName != nil {
		t.Errorf("IndustryDemand() = %+v", got)
	}
}

func TestCompanyActivityIncludesIdleCompanies(t *testing.T) {
	companies := []models.Company{{ID: "1", Name: s("Busy")}, {ID: "2", Name: s("Idle")}, {ID: "3"}}
	jobs := []models.Job{
		{ID: "a", CompanyID: "1"},
		{ID: "b", CompanyID: "1"},
		{ID: "c", CompanyID: "3"},
	}

	got := CompanyActivity(companies, jobs)

	var sum int64
	counts := map[string]int64{}
	for _, c := range got {
		sum += c.JobCount
		counts[c.CompanyID] = c.JobCount
	}
	if sum != int64(len(jobs)) {
		t.Errorf("sum of job counts = %d, want %d", sum, len(jobs))
	}
	if len(got) != len(companies) {
		t.Fatalf("len = %d, want %d", len(got), len(companies))
	}
	if c, ok := counts["2"]; !ok || c != 0 {
		t.Errorf("idle company count = %d (present %v), want 0", c, ok)
	}
	if got[0].CompanyID != "1" || got[len(got)-1].CompanyID != "2" {
		t.Errorf("order = %+v", got)
	}
}

func TestSummarizeSalariesOrdering(t *testing.T) {
	records := []models.SalaryRecord{
		{SalaryID: "1", Title: s("Nurse"), MedSalary: f(50), AnnualSalary: f(104000), MinSalary: f(40)},
		{SalaryID: "2", Title: s("Analyst"), MedSalary: f(104000), AnnualSalary: f(104000)},
		{SalaryID: "3", Title: s("Engineer"), MedSalary: f(150000), AnnualSalary: f(150000), MaxSalary: f(160000)},
		{SalaryID: "4", Title: s("Engineer"), MedSalary: f(130000), AnnualSalary: f(130000), MaxSalary: f(140000)},
		{SalaryID: "5", Title: nil, MedSalary: f(200000), AnnualSalary: f(200000)},
		{SalaryID: "6", Title: s("Ignored"), MinSalary: f(1)},
	}

	got := SummarizeSalaries(records, func(r models.SalaryRecord) *string { return r.Title })

	var labels []any
	for _, g := range got {
		if g.Label == nil {
			labels = append(labels, nil)
		} else {
			labels = append(labels, *g.Label)
		}
	}
	wantLabels := []any{nil, "Engineer", "Analyst", "Nurse"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Fatalf("labels = %v, want %v", labels, wantLabels)
	}

	eng := got[1]
	if eng.SalaryCount != 2 || *eng.AvgAnnualSalary != 140000 || *eng.AvgMaxSalary != 150000 {
		t.Errorf("Engineer summary = %+v", eng)
	}
	if eng.AvgMinSalary != nil {
		t.Errorf("AvgMinSalary = %v, want nil when no minimum is known", *eng.AvgMinSalary)
	}
	if nurse := got[3]; *nurse.AvgMinSalary != 40 {
		t.Errorf("Nurse AvgMinSalary = %v", *nurse.AvgMinSalary)
	}
}

func TestJobOverview(t *testing.T) {
	m := &models.CleanModel{
		Companies:  []models.Company{{ID: "1", Name: s("Acme")}},
		Skills:     []models.Skill{{Abr: "IT", Name: s("Information Technology")}, {Abr: "ENG", Name: s("Engineering")}},
		Industries: []models.Industry{{ID: "4", Name: s("Software")}},
		Jobs: []models.Job{
			{ID: "2", CompanyID: "1", Title: s("Bare")},
			{ID: "1", CompanyID: "1", Title: s("Engineer"), MedSalary: f(100)},
		},
		JobSkills:     []models.JobSkill{{JobID: "1", SkillAbr: "IT"}, {JobID: "1", SkillAbr: "ENG"}},
		JobIndustries: []models.JobIndustry{{JobID: "1", IndustryID: "4"}},
	}

	got := JobOverview(m)

	if len(got) != 2 || got[0].JobID != "1" {
		t.Fatalf("JobOverview() = %+v", got)
	}
	if want := []string{"Engineering", "Information Technology"}; !reflect.DeepEqual(got[0].Skills, want) {
		t.Errorf("Skills = %v, want %v", got[0].Skills, want)
	}
	if *got[0].CompanyName != "Acme" || *got[0].MedSalary != 100 {
		t.Errorf("overview = %+v", got[0])
	}
	if got[1].Skills == nil || len(got[1].Skills) != 0 || got[1].Industries == nil || len(got[1].Industries) != 0 {
		t.Errorf("job without associations: Skills = %#v, Industries = %#v, want empty non-nil", got[1].Skills, got[1].Industries)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	m := &models.CleanModel{
		Companies: []models.Company{{ID: "1", Name: s("Acme")}, {ID: "2"}},
		Jobs: []models.Job{
			{ID: "1", CompanyID: "1", Title: s("Engineer"), FormattedExperienceLevel: s("Entry level")},
			{ID: "2", CompanyID: "1", Title: s("Engineer")},
		},
		JobSalaries: []models.JobSalary{
			{ID: "s2", JobID: "2", MedSalary: f(5000), PayPeriod: s("MONTHLY")},
			{ID: "s1", JobID: "1", MedSalary: f(50), PayPeriod: s("HOURLY"), MinSalary: f(40), MaxSalary: f(60)},
		},
	}

	agg := New(zaptest.NewLogger(t))
	a := agg.Aggregate(m)
	b := agg.Aggregate(m)
	if !reflect.DeepEqual(a.Tables(), b.Tables()) {
		t.Fatal("Aggregate() is not deterministic")
	}

	if a.SalaryRecords[0].SalaryID != "s1" || *a.SalaryRecords[0].AnnualSalary != 104000 || *a.SalaryRecords[0].SalaryRange != 20 {
		t.Errorf("salary record = %+v", a.SalaryRecords[0])
	}
	if len(a.SalaryByExperience) != 2 || *a.SalaryByExperience[0].Label != "Entry level" {
		t.Errorf("SalaryByExperience = %+v", a.SalaryByExperience)
	}
	for _, tbl := range a.Tables() {
		if err := tbl.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	}
}
