package models

import "jobmart/services/pipeline/internal/table"

func analyticsSchema(name string, key []string, cols ...table.Column) table.Schema {
	return table.Schema{Namespace: NamespaceAnalytics, Name: name, Columns: cols, Key: key}
}

func salaryMeasureColumns(label string) []table.Column {
	return []table.Column{
		col(label, table.NullableString),
		col("salary_count", table.Int64),
		col("avg_min_salary", table.NullableFloat64),
		col("avg_med_salary", table.NullableFloat64),
		col("avg_max_salary", table.NullableFloat64),
		col("avg_annual_salary", table.NullableFloat64),
	}
}

var (
	SkillDemandSchema = analyticsSchema("skill_demand", []string{"skill_abr"},
		col("skill_abr", table.String),
		col("skill_name", table.NullableString),
		col("job_count", table.Int64),
	)
	IndustryDemandSchema = analyticsSchema("industry_demand", []string{"industry_id"},
		col("industry_id", table.String),
		col("industry_name", table.NullableString),
		col("job_count", table.Int64),
	)
	CompanyActivitySchema = analyticsSchema("company_activity", []string{"company_id"},
		col("company_id", table.String),
		col("company_name", table.NullableString),
		col("job_count", table.Int64),
	)
	SalaryNormalizedSchema = analyticsSchema("salary_normalized", []string{"salary_id"},
		col("salary_id", table.String),
		col("job_id", table.String),
		col("title", table.NullableString),
		col("pay_period", table.NullableString),
		col("currency", table.NullableString),
		col("compensation_type", table.NullableString),
		col("min_salary", table.NullableFloat64),
		col("med_salary", table.NullableFloat64),
		col("max_salary", table.NullableFloat64),
		col("annual_salary", table.NullableFloat64),
		col("salary_range", table.NullableFloat64),
	)
	SalaryByTitleSchema      = analyticsSchema("salary_by_title", nil, salaryMeasureColumns("title")...)
	SalaryByExperienceSchema = analyticsSchema("salary_by_experience", nil, salaryMeasureColumns("experience_level")...)
	JobOverviewSchema        = analyticsSchema("job_overview", []string{"job_id"},
		col("job_id", table.String),
		col("title", table.NullableString),
		col("company_id", table.String),
		col("company_name", table.NullableString),
		col("location", table.NullableString),
		col("skills", table.StringArray),
		col("industries", table.StringArray),
		col("min_salary", table.NullableFloat64),
		col("med_salary", table.NullableFloat64),
		col("max_salary", table.NullableFloat64),
		col("pay_period", table.NullableString),
		col("currency", table.NullableString),
		col("normalized_salary", table.NullableFloat64),
	)
)

// AnalyticsSchemas lists the analytics tables in write order.
var AnalyticsSchemas = []table.Schema{
	SkillDemandSchema,
	IndustryDemandSchema,
	CompanyActivitySchema,
	SalaryNormalizedSchema,
	SalaryByTitleSchema,
	SalaryByExperienceSchema,
	JobOverviewSchema,
}

type SkillDemand struct {
	SkillAbr  string
	SkillName *string
	JobCount  int64
}

type IndustryDemand struct {
	IndustryID   string
	IndustryName *string
	JobCount     int64
}

type CompanyActivity struct {
	CompanyID   string
	CompanyName *string
	JobCount    int64
}

type SalaryRecord struct {
	SalaryID         string
	JobID            string
	Title            *string
	PayPeriod        *string
	Currency         *string
	CompensationType *string
	MinSalary        *float64
	MedSalary        *float64
	MaxSalary        *float64
	AnnualSalary     *float64
	SalaryRange      *float64
}

// SalarySummary holds averaged salary measures for one group label.
type SalarySummary struct {
	Label           *string
	SalaryCount     int64
	AvgMinSalary    *float64
	AvgMedSalary    *float64
	AvgMaxSalary    *float64
	AvgAnnualSalary *float64
}

type JobOverview struct {
	JobID            string
	Title            *string
	CompanyID        string
	CompanyName      *string
	Location         *string
	Skills           []string
	Industries       []string
	MinSalary        *float64
	MedSalary        *float64
	MaxSalary        *float64
	PayPeriod        *string
	Currency         *string
	NormalizedSalary *float64
}

type Analytics struct {
	SkillDemand        []SkillDemand
	IndustryDemand     []IndustryDemand
	CompanyActivity    []CompanyActivity
	SalaryRecords      []SalaryRecord
	SalaryByTitle      []SalarySummary
	SalaryByExperience []SalarySummary
	JobOverview        []JobOverview
}

func summaryTable(schema table.Schema, rows []SalarySummary) *table.Table {
	t := table.New(schema)
	for _, s := range rows {
		t.Append(s.Label, s.SalaryCount, s.AvgMinSalary, s.AvgMedSalary, s.AvgMaxSalary, s.AvgAnnualSalary)
	}
	return t
}

// Tables renders the analytics in AnalyticsSchemas order.
func (a *Analytics) Tables() []*table.Table {
	skills := table.New(SkillDemandSchema)
	for _, d := range a.SkillDemand {
		skills.Append(d.SkillAbr, d.SkillName, d.JobCount)
	}

	industries := table.New(IndustryDemandSchema)
	for _, d := range a.IndustryDemand {
		industries.Append(d.IndustryID, d.IndustryName, d.JobCount)
	}

	companies := table.New(CompanyActivitySchema)
	for _, c := range a.CompanyActivity {
		companies.Append(c.CompanyID, c.CompanyName, c.JobCount)
	}

	salaries := table.New(SalaryNormalizedSchema)
	for _, s := range a.SalaryRecords {
		salaries.Append(s.SalaryID, s.JobID, s.Title, s.PayPeriod, s.Currency, s.CompensationType,
			s.MinSalary, s.MedSalary, s.MaxSalary, s.AnnualSalary, s.SalaryRange)
	}

	overview := table.New(JobOverviewSchema)
	for _, o := range a.JobOverview {
		overview.Append(o.JobID, o.Title, o.CompanyID, o.CompanyName, o.Location, o.Skills, o.Industries,
			o.MinSalary, o.MedSalary, o.MaxSalary, o.PayPeriod, o.Currency, o.NormalizedSalary)
	}

	return []*table.Table{
		skills,
		industries,
		companies,
		salaries,
		summaryTable(SalaryByTitleSchema, a.SalaryByTitle),
		summaryTable(SalaryByExperienceSchema, a.SalaryByExperience),
		overview,
	}
}
