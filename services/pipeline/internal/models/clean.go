package models

import (
	"jobmart/services/pipeline/internal/table"
)

func col(name string, t table.ColumnType) table.Column {
	return table.Column{Name: name, Type: t}
}

func cleanSchema(name string, key []string, cols ...table.Column) table.Schema {
	return table.Schema{Namespace: NamespaceClean, Name: name, Columns: cols, Key: key}
}

var (
	CompaniesSchema = cleanSchema("companies", []string{"company_id"},
		col("company_id", table.String),
		col("name", table.NullableString),
		col("description", table.NullableString),
		col("company_size", table.NullableInt64),
		col("state", table.NullableString),
		col("country", table.NullableString),
		col("city", table.NullableString),
		col("zip_code", table.NullableString),
		col("address", table.NullableString),
		col("url", table.NullableString),
	)
	IndustriesSchema = cleanSchema("industries", []string{"industry_id"},
		col("industry_id", table.String),
		col("industry_name", table.NullableString),
	)
	SkillsSchema = cleanSchema("skills", []string{"skill_abr"},
		col("skill_abr", table.String),
		col("skill_name", table.NullableString),
	)
	JobsSchema = cleanSchema("jobs", []string{"job_id"},
		col("job_id", table.String),
		col("company_id", table.String),
		col("title", table.NullableString),
		col("description", table.NullableString),
		col("location", table.NullableString),
		col("formatted_work_type", table.NullableString),
		col("work_type", table.NullableString),
		col("formatted_experience_level", table.NullableString),
		col("views", table.NullableInt64),
		col("applies", table.NullableInt64),
		col("remote_allowed", table.NullableBool),
		col("original_listed_time", table.NullableString),
		col("listed_time", table.NullableString),
		col("expiry", table.NullableString),
		col("closed_time", table.NullableString),
		col("job_posting_url", table.NullableString),
		col("application_url", table.NullableString),
		col("application_type", table.NullableString),
		col("zip_code", table.NullableString),
		col("min_salary", table.NullableFloat64),
		col("med_salary", table.NullableFloat64),
		col("max_salary", table.NullableFloat64),
		col("pay_period", table.NullableString),
		col("currency", table.NullableString),
		col("compensation_type", table.NullableString),
		col("normalized_salary", table.NullableFloat64),
	)
	JobIndustriesSchema = cleanSchema("job_industries", []string{"job_id", "industry_id"},
		col("job_id", table.String),
		col("industry_id", table.String),
	)
	JobSkillsSchema = cleanSchema("job_skills", []string{"job_id", "skill_abr"},
		col("job_id", table.String),
		col("skill_abr", table.String),
	)
	JobBenefitsSchema = cleanSchema("job_benefits", []string{"job_id", "type"},
		col("job_id", table.String),
		col("type", table.String),
		col("inferred", table.NullableBool),
	)
	JobSalariesSchema = cleanSchema("job_salaries", []string{"salary_id"},
		col("salary_id", table.String),
		col("job_id", table.String),
		col("min_salary", table.NullableFloat64),
		col("med_salary", table.NullableFloat64),
		col("max_salary", table.NullableFloat64),
		col("pay_period", table.NullableString),
		col("currency", table.NullableString),
		col("compensation_type", table.NullableString),
	)
	CompanyIndustriesSchema = cleanSchema("company_industries", []string{"company_id", "industry"},
		col("company_id", table.String),
		col("industry", table.String),
	)
	CompanySpecialitiesSchema = cleanSchema("company_specialities", []string{"company_id", "speciality"},
		col("company_id", table.String),
		col("speciality", table.String),
	)
	EmployeeCountsSchema = cleanSchema("employee_counts", []string{"company_id", "time_recorded"},
		col("company_id", table.String),
		col("employee_count", table.NullableInt64),
		col("follower_count", table.NullableInt64),
		col("time_recorded", table.String),
	)
)

// CleanSchemas lists the clean tables in write order.
var CleanSchemas = []table.Schema{
	CompaniesSchema,
	IndustriesSchema,
	SkillsSchema,
	JobsSchema,
	JobIndustriesSchema,
	JobSkillsSchema,
	JobBenefitsSchema,
	JobSalariesSchema,
	CompanyIndustriesSchema,
	CompanySpecialitiesSchema,
	EmployeeCountsSchema,
}

type Company struct {
	ID          string
	Name        *string
	Description *string
	Size        *int64
	State       *string
	Country     *string
	City        *string
	ZipCode     *string
	Address     *string
	URL         *string
}

type Industry struct {
	ID   string
	Name *string
}

type Skill struct {
	Abr  string
	Name *string
}

type Job struct {
	ID                       string
	CompanyID                string
	Title                    *string
	Description              *string
	Location                 *string
	FormattedWorkType        *string
	WorkType                 *string
	FormattedExperienceLevel *string
	Views                    *int64
	Applies                  *int64
	RemoteAllowed            *bool
	OriginalListedTime       *string
	ListedTime               *string
	Expiry                   *string
	ClosedTime               *string
	JobPostingURL            *string
	ApplicationURL           *string
	ApplicationType          *string
	ZipCode                  *string
	MinSalary                *float64
	MedSalary                *float64
	MaxSalary                *float64
	PayPeriod                *string
	Currency                 *string
	CompensationType         *string
	NormalizedSalary         *float64
}

type JobIndustry struct {
	JobID      string
	IndustryID string
}

type JobSkill struct {
	JobID    string
	SkillAbr string
}

type JobBenefit struct {
	JobID    string
	Type     string
	Inferred *bool
}

type JobSalary struct {
	ID               string
	JobID            string
	MinSalary        *float64
	MedSalary        *float64
	MaxSalary        *float64
	PayPeriod        *string
	Currency         *string
	CompensationType *string
}

type CompanyIndustry struct {
	CompanyID string
	Industry  string
}

type CompanySpeciality struct {
	CompanyID  string
	Speciality string
}

type EmployeeCount struct {
	CompanyID     string
	EmployeeCount *int64
	FollowerCount *int64
	TimeRecorded  string
}

// CleanModel is the complete output of the normalizer.
type CleanModel struct {
	Companies           []Company
	Industries          []Industry
	Skills              []Skill
	Jobs                []Job
	JobIndustries       []JobIndustry
	JobSkills           []JobSkill
	JobBenefits         []JobBenefit
	JobSalaries         []JobSalary
	CompanyIndustries   []CompanyIndustry
	CompanySpecialities []CompanySpeciality
	EmployeeCounts      []EmployeeCount
}

// Tables renders the model in CleanSchemas order.
func (m *CleanModel) Tables() []*table.Table {
	companies := table.New(CompaniesSchema)
	for _, c := range m.Companies {
		companies.Append(c.ID, c.Name, c.Description, c.Size, c.State, c.Country, c.City, c.ZipCode, c.Address, c.URL)
	}

	industries := table.New(IndustriesSchema)
	for _, i := range m.Industries {
		industries.Append(i.ID, i.Name)
	}

	skills := table.New(SkillsSchema)
	for _, s := range m.Skills {
		skills.Append(s.Abr, s.Name)
	}

	jobs := table.New(JobsSchema)
	for _, j := range m.Jobs {
		jobs.Append(
			j.ID, j.CompanyID, j.Title, j.Description, j.Location,
			j.FormattedWorkType, j.WorkType, j.FormattedExperienceLevel,
			j.Views, j.Applies, j.RemoteAllowed,
			j.OriginalListedTime, j.ListedTime, j.Expiry, j.ClosedTime,
			j.JobPostingURL, j.ApplicationURL, j.ApplicationType, j.ZipCode,
			j.MinSalary, j.MedSalary, j.MaxSalary,
			j.PayPeriod, j.Currency, j.CompensationType, j.NormalizedSalary,
		)
	}

	jobIndustries := table.New(JobIndustriesSchema)
	for _, l := range m.JobIndustries {
		jobIndustries.Append(l.JobID, l.IndustryID)
	}

	jobSkills := table.New(JobSkillsSchema)
	for _, l := range m.JobSkills {
		jobSkills.Append(l.JobID, l.SkillAbr)
	}

	benefits := table.New(JobBenefitsSchema)
	for _, b := range m.JobBenefits {
		benefits.Append(b.JobID, b.Type, b.Inferred)
	}

	salaries := table.New(JobSalariesSchema)
	for _, s := range m.JobSalaries {
		salaries.Append(s.ID, s.JobID, s.MinSalary, s.MedSalary, s.MaxSalary, s.PayPeriod, s.Currency, s.CompensationType)
	}

	companyIndustries := table.New(CompanyIndustriesSchema)
	for _, ci := range m.CompanyIndustries {
		companyIndustries.Append(ci.CompanyID, ci.Industry)
	}

	specialities := table.New(CompanySpecialitiesSchema)
	for _, cs := range m.CompanySpecialities {
		specialities.Append(cs.CompanyID, cs.Speciality)
	}

	employeeCounts := table.New(EmployeeCountsSchema)
	for _, e := range m.EmployeeCounts {
		employeeCounts.Append(e.CompanyID, e.EmployeeCount, e.FollowerCount, e.TimeRecorded)
	}

	return []*table.Table{
		companies, industries, skills, jobs, jobIndustries, jobSkills,
		benefits, salaries, companyIndustries, specialities, employeeCounts,
	}
}

// CleanModelFromTables rebuilds the model from tables read back out of a
// store. Tables are matched by name; a missing table leaves its slice empty.
func CleanModelFromTables(tables []*table.Table) (*CleanModel, error) {
	m := &CleanModel{}
	for _, t := range tables {
		c := table.NewCursor(t.Schema)
		for _, row := range t.Rows {
			c.Reset(row)
			switch t.Schema.Name {
			case CompaniesSchema.Name:
				m.Companies = append(m.Companies, Company{
					ID:          c.String("company_id"),
					Name:        c.NullString("name"),
					Description: c.NullString("description"),
					Size:        c.NullInt64("company_size"),
					State:       c.NullString("state"),
					Country:     c.NullString("country"),
					City:        c.NullString("city"),
					ZipCode:     c.NullString("zip_code"),
					Address:     c.NullString("address"),
					URL:         c.NullString("url"),
				})
			case IndustriesSchema.Name:
				m.Industries = append(m.Industries, Industry{ID: c.String("industry_id"), Name: c.NullString("industry_name")})
			case SkillsSchema.Name:
				m.Skills = append(m.Skills, Skill{Abr: c.String("skill_abr"), Name: c.NullString("skill_name")})
			case JobsSchema.Name:
				m.Jobs = append(m.Jobs, Job{
					ID:                       c.String("job_id"),
					CompanyID:                c.String("company_id"),
					Title:                    c.NullString("title"),
					Description:              c.NullString("description"),
					Location:                 c.NullString("location"),
					FormattedWorkType:        c.NullString("formatted_work_type"),
					WorkType:                 c.NullString("work_type"),
					FormattedExperienceLevel: c.NullString("formatted_experience_level"),
					Views:                    c.NullInt64("views"),
					Applies:                  c.NullInt64("applies"),
					RemoteAllowed:            c.NullBool("remote_allowed"),
					OriginalListedTime:       c.NullString("original_listed_time"),
					ListedTime:               c.NullString("listed_time"),
					Expiry:                   c.NullString("expiry"),
					ClosedTime:               c.NullString("closed_time"),
					JobPostingURL:            c.NullString("job_posting_url"),
					ApplicationURL:           c.NullString("application_url"),
					ApplicationType:          c.NullString("application_type"),
					ZipCode:                  c.NullString("zip_code"),
					MinSalary:                c.NullFloat64("min_salary"),
					MedSalary:                c.NullFloat64("med_salary"),
					MaxSalary:                c.NullFloat64("max_salary"),
					PayPeriod:                c.NullString("pay_period"),
					Currency:                 c.NullString("currency"),
					CompensationType:         c.NullString("compensation_type"),
					NormalizedSalary:         c.NullFloat64("normalized_salary"),
				})
			case JobIndustriesSchema.Name:
				m.JobIndustries = append(m.JobIndustries, JobIndustry{JobID: c.String("job_id"), IndustryID: c.String("industry_id")})
			case JobSkillsSchema.Name:
				m.JobSkills = append(m.JobSkills, JobSkill{JobID: c.String("job_id"), SkillAbr: c.String("skill_abr")})
			case JobBenefitsSchema.Name:
				m.JobBenefits = append(m.JobBenefits, JobBenefit{
					JobID:    c.String("job_id"),
					Type:     c.String("type"),
					Inferred: c.NullBool("inferred"),
				})
			case JobSalariesSchema.Name:
				m.JobSalaries = append(m.JobSalaries, JobSalary{
					ID:               c.String("salary_id"),
					JobID:            c.String("job_id"),
					MinSalary:        c.NullFloat64("min_salary"),
					MedSalary:        c.NullFloat64("med_salary"),
					MaxSalary:        c.NullFloat64("max_salary"),
					PayPeriod:        c.NullString("pay_period"),
					Currency:         c.NullString("currency"),
					CompensationType: c.NullString("compensation_type"),
				})
			case CompanyIndustriesSchema.Name:
				m.CompanyIndustries = append(m.CompanyIndustries, CompanyIndustry{
					CompanyID: c.String("company_id"),
					Industry:  c.String("industry"),
				})
			case CompanySpecialitiesSchema.Name:
				m.CompanySpecialities = append(m.CompanySpecialities, CompanySpeciality{
					CompanyID:  c.String("company_id"),
					Speciality: c.String("speciality"),
				})
			case EmployeeCountsSchema.Name:
				m.EmployeeCounts = append(m.EmployeeCounts, EmployeeCount{
					CompanyID:     c.String("company_id"),
					EmployeeCount: c.NullInt64("employee_count"),
					FollowerCount: c.NullInt64("follower_count"),
					TimeRecorded:  c.String("time_recorded"),
				})
			}
		}
		if err := c.Err(); err != nil {
			return nil, err
		}
	}
	return m, nil
}
