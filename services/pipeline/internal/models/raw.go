package models

import "jobmart/services/pipeline/internal/table"

const (
	NamespaceRaw       = "raw"
	NamespaceClean     = "clean"
	NamespaceAnalytics = "analytics"

	// SourceRowColumn carries the 1-based data row number of a raw record.
	SourceRowColumn = "source_row"
)

func rawSchema(name string, columns ...string) table.Schema {
	cols := make([]table.Column, 0, len(columns)+1)
	cols = append(cols, table.Column{Name: SourceRowColumn, Type: table.Int64})
	for _, c := range columns {
		cols = append(cols, table.Column{Name: c, Type: table.String})
	}
	return table.Schema{
		Namespace: NamespaceRaw,
		Name:      name,
		Columns:   cols,
		Key:       []string{SourceRowColumn},
	}
}

var (
	RawCompanies = rawSchema("companies",
		"company_id", "name", "description", "company_size", "state", "country", "city", "zip_code", "address", "url")
	RawCompanyIndustries   = rawSchema("company_industries", "company_id", "industry")
	RawCompanySpecialities = rawSchema("company_specialities", "company_id", "speciality")
	RawEmployeeCounts      = rawSchema("employee_counts", "company_id", "employee_count", "follower_count", "time_recorded")
	RawBenefits            = rawSchema("benefits", "job_id", "inferred", "type")
	RawJobIndustries       = rawSchema("job_industries", "job_id", "industry_id")
	RawJobSkills           = rawSchema("job_skills", "job_id", "skill_abr")
	RawSalaries            = rawSchema("salaries",
		"salary_id", "job_id", "max_salary", "med_salary", "min_salary", "pay_period", "currency", "compensation_type")
	RawIndustries = rawSchema("industries", "industry_id", "industry_name")
	RawSkills     = rawSchema("skills", "skill_abr", "skill_name")
	RawPostings   = rawSchema("postings",
		"job_id", "company_name", "title", "description", "max_salary", "pay_period", "location", "company_id",
		"views", "med_salary", "min_salary", "formatted_work_type", "applies", "original_listed_time",
		"remote_allowed", "job_posting_url", "application_url", "application_type", "expiry", "closed_time",
		"formatted_experience_level", "skills_desc", "listed_time", "posting_domain", "sponsored", "work_type",
		"currency", "compensation_type", "normalized_salary", "zip_code", "fips")
)

// RawSchemas lists every raw table in load order.
var RawSchemas = []table.Schema{
	RawCompanies,
	RawCompanyIndustries,
	RawCompanySpecialities,
	RawEmployeeCounts,
	RawBenefits,
	RawJobIndustries,
	RawJobSkills,
	RawSalaries,
	RawIndustries,
	RawSkills,
	RawPostings,
}

// Header returns the source file header a raw table is loaded from.
func Header(s table.Schema) []string {
	names := s.ColumnNames()
	if len(names) > 0 && names[0] == SourceRowColumn {
		return names[1:]
	}
	return names
}

// RawSet holds the raw tables by name.
type RawSet map[string]*table.Table

func (s RawSet) Get(schema table.Schema) *table.Table {
	if t, ok := s[schema.Name]; ok {
		return t
	}
	return table.New(schema)
}
