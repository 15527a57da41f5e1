package normalizer

import (
	"sort"

	"jobmart/services/pipeline/internal/ident"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/table"
)

// jobs joins postings to the built companies. Postings without a job id or
// with an unknown company are excluded; a repeated job id keeps its first row.
func (b *build) jobs() error {
	postings := b.raw.Get(models.RawPostings)
	cur := table.NewCursor(postings.Schema)

	b.jobIDs = make(map[string]bool)
	for _, row := range postings.Rows {
		cur.Reset(row)

		jobID, ok := trimmedKey(cur.String("job_id"))
		if !ok {
			b.drop("jobs.missing_job_id")
			continue
		}
		if b.jobIDs[jobID] {
			b.drop("jobs.duplicate_job_id")
			continue
		}
		companyID, ok := ident.Canonical(cur.String("company_id"))
		if !ok || !b.companyIDs[companyID] {
			b.drop("jobs.unknown_company")
			continue
		}

		job := models.Job{
			ID:                       jobID,
			CompanyID:                companyID,
			Title:                    text(cur.String("title")),
			Description:              text(cur.String("description")),
			Location:                 text(cur.String("location")),
			FormattedWorkType:        text(cur.String("formatted_work_type")),
			WorkType:                 text(cur.String("work_type")),
			FormattedExperienceLevel: text(cur.String("formatted_experience_level")),
			OriginalListedTime:       text(cur.String("original_listed_time")),
			ListedTime:               text(cur.String("listed_time")),
			Expiry:                   text(cur.String("expiry")),
			ClosedTime:               text(cur.String("closed_time")),
			JobPostingURL:            text(cur.String("job_posting_url")),
			ApplicationURL:           text(cur.String("application_url")),
			ApplicationType:          text(cur.String("application_type")),
			ZipCode:                  text(cur.String("zip_code")),
			PayPeriod:                text(cur.String("pay_period")),
			Currency:                 text(cur.String("currency")),
			CompensationType:         text(cur.String("compensation_type")),
		}

		ref := func(column string) fieldRef {
			return fieldRef{table: "postings", column: column, row: rowRef(cur)}
		}
		var err error
		if job.Views, err = b.coerce.integer(ref("views"), cur.String("views")); err != nil {
			return err
		}
		if job.Applies, err = b.coerce.integer(ref("applies"), cur.String("applies")); err != nil {
			return err
		}
		if job.RemoteAllowed, err = b.coerce.flag(ref("remote_allowed"), cur.String("remote_allowed")); err != nil {
			return err
		}
		if job.MinSalary, err = b.coerce.float(ref("min_salary"), cur.String("min_salary")); err != nil {
			return err
		}
		if job.MedSalary, err = b.coerce.float(ref("med_salary"), cur.String("med_salary")); err != nil {
			return err
		}
		if job.MaxSalary, err = b.coerce.float(ref("max_salary"), cur.String("max_salary")); err != nil {
			return err
		}
		if job.NormalizedSalary, err = b.coerce.float(ref("normalized_salary"), cur.String("normalized_salary")); err != nil {
			return err
		}

		b.model.Jobs = append(b.model.Jobs, job)
		b.jobIDs[jobID] = true
	}
	if err := cur.Err(); err != nil {
		return err
	}

	sort.Slice(b.model.Jobs, func(i, j int) bool { return b.model.Jobs[i].ID < b.model.Jobs[j].ID })
	return nil
}

// jobSalaries keeps every distinct salary quote of a known job. The salary
// id is the primary key; a repeated id keeps its first row.
func (b *build) jobSalaries() error {
	salaries := b.raw.Get(models.RawSalaries)
	cur := table.NewCursor(salaries.Schema)

	seen := make(map[string]bool)
	for _, row := range salaries.Rows {
		cur.Reset(row)

		salaryID, ok := trimmedKey(cur.String("salary_id"))
		if !ok {
			b.drop("job_salaries.missing_salary_id")
			continue
		}
		if seen[salaryID] {
			b.drop("job_salaries.duplicate_salary_id")
			continue
		}
		jobID, ok := trimmedKey(cur.String("job_id"))
		if !ok || !b.jobIDs[jobID] {
			b.drop("job_salaries.unknown_job")
			continue
		}

		s := models.JobSalary{
			ID:               salaryID,
			JobID:            jobID,
			PayPeriod:        text(cur.String("pay_period")),
			Currency:         text(cur.String("currency")),
			CompensationType: text(cur.String("compensation_type")),
		}
		ref := func(column string) fieldRef {
			return fieldRef{table: "salaries", column: column, row: rowRef(cur)}
		}
		var err error
		if s.MinSalary, err = b.coerce.float(ref("min_salary"), cur.String("min_salary")); err != nil {
			return err
		}
		if s.MedSalary, err = b.coerce.float(ref("med_salary"), cur.String("med_salary")); err != nil {
			return err
		}
		if s.MaxSalary, err = b.coerce.float(ref("max_salary"), cur.String("max_salary")); err != nil {
			return err
		}

		b.model.JobSalaries = append(b.model.JobSalaries, s)
		seen[salaryID] = true
	}
	if err := cur.Err(); err != nil {
		return err
	}

	sort.Slice(b.model.JobSalaries, func(i, j int) bool { return b.model.JobSalaries[i].ID < b.model.JobSalaries[j].ID })
	return nil
}

// employeeCounts keeps every snapshot of a known company.
func (b *build) employeeCounts() error {
	counts := b.raw.Get(models.RawEmployeeCounts)
	cur := table.NewCursor(counts.Schema)

	for _, row := range counts.Rows {
		cur.Reset(row)

		companyID, ok := ident.Canonical(cur.String("company_id"))
		if !ok || !b.companyIDs[companyID] {
			b.drop("employee_counts.unknown_company")
			continue
		}

		e := models.EmployeeCount{
			CompanyID:    companyID,
			TimeRecorded: cur.String("time_recorded"),
		}
		ref := func(column string) fieldRef {
			return fieldRef{table: "employee_counts", column: column, row: rowRef(cur)}
		}
		var err error
		if e.EmployeeCount, err = b.coerce.integer(ref("employee_count"), cur.String("employee_count")); err != nil {
			return err
		}
		if e.FollowerCount, err = b.coerce.integer(ref("follower_count"), cur.String("follower_count")); err != nil {
			return err
		}
		b.model.EmployeeCounts = append(b.model.EmployeeCounts, e)
	}
	if err := cur.Err(); err != nil {
		return err
	}

	sort.SliceStable(b.model.EmployeeCounts, func(i, j int) bool {
		a, c := b.model.EmployeeCounts[i], b.model.EmployeeCounts[j]
		if a.CompanyID != c.CompanyID {
			return a.CompanyID < c.CompanyID
		}
		return a.TimeRecorded < c.TimeRecorded
	})
	return nil
}
