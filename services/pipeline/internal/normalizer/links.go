package normalizer

import (
	"sort"

	"jobmart/services/pipeline/internal/ident"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/table"
)

type pair struct {
	left, right string
}

// distinctPairs reads (left, right) pairs from a raw table, keeping the
// pairs accepted by keep and dropping repeats. The result is sorted.
func (b *build) distinctPairs(t *table.Table, leftCol, rightCol string,
	leftKey, rightKey func(string) (string, bool), keep func(pair) bool, dropReason string) ([]pair, error) {

	cur := table.NewCursor(t.Schema)
	seen := make(map[pair]bool)
	var out []pair

	for _, row := range t.Rows {
		cur.Reset(row)
		l, lok := leftKey(cur.String(leftCol))
		r, rok := rightKey(cur.String(rightCol))
		if !lok || !rok {
			b.drop(dropReason)
			continue
		}
		p := pair{l, r}
		if !keep(p) {
			b.drop(dropReason)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].left != out[j].left {
			return out[i].left < out[j].left
		}
		return out[i].right < out[j].right
	})
	return out, nil
}

func (b *build) jobIndustries() error {
	pairs, err := b.distinctPairs(b.raw.Get(models.RawJobIndustries), "job_id", "industry_id",
		trimmedKey, ident.Canonical,
		func(p pair) bool { return b.jobIDs[p.left] && b.industryIDs[p.right] },
		"job_industries.dangling")
	if err != nil {
		return err
	}
	for _, p := range pairs {
		b.model.JobIndustries = append(b.model.JobIndustries, models.JobIndustry{JobID: p.left, IndustryID: p.right})
	}
	return nil
}

func (b *build) jobSkills() error {
	pairs, err := b.distinctPairs(b.raw.Get(models.RawJobSkills), "job_id", "skill_abr",
		trimmedKey, trimmedKey,
		func(p pair) bool { return b.jobIDs[p.left] && b.skillAbrs[p.right] },
		"job_skills.dangling")
	if err != nil {
		return err
	}
	for _, p := range pairs {
		b.model.JobSkills = append(b.model.JobSkills, models.JobSkill{JobID: p.left, SkillAbr: p.right})
	}
	return nil
}

func (b *build) companyIndustries() error {
	pairs, err := b.distinctPairs(b.raw.Get(models.RawCompanyIndustries), "company_id", "industry",
		ident.Canonical, trimmedKey,
		func(p pair) bool { return b.companyIDs[p.left] },
		"company_industries.dangling")
	if err != nil {
		return err
	}
	for _, p := range pairs {
		b.model.CompanyIndustries = append(b.model.CompanyIndustries, models.CompanyIndustry{CompanyID: p.left, Industry: p.right})
	}
	return nil
}

func (b *build) companySpecialities() error {
	pairs, err := b.distinctPairs(b.raw.Get(models.RawCompanySpecialities), "company_id", "speciality",
		ident.Canonical, trimmedKey,
		func(p pair) bool { return b.companyIDs[p.left] },
		"company_specialities.dangling")
	if err != nil {
		return err
	}
	for _, p := range pairs {
		b.model.CompanySpecialities = append(b.model.CompanySpecialities, models.CompanySpeciality{CompanyID: p.left, Speciality: p.right})
	}
	return nil
}

// jobBenefits emits one row per (job, benefit type). The inferred flag
// takes the first non-null value among that pair's source rows.
func (b *build) jobBenefits() error {
	benefits := b.raw.Get(models.RawBenefits)
	cur := table.NewCursor(benefits.Schema)

	index := make(map[pair]int)
	for _, row := range benefits.Rows {
		cur.Reset(row)

		jobID, ok := trimmedKey(cur.String("job_id"))
		if !ok || !b.jobIDs[jobID] {
			b.drop("job_benefits.unknown_job")
			continue
		}
		kind, ok := trimmedKey(cur.String("type"))
		if !ok {
			b.drop("job_benefits.missing_type")
			continue
		}

		inferred, err := b.coerce.flag(fieldRef{table: "benefits", column: "inferred", row: rowRef(cur)}, cur.String("inferred"))
		if err != nil {
			return err
		}

		p := pair{jobID, kind}
		if i, seen := index[p]; seen {
			if b.model.JobBenefits[i].Inferred == nil {
				b.model.JobBenefits[i].Inferred = inferred
			}
			continue
		}
		index[p] = len(b.model.JobBenefits)
		b.model.JobBenefits = append(b.model.JobBenefits, models.JobBenefit{JobID: jobID, Type: kind, Inferred: inferred})
	}
	if err := cur.Err(); err != nil {
		return err
	}

	sort.Slice(b.model.JobBenefits, func(i, j int) bool {
		x, y := b.model.JobBenefits[i], b.model.JobBenefits[j]
		if x.JobID != y.JobID {
			return x.JobID < y.JobID
		}
		return x.Type < y.Type
	})
	return nil
}
