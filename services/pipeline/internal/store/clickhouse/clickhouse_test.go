package clickhouse

import (
	"reflect"
	"testing"

	"jobmart/services/pipeline/internal/table"
)

func TestCreateTableSQL(t *testing.T) {
	sc := table.Schema{
		Namespace: "clean",
		Name:      "job_skills",
		Columns: []table.Column{
			{Name: "job_id", Type: table.String},
			{Name: "skill_abr", Type: table.String},
			{Name: "weight", Type: table.NullableFloat64},
			{Name: "tags", Type: table.StringArray},
		},
		Key: []string{"job_id", "skill_abr"},
	}

	got := CreateTableSQL("`db`.`job_skills__staging`", sc)
	want := "CREATE TABLE `db`.`job_skills__staging` (\n" +
		"\t`job_id` String,\n" +
		"\t`skill_abr` String,\n" +
		"\t`weight` Nullable(Float64),\n" +
		"\t`tags` Array(String)\n" +
		") ENGINE = MergeTree()\n" +
		"ORDER BY (`job_id`, `skill_abr`)"
	if got != want {
		t.Errorf("CreateTableSQL() =\n%s\nwant\n%s", got, want)
	}

	sc.Key = nil
	if got := CreateTableSQL("t", sc); got[len(got)-len("ORDER BY tuple()"):] != "ORDER BY tuple()" {
		t.Errorf("CreateTableSQL() without key = %s", got)
	}
}

func TestScanTargetsRoundTrip(t *testing.T) {
	sc := table.Schema{Columns: []table.Column{
		{Name: "a", Type: table.String},
		{Name: "b", Type: table.NullableString},
		{Name: "c", Type: table.Int64},
		{Name: "d", Type: table.NullableInt64},
		{Name: "e", Type: table.NullableFloat64},
		{Name: "f", Type: table.NullableBool},
		{Name: "g", Type: table.StringArray},
	}}

	dest := scanTargets(sc)
	*dest[0].(*string) = "x"
	n := int64(7)
	*dest[2].(*int64) = 3
	*dest[3].(**int64) = &n

	got := values(dest)
	tbl := &table.Table{Schema: sc, Rows: [][]any{got}}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got[0] != "x" || got[1].(*string) != nil || got[2] != int64(3) || *got[3].(*int64) != 7 {
		t.Errorf("values() = %v", got)
	}
	if !reflect.DeepEqual(got[6], []string{}) {
		t.Errorf("empty array = %#v, want []string{}", got[6])
	}
}

func TestQuote(t *testing.T) {
	if got := quote("we`ird"); got != "`we``ird`" {
		t.Errorf("quote() = %s", got)
	}
}
