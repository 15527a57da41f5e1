package migrations

import (
	"fmt"

	"jobmart/common/database/schema"
)

// Namespaces returns the migrations creating one database per pipeline
// stage.
func Namespaces(raw, clean, analytics string) []schema.Migration {
	return []schema.Migration{
		createDatabase(1, "Create raw namespace", raw),
		createDatabase(2, "Create clean namespace", clean),
		createDatabase(3, "Create analytics namespace", analytics),
	}
}

func createDatabase(version int, description, name string) schema.Migration {
	return schema.Migration{
		Version:     version,
		Description: description,
		Up:          fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name),
		Down:        fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name),
	}
}
