package postgres

import "fmt"

// TableNames holds dynamically prefixed table names so dev/test/prod can
// share one database without colliding.
type TableNames struct {
	Nodes       string
	Idempotency string
}

// NewTableNames creates table names with the given prefix.
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Nodes:       fmt.Sprintf("%sfavorite_nodes", prefix),
		Idempotency: fmt.Sprintf("%sfavorite_idempotency", prefix),
	}
}
