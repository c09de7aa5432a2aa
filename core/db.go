package core

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Transactor runs fn inside a single database transaction.
	// The transaction is rolled back when fn returns an error.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders orderings restricted to the allowed fields ({api field: column}).
// Unknown fields are dropped; fallback is used when nothing is left.
func OrderBy(ordering []DBOrdering, allowed map[string]string, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		list = append(list, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}
