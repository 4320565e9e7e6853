package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements_CoversEveryTable(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 8)

	tables := []string{"users", "categories", "items", "item_images", "loans", "messages", "reviews", "refresh_tokens"}
	for i, table := range tables {
		assert.Contains(t, stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestApplySchema_ExecutesInOrder(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "mysql")

	for _, stmt := range Statements() {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, ApplySchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
