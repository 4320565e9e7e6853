package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewExecutor(sqlx.NewDb(raw, "mysql"), nil), mock
}

// capture matches any argument and remembers the last one it saw.
type capture struct{ value driver.Value }

func (c *capture) Match(v driver.Value) bool {
	c.value = v
	return true
}

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 0, 0, 0, 0, time.UTC)
}

type driverValue = driver.Value

var stamp = time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)
