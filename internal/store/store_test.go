package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_LatestWONumber(t *testing.T) {
	testCases := []struct {
		name             string
		year             int
		mockExpectations func(mock sqlmock.Sqlmock)
		expected         string
	}{
		{
			name: "returns the highest number for the year",
			year: 2025,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "work_orders" WHERE wo_number LIKE $1 ORDER BY wo_number DESC`)).
					WithArgs("WO-2025-%", Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id", "wo_number"}).
						AddRow(42, "WO-2025-0042"))
			},
			expected: "WO-2025-0042",
		},
		{
			name: "empty year yields empty string without error",
			year: 2024,
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "work_orders" WHERE wo_number LIKE $1 ORDER BY wo_number DESC`)).
					WithArgs("WO-2024-%", Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id", "wo_number"}))
			},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			got, err := s.LatestWONumber(context.Background(), tc.year)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_MarkDecisionExecuted(t *testing.T) {
	testCases := []struct {
		name         string
		rowsAffected int64
		expectFlip   bool
	}{
		{
			name:         "first execution flips the flag",
			rowsAffected: 1,
			expectFlip:   true,
		},
		{
			name:         "already executed decision is left alone",
			rowsAffected: 0,
			expectFlip:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ai_decisions" SET "auto_executed"=$1`)).
				WithArgs(true, 7, false).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			mock.ExpectCommit()

			flipped, err := s.MarkDecisionExecuted(context.Background(), 7)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectFlip, flipped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_ActiveWorkOrders(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "work_orders" WHERE machine_id = $1 AND status IN ($2,$3,$4)`)).
		WithArgs(3, "Draft", "Pending_Approval", "Approved").
		WillReturnRows(sqlmock.NewRows([]string{"id", "wo_number", "machine_id", "status"}).
			AddRow(1, "WO-2025-0001", 3, "Approved").
			AddRow(2, "WO-2025-0002", 3, "Draft"))

	orders, err := s.ActiveWorkOrders(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, "WO-2025-0001", orders[0].WONumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetMachine_NotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "machines" WHERE "machines"."id" = $1`)).
		WithArgs(99, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetMachine(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DecisionStatistics_Empty(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "ai_decisions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	stats, err := s.DecisionStatistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDecisions)
	assert.Empty(t, stats.ByDecision)
	assert.Empty(t, stats.ByProvider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
