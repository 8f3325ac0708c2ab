package sequence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"venue-billing-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Sequence{}))
	return db
}

// nextInTx runs Next in its own transaction.
func nextInTx(ctx context.Context, db *gorm.DB, ns Namespace, scope string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := Next(tx, ns, scope)
		value = v
		return err
	})
	return value, err
}

func TestNext_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sequences"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "sequences" SET "value"=value + $1`)).
		WithArgs(1, "invoice", "org:7:2024-05").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "value" FROM "sequences"`)).
		WithArgs("invoice", "org:7:2024-05").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(12))
	mock.ExpectCommit()

	v, err := nextInTx(context.Background(), gormDB, Invoice, "org:7:2024-05")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNext_FailureRollsBack(t *testing.T) {
	gormDB, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sequences"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "sequences"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := nextInTx(context.Background(), gormDB, SessionCode, "org:1:2024-05-13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment sequence session_code/org:1:2024-05-13")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNext_MonotonicPerScope(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		v, err := nextInTx(ctx, db, Invoice, "org:1:2024-05")
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	v, err := nextInTx(ctx, db, Invoice, "org:2:2024-05")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "scopes are independent")

	v, err = nextInTx(ctx, db, SessionCode, "org:1:2024-05")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "namespaces are independent")
}

func TestNext_ConcurrentCallersGetDistinctValues(t *testing.T) {
	db := newSQLiteDB(t)
	const callers = 25

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[int64]int)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := nextInTx(context.Background(), db, Invoice, "org:3:2024-06")
			assert.NoError(t, err)
			mu.Lock()
			values[v]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, values, callers)
	for v := int64(1); v <= callers; v++ {
		assert.Equal(t, 1, values[v], "value %d", v)
	}
}

func TestFormat(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	// 20:00 UTC is already the next day in Kolkata.
	ts := time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "SES-7-20240601-001", FormatSessionCode("SES", 7, ts, loc, 1))
	assert.Equal(t, "SES-7-20240531-1234", FormatSessionCode("SES", 7, ts, time.UTC, 1234))
	assert.Equal(t, "INV-7-202406-0042", FormatInvoiceNumber("INV", 7, ts, loc, 42))
	assert.Equal(t, "org:7:2024-06-01", DayScope(7, ts, loc))
	assert.Equal(t, "org:7:2024-05", MonthScope(7, ts, time.UTC))
}
