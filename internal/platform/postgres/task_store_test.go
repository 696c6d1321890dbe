package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/mornoningo-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	id      uuid.UUID
	payload []byte
}

func (s stubTask) ID() uuid.UUID                   { return s.id }
func (s stubTask) Type() string                    { return task.TaskTypeExtraction }
func (s stubTask) Payload() []byte                 { return s.payload }
func (s stubTask) Status() task.TaskStatus         { return task.TaskStatusPending }
func (s stubTask) Execute(_ context.Context) error { return nil }

var taskRowColumns = []string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}

func fixedTaskStore(db *PostgresTaskStore, now time.Time) *PostgresTaskStore {
	db.now = func() time.Time { return now }
	return db
}

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	s := fixedTaskStore(NewPostgresTaskStore(db, discardLogger()), now)
	tk := stubTask{id: uuid.New(), payload: []byte(`{"document_id":"x"}`)}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(tk.id, task.TaskTypeExtraction, tk.payload, "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveTask(context.Background(), tk))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnError(errors.New("connection refused"))
	err := s.SaveTask(context.Background(), tk)
	assert.ErrorContains(t, err, "failed to save task to database")
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	s := fixedTaskStore(NewPostgresTaskStore(db, discardLogger()), now)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
		WithArgs("failed", "boom", now, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "boom"))

	// Unknown tasks are ignored.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.UpdateTaskStatus(context.Background(), uuid.New(), task.TaskStatusCompleted, ""))
}

func TestPostgresTaskStore_GetTasks(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)
	id := uuid.New()

	tests := []struct {
		name      string
		query     string
		args      []any
		call      func(s *PostgresTaskStore) ([]task.Record, error)
		rowStatus string
	}{
		{
			name:      "pending",
			query:     "WHERE status = $1\n",
			args:      []any{"pending"},
			call:      func(s *PostgresTaskStore) ([]task.Record, error) { return s.GetPendingTasks(context.Background()) },
			rowStatus: "pending",
		},
		{
			name:  "processing older than",
			query: "WHERE status = $1 AND updated_at < $2",
			args:  []any{"processing", now.Add(-30 * time.Minute)},
			call: func(s *PostgresTaskStore) ([]task.Record, error) {
				return s.GetProcessingTasks(context.Background(), 30*time.Minute)
			},
			rowStatus: "processing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			s := fixedTaskStore(NewPostgresTaskStore(db, discardLogger()), now)

			args := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				args = append(args, a)
			}
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(taskRowColumns).
					AddRow(id.String(), task.TaskTypeExtraction, []byte(`{}`), tt.rowStatus, "", created, created))

			recs, err := tt.call(s)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, id, recs[0].ID)
			assert.Equal(t, task.TaskStatus(tt.rowStatus), recs[0].Status)
			assert.Equal(t, task.TaskTypeExtraction, recs[0].Type)
		})
	}
}
