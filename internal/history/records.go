package history

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ytbatch/internal/constants"
	"ytbatch/internal/orchestrator"
	"ytbatch/internal/progress"
	"ytbatch/internal/task"
)

// batchColumns is the standard SELECT column list using COALESCE to avoid
// sql.NullString overhead on the nullable config column.
const batchColumns = `id, status, total, completed, failed, cancelled, success_rate,
	elapsed_seconds, avg_task_seconds, COALESCE(config,''), started_at, completed_at`

// BatchRecord is one finished batch as read back from the store.
type BatchRecord struct {
	ID             string
	Status         progress.Status
	Total          int
	Completed      int
	Failed         int
	Cancelled      int
	SuccessRate    float64
	ElapsedSeconds float64
	AvgTaskSeconds float64
	Config         orchestrator.BatchConfig
	StartedAt      time.Time
	CompletedAt    time.Time
}

// TaskRecord is one task's terminal outcome within a batch.
type TaskRecord struct {
	TaskID       string
	VideoID      string
	Title        string
	State        task.State
	RetryCount   int
	BytesWritten int64
	OutputPath   string
	ErrorKind    string
	ErrorMessage string
}

// Repository records and retrieves batch history.
type Repository struct {
	db *DB
}

// NewRepository wraps db in a Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Save writes one finished batch and its task breakdown in a single
// transaction. id should be a caller-assigned batch identifier; callers that
// don't have one of their own can mint one with uuid.New().String().
func (r *Repository) Save(id string, summary progress.BatchSummary, cfg orchestrator.BatchConfig, startedAt time.Time, tasks []TaskRecord) error {
	if id == "" {
		id = uuid.New().String()
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	tx, err := r.db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	completedAt := startedAt.Add(time.Duration(summary.ElapsedSeconds * float64(time.Second)))

	_, err = tx.Exec(`
		INSERT INTO batches (id, status, total, completed, failed, cancelled, success_rate,
			elapsed_seconds, avg_task_seconds, config, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.Status, summary.Total, summary.Completed, summary.Failed, summary.Cancelled,
		summary.SuccessRate, summary.ElapsedSeconds, summary.AvgTaskSeconds, string(cfgJSON),
		startedAt, completedAt,
	)
	if err != nil {
		return err
	}

	for _, tr := range tasks {
		_, err = tx.Exec(`
			INSERT INTO batch_tasks (batch_id, task_id, video_id, title, state, retry_count,
				bytes_written, output_path, error_kind, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, tr.TaskID, tr.VideoID, tr.Title, tr.State, tr.RetryCount,
			tr.BytesWritten, tr.OutputPath, tr.ErrorKind, tr.ErrorMessage,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List returns the most recently completed batches, newest first, bounded
// by constants.DefaultHistoryLimit/MaxHistoryLimit. A limit of 0 uses the
// default; a limit above the max is clamped down to it.
func (r *Repository) List(limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}

	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY completed_at DESC LIMIT ?`
	rows, err := r.db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one batch record and its per-task breakdown. Returns
// (nil, nil, nil) if id isn't found.
func (r *Repository) Get(id string) (*BatchRecord, []TaskRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ?`
	row := r.db.conn.QueryRow(query, id)
	rec, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.conn.Query(`
		SELECT task_id, video_id, COALESCE(title,''), state, retry_count, bytes_written,
			COALESCE(output_path,''), COALESCE(error_kind,''), COALESCE(error_message,'')
		FROM batch_tasks WHERE batch_id = ? ORDER BY task_id ASC`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var tr TaskRecord
		var state string
		if err := rows.Scan(&tr.TaskID, &tr.VideoID, &tr.Title, &state, &tr.RetryCount,
			&tr.BytesWritten, &tr.OutputPath, &tr.ErrorKind, &tr.ErrorMessage); err != nil {
			return nil, nil, err
		}
		tr.State = task.State(state)
		tasks = append(tasks, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &rec, tasks, nil
}

// ClearHistory deletes every recorded batch and its task breakdown.
func (r *Repository) ClearHistory() error {
	_, err := r.db.conn.Exec("DELETE FROM batches")
	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(s rowScanner) (BatchRecord, error) {
	var rec BatchRecord
	var status, cfgJSON string
	err := s.Scan(&rec.ID, &status, &rec.Total, &rec.Completed, &rec.Failed, &rec.Cancelled,
		&rec.SuccessRate, &rec.ElapsedSeconds, &rec.AvgTaskSeconds, &cfgJSON,
		&rec.StartedAt, &rec.CompletedAt)
	if err != nil {
		return BatchRecord{}, err
	}
	rec.Status = progress.Status(status)
	if cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
			return BatchRecord{}, err
		}
	}
	return rec, nil
}

// TaskRecordFrom converts a settled *task.Task into the TaskRecord shape
// Save expects.
func TaskRecordFrom(t *task.Task) TaskRecord {
	tr := TaskRecord{
		TaskID:       t.ID,
		VideoID:      t.Ref.VideoID,
		Title:        t.Ref.Title,
		State:        t.State,
		RetryCount:   t.RetryCount,
		BytesWritten: t.Result.BytesWritten,
		OutputPath:   t.Result.OutputPath,
	}
	if t.Result.Err != nil {
		tr.ErrorKind = string(t.Result.ErrorKind)
		tr.ErrorMessage = t.Result.Err.Error()
	}
	return tr
}
