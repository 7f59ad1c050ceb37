package history

import (
	"testing"
	"time"

	"ytbatch/internal/orchestrator"
	"ytbatch/internal/progress"
	apperr "ytbatch/internal/errors"
	"ytbatch/internal/task"
)

// setupTestDB creates a file-backed SQLite database for testing. Each test
// gets an isolated database under t.TempDir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testSummary() progress.BatchSummary {
	return progress.BatchSummary{
		Status:         progress.Completed,
		Total:          3,
		Completed:      2,
		Failed:         1,
		Cancelled:      0,
		SuccessRate:    66.6,
		ElapsedSeconds: 12.5,
		AvgTaskSeconds: 4.1,
	}
}

func testTasks() []TaskRecord {
	return []TaskRecord{
		{TaskID: "abc:1", VideoID: "abc", Title: "one", State: task.Completed, BytesWritten: 1024, OutputPath: "/tmp/one.mp4"},
		{TaskID: "def:1", VideoID: "def", Title: "two", State: task.Completed, BytesWritten: 2048, OutputPath: "/tmp/two.mp4"},
		{TaskID: "ghi:1", VideoID: "ghi", Title: "three", State: task.Failed, RetryCount: 3, ErrorKind: string(apperr.KindNetwork), ErrorMessage: "connection reset"},
	}
}

func TestNew_CreatesDatabaseAndMigrates(t *testing.T) {
	db := setupTestDB(t)

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count); err != nil {
		t.Fatalf("batches table should exist: %v", err)
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM batch_tasks").Scan(&count); err != nil {
		t.Fatalf("batch_tasks table should exist: %v", err)
	}
}

func TestNew_SetsWALMode(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	cfg := orchestrator.DefaultBatchConfig()
	startedAt := time.Now().Add(-30 * time.Second)

	if err := repo.Save("batch-1", testSummary(), cfg, startedAt, testTasks()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, tasks, err := repo.Get("batch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatal("Get returned nil record for a saved batch")
	}

	if rec.Total != 3 || rec.Completed != 2 || rec.Failed != 1 {
		t.Errorf("record counters = %+v, want total=3 completed=2 failed=1", rec)
	}
	if rec.Status != progress.Completed {
		t.Errorf("Status = %q, want %q", rec.Status, progress.Completed)
	}
	if rec.Config.MaxConcurrent != cfg.MaxConcurrent {
		t.Errorf("Config.MaxConcurrent = %d, want %d", rec.Config.MaxConcurrent, cfg.MaxConcurrent)
	}

	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}
	if tasks[2].ErrorKind != string(apperr.KindNetwork) {
		t.Errorf("tasks[2].ErrorKind = %q, want %q", tasks[2].ErrorKind, apperr.KindNetwork)
	}
}

func TestRepository_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	rec, tasks, err := repo.Get("does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil || tasks != nil {
		t.Errorf("Get(missing) = %+v, %+v, want nil, nil", rec, tasks)
	}
}

func TestRepository_List_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"batch-a", "batch-b", "batch-c"} {
		startedAt := base.Add(time.Duration(i) * time.Minute)
		if err := repo.Save(id, testSummary(), orchestrator.DefaultBatchConfig(), startedAt, nil); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	records, err := repo.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].ID != "batch-c" {
		t.Errorf("records[0].ID = %q, want %q (most recently completed)", records[0].ID, "batch-c")
	}
}

func TestRepository_List_ClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	if err := repo.Save("b1", testSummary(), orchestrator.DefaultBatchConfig(), time.Now(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := repo.List(-5)
	if err != nil {
		t.Fatalf("List(-5): %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List(-5) with one saved batch = %d records, want 1", len(records))
	}
}

func TestRepository_ClearHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	if err := repo.Save("b1", testSummary(), orchestrator.DefaultBatchConfig(), time.Now(), testTasks()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}

	records, err := repo.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) after ClearHistory = %d, want 0", len(records))
	}

	var taskCount int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM batch_tasks").Scan(&taskCount); err != nil {
		t.Fatalf("count batch_tasks: %v", err)
	}
	if taskCount != 0 {
		t.Errorf("batch_tasks rows after ClearHistory = %d, want 0 (cascade delete)", taskCount)
	}
}

func TestTaskRecordFrom(t *testing.T) {
	ref, err := task.NewVideoRef("dQw4w9WgXcQ", "Never Gonna Give You Up")
	if err != nil {
		t.Fatalf("NewVideoRef: %v", err)
	}
	tsk := task.New("dQw4w9WgXcQ:1", ref, task.TaskConfig{})
	tsk.State = task.Completed
	tsk.Result = task.Result{Success: true, OutputPath: "/tmp/out.mp4", BytesWritten: 4096}

	tr := TaskRecordFrom(tsk)
	if tr.TaskID != tsk.ID || tr.VideoID != ref.VideoID || tr.Title != ref.Title {
		t.Errorf("TaskRecordFrom identity fields = %+v", tr)
	}
	if tr.BytesWritten != 4096 || tr.OutputPath != "/tmp/out.mp4" {
		t.Errorf("TaskRecordFrom result fields = %+v", tr)
	}
	if tr.ErrorKind != "" {
		t.Errorf("ErrorKind = %q on a successful task, want empty", tr.ErrorKind)
	}
}

func TestTaskRecordFrom_CarriesError(t *testing.T) {
	ref, _ := task.NewVideoRef("dQw4w9WgXcQ", "t")
	tsk := task.New("dQw4w9WgXcQ:1", ref, task.TaskConfig{})
	tsk.State = task.Failed
	tsk.Result = task.Result{
		Success:   false,
		Err:       apperr.NewWithKind("test", apperr.ErrDownloadFailed, apperr.KindNetwork),
		ErrorKind: apperr.KindNetwork,
	}

	tr := TaskRecordFrom(tsk)
	if tr.ErrorKind != string(apperr.KindNetwork) {
		t.Errorf("ErrorKind = %q, want %q", tr.ErrorKind, apperr.KindNetwork)
	}
	if tr.ErrorMessage == "" {
		t.Error("ErrorMessage should be populated from Result.Err")
	}
}
