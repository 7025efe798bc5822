package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/scorm"
	"github.com/trezcool/lms/storage/database"
)

// NewConfig returns the configuration used by tests; it does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "LMS",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://lms.test/",
		DefaultFromEmail: mail.Address{Name: "LMS", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			Address:            ":0",
			JWTExpirationDelta: 10 * time.Minute,
			ShutdownTimeout:    time.Second,
		},
		Runtime: core.RuntimeConfig{
			MaxIndexedRecords: scorm.DefaultMaxIndexedRecords,
			NotifyCompletion:  true,
		},
	}
}

// LogEntry is one message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that records messages.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the recorded messages of the given level, all of them if level is "".
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// PrepareDB opens, migrates and empties the test PostgreSQL database.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("database.OpenURL() failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = database.Ping(ctx, db); err != nil {
		t.Fatalf("database.Ping() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE runtime_buffer, interaction, attempt"); err != nil {
		t.Fatalf("truncating tables failed: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close() failed: %v", err)
		}
	})
	return db
}

// CreateAttempt stores a new attempt for the user, with an optional prior total time.
func CreateAttempt(t *testing.T, repo scorm.Repository, userID string, totalTime ...string) scorm.Attempt {
	t.Helper()

	attempt := scorm.Attempt{
		ID:        uuid.New().String(),
		UserID:    userID,
		TotalTime: "0:0:0",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if len(totalTime) > 0 {
		attempt.TotalTime = totalTime[0]
	}
	attempt, err := repo.CreateAttempt(context.Background(), attempt)
	if err != nil {
		t.Fatalf("CreateAttempt() failed: %v", err)
	}
	return attempt
}

// SetBuffer writes runtime values for the attempt.
func SetBuffer(t *testing.T, buffer scorm.BufferWriter, attemptID string, vals scorm.Values) {
	t.Helper()

	if err := buffer.Set(context.Background(), attemptID, vals); err != nil {
		t.Fatalf("buffer.Set() failed: %v", err)
	}
}

// Learner returns a learner with predictable fields.
func Learner(id string) scorm.Learner {
	return scorm.Learner{
		ID:       id,
		Username: id,
		Email:    fmt.Sprintf("%s@test.cd", id),
		Name:     "Learner " + id,
	}
}
