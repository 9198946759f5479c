package db

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/models"
)

func TestNewQueryRecord(t *testing.T) {
	res := &models.AnswerResult{
		Question:     "Quelle est la loi d'Ohm ?",
		Answer:       "U = R × I.",
		Confidence:   0.82,
		Validation:   models.ValidationResult{Score: 90, IsComplete: true},
		ExerciseType: models.ExerciseCalculation,
		ModelUsed:    "claude-3-haiku-20240307",
		TokensUsed:   321,
		Language:     "fr",
		ResponseTime: 1.5,
	}
	rec := NewQueryRecord("u1", "c1", res)
	if rec.UserID != "u1" || rec.CourseID != "c1" {
		t.Errorf("unexpected owner %s/%s", rec.UserID, rec.CourseID)
	}
	if rec.Question != res.Question || rec.Answer != res.Answer || rec.CompletenessScore != 90 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.ExerciseType != "calculation" || rec.TokensUsed != 321 || rec.ModelUsed != res.ModelUsed {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestHistoryQuery(t *testing.T) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://user@localhost:5432/studygenie?sslmode=disable")))
	defer sqldb.Close()
	db := NewDB(sqldb, false)

	var records []QueryRecord
	query := historyQuery(db, &records, "u1", "c1", 0).String()
	for _, want := range []string{`"query_history"`, `user_id = 'u1'`, `course_id = 'c1'`, `ORDER BY created_at DESC`, `LIMIT 50`} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q is missing %q", query, want)
		}
	}
}

func TestPqDSN(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		password string
		want     []string
	}{
		{"no password", "host=localhost user=u", "", []string{"host=localhost user=u"}},
		{"key value", "host=localhost user=u", "secret", []string{"host=localhost user=u password='secret'"}},
		{"url", "postgres://u@localhost:5432/studygenie?sslmode=disable", "secret", []string{"user=u", "dbname=studygenie", "sslmode=disable", "password='secret'"}},
		{"quoted", "host=localhost", `it's\x`, []string{`password='it\'s\\x'`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pqDSN(tt.dsn, tt.password)
			if err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("pqDSN() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestConnectDB_PqUsesPasswordEnv(t *testing.T) {
	t.Setenv("STUDYGENIE_TEST_DB_PASSWORD", "secret")
	sqldb, err := ConnectDB(config.DatabaseConfig{
		DSN:         "postgres://u@localhost:5432/studygenie?sslmode=disable",
		Driver:      "pq",
		PasswordEnv: "STUDYGENIE_TEST_DB_PASSWORD",
	})
	if err != nil {
		t.Fatal(err)
	}
	sqldb.Close()

	if _, err := ConnectDB(config.DatabaseConfig{DSN: "postgres://%zz", Driver: "pq", PasswordEnv: "STUDYGENIE_TEST_DB_PASSWORD"}); err == nil {
		t.Error("Expected an error for a malformed dsn")
	}
}

func TestConnectDB(t *testing.T) {
	if _, err := ConnectDB(config.DatabaseConfig{}); err == nil {
		t.Error("Expected an error without dsn")
	}
	for _, driver := range []string{"pgdriver", "pq"} {
		sqldb, err := ConnectDB(config.DatabaseConfig{DSN: "postgres://user@localhost:5432/studygenie?sslmode=disable", Driver: driver})
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		sqldb.Close()
	}
}
