package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/rachid48133/studygenie/internal/config"
	"github.com/rachid48133/studygenie/internal/models"
)

const defaultHistoryLimit = 50

// QueryRecord is one answered question kept for the course history.
type QueryRecord struct {
	bun.BaseModel `bun:"table:query_history,alias:qh"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID            string    `bun:"user_id,notnull" json:"user_id"`
	CourseID          string    `bun:"course_id,notnull" json:"course_id"`
	Question          string    `bun:"question,notnull" json:"question"`
	Answer            string    `bun:"answer,notnull" json:"answer"`
	Confidence        float64   `bun:"confidence" json:"confidence"`
	CompletenessScore int       `bun:"completeness_score" json:"completeness_score"`
	ExerciseType      string    `bun:"exercise_type" json:"exercise_type"`
	ModelUsed         string    `bun:"model_used" json:"model_used"`
	TokensUsed        int       `bun:"tokens_used" json:"tokens_used"`
	Language          string    `bun:"language" json:"language"`
	ResponseTime      float64   `bun:"response_time" json:"response_time"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func NewQueryRecord(userID, courseID string, res *models.AnswerResult) *QueryRecord {
	return &QueryRecord{
		UserID:            userID,
		CourseID:          courseID,
		Question:          res.Question,
		Answer:            res.Answer,
		Confidence:        res.Confidence,
		CompletenessScore: res.Validation.Score,
		ExerciseType:      string(res.ExerciseType),
		ModelUsed:         res.ModelUsed,
		TokensUsed:        res.TokensUsed,
		Language:          res.Language,
		ResponseTime:      res.ResponseTime,
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the history database with the configured driver.
// The connection is established lazily on first use.
func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is not configured")
	}
	password := config.APIKey(cfg.PasswordEnv)

	if cfg.Driver == "pq" {
		dsn, err := pqDSN(cfg.DSN, password)
		if err != nil {
			return nil, err
		}
		return sql.Open("postgres", dsn)
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

// pqDSN adds password to a lib/pq connection string. URLs are converted to
// the key=value form first.
func pqDSN(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse database dsn: %w", err)
		}
		dsn = kv
	}
	quoted := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return dsn + " password='" + quoted + "'", nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*QueryRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().
		Model((*QueryRecord)(nil)).
		Index("query_history_course_idx").
		IfNotExists().
		Column("user_id", "course_id", "created_at").
		Exec(ctx)
	return err
}

func SaveQuery(ctx context.Context, db *bun.DB, rec *QueryRecord) error {
	_, err := db.NewInsert().Model(rec).Exec(ctx)
	return err
}

// ListHistory returns the latest questions asked about a course, newest first.
func ListHistory(ctx context.Context, db *bun.DB, userID, courseID string, limit int) ([]QueryRecord, error) {
	var records []QueryRecord
	err := historyQuery(db, &records, userID, courseID, limit).Scan(ctx)
	return records, err
}

func historyQuery(db *bun.DB, dst *[]QueryRecord, userID, courseID string, limit int) *bun.SelectQuery {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return db.NewSelect().
		Model(dst).
		Where("user_id = ?", userID).
		Where("course_id = ?", courseID).
		OrderExpr("created_at DESC").
		Limit(limit)
}

// drop the history of a deleted course

func DeleteCourseHistory(ctx context.Context, db *bun.DB, userID, courseID string) (int64, error) {
	res, err := db.NewDelete().
		Model((*QueryRecord)(nil)).
		Where("user_id = ?", userID).
		Where("course_id = ?", courseID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// History exposes the query history of one database.
type History struct {
	db *bun.DB
}

func NewHistory(db *bun.DB) *History {
	return &History{db: db}
}

func (h *History) Save(ctx context.Context, userID, courseID string, res *models.AnswerResult) error {
	return SaveQuery(ctx, h.db, NewQueryRecord(userID, courseID, res))
}

func (h *History) List(ctx context.Context, userID, courseID string, limit int) ([]QueryRecord, error) {
	return ListHistory(ctx, h.db, userID, courseID, limit)
}

func (h *History) Delete(ctx context.Context, userID, courseID string) error {
	_, err := DeleteCourseHistory(ctx, h.db, userID, courseID)
	return err
}
