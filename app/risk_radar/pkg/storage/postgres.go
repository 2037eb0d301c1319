// Package storage 预警的 Postgres 归档
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/config"
	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alert_reports (
		id SERIAL PRIMARY KEY,
		alert_id TEXT UNIQUE NOT NULL,
		alert_level TEXT,
		risk_level TEXT,
		summary TEXT,
		target_topics TEXT,
		recommendations TEXT,
		payload JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS alert_risk_factors (
		id SERIAL PRIMARY KEY,
		alert_report_id INTEGER REFERENCES alert_reports(id) ON DELETE CASCADE,
		factor TEXT
	)`,
}

type Storage struct {
	db *sql.DB
}

// DSN 由配置生成 lib/pq 连接串
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
}

// NewStorage 连接数据库并初始化表结构
func NewStorage(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewWithDB(db)
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewWithDB 使用已有连接
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// InitSchema 建表
func (s *Storage) InitSchema(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// SaveAlert 在一个事务中写入预警及其风险因素，重复的 alert_id 会被忽略
func (s *Storage) SaveAlert(ctx context.Context, report *model.AlertReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	topics, _ := json.Marshal(report.TargetTopics)
	recs, _ := json.Marshal(report.Recommendations)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var reportID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO alert_reports (alert_id, alert_level, risk_level, summary, target_topics, recommendations, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (alert_id) DO NOTHING
		RETURNING id`,
		report.AlertID, report.AlertLevel, report.RiskLevel, report.Summary,
		string(topics), string(recs), string(payload)).Scan(&reportID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert alert report: %w", err)
	}

	for _, factor := range report.RiskFactors {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alert_risk_factors (alert_report_id, factor)
			VALUES ($1, $2)`,
			reportID, factor)
		if err != nil {
			return fmt.Errorf("failed to insert risk factor: %w", err)
		}
	}

	return tx.Commit()
}

// RecentAlerts 按写入时间倒序读取最近的预警
func (s *Storage) RecentAlerts(ctx context.Context, limit int) ([]model.AlertReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM alert_reports
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out := []model.AlertReport{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.AlertReport
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode alert payload: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
