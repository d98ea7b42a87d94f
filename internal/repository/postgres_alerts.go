package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"go.uber.org/zap"
)

// PostgresAlertsRepository 报警仓库 PostgreSQL 实现
type PostgresAlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ AlertsRepository = (*PostgresAlertsRepository)(nil)

// NewPostgresAlertsRepository 创建报警仓库
func NewPostgresAlertsRepository(db *sql.DB, logger *zap.Logger) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{db: db, logger: logger}
}

const alertColumns = `
	alert_id,
	user_id,
	device_id,
	title,
	message,
	alert_type,
	severity,
	is_read,
	read_at,
	is_resolved,
	resolved_at,
	action_taken,
	additional_data,
	created_at
`

// CreateAlert 写入报警
func (r *PostgresAlertsRepository) CreateAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	additionalData := alert.AdditionalData
	if len(additionalData) == 0 {
		additionalData = json.RawMessage("{}")
	}

	query := `
		INSERT INTO alerts (
			alert_id,
			user_id,
			device_id,
			title,
			message,
			alert_type,
			severity,
			is_read,
			is_resolved,
			additional_data,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.UserID,
		alert.DeviceID,
		alert.Title,
		alert.Message,
		alert.AlertType,
		alert.Severity,
		alert.IsRead,
		alert.IsResolved,
		additionalData,
		alert.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// GetAlert 按 ID 查询报警
func (r *PostgresAlertsRepository) GetAlert(ctx context.Context, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE alert_id = $1`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return alert, nil
}

// GetRecentUnresolvedAlert 去重检查
// 只看未解决的报警；deviceID 为 nil 时匹配无设备报警
func (r *PostgresAlertsRepository) GetRecentUnresolvedAlert(ctx context.Context, deviceID *string, alertType string, within time.Duration) (*domain.Alert, error) {
	if alertType == "" {
		return nil, fmt.Errorf("alert_type is required")
	}
	if within <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}

	thresholdTime := time.Now().Add(-within)

	var row *sql.Row
	if deviceID != nil {
		query := fmt.Sprintf(`
			SELECT %s
			FROM alerts
			WHERE device_id = $1
			  AND alert_type = $2
			  AND created_at > $3
			  AND is_resolved = FALSE
			ORDER BY created_at DESC
			LIMIT 1
		`, alertColumns)
		row = r.db.QueryRowContext(ctx, query, *deviceID, alertType, thresholdTime)
	} else {
		query := fmt.Sprintf(`
			SELECT %s
			FROM alerts
			WHERE device_id IS NULL
			  AND alert_type = $1
			  AND created_at > $2
			  AND is_resolved = FALSE
			ORDER BY created_at DESC
			LIMIT 1
		`, alertColumns)
		row = r.db.QueryRowContext(ctx, query, alertType, thresholdTime)
	}

	alert, err := scanAlert(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return alert, nil
}

// ListAlerts 列表查询（过滤 + 分页）
func (r *PostgresAlertsRepository) ListAlerts(ctx context.Context, filters AlertFilters, page, size int) ([]*domain.Alert, int, error) {
	args := []interface{}{}
	argN := 1
	where := []string{}

	if filters.UserID != nil {
		where = append(where, fmt.Sprintf("user_id = $%d", argN))
		args = append(args, *filters.UserID)
		argN++
	}
	if filters.DeviceID != nil {
		where = append(where, fmt.Sprintf("device_id = $%d", argN))
		args = append(args, *filters.DeviceID)
		argN++
	}
	if filters.AlertType != nil {
		where = append(where, fmt.Sprintf("alert_type = $%d", argN))
		args = append(args, *filters.AlertType)
		argN++
	}
	if filters.Severity != nil {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, *filters.Severity)
		argN++
	}
	if len(filters.Severities) > 0 {
		placeholders := make([]string, len(filters.Severities))
		for i := range filters.Severities {
			placeholders[i] = fmt.Sprintf("$%d", argN)
			args = append(args, filters.Severities[i])
			argN++
		}
		where = append(where, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filters.IsRead != nil {
		where = append(where, fmt.Sprintf("is_read = $%d", argN))
		args = append(args, *filters.IsRead)
		argN++
	}
	if filters.IsResolved != nil {
		where = append(where, fmt.Sprintf("is_resolved = $%d", argN))
		args = append(args, *filters.IsResolved)
		argN++
	}
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argN))
		args = append(args, *filters.StartTime)
		argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", argN))
		args = append(args, *filters.EndTime)
		argN++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM alerts %s`, whereClause)

	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, alertColumns, whereClause, argN, argN+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, total, nil
}

// MarkAlertRead 标记已读
func (r *PostgresAlertsRepository) MarkAlertRead(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET is_read = TRUE,
		    read_at = $1
		WHERE alert_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: alert_id=%s", ErrAlertNotFound, alertID)
	}

	return nil
}

// ResolveAlert 标记已解决
func (r *PostgresAlertsRepository) ResolveAlert(ctx context.Context, alertID string, actionTaken string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET is_resolved = TRUE,
		    resolved_at = $1,
		    action_taken = $2
		WHERE alert_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), actionTaken, alertID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: alert_id=%s", ErrAlertNotFound, alertID)
	}

	return nil
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var alert domain.Alert
	var deviceID, actionTaken sql.NullString
	var readAt, resolvedAt sql.NullTime
	var additionalData []byte

	err := row.Scan(
		&alert.AlertID,
		&alert.UserID,
		&deviceID,
		&alert.Title,
		&alert.Message,
		&alert.AlertType,
		&alert.Severity,
		&alert.IsRead,
		&readAt,
		&alert.IsResolved,
		&resolvedAt,
		&actionTaken,
		&additionalData,
		&alert.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if deviceID.Valid {
		alert.DeviceID = &deviceID.String
	}
	if readAt.Valid {
		alert.ReadAt = &readAt.Time
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if actionTaken.Valid {
		alert.ActionTaken = &actionTaken.String
	}
	if len(additionalData) > 0 {
		alert.AdditionalData = additionalData
	} else {
		alert.AdditionalData = json.RawMessage("{}")
	}

	return &alert, nil
}
