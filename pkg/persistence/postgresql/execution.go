package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

// ExecutionRepository handles execution, step log and log message storage.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	triggerDataJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, server_id, trigger_id, status, trigger_data, error_message, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.ServerID,
		execution.TriggerID,
		execution.Status,
		triggerDataJSON,
		nullString(execution.Error),
		execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	query := `
		UPDATE executions
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		nullString(execution.Error),
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewExecutionError("UpdateExecution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

const executionColumns = `
	id
  , workflow_id
  , server_id
  , trigger_id
  , status
  , trigger_data
  , error_message
  , started_at
  , completed_at
`

func (r *ExecutionRepository) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, executionID)

	execution, err := r.scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetExecution", executionID, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string, opts persistence.ListOptions) ([]*models.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, opts.LimitOrDefault(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer r.closeRows(ctx, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) AppendStepLog(ctx context.Context, log *models.ExecutionLog) error {
	stepInputJSON, err := json.Marshal(log.StepInput)
	if err != nil {
		return fmt.Errorf("failed to marshal step input: %w", err)
	}

	stepOutputJSON, err := json.Marshal(log.StepOutput)
	if err != nil {
		return fmt.Errorf("failed to marshal step output: %w", err)
	}

	variablesJSON, err := json.Marshal(log.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	metadataJSON, err := json.Marshal(log.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO execution_logs (id, execution_id, step_order, attempt, step_id, step_name, step_type, step_status,
			step_input, step_output, step_duration_ms, variables, metadata, error_message, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.ExecutionID,
		log.StepOrder,
		log.Attempt,
		log.StepID,
		log.StepName,
		log.StepType,
		log.StepStatus,
		stepInputJSON,
		stepOutputJSON,
		log.DurationMs,
		variablesJSON,
		metadataJSON,
		nullString(log.Error),
		log.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append step log: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) ListStepLogs(ctx context.Context, executionID string, opts persistence.ListOptions) ([]*models.ExecutionLog, error) {
	// Running rows sort before terminal rows of the same attempt.
	query := `
		SELECT id, execution_id, step_order, attempt, step_id, step_name, step_type, step_status,
			step_input, step_output, step_duration_ms, variables, metadata, error_message, logged_at
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY step_order, attempt, CASE WHEN step_status = 'running' THEN 0 ELSE 1 END, logged_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, executionID, opts.LimitOrDefault(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query step logs: %w", err)
	}

	defer r.closeRows(ctx, rows)

	logs := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			log                                               models.ExecutionLog
			stepInputJSON, stepOutputJSON, varsJSON, metaJSON []byte
			durationMs                                        sql.NullInt64
			errorMessage                                      sql.NullString
		)

		err := rows.Scan(
			&log.ID,
			&log.ExecutionID,
			&log.StepOrder,
			&log.Attempt,
			&log.StepID,
			&log.StepName,
			&log.StepType,
			&log.StepStatus,
			&stepInputJSON,
			&stepOutputJSON,
			&durationMs,
			&varsJSON,
			&metaJSON,
			&errorMessage,
			&log.LoggedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step log: %w", err)
		}

		log.DurationMs = durationMs.Int64
		log.Error = errorMessage.String

		if err := unmarshalInto(stepInputJSON, &log.StepInput); err != nil {
			return nil, err
		}

		if err := unmarshalInto(stepOutputJSON, &log.StepOutput); err != nil {
			return nil, err
		}

		if err := unmarshalInto(varsJSON, &log.Variables); err != nil {
			return nil, err
		}

		if err := unmarshalInto(metaJSON, &log.Metadata); err != nil {
			return nil, err
		}

		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step logs: %w", err)
	}

	return logs, nil
}

func (r *ExecutionRepository) AppendLogMessage(ctx context.Context, message *models.LogMessage) error {
	variablesJSON, err := json.Marshal(message.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	metadataJSON, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO log_messages (id, execution_id, step_id, step_name, log_time, log_level, message, variables, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		message.ID,
		message.ExecutionID,
		nullString(message.StepID),
		nullString(message.StepName),
		message.LogTime,
		message.Level,
		message.Message,
		variablesJSON,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append log message: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) ListLogMessages(ctx context.Context, executionID string, opts persistence.ListOptions) ([]*models.LogMessage, error) {
	query := `
		SELECT id, execution_id, step_id, step_name, log_time, log_level, message, variables, metadata
		FROM log_messages
		WHERE execution_id = $1
		ORDER BY log_time
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, executionID, opts.LimitOrDefault(), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query log messages: %w", err)
	}

	defer r.closeRows(ctx, rows)

	messages := make([]*models.LogMessage, 0)

	for rows.Next() {
		var (
			message            models.LogMessage
			stepID, stepName   sql.NullString
			varsJSON, metaJSON []byte
		)

		err := rows.Scan(
			&message.ID,
			&message.ExecutionID,
			&stepID,
			&stepName,
			&message.LogTime,
			&message.Level,
			&message.Message,
			&varsJSON,
			&metaJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log message: %w", err)
		}

		message.StepID = stepID.String
		message.StepName = stepName.String

		if err := unmarshalInto(varsJSON, &message.Variables); err != nil {
			return nil, err
		}

		if err := unmarshalInto(metaJSON, &message.Metadata); err != nil {
			return nil, err
		}

		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log messages: %w", err)
	}

	return messages, nil
}

func (r *ExecutionRepository) scanExecution(scanner interface {
	Scan(dest ...any) error
}) (*models.Execution, error) {
	var (
		execution       models.Execution
		triggerDataJSON []byte
		errorMessage    sql.NullString
	)

	err := scanner.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.ServerID,
		&execution.TriggerID,
		&execution.Status,
		&triggerDataJSON,
		&errorMessage,
		&execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Error = errorMessage.String

	if err := unmarshalInto(triggerDataJSON, &execution.TriggerData); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func unmarshalInto[T any](data []byte, dest *T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal column: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
