package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/wardenhq/warden/pkg/models"
	"github.com/wardenhq/warden/pkg/persistence"
)

// ExecutionRepository stores each execution as a JSON file plus two append-only
// JSONL side files for step logs and free-text messages:
//
//	root/executions/<id>.json
//	root/executions/<id>.logs.jsonl
//	root/executions/<id>.messages.jsonl
type ExecutionRepository struct {
	root string

	mu sync.Mutex // serializes appends to the JSONL files
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) dir() string {
	return path.Join(er.root, "executions")
}

func (er *ExecutionRepository) executionPath(executionID string) string {
	return filepath.Clean(path.Join(er.dir(), executionID+".json"))
}

func (er *ExecutionRepository) CreateExecution(_ context.Context, execution *models.Execution) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	return er.writeExecution(execution)
}

func (er *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	if _, err := er.GetExecution(ctx, execution.ID); err != nil {
		return err
	}

	return er.writeExecution(execution)
}

func (er *ExecutionRepository) writeExecution(execution *models.Execution) error {
	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	return os.WriteFile(er.executionPath(execution.ID), data, 0600)
}

func (er *ExecutionRepository) GetExecution(_ context.Context, executionID string) (*models.Execution, error) {
	body, err := os.ReadFile(er.executionPath(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetExecution", executionID, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	var execution models.Execution

	err = json.Unmarshal(body, &execution)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) ListExecutions(ctx context.Context, workflowID string, opts persistence.ListOptions) ([]*models.Execution, error) {
	if _, err := os.Stat(er.dir()); os.IsNotExist(err) {
		return make([]*models.Execution, 0), nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(er.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, file := range jsonFiles {
		executionID := file[:len(file)-5] // strip .json

		execution, err := er.GetExecution(ctx, executionID)
		if err != nil {
			if persistence.IsExecutionNotFound(err) {
				continue
			}

			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return paginate(executions, opts), nil
}

func (er *ExecutionRepository) AppendStepLog(_ context.Context, log *models.ExecutionLog) error {
	return er.appendLine(log.ExecutionID+".logs.jsonl", log)
}

func (er *ExecutionRepository) ListStepLogs(_ context.Context, executionID string, opts persistence.ListOptions) ([]*models.ExecutionLog, error) {
	logs := make([]*models.ExecutionLog, 0)

	err := er.readLines(executionID+".logs.jsonl", func(line []byte) error {
		var log models.ExecutionLog
		if err := json.Unmarshal(line, &log); err != nil {
			return fmt.Errorf("failed to unmarshal step log: %w", err)
		}

		logs = append(logs, &log)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].StepOrder != logs[j].StepOrder {
			return logs[i].StepOrder < logs[j].StepOrder
		}

		if logs[i].Attempt != logs[j].Attempt {
			return logs[i].Attempt < logs[j].Attempt
		}

		return logs[i].StepStatus.Rank() < logs[j].StepStatus.Rank()
	})

	return paginate(logs, opts), nil
}

func (er *ExecutionRepository) AppendLogMessage(_ context.Context, message *models.LogMessage) error {
	return er.appendLine(message.ExecutionID+".messages.jsonl", message)
}

func (er *ExecutionRepository) ListLogMessages(_ context.Context, executionID string, opts persistence.ListOptions) ([]*models.LogMessage, error) {
	messages := make([]*models.LogMessage, 0)

	err := er.readLines(executionID+".messages.jsonl", func(line []byte) error {
		var message models.LogMessage
		if err := json.Unmarshal(line, &message); err != nil {
			return fmt.Errorf("failed to unmarshal log message: %w", err)
		}

		messages = append(messages, &message)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].LogTime.Before(messages[j].LogTime)
	})

	return paginate(messages, opts), nil
}

func (er *ExecutionRepository) appendLine(fileName string, record any) error {
	err := os.MkdirAll(er.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	filePath := filepath.Clean(path.Join(er.dir(), fileName))

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", fileName, err)
	}

	return nil
}

func (er *ExecutionRepository) readLines(fileName string, fn func(line []byte) error) error {
	filePath := filepath.Clean(path.Join(er.dir(), fileName))

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	return nil
}

func paginate[T any](items []T, opts persistence.ListOptions) []T {
	start := opts.Offset
	if start >= len(items) {
		return make([]T, 0)
	}

	end := start + opts.LimitOrDefault()
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
