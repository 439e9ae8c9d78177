package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				server_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				definition JSONB NOT NULL,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_server_id ON workflows(server_id);
			CREATE INDEX idx_workflows_server_enabled ON workflows(server_id, enabled);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Create executions table
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				server_id VARCHAR(255) NOT NULL,
				trigger_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				trigger_data JSONB DEFAULT '{}',
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_server_id ON executions(server_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);

			-- Create execution_logs table (append-only step rows)
			CREATE TABLE execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				step_order INT NOT NULL,
				attempt INT NOT NULL DEFAULT 1,
				step_id VARCHAR(255) NOT NULL,
				step_name VARCHAR(255) NOT NULL DEFAULT '',
				step_type VARCHAR(50) NOT NULL,
				step_status VARCHAR(50) NOT NULL,
				step_input JSONB,
				step_output JSONB,
				step_duration_ms BIGINT,
				variables JSONB,
				metadata JSONB,
				error_message TEXT,
				logged_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_execution_id ON execution_logs(execution_id);
			CREATE INDEX idx_execution_logs_order ON execution_logs(execution_id, step_order, attempt);

			-- Create log_messages table (free-text stream)
			CREATE TABLE log_messages (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				step_id VARCHAR(255),
				step_name VARCHAR(255),
				log_time TIMESTAMP WITH TIME ZONE NOT NULL,
				log_level VARCHAR(20) NOT NULL,
				message TEXT NOT NULL,
				variables JSONB,
				metadata JSONB
			);

			CREATE INDEX idx_log_messages_execution_id ON log_messages(execution_id);
			CREATE INDEX idx_log_messages_log_time ON log_messages(execution_id, log_time);
		`,
	}
}
