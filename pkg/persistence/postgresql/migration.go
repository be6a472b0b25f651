package postgresql

// migrations returns the versioned schema. JSONB columns hold the opaque
// configuration and context documents.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type TEXT NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT FALSE,
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_trigger_type
				ON workflows (trigger_type) WHERE is_active;

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status TEXT NOT NULL,
				trigger_payload JSONB NOT NULL DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_executions_workflow
				ON workflow_executions (workflow_id, started_at);

			CREATE TABLE IF NOT EXISTS step_executions (
				id TEXT PRIMARY KEY,
				execution_id TEXT NOT NULL REFERENCES workflow_executions (id),
				step_id TEXT NOT NULL,
				step_number INTEGER NOT NULL,
				status TEXT NOT NULL,
				input_context JSONB,
				output_data JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				retry_count INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_step_executions_execution
				ON step_executions (execution_id, step_number);
		`,
	}
}
