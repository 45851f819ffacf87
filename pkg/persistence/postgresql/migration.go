package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(100) NOT NULL,
				trigger_filter JSONB,
				steps JSONB NOT NULL DEFAULT '[]',
				enabled BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger ON workflows(trigger_type) WHERE enabled;

			CREATE TABLE runs (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				entity_type VARCHAR(50) NOT NULL DEFAULT '',
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('RUNNING', 'WAITING', 'COMPLETED', 'FAILED', 'CANCELLED')),
				current_step_index INTEGER NOT NULL DEFAULT 0,
				next_run_at TIMESTAMP WITH TIME ZONE,
				logs JSONB NOT NULL DEFAULT '[]',
				completed_at TIMESTAMP WITH TIME ZONE,
				version INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- The sweeper's two scans.
			CREATE INDEX idx_runs_due ON runs(next_run_at) WHERE status = 'WAITING';
			CREATE INDEX idx_runs_stalled ON runs(updated_at) WHERE status = 'RUNNING';
			CREATE INDEX idx_runs_workflow_id ON runs(workflow_id);
			CREATE INDEX idx_runs_entity_id ON runs(entity_id);

			CREATE TABLE clients (
				id VARCHAR(255) PRIMARY KEY,
				first_name VARCHAR(255) NOT NULL DEFAULT '',
				last_name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(100) NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				status VARCHAR(100) NOT NULL DEFAULT '',
				tags JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE jobs (
				id VARCHAR(255) PRIMARY KEY,
				client_id VARCHAR(255) NOT NULL DEFAULT '',
				technician_id VARCHAR(255) NOT NULL DEFAULT '',
				date VARCHAR(100) NOT NULL DEFAULT '',
				service_name VARCHAR(255) NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				status VARCHAR(100) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_jobs_client_id ON jobs(client_id);

			CREATE TABLE quotes (
				id VARCHAR(255) PRIMARY KEY,
				client_id VARCHAR(255) NOT NULL DEFAULT '',
				total NUMERIC(12, 2) NOT NULL DEFAULT 0,
				status VARCHAR(100) NOT NULL DEFAULT '',
				link TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE invoices (
				id VARCHAR(255) PRIMARY KEY,
				client_id VARCHAR(255) NOT NULL DEFAULT '',
				total NUMERIC(12, 2) NOT NULL DEFAULT 0,
				status VARCHAR(100) NOT NULL DEFAULT '',
				link TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE technicians (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT ''
			);

			CREATE TABLE tasks (
				id VARCHAR(255) PRIMARY KEY,
				client_id VARCHAR(255),
				job_id VARCHAR(255),
				title VARCHAR(255) NOT NULL,
				description TEXT,
				due_at TIMESTAMP WITH TIME ZONE,
				status VARCHAR(100) NOT NULL DEFAULT 'open',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_tasks_client_id ON tasks(client_id);

			CREATE TABLE email_log (
				id VARCHAR(255) PRIMARY KEY,
				run_id VARCHAR(255) NOT NULL,
				step_index INTEGER NOT NULL,
				dedup_key VARCHAR(512) NOT NULL UNIQUE,
				to_address VARCHAR(255) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL DEFAULT 'sent',
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_email_log_run_id ON email_log(run_id);
		`,
	}
}
