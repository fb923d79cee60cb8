package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create conversions table
			CREATE TABLE conversions (
				id VARCHAR(64) PRIMARY KEY,
				source_name VARCHAR(255) NOT NULL,
				filename VARCHAR(255),
				workflow JSONB NOT NULL,
				warnings JSONB NOT NULL DEFAULT '[]',
				node_count INT NOT NULL DEFAULT 0,
				unmapped_count INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_conversions_created_at ON conversions(created_at);
		`,
	}
}
