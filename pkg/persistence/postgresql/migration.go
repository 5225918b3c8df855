package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Generic record table, one row per (table_name, id)
			CREATE TABLE records (
				table_name VARCHAR(63) NOT NULL,
				id VARCHAR(255) NOT NULL,
				data JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (table_name, id)
			);

			CREATE INDEX idx_records_table_name ON records(table_name);
			CREATE INDEX idx_records_data ON records USING GIN (data jsonb_path_ops);
		`,
		2: `
			-- Relationship lookups by source and target
			CREATE INDEX idx_records_relationship_source ON records ((data->>'source_id'), (data->>'source_type'))
				WHERE table_name = 'module_relationships';
			CREATE INDEX idx_records_created_at ON records(created_at);
		`,
	}
}
