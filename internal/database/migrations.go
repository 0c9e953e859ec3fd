package database

// migrations is an ordered list of SQL migration groups. Each entry is a slice
// of SQL statements that are executed together in a single transaction. The
// version number is the 1-based index into this slice.
var migrations = [][]string{
	// Migration 1: type structures
	{
		`CREATE TABLE type_structures (
			name TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			label_field TEXT NOT NULL DEFAULT '',
			promoted_fields TEXT NOT NULL DEFAULT '[]',
			embedded_only BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE field_templates (
			type_name TEXT NOT NULL REFERENCES type_structures(name) ON DELETE CASCADE,
			fqn TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			display_order INTEGER NOT NULL DEFAULT 0,
			widget TEXT NOT NULL DEFAULT '',
			searchable BOOLEAN NOT NULL DEFAULT FALSE,
			required BOOLEAN NOT NULL DEFAULT FALSE,
			regex TEXT NOT NULL DEFAULT '',
			max_length INTEGER,
			min_items INTEGER,
			max_items INTEGER,
			min_value REAL,
			max_value REAL,
			target_types TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (type_name, fqn)
		)`,

		`CREATE TABLE incoming_links (
			type_name TEXT NOT NULL REFERENCES type_structures(name) ON DELETE CASCADE,
			fqn TEXT NOT NULL,
			source_type TEXT NOT NULL,
			spaces TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (type_name, fqn, source_type)
		)`,
	},

	// Migration 2: instances, their links and release state
	{
		`CREATE TABLE instances (
			id TEXT PRIMARY KEY,
			space TEXT NOT NULL,
			document TEXT NOT NULL DEFAULT '{}',
			alternatives TEXT NOT NULL DEFAULT '{}',
			permissions TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_instances_space ON instances(space)`,

		`CREATE TABLE instance_types (
			instance_id TEXT NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
			type_name TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (instance_id, type_name)
		)`,
		`CREATE INDEX idx_instance_types_type ON instance_types(type_name)`,

		`CREATE TABLE instance_links (
			from_id TEXT NOT NULL REFERENCES instances(id) ON DELETE CASCADE,
			property TEXT NOT NULL,
			to_id TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (from_id, property, to_id)
		)`,
		`CREATE INDEX idx_instance_links_to ON instance_links(to_id)`,

		`CREATE TABLE releases (
			instance_id TEXT PRIMARY KEY REFERENCES instances(id) ON DELETE CASCADE,
			released_at TEXT NOT NULL
		)`,
	},
}

// DataTables lists every data table in foreign-key-safe deletion order.
var DataTables = []string{
	"releases",
	"instance_links",
	"instance_types",
	"instances",
	"incoming_links",
	"field_templates",
	"type_structures",
}
