package storage

// builtinMigrations is the application's full migration history. Versions are
// append-only; never edit an entry that may already be applied somewhere.
func builtinMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "initial_schema", Statements: initialSchema()},
		{Version: 2, Name: "add_indexes", Statements: addIndexes()},
		{Version: 3, Name: "initial_data", Statements: initialData()},
	}
}

func initialSchema() []string {
	return []string{
		`CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(50) UNIQUE NOT NULL,
			description TEXT,
			can_read BOOLEAN DEFAULT 1,
			can_write BOOLEAN DEFAULT 0,
			can_delete BOOLEAN DEFAULT 0,
			can_approve BOOLEAN DEFAULT 0,
			can_admin BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(200) NOT NULL,
			position VARCHAR(200),
			is_active BOOLEAN DEFAULT 1,
			role_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (role_id) REFERENCES roles(id)
		)`,

		`CREATE TABLE audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			action VARCHAR(50) NOT NULL,
			table_name VARCHAR(50) NOT NULL,
			record_id INTEGER,
			old_values JSON,
			new_values JSON,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,

		`CREATE TABLE departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code VARCHAR(2) UNIQUE NOT NULL,
			name VARCHAR(200) NOT NULL,
			parent_id INTEGER,
			head_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (parent_id) REFERENCES departments(id),
			FOREIGN KEY (head_id) REFERENCES officials(id)
		)`,

		`CREATE TABLE officials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			military_unit VARCHAR(10),
			department_id INTEGER,
			position VARCHAR(200) NOT NULL,
			rank VARCHAR(100),
			full_name VARCHAR(200) NOT NULL,
			is_responsible BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (department_id) REFERENCES departments(id)
		)`,

		`CREATE TABLE material_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code VARCHAR(5) UNIQUE NOT NULL,
			name VARCHAR(200) NOT NULL,
			department_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (department_id) REFERENCES departments(id)
		)`,

		// Classification sub-fields are derived from the fixed-width 10-char
		// code: CC GGG SS NNN.
		`CREATE TABLE nomenclature (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code CHAR(10) UNIQUE NOT NULL,
			okp_code VARCHAR(20),
			name VARCHAR(500) NOT NULL,
			unit VARCHAR(50) NOT NULL,
			price DECIMAL(15,2) DEFAULT 0,
			weight_unit DECIMAL(10,3),
			weight_total DECIMAL(10,3),

			class_code CHAR(2) GENERATED ALWAYS AS (SUBSTR(code, 1, 2)) STORED,
			group_code CHAR(3) GENERATED ALWAYS AS (SUBSTR(code, 3, 3)) STORED,
			subgroup_code CHAR(2) GENERATED ALWAYS AS (SUBSTR(code, 6, 2)) STORED,
			item_number CHAR(3) GENERATED ALWAYS AS (SUBSTR(code, 8, 3)) STORED,

			department_id INTEGER,
			is_active BOOLEAN DEFAULT 1,
			is_temporary BOOLEAN DEFAULT 0,

			base_document VARCHAR(200),
			document_date DATE,

			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			created_by INTEGER,
			updated_by INTEGER,

			FOREIGN KEY (department_id) REFERENCES departments(id),
			FOREIGN KEY (created_by) REFERENCES users(id),
			FOREIGN KEY (updated_by) REFERENCES users(id)
		)`,

		`CREATE TABLE categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code INTEGER UNIQUE NOT NULL CHECK(code BETWEEN 1 AND 5),
			name VARCHAR(100) NOT NULL,
			description TEXT
		)`,
	}
}

func addIndexes() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_date ON audit_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_table ON audit_log(table_name, record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nomenclature_code ON nomenclature(code)`,
		`CREATE INDEX IF NOT EXISTS idx_nomenclature_class ON nomenclature(class_code)`,
		`CREATE INDEX IF NOT EXISTS idx_nomenclature_group ON nomenclature(group_code)`,
		`CREATE INDEX IF NOT EXISTS idx_nomenclature_dept ON nomenclature(department_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nomenclature_active ON nomenclature(is_active)`,
	}
}

func initialData() []string {
	return []string{
		`INSERT OR IGNORE INTO roles (name, description, can_read, can_write, can_delete, can_approve, can_admin) VALUES
			('Administrator', 'Full access', 1, 1, 1, 1, 1),
			('Operator', 'Data entry and editing', 1, 1, 0, 0, 0),
			('Supervisor', 'Document approval', 1, 1, 0, 1, 0),
			('Viewer', 'Read-only access', 1, 0, 0, 0, 0)`,

		`INSERT OR IGNORE INTO categories (code, name) VALUES
			(1, 'First category'),
			(2, 'Second category'),
			(3, 'Third category'),
			(4, 'Fourth category'),
			(5, 'Fifth category')`,

		// Bootstrap administrator with a pre-computed bcrypt hash. The
		// password must be rotated on first login.
		`INSERT OR IGNORE INTO users (username, password_hash, full_name, position, role_id)
			VALUES ('admin', '$2b$12$LQv3c1yqBWVHxkd0LHAkCOYz6TtxMQJqhN8/LewY/YEhyFRRMJiJa',
			'System Administrator', 'Administrator', 1)`,
	}
}
