package types

// DBSchema represents the structure of one schema read from a database
type DBSchema struct {
	Name        string         `json:"name"`
	Tables      []DBTable      `json:"tables"`
	Indexes     []DBIndex      `json:"indexes"`
	Constraints []DBConstraint `json:"constraints"`
}

// Table returns the table with the given name, or nil.
func (s *DBSchema) Table(name string) *DBTable {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns the names of all tables in read order.
func (s *DBSchema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// DBTable represents a database table
type DBTable struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"` // BASE TABLE, VIEW, etc.
	Columns []DBColumn `json:"columns"`
}

// DBColumn represents a database column
type DBColumn struct {
	Name               string  `json:"name"`
	DataType           string  `json:"data_type"`
	IsNullable         string  `json:"is_nullable"`          // YES/NO
	ColumnDefault      *string `json:"column_default"`       // Can be NULL
	CharacterMaxLength *int64  `json:"character_max_length"` // For VARCHAR, etc.
	OrdinalPosition    int     `json:"ordinal_position"`
}

// DBIndex represents a database index
type DBIndex struct {
	Name      string `json:"name"`
	TableName string `json:"table_name"`
	IsUnique  bool   `json:"is_unique"`
}

// DBConstraint represents a database constraint
type DBConstraint struct {
	Name      string `json:"name"`
	TableName string `json:"table_name"`
	Type      string `json:"type"` // PRIMARY KEY, FOREIGN KEY, UNIQUE, CHECK
}

// DBInfo contains connection and metadata information
type DBInfo struct {
	Dialect string `json:"dialect"` // postgres, mysql, mariadb
	Version string `json:"version"`
	Schema  string `json:"schema"` // public, database name, etc.
	URL     string `json:"url"`    // database connection URL (for reference)
}
