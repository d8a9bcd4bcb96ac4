package pii

// Column describes one physical column as read from the catalog.
type Column struct {
	Schema   string `json:"schema_name"`
	Table    string `json:"table_name"`
	Name     string `json:"column_name"`
	DataType string `json:"data_type"`
}

// TableKey returns the "schema.table" key the column belongs to.
func (c Column) TableKey() string {
	return TableKey(c.Schema, c.Table)
}

// TableKey builds a lookup key from schema and table name.
func TableKey(schema, table string) string {
	return schema + "." + table
}

// Classification is a column together with the categories its name triggered.
type Classification struct {
	Column  Column
	IsPII   bool
	Reasons []Category
}

// ClassifyColumn classifies a catalog column by name.
func ClassifyColumn(c Column) Classification {
	reasons := Classify(c.Name)
	return Classification{
		Column:  c,
		IsPII:   len(reasons) > 0,
		Reasons: reasons,
	}
}

// HasHighSensitivity reports whether any of the classification's reasons is high-sensitivity.
func (c Classification) HasHighSensitivity() bool {
	for _, r := range c.Reasons {
		if IsHighSensitivity(r) {
			return true
		}
	}
	return false
}
