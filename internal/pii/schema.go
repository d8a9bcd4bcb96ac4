package pii

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Table holds the classified columns of one table in catalog order.
type Table struct {
	Key     string
	Columns []Classification
}

// Schema is an ordered mapping of table key to classified columns.
// Tables keep the order in which they were first seen.
type Schema []Table

// Add appends a classification under its table key.
func (s *Schema) Add(c Classification) {
	key := c.Column.TableKey()
	tables := *s
	if n := len(tables); n > 0 && tables[n-1].Key == key {
		tables[n-1].Columns = append(tables[n-1].Columns, c)
		return
	}
	for i := range tables {
		if tables[i].Key == key {
			tables[i].Columns = append(tables[i].Columns, c)
			return
		}
	}
	*s = append(tables, Table{Key: key, Columns: []Classification{c}})
}

// Lookup returns the columns for a table key.
func (s Schema) Lookup(key string) ([]Classification, bool) {
	for _, t := range s {
		if t.Key == key {
			return t.Columns, true
		}
	}
	return nil, false
}

// Keys returns table keys in order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, t := range s {
		keys = append(keys, t.Key)
	}
	return keys
}

type wireColumn struct {
	Column  string     `json:"column"`
	Type    string     `json:"type"`
	PII     bool       `json:"pii"`
	Reasons []Category `json:"pii_reason"`
}

// MarshalJSON writes the column in the scan result wire shape.
func (c Classification) MarshalJSON() ([]byte, error) {
	reasons := c.Reasons
	if reasons == nil {
		reasons = []Category{}
	}
	return json.Marshal(wireColumn{
		Column:  c.Column.Name,
		Type:    c.Column.DataType,
		PII:     c.IsPII,
		Reasons: reasons,
	})
}

// UnmarshalJSON reads the wire shape. Schema and table names are
// restored by Schema.UnmarshalJSON from the enclosing key.
func (c *Classification) UnmarshalJSON(data []byte) error {
	var w wireColumn
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Column.Name = w.Column
	c.Column.DataType = w.Type
	c.IsPII = w.PII
	c.Reasons = w.Reasons
	if c.Reasons == nil {
		c.Reasons = []Category{}
	}
	return nil
}

// MarshalJSON writes the schema as a JSON object preserving table order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		cols := t.Columns
		if cols == nil {
			cols = []Classification{}
		}
		val, err := json.Marshal(cols)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the document's key order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected object, got %v", tok)
	}

	var out Schema
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: expected string key, got %v", tok)
		}
		var cols []Classification
		if err := dec.Decode(&cols); err != nil {
			return fmt.Errorf("schema %q: %w", key, err)
		}
		schemaName, tableName := splitTableKey(key)
		for i := range cols {
			cols[i].Column.Schema = schemaName
			cols[i].Column.Table = tableName
		}
		out = append(out, Table{Key: key, Columns: cols})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// TableRef names the schema and table behind a table key. Keys are
// ambiguous when a quoted identifier contains a dot, so stores that
// reload a Schema keep the refs next to it.
type TableRef struct {
	Key    string `json:"key"`
	Schema string `json:"schema_name"`
	Table  string `json:"table_name"`
}

// Refs returns the schema and table names of every table, in order.
func (s Schema) Refs() []TableRef {
	refs := make([]TableRef, 0, len(s))
	for _, t := range s {
		ref := TableRef{Key: t.Key}
		if len(t.Columns) > 0 {
			ref.Schema = t.Columns[0].Column.Schema
			ref.Table = t.Columns[0].Column.Table
		} else {
			ref.Schema, ref.Table = splitTableKey(t.Key)
		}
		refs = append(refs, ref)
	}
	return refs
}

// ApplyRefs overwrites the schema and table names guessed from keys with
// the recorded ones. Refs for unknown keys are ignored.
func (s Schema) ApplyRefs(refs []TableRef) {
	for _, ref := range refs {
		for i := range s {
			if s[i].Key != ref.Key {
				continue
			}
			for j := range s[i].Columns {
				s[i].Columns[j].Column.Schema = ref.Schema
				s[i].Columns[j].Column.Table = ref.Table
			}
		}
	}
}

// splitTableKey guesses names from a key by cutting at the first dot.
func splitTableKey(key string) (string, string) {
	schema, table, ok := strings.Cut(key, ".")
	if !ok {
		return "", key
	}
	return schema, table
}
