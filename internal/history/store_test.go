package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/piispectre/internal/pii"
	"github.com/ppiankov/piispectre/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))

func sampleSchema() pii.Schema {
	var s pii.Schema
	for _, name := range []string{"id", "user_email", "phone_number", "notes"} {
		s.Add(pii.ClassifyColumn(pii.Column{Schema: "public", Table: "users", Name: name, DataType: "text"}))
	}
	return s
}

type storeFactory func(t *testing.T) Store

func fileFactory(t *testing.T) Store {
	s := NewFileStore(filepath.Join(t.TempDir(), "scan_history.json"))
	s.now = func() time.Time { return fixedNow }
	return s
}

func sqliteFactory(t *testing.T) Store {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores(t *testing.T) {
	factories := map[string]storeFactory{
		"file":   fileFactory,
		"sqlite": sqliteFactory,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("append assigns increasing ids", func(t *testing.T) { testAppendIDs(t, factory(t)) })
			t.Run("list filters by datasource", func(t *testing.T) { testListFilter(t, factory(t)) })
			t.Run("get", func(t *testing.T) { testGet(t, factory(t)) })
			t.Run("empty store", func(t *testing.T) { testEmpty(t, factory(t)) })
			t.Run("dotted schema names survive reload", func(t *testing.T) { testDottedNames(t, factory(t)) })
		})
	}
}

func testAppendIDs(t *testing.T, s Store) {
	ctx := context.Background()
	schema := sampleSchema()
	summary := risk.Summarize(schema)

	prev := 0
	for i := 0; i < 4; i++ {
		e, err := s.Append(ctx, "ds-1", summary, schema)
		require.NoError(t, err)
		assert.Greater(t, e.ID, prev)
		assert.Equal(t, i+1, e.ID)
		assert.Equal(t, time.UTC, e.ScannedAt.Location())
		assert.True(t, e.ScannedAt.Equal(fixedNow))
		prev = e.ID
	}
}

func testListFilter(t *testing.T, s Store) {
	ctx := context.Background()
	schema := sampleSchema()
	summary := risk.Summarize(schema)

	for _, ds := range []string{"a", "b", "a", "c", "a"} {
		_, err := s.Append(ctx, ds, summary, schema)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 5)

	onlyA, err := s.List(ctx, "a")
	require.NoError(t, err)

	var want []int
	for _, e := range all {
		if e.DatasourceID == "a" {
			want = append(want, e.ID)
		}
	}
	var got []int
	for _, e := range onlyA {
		got = append(got, e.ID)
	}
	assert.Equal(t, []int{1, 3, 5}, got)
	assert.Equal(t, want, got)

	none, err := s.List(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testGet(t *testing.T, s Store) {
	ctx := context.Background()
	schema := sampleSchema()
	summary := risk.Summarize(schema)

	_, err := s.Append(ctx, "ds-1", summary, schema)
	require.NoError(t, err)
	second, err := s.Append(ctx, "ds-2", summary, schema)
	require.NoError(t, err)

	got, err := s.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "ds-2", got.DatasourceID)
	assert.Equal(t, risk.LevelHigh, got.Summary.OverallRisk)
	assert.Equal(t, 0.5, got.Summary.PIIRatio)
	assert.Equal(t, []string{"public.users"}, got.Schema.Keys())

	cols, ok := got.Schema.Lookup("public.users")
	require.True(t, ok)
	require.Len(t, cols, 4)
	assert.Equal(t, "user_email", cols[1].Column.Name)
	assert.Equal(t, "users", cols[1].Column.Table)
	assert.Equal(t, []pii.Category{pii.CategoryEmail}, cols[1].Reasons)

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testEmpty(t *testing.T, s Store) {
	ctx := context.Background()
	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	_, err = s.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_DegradesToEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"empty":   "",
		"corrupt": "[{\"id\": 1,",
		"object":  `{"id": 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scan_history.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			s := NewFileStore(path)

			all, err := s.List(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, all)

			e, err := s.Append(context.Background(), "ds", risk.Summarize(nil), nil)
			require.NoError(t, err)
			assert.Equal(t, 1, e.ID)

			all, err = s.List(context.Background(), "")
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_history.json")
	schema := sampleSchema()

	_, err := NewFileStore(path).Append(context.Background(), "ds", risk.Summarize(schema), schema)
	require.NoError(t, err)

	e, err := NewFileStore(path).Append(context.Background(), "ds", risk.Summarize(schema), schema)
	require.NoError(t, err)
	assert.Equal(t, 2, e.ID)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", filepath.Join(dir, "h.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(DriverSQLite, filepath.Join(dir, "h.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("mongo", "x")
	assert.Error(t, err)
}

func testDottedNames(t *testing.T, s Store) {
	ctx := context.Background()
	var schema pii.Schema
	for _, name := range []string{"id", "user_email"} {
		schema.Add(pii.ClassifyColumn(pii.Column{Schema: "sales.eu", Table: "customers", Name: name, DataType: "text"}))
	}

	e, err := s.Append(ctx, "ds", risk.Summarize(schema), schema)
	require.NoError(t, err)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	cols, ok := got.Schema.Lookup("sales.eu.customers")
	require.True(t, ok)
	require.Len(t, cols, 2)
	for _, c := range cols {
		assert.Equal(t, "sales.eu", c.Column.Schema)
		assert.Equal(t, "customers", c.Column.Table)
	}

	all, err := s.List(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "sales.eu", all[0].Schema[0].Columns[0].Column.Schema)
}

func TestEntryJSON_WithoutTableRefs(t *testing.T) {
	data := `{"id":1,"datasource_id":"ds","scanned_at":"2026-03-14T08:26:53Z",
		"summary":{"total_columns":1,"pii_columns":0,"pii_ratio":0,"overall_risk":"none","table_risks":{}},
		"schema":{"public.users":[{"column":"id","type":"integer","pii":false,"pii_reason":[]}]}}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(data), &e))
	cols, ok := e.Schema.Lookup("public.users")
	require.True(t, ok)
	assert.Equal(t, "public", cols[0].Column.Schema)
	assert.Equal(t, "users", cols[0].Column.Table)
}

func TestSQLiteStore_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.db")
	garbage := strings.Repeat("not a sqlite database ", 200)
	require.NoError(t, os.WriteFile(path, []byte(garbage), 0o644))

	s, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	all, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)

	e, err := s.Append(context.Background(), "ds", risk.Summarize(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.ID)

	moved, err := filepath.Glob(filepath.Join(dir, "h.db.corrupt-*"))
	require.NoError(t, err)
	require.Len(t, moved, 1)
	data, err := os.ReadFile(moved[0])
	require.NoError(t, err)
	assert.Equal(t, garbage, string(data))
}
