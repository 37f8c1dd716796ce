package regexengine

import (
	"context"
	"database/sql"
	"testing"
)

func init() {
	RegisterDriver("sqlite3_regexp_test")
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3_regexp_test", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	schema := `
		CREATE TABLE documents (document_id TEXT PRIMARY KEY, filename TEXT, project_id TEXT);
		CREATE TABLE chunks (chunk_id TEXT PRIMARY KEY, document_id TEXT, content TEXT, chunk_index INTEGER, page_number INTEGER);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestValidatePatternRejectsInvalidSyntax(t *testing.T) {
	valid, _, estimate := ValidatePattern("[unterminated")
	if valid {
		t.Fatal("expected invalid pattern to be rejected")
	}
	if estimate != EstimateInvalid {
		t.Fatalf("expected invalid estimate, got %v", estimate)
	}
}

func TestValidatePatternFlagsDangerousNestedQuantifiers(t *testing.T) {
	_, _, estimate := ValidatePattern(`foo(.+)+bar`)
	if estimate != EstimateDangerous {
		t.Fatalf("expected dangerous estimate, got %v", estimate)
	}
}

func TestValidatePatternEstimatesFastForShortLiteral(t *testing.T) {
	_, _, estimate := ValidatePattern("abc")
	if estimate != EstimateFast {
		t.Fatalf("expected fast estimate, got %v", estimate)
	}
}

func TestValidatePatternEstimatesSlowForLongPattern(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	_, _, estimate := ValidatePattern(long)
	if estimate != EstimateSlow {
		t.Fatalf("expected slow estimate, got %v", estimate)
	}
}

func TestEngineSearchFindsAndContextsMatches(t *testing.T) {
	db := newTestDB(t)
	db.Exec(`INSERT INTO documents VALUES ('d1', 'contacts.txt', 'p1')`)
	db.Exec(`INSERT INTO chunks VALUES ('c1', 'd1', 'contact me at alice@example.com for details', 0, 1)`)

	engine := NewEngine(db)
	result, err := engine.Search(context.Background(), Query{Pattern: Presets[0].Pattern, Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(result.Matches), result.Matches)
	}
	if result.Matches[0].MatchText != "alice@example.com" {
		t.Fatalf("expected email match, got %q", result.Matches[0].MatchText)
	}
}

func TestEngineSearchRejectsInvalidPattern(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db)
	_, err := engine.Search(context.Background(), Query{Pattern: "[unterminated"})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestEngineSearchAppliesProjectFilter(t *testing.T) {
	db := newTestDB(t)
	db.Exec(`INSERT INTO documents VALUES ('d1', 'a.txt', 'proj1')`)
	db.Exec(`INSERT INTO documents VALUES ('d2', 'b.txt', 'proj2')`)
	db.Exec(`INSERT INTO chunks VALUES ('c1', 'd1', 'phone 555-123-4567 here', 0, NULL)`)
	db.Exec(`INSERT INTO chunks VALUES ('c2', 'd2', 'phone 555-987-6543 here', 0, NULL)`)

	engine := NewEngine(db)
	result, err := engine.Search(context.Background(), Query{Pattern: `\d{3}-\d{3}-\d{4}`, ProjectID: "proj1", Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].DocumentID != "d1" {
		t.Fatalf("expected only d1 match, got %+v", result.Matches)
	}
}

func TestEngineSearchPaginatesResults(t *testing.T) {
	db := newTestDB(t)
	db.Exec(`INSERT INTO documents VALUES ('d1', 'a.txt', '')`)
	db.Exec(`INSERT INTO chunks VALUES ('c1', 'd1', '111-22-3333 222-33-4444 333-44-5555', 0, NULL)`)

	engine := NewEngine(db)
	result, err := engine.Search(context.Background(), Query{Pattern: `\d{3}-\d{2}-\d{4}`, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 paginated match, got %d", len(result.Matches))
	}
	if result.TotalMatches != 3 {
		t.Fatalf("expected total of 3 matches, got %d", result.TotalMatches)
	}
}

func TestPresetStoreSaveAndListCustomPreset(t *testing.T) {
	db := newTestDB(t)
	store, err := NewPresetStore(db)
	if err != nil {
		t.Fatalf("new preset store: %v", err)
	}

	preset, err := store.SaveCustom(context.Background(), "Order Numbers", `ORD-\d{6}`, "internal order IDs", "custom")
	if err != nil {
		t.Fatalf("save custom: %v", err)
	}

	all, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != len(Presets)+1 {
		t.Fatalf("expected system presets + 1 custom, got %d", len(all))
	}

	if err := store.DeleteCustom(context.Background(), preset.ID); err != nil {
		t.Fatalf("delete custom: %v", err)
	}
	all, err = store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(all) != len(Presets) {
		t.Fatalf("expected custom preset removed, got %d", len(all))
	}
}

func TestPresetStoreFiltersByCategory(t *testing.T) {
	db := newTestDB(t)
	store, err := NewPresetStore(db)
	if err != nil {
		t.Fatalf("new preset store: %v", err)
	}
	pii, err := store.List(context.Background(), "pii")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, p := range pii {
		if p.Category != "pii" {
			t.Fatalf("expected only pii presets, got %+v", p)
		}
	}
	if len(pii) == 0 {
		t.Fatal("expected at least the ssn preset")
	}
}
