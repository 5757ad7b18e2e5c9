package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/listingfix/internal"
	"github.com/valpere/listingfix/internal/orchestrator"
	"github.com/valpere/listingfix/internal/rules"
)

// ErrNotFound is returned when a record addressed by ID does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Batch workers write concurrently; one connection keeps sqlite from
	// reporting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS refinements (
		id TEXT PRIMARY KEY,
		input_key TEXT NOT NULL,
		brand TEXT NOT NULL,
		product_type TEXT NOT NULL,
		state TEXT NOT NULL,
		generator_calls INTEGER NOT NULL,
		best_attempt INTEGER NOT NULL,
		violation_count INTEGER NOT NULL,
		output_json TEXT NOT NULL,
		duration_ms INTEGER,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- attempts is the per-refinement attempt log
	CREATE TABLE IF NOT EXISTS attempts (
		refinement_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		found_count INTEGER NOT NULL,
		remaining_count INTEGER NOT NULL,
		latency_ms INTEGER,
		PRIMARY KEY (refinement_id, number),
		FOREIGN KEY (refinement_id) REFERENCES refinements(id)
	);

	-- refinement_violations holds the final violations of each refinement
	CREATE TABLE IF NOT EXISTS refinement_violations (
		refinement_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		field TEXT NOT NULL,
		detail TEXT NOT NULL,
		FOREIGN KEY (refinement_id) REFERENCES refinements(id)
	);

	-- csv_checkpoints tracks progress of CSV jobs for resume support
	CREATE TABLE IF NOT EXISTS csv_checkpoints (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- csv_checkpoint_rows stores per-row refined output
	CREATE TABLE IF NOT EXISTS csv_checkpoint_rows (
		checkpoint_id TEXT NOT NULL,
		row_idx INTEGER NOT NULL,
		output_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (checkpoint_id, row_idx),
		FOREIGN KEY (checkpoint_id) REFERENCES csv_checkpoints(id)
	);

	-- banned_terms extends the configured catalog with user-defined terms
	CREATE TABLE IF NOT EXISTS banned_terms (
		term TEXT PRIMARY KEY,
		synonyms TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_refinements_key ON refinements(input_key);
	CREATE INDEX IF NOT EXISTS idx_attempts_refinement ON attempts(refinement_id);
	CREATE INDEX IF NOT EXISTS idx_violations_refinement ON refinement_violations(refinement_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoint_rows ON csv_checkpoint_rows(checkpoint_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CatalogFingerprint identifies a catalog so cached results produced under
// different rules are never reused.
func CatalogFingerprint(c rules.Catalog) string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// InputKey is the cache key of an input record under a catalog fingerprint.
// Text is NFC-normalized and trimmed so equivalent records share a key.
func InputKey(in internal.ProductInput, fingerprint string) string {
	var sb strings.Builder
	sb.WriteString(fingerprint)
	sb.WriteString("\x00")
	sb.WriteString(normalizeText(in.Brand))
	sb.WriteString("\x00")
	sb.WriteString(normalizeText(in.ProductType))
	for _, name := range in.SortedAttributeNames() {
		sb.WriteString("\x00")
		sb.WriteString(normalizeText(name))
		sb.WriteString("=")
		sb.WriteString(normalizeText(in.Attributes[name]))
	}
	sb.WriteString("\x00")
	sb.WriteString(normalizeText(in.CurrentDescription))
	for _, b := range in.CurrentBullets {
		sb.WriteString("\x00")
		sb.WriteString(normalizeText(b))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// SaveRefinement stores a result, its attempt log and its final violations.
func (s *Store) SaveRefinement(ctx context.Context, key string, in internal.ProductInput, r *orchestrator.Result) error {
	out := r.Output()
	outJSON, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO refinements (id, input_key, brand, product_type, state, generator_calls, best_attempt, violation_count, output_json, duration_ms, usage_count, invalidated, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		r.ID, key, in.Brand, in.ProductType, string(r.State), r.GeneratorCalls, r.BestAttempt, len(r.Violations), string(outJSON), r.Duration.Milliseconds(), now, now)
	if err != nil {
		return fmt.Errorf("failed to save refinement: %w", err)
	}

	for _, a := range r.Attempts {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO attempts (refinement_id, number, source, status, error, found_count, remaining_count, latency_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, a.Number, a.Source, a.Status, a.Error, len(a.Found), len(a.Remaining), a.Latency.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to save attempt %d: %w", a.Number, err)
		}
	}

	for _, v := range out.Violations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO refinement_violations (refinement_id, kind, field, detail) VALUES (?, ?, ?, ?)`,
			r.ID, v.Kind, v.Field, v.Detail)
		if err != nil {
			return fmt.Errorf("failed to save violation: %w", err)
		}
	}

	return tx.Commit()
}

// GetCachedRefinement returns the most recent compliant output stored for
// key. Invalidated and non-compliant results are never served.
func (s *Store) GetCachedRefinement(ctx context.Context, key string) (*internal.ProductOutput, bool, error) {
	var id, outJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, output_json FROM refinements
		 WHERE input_key = ? AND state = ? AND NOT invalidated
		 ORDER BY created_at DESC LIMIT 1`,
		key, string(orchestrator.StateCompliant)).Scan(&id, &outJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var out internal.ProductOutput
	if err := json.Unmarshal([]byte(outJSON), &out); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached output %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE refinements SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
		time.Now(), id)
	return &out, true, err
}

// RefinementEntry is a row from the refinements table.
type RefinementEntry struct {
	ID             string
	Brand          string
	ProductType    string
	State          string
	GeneratorCalls int
	BestAttempt    int
	ViolationCount int
	UsageCount     int
	Invalidated    bool
	LastUsed       time.Time
}

// AttemptEntry is a row from the attempt log.
type AttemptEntry struct {
	Number         int
	Source         string
	Status         string
	Error          string
	FoundCount     int
	RemainingCount int
	LatencyMs      int64
}

// CacheStats summarises stored refinements.
type CacheStats struct {
	TotalEntries   int
	Compliant      int
	Exhausted      int
	Cancelled      int
	InvalidEntries int
	TotalUsage     int
	// ViolationsByKind counts final violations of every stored refinement.
	ViolationsByKind map[string]int
}

// ListRefinements returns stored refinements, most recently used first.
// limit <= 0 returns everything.
func (s *Store) ListRefinements(ctx context.Context, limit int) ([]RefinementEntry, error) {
	query := `SELECT id, brand, product_type, state, generator_calls, best_attempt, violation_count, usage_count, invalidated, last_used
		FROM refinements ORDER BY last_used DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RefinementEntry
	for rows.Next() {
		var e RefinementEntry
		if err := rows.Scan(&e.ID, &e.Brand, &e.ProductType, &e.State, &e.GeneratorCalls, &e.BestAttempt, &e.ViolationCount, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// GetAttempts returns the attempt log of a refinement in attempt order, with
// a rescue attempt (number 0) last.
func (s *Store) GetAttempts(ctx context.Context, refinementID string) ([]AttemptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, source, status, COALESCE(error, ''), found_count, remaining_count, COALESCE(latency_ms, 0)
		 FROM attempts WHERE refinement_id = ? ORDER BY number = 0, number`,
		refinementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []AttemptEntry
	for rows.Next() {
		var a AttemptEntry
		if err := rows.Scan(&a.Number, &a.Source, &a.Status, &a.Error, &a.FoundCount, &a.RemainingCount, &a.LatencyMs); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *Store) InvalidateRefinement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE refinements SET invalidated = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "refinement", id)
}

// DeleteRefinement permanently removes a refinement and its logs.
func (s *Store) DeleteRefinement(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE refinement_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM refinement_violations WHERE refinement_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM refinements WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := expectRow(res, "refinement", id); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearRefinements removes every stored refinement and returns how many
// there were.
func (s *Store) ClearRefinements(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts`); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM refinement_violations`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM refinements`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Stats returns summary statistics for stored refinements.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{ViolationsByKind: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM refinements`,
		string(orchestrator.StateCompliant), string(orchestrator.StateExhausted), string(orchestrator.StateCancelled)).Scan(
		&stats.TotalEntries,
		&stats.Compliant,
		&stats.Exhausted,
		&stats.Cancelled,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM refinement_violations GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.ViolationsByKind[kind] = n
	}
	return stats, rows.Err()
}

// CSVCheckpoint represents a CSV job's checkpoint record.
type CSVCheckpoint struct {
	ID         string
	InputFile  string
	OutputFile string
	Status     string
	CreatedAt  time.Time
}

// CreateCSVCheckpoint creates a new checkpoint record and returns its ID.
func (s *Store) CreateCSVCheckpoint(ctx context.Context, inputFile, outputFile string) (string, error) {
	id := "cp_" + uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO csv_checkpoints (id, input_file, output_file) VALUES (?, ?, ?)`,
		id, inputFile, outputFile)
	return id, err
}

// GetCSVCheckpoint retrieves a checkpoint by ID.
func (s *Store) GetCSVCheckpoint(ctx context.Context, checkpointID string) (*CSVCheckpoint, error) {
	var cp CSVCheckpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_file, output_file, status, created_at FROM csv_checkpoints WHERE id = ?`,
		checkpointID).Scan(&cp.ID, &cp.InputFile, &cp.OutputFile, &cp.Status, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint %s: %w", checkpointID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// SaveCSVRow persists the refined output of one CSV row.
func (s *Store) SaveCSVRow(ctx context.Context, checkpointID string, rowIdx int, out internal.ProductOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode row %d: %w", rowIdx, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO csv_checkpoint_rows (checkpoint_id, row_idx, output_json) VALUES (?, ?, ?)`,
		checkpointID, rowIdx, string(data))
	return err
}

// GetCSVRows returns all completed rows of a checkpoint keyed by row index.
func (s *Store) GetCSVRows(ctx context.Context, checkpointID string) (map[int]internal.ProductOutput, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, output_json FROM csv_checkpoint_rows WHERE checkpoint_id = ?`,
		checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]internal.ProductOutput)
	for rows.Next() {
		var rowIdx int
		var data string
		if err := rows.Scan(&rowIdx, &data); err != nil {
			return nil, err
		}
		var out internal.ProductOutput
		if err := json.Unmarshal([]byte(data), &out); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", rowIdx, err)
		}
		done[rowIdx] = out
	}
	return done, rows.Err()
}

// CompleteCSVCheckpoint marks a checkpoint as completed.
func (s *Store) CompleteCSVCheckpoint(ctx context.Context, checkpointID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE csv_checkpoints SET status = 'completed', updated_at = ? WHERE id = ?`,
		time.Now(), checkpointID)
	return err
}

// BannedTermEntry represents a row in the banned_terms table.
type BannedTermEntry struct {
	Term      string
	Synonyms  []string
	CreatedAt time.Time
}

// AddBannedTerm inserts a banned term or replaces its synonyms.
func (s *Store) AddBannedTerm(ctx context.Context, term string, synonyms []string) error {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return errors.New("banned term must not be empty")
	}
	clean := make([]string, 0, len(synonyms))
	for _, syn := range synonyms {
		if syn = strings.TrimSpace(syn); syn != "" {
			clean = append(clean, syn)
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO banned_terms (term, synonyms) VALUES (?, ?)`,
		term, string(data))
	return err
}

// ListBannedTerms returns all user-defined banned terms ordered by term.
func (s *Store) ListBannedTerms(ctx context.Context) ([]BannedTermEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, synonyms, created_at FROM banned_terms ORDER BY term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []BannedTermEntry
	for rows.Next() {
		var e BannedTermEntry
		var data string
		if err := rows.Scan(&e.Term, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &e.Synonyms); err != nil {
			return nil, fmt.Errorf("failed to decode synonyms of %q: %w", e.Term, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BannedTerms returns the user-defined terms ready to merge into a catalog
// with rules.Catalog.WithTerms.
func (s *Store) BannedTerms(ctx context.Context) ([]rules.BannedTerm, error) {
	entries, err := s.ListBannedTerms(ctx)
	if err != nil {
		return nil, err
	}
	terms := make([]rules.BannedTerm, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, rules.BannedTerm{Term: e.Term, Synonyms: e.Synonyms})
	}
	return terms, nil
}

// DeleteBannedTerm removes a user-defined banned term.
func (s *Store) DeleteBannedTerm(ctx context.Context, term string) error {
	term = strings.ToLower(strings.TrimSpace(term))
	res, err := s.db.ExecContext(ctx, `DELETE FROM banned_terms WHERE term = ?`, term)
	if err != nil {
		return err
	}
	return expectRow(res, "banned term", term)
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
