package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ GraphStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to open database", err).WithSubject(path)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to open database", err).WithSubject(path)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to init schema", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS symbols (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			name TEXT,
			package TEXT,
			kind TEXT,
			modifiers JSON,
			owner TEXT,
			supertypes JSON,
			signature TEXT,
			external INTEGER,
			filepath TEXT,
			start_line INTEGER,
			end_line INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS annotations (
			symbol_id TEXT,
			seq INTEGER,
			name TEXT,
			params JSON,
			PRIMARY KEY (symbol_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			seq INTEGER PRIMARY KEY,
			from_id TEXT,
			to_id TEXT,
			kind TEXT,
			call_name TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS call_names (
			symbol_id TEXT,
			seq INTEGER,
			name TEXT,
			PRIMARY KEY (symbol_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(filepath);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveGraph replaces the whole snapshot in one transaction.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *graph.Graph) error {
	if err := s.saveGraph(ctx, g); err != nil {
		return archerrors.Wrap(archerrors.StorageError, "failed to save graph", err)
	}
	return nil
}

func (s *SQLiteStore) saveGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"symbols", "annotations", "edges", "call_names"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (seq, id, name, package, kind, modifiers, owner, supertypes, signature, external, filepath, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer symStmt.Close()

	annStmt, err := tx.PrepareContext(ctx, `INSERT INTO annotations (symbol_id, seq, name, params) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer annStmt.Close()

	callStmt, err := tx.PrepareContext(ctx, `INSERT INTO call_names (symbol_id, seq, name) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer callStmt.Close()

	for i, sym := range g.Symbols() {
		modifiers, _ := json.Marshal(sym.Modifiers)
		supertypes, _ := json.Marshal(sym.Supertypes)
		if _, err := symStmt.ExecContext(ctx, i, sym.ID, sym.Name, sym.Package, string(sym.Kind), modifiers, sym.Owner,
			supertypes, sym.Signature, sym.External, sym.Filepath, sym.StartLine, sym.EndLine); err != nil {
			return fmt.Errorf("failed to save symbol %s: %w", sym.ID, err)
		}
		for k, ann := range sym.Annotations {
			params, _ := json.Marshal(ann.Params)
			if _, err := annStmt.ExecContext(ctx, sym.ID, k, ann.Name, params); err != nil {
				return fmt.Errorf("failed to save annotation of %s: %w", sym.ID, err)
			}
		}
		for k, name := range g.CallNames(sym.ID) {
			if _, err := callStmt.ExecContext(ctx, sym.ID, k, name); err != nil {
				return fmt.Errorf("failed to save call names of %s: %w", sym.ID, err)
			}
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (seq, from_id, to_id, kind, call_name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for i, e := range g.Edges() {
		if _, err := edgeStmt.ExecContext(ctx, i, e.From, e.To, string(e.Kind), e.CallName); err != nil {
			return fmt.Errorf("failed to save edge: %w", err)
		}
	}

	return tx.Commit()
}

// LoadGraph rebuilds the stored snapshot with symbol, edge and call order preserved.
func (s *SQLiteStore) LoadGraph(ctx context.Context) (*graph.Graph, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to load graph", err)
	}
	return g, nil
}

func (s *SQLiteStore) loadGraph(ctx context.Context) (*graph.Graph, error) {
	symbols, err := s.querySymbols(ctx, "ORDER BY seq")
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, sym := range symbols {
		b.AddSymbol(sym)
	}

	callRows, err := s.db.QueryContext(ctx, "SELECT symbol_id, name FROM call_names ORDER BY symbol_id, seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query call names: %w", err)
	}
	defer callRows.Close()

	calls := make(map[string][]string)
	for callRows.Next() {
		var id, name string
		if err := callRows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan call name: %w", err)
		}
		calls[id] = append(calls[id], name)
	}
	if err := callRows.Err(); err != nil {
		return nil, err
	}
	for id, names := range calls {
		b.SetCallNames(id, names)
	}

	edgeRows, err := s.db.QueryContext(ctx, "SELECT from_id, to_id, kind, call_name FROM edges ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e graph.Edge
		var kind string
		if err := edgeRows.Scan(&e.From, &e.To, &kind, &e.CallName); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Kind = graph.EdgeKind(kind)
		b.AddEdge(e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	return b.Build()
}

func (s *SQLiteStore) GetSymbol(ctx context.Context, id string) (*graph.Symbol, error) {
	symbols, err := s.querySymbols(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to get symbol", err).WithSubject(id)
	}
	if len(symbols) == 0 {
		return nil, archerrors.Newf(archerrors.StorageError, "symbol %q not stored", id).WithSubject(id)
	}
	return symbols[0], nil
}

func (s *SQLiteStore) FindSymbolsByFile(ctx context.Context, filepath string) ([]*graph.Symbol, error) {
	symbols, err := s.querySymbols(ctx, "WHERE filepath = ? ORDER BY seq", filepath)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.StorageError, "failed to find symbols", err).WithSubject(filepath)
	}
	return symbols, nil
}

func (s *SQLiteStore) querySymbols(ctx context.Context, clause string, args ...interface{}) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, package, kind, modifiers, owner, supertypes, signature, external, filepath, start_line, end_line
		FROM symbols `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var out []*graph.Symbol
	for rows.Next() {
		var sym graph.Symbol
		var kind string
		var modifiers, supertypes []byte
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.Package, &kind, &modifiers, &sym.Owner, &supertypes,
			&sym.Signature, &sym.External, &sym.Filepath, &sym.StartLine, &sym.EndLine); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sym.Kind = graph.SymbolKind(kind)
		if err := json.Unmarshal(modifiers, &sym.Modifiers); err != nil {
			return nil, fmt.Errorf("symbol %s: bad modifiers: %w", sym.ID, err)
		}
		if err := json.Unmarshal(supertypes, &sym.Supertypes); err != nil {
			return nil, fmt.Errorf("symbol %s: bad supertypes: %w", sym.ID, err)
		}
		out = append(out, &sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, sym := range out {
		anns, err := s.annotationsOf(ctx, sym.ID)
		if err != nil {
			return nil, err
		}
		sym.Annotations = anns
	}
	return out, nil
}

func (s *SQLiteStore) annotationsOf(ctx context.Context, id string) ([]graph.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, params FROM annotations WHERE symbol_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	var out []graph.Annotation
	for rows.Next() {
		var ann graph.Annotation
		var params []byte
		if err := rows.Scan(&ann.Name, &params); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		if err := json.Unmarshal(params, &ann.Params); err != nil {
			return nil, fmt.Errorf("annotation %s: bad params: %w", ann.Name, err)
		}
		out = append(out, ann)
	}
	return out, rows.Err()
}
