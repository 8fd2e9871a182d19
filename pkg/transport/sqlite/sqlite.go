// Package sqlite stores workspaces in a SQLite database, one row per node. A change set is
// applied inside one transaction, so a failing operation leaves the database untouched.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackalope/jackalope.go/internal/codec"
	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/models"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport"
	"github.com/jackalope/jackalope.go/pkg/transport/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	workspace  TEXT NOT NULL,
	path       TEXT NOT NULL,
	identifier TEXT,
	data       BLOB NOT NULL,
	PRIMARY KEY (workspace, path)
);
CREATE INDEX IF NOT EXISTS idx_nodes_identifier ON nodes(workspace, identifier);

CREATE TABLE IF NOT EXISTS node_types (
	name       TEXT PRIMARY KEY,
	definition BLOB NOT NULL,
	registered TEXT NOT NULL
);
`

type Option func(t *Transport)

func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

type Transport struct {
	db          *sql.DB
	codec       codec.Codec
	definitions *transport.DefinitionSet
	logger      logger.Logger
}

var (
	_ transport.Transport         = (*Transport)(nil)
	_ transport.NodeTypeRegistrar = (*Transport)(nil)
)

// Open opens or creates the database at path and loads the registered node types.
func Open(ctx context.Context, path string, opts ...Option) (*Transport, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	defs, err := transport.NewDefinitionSet()
	if err != nil {
		db.Close()
		return nil, err
	}
	t := &Transport{
		db:          db,
		codec:       codec.NewCBOR(),
		definitions: defs,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := t.loadNodeTypes(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transport) loadNodeTypes(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx, `SELECT definition FROM node_types ORDER BY registered, name`)
	if err != nil {
		return fmt.Errorf("load node types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return err
		}
		var def nodetype.Definition
		if err := t.codec.Unmarshal(blob, &def); err != nil {
			return fmt.Errorf("%w: stored node type: %w", constants.ErrRepository, err)
		}
		t.definitions.Add(def)
	}
	return rows.Err()
}

func workspaceName(name string) string {
	if name == "" {
		return constants.DefaultWorkspace
	}
	return name
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (t *Transport) decode(blob []byte) (*memory.Node, error) {
	var n memory.Node
	if err := t.codec.Unmarshal(blob, &n); err != nil {
		return nil, fmt.Errorf("%w: decode node: %w", constants.ErrRepository, err)
	}
	return &n, nil
}

func (t *Transport) fetch(ctx context.Context, q querier, query string, args ...any) (*models.RawNode, error) {
	var blob []byte
	if err := q.QueryRowContext(ctx, query, args...).Scan(&blob); err != nil {
		return nil, err
	}
	n, err := t.decode(blob)
	if err != nil {
		return nil, err
	}
	raw := n.Raw()
	if err := raw.Normalize(); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchNode serves the root of a workspace that was never written as an empty root node.
func (t *Transport) FetchNode(ctx context.Context, workspace, path string) (*models.RawNode, error) {
	raw, err := t.fetch(ctx, t.db, `SELECT data FROM nodes WHERE workspace = ? AND path = ?`, workspaceName(workspace), path)
	if errors.Is(err, sql.ErrNoRows) {
		if path == itempath.Root {
			return memory.NewTree().Node(itempath.Root)
		}
		return nil, fmt.Errorf("%w: %s", constants.ErrItemNotFound, path)
	}
	return raw, err
}

func (t *Transport) FetchNodeByIdentifier(ctx context.Context, workspace, id string) (*models.RawNode, error) {
	raw, err := t.fetch(ctx, t.db, `SELECT data FROM nodes WHERE workspace = ? AND identifier = ?`, workspaceName(workspace), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: identifier %s", constants.ErrItemNotFound, id)
	}
	return raw, err
}

func (t *Transport) FetchNodeTypeDefinitions(_ context.Context, name string) ([]nodetype.Definition, error) {
	return t.definitions.Closure(name)
}

// RegisterNodeTypes persists defs, replacing stored definitions of the same name.
func (t *Transport) RegisterNodeTypes(ctx context.Context, defs []nodetype.Definition) error {
	if err := t.definitions.Validate(defs); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOp(ctx, defaultRetryConfig, func() error {
		tx, err := t.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
		for i := range defs {
			blob, err := t.codec.Marshal(&defs[i])
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO node_types (name, definition, registered) VALUES (?, ?, ?)
				 ON CONFLICT(name) DO UPDATE SET definition = excluded.definition`,
				defs[i].Name, blob, now,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("register node types: %w", err)
	}
	t.definitions.Add(defs...)
	return nil
}

// Dispatch loads the workspace inside a transaction, applies the change set to it and
// writes back only the nodes that changed.
func (t *Transport) Dispatch(ctx context.Context, cs *models.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	ws := workspaceName(cs.Workspace)
	var written, deleted int
	err := retryOp(ctx, defaultRetryConfig, func() error {
		tx, err := t.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		tree, stored, err := t.loadWorkspace(ctx, tx, ws)
		if err != nil {
			return err
		}
		next, err := tree.Apply(cs.Operations)
		if err != nil {
			return err
		}
		written, deleted, err = t.writeDiff(ctx, tx, ws, stored, next)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		t.logger.Warn("change set rejected", "workspace", ws, "error", err)
		return fmt.Errorf("dispatch: %w", err)
	}
	t.logger.Debug("change set applied", "workspace", ws, "operations", len(cs.Operations), "written", written, "deleted", deleted)
	return nil
}

func (t *Transport) loadWorkspace(ctx context.Context, q querier, ws string) (*memory.Tree, map[string][]byte, error) {
	rows, err := q.QueryContext(ctx, `SELECT path, data FROM nodes WHERE workspace = ?`, ws)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	stored := make(map[string][]byte)
	var nodes []memory.Node
	for rows.Next() {
		var (
			path string
			blob []byte
		)
		if err := rows.Scan(&path, &blob); err != nil {
			return nil, nil, err
		}
		n, err := t.decode(blob)
		if err != nil {
			return nil, nil, err
		}
		stored[path] = blob
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(nodes) == 0 {
		return memory.NewTree(), stored, nil
	}
	tree, err := memory.TreeFromNodes(nodes)
	return tree, stored, err
}

func (t *Transport) writeDiff(ctx context.Context, tx *sql.Tx, ws string, stored map[string][]byte, next *memory.Tree) (int, int, error) {
	var written, deleted int
	seen := make(map[string]bool, next.Len())
	for _, n := range next.Nodes() {
		seen[n.Path] = true
		blob, err := t.codec.Marshal(&n)
		if err != nil {
			return 0, 0, err
		}
		if old, ok := stored[n.Path]; ok && string(old) == string(blob) {
			continue
		}
		var id any
		if n.Identifier != "" {
			id = n.Identifier
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (workspace, path, identifier, data) VALUES (?, ?, ?, ?)
			 ON CONFLICT(workspace, path) DO UPDATE SET identifier = excluded.identifier, data = excluded.data`,
			ws, n.Path, id, blob,
		); err != nil {
			return 0, 0, err
		}
		written++
	}
	for path := range stored {
		if seen[path] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE workspace = ? AND path = ?`, ws, path); err != nil {
			return 0, 0, err
		}
		deleted++
	}
	return written, deleted, nil
}

func (t *Transport) Close(context.Context) error {
	return t.db.Close()
}
