// Package neo4jstore keeps the topic/association graph in Neo4j. Topics and
// associations are both :Object nodes; an association points at its two
// players through :PLAYER relationships carrying the role type.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"dmx-platform/backend/internal/storage"
	dmxerrors "dmx-platform/backend/pkg/errors"
	"dmx-platform/backend/pkg/logger"
)

// Store opens one explicit Neo4j transaction per storage transaction
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

var _ storage.Storage = (*Store)(nil)

// NewStore wraps an existing driver. An empty database selects the server default.
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{
		driver:   driver,
		database: database,
		logger:   logger.Named("neo4j-store"),
	}
}

// Open creates a driver, verifies connectivity and wraps it
func Open(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, dmxerrors.NewStorage("connect", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, dmxerrors.NewStorage("connect", err)
	}
	return NewStore(driver, database), nil
}

// Close closes the Neo4j driver connection
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the constraints and indexes the store relies on
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT dmx_object_id IF NOT EXISTS FOR (o:Object) REQUIRE o.id IS UNIQUE`,
		`CREATE CONSTRAINT dmx_object_uri IF NOT EXISTS FOR (o:Object) REQUIRE o.uri IS UNIQUE`,
		`CREATE CONSTRAINT dmx_id_sequence IF NOT EXISTS FOR (s:IdSequence) REQUIRE s.name IS UNIQUE`,
		`CREATE INDEX dmx_object_type_uri IF NOT EXISTS FOR (o:Object) ON (o.type_uri)`,
	}
	for _, stmt := range statements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return dmxerrors.NewStorage("ensure schema", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return dmxerrors.NewStorage("ensure schema", err)
		}
	}
	s.logger.Info("Neo4j schema ensured", zap.Int("statements", len(statements)))
	return nil
}

// BeginTx opens a session and an explicit transaction on it
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	ntx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, dmxerrors.NewStorage("begin", err)
	}
	return &tx{
		ctx:     ctx,
		id:      uuid.NewString(),
		session: session,
		tx:      ntx,
		logger:  s.logger,
	}, nil
}

func (s *Store) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// tx is only used by one goroutine at a time
type tx struct {
	ctx      context.Context
	id       string
	session  neo4j.SessionWithContext
	tx       neo4j.ExplicitTransaction
	logger   *zap.Logger
	success  bool
	finished bool
}

var _ storage.Transaction = (*tx)(nil)

func (t *tx) ID() string { return t.id }

func (t *tx) Success() { t.success = true }

// Finish commits or rolls back, then closes the session
func (t *tx) Finish() error {
	if t.finished {
		return nil
	}
	t.finished = true
	defer t.session.Close(t.ctx)

	if !t.success {
		if err := t.tx.Rollback(t.ctx); err != nil {
			return dmxerrors.NewStorage("rollback", err)
		}
		t.logger.Debug("Transaction rolled back", zap.String("tx_id", t.id))
		return nil
	}
	if err := t.tx.Commit(t.ctx); err != nil {
		return dmxerrors.NewStorage("commit", err)
	}
	return nil
}

// run executes one statement and collects its records
func (t *tx) run(op, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(t.ctx, query, params)
	if err != nil {
		return nil, dmxerrors.NewStorage(op, err)
	}
	records, err := result.Collect(t.ctx)
	if err != nil {
		return nil, dmxerrors.NewStorage(op, err)
	}
	return records, nil
}

// nextID draws from the single id sequence shared by topics and associations
func (t *tx) nextID() (int64, error) {
	records, err := t.run("next id", `
		MERGE (s:IdSequence {name: 'object'})
		ON CREATE SET s.next = 0
		SET s.next = s.next + 1
		RETURN s.next AS id
	`, nil)
	if err != nil {
		return 0, err
	}
	if len(records) != 1 {
		return 0, dmxerrors.NewStorage("next id", fmt.Errorf("sequence returned %d rows", len(records)))
	}
	return getInt64FromRecord(records[0], "id"), nil
}

// uriTaken reports whether another object already carries uri
func (t *tx) uriTaken(uri string, except int64) (bool, error) {
	records, err := t.run("check uri", `
		MATCH (o:Object {uri: $uri})
		WHERE o.id <> $except
		RETURN count(o) AS n
	`, map[string]interface{}{"uri": uri, "except": except})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getInt64FromRecord(records[0], "n") > 0, nil
}
