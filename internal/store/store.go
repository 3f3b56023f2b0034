// Package store implements the §6.5 durable resumability store: a small
// sqlite-backed set of completed PathIds a Map task consults to skip files it
// already processed. Ported from persist.py's ReadOnlyStore/Store, with the
// background commit thread rendered as a goroutine draining a channel
// instead of a deque polled by a daemon thread.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `create table complete (id text primary key) without rowid`

// ReadOnlyStore exposes Contains against a store database and never records
// ids in it (OpenReadOnly only creates the empty table of a new database). Used by a MapSelector running alongside an independent
// writer, or by a `doctor`-style read-only inspection.
type ReadOnlyStore struct {
	db *sql.DB
}

// OpenReadOnly opens path, creating the "complete" table if the database is
// new, and failing if an existing table doesn't match the expected shape.
func OpenReadOnly(path string) (*ReadOnlyStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ReadOnlyStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	rows, err := db.Query("pragma table_info(complete)")
	if err != nil {
		return fmt.Errorf("store: inspect schema: %w", err)
	}
	type columnInfo struct {
		cid          int
		name         string
		colType      string
		notNull      int
		defaultValue sql.NullString
		pk           int
	}
	var cols []columnInfo
	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.cid, &c.name, &c.colType, &c.notNull, &c.defaultValue, &c.pk); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan schema row: %w", err)
		}
		cols = append(cols, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(cols) == 0 {
		if _, err := db.Exec(createTableSQL); err != nil {
			return fmt.Errorf("store: create table: %w", err)
		}
		return nil
	}
	c := cols[0]
	if len(cols) != 1 || c.name != "id" || !strings.EqualFold(c.colType, "TEXT") || c.notNull != 1 || c.pk != 1 {
		return fmt.Errorf(`store: the table "complete" does not have the expected format`)
	}
	return nil
}

// Contains reports whether id has been recorded as complete.
func (s *ReadOnlyStore) Contains(id string) bool {
	var found string
	err := s.db.QueryRow("select id from complete where id = ?", id).Scan(&found)
	return err == nil
}

// Close releases the underlying database handle.
func (s *ReadOnlyStore) Close() error {
	return s.db.Close()
}

type storeMessageKind int

const (
	msgAdd storeMessageKind = iota
	msgReset
	msgCommit
)

type storeMessage struct {
	kind storeMessageKind
	id   string
	ack  chan struct{}
}

// Store is a ReadOnlyStore that also accepts writes, batching them on a
// background goroutine the way persist.py's Store.target thread does:
// inserts are flushed every CommitMaxInserts queued rows or CommitMaxDelay,
// whichever comes first.
type Store struct {
	ReadOnlyStore

	CommitMaxDelay   time.Duration
	CommitMaxInserts int

	queue chan storeMessage
	done  chan struct{}
}

// NewStore opens (or creates) path and starts its background writer.
func NewStore(path string) (*Store, error) {
	ro, err := OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		ReadOnlyStore:    *ro,
		CommitMaxDelay:   100 * time.Millisecond,
		CommitMaxInserts: 100,
		queue:            make(chan storeMessage, 1024),
		done:             make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Add enqueues id for insertion; it does not block on the write completing.
func (s *Store) Add(id string) {
	s.queue <- storeMessage{kind: msgAdd, id: id}
}

// Reset drops and recreates the "complete" table, discarding every recorded
// id. It is asynchronous like Add; call Commit afterward to know it landed.
func (s *Store) Reset() {
	s.queue <- storeMessage{kind: msgReset}
}

// Commit blocks until every message enqueued before it has been committed to
// disk, the way persist.py's Store.commit rendezvous on a threading.Barrier.
func (s *Store) Commit() {
	ack := make(chan struct{})
	s.queue <- storeMessage{kind: msgCommit, ack: ack}
	<-ack
}

// Close stops the background writer and closes the database handle.
func (s *Store) Close() error {
	close(s.queue)
	<-s.done
	return s.ReadOnlyStore.Close()
}

func (s *Store) run() {
	defer close(s.done)
	db := s.ReadOnlyStore.db
	ctx := context.Background()

	var pending int
	var tx *sql.Tx
	timer := time.NewTimer(s.CommitMaxDelay)
	defer timer.Stop()

	beginTx := func() error {
		if tx != nil {
			return nil
		}
		var err error
		tx, err = db.BeginTx(ctx, nil)
		return err
	}
	flush := func() {
		if tx == nil {
			return
		}
		tx.Commit()
		tx = nil
		pending = 0
	}

	for {
		select {
		case msg, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			switch msg.kind {
			case msgAdd:
				if err := beginTx(); err == nil {
					tx.Exec("insert or ignore into complete values (?)", msg.id)
					pending++
					if pending >= s.CommitMaxInserts {
						flush()
					}
				}
			case msgReset:
				flush()
				db.Exec("drop table if exists complete")
				db.Exec(createTableSQL)
			case msgCommit:
				flush()
				close(msg.ack)
			}
		case <-timer.C:
			flush()
			timer.Reset(s.CommitMaxDelay)
		}
	}
}
