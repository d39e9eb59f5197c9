package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"abiScope/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         text PRIMARY KEY,
	doc_type   text NOT NULL,
	rev        bigint NOT NULL,
	body       jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_tx_contract_day
	ON documents ((body->>'to_address'), (left(body->>'block_timestamp', 10)))
	WHERE doc_type = 'transaction';
CREATE INDEX IF NOT EXISTS documents_doc_type ON documents (doc_type);
`

// Store provides Postgres persistence for documents.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the documents table and its view indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Get returns a document by id.
func (s *Store) Get(ctx context.Context, id string) (storage.Document, bool, error) {
	doc := storage.Document{ID: id}
	var body []byte
	row := s.pool.QueryRow(ctx, `SELECT doc_type, rev, body FROM documents WHERE id=$1`, id)
	if err := row.Scan(&doc.DocType, &doc.Rev, &body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Document{}, false, nil
		}
		return storage.Document{}, false, err
	}
	doc.Body = body
	return doc, true, nil
}

// Insert writes a document, honoring the revision it carries.
func (s *Store) Insert(ctx context.Context, doc storage.Document, upsert bool) (storage.Document, error) {
	if doc.ID == "" {
		return storage.Document{}, fmt.Errorf("document id required")
	}
	if upsert && doc.Rev == 0 {
		old, ok, err := s.Get(ctx, doc.ID)
		if err != nil {
			return storage.Document{}, err
		}
		if ok {
			doc.Rev = old.Rev
		}
	}

	var rev int64
	var err error
	if doc.Rev == 0 {
		err = s.pool.QueryRow(ctx, `
			INSERT INTO documents (id, doc_type, rev, body, created_at, updated_at)
			VALUES ($1, $2, 1, $3, now(), now())
			ON CONFLICT (id) DO NOTHING
			RETURNING rev
		`, doc.ID, doc.DocType, []byte(doc.Body)).Scan(&rev)
	} else {
		err = s.pool.QueryRow(ctx, `
			UPDATE documents
			SET doc_type = $2, body = $3, rev = rev + 1, updated_at = now()
			WHERE id = $1 AND rev = $4
			RETURNING rev
		`, doc.ID, doc.DocType, []byte(doc.Body), doc.Rev).Scan(&rev)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Document{}, fmt.Errorf("insert %s: %w", doc.ID, storage.ErrConflict)
		}
		return storage.Document{}, err
	}

	doc.Rev = rev
	return doc, nil
}

// Fetch returns the documents for ids in request order, omitting misses.
func (s *Store) Fetch(ctx context.Context, ids []string) ([]storage.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, doc_type, rev, body FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]storage.Document, len(ids))
	for rows.Next() {
		var doc storage.Document
		var body []byte
		if err := rows.Scan(&doc.ID, &doc.DocType, &doc.Rev, &body); err != nil {
			return nil, err
		}
		doc.Body = body
		found[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docs := make([]storage.Document, 0, len(found))
	for _, id := range ids {
		if doc, ok := found[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// TransactionCount counts stored transactions sent to address on day.
func (s *Store) TransactionCount(ctx context.Context, address string, day time.Time) (int, error) {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM documents
		WHERE doc_type = 'transaction'
		  AND body->>'to_address' = $1
		  AND left(body->>'block_timestamp', 10) = $2
	`, address, storage.DayPrefix(day))
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// TransactionHashes lists stored transaction ids sent to address on day.
func (s *Store) TransactionHashes(ctx context.Context, address string, day time.Time) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM documents
		WHERE doc_type = 'transaction'
		  AND body->>'to_address' = $1
		  AND left(body->>'block_timestamp', 10) = $2
		ORDER BY id
	`, address, storage.DayPrefix(day))
}

// ContractIDs lists contract ids selected by a named view.
func (s *Store) ContractIDs(ctx context.Context, view string) ([]string, error) {
	switch view {
	case storage.ViewRawContracts:
		return s.queryIDs(ctx, `
			SELECT id FROM documents
			WHERE doc_type = 'contract' AND body->'block_number' IS NULL
			ORDER BY id
		`)
	case storage.ViewTokenContracts:
		return s.queryIDs(ctx, `
			SELECT id FROM documents
			WHERE doc_type = 'contract'
			  AND (coalesce((body->>'is_erc20')::boolean, false) OR coalesce(body->>'symbol', '') <> '')
			ORDER BY id
		`)
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func (s *Store) queryIDs(ctx context.Context, sql string, args ...interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
