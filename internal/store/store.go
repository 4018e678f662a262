// Package store persists auction cases, case embeddings and the
// conversation log in Postgres. Embedding similarity uses pgvector's
// cosine distance operator.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/biddeed/deedscout/models"
)

type Store struct {
	DB *sql.DB
}

// New opens a connection pool against the supplied Postgres DSN and verifies
// it with a ping.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// UpsertAuctionCase inserts or refreshes one case keyed by case number.
func (s *Store) UpsertAuctionCase(ctx context.Context, c models.AuctionCase) error {
	if c.CaseNumber == "" {
		return fmt.Errorf("case_number required")
	}
	meta := c.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO auction_cases (case_number, address, city, judgment_amount, max_bid, recommendation, score, plaintiff, auction_date, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
ON CONFLICT (case_number) DO UPDATE SET
  address = EXCLUDED.address,
  city = EXCLUDED.city,
  judgment_amount = EXCLUDED.judgment_amount,
  max_bid = EXCLUDED.max_bid,
  recommendation = EXCLUDED.recommendation,
  score = EXCLUDED.score,
  plaintiff = EXCLUDED.plaintiff,
  auction_date = EXCLUDED.auction_date,
  metadata = EXCLUDED.metadata,
  updated_at = NOW();
`, c.CaseNumber, c.Address, c.City, c.JudgmentAmount, c.MaxBid, c.Recommendation, c.Score, c.Plaintiff, c.AuctionDate, metaBytes)
	return err
}

// GetAuctionCase returns one case or models.ErrCaseNotFound.
func (s *Store) GetAuctionCase(ctx context.Context, caseNumber string) (models.AuctionCase, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT case_number, address, city, judgment_amount, max_bid, recommendation, score, plaintiff, auction_date, metadata, created_at, updated_at
FROM auction_cases
WHERE case_number = $1
`, caseNumber)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return models.AuctionCase{}, models.ErrCaseNotFound
	}
	return c, err
}

// CaseFilter narrows ListAuctionCases. Zero values mean no constraint.
type CaseFilter struct {
	Recommendation string
	City           string
	AuctionDate    string // YYYY-MM-DD
	Limit          int
}

// ListAuctionCases returns cases matching the filter, best score first.
func (s *Store) ListAuctionCases(ctx context.Context, f CaseFilter) ([]models.AuctionCase, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT case_number, address, city, judgment_amount, max_bid, recommendation, score, plaintiff, auction_date, metadata, created_at, updated_at
FROM auction_cases
WHERE ($1 = '' OR recommendation = $1)
  AND ($2 = '' OR city = $2)
  AND ($3 = '' OR auction_date = $3)
ORDER BY score DESC, case_number
LIMIT $4
`, f.Recommendation, f.City, f.AuctionDate, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []models.AuctionCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row rowScanner) (models.AuctionCase, error) {
	var (
		c         models.AuctionCase
		metaBytes []byte
	)
	err := row.Scan(&c.CaseNumber, &c.Address, &c.City, &c.JudgmentAmount, &c.MaxBid,
		&c.Recommendation, &c.Score, &c.Plaintiff, &c.AuctionDate, &metaBytes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return models.AuctionCase{}, err
	}
	if len(metaBytes) > 0 {
		if err := json.Unmarshal(metaBytes, &c.Metadata); err != nil {
			return models.AuctionCase{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return c, nil
}

// UpsertCaseEmbedding stores or replaces the semantic vector for a case.
func (s *Store) UpsertCaseEmbedding(ctx context.Context, rec models.CaseEmbedding) error {
	if rec.CaseNumber == "" {
		return fmt.Errorf("case_number required")
	}
	vectorLiteral, err := encodeVectorLiteral(rec.Vector)
	if err != nil {
		return err
	}
	meta := rec.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO case_embeddings (case_number, embedding, summary, metadata, created_at)
VALUES ($1,$2::vector,$3,$4,NOW())
ON CONFLICT (case_number) DO UPDATE SET
  embedding = EXCLUDED.embedding,
  summary = EXCLUDED.summary,
  metadata = EXCLUDED.metadata,
  created_at = NOW();
`, rec.CaseNumber, vectorLiteral, rec.Summary, metaBytes)
	return err
}

// SearchSimilarCases returns the topK nearest embeddings for the vector.
func (s *Store) SearchSimilarCases(ctx context.Context, vector []float32, topK int) ([]models.SimilarCase, error) {
	if topK <= 0 {
		topK = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT case_number, summary, metadata, embedding <=> $1::vector AS distance
FROM case_embeddings
ORDER BY embedding <=> $1::vector
LIMIT $2
`, vecLiteral, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SimilarCase
	for rows.Next() {
		var (
			res       models.SimilarCase
			metaBytes []byte
		)
		if err := rows.Scan(&res.CaseNumber, &res.Summary, &metaBytes, &res.Distance); err != nil {
			return nil, err
		}
		if len(metaBytes) > 0 {
			if err := json.Unmarshal(metaBytes, &res.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// AppendConversationTurn adds one turn to the append-only log.
func (s *Store) AppendConversationTurn(ctx context.Context, sessionID, role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO conversation_log (session_id, role, content, created_at)
VALUES ($1,$2,$3,NOW())
`, sessionID, role, content)
	return err
}

// ListConversation returns a session's turns in insertion order.
func (s *Store) ListConversation(ctx context.Context, sessionID string, limit int) ([]models.ConversationEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT session_id, role, content, created_at
FROM conversation_log
WHERE session_id = $1
ORDER BY created_at, id
LIMIT $2
`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var e models.ConversationEntry
		if err := rows.Scan(&e.SessionID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
