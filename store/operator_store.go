package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"h2oclear/api/models"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrOperatorExists   = errors.New("operator already exists")
)

const uniqueViolation = "23505"

type OperatorStore struct {
	db *sql.DB
}

// NewOperatorStore creates a new OperatorStore instance.
func NewOperatorStore(db *sql.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// EnsureSchema creates the operators table when it is missing.
func (s *OperatorStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS operators (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			hashed_password BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create operators table: %w", err)
	}
	return nil
}

// CreateOperator inserts a new operator.
func (s *OperatorStore) CreateOperator(ctx context.Context, username string, hashedPassword []byte) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		INSERT INTO operators (username, hashed_password)
		VALUES ($1, $2)
		RETURNING id, username, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, username, hashedPassword).Scan(
		&op.ID,
		&op.Username,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("operator '%s': %w", username, ErrOperatorExists)
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	log.Printf("Operator created in DB: ID=%d, Username=%s", op.ID, op.Username)
	return op, nil
}

func (s *OperatorStore) GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	op := &models.Operator{}
	query := `
		SELECT id, username, hashed_password, created_at, updated_at
		FROM operators
		WHERE username = $1;
	`
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&op.ID,
		&op.Username,
		&op.HashedPassword,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("operator '%s': %w", username, ErrOperatorNotFound)
		}
		return nil, fmt.Errorf("failed to get operator by username: %w", err)
	}

	return op, nil
}
