package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"h2oclear/api/models"
	"h2oclear/api/store"
	"h2oclear/api/utils"
)

var (
	// ErrInvalidCredentials is returned when the username/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator checks a login. Implementations may block and must honor ctx.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// Simulated accepts every non-empty pair after Delay.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Authenticate(ctx context.Context, username, password string) error {
	if err := utils.Sleep(ctx, s.Delay); err != nil {
		return err
	}
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// OperatorLookup is the part of the operator store the authenticator needs.
type OperatorLookup interface {
	GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// Operators checks credentials against stored bcrypt hashes.
type Operators struct {
	Store OperatorLookup
	Delay time.Duration
}

func (o Operators) Authenticate(ctx context.Context, username, password string) error {
	if err := utils.Sleep(ctx, o.Delay); err != nil {
		return err
	}

	op, err := o.Store.GetOperatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrOperatorNotFound) {
			log.Printf("Login failed for operator %s: not found", username)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("looking up operator: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		log.Printf("Login failed for operator %s: password mismatch", username)
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
