// Package recipients looks up the user profile a firing is addressed to.
package recipients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/models"
)

var ErrProfileNotFound = errors.New("recipient profile not found")

// Store resolves a user id to a read-only profile.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.RecipientProfile, error)
}

const getProfileQuery = `
	SELECT id, email, phone, first_name, last_name, communication_preference
	FROM users
	WHERE id = $1`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*models.RecipientProfile, error) {
	var (
		p                               models.RecipientProfile
		email, phone, first, last, pref sql.NullString
	)
	err := s.db.QueryRowContext(ctx, getProfileQuery, userID).
		Scan(&p.ID, &email, &phone, &first, &last, &pref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, apperrors.NewRecipientLookupFailedError(userID, err)
	}

	p.Email = email.String
	p.Phone = phone.String
	p.FirstName = first.String
	p.LastName = last.String
	p.CommunicationPreference = pref.String
	if p.CommunicationPreference == "" {
		p.CommunicationPreference = models.PreferenceBoth
	}
	return &p, nil
}
