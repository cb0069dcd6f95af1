package recipients

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/models"
)

var profileQuery = regexp.QuoteMeta("SELECT id, email, phone, first_name, last_name, communication_preference FROM users WHERE id = $1")

func TestPostgresStore_GetProfile(t *testing.T) {
	cols := []string{"id", "email", "phone", "first_name", "last_name", "communication_preference"}

	tests := []struct {
		name           string
		setupMock      func(mock sqlmock.Sqlmock)
		validateOutput func(t *testing.T, p *models.RecipientProfile, err error)
	}{
		{
			name: "full profile",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(profileQuery).WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "jane@acme.test", "+15550100", "Jane", "Doe", "sms"))
			},
			validateOutput: func(t *testing.T, p *models.RecipientProfile, err error) {
				require.NoError(t, err)
				assert.Equal(t, "Jane Doe", p.FullName())
				assert.Equal(t, models.PreferenceSMS, p.CommunicationPreference)
				assert.False(t, p.AllowsEmail())
			},
		},
		{
			name: "null columns default preference to both",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(profileQuery).WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "jane@acme.test", nil, "Jane", nil, nil))
			},
			validateOutput: func(t *testing.T, p *models.RecipientProfile, err error) {
				require.NoError(t, err)
				assert.Empty(t, p.Phone)
				assert.Equal(t, models.PreferenceBoth, p.CommunicationPreference)
				assert.Equal(t, "Jane", p.FullName())
			},
		},
		{
			name: "unknown user",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(profileQuery).WithArgs("u-1").WillReturnRows(sqlmock.NewRows(cols))
			},
			validateOutput: func(t *testing.T, p *models.RecipientProfile, err error) {
				assert.Nil(t, p)
				assert.True(t, errors.Is(err, ErrProfileNotFound))
			},
		},
		{
			name: "query failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(profileQuery).WithArgs("u-1").WillReturnError(errors.New("bad connection"))
			},
			validateOutput: func(t *testing.T, p *models.RecipientProfile, err error) {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeRecipientLookupFailed, apperrors.AsStandardError(err).Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			p, err := NewPostgresStore(db).GetProfile(context.Background(), "u-1")

			tt.validateOutput(t, p, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
