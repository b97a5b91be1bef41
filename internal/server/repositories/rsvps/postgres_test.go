package rsvps

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO rsvps .* ON CONFLICT \(user_id\) DO UPDATE SET .* RETURNING created_at, updated_at`).
		WithArgs("u1", "attending", 2, "vegan").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	out, err := repo.Upsert(context.Background(), &models.RSVP{
		UserID: "u1", Status: models.RSVPAttending, GuestCount: 2, DietaryNotes: "vegan",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RSVPAttending, out.Status)
	assert.True(t, now.Equal(out.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO rsvps`).WillReturnError(errors.New("db is down"))

	_, err := repo.Upsert(context.Background(), &models.RSVP{UserID: "u1", Status: models.RSVPMaybe, GuestCount: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestGetByUserID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM rsvps WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "guest_count", "dietary_notes", "created_at", "updated_at"}).
			AddRow("u1", "maybe", 1, "", now, now))

	rsvp, err := repo.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPMaybe, rsvp.Status)
	assert.Equal(t, 1, rsvp.GuestCount)
}

func TestGetByUserID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM rsvps WHERE user_id = \$1`).WithArgs("u1").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListWithGuests_UnknownWhenUserMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM rsvps r LEFT JOIN users u ON u\.id = r\.user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "guest_count", "dietary_notes",
			"created_at", "updated_at", "first_name", "last_name"}).
			AddRow("u1", "attending", 3, "", now, now, "Anna", "Smith").
			AddRow("u2", "maybe", 1, "", now, now, nil, nil))

	list, err := repo.ListWithGuests(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Anna Smith", list[0].Guest)
	assert.Equal(t, 3, list[0].GuestCount)
	assert.Equal(t, UnknownGuest, list[1].Guest)
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = 'attending'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"a", "n", "m", "t"}).AddRow(4, 2, 1, 9))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.RSVPStats{Attending: 4, NotAttending: 2, Maybe: 1, TotalGuests: 9}, s)
}
