package entries

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "user_id", "created", "audio_path", "audio_length", "audio_duration", "audio_channels",
	"audio_sample_rate", "audio_bits_per_sample", "audio_hash", "latitude", "longitude",
	"transcript", "transcript_created", "response", "response_created",
	"voiceover_path", "voiceover_created", "voiceover_duration", "voiceover_length", "voiceover_processing_time",
}

var created = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func ingestedRow(id int64, user, hash string) []driver.Value {
	return []driver.Value{
		id, user, created, "bronze/audio_entry/2025/03/a.wav", int64(160044), int64(6), int64(1),
		int64(16000), int64(16), hash, 35.5, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil, nil,
	}
}

func newEntry() *models.Entry {
	lat := 35.5
	return &models.Entry{
		UserID: "u1", Created: created, AudioPath: "bronze/audio_entry/2025/03/a.wav",
		AudioLength: 160044, AudioDuration: 6, AudioChannels: 1, AudioSampleRate: 16000,
		AudioBitsPerSample: 16, AudioHash: "abc", Latitude: &lat,
	}
}

func TestCreate_Inserted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+journal_entries\b.*ON\s+CONFLICT\s*\(user_id,\s*audio_hash\)\s*DO\s+NOTHING\s+RETURNING\s+id`

	mock.ExpectQuery(q).
		WithArgs("u1", created, "bronze/audio_entry/2025/03/a.wav", 160044, 6, 1, 16000, 16, "abc", 35.5, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	e := newEntry()
	inserted, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(12), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ConflictReturnsExisting(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+journal_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries WHERE user_id=\$1 AND audio_hash=\$2`).
		WithArgs("u1", "abc").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(ingestedRow(7, "u1", "abc")...))

	e := newEntry()
	inserted, err := repo.Create(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, int64(7), e.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+journal_entries`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newEntry())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_ScansNullableColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	row := ingestedRow(3, "u1", "abc")
	row[12] = "hello"
	row[13] = created.Add(time.Minute)
	row[16] = "gold/audio_reply/2025/03/b.mp4"
	row[18] = int64(4)

	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries WHERE id=\$1$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(row...))

	e, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, 16000, e.AudioSampleRate)
	require.NotNil(t, e.Latitude)
	assert.Equal(t, 35.5, *e.Latitude)
	assert.Nil(t, e.Longitude)
	require.NotNil(t, e.Transcript)
	assert.Equal(t, "hello", *e.Transcript)
	assert.Nil(t, e.Response)
	require.NotNil(t, e.VoiceoverDuration)
	assert.Equal(t, 4, *e.VoiceoverDuration)
	assert.Equal(t, models.StatusComplete, e.Status())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries WHERE id=\$1$`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGetForUser_FiltersByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries WHERE id=\$1 AND user_id=\$2`).
		WithArgs(int64(3), "u2").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetForUser(context.Background(), 3, "u2")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries WHERE user_id=\$1 ORDER BY created DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(ingestedRow(2, "u1", "b")...).
			AddRow(ingestedRow(1, "u1", "a")...))

	list, err := repo.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "a", list[1].AudioHash)
}

func TestListForUser_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .* FROM journal_entries`).WillReturnError(errors.New("boom"))

	_, err := repo.ListForUser(context.Background(), "u1")
	assert.ErrorContains(t, err, "failed to select entries")
}

func TestUpdates(t *testing.T) {
	at := created.Add(time.Hour)

	t.Run("transcript", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE journal_entries SET transcript=\$2, transcript_created=\$3 WHERE id=\$1`).
			WithArgs(int64(5), "hello", at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateTranscript(context.Background(), 5, "hello", at))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("response", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE journal_entries SET response=\$2, response_created=\$3 WHERE id=\$1`).
			WithArgs(int64(5), "hi there", at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateResponse(context.Background(), 5, "hi there", at))
	})

	t.Run("voiceover", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`(?s)UPDATE journal_entries SET voiceover_path=\$2.*WHERE id=\$1`).
			WithArgs(int64(5), "gold/audio_reply/2025/03/x.mp4", 3, 96044, 2, at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateVoiceover(context.Background(), 5, Voiceover{
			Path: "gold/audio_reply/2025/03/x.mp4", Duration: 3, Length: 96044, ProcessingTime: 2, Created: at,
		})
		require.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE journal_entries SET transcript`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateTranscript(context.Background(), 5, "hello", at)
		assert.True(t, errors.Is(err, common.ErrNotFound))
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE journal_entries SET response`).
			WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

		err := repo.UpdateResponse(context.Background(), 5, "x", at)
		if err == nil || !regexp.MustCompile(`rows affected error: .*rows-err`).MatchString(err.Error()) {
			t.Fatalf("expected rows affected error, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM journal_entries WHERE id=\$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM journal_entries WHERE id=\$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.True(t, errors.Is(repo.Delete(context.Background(), 5), common.ErrNotFound))
}

func TestDelete_UnexpectedRowsAffected(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM journal_entries`).WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Delete(context.Background(), 5)
	assert.EqualError(t, err, "unexpected rows affected: 2")
}
