package postgres

import (
	"testing"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/domain/model"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCreateArgs(t *testing.T) {
	fireAt := time.Date(2026, 10, 18, 9, 0, 5, 0, time.UTC)
	n := model.NewRequest(model.Content{Title: "Wake up", Body: "body"}, 5*time.Second)
	n.Status = model.StatusScheduled
	n.FireAt = fireAt

	args := toCreateArgs(n)

	require.Len(t, args, 12)
	assert.Equal(t, pgtype.UUID{Bytes: n.ID, Valid: true}, args[0])
	assert.Equal(t, "Wake up", args[1])
	assert.Equal(t, []model.Attachment{}, args[5], "nil attachments are stored as an empty array")
	assert.Equal(t, map[string]string{}, args[6], "nil user info is stored as an empty object")
	assert.Equal(t, int64(5000), args[7])
	assert.Equal(t, false, args[8])
	assert.Equal(t, "scheduled", args[9])
	assert.Equal(t, pgtype.Timestamptz{Time: fireAt, Valid: true}, args[11])
}

func TestToUpdateArgs(t *testing.T) {
	n := model.NewRequest(model.Content{Title: "x"}, time.Second)
	n.Status = model.StatusScheduled

	args := toUpdateArgs(n)
	require.Len(t, args, 5)
	assert.Equal(t, pgtype.Timestamptz{Valid: false}, args[4])

	delivered := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	n.Status = model.StatusDelivered
	n.DeliveredAt = &delivered
	args = toUpdateArgs(n)
	assert.Equal(t, "delivered", args[1])
	assert.Equal(t, pgtype.Timestamptz{Time: delivered, Valid: true}, args[4])
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_create_notification_requests.sql", entries[0].Name())
}
