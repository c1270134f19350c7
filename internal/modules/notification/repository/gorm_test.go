package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/internal/modules/notification/changefeed"
	"uniconnect.app/campus/pkg/apperror"
	"uniconnect.app/campus/pkg/database"
)

// newGormRepository connects to the postgres named by TEST_DATABASE_URL and
// skips the test when it is unset.
func newGormRepository(t *testing.T) NotificationRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := database.Connect(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewNotificationRepository(db, changefeed.NewLocalFeed(), zap.NewNop())
}

func createGorm(t *testing.T, repo NotificationRepository, n *entity.Notification) *entity.Notification {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), n))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), n.ID) })
	return n
}

func TestGormRepository_CreateAndFind(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()

	n := newNotification("Room change", time.Now())
	n.Recipients = []string{"stu-1", "stu-1", "", "stu-2"}
	createGorm(t, repo, n)

	assert.ElementsMatch(t, []string{"stu-1", "stu-2"}, n.Recipients)

	found, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Room change", found.Title)
	assert.ElementsMatch(t, []string{"stu-1", "stu-2"}, found.Recipients)
	assert.Empty(t, found.ReadBy)
	assert.Empty(t, found.DeletedBy)
}

func TestGormRepository_AddMarkIsIdempotent(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()
	n := createGorm(t, repo, newNotification("n", time.Now()))

	require.NoError(t, repo.AddMark(ctx, n.ID, entity.MarkRead, "u1"))
	require.NoError(t, repo.AddMark(ctx, n.ID, entity.MarkRead, "u1"))

	found, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, found.ReadBy)

	require.NoError(t, repo.RemoveMark(ctx, n.ID, entity.MarkRead, "u1"))
	require.NoError(t, repo.RemoveMark(ctx, n.ID, entity.MarkRead, "u1"))

	found, err = repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, found.ReadBy)
}

func TestGormRepository_AddMarksSkipsVanished(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()
	a := createGorm(t, repo, newNotification("a", time.Now()))
	b := createGorm(t, repo, newNotification("b", time.Now()))
	require.NoError(t, repo.AddMark(ctx, b.ID, entity.MarkRead, "u1"))

	require.NoError(t, repo.AddMarks(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()}, entity.MarkRead, "u1"))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		found, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, found.ReadBy)
	}
}

func TestGormRepository_NotFound(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := repo.FindByID(ctx, missing)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, repo.AddMark(ctx, missing, entity.MarkRead, "u1"), apperror.ErrNotFound)
	assert.ErrorIs(t, repo.RemoveMark(ctx, missing, entity.MarkDeleted, "u1"), apperror.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, missing), apperror.ErrNotFound)
}

func TestGormRepository_DeleteRemovesMarks(t *testing.T) {
	repo := newGormRepository(t)
	ctx := context.Background()
	n := newNotification("n", time.Now())
	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.AddMark(ctx, n.ID, entity.MarkDeleted, "u1"))

	require.NoError(t, repo.Delete(ctx, n.ID))
	_, err := repo.FindByID(ctx, n.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, n.ID), apperror.ErrNotFound)
}
