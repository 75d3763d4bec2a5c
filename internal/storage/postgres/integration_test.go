package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metagrid-dev/metagrid/internal/game/space"
	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
	"github.com/metagrid-dev/metagrid/internal/testutil"
)

// setupDB starts a PostgreSQL container with the schema applied.
// Skipped in short mode since it requires Docker.
func setupDB(t *testing.T) *testutil.PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc
}

func TestAccountLifecycle(t *testing.T) {
	pc := setupDB(t)
	repo := postgres.NewAccountRepository(pc.RawPool)
	ctx := context.Background()

	acct, err := repo.Create(ctx, "alice", "secret123", postgres.RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "alice", acct.Username)
	assert.Equal(t, postgres.RoleUser, acct.Role)
	assert.NotEqual(t, "secret123", acct.PasswordHash)

	_, err = repo.Create(ctx, "alice", "other", postgres.RoleUser)
	assert.ErrorIs(t, err, postgres.ErrAccountExists)

	got, err := repo.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	_, err = repo.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)

	_, err = repo.Authenticate(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, postgres.ErrAccountNotFound)

	require.NoError(t, repo.SetRole(ctx, acct.ID, postgres.RoleAdmin))
	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, postgres.RoleAdmin, got.Role)
}

func TestAvatarSelectionAndMetadata(t *testing.T) {
	pc := setupDB(t)
	accounts := postgres.NewAccountRepository(pc.RawPool)
	catalog := postgres.NewCatalogRepository(pc.RawPool)
	ctx := context.Background()

	acct, err := accounts.Create(ctx, "bob", "secret123", postgres.RoleUser)
	require.NoError(t, err)

	avatarID, err := catalog.CreateAvatar(ctx, "Timmy", "https://cdn/timmy.png")
	require.NoError(t, err)

	err = accounts.SetAvatar(ctx, acct.ID, avatarID)
	require.NoError(t, err)

	err = accounts.SetAvatar(ctx, acct.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, postgres.ErrAvatarNotFound)

	metadata, err := accounts.MetadataBulk(ctx, []string{acct.ID})
	require.NoError(t, err)
	require.Len(t, metadata, 1)
	assert.Equal(t, acct.ID, metadata[0].UserID)
	assert.Equal(t, avatarID, metadata[0].AvatarID)
	assert.Equal(t, "https://cdn/timmy.png", metadata[0].ImageURL)
}

func TestSpaceFromMapExpandsObstacles(t *testing.T) {
	pc := setupDB(t)
	accounts := postgres.NewAccountRepository(pc.RawPool)
	catalog := postgres.NewCatalogRepository(pc.RawPool)
	spaces := postgres.NewSpaceRepository(pc.RawPool)
	ctx := context.Background()

	owner, err := accounts.Create(ctx, "carol", "secret123", postgres.RoleAdmin)
	require.NoError(t, err)

	deskID, err := catalog.CreateElement(ctx, postgres.Element{
		ImageURL: "https://cdn/desk.png", Width: 2, Height: 1, Static: true,
	})
	require.NoError(t, err)
	rugID, err := catalog.CreateElement(ctx, postgres.Element{
		ImageURL: "https://cdn/rug.png", Width: 3, Height: 3, Static: false,
	})
	require.NoError(t, err)

	mapID, err := catalog.CreateMap(ctx, postgres.MapTemplate{
		Name: "office", Thumbnail: "https://cdn/thumb.png", Width: 20, Height: 10,
	}, []postgres.MapElement{
		{ElementID: deskID, X: 5, Y: 5},
		{ElementID: rugID, X: 1, Y: 1},
	})
	require.NoError(t, err)

	spaceID, err := spaces.CreateSpaceFromMap(ctx, owner.ID, "my office", mapID)
	require.NoError(t, err)

	sp, err := spaces.GetSpace(ctx, spaceID)
	require.NoError(t, err)
	assert.Equal(t, 20, sp.Dim.Width)
	assert.Equal(t, 10, sp.Dim.Height)

	// The 2x1 static desk blocks exactly its footprint; the rug blocks nothing.
	assert.True(t, sp.Blocked(space.Position{X: 5, Y: 5}))
	assert.True(t, sp.Blocked(space.Position{X: 6, Y: 5}))
	assert.False(t, sp.Blocked(space.Position{X: 7, Y: 5}))
	assert.False(t, sp.Blocked(space.Position{X: 1, Y: 1}))

	_, err = spaces.GetSpace(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, space.ErrSpaceNotFound)
}

func TestDeleteSpaceOwnership(t *testing.T) {
	pc := setupDB(t)
	accounts := postgres.NewAccountRepository(pc.RawPool)
	spaces := postgres.NewSpaceRepository(pc.RawPool)
	ctx := context.Background()

	owner, err := accounts.Create(ctx, "dave", "secret123", postgres.RoleUser)
	require.NoError(t, err)
	other, err := accounts.Create(ctx, "eve", "secret123", postgres.RoleUser)
	require.NoError(t, err)

	dim, err := space.ParseDimensions("50x50")
	require.NoError(t, err)
	spaceID, err := spaces.CreateSpace(ctx, owner.ID, "mine", dim)
	require.NoError(t, err)

	err = spaces.DeleteSpace(ctx, spaceID, other.ID)
	assert.ErrorIs(t, err, postgres.ErrNotOwner)

	require.NoError(t, spaces.DeleteSpace(ctx, spaceID, owner.ID))

	err = spaces.DeleteSpace(ctx, spaceID, owner.ID)
	assert.ErrorIs(t, err, space.ErrSpaceNotFound)

	listed, err := spaces.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
