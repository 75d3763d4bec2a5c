package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/storage/postgres"
)

type fakeUsers struct {
	avatars  []postgres.Avatar
	chosen   map[string]string
	metadata map[string]postgres.UserMetadata
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		chosen:   make(map[string]string),
		metadata: make(map[string]postgres.UserMetadata),
	}
}

func (f *fakeUsers) SetAvatar(_ context.Context, accountID, avatarID string) error {
	for _, a := range f.avatars {
		if a.ID == avatarID {
			f.chosen[accountID] = avatarID
			return nil
		}
	}
	return postgres.ErrAvatarNotFound
}

func (f *fakeUsers) MetadataBulk(_ context.Context, userIDs []string) ([]postgres.UserMetadata, error) {
	var out []postgres.UserMetadata
	for _, id := range userIDs {
		if m, ok := f.metadata[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeUsers) ListAvatars(_ context.Context) ([]postgres.Avatar, error) {
	return f.avatars, nil
}

func newUserHandler(t *testing.T) (*UserHandler, *fakeUsers) {
	t.Helper()
	users := newFakeUsers()
	return NewUserHandler(users, zap.NewNop()), users
}

func TestSetAvatar(t *testing.T) {
	h, users := newUserHandler(t)
	users.avatars = []postgres.Avatar{{ID: "avatar-1", Name: "Timmy", ImageURL: "https://cdn/timmy.png"}}

	rec := authed(h.SetAvatar, http.MethodPost, "/api/v1/user/metadata",
		"token:user-alice:user", `{"avatarId":"avatar-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "avatar-1", users.chosen["user-alice"])
}

func TestSetUnknownAvatarRejected(t *testing.T) {
	h, _ := newUserHandler(t)

	rec := authed(h.SetAvatar, http.MethodPost, "/api/v1/user/metadata",
		"token:user-alice:user", `{"avatarId":"missing"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAvatars(t *testing.T) {
	h, users := newUserHandler(t)
	users.avatars = []postgres.Avatar{{ID: "avatar-1", Name: "Timmy", ImageURL: "https://cdn/timmy.png"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/avatars", nil)
	rec := httptest.NewRecorder()
	h.ListAvatars(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"avatars":[{"id":"avatar-1","imageUrl":"https://cdn/timmy.png","name":"Timmy"}]}`,
		rec.Body.String())
}

func TestListAvatarsEmpty(t *testing.T) {
	h, _ := newUserHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/avatars", nil)
	rec := httptest.NewRecorder()
	h.ListAvatars(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"avatars":[]}`, rec.Body.String())
}

func TestMetadataBulkJSONArray(t *testing.T) {
	h, users := newUserHandler(t)
	users.metadata["user-alice"] = postgres.UserMetadata{
		UserID: "user-alice", AvatarID: "avatar-1", ImageURL: "https://cdn/timmy.png",
	}

	ids := url.QueryEscape(`["user-alice","user-bob"]`)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/metadata/bulk?ids="+ids, nil)
	rec := httptest.NewRecorder()
	h.MetadataBulk(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"avatars":[{"userId":"user-alice","avatarId":"avatar-1","imageUrl":"https://cdn/timmy.png"}]}`,
		rec.Body.String())
}

func TestMetadataBulkCommaSeparated(t *testing.T) {
	h, users := newUserHandler(t)
	users.metadata["user-alice"] = postgres.UserMetadata{
		UserID: "user-alice", AvatarID: "avatar-1", ImageURL: "https://cdn/timmy.png",
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/metadata/bulk?ids=user-alice,user-bob", nil)
	rec := httptest.NewRecorder()
	h.MetadataBulk(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-alice")
}

func TestMetadataBulkMalformedIDsRejected(t *testing.T) {
	h, _ := newUserHandler(t)

	ids := url.QueryEscape(`["unterminated`)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/metadata/bulk?ids="+ids, nil)
	rec := httptest.NewRecorder()
	h.MetadataBulk(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList(`["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = parseIDList("a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Nil(t, ids)
}
