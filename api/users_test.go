package api

import (
	"net/http"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sokoni/models"
)

func TestGetUsersMe(t *testing.T) {
	t.Run("returns the current profile", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		recorder := performRequest(t, router, http.MethodGet, "/api/auth/me", nil, authToken(t, impl, user))

		require.Equal(t, http.StatusOK, recorder.Code)
		profile := decodeBody[UserResponse](t, recorder)
		assert.Equal(t, user.ID, profile.ID)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, "alice@example.com", profile.Email)
		assert.False(t, profile.IsAdmin)
		assert.Nil(t, profile.Latitude)
	})
}

func TestPutUsersMe(t *testing.T) {
	t.Run("updates profile fields", func(t *testing.T) {
		// 準備測試環境
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		// 執行測試
		recorder := performRequest(t, router, http.MethodPut, "/api/users/me", UpdateProfileRequest{
			FullName:        lo.ToPtr("Alice Mwakasege"),
			Email:           lo.ToPtr("alice.m@example.com"),
			Latitude:        lo.ToPtr(-6.7924),
			Longitude:       lo.ToPtr(39.2083),
			LocationAddress: lo.ToPtr("Kariakoo, Dar es Salaam"),
		}, authToken(t, impl, user))

		// 驗證結果
		require.Equal(t, http.StatusOK, recorder.Code)
		profile := decodeBody[UserResponse](t, recorder)
		assert.Equal(t, "Alice Mwakasege", profile.FullName)
		assert.Equal(t, "alice.m@example.com", profile.Email)
		require.NotNil(t, profile.Latitude)
		assert.InDelta(t, -6.7924, *profile.Latitude, 0.0001)
		require.NotNil(t, profile.Longitude)
		assert.InDelta(t, 39.2083, *profile.Longitude, 0.0001)
		assert.Equal(t, "Kariakoo, Dar es Salaam", profile.LocationAddress)

		stored := models.User{}
		require.NoError(t, impl.db.First(&stored, user.ID).Error)
		assert.True(t, stored.HasLocation())

		// 沒帶的欄位維持原值
		assert.Equal(t, "alice", profile.Username)
	})

	t.Run("changes the username when it is free", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		recorder := performRequest(t, router, http.MethodPut, "/api/users/me",
			UpdateProfileRequest{Username: lo.ToPtr("alice-wonder")}, authToken(t, impl, user))

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "alice-wonder", decodeBody[UserResponse](t, recorder).Username)

		// 舊權杖的身分識別是使用者編號，改名後仍然有效
		recorder = performRequest(t, router, http.MethodGet, "/api/auth/me", nil, authToken(t, impl, user))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "alice-wonder", decodeBody[UserResponse](t, recorder).Username)
	})

	t.Run("rejects a taken username", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")
		createTestUser(t, impl.db, "bob")

		recorder := performRequest(t, router, http.MethodPut, "/api/users/me",
			UpdateProfileRequest{Username: lo.ToPtr("bob")}, authToken(t, impl, user))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Username already taken", decodeBody[ErrorResponse](t, recorder).Message)
		stored := models.User{}
		require.NoError(t, impl.db.First(&stored, user.ID).Error)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("keeping the current username is not a conflict", func(t *testing.T) {
		impl, router, cleanup := setupServer(t)
		defer cleanup()
		user := createTestUser(t, impl.db, "alice")

		recorder := performRequest(t, router, http.MethodPut, "/api/users/me",
			UpdateProfileRequest{Username: lo.ToPtr("alice"), FullName: lo.ToPtr("Alice M")},
			authToken(t, impl, user))

		require.Equal(t, http.StatusOK, recorder.Code)
		profile := decodeBody[UserResponse](t, recorder)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, "Alice M", profile.FullName)
	})
}
