package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInWithPassword(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tech@acme.com", body["email"])

		json.NewEncoder(w).Encode(Session{
			AccessToken:  "at",
			RefreshToken: "rt",
			User:         User{ID: userID, Email: "tech@acme.com"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", "service-key")
	session, err := c.SignInWithPassword(context.Background(), "tech@acme.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, userID, session.User.ID)
}

func TestSignInInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", "service-key")
	_, err := c.SignInWithPassword(context.Background(), "a@x.com", "wrong")

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusBadRequest, provErr.Status)
	assert.Equal(t, "Invalid login credentials", provErr.Message)
}

func TestUnreachableProvider(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "anon-key", "service-key")
	_, err := c.SignInWithPassword(context.Background(), "a@x.com", "pw")
	require.True(t, errors.Is(err, ErrUnreachable))
}

func TestAdminUpdateUser(t *testing.T) {
	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/admin/users/"+userID.String(), r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var params UpdateUserParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "87600h", params.BanDuration)

		json.NewEncoder(w).Encode(User{ID: userID, Email: params.Email})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", "service-key")
	user, err := c.AdminUpdateUser(context.Background(), userID, UpdateUserParams{
		Email:       "deleted+" + userID.String() + "@deleted.local",
		BanDuration: "87600h",
	})
	require.NoError(t, err)
	assert.Equal(t, "deleted+"+userID.String()+"@deleted.local", user.Email)
}

func TestFindUserByEmailPagination(t *testing.T) {
	target := User{ID: uuid.New(), Email: "Maria@acme.com"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			users := make([]User, 200)
			for i := range users {
				users[i] = User{ID: uuid.New(), Email: "other@acme.com"}
			}
			json.NewEncoder(w).Encode(listUsersResponse{Users: users})
		default:
			json.NewEncoder(w).Encode(listUsersResponse{Users: []User{target}})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", "service-key")
	found, err := c.FindUserByEmail(context.Background(), "maria@acme.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, target.ID, found.ID)
}

func TestFindUserByEmailMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listUsersResponse{Users: nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon-key", "service-key")
	found, err := c.FindUserByEmail(context.Background(), "ghost@acme.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}
