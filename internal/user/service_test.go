package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ativushq/ativus-backend/internal/database/databasetest"
	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/models"
	"github.com/ativushq/ativus-backend/internal/tenant"
)

func profileRow(p models.Profile) databasetest.Row {
	return databasetest.Row{ScanFunc: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = p.ID
		*dest[1].(**uuid.UUID) = p.TenantID
		*dest[2].(*string) = p.Name
		*dest[3].(*string) = p.Role
		*dest[4].(*string) = p.Email
		*dest[5].(*time.Time) = p.CreatedAt
		*dest[6].(*time.Time) = p.UpdatedAt
		return nil
	}}
}

// profileDB serves profile selects from the given map and echoes inserts back.
func profileDB(profiles map[uuid.UUID]models.Profile) *databasetest.DB {
	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		switch {
		case strings.Contains(sql, "INSERT INTO profiles"):
			tid := args[1].(uuid.UUID)
			return profileRow(models.Profile{
				ID:       args[0].(uuid.UUID),
				TenantID: &tid,
				Name:     args[2].(string),
				Role:     args[3].(string),
				Email:    args[4].(string),
			})
		case strings.Contains(sql, "FROM profiles"):
			if p, ok := profiles[args[0].(uuid.UUID)]; ok {
				return profileRow(p)
			}
			return databasetest.NoRow()
		}
		return databasetest.NoRow()
	}
	return db
}

func userCtx(userID uuid.UUID) context.Context {
	return tenant.WithIdentity(context.Background(), &tenant.Identity{UserID: userID, Role: "authenticated"})
}

func serviceCtx() context.Context {
	return tenant.WithIdentity(context.Background(), &tenant.Identity{Role: "service_role"})
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	techID := uuid.New()
	tenantID := uuid.New()
	db := profileDB(map[uuid.UUID]models.Profile{
		techID: {ID: techID, TenantID: &tenantID, Role: models.RoleTechnician},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected auth provider call: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	svc := NewService(db, gotrue.NewClient(srv.URL, "anon", "service"))
	_, err := svc.CreateUser(userCtx(techID), CreateUserInput{Email: "novo@acme.com", Password: "pw"})
	require.True(t, errors.Is(err, models.ErrForbidden))
}

func TestCreateUserLiveEmailCollision(t *testing.T) {
	adminID := uuid.New()
	tenantID := uuid.New()
	db := profileDB(map[uuid.UUID]models.Profile{
		adminID: {ID: adminID, TenantID: &tenantID, Role: models.RoleAdmin},
	})

	var createCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/admin/users":
			json.NewEncoder(w).Encode(map[string]any{"users": []gotrue.User{
				{ID: uuid.New(), Email: "a@x.com"},
			}})
		case r.Method == http.MethodPost:
			createCalls++
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected auth provider call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := NewService(db, gotrue.NewClient(srv.URL, "anon", "service"))
	_, err := svc.CreateUser(userCtx(adminID), CreateUserInput{Email: "a@x.com", Password: "pw"})

	require.ErrorIs(t, err, ErrEmailRegistered)
	assert.True(t, errors.Is(err, models.ErrInvalid))
	assert.Equal(t, 0, createCalls, "no second provider create may be attempted")
}

func TestCreateUserRecyclesDeletedAccount(t *testing.T) {
	adminID, oldID, newID := uuid.New(), uuid.New(), uuid.New()
	tenantID := uuid.New()
	db := profileDB(map[uuid.UUID]models.Profile{
		adminID: {ID: adminID, TenantID: &tenantID, Role: models.RoleAdmin},
	})

	var tombstoned *gotrue.UpdateUserParams
	var created *gotrue.CreateUserParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/admin/users":
			json.NewEncoder(w).Encode(map[string]any{"users": []gotrue.User{{
				ID:          oldID,
				Email:       "a@x.com",
				AppMetadata: map[string]any{"deleted": true},
			}}})
		case r.Method == http.MethodPut && r.URL.Path == "/auth/v1/admin/users/"+oldID.String():
			var p gotrue.UpdateUserParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			tombstoned = &p
			json.NewEncoder(w).Encode(gotrue.User{ID: oldID, Email: p.Email})
		case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/admin/users":
			var p gotrue.CreateUserParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			created = &p
			json.NewEncoder(w).Encode(gotrue.User{ID: newID, Email: p.Email})
		default:
			t.Errorf("unexpected auth provider call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := NewService(db, gotrue.NewClient(srv.URL, "anon", "service"))
	p, err := svc.CreateUser(userCtx(adminID), CreateUserInput{Email: "a@x.com", Password: "pw", Name: "Nova"})
	require.NoError(t, err)

	// the old account moved back to its tombstone, banned
	require.NotNil(t, tombstoned)
	assert.Equal(t, TombstoneEmail(oldID), tombstoned.Email)
	assert.Equal(t, "87600h", tombstoned.BanDuration)

	// the new account is distinct from the recycled one
	require.NotNil(t, created)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, newID, p.ID)
	assert.NotEqual(t, oldID, p.ID)
	assert.Equal(t, tenantID.String(), created.AppMetadata["tenant_id"])
}

func TestDeleteUserSweepsMembershipsGlobally(t *testing.T) {
	targetID := uuid.New()
	db := profileDB(map[uuid.UUID]models.Profile{
		targetID: {ID: targetID, TenantID: nil, Email: "orfao@acme.com"},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(gotrue.User{ID: targetID, Email: "orfao@acme.com"})
		case r.Method == http.MethodPut:
			json.NewEncoder(w).Encode(gotrue.User{ID: targetID, Email: TombstoneEmail(targetID)})
		default:
			t.Errorf("unexpected auth provider call: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := NewService(db, gotrue.NewClient(srv.URL, "anon", "service"))
	require.NoError(t, svc.DeleteUser(serviceCtx(), targetID, "desligado"))

	// with no tenant on the profile the sweep must not carry a tenant filter
	var sweep string
	for _, stmt := range db.Statements {
		if strings.Contains(stmt, "DELETE FROM user_group_members") {
			sweep = stmt
		}
	}
	require.NotEmpty(t, sweep)
	assert.NotContains(t, sweep, "tenant_id")
}

func groupRow(g models.UserGroup) databasetest.Row {
	return databasetest.Row{ScanFunc: func(dest ...any) error {
		*dest[0].(*uuid.UUID) = g.ID
		*dest[1].(*uuid.UUID) = g.TenantID
		*dest[2].(*string) = g.Name
		*dest[3].(*string) = g.Description
		*dest[4].(*time.Time) = g.CreatedAt
		return nil
	}}
}

func TestAddMembersRejectsCrossTenantUsers(t *testing.T) {
	tenantID, groupID := uuid.New(), uuid.New()
	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		switch {
		case strings.Contains(sql, "FROM user_groups"):
			return groupRow(models.UserGroup{ID: groupID, TenantID: tenantID, Name: "Elétrica"})
		case strings.Contains(sql, "COUNT(*)"):
			return databasetest.Row{ScanFunc: func(dest ...any) error {
				*dest[0].(*int) = 1 // only one of the two ids is in the tenant
				return nil
			}}
		}
		return databasetest.NoRow()
	}

	svc := NewService(db, nil)
	err := svc.AddMembers(context.Background(), tenantID, groupID, []uuid.UUID{uuid.New(), uuid.New()})

	require.True(t, errors.Is(err, models.ErrInvalid))
	for _, stmt := range db.Statements {
		assert.NotContains(t, stmt, "INSERT INTO user_group_members")
	}
}

func TestAddMembersDeduplicates(t *testing.T) {
	tenantID, groupID, userID := uuid.New(), uuid.New(), uuid.New()
	db := &databasetest.DB{}
	db.QueryRowFunc = func(sql string, args []any) pgx.Row {
		switch {
		case strings.Contains(sql, "FROM user_groups"):
			return groupRow(models.UserGroup{ID: groupID, TenantID: tenantID})
		case strings.Contains(sql, "COUNT(*)"):
			return databasetest.Row{ScanFunc: func(dest ...any) error {
				*dest[0].(*int) = 1
				return nil
			}}
		}
		return databasetest.NoRow()
	}

	svc := NewService(db, nil)
	require.NoError(t, svc.AddMembers(context.Background(), tenantID, groupID, []uuid.UUID{userID, userID}))

	inserts := 0
	for _, stmt := range db.Statements {
		if strings.Contains(stmt, "INSERT INTO user_group_members") {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)
}
