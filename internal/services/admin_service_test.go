package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BradenHooton/nexus/internal/models"
	pkglogger "github.com/BradenHooton/nexus/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminService(users UserRepository, notifier Notifier) *AdminService {
	logger := discardLogger()
	return NewAdminService(users, testHasher(), notifier, logger, pkglogger.NewAuditLogger(logger))
}

func TestAdminService_RevokeUser(t *testing.T) {
	target := &models.User{ID: "target", Email: "target@example.com"}
	ctx := context.Background()

	tests := []struct {
		name        string
		actorID     string
		targetID    string
		disable     bool
		wantErr     error
		wantRevoked int64
	}{
		{name: "revoke and disable", actorID: "admin", targetID: "target", disable: true, wantRevoked: 2},
		{name: "revoke only", actorID: "admin", targetID: "target", disable: false, wantRevoked: 2},
		{name: "missing target", actorID: "admin", targetID: "", wantErr: models.ErrValidation},
		{name: "self revocation", actorID: "target", targetID: "target", disable: true, wantErr: ErrSelfRevocation},
		{name: "self revocation with uppercased uuid", actorID: "3f2b8c1e-9d4a-4c6b-8e2f-1a7d5b9c0e34", targetID: "3F2B8C1E-9D4A-4C6B-8E2F-1A7D5B9C0E34", disable: true, wantErr: ErrSelfRevocation},
		{name: "self revocation with braced uuid", actorID: "3f2b8c1e-9d4a-4c6b-8e2f-1a7d5b9c0e34", targetID: " {3f2b8c1e-9d4a-4c6b-8e2f-1a7d5b9c0e34}", disable: true, wantErr: ErrSelfRevocation},
		{name: "unknown user", actorID: "admin", targetID: "ghost", disable: true, wantErr: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			users := usersByEmail(target)
			users.RevokeAccessFunc = func(_ context.Context, id string, disable bool) (int64, error) {
				called = true
				assert.Equal(t, tt.targetID, id)
				assert.Equal(t, tt.disable, disable)
				return 2, nil
			}
			notifier := &MockNotifier{}
			svc := newTestAdminService(users, notifier)

			disabled, revoked, err := svc.RevokeUser(ctx, tt.actorID, tt.targetID, tt.disable)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, called, "store must not be touched")
				assert.Empty(t, notifier.Sent)
				return
			}

			require.NoError(t, err)
			assert.True(t, called)
			assert.Equal(t, tt.disable, disabled)
			assert.Equal(t, tt.wantRevoked, revoked)
			assert.Equal(t, []SecurityNotice{NoticeAccessRevoked}, notifier.Sent)
		})
	}
}

func TestSameUserID(t *testing.T) {
	id := "3f2b8c1e-9d4a-4c6b-8e2f-1a7d5b9c0e34"

	assert.True(t, sameUserID(id, id))
	assert.True(t, sameUserID(strings.ToUpper(id), id))
	assert.True(t, sameUserID("urn:uuid:"+id, id))
	assert.True(t, sameUserID("Admin", "admin"))
	assert.False(t, sameUserID(id, "4f2b8c1e-9d4a-4c6b-8e2f-1a7d5b9c0e34"))
	assert.False(t, sameUserID("admin", "target"))
}

func TestAdminService_RevokeUser_StoreError(t *testing.T) {
	target := &models.User{ID: "target", Email: "target@example.com"}
	users := usersByEmail(target)
	users.RevokeAccessFunc = func(context.Context, string, bool) (int64, error) {
		return 0, errors.New("tx aborted")
	}
	svc := newTestAdminService(users, nil)

	_, _, err := svc.RevokeUser(context.Background(), "admin", "target", true)
	assert.EqualError(t, err, "tx aborted")
}

func TestAdminService_EnableUser(t *testing.T) {
	ctx := context.Background()

	var gotID string
	var gotDisabled = true
	users := &MockUserRepository{
		SetDisabledFunc: func(_ context.Context, id string, disabled bool) error {
			gotID, gotDisabled = id, disabled
			return nil
		},
	}
	svc := newTestAdminService(users, nil)

	require.NoError(t, svc.EnableUser(ctx, "admin", "target"))
	assert.Equal(t, "target", gotID)
	assert.False(t, gotDisabled)

	assert.ErrorIs(t, svc.EnableUser(ctx, "admin", ""), models.ErrValidation)

	users.SetDisabledFunc = func(context.Context, string, bool) error { return models.ErrNotFound }
	assert.ErrorIs(t, svc.EnableUser(ctx, "admin", "ghost"), models.ErrNotFound)
}

func TestAdminService_EnsureSuperAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		var created *models.User
		users := &MockUserRepository{
			CreateFunc: func(_ context.Context, u *models.User) (*models.User, error) {
				created = u
				u.ID = "new-id"
				return u, nil
			},
		}
		svc := newTestAdminService(users, nil)

		ok, err := svc.EnsureSuperAdmin(ctx, " Root@Example.com ", "bootstrap-password")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NotNil(t, created)
		assert.Equal(t, "root@example.com", created.Email)
		assert.True(t, created.IsSuperAdmin)
		assert.NoError(t, testHasher().Compare(created.PasswordHash, "bootstrap-password"))
	})

	t.Run("skips when present", func(t *testing.T) {
		users := usersByEmail(&models.User{ID: "x", Email: "root@example.com"})
		users.CreateFunc = func(context.Context, *models.User) (*models.User, error) {
			t.Fatal("must not create")
			return nil, nil
		}
		svc := newTestAdminService(users, nil)

		ok, err := svc.EnsureSuperAdmin(ctx, "root@example.com", "bootstrap-password")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects a short password", func(t *testing.T) {
		svc := newTestAdminService(&MockUserRepository{}, nil)
		_, err := svc.EnsureSuperAdmin(ctx, "root@example.com", "short")
		assert.Error(t, err)
	})

	t.Run("lost race is not an error", func(t *testing.T) {
		users := &MockUserRepository{
			CreateFunc: func(context.Context, *models.User) (*models.User, error) {
				return nil, models.ErrConflict
			},
		}
		svc := newTestAdminService(users, nil)

		ok, err := svc.EnsureSuperAdmin(ctx, "root@example.com", "bootstrap-password")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
