package groups

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/pkg/apperr"
	"github.com/tallyhq/tally/pkg/auth"
)

func newTestService(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresService(db), mock
}

func TestCreateGroup(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO groups").
		WithArgs(sqlmock.AnyArg(), "weekly-chores", "u-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO group_memberships").
		WithArgs(sqlmock.AnyArg(), "u-1", sqlmock.AnyArg(), "owner", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	group, err := svc.CreateGroup(context.Background(), "weekly-chores", "u-1")

	require.NoError(t, err)
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "weekly-chores", group.Name)
	assert.Equal(t, "u-1", group.CreatedBy)

	// The creator starts as the group's owner.
	require.Len(t, group.Members, 1)
	assert.Equal(t, "u-1", group.Members[0].UserID)
	assert.Equal(t, auth.GroupRoleOwner, group.Members[0].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupRequiresName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateGroup(context.Background(), "", "u-1")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestGetGroup(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, name, created_by, created_at, updated_at FROM groups").
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by", "created_at", "updated_at"}).
			AddRow("g-1", "weekly-chores", "u-1", now, now))

	mock.ExpectQuery("SELECT m.id, m.user_id, m.group_id, m.role, m.joined_at").
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "group_id", "role", "joined_at", "name", "email"}).
			AddRow("m-1", "u-1", "g-1", "owner", now, "Ana", "ana@example.com").
			AddRow("m-2", "u-2", "g-1", "member", now, "Ben", "ben@example.com"))

	group, err := svc.GetGroup(context.Background(), "g-1")

	require.NoError(t, err)
	assert.Equal(t, "weekly-chores", group.Name)
	require.Len(t, group.Members, 2)
	assert.Equal(t, auth.GroupRoleOwner, group.Members[0].Role)
	require.NotNil(t, group.Members[0].User)
	assert.Equal(t, "ana@example.com", group.Members[0].User.Email)
	assert.Equal(t, auth.GroupRoleMember, group.Members[1].Role)
}

func TestGetGroupNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, name, created_by, created_at, updated_at FROM groups").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by", "created_at", "updated_at"}))

	_, err := svc.GetGroup(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListGroupsForUser(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT g.id, g.name, g.created_by").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_by", "created_at", "updated_at"}).
			AddRow("g-1", "weekly-chores", "u-1", now, now).
			AddRow("g-2", "book-club", "u-3", now, now))

	list, err := svc.ListGroupsForUser(context.Background(), "u-1")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "weekly-chores", list[0].Name)
	assert.Equal(t, "book-club", list[1].Name)
}

func TestUpdateGroup(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE groups SET name").
		WithArgs("daily-chores", "g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.UpdateGroup(context.Background(), "g-1", "daily-chores"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGroupNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE groups SET name").
		WithArgs("daily-chores", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdateGroup(context.Background(), "missing", "daily-chores")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteGroup(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("DELETE FROM groups").
		WithArgs("g-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.DeleteGroup(context.Background(), "g-1"))
}

func TestGetMembership(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, user_id, group_id, role, joined_at FROM group_memberships").
		WithArgs("g-1", "u-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "group_id", "role", "joined_at"}).
			AddRow("m-2", "u-2", "g-1", "member", now))

	m, err := svc.GetMembership(context.Background(), "g-1", "u-2")

	require.NoError(t, err)
	assert.Equal(t, auth.GroupRoleMember, m.Role)
}

func TestGetMembershipNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT id, user_id, group_id, role, joined_at FROM group_memberships").
		WithArgs("g-1", "u-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "group_id", "role", "joined_at"}))

	_, err := svc.GetMembership(context.Background(), "g-1", "u-9")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAddMember(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO group_memberships").
		WithArgs(sqlmock.AnyArg(), "u-2", "g-1", "member", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := svc.AddMember(context.Background(), "g-1", "u-2", auth.GroupRoleMember)

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, auth.GroupRoleMember, m.Role)
}

func TestAddMemberAlreadyExists(t *testing.T) {
	svc, mock := newTestService(t)

	// ON CONFLICT DO NOTHING reports zero rows for an existing membership.
	mock.ExpectExec("INSERT INTO group_memberships").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.AddMember(context.Background(), "g-1", "u-2", auth.GroupRoleMember)

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "already a member")
}

func TestAddMemberInvalidRole(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddMember(context.Background(), "g-1", "u-2", "superuser")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestUpdateMemberRole(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE group_memberships SET role").
		WithArgs("admin", "g-1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.UpdateMemberRole(context.Background(), "g-1", "u-2", auth.GroupRoleAdmin))
}

func TestRemoveMember(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("DELETE FROM group_memberships").
		WithArgs("g-1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.RemoveMember(context.Background(), "g-1", "u-2"))
}

func TestRemoveMemberNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("DELETE FROM group_memberships").
		WithArgs("g-1", "u-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.RemoveMember(context.Background(), "g-1", "u-9")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
