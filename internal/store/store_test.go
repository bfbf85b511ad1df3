package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)

	missing, err := s.GetAccountByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := s.CreateAccount("dispatch", "hashed-secret")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := s.GetAccountByUsername("dispatch")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hashed-secret", found.PasswordHash)

	// Usernames are unique.
	_, err = s.CreateAccount("dispatch", "other-hash")
	assert.Error(t, err)
}

func TestGroupNameFilter(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"Kakinada Rural", "Kakinada Urban", "Rajahmundry"} {
		_, err := s.CreateGroup(NewGroup{Name: name})
		require.NoError(t, err)
	}

	all, err := s.GetGroups("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Case-insensitive substring match.
	filtered, err := s.GetGroups("kakinada")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "Kakinada Rural", filtered[0].Name)

	none, err := s.GetGroups("vizag")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateUserResolvesRelations(t *testing.T) {
	s := newTestStore(t)

	group, err := s.CreateGroup(NewGroup{Name: "Kakinada Rural"})
	require.NoError(t, err)

	chief, err := s.CreateUser(NewUser{
		Name:     "Ramesh Kumar",
		Alias:    "Ramesh SP",
		Role:     "Superintendent of Police",
		GroupIDs: []string{group.ID},
	})
	require.NoError(t, err)

	deputy, err := s.CreateUser(NewUser{
		Name:        "Sita Rao",
		Alias:       "Sita DSP",
		Role:        "Deputy Superintendent of Police",
		ReportingTo: &chief.ID,
		GroupIDs:    []string{group.ID},
	})
	require.NoError(t, err)

	require.NotNil(t, deputy.RoleName)
	assert.Equal(t, "Deputy Superintendent of Police", *deputy.RoleName)
	require.NotNil(t, deputy.ReportingToName)
	assert.Equal(t, "Ramesh Kumar", *deputy.ReportingToName)
	require.Len(t, deputy.Groups, 1)
	assert.Equal(t, "Kakinada Rural", deputy.Groups[0].Name)

	fetched, err := s.GetUserByID(deputy.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, deputy.ID, fetched.ID)

	missing, err := s.GetUserByID("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Group members resolve with name and alias.
	refreshed, err := s.GetGroupByID(group.ID)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	require.Len(t, refreshed.Members, 2)
	assert.Equal(t, "Ramesh SP", refreshed.Members[0].Alias)
}

func TestTasksByUser(t *testing.T) {
	s := newTestStore(t)

	group, err := s.CreateGroup(NewGroup{Name: "Kakinada Rural"})
	require.NoError(t, err)
	chief, err := s.CreateUser(NewUser{Name: "Ramesh Kumar", Alias: "Ramesh SP"})
	require.NoError(t, err)
	deputy, err := s.CreateUser(NewUser{Name: "Sita Rao", Alias: "Sita DSP"})
	require.NoError(t, err)

	deadline := time.Now().Add(24 * time.Hour)
	_, err = s.CreateTask(NewTask{
		TaskText:   "Prepare the crime report",
		AssignedBy: &chief.ID,
		AssignedTo: &deputy.ID,
		Deadline:   &deadline,
		GroupID:    &group.ID,
	})
	require.NoError(t, err)

	// Visible from both ends of the assignment.
	for _, userID := range []string{chief.ID, deputy.ID} {
		tasks, err := s.GetTasksByUser(userID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		task := tasks[0]
		assert.Equal(t, "open", task.Status)
		require.NotNil(t, task.AssignedByName)
		assert.Equal(t, "Ramesh Kumar", *task.AssignedByName)
		require.NotNil(t, task.AssignedToName)
		assert.Equal(t, "Sita Rao", *task.AssignedToName)
		require.NotNil(t, task.GroupName)
		assert.Equal(t, "Kakinada Rural", *task.GroupName)
		require.NotNil(t, task.Deadline)
	}

	uninvolved, err := s.GetTasksByUser("someone-else")
	require.NoError(t, err)
	assert.Empty(t, uninvolved)
}

func TestSummarizationRules(t *testing.T) {
	s := newTestStore(t)

	group, err := s.CreateGroup(NewGroup{Name: "Kakinada Rural"})
	require.NoError(t, err)
	chief, err := s.CreateUser(NewUser{Name: "Ramesh Kumar", Alias: "Ramesh SP"})
	require.NoError(t, err)

	low, err := s.CreateRule(NewRule{UserID: chief.ID, GroupID: group.ID, RuleText: "weekly digest"})
	require.NoError(t, err)
	assert.Equal(t, "bullet", low.RuleKind)
	assert.Equal(t, 1, low.Priority)

	_, err = s.CreateRule(NewRule{UserID: chief.ID, GroupID: group.ID, RuleText: "urgent incidents", RuleKind: "narrative", Priority: 5})
	require.NoError(t, err)

	// Kind is constrained by the schema.
	_, err = s.CreateRule(NewRule{UserID: chief.ID, GroupID: group.ID, RuleText: "bad kind", RuleKind: "haiku"})
	assert.Error(t, err)

	rules, err := s.GetRulesByUser(chief.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	// Highest priority first.
	assert.Equal(t, "urgent incidents", rules[0].RuleText)
}

func TestMessagesNewestFirstWithNullTimestampsLast(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.BeginIngest()
	require.NoError(t, err)
	groupID, err := tx.UpsertGroup("Kakinada Rural")
	require.NoError(t, err)

	early := time.Date(2025, time.June, 25, 10, 0, 0, 0, time.UTC)
	late := time.Date(2025, time.June, 25, 10, 15, 0, 0, time.UTC)
	msgs := []Message{
		{GroupID: groupID, SenderAlias: "Ramesh SP", Body: "first", Timestamp: &early, Language: "en"},
		{GroupID: groupID, SenderAlias: "Sita DSP", Body: "undated", Language: "en"},
		{GroupID: groupID, SenderAlias: "Vijay Insp", Body: "last", Timestamp: &late, Language: "en"},
	}
	require.NoError(t, tx.InsertMessages(msgs))
	require.NoError(t, tx.Commit())

	got, err := s.GetMessagesByGroup(groupID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "last", got[0].Body)
	assert.Equal(t, "first", got[1].Body)
	assert.Equal(t, "undated", got[2].Body)
	assert.Nil(t, got[2].Timestamp)

	count, err := s.CountMessagesByGroup(groupID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpsertUserReconciles(t *testing.T) {
	s := newTestStore(t)

	tx, err := s.BeginIngest()
	require.NoError(t, err)

	roleID, err := tx.UpsertRole("Inspector")
	require.NoError(t, err)
	sameRoleID, err := tx.UpsertRole("Inspector")
	require.NoError(t, err)
	assert.Equal(t, roleID, sameRoleID)

	id, err := tx.UpsertUser(UserUpsert{Name: "Vijay Sharma", Alias: "Vijay Insp", RoleID: roleID})
	require.NoError(t, err)
	sameID, err := tx.UpsertUser(UserUpsert{Name: "Vijay Sharma", Alias: "Vijay I", Phone: "+91 3456789012", RoleID: roleID})
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
	require.NoError(t, tx.Commit())

	user, err := s.GetUserByID(id)
	require.NoError(t, err)
	require.NotNil(t, user)
	// The later upsert wins for display attributes.
	assert.Equal(t, "Vijay I", user.Alias)
	require.NotNil(t, user.Phone)
	assert.Equal(t, "+91 3456789012", *user.Phone)
}
