package core

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcomms/server/internal/ingest"
	"github.com/fieldcomms/server/internal/store"
)

func newTestService(t *testing.T) (*IngestService, *store.SQLiteStore) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })
	return NewIngestService(dbStore), dbStore
}

func writeChat(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleRoster() []ingest.TeamMember {
	return []ingest.TeamMember{
		{Name: "Ramesh Kumar", Role: "Superintendent of Police", Phone: "+91 1234567890", Alias: "Ramesh SP"},
		{Name: "Sita Rao", Role: "Deputy Superintendent of Police", Phone: "+91 2345678901", Alias: "Sita DSP"},
		{Name: "Vijay Sharma", Role: "Inspector", Phone: "+91 3456789012", Alias: "Vijay Insp"},
	}
}

func sampleHierarchy() []ingest.ReportingPair {
	return []ingest.ReportingPair{
		{Subordinate: "Sita Rao", Superior: "Ramesh Kumar"},
		{Subordinate: "Vijay Sharma", Superior: "Sita Rao"},
	}
}

const sampleChat = `6/25/25, 10:00 - Ramesh SP: Team, please prepare the crime report by tomorrow.
6/25/25, 10:05 - Sita DSP: I'll conduct a survey of recent incidents. Any specific areas to focus on?
6/25/25, 10:10 - Vijay Insp: Completed the patrol. Report submitted. <Media omitted>
6/25/25, 10:15 - Sita DSP: ఈ రోజు సమావేశం ఉంది, సిద్ధంగా ఉండండి (Meeting today, be ready)
`

func usersByName(t *testing.T, dbStore *store.SQLiteStore) map[string]store.User {
	t.Helper()
	users, err := dbStore.GetUsers()
	require.NoError(t, err)
	byName := make(map[string]store.User, len(users))
	for _, u := range users {
		byName[u.Name] = u
	}
	return byName
}

func TestIngest_EndToEnd(t *testing.T) {
	svc, dbStore := newTestService(t)

	result, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", sampleChat),
		TeamMembers:  sampleRoster(),
		Hierarchy:    sampleHierarchy(),
		Rules: []ingest.MemberRule{
			{UserID: "Ramesh Kumar", SummarizeKeywords: []string{"crime", "report"}, Prioritize: "high"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.MessagesSaved)
	require.NotEmpty(t, result.GroupID)

	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Kakinada Rural", groups[0].Name)
	assert.Len(t, groups[0].Members, 3)

	users := usersByName(t, dbStore)
	require.Len(t, users, 3)

	ramesh, sita, vijay := users["Ramesh Kumar"], users["Sita Rao"], users["Vijay Sharma"]
	assert.Nil(t, ramesh.ReportingTo)
	require.NotNil(t, sita.ReportingTo)
	assert.Equal(t, ramesh.ID, *sita.ReportingTo)
	require.NotNil(t, vijay.ReportingToName)
	assert.Equal(t, "Sita Rao", *vijay.ReportingToName)

	require.NotNil(t, ramesh.RoleName)
	assert.Equal(t, "Superintendent of Police", *ramesh.RoleName)
	assert.Equal(t, []string{"crime", "report"}, ramesh.SummarizeKeywords)
	require.NotNil(t, ramesh.Prioritize)
	assert.Equal(t, "high", *ramesh.Prioritize)

	messages, err := dbStore.GetMessagesByGroup(result.GroupID)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	// Newest-first ordering.
	require.NotNil(t, messages[0].Timestamp)
	require.NotNil(t, messages[len(messages)-1].Timestamp)
	assert.True(t, messages[0].Timestamp.After(*messages[len(messages)-1].Timestamp))

	byBody := make(map[string]store.Message, len(messages))
	for _, m := range messages {
		byBody[m.Body] = m
	}

	crime := byBody["Team, please prepare the crime report by tomorrow."]
	require.NotNil(t, crime.SenderID)
	assert.Equal(t, ramesh.ID, *crime.SenderID)
	require.NotNil(t, crime.SenderName)
	assert.Equal(t, "Ramesh Kumar", *crime.SenderName)
	assert.False(t, crime.IsMedia)
	assert.Equal(t, "en", crime.Language)

	patrol := byBody["Completed the patrol. Report submitted. <Media omitted>"]
	assert.True(t, patrol.IsMedia)
	require.NotNil(t, patrol.SenderID)
	assert.Equal(t, vijay.ID, *patrol.SenderID)

	telugu := byBody["ఈ రోజు సమావేశం ఉంది, సిద్ధంగా ఉండండి (Meeting today, be ready)"]
	assert.Equal(t, "te", telugu.Language)
}

func TestIngest_RepeatRunKeepsMetadataIdempotent(t *testing.T) {
	svc, dbStore := newTestService(t)

	req := IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", sampleChat),
		TeamMembers:  sampleRoster(),
		Hierarchy:    sampleHierarchy(),
	}

	first, err := svc.Ingest(req)
	require.NoError(t, err)
	_, err = svc.Ingest(req)
	require.NoError(t, err)

	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 3)

	users, err := dbStore.GetUsers()
	require.NoError(t, err)
	assert.Len(t, users, 3)

	// Messages carry no dedup key: a repeated run duplicates them.
	count, err := dbStore.CountMessagesByGroup(first.GroupID)
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestIngest_UnresolvedSenderKeptWithAlias(t *testing.T) {
	svc, dbStore := newTestService(t)

	result, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", "6/25/25, 10:00 - Unknown Guy: who am I\n"),
		TeamMembers:  sampleRoster(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MessagesSaved)
	assert.NotEmpty(t, result.Warnings)

	messages, err := dbStore.GetMessagesByGroup(result.GroupID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].SenderID)
	assert.Equal(t, "Unknown Guy", messages[0].SenderAlias)
}

func TestIngest_SenderResolutionIsCaseInsensitive(t *testing.T) {
	svc, dbStore := newTestService(t)

	result, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", "6/25/25, 10:00 - RAMESH sp: roll call\n"),
		TeamMembers:  sampleRoster(),
	})
	require.NoError(t, err)

	messages, err := dbStore.GetMessagesByGroup(result.GroupID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].SenderName)
	assert.Equal(t, "Ramesh Kumar", *messages[0].SenderName)
	// The literal alias is preserved as captured.
	assert.Equal(t, "RAMESH sp", messages[0].SenderAlias)
}

func TestIngest_UnsupportedFormatFailsBeforeAnyWrite(t *testing.T) {
	svc, dbStore := newTestService(t)

	_, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.xml", "<chat/>"),
		TeamMembers:  sampleRoster(),
	})
	require.Error(t, err)

	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestIngest_MalformedChatRollsBackMetadata(t *testing.T) {
	svc, dbStore := newTestService(t)

	_, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.json", "{not an array"),
		TeamMembers:  sampleRoster(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat parsing failed")

	// The whole run is one transaction: no metadata survives the failure.
	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	assert.Empty(t, groups)

	users, err := dbStore.GetUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestIngest_IncompleteRosterRecordIsFatal(t *testing.T) {
	svc, dbStore := newTestService(t)

	_, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", sampleChat),
		TeamMembers: []ingest.TeamMember{
			{Name: "Ramesh Kumar", Role: "Superintendent of Police", Alias: "Ramesh SP"},
			{Name: "Sita Rao", Role: "", Alias: "Sita DSP"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")

	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestIngest_HierarchyEdgesAreBestEffort(t *testing.T) {
	svc, dbStore := newTestService(t)

	result, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.txt", sampleChat),
		TeamMembers:  sampleRoster(),
		Hierarchy: []ingest.ReportingPair{
			{Subordinate: "Nobody Known", Superior: "Ramesh Kumar"}, // skipped
			{Subordinate: "Sita Rao", Superior: "Outside Man"},      // superior cleared
			{Subordinate: "Vijay Sharma", Superior: "Sita Rao"},     // wired
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.MessagesSaved)
	assert.NotEmpty(t, result.Warnings)

	users := usersByName(t, dbStore)

	// A superior reference is never set to an identity outside the roster.
	assert.Nil(t, users["Sita Rao"].ReportingTo)
	require.NotNil(t, users["Vijay Sharma"].ReportingTo)
	assert.Equal(t, users["Sita Rao"].ID, *users["Vijay Sharma"].ReportingTo)
}

func TestIngest_CSVExport(t *testing.T) {
	svc, dbStore := newTestService(t)

	csvChat := "timestamp,senderAlias,message\n" +
		"2025-06-25T10:00:00Z,Ramesh SP,Prepare the report\n" +
		"2025-06-25T10:05:00Z,Sita DSP,Survey underway\n"

	result, err := svc.Ingest(IngestRequest{
		GroupName:    "Kakinada Rural",
		ChatFilePath: writeChat(t, "chat.csv", csvChat),
		TeamMembers:  sampleRoster(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.MessagesSaved)

	messages, err := dbStore.GetMessagesByGroup(result.GroupID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.NotNil(t, messages[0].SenderName)
}

func TestIngest_ConcurrentRunsOnSameGroupSerialize(t *testing.T) {
	svc, dbStore := newTestService(t)
	chatPath := writeChat(t, "chat.txt", sampleChat)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Ingest(IngestRequest{
				GroupName:    "Kakinada Rural",
				ChatFilePath: chatPath,
				TeamMembers:  sampleRoster(),
				Hierarchy:    sampleHierarchy(),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	groups, err := dbStore.GetGroups("")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 3)

	users, err := dbStore.GetUsers()
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
