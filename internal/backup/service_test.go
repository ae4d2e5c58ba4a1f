package backup_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekeepapp/notekeep-server/internal/backup"
	"github.com/notekeepapp/notekeep-server/internal/domain"
	"github.com/notekeepapp/notekeep-server/internal/remote"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

type gate struct{ authed bool }

func (g gate) IsAuthenticated() bool { return g.authed }

type tokens struct{}

func (tokens) Token(context.Context) (string, error) { return "test-token", nil }

// backupHost is a one-folder, one-file fake of the remote store: just
// enough surface for the backup round-trips.
type backupHost struct {
	mu      sync.Mutex
	hasFile bool
	content []byte
}

func (h *backupHost) setBackup(t *testing.T, payload *domain.BackupPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	h.mu.Lock()
	h.hasFile = true
	h.content = raw
	h.mu.Unlock()
}

func (h *backupHost) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/files":
			q := r.URL.Query().Get("q")
			if strings.Contains(q, "vnd.google-apps.folder") {
				_, _ = w.Write([]byte(`{"files":[{"id":"folder-1","name":"NoteKeep"}]}`))
				return
			}
			if h.hasFile {
				_, _ = w.Write([]byte(`{"files":[{"id":"file-1","name":"notekeep-backup.json"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"files":[]}`))

		case r.Method == http.MethodGet && r.URL.Path == "/files/file-1":
			_, _ = w.Write(h.content)

		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/files"):
			body, _ := io.ReadAll(r.Body)
			parts := strings.Split(string(body), "\r\n\r\n")
			content := strings.Split(strings.TrimSpace(parts[len(parts)-1]), "\r\n--")[0]
			h.hasFile = true
			h.content = []byte(content)
			_, _ = w.Write([]byte(`{"id":"file-1"}`))

		case r.Method == http.MethodPatch && r.URL.Path == "/upload/files/file-1":
			body, _ := io.ReadAll(r.Body)
			h.content = body
			_, _ = w.Write([]byte(`{"id":"file-1"}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newBackupService(t *testing.T, authed bool) (*backup.Service, *store.Store, *backupHost) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	host := &backupHost{}
	srv := httptest.NewServer(host.handler())
	t.Cleanup(srv.Close)

	client := remote.New(srv.URL, srv.URL+"/upload", tokens{}, logger)
	svc := backup.NewService(st, client, gate{authed: authed}, backup.NewScheduler(24*time.Hour), backup.Options{
		FolderName: "NoteKeep",
		FileName:   "notekeep-backup.json",
		DeviceID:   "device-test",
	}, logger)

	return svc, st, host
}

func TestBackup_UploadsFreshBackup(t *testing.T) {
	svc, st, host := newBackupService(t, true)
	ctx := context.Background()

	_, err := st.CreateNote(ctx, "local note", "content", []string{"work"})
	require.NoError(t, err)

	outcome := svc.Backup(ctx)
	assert.Equal(t, backup.OutcomeSuccess, outcome)

	// Payload landed remotely.
	var payload domain.BackupPayload
	require.NoError(t, json.Unmarshal(host.content, &payload))
	require.Len(t, payload.Notes, 1)
	assert.Equal(t, "local note", payload.Notes[0].Title)
	assert.Equal(t, "device-test", payload.DeviceID)
	require.NotNil(t, payload.LastID)
	assert.Equal(t, 1, *payload.LastID)

	// lastBackupTime was stamped locally.
	doc, err := st.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doc.LastBackupTime)

	status := svc.Status(ctx)
	assert.Equal(t, backup.OutcomeSuccess, status.LastOutcome)
	assert.Empty(t, status.LastError)
	assert.False(t, status.InProgress)
}

func TestBackup_MergesExistingRemote(t *testing.T) {
	svc, st, host := newBackupService(t, true)
	ctx := context.Background()

	local, err := st.CreateNote(ctx, "local", "", nil)
	require.NoError(t, err)

	remoteDoc := domain.NewDocument()
	remoteDoc.Notes = []domain.Note{{
		ID:        7,
		Title:     "from another device",
		UpdatedAt: time.Now().UTC(),
	}}
	remoteDoc.Tags = []string{"travel"}
	remoteDoc.LastID = 7
	host.setBackup(t, domain.NewBackupPayload(remoteDoc, "other-device"))

	outcome := svc.Backup(ctx)
	assert.Equal(t, backup.OutcomeSuccess, outcome)

	// The merged document was persisted locally.
	doc, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Notes, 2)
	assert.NotNil(t, doc.NoteByID(local.ID))
	assert.NotNil(t, doc.NoteByID(7))
	assert.Contains(t, doc.Tags, "travel")
	assert.Equal(t, 7, doc.LastID)

	// And the same merged state was uploaded.
	var payload domain.BackupPayload
	require.NoError(t, json.Unmarshal(host.content, &payload))
	assert.Len(t, payload.Notes, 2)
}

func TestBackup_SignedOutSkips(t *testing.T) {
	svc, st, host := newBackupService(t, false)
	ctx := context.Background()

	_, err := st.CreateNote(ctx, "local", "", nil)
	require.NoError(t, err)

	outcome := svc.Backup(ctx)
	assert.Equal(t, backup.OutcomeSkipped, outcome)
	assert.False(t, host.hasFile)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, doc.LastBackupTime)
}

func TestRestoreOnFirstRun_AdoptsRemoteOnFreshStore(t *testing.T) {
	svc, st, host := newBackupService(t, true)
	ctx := context.Background()

	remoteDoc := domain.NewDocument()
	remoteDoc.Notes = []domain.Note{{ID: 1, Title: "restored"}}
	remoteDoc.LastID = 1
	host.setBackup(t, domain.NewBackupPayload(remoteDoc, "other-device"))

	outcome := svc.RestoreOnFirstRun(ctx)
	assert.Equal(t, backup.OutcomeSuccess, outcome)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "restored", doc.Notes[0].Title)
}

func TestRestoreOnFirstRun_LocalNotesBlockRestore(t *testing.T) {
	svc, st, host := newBackupService(t, true)
	ctx := context.Background()

	_, err := st.CreateNote(ctx, "precious local data", "", nil)
	require.NoError(t, err)

	remoteDoc := domain.NewDocument()
	remoteDoc.Notes = []domain.Note{{ID: 99, Title: "remote"}}
	host.setBackup(t, domain.NewBackupPayload(remoteDoc, "other-device"))

	outcome := svc.RestoreOnFirstRun(ctx)
	assert.Equal(t, backup.OutcomeSkipped, outcome)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "precious local data", doc.Notes[0].Title)
}

func TestRestore_UserInitiatedMergesDespiteLocalNotes(t *testing.T) {
	svc, st, host := newBackupService(t, true)
	ctx := context.Background()

	_, err := st.CreateNote(ctx, "local", "", nil)
	require.NoError(t, err)

	remoteDoc := domain.NewDocument()
	remoteDoc.Notes = []domain.Note{{ID: 5, Title: "remote"}}
	remoteDoc.LastID = 5
	host.setBackup(t, domain.NewBackupPayload(remoteDoc, "other-device"))

	outcome := svc.Restore(ctx)
	assert.Equal(t, backup.OutcomeSuccess, outcome)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Notes, 2)
}

func TestRestore_NoRemoteBackupSkips(t *testing.T) {
	svc, _, _ := newBackupService(t, true)

	outcome := svc.Restore(context.Background())
	assert.Equal(t, backup.OutcomeSkipped, outcome)
}

func TestBackup_RemoteFailureDegradesToFailedOutcome(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := remote.New(srv.URL, srv.URL+"/upload", tokens{}, logger)
	svc := backup.NewService(st, client, gate{authed: true}, backup.NewScheduler(24*time.Hour), backup.Options{
		FolderName: "NoteKeep",
		FileName:   "notekeep-backup.json",
	}, logger)

	outcome := svc.Backup(context.Background())
	assert.Equal(t, backup.OutcomeFailed, outcome)

	status := svc.Status(context.Background())
	assert.Equal(t, backup.OutcomeFailed, status.LastOutcome)
	assert.NotEmpty(t, status.LastError)
}
