package remote_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
	"github.com/notekeepapp/notekeep-server/internal/remote"
)

type staticTokens struct{ token string }

func (s staticTokens) Token(context.Context) (string, error) { return s.token, nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDrive is a minimal in-memory file-storage API.
type fakeDrive struct {
	mu       sync.Mutex
	folders  map[string]string // name -> id
	files    map[string][]byte // id -> content
	fileName map[string]string // id -> name
	nextID   int

	listCalls   atomic.Int32
	createCalls atomic.Int32
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		folders:  map[string]string{},
		files:    map[string][]byte{},
		fileName: map[string]string{},
	}
}

func (f *fakeDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeDrive) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()

		q := r.URL.Query().Get("q")
		var files []map[string]string
		if strings.Contains(q, "vnd.google-apps.folder") {
			for name, id := range f.folders {
				if strings.Contains(q, "name='"+name+"'") {
					files = append(files, map[string]string{"id": id, "name": name})
				}
			}
		} else {
			for id, name := range f.fileName {
				if strings.Contains(q, "name='"+name+"'") {
					files = append(files, map[string]string{"id": id, "name": name})
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})
	})

	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		var meta struct {
			Name     string `json:"name"`
			MimeType string `json:"mimeType"`
		}
		require.NoError(t, json.Unmarshal(body, &meta))

		id := f.newID()
		f.folders[meta.Name] = id
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "name": meta.Name})
	})

	mux.HandleFunc("GET /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		content, ok := f.files[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(content)
	})

	// Upload endpoints.
	mux.HandleFunc("POST /upload/files", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		require.Contains(t, r.Header.Get("Content-Type"), "multipart/related")
		body, _ := io.ReadAll(r.Body)

		id := f.newID()
		// Extract name from the metadata part.
		nameIdx := strings.Index(string(body), `"name":"`)
		require.GreaterOrEqual(t, nameIdx, 0)
		rest := string(body)[nameIdx+len(`"name":"`):]
		name := rest[:strings.Index(rest, `"`)]

		// Store the raw payload portion (between the last boundary parts).
		parts := strings.Split(string(body), "\r\n\r\n")
		content := strings.TrimSpace(parts[len(parts)-1])
		content = strings.Split(content, "\r\n--")[0]

		f.files[id] = []byte(content)
		f.fileName[id] = name
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "name": name})
	})

	mux.HandleFunc("PATCH /upload/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.PathValue("id")
		if _, ok := f.files[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.files[id] = body
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func newTestClient(t *testing.T, token string) (*remote.Client, *fakeDrive) {
	t.Helper()
	drive := newFakeDrive()
	srv := httptest.NewServer(drive.handler(t))
	t.Cleanup(srv.Close)
	client := remote.New(srv.URL, srv.URL+"/upload", staticTokens{token: token}, testLogger())
	return client, drive
}

func TestEnsureFolder_CreatesThenReuses(t *testing.T) {
	client, drive := newTestClient(t, "good-token")
	ctx := context.Background()

	first, err := client.EnsureFolder(ctx, "NoteKeep")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, int32(1), drive.createCalls.Load())

	// Resolved ids are cached; a second call issues no requests.
	lists := drive.listCalls.Load()
	second, err := client.EnsureFolder(ctx, "NoteKeep")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, lists, drive.listCalls.Load())
	assert.Equal(t, int32(1), drive.createCalls.Load())
}

func TestEnsureFolder_FindsExisting(t *testing.T) {
	client, drive := newTestClient(t, "good-token")
	drive.folders["NoteKeep"] = "existing-id"

	id, err := client.EnsureFolder(context.Background(), "NoteKeep")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.Zero(t, drive.createCalls.Load())
}

func TestEnsureFolder_ConcurrentCallsCoalesce(t *testing.T) {
	client, drive := newTestClient(t, "good-token")
	ctx := context.Background()

	const callers = 10
	var wg sync.WaitGroup
	ids := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := client.EnsureFolder(ctx, "NoteKeep")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	// Only one folder was ever created.
	assert.Equal(t, int32(1), drive.createCalls.Load())
}

func TestFindFile_MissIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, "good-token")

	id, err := client.FindFile(context.Background(), "folder-1", "absent.json")
	require.NoError(t, err)
	assert.Empty(t, id)

	exists, err := client.Exists(context.Background(), "folder-1", "absent.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	client, drive := newTestClient(t, "good-token")
	ctx := context.Background()

	folderID, err := client.EnsureFolder(ctx, "NoteKeep")
	require.NoError(t, err)

	payload := []byte(`{"notes":[],"tags":[],"tagColors":{},"lastId":0}`)
	fileID, err := client.Upload(ctx, folderID, "backup.json", payload, "")
	require.NoError(t, err)
	require.NotEmpty(t, fileID)

	found, err := client.FindFile(ctx, folderID, "backup.json")
	require.NoError(t, err)
	assert.Equal(t, fileID, found)

	got, err := client.Download(ctx, fileID)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	// Replace in place keeps the id.
	updated := []byte(`{"notes":[],"tags":["work"],"tagColors":{},"lastId":0}`)
	sameID, err := client.Upload(ctx, folderID, "backup.json", updated, fileID)
	require.NoError(t, err)
	assert.Equal(t, fileID, sameID)

	got, err = client.Download(ctx, fileID)
	require.NoError(t, err)
	assert.JSONEq(t, string(updated), string(got))
	_ = drive
}

func TestClient_MissingTokenIsAuthRequired(t *testing.T) {
	client, _ := newTestClient(t, "")

	_, err := client.EnsureFolder(context.Background(), "NoteKeep")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthRequired))
}

func TestClient_RejectedTokenIsAuthRequired(t *testing.T) {
	client, _ := newTestClient(t, "bad-token")

	_, err := client.EnsureFolder(context.Background(), "NoteKeep")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthRequired))
}

func TestClient_ServerErrorIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := remote.New(srv.URL, srv.URL+"/upload", staticTokens{token: "good-token"}, testLogger())
	_, err := client.Download(context.Background(), "any")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrRemoteUnavailable))
}
