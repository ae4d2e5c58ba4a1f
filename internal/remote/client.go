// Package remote implements the file-storage client used for cloud
// backup: locate-or-create of the backup folder, existence checks, and
// wholesale upload/download of the backup file. Every operation needs a
// bearer token from the auth gate; a missing token is an AuthRequired
// failure, a non-2xx reply is RemoteUnavailable. There is no retry - the
// calling flow degrades to skipping the cycle.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/notekeepapp/notekeep-server/internal/errors"
)

const (
	// Rate limit: 5 requests per second, burst of 10. The provider
	// throttles well above this; the limiter just keeps bursts polite.
	defaultRPS   = 5.0
	defaultBurst = 10

	defaultTimeout = 30 * time.Second

	folderMimeType = "application/vnd.google-apps.folder"
)

// TokenSource supplies bearer tokens for remote calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a rate-limited file-storage API client.
type Client struct {
	http          *http.Client
	limiter       *rate.Limiter
	tokens        TokenSource
	apiBaseURL    string
	uploadBaseURL string
	logger        *slog.Logger

	folders *folderCache
}

// New creates a new file-storage client.
func New(apiBaseURL, uploadBaseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		http:          &http.Client{Timeout: defaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		tokens:        tokens,
		apiBaseURL:    apiBaseURL,
		uploadBaseURL: uploadBaseURL,
		logger:        logger,
		folders:       newFolderCache(),
	}
}

// file is the subset of the provider's file resource we care about.
type file struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

type fileList struct {
	Files []file `json:"files"`
}

// EnsureFolder locates the named folder, creating it if absent, and
// returns its id. Concurrent calls for the same name are coalesced into
// one in-flight lookup so duplicate folders are never created.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	return c.folders.do(name, func() (string, error) {
		return c.ensureFolder(ctx, name)
	})
}

func (c *Client) ensureFolder(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", name, folderMimeType))
	query.Set("fields", "files(id,name,mimeType)")

	body, err := c.doRequest(ctx, http.MethodGet, c.apiBaseURL+"/files?"+query.Encode(), "", nil)
	if err != nil {
		return "", err
	}

	var list fileList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("decode folder list: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].ID, nil
	}

	// Not found: create it.
	meta, err := json.Marshal(map[string]string{
		"name":     name,
		"mimeType": folderMimeType,
	})
	if err != nil {
		return "", err
	}

	body, err = c.doRequest(ctx, http.MethodPost, c.apiBaseURL+"/files", "application/json", bytes.NewReader(meta))
	if err != nil {
		return "", err
	}

	var created file
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode created folder: %w", err)
	}

	c.logger.Info("created backup folder", "name", name, "folder_id", created.ID)
	return created.ID, nil
}

// FindFile returns the id of the named file inside the folder, or ""
// when no such file exists. A miss is not an error.
func (c *Client) FindFile(ctx context.Context, folderID, name string) (string, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", name, folderID))
	query.Set("fields", "files(id,name)")

	body, err := c.doRequest(ctx, http.MethodGet, c.apiBaseURL+"/files?"+query.Encode(), "", nil)
	if err != nil {
		return "", err
	}

	var list fileList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("decode file list: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].ID, nil
}

// Exists reports whether the named file is present inside the folder.
func (c *Client) Exists(ctx context.Context, folderID, name string) (bool, error) {
	id, err := c.FindFile(ctx, folderID, name)
	if err != nil {
		return false, err
	}
	return id != "", nil
}

// Upload writes the JSON payload as the named file with
// create-or-replace semantics: with an existingFileID the content is
// replaced in place, otherwise a new file is created inside the folder.
// Returns the file id.
func (c *Client) Upload(ctx context.Context, folderID, name string, payload []byte, existingFileID string) (string, error) {
	if existingFileID != "" {
		endpoint := fmt.Sprintf("%s/files/%s?uploadType=media", c.uploadBaseURL, existingFileID)
		body, err := c.doRequest(ctx, http.MethodPatch, endpoint, "application/json", bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		var updated file
		if err := json.Unmarshal(body, &updated); err != nil {
			return "", fmt.Errorf("decode upload response: %w", err)
		}
		return updated.ID, nil
	}

	// New file: multipart/related with metadata part then content part.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]any{
		"name":    name,
		"parents": []string{folderID},
	})
	if err != nil {
		return "", err
	}

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", err
	}
	if _, err := metaPart.Write(meta); err != nil {
		return "", err
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", "application/json")
	contentPart, err := mw.CreatePart(contentHeader)
	if err != nil {
		return "", err
	}
	if _, err := contentPart.Write(payload); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := c.uploadBaseURL + "/files?uploadType=multipart"
	contentType := "multipart/related; boundary=" + mw.Boundary()
	body, err := c.doRequest(ctx, http.MethodPost, endpoint, contentType, &buf)
	if err != nil {
		return "", err
	}

	var created file
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return created.ID, nil
}

// Download returns the raw content of the file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", c.apiBaseURL, fileID)
	return c.doRequest(ctx, http.MethodGet, endpoint, "", nil)
}

// doRequest executes an authenticated, rate-limited HTTP request.
func (c *Client) doRequest(ctx context.Context, method, endpoint, contentType string, reqBody io.Reader) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, apperrors.AuthRequired("no bearer token available")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("remote request", "method", method, "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRemoteUnavailable, "remote request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.AuthRequired(fmt.Sprintf("remote rejected token: status %d", resp.StatusCode))
	default:
		return nil, apperrors.RemoteUnavailablef("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

// truncate limits response bodies quoted in error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
