package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/prompt-manager/internal/apperror"
)

const (
	defaultBaseURL  = "https://api.github.com"
	gistFilename    = "data.json"
	gistDescription = "Simple Prompt Manager cloud sync"
	acceptJSON      = "application/vnd.github+json"
	acceptRaw       = "application/vnd.github.raw"

	// A hung request would otherwise block a sync operation forever; the
	// timeout surfaces as ErrRemote like any other transport failure.
	requestTimeout = 30 * time.Second
)

// GistStore binds the RemoteStore contract to the GitHub Gist API: one
// private gist, one file (data.json), full-content PATCH on every push.
type GistStore struct {
	baseURL string
	logger  *slog.Logger
}

var _ RemoteStore = (*GistStore)(nil)

// NewGistStore creates a gist-backed remote store. baseURL is normally empty
// (api.github.com); tests and GitHub Enterprise deployments override it.
func NewGistStore(baseURL string, logger *slog.Logger) *GistStore {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GistStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// client builds an HTTP client that attaches "Authorization: Bearer <token>"
// to every request. The oauth2 transport handles the header for us — a
// personal access token is just a static token source.
func (g *GistStore) client(ctx context.Context, token string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c := oauth2.NewClient(ctx, src)
	c.Timeout = requestTimeout
	return c
}

type gistFile struct {
	Content string `json:"content,omitempty"`
	RawURL  string `json:"raw_url,omitempty"`
}

type createGistRequest struct {
	Description string              `json:"description"`
	Public      bool                `json:"public"`
	Files       map[string]gistFile `json:"files"`
}

type updateGistRequest struct {
	Files map[string]gistFile `json:"files"`
}

type gistResponse struct {
	ID    string              `json:"id"`
	Files map[string]gistFile `json:"files"`
}

func (g *GistStore) Create(ctx context.Context, token string, body []byte) (string, string, error) {
	reqBody, err := json.Marshal(createGistRequest{
		Description: gistDescription,
		Public:      false,
		Files: map[string]gistFile{
			gistFilename: {Content: string(body)},
		},
	})
	if err != nil {
		return "", "", apperror.RemoteFailed(fmt.Sprintf("encoding gist request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/gists", bytes.NewReader(reqBody))
	if err != nil {
		return "", "", apperror.RemoteFailed(fmt.Sprintf("building gist request: %v", err))
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client(ctx, token).Do(req)
	if err != nil {
		return "", "", apperror.RemoteFailed(fmt.Sprintf("creating gist: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", apperror.RemoteFailed(fmt.Sprintf("creating gist: %s", readAPIError(resp)))
	}

	var created gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", "", apperror.RemoteFailed(fmt.Sprintf("decoding gist response: %v", err))
	}
	if created.ID == "" {
		return "", "", apperror.RemoteFailed("gist response carries no id")
	}

	g.logger.Info("gist created", slog.String("gistId", created.ID))
	return created.ID, resp.Header.Get("ETag"), nil
}

func (g *GistStore) Fetch(ctx context.Context, token, id, etag string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/gists/"+id, nil)
	if err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("building gist request: %v", err))
	}
	req.Header.Set("Accept", acceptJSON)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	client := g.client(ctx, token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("fetching gist: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &Document{ETag: etag, NotModified: true}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.RemoteFailed(fmt.Sprintf("gist %s not found", id))
	case resp.StatusCode != http.StatusOK:
		return nil, apperror.RemoteFailed(fmt.Sprintf("fetching gist: %s", readAPIError(resp)))
	}

	var gist gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&gist); err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("decoding gist response: %v", err))
	}

	file, ok := gist.Files[gistFilename]
	if !ok {
		return nil, apperror.RemoteFailed(fmt.Sprintf("gist has no %s file", gistFilename))
	}

	// The listing inlines file content but truncates large files; raw_url
	// always serves the complete document, so prefer it when present.
	var content []byte
	switch {
	case file.RawURL != "":
		content, err = g.fetchRaw(ctx, client, file.RawURL)
		if err != nil {
			return nil, err
		}
	case file.Content != "":
		content = []byte(file.Content)
	default:
		return nil, apperror.RemoteFailed("gist file carries no content")
	}

	return &Document{Body: content, ETag: resp.Header.Get("ETag")}, nil
}

func (g *GistStore) fetchRaw(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("building raw content request: %v", err))
	}
	req.Header.Set("Accept", acceptRaw)

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("fetching raw gist content: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.RemoteFailed(fmt.Sprintf("fetching raw gist content: %s", readAPIError(resp)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.RemoteFailed(fmt.Sprintf("reading raw gist content: %v", err))
	}
	return body, nil
}

func (g *GistStore) Replace(ctx context.Context, token, id string, body []byte) (string, error) {
	reqBody, err := json.Marshal(updateGistRequest{
		Files: map[string]gistFile{
			gistFilename: {Content: string(body)},
		},
	})
	if err != nil {
		return "", apperror.RemoteFailed(fmt.Sprintf("encoding gist request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, g.baseURL+"/gists/"+id, bytes.NewReader(reqBody))
	if err != nil {
		return "", apperror.RemoteFailed(fmt.Sprintf("building gist request: %v", err))
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client(ctx, token).Do(req)
	if err != nil {
		return "", apperror.RemoteFailed(fmt.Sprintf("updating gist: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.RemoteFailed(fmt.Sprintf("updating gist: %s", readAPIError(resp)))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header.Get("ETag"), nil
}

// readAPIError extracts a human-readable reason from an error response:
// the body when there is one, the status line otherwise.
func readAPIError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if err != nil || msg == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, msg)
}
