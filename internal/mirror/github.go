// Package mirror pushes project file trees to GitHub, used as a secondary
// file-tree-level backup target.
package mirror

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rohittcodes/flashio-sub001/internal/storage"
	"golang.org/x/oauth2"
)

// Client talks to the GitHub REST v3 API on behalf of one account.
type Client struct {
	http    *http.Client
	baseURL string
	owner   string
}

// NewClient builds a client authenticated with a personal access token.
func NewClient(baseURL, owner, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		http:    oauth2.NewClient(context.Background(), ts),
		baseURL: baseURL,
		owner:   owner,
	}
}

type repoResponse struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return resp.StatusCode, fmt.Errorf("github: %s %s: %s (%d)", method, path, apiErr.Message, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// EnsureRepo returns the named repository, creating it when absent.
func (c *Client) EnsureRepo(ctx context.Context, name, description string, private bool) (storage.RemoteRepo, error) {
	var repo repoResponse
	status, err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s/%s", c.owner, url.PathEscape(name)), nil, &repo)
	if err == nil {
		return storage.RemoteRepo{Name: repo.Name, URL: repo.HTMLURL}, nil
	}
	if status != http.StatusNotFound {
		return storage.RemoteRepo{}, err
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"private":     private,
		"auto_init":   false,
	}
	if _, err := c.do(ctx, http.MethodPost, "/user/repos", payload, &repo); err != nil {
		return storage.RemoteRepo{}, err
	}
	return storage.RemoteRepo{Name: repo.Name, URL: repo.HTMLURL}, nil
}

type contentResponse struct {
	SHA string `json:"sha"`
}

// escapePath escapes each segment of a repo-relative path while keeping the
// separators, so names with spaces or '#' survive URL construction.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// PushFile creates or updates one file through the contents API. Updates
// need the current blob SHA, so existing files cost an extra GET.
func (c *Client) PushFile(ctx context.Context, repoName, path string, content []byte, message string) error {
	contentPath := fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, url.PathEscape(repoName), escapePath(path))

	var existing contentResponse
	status, err := c.do(ctx, http.MethodGet, contentPath, nil, &existing)
	if err != nil && status != http.StatusNotFound {
		return err
	}

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if existing.SHA != "" {
		payload["sha"] = existing.SHA
	}

	_, err = c.do(ctx, http.MethodPut, contentPath, payload, nil)
	return err
}
