package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type githubStub struct {
	repos    map[string]bool
	contents map[string]string // "repo/path" -> sha
	creates  int
	puts     []map[string]any
}

func newGithubStub() *githubStub {
	return &githubStub{repos: make(map[string]bool), contents: make(map[string]string)}
}

func (g *githubStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/{repo}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("repo")
		if !g.repos[name] {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"name":     name,
			"html_url": "https://github.com/acme/" + name,
		})
	})
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		g.repos[body.Name] = true
		g.creates++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"name":     body.Name,
			"html_url": "https://github.com/acme/" + body.Name,
		})
	})
	mux.HandleFunc("GET /repos/acme/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("repo") + "/" + r.PathValue("path")
		sha, ok := g.contents[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"sha": sha})
	})
	mux.HandleFunc("PUT /repos/acme/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		g.puts = append(g.puts, body)
		key := r.PathValue("repo") + "/" + r.PathValue("path")
		g.contents[key] = "sha-" + key
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": g.contents[key]}})
	})
	return mux
}

func TestEnsureRepoCreatesWhenAbsent(t *testing.T) {
	stub := newGithubStub()
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	client := NewClient(srv.URL, "acme", "test-token")
	repo, err := client.EnsureRepo(context.Background(), "flashio-demo", "demo project", true)
	require.NoError(t, err)

	assert.Equal(t, "flashio-demo", repo.Name)
	assert.Equal(t, "https://github.com/acme/flashio-demo", repo.URL)
	assert.Equal(t, 1, stub.creates)

	// Second call finds it and does not create again.
	repo, err = client.EnsureRepo(context.Background(), "flashio-demo", "demo project", true)
	require.NoError(t, err)
	assert.Equal(t, "flashio-demo", repo.Name)
	assert.Equal(t, 1, stub.creates)
}

func TestPushFileCreateThenUpdate(t *testing.T) {
	stub := newGithubStub()
	stub.repos["flashio-demo"] = true
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	client := NewClient(srv.URL, "acme", "test-token")
	content := []byte("console.log('hi')\n")
	require.NoError(t, client.PushFile(context.Background(), "flashio-demo", "src/index.js", content, "initial commit"))

	require.Len(t, stub.puts, 1)
	first := stub.puts[0]
	assert.Equal(t, "initial commit", first["message"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), first["content"])
	assert.NotContains(t, first, "sha", "a new file carries no blob sha")

	// An update must send the existing blob sha.
	require.NoError(t, client.PushFile(context.Background(), "flashio-demo", "src/index.js", []byte("v2"), "update"))
	require.Len(t, stub.puts, 2)
	assert.Equal(t, "sha-flashio-demo/src/index.js", stub.puts[1]["sha"])
}

func TestPushFileEscapesPathSegments(t *testing.T) {
	stub := newGithubStub()
	stub.repos["flashio-demo"] = true
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	client := NewClient(srv.URL, "acme", "test-token")
	// Spaces, '#' and '?' would truncate or break the URL if left unescaped.
	path := "my docs/notes #1?.md"
	require.NoError(t, client.PushFile(context.Background(), "flashio-demo", path, []byte("x"), "m"))

	require.Len(t, stub.puts, 1)
	_, ok := stub.contents["flashio-demo/"+path]
	assert.True(t, ok, "the server must see the original path, segment separators intact")
}

func TestPushFileServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limited"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "acme", "test-token")
	err := client.PushFile(context.Background(), "flashio-demo", "a.txt", []byte("x"), "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
