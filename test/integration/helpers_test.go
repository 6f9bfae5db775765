//go:build integration

package integration_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testEnv holds an isolated Godot project and a fake asset library.
type testEnv struct {
	HomeDir    string // HOME, so user config never leaks in
	ProjectDir string // a Godot project with project.godot
	Library    *fakeLibrary
}

// setupTestEnv creates isolated temp directories and a library server. The
// env vars are restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Library:    newFakeLibrary(t),
	}
	t.Setenv("HOME", env.HomeDir)
	t.Setenv("ADDONCTL_PROJECT", env.ProjectDir)

	writeFile(t, filepath.Join(env.ProjectDir, "project.godot"), `; Engine configuration file.
config_version=5

[application]

config/name="Integration"
config/features=PackedStringArray("4.3", "GL Compatibility")
`)
	return env
}

// fakeLibrary is an in-process asset library API.
type fakeLibrary struct {
	*httptest.Server

	mu        sync.Mutex
	assets    map[string]string // id -> title
	archives  map[string][]byte // id -> zip
	downloads map[string]int
}

func newFakeLibrary(t *testing.T) *fakeLibrary {
	t.Helper()
	l := &fakeLibrary{
		assets:    map[string]string{},
		archives:  map[string][]byte{},
		downloads: map[string]int{},
	}
	l.Server = httptest.NewServer(http.HandlerFunc(l.serve))
	t.Cleanup(l.Close)
	return l
}

func (l *fakeLibrary) serve(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case r.URL.Path == "/asset":
		filter := strings.ToLower(r.URL.Query().Get("filter"))
		var rows []string
		for id, title := range l.assets {
			if strings.Contains(strings.ToLower(title), filter) {
				rows = append(rows, fmt.Sprintf(`{"asset_id":%q,"title":%q}`, id, title))
			}
		}
		fmt.Fprintf(w, `{"result":[%s]}`, strings.Join(rows, ","))
	case strings.HasPrefix(r.URL.Path, "/asset/"):
		id := strings.TrimPrefix(r.URL.Path, "/asset/")
		title, ok := l.assets[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"asset_id":%q,"title":%q,"download_url":%q}`, id, title, l.URL+"/download/"+id)
	case strings.HasPrefix(r.URL.Path, "/download/"):
		id := strings.TrimPrefix(r.URL.Path, "/download/")
		data, ok := l.archives[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		l.downloads[id]++
		w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

// publish makes an asset available. A nil archive publishes metadata only,
// so downloads fail.
func (l *fakeLibrary) publish(id, title string, archive []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[id] = title
	if archive != nil {
		l.archives[id] = archive
	}
}

func (l *fakeLibrary) downloadCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.downloads[id]
}

// buildArchive zips files in the given order.
func buildArchive(t *testing.T, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if !strings.HasSuffix(name, "/") {
			fmt.Fprintf(w, "// %s\n", name)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// writeFile creates a file with the given content, creating parent dirs.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the path does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

// assertNotExists fails the test if the path exists.
func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected path to not exist: %s", path)
	}
}

// assertFileContains fails the test if the file doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("expected %s to contain %q, got:\n%s", path, substr, string(data))
	}
}
