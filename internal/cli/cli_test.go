package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/addonctl/addonctl/internal/install"
	"github.com/addonctl/addonctl/internal/state"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags restores every flag to its default between runs of rootCmd.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	viper.Reset()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func pluginArchive(t *testing.T, folder string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{
		"src-main/LICENSE",
		"src-main/addons/" + folder + "/plugin.cfg",
		"src-main/addons/" + folder + "/main.gd",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(w, "content of %s", name)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newLibraryServer serves a small asset library: 1 and 2 are installable,
// "dialog" matches two assets and "terrain" matches exactly asset 2.
func newLibraryServer(t *testing.T) *httptest.Server {
	t.Helper()
	archives := map[string][]byte{
		"1": pluginArchive(t, "cool_plugin"),
		"2": pluginArchive(t, "terrain_tools"),
	}
	titles := map[string]string{"1": "Cool Plugin", "2": "Terrain Tools"}

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/asset":
			switch r.URL.Query().Get("filter") {
			case "dialog":
				fmt.Fprint(w, `{"result":[{"asset_id":"10","title":"Dialog A"},{"asset_id":"11","title":"Dialog B"}]}`)
			case "terrain":
				fmt.Fprint(w, `{"result":[{"asset_id":"2","title":"Terrain Tools"}]}`)
			default:
				fmt.Fprint(w, `{"result":[]}`)
			}
		case strings.HasPrefix(r.URL.Path, "/asset/"):
			id := strings.TrimPrefix(r.URL.Path, "/asset/")
			title, ok := titles[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, `{"asset_id":%q,"title":%q,"download_url":%q}`, id, title, srv.URL+"/files/"+id+".zip")
		case strings.HasPrefix(r.URL.Path, "/files/"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/files/"), ".zip")
			data, ok := archives[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ADDONCTL_LIBRARY_URL", newLibraryServer(t).URL)
	t.Setenv("ADDONCTL_RETRIES", "0")

	dir := t.TempDir()
	godot := "config_version=5\n[application]\nconfig/features=PackedStringArray(\"4.3\", \"Forward Plus\")\n"
	if err := os.WriteFile(filepath.Join(dir, "project.godot"), []byte(godot), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCLI_Lifecycle(t *testing.T) {
	dir := setupProject(t)

	out, _, err := runCLI(t, "init", "-C", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Godot 4.3.0") {
		t.Errorf("init output = %q", out)
	}

	out, _, err = runCLI(t, "init", "-C", dir)
	if err != nil || !strings.Contains(out, "Already initialized") {
		t.Errorf("second init: out=%q err=%v", out, err)
	}

	out, _, err = runCLI(t, "add", "-C", dir, "1", "terrain")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Added 1 (Cool Plugin)") || !strings.Contains(out, "Added 2 (Terrain Tools)") {
		t.Errorf("add output = %q", out)
	}

	out, _, err = runCLI(t, "add", "-C", dir, "1")
	if err != nil || !strings.Contains(out, "Already added: 1") {
		t.Errorf("re-add: out=%q err=%v", out, err)
	}

	out, _, err = runCLI(t, "install", "-C", dir, "-j", "2")
	if err != nil {
		t.Fatalf("install: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ 1 (Cool Plugin) → addons/cool_plugin") || !strings.Contains(out, "Installed 2, failed 0") {
		t.Errorf("install output = %q", out)
	}
	for _, p := range []string{"addons/cool_plugin/plugin.cfg", "addons/terrain_tools/main.gd", "addons/.addonctl/1.zip"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "LICENSE")); err == nil {
		t.Error("files outside the plugin folder were extracted")
	}

	out, _, err = runCLI(t, "i", "-C", dir)
	if err != nil || !strings.Contains(out, "Nothing to install") {
		t.Errorf("second install: out=%q err=%v", out, err)
	}

	out, _, err = runCLI(t, "ls", "-C", dir, "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("list --json output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].Status != statusInstalled || entries[0].Folder != "cool_plugin" {
		t.Errorf("list entries = %+v", entries)
	}

	out, _, err = runCLI(t, "uninstall", "-C", dir, "1")
	if err != nil || !strings.Contains(out, "Removed 1 (Cool Plugin)") {
		t.Fatalf("uninstall: out=%q err=%v", out, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "addons", "cool_plugin")); !os.IsNotExist(err) {
		t.Errorf("addon folder still present after uninstall: %v", err)
	}
	if _, _, err := runCLI(t, "rm", "-C", dir, "1"); err == nil {
		t.Error("uninstalling an unknown id should fail")
	}

	out, _, err = runCLI(t, "clean", "-C", dir)
	if err != nil || !strings.Contains(out, "Removed 2 cached archives") {
		t.Errorf("clean: out=%q err=%v", out, err)
	}
}

func TestCLI_InstallRegistersIDs(t *testing.T) {
	dir := setupProject(t)
	if _, _, err := runCLI(t, "init", "-C", dir); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "install", "-C", dir, "2")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, "Added 2 (Terrain Tools)") || !strings.Contains(out, "Installed 1, failed 0") {
		t.Errorf("install output = %q", out)
	}
}

func TestCLI_InstallContinuesPastUnknownID(t *testing.T) {
	dir := setupProject(t)
	if _, _, err := runCLI(t, "init", "-C", dir); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "install", "-C", dir, "999", "2")
	if err == nil {
		t.Fatal("install with an unknown id should exit non-zero")
	}
	for _, want := range []string{"✗ 999:", "Added 2 (Terrain Tools)", "Installed 1, failed 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("install output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "addons", "terrain_tools", "plugin.cfg")); err != nil {
		t.Errorf("asset 2 was not installed: %v", err)
	}
}

func TestCLI_AddAmbiguousName(t *testing.T) {
	dir := setupProject(t)
	if _, _, err := runCLI(t, "init", "-C", dir); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, "add", "-C", dir, "dialog")
	if err == nil {
		t.Fatal("adding an ambiguous name should fail")
	}
	if !strings.Contains(out, "10") || !strings.Contains(out, "Dialog B") {
		t.Errorf("candidates not listed: %q", out)
	}

	_, stderr, err := runCLI(t, "add", "-C", dir, "nothing-like-this")
	if err == nil || !strings.Contains(stderr, "no asset matches") {
		t.Errorf("adding an unknown name: stderr=%q err=%v", stderr, err)
	}
}

func TestCLI_RequiresInit(t *testing.T) {
	dir := setupProject(t)
	for _, cmd := range []string{"list", "install"} {
		_, _, err := runCLI(t, cmd, "-C", dir)
		if err == nil || !strings.Contains(err.Error(), "init") {
			t.Errorf("%s before init: err = %v", cmd, err)
		}
	}
}

func TestCLI_SearchJSON(t *testing.T) {
	dir := setupProject(t)

	out, _, err := runCLI(t, "s", "-C", dir, "dialog", "--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var entries []searchEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("search --json output is not JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "10" {
		t.Errorf("search entries = %+v", entries)
	}

	out, _, err = runCLI(t, "search", "-C", dir, "zzz")
	if err != nil || !strings.Contains(out, "No assets found") {
		t.Errorf("empty search: out=%q err=%v", out, err)
	}
}

func TestListEntries(t *testing.T) {
	assets := []state.Asset{
		{ID: "1", Title: "A", InstallFolder: "a"},
		{ID: "2", Title: "B", InstallFolder: "b"},
		{ID: "3", Title: "C"},
	}
	present := func(folder string) bool { return folder == "a" }

	got := listEntries(assets, present)
	want := []string{statusInstalled, statusMissing, statusNotInstalled}
	for i, e := range got {
		if e.Status != want[i] {
			t.Errorf("entry %s status = %q, want %q", e.ID, e.Status, want[i])
		}
	}
}

func TestPrintReport(t *testing.T) {
	report := install.Report{Outcomes: []install.Outcome{
		{Asset: state.Asset{ID: "1", Title: "One"}, Folder: "one", Stage: install.StageInstalled, FromCache: true},
		{Asset: state.Asset{ID: "2", Title: "Two"}, Stage: install.StageLocating, Err: errors.New("no addons directory")},
	}}
	report.Outcomes[0].Files.Written = 3
	report.Outcomes[0].Files.Bytes = 2048

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	for _, want := range []string{
		"✓ 1 (One) → addons/one, 3 files, 2.0 kB, cached",
		"✗ 2 (Two): no addons directory",
		"Installed 1, failed 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
