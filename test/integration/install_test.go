//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/addonctl/addonctl/internal/cache"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/addonctl/addonctl/internal/install"
	"github.com/addonctl/addonctl/internal/library"
	"github.com/addonctl/addonctl/internal/project"
	"github.com/addonctl/addonctl/internal/state"
)

// TestInstall_FailuresAreIsolated installs a mix of good assets, an archive
// without an addons directory, a traversal attempt and a missing download.
func TestInstall_FailuresAreIsolated(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		id := fmt.Sprint(i)
		env.Library.publish(id, "Good "+id, buildArchive(t,
			fmt.Sprintf("repo-%d/addons/good_%d/plugin.cfg", i, i),
			fmt.Sprintf("repo-%d/addons/good_%d/script.gd", i, i),
		))
	}
	env.Library.publish("20", "No Marker", buildArchive(t, "repo/plugin.cfg"))
	env.Library.publish("21", "Escapes", buildArchive(t, "addons/evil/../../../outside.txt"))
	env.Library.publish("22", "Gone", nil)

	p, err := project.Open(env.ProjectDir)
	if err != nil {
		t.Fatal(err)
	}
	store, err := p.Init()
	if err != nil {
		t.Fatal(err)
	}
	client := library.New(
		library.WithBaseURL(env.Library.URL),
		library.WithRetries(1),
		library.WithRetryDelay(time.Millisecond),
	)
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "20", "21", "22"} {
		a, err := client.Asset(ctx, id)
		if err != nil {
			t.Fatalf("Asset(%s): %v", id, err)
		}
		if err := store.Put(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	orch := install.New(store, cache.New(p.FS, project.CacheDir()), p.FS, client, install.WithConcurrency(3))
	report := orch.Install(ctx)

	if report.Installed() != 8 || report.Failed() != 3 {
		t.Fatalf("installed %d, failed %d; want 8 and 3\n%v", report.Installed(), report.Failed(), report.Err())
	}

	byID := map[string]install.Outcome{}
	for _, o := range report.Outcomes {
		byID[o.Asset.ID] = o
	}
	if o := byID["20"]; !errs.Is(o.Err, errs.KindStructural) || o.Stage != install.StageLocating {
		t.Errorf("asset 20: stage %s, err %v", o.Stage, o.Err)
	}
	if o := byID["22"]; !errs.Is(o.Err, errs.KindNotFound) || o.Stage != install.StageFetching {
		t.Errorf("asset 22: stage %s, err %v", o.Stage, o.Err)
	}
	if o := byID["21"]; o.Err == nil {
		t.Error("asset 21 escaped the addons directory without an error")
	}
	assertNotExists(t, filepath.Join(filepath.Dir(env.ProjectDir), "outside.txt"))
	assertNotExists(t, filepath.Join(env.ProjectDir, "outside.txt"))

	reloaded, err := p.OpenStore()
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 8; i++ {
		id := fmt.Sprint(i)
		if folder, ok := reloaded.InstallFolder(id); !ok || folder != "good_"+id {
			t.Errorf("InstallFolder(%s) = %q, %v", id, folder, ok)
		}
		assertFileExists(t, filepath.Join(env.ProjectDir, "addons", "good_"+id, "script.gd"))
	}
	if _, ok := reloaded.InstallFolder("20"); ok {
		t.Error("structural failure left a mapping behind")
	}

	// Failed assets stay pending; fixed upstream, they install on the next run.
	env.Library.publish("20", "No Marker", buildArchive(t, "repo/addons/fixed/plugin.cfg"))
	pending := orch.Pending()
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	if _, err := cache.New(p.FS, project.CacheDir()).Clear(); err != nil {
		t.Fatal(err)
	}
	next := orch.Run(ctx, []state.Asset{pending[0]})
	if next.Err() != nil {
		t.Fatalf("retry of 20: %v", next.Err())
	}
	assertFileExists(t, filepath.Join(env.ProjectDir, "addons", "fixed", "plugin.cfg"))
}
