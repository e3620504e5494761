package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/wpbatch/internal/backup"
	"github.com/blackwell-systems/wpbatch/internal/config"
)

// fakeInstaller records calls and can fail or mutate the filesystem per
// descriptor, standing in for wp-cli.
type fakeInstaller struct {
	installed []string
	updated   []string
	failOn    map[string]error
	onInstall func(source, descriptor string)
	onUpdate  func(source, descriptor string)
}

func (f *fakeInstaller) Install(source, descriptor string) error {
	f.installed = append(f.installed, descriptor)
	if f.onInstall != nil {
		f.onInstall(source, descriptor)
	}
	return f.failOn[descriptor]
}

func (f *fakeInstaller) Update(source, descriptor string) error {
	f.updated = append(f.updated, descriptor)
	if f.onUpdate != nil {
		f.onUpdate(source, descriptor)
	}
	return f.failOn[descriptor]
}

// fakeActivator records activations and reports configured active state.
type fakeActivator struct {
	active      map[string]bool
	activated   []string
	networkWide map[string]bool
	failOn      map[string]error
}

func newFakeActivator() *fakeActivator {
	return &fakeActivator{
		active:      make(map[string]bool),
		networkWide: make(map[string]bool),
		failOn:      make(map[string]error),
	}
}

func (f *fakeActivator) IsActive(descriptor string) (bool, error) {
	return f.active[descriptor], nil
}

func (f *fakeActivator) Activate(descriptor string, networkWide bool) error {
	if err := f.failOn[descriptor]; err != nil {
		return err
	}
	f.activated = append(f.activated, descriptor)
	f.networkWide[descriptor] = networkWide
	return nil
}

// testEnv bundles an ItemProcessor with its fakes and directories.
type testEnv struct {
	proc      *ItemProcessor
	installer *fakeInstaller
	activator *fakeActivator
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	cfg := config.Default()
	cfg.PluginDir = filepath.Join(tempDir, "plugins")
	cfg.BackupDir = filepath.Join(tempDir, "backups")
	cfg.AutoRollback = true

	installer := &fakeInstaller{failOn: make(map[string]error)}
	activator := newFakeActivator()

	return &testEnv{
		proc:      NewItemProcessor(installer, activator, backup.New(cfg.BackupDir), cfg),
		installer: installer,
		activator: activator,
		cfg:       cfg,
	}
}

// seedPlugin creates an installed plugin directory with known content.
func (e *testEnv) seedPlugin(t *testing.T, slug, content string) string {
	t.Helper()

	dir := filepath.Join(e.cfg.PluginDir, slug)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to seed plugin %s: %v", slug, err)
	}
	if err := os.WriteFile(filepath.Join(dir, slug+".php"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to seed plugin file: %v", err)
	}
	return dir
}

func hasMessage(res ProcessResult, substr string) bool {
	for _, m := range res.Messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func updateItem(slug string) PackageItem {
	return PackageItem{
		Slug:             slug,
		Action:           ActionUpdate,
		Name:             slug,
		TargetVersion:    "2.0",
		InstalledVersion: "1.0",
		SourcePath:       "/staging/" + slug,
		Descriptor:       slug + "/" + slug + ".php",
	}
}

func installItem(slug string) PackageItem {
	return PackageItem{
		Slug:          slug,
		Action:        ActionInstall,
		Name:          slug,
		TargetVersion: "1.0",
		SourcePath:    "/staging/" + slug,
		Descriptor:    slug + "/" + slug + ".php",
	}
}

func TestProcessIncompatible(t *testing.T) {
	for _, dryRun := range []bool{false, true} {
		t.Run(fmt.Sprintf("dryRun=%v", dryRun), func(t *testing.T) {
			env := newTestEnv(t)

			item := installItem("old-plugin")
			item.CompatibilityIssues = []string{"requires WordPress 6.4 or newer, site runs 6.2"}

			res := env.proc.Process(&item, dryRun)

			if res.Status != StatusIncompatible {
				t.Errorf("Status = %s, want incompatible", res.Status)
			}
			if len(env.installer.installed)+len(env.installer.updated) != 0 {
				t.Errorf("Installer was called for an incompatible item")
			}
			if !hasMessage(res, "requires WordPress 6.4") {
				t.Errorf("Issue missing from messages: %v", res.Messages)
			}
		})
	}
}

func TestProcessDryRun(t *testing.T) {
	env := newTestEnv(t)

	yes := true
	item := updateItem("akismet")
	item.Activate = &yes

	res := env.proc.Process(&item, true)

	if res.Status != StatusSuccess || !res.DryRun {
		t.Errorf("Expected dry-run success, got status=%s dryRun=%v", res.Status, res.DryRun)
	}
	if len(env.installer.updated) != 0 || len(env.activator.activated) != 0 {
		t.Errorf("Dry run touched the installer or activator")
	}
	if !hasMessage(res, "Would update akismet from 1.0 to 2.0") {
		t.Errorf("Missing would-update message: %v", res.Messages)
	}
	if !hasMessage(res, "Would activate akismet") {
		t.Errorf("Missing would-activate message: %v", res.Messages)
	}
}

func TestProcessUpdate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		dir := env.seedPlugin(t, "akismet", "v1")

		env.installer.onUpdate = func(source, descriptor string) {
			os.WriteFile(filepath.Join(dir, "akismet.php"), []byte("v2"), 0644)
		}

		item := updateItem("akismet")
		res := env.proc.Process(&item, false)

		if res.Status != StatusSuccess {
			t.Fatalf("Status = %s, want success (%v)", res.Status, res.Messages)
		}
		if res.BackupPath == "" {
			t.Errorf("Successful update did not record a backup path")
		}
		if _, err := os.Stat(res.BackupPath); err != nil {
			t.Errorf("Backup missing from disk: %v", err)
		}
	})

	t.Run("InstallerFailureRestores", func(t *testing.T) {
		env := newTestEnv(t)
		dir := env.seedPlugin(t, "akismet", "v1")

		item := updateItem("akismet")
		env.installer.failOn[item.Descriptor] = fmt.Errorf("archive is corrupt")
		env.installer.onUpdate = func(source, descriptor string) {
			os.WriteFile(filepath.Join(dir, "akismet.php"), []byte("broken"), 0644)
		}

		res := env.proc.Process(&item, false)

		if res.Status != StatusFailed {
			t.Fatalf("Status = %s, want failed", res.Status)
		}
		if !res.RolledBack {
			t.Errorf("Expected RolledBack after restore")
		}

		// Round-trip: install dir content equals the pre-update snapshot
		data, err := os.ReadFile(filepath.Join(dir, "akismet.php"))
		if err != nil {
			t.Fatalf("Plugin file missing after restore: %v", err)
		}
		if string(data) != "v1" {
			t.Errorf("Restore did not recover original content: %q", data)
		}
	})

	t.Run("BackupFailureSkipsInstaller", func(t *testing.T) {
		env := newTestEnv(t)
		// No seeded plugin: backup source is missing

		item := updateItem("ghost")
		res := env.proc.Process(&item, false)

		if res.Status != StatusFailed {
			t.Errorf("Status = %s, want failed", res.Status)
		}
		if len(env.installer.updated) != 0 {
			t.Errorf("Installer was called despite backup failure")
		}
		if !hasMessage(res, "backup failed") {
			t.Errorf("Backup error missing from messages: %v", res.Messages)
		}
	})

	t.Run("RestoreFailureIsFatalFlagged", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedPlugin(t, "akismet", "v1")

		item := updateItem("akismet")
		env.installer.failOn[item.Descriptor] = fmt.Errorf("archive is corrupt")
		env.installer.onUpdate = func(source, descriptor string) {
			// Destroy the backup root so the restore cannot find it
			os.RemoveAll(env.cfg.BackupDir)
		}

		res := env.proc.Process(&item, false)

		if res.Status != StatusFailed || res.RolledBack {
			t.Errorf("Expected failed without rollback, got status=%s rolledBack=%v", res.Status, res.RolledBack)
		}
		if !hasMessage(res, "FATAL") {
			t.Errorf("Restore failure not flagged as fatal: %v", res.Messages)
		}
	})

	t.Run("AutoRollbackDisabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.cfg.AutoRollback = false
		dir := env.seedPlugin(t, "akismet", "v1")

		item := updateItem("akismet")
		env.installer.failOn[item.Descriptor] = fmt.Errorf("archive is corrupt")
		env.installer.onUpdate = func(source, descriptor string) {
			os.WriteFile(filepath.Join(dir, "akismet.php"), []byte("broken"), 0644)
		}

		res := env.proc.Process(&item, false)

		if res.RolledBack {
			t.Errorf("Restore ran with auto-rollback disabled")
		}
		data, _ := os.ReadFile(filepath.Join(dir, "akismet.php"))
		if string(data) != "broken" {
			t.Errorf("Plugin dir was modified despite disabled rollback: %q", data)
		}
		if res.BackupPath == "" {
			t.Errorf("Backup path not retained for manual recovery")
		}
	})
}

func TestProcessInstall(t *testing.T) {
	t.Run("SuccessWithActivation", func(t *testing.T) {
		env := newTestEnv(t)

		yes := true
		item := installItem("jetpack")
		item.Activate = &yes

		res := env.proc.Process(&item, false)

		if res.Status != StatusSuccess {
			t.Fatalf("Status = %s, want success", res.Status)
		}
		if !res.Activated {
			t.Errorf("Expected Activated")
		}
		if env.activator.networkWide[item.Descriptor] {
			t.Errorf("networkWide forwarded without being requested")
		}
	})

	t.Run("NetworkWideForwarded", func(t *testing.T) {
		env := newTestEnv(t)

		yes := true
		item := installItem("jetpack")
		item.Activate = &yes
		item.NetworkWide = true

		env.proc.Process(&item, false)

		if !env.activator.networkWide[item.Descriptor] {
			t.Errorf("networkWide not forwarded to the activator")
		}
	})

	t.Run("FailureRemovesPartialInstall", func(t *testing.T) {
		env := newTestEnv(t)

		item := installItem("jetpack")
		env.installer.failOn[item.Descriptor] = fmt.Errorf("disk full")
		env.installer.onInstall = func(source, descriptor string) {
			// Leave half-written files behind
			dir := filepath.Join(env.cfg.PluginDir, "jetpack")
			os.MkdirAll(dir, 0755)
			os.WriteFile(filepath.Join(dir, "jetpack.php"), []byte("partial"), 0644)
		}

		res := env.proc.Process(&item, false)

		if res.Status != StatusFailed || res.RolledBack {
			t.Errorf("Expected failed without rollback, got status=%s rolledBack=%v", res.Status, res.RolledBack)
		}
		if _, err := os.Stat(filepath.Join(env.cfg.PluginDir, "jetpack")); !os.IsNotExist(err) {
			t.Errorf("Partial install left behind")
		}
	})

	t.Run("ActivationFailureNonFatal", func(t *testing.T) {
		env := newTestEnv(t)

		yes := true
		item := installItem("jetpack")
		item.Activate = &yes
		env.activator.failOn[item.Descriptor] = fmt.Errorf("plugin raised a fatal error")

		res := env.proc.Process(&item, false)

		if res.Status != StatusSuccess {
			t.Errorf("Activation failure escalated to %s", res.Status)
		}
		if res.Activated {
			t.Errorf("Activated reported despite activation failure")
		}
		if !hasMessage(res, "activation failed") {
			t.Errorf("Missing activation warning: %v", res.Messages)
		}
	})

	t.Run("AutoActivateConfig", func(t *testing.T) {
		env := newTestEnv(t)
		env.cfg.AutoActivate = true

		item := installItem("jetpack") // no explicit activate
		res := env.proc.Process(&item, false)

		if !res.Activated {
			t.Errorf("auto_activate config did not trigger activation")
		}
	})
}

func TestProcessUpdateAlreadyActive(t *testing.T) {
	env := newTestEnv(t)
	env.seedPlugin(t, "akismet", "v1")

	yes := true
	item := updateItem("akismet")
	item.Activate = &yes
	env.activator.active[item.Descriptor] = true

	res := env.proc.Process(&item, false)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %s, want success (%v)", res.Status, res.Messages)
	}
	if !res.Activated {
		t.Errorf("Already-active plugin should still report Activated")
	}
	if len(env.activator.activated) != 0 {
		t.Errorf("Redundant Activate call for an already-active plugin")
	}
}
