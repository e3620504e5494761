package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write batch file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeBatchFile(t, `
batch_id: nightly-42
user: admin
plugins:
  - slug: akismet
    action: update
    name: Akismet
    version: "5.3"
    installed_version: "5.2"
    source: /staging/akismet
    activate: true
  - slug: jetpack
    action: install
    version: "13.0"
    source: /staging/jetpack
    network_wide: true
    requires_wp: "6.4"
`)

		f, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}

		if f.BatchID != "nightly-42" || f.User != "admin" {
			t.Errorf("Header fields wrong: %+v", f)
		}

		items := f.Items()
		if len(items) != 2 {
			t.Fatalf("len(items) = %d, want 2", len(items))
		}

		first := items[0]
		if first.Action != ActionUpdate || first.InstalledVersion != "5.2" {
			t.Errorf("First item wrong: %+v", first)
		}
		if first.Activate == nil || !*first.Activate {
			t.Errorf("Explicit activate not carried through")
		}

		second := items[1]
		if second.Activate != nil {
			t.Errorf("Unset activate should stay nil (defers to config)")
		}
		if !second.NetworkWide || second.RequiresWP != "6.4" {
			t.Errorf("Second item wrong: %+v", second)
		}
		if second.Descriptor != "jetpack/jetpack.php" {
			t.Errorf("Default descriptor = %s", second.Descriptor)
		}
	})

	t.Run("RejectsEmptyPluginList", func(t *testing.T) {
		path := writeBatchFile(t, "user: admin\nplugins: []\n")
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "no plugins") {
			t.Errorf("Expected no-plugins error, got %v", err)
		}
	})

	t.Run("RejectsUnknownAction", func(t *testing.T) {
		path := writeBatchFile(t, `
plugins:
  - slug: akismet
    action: delete
    source: /staging/akismet
`)
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "action") {
			t.Errorf("Expected action error, got %v", err)
		}
	})

	t.Run("RejectsUpdateWithoutInstalledVersion", func(t *testing.T) {
		path := writeBatchFile(t, `
plugins:
  - slug: akismet
    action: update
    source: /staging/akismet
`)
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "installed_version") {
			t.Errorf("Expected installed_version error, got %v", err)
		}
	})

	t.Run("RejectsMissingSource", func(t *testing.T) {
		path := writeBatchFile(t, `
plugins:
  - slug: akismet
    action: install
`)
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "source") {
			t.Errorf("Expected source error, got %v", err)
		}
	})
}
