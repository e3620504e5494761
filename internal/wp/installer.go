// Package wp wraps the wp-cli binary for plugin install, update, and
// activation operations. The Installer and Activator interfaces are the
// injection points used by the batch processor; tests substitute fakes.
package wp

import (
	"fmt"
	"os/exec"
	"strings"
)

// Installer applies a staged plugin package to the site. Any non-nil error
// is surfaced as the operation's failure cause.
type Installer interface {
	// Install installs a new plugin from source (a staged archive or
	// extracted directory).
	Install(source, descriptor string) error
	// Update replaces an installed plugin with the version staged at source.
	Update(source, descriptor string) error
}

// Activator toggles plugin activation state.
type Activator interface {
	// IsActive reports whether the plugin is currently active.
	IsActive(descriptor string) (bool, error)
	// Activate enables the plugin, network-wide when networkWide is set.
	Activate(descriptor string, networkWide bool) error
}

// CLI is the production Installer/Activator backed by wp-cli.
type CLI struct {
	bin      string
	sitePath string
}

// NewCLI creates a wp-cli wrapper. bin defaults to "wp" when empty;
// sitePath is passed as --path when non-empty.
func NewCLI(bin, sitePath string) *CLI {
	if bin == "" {
		bin = "wp"
	}
	return &CLI{bin: bin, sitePath: sitePath}
}

// Install installs a new plugin from a staged archive or directory.
func (c *CLI) Install(source, descriptor string) error {
	args := c.args("plugin", "install", source)
	output, err := exec.Command(c.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp plugin install %s failed: %w (output: %s)",
			SlugFromDescriptor(descriptor), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Update replaces an installed plugin with the staged version. wp-cli has no
// separate update-from-file verb; install --force overwrites in place.
func (c *CLI) Update(source, descriptor string) error {
	args := c.args("plugin", "install", source, "--force")
	output, err := exec.Command(c.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp plugin update %s failed: %w (output: %s)",
			SlugFromDescriptor(descriptor), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// IsActive reports whether a plugin is active. wp-cli signals "inactive"
// with exit status 1 and no output, which is not an error here.
func (c *CLI) IsActive(descriptor string) (bool, error) {
	args := c.args("plugin", "is-active", SlugFromDescriptor(descriptor))
	err := exec.Command(c.bin, args...).Run()
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("wp plugin is-active failed: %w", err)
}

// Activate enables a plugin, optionally across the whole network.
func (c *CLI) Activate(descriptor string, networkWide bool) error {
	args := c.args("plugin", "activate", SlugFromDescriptor(descriptor))
	if networkWide {
		args = append(args, "--network")
	}
	output, err := exec.Command(c.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp plugin activate %s failed: %w (output: %s)",
			SlugFromDescriptor(descriptor), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// args prepends the --path flag when a site path is configured.
func (c *CLI) args(verb ...string) []string {
	if c.sitePath != "" {
		return append(verb, "--path="+c.sitePath)
	}
	return verb
}

// SlugFromDescriptor extracts the plugin slug from an installer-addressable
// descriptor such as "akismet/akismet.php". A bare slug passes through.
func SlugFromDescriptor(descriptor string) string {
	if i := strings.IndexByte(descriptor, '/'); i > 0 {
		return descriptor[:i]
	}
	return strings.TrimSuffix(descriptor, ".php")
}
