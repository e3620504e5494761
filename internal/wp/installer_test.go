package wp

import "testing"

func TestSlugFromDescriptor(t *testing.T) {
	tests := []struct {
		descriptor string
		want       string
	}{
		{"akismet/akismet.php", "akismet"},
		{"jetpack/jetpack.php", "jetpack"},
		{"hello-dolly/hello.php", "hello-dolly"},
		{"akismet", "akismet"},
		{"hello.php", "hello"},
	}

	for _, tt := range tests {
		if got := SlugFromDescriptor(tt.descriptor); got != tt.want {
			t.Errorf("SlugFromDescriptor(%q) = %q, want %q", tt.descriptor, got, tt.want)
		}
	}
}

func TestNewCLI(t *testing.T) {
	t.Run("DefaultsBin", func(t *testing.T) {
		c := NewCLI("", "")
		if c.bin != "wp" {
			t.Errorf("bin = %s, want wp", c.bin)
		}
	})

	t.Run("SitePathFlag", func(t *testing.T) {
		c := NewCLI("wp", "/var/www/site")
		args := c.args("plugin", "install", "/staging/akismet")
		if args[len(args)-1] != "--path=/var/www/site" {
			t.Errorf("args = %v, missing --path flag", args)
		}

		c = NewCLI("wp", "")
		args = c.args("plugin", "install", "/staging/akismet")
		if len(args) != 3 {
			t.Errorf("args = %v, unexpected flag without a site path", args)
		}
	})
}
