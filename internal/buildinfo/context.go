// Package buildinfo holds build-time metadata kept apart from user
// configuration.
package buildinfo

import "fmt"

// Set by the linker, e.g. -ldflags "-X github.com/tphakala/go-audioclient/internal/buildinfo.version=v1.2.0"
var (
	version   = "dev"
	buildDate = "unknown"
)

// Context contains build-time metadata that is not user-configurable
type Context struct {
	Version   string
	BuildDate string
}

// Current returns the metadata linked into the binary
func Current() *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

func (c *Context) String() string {
	return fmt.Sprintf("audioclient %s (built %s)", c.Version, c.BuildDate)
}
