package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Version information for the abic CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with its major, minor and patch parts colored.
// A suffix such as "-dev" is kept plain. Versions that are not
// dot-separated triples are returned unchanged.
func Colored(enable bool) string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version
	}
	for _, c := range []*color.Color{majorColor, minorColor, patchColor} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	out := fmt.Sprintf("%s.%s.%s", majorColor.Sprint(parts[0]), minorColor.Sprint(parts[1]), patchColor.Sprint(parts[2]))
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
