package reporter

import (
	"runtime"

	"github.com/mileusna/useragent"
)

const (
	defaultBrowserName    = "chromium"
	defaultBrowserVersion = "1.0"
)

type browser struct {
	name    string
	version string
}

// browserOf detects the browser of a project. A configured user agent is
// parsed; otherwise the project's browserName is used. The user agent is only
// set for projects emulating a device.
func (r *Reporter) browserOf(projectName string) browser {
	project, ok := r.results.Project(projectName)
	if !ok && len(r.results.Config.Projects) > 0 {
		project = r.results.Config.Projects[0]
	}

	if project.Use.UserAgent == "" {
		name := project.Use.BrowserName
		if name == "" {
			name = defaultBrowserName
		}
		return browser{name: name, version: defaultBrowserVersion}
	}

	ua := useragent.Parse(project.Use.UserAgent)
	b := browser{name: ua.Name, version: ua.Version}
	if b.name == "" {
		b.name = defaultBrowserName
	}
	if b.version == "" {
		b.version = defaultBrowserVersion
	}
	return b
}

func platformName() string {
	switch runtime.GOOS {
	case "darwin", "linux", "windows":
		return runtime.GOOS
	default:
		return "unknown"
	}
}
