package delta

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a table directory in a hierarchical-namespace storage account.
type Location struct {
	// Endpoint is the scheme and host, e.g. https://onelake.dfs.fabric.microsoft.com.
	Endpoint string
	// Filesystem is the container; on OneLake it is the workspace.
	Filesystem string
	// Path is the table directory inside the filesystem, without slashes at
	// either end.
	Path string
}

// ParseLocation accepts abfss://filesystem@host/path and https://host/filesystem/path.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, fmt.Errorf("parsing table location: %w", err)
	}

	switch u.Scheme {
	case "abfss", "abfs":
		if u.User == nil || u.User.Username() == "" || u.Host == "" {
			return Location{}, fmt.Errorf("table location %q: expected abfss://filesystem@host/path", raw)
		}
		loc := Location{
			Endpoint:   "https://" + u.Host,
			Filesystem: u.User.Username(),
			Path:       strings.Trim(u.Path, "/"),
		}
		return loc, loc.validate(raw)
	case "https", "http":
		fs, p, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		loc := Location{
			Endpoint:   u.Scheme + "://" + u.Host,
			Filesystem: fs,
			Path:       strings.Trim(p, "/"),
		}
		return loc, loc.validate(raw)
	default:
		return Location{}, fmt.Errorf("table location %q: unsupported scheme %q", raw, u.Scheme)
	}
}

func (l Location) validate(raw string) error {
	if l.Filesystem == "" || l.Path == "" {
		return fmt.Errorf("table location %q: missing filesystem or path", raw)
	}
	return nil
}

// LogDir is the path of the transaction log directory.
func (l Location) LogDir() string {
	return l.Path + "/_delta_log"
}

// fileURL returns the URL of a file given its path inside the filesystem.
func (l Location) fileURL(path string) string {
	return l.Endpoint + "/" + url.PathEscape(l.Filesystem) + "/" + escapePath(path)
}

// listURL returns the URL listing the log directory.
func (l Location) listURL() string {
	return l.Endpoint + "/" + url.PathEscape(l.Filesystem)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
