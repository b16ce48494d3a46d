// Package delta reads table metadata from the JSON commit files of a Delta
// transaction log stored in OneLake. Checkpoint parquet files are never
// decoded.
package delta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

const (
	// StorageScope is the token scope for OneLake file access.
	StorageScope = "https://storage.azure.com/.default"

	// DefaultMaxCommits bounds how many commit files are read looking for
	// the latest metaData action.
	DefaultMaxCommits = 1000

	// DefaultMaxListPages caps the continuation pages followed when listing
	// a log directory.
	DefaultMaxListPages = 100

	listPageSize = 5000
)

var (
	// ErrInvalidLog means a log file could not be interpreted.
	ErrInvalidLog = errors.New("invalid delta log")

	// ErrMetadataNotFound means no JSON commit carries a metaData action,
	// usually because older commits were compacted into a checkpoint.
	ErrMetadataNotFound = errors.New("delta metadata not found in JSON commits")
)

var commitFile = regexp.MustCompile(`^(\d{20})\.json$`)

// Metadata describes a Delta table as of its latest metaData action.
type Metadata struct {
	ID               string
	Name             string
	Description      string
	Format           string
	PartitionColumns []string
	Configuration    map[string]string
	CreatedTime      time.Time
	Schema           Schema

	// Version is the commit that carried the metaData action.
	Version int64
	// LatestVersion is the newest commit in the log.
	LatestVersion int64

	MinReaderVersion int
	MinWriterVersion int
}

// Reader reads Delta logs over the DFS REST API.
type Reader struct {
	client       *fabric.Client
	maxCommits   int
	maxListPages int
	logger       *slog.Logger
}

// Option configures a Reader.
type Option func(*readerOptions)

type readerOptions struct {
	httpClient   *http.Client
	maxCommits   int
	maxListPages int
	logger       *slog.Logger
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *readerOptions) { o.httpClient = hc }
}

// WithMaxCommits bounds the number of commit files read.
func WithMaxCommits(n int) Option {
	return func(o *readerOptions) { o.maxCommits = n }
}

// WithMaxListPages bounds the continuation pages followed per listing.
func WithMaxListPages(n int) Option {
	return func(o *readerOptions) { o.maxListPages = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *readerOptions) { o.logger = l }
}

// NewReader creates a Reader that authenticates with cred using the
// storage scope.
func NewReader(cred fabric.Credential, opts ...Option) (*Reader, error) {
	o := readerOptions{maxCommits: DefaultMaxCommits, maxListPages: DefaultMaxListPages, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []fabric.Option{fabric.WithLogger(o.logger)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, fabric.WithHTTPClient(o.httpClient))
	}
	// Every request uses an absolute URL; the base URL is only validated.
	client, err := fabric.New(cred, fabric.Config{
		BaseURL:  "https://onelake.dfs.fabric.microsoft.com",
		Scope:    StorageScope,
		PageSize: listPageSize,
	}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("delta reader: %w", err)
	}
	return &Reader{client: client, maxCommits: o.maxCommits, maxListPages: o.maxListPages, logger: o.logger}, nil
}

// ReadMetadata returns the schema and metadata of the table at location.
func (r *Reader) ReadMetadata(ctx context.Context, location string) (*Metadata, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	versions, err := r.listCommits(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no commits under %s", ErrInvalidLog, loc.LogDir())
	}

	md := &Metadata{LatestVersion: versions[0]}
	var haveMeta, haveProtocol bool
	for i, v := range versions {
		if i >= r.maxCommits {
			break
		}
		raw, err := r.readCommit(ctx, loc, v)
		if err != nil {
			return nil, err
		}
		if err := applyCommit(md, v, raw, &haveMeta, &haveProtocol); err != nil {
			return nil, fmt.Errorf("commit %d: %w", v, err)
		}
		if haveMeta && haveProtocol {
			break
		}
	}
	if !haveMeta {
		return nil, fmt.Errorf("%s: %w", loc.Path, ErrMetadataNotFound)
	}
	r.logger.DebugContext(ctx, "read delta metadata", "table", loc.Path, "version", md.Version, "fields", len(md.Schema.Fields))
	return md, nil
}

// listCommits returns commit versions in the log, newest first. It stops
// with ErrInvalidLog after maxListPages pages or when the service repeats a
// continuation token.
func (r *Reader) listCommits(ctx context.Context, loc Location) ([]int64, error) {
	var (
		versions     []int64
		continuation string
	)
	seen := map[string]bool{}
	for page := 1; ; page++ {
		if page > r.maxListPages {
			return nil, fmt.Errorf("%w: listing %s exceeded %d pages", ErrInvalidLog, loc.LogDir(), r.maxListPages)
		}
		params := url.Values{
			"resource":  {"filesystem"},
			"directory": {loc.LogDir()},
			"recursive": {"false"},
		}
		if continuation != "" {
			params.Set("continuation", continuation)
		}
		resp, err := r.client.Do(ctx, fabric.Request{Method: http.MethodGet, Endpoint: loc.listURL(), Params: params})
		if err != nil {
			if fabric.IsStatus(err, http.StatusNotFound) {
				return nil, fmt.Errorf("%w: %s does not exist", ErrInvalidLog, loc.LogDir())
			}
			return nil, fmt.Errorf("listing %s: %w", loc.LogDir(), err)
		}

		gjson.GetBytes(resp.Body, "paths").ForEach(func(_, p gjson.Result) bool {
			m := commitFile.FindStringSubmatch(path.Base(p.Get("name").String()))
			if m != nil {
				if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					versions = append(versions, v)
				}
			}
			return true
		})

		continuation = resp.Header.Get("x-ms-continuation")
		if continuation == "" {
			break
		}
		if seen[continuation] {
			return nil, fmt.Errorf("%w: listing %s repeated continuation token", ErrInvalidLog, loc.LogDir())
		}
		seen[continuation] = true
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	return versions, nil
}

func (r *Reader) readCommit(ctx context.Context, loc Location, version int64) ([]byte, error) {
	name := fmt.Sprintf("%s/%020d.json", loc.LogDir(), version)
	resp, err := r.client.Do(ctx, fabric.Request{Method: http.MethodGet, Endpoint: loc.fileURL(name)})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return resp.Body, nil
}

// applyCommit folds the newest metaData and protocol actions of one
// newline-delimited commit into md. Commits are visited newest first, so
// values already set are kept.
func applyCommit(md *Metadata, version int64, raw []byte, haveMeta, haveProtocol *bool) error {
	var err error
	gjson.ForEachLine(string(raw), func(line gjson.Result) bool {
		if !*haveMeta {
			if m := line.Get("metaData"); m.Exists() {
				if err = fillMetadata(md, m); err != nil {
					return false
				}
				md.Version = version
				*haveMeta = true
			}
		}
		if !*haveProtocol {
			if p := line.Get("protocol"); p.Exists() {
				md.MinReaderVersion = int(p.Get("minReaderVersion").Int())
				md.MinWriterVersion = int(p.Get("minWriterVersion").Int())
				*haveProtocol = true
			}
		}
		return true
	})
	return err
}

func fillMetadata(md *Metadata, m gjson.Result) error {
	schema, err := ParseSchema(m.Get("schemaString").String())
	if err != nil {
		return err
	}
	md.ID = m.Get("id").String()
	md.Name = m.Get("name").String()
	md.Description = m.Get("description").String()
	md.Format = m.Get("format.provider").String()
	md.Schema = schema

	md.PartitionColumns = nil
	m.Get("partitionColumns").ForEach(func(_, c gjson.Result) bool {
		md.PartitionColumns = append(md.PartitionColumns, c.String())
		return true
	})

	md.Configuration = make(map[string]string)
	m.Get("configuration").ForEach(func(k, v gjson.Result) bool {
		md.Configuration[k.String()] = v.String()
		return true
	})

	if ms := m.Get("createdTime").Int(); ms > 0 {
		md.CreatedTime = time.UnixMilli(ms).UTC()
	}
	return nil
}
