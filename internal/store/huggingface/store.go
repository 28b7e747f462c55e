package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

// DefaultEndpoint is the public Hub.
const DefaultEndpoint = "https://huggingface.co"

// Config locates the split's parquet shards on the Hub.
type Config struct {
	Endpoint string
	// Repo is the dataset id, owner/name.
	Repo     string
	Revision string
	// DataDir is the repository directory holding the shards, "data" for
	// datasets pushed by the datasets library.
	DataDir string
	Split   string
	Token   string
	Private bool
	Timeout time.Duration
}

// Hasher computes the LFS object id and size of an upload.
type Hasher interface {
	HashReader(r io.Reader) (string, int64, error)
}

// Option customises a Store.
type Option func(*Store)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.http = c }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store reads and commits the split's parquet shards through the Hub HTTP API.
type Store struct {
	cfg    Config
	http   *http.Client
	hasher Hasher
	logger *zap.Logger
}

// New validates cfg and returns a Store. It does not contact the Hub; call
// Authenticate to check the credential.
func New(cfg Config, hasher Hasher, opts ...Option) (*Store, error) {
	if strings.Count(cfg.Repo, "/") != 1 {
		return nil, fmt.Errorf("repo must look like owner/name, got %q", cfg.Repo)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("hub token is required")
	}
	cfg.DataDir = strings.Trim(cfg.DataDir, "/")
	if cfg.DataDir == "" || cfg.Split == "" {
		return nil, errors.New("data dir and split are required")
	}
	if hasher == nil {
		return nil, errors.New("hasher is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	if cfg.Revision == "" {
		cfg.Revision = "main"
	}
	s := &Store{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		hasher: hasher,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("repo", cfg.Repo), zap.String("split", cfg.Split))
	return s, nil
}

func (s *Store) revision() string {
	return url.PathEscape(s.cfg.Revision)
}

// shardPath is where Publish writes the split: one shard, named the way the
// datasets library names single-shard splits.
func (s *Store) shardPath() string {
	return fmt.Sprintf("%s/%s-00000-of-00001%s", s.cfg.DataDir, s.cfg.Split, parquetExt)
}

// shards lists the split's parquet files. A missing repository, revision or
// data directory is reported as store.ErrNotFound.
func (s *Store) shards(ctx context.Context) ([]treeEntry, error) {
	entries, err := s.listDir(ctx, s.cfg.DataDir)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.notFound() {
			return nil, fmt.Errorf("%s: %w", s.URI(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", s.URI(), err)
	}
	return splitShards(entries, s.cfg.Split)
}

// Load downloads and decodes every shard of the split, in path order. A split
// with no shards is reported as store.ErrNotFound.
func (s *Store) Load(ctx context.Context) (dataset.Snapshot, error) {
	shards, err := s.shards(ctx)
	if err != nil {
		return dataset.Snapshot{}, err
	}
	if len(shards) == 0 {
		return dataset.Snapshot{}, fmt.Errorf("%s: no shards: %w", s.URI(), store.ErrNotFound)
	}

	var records []dataset.Record
	for _, shard := range shards {
		got, err := s.loadShard(ctx, shard.Path)
		if err != nil {
			return dataset.Snapshot{}, err
		}
		records = append(records, got...)
	}
	s.logger.Debug("Downloaded split", zap.Int("shards", len(shards)), zap.Int("records", len(records)))
	return dataset.Snapshot{Records: records}, nil
}

func (s *Store) loadShard(ctx context.Context, file string) ([]dataset.Record, error) {
	u := fmt.Sprintf("%s/datasets/%s/resolve/%s/%s", s.cfg.Endpoint, s.cfg.Repo, s.revision(), file)
	resp, err := s.do(ctx, request{method: http.MethodGet, url: u})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file, err)
	}
	records, err := dataset.ReadParquet(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return records, nil
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

type commitLFSFile struct {
	Path string `json:"path"`
	Algo string `json:"algo"`
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type commitDeletedFile struct {
	Path string `json:"path"`
}

type commitResponse struct {
	CommitOID string `json:"commitOid"`
	CommitURL string `json:"commitUrl"`
}

// Publish replaces the split with snap in a single commit, creating the
// repository first if needed. The snapshot is written as one parquet shard
// and every other shard of the split is deleted in the same commit.
func (s *Store) Publish(ctx context.Context, snap dataset.Snapshot, message string) error {
	data, err := dataset.EncodeParquet(snap.Records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.URI(), err)
	}
	if err := s.ensureRepo(ctx); err != nil {
		return err
	}
	stale, err := s.shards(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	target := s.shardPath()
	mode, err := s.uploadMode(ctx, target, data)
	if err != nil {
		return err
	}

	lines := []commitLine{{Key: "header", Value: commitHeader{Summary: commitSummary(message, target)}}}
	switch mode {
	case uploadModeLFS:
		oid, size, err := s.hasher.HashReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("hash upload: %w", err)
		}
		if err := s.uploadLFS(ctx, lfsObject{OID: oid, Size: size}, data); err != nil {
			return err
		}
		lines = append(lines, commitLine{Key: "lfsFile", Value: commitLFSFile{Path: target, Algo: "sha256", OID: oid, Size: size}})
	default:
		lines = append(lines, commitLine{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(data),
			Path:     target,
			Encoding: "base64",
		}})
	}
	var deleted []string
	for _, shard := range stale {
		if shard.Path == target {
			continue
		}
		deleted = append(deleted, shard.Path)
		lines = append(lines, commitLine{Key: "deletedFile", Value: commitDeletedFile{Path: shard.Path}})
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode commit: %w", err)
		}
	}

	u := fmt.Sprintf("%s/api/datasets/%s/commit/%s", s.cfg.Endpoint, s.cfg.Repo, s.revision())
	resp, err := s.do(ctx, request{method: http.MethodPost, url: u, body: &body, contentType: "application/x-ndjson"})
	if err != nil {
		return fmt.Errorf("commit %s: %w", target, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only
	var commit commitResponse
	if err := json.NewDecoder(resp.Body).Decode(&commit); err != nil {
		return fmt.Errorf("decode commit response: %w", err)
	}
	s.logger.Info("Committed split",
		zap.String("path", target),
		zap.String("upload_mode", mode),
		zap.Int("bytes", len(data)),
		zap.Strings("deleted", deleted),
		zap.String("commit", commit.CommitOID),
		zap.String("commit_url", commit.CommitURL))
	return nil
}

func commitSummary(message, target string) string {
	if message == "" {
		return "Update " + target
	}
	return message
}

// URI returns the hf:// pattern matching the split's shards.
func (s *Store) URI() string {
	return fmt.Sprintf("hf://datasets/%s@%s/%s/%s-*%s", s.cfg.Repo, s.cfg.Revision, s.cfg.DataDir, s.cfg.Split, parquetExt)
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}
