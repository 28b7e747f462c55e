package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
)

const parquetExt = ".parquet"

type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// listDir returns the entries directly under dir, following the Link
// header the Hub uses to paginate large listings.
func (s *Store) listDir(ctx context.Context, dir string) ([]treeEntry, error) {
	next := fmt.Sprintf("%s/api/datasets/%s/tree/%s/%s", s.cfg.Endpoint, s.cfg.Repo, s.revision(), dir)
	var entries []treeEntry
	for next != "" {
		resp, err := s.do(ctx, request{method: http.MethodGet, url: next})
		if err != nil {
			return nil, err
		}
		var page []treeEntry
		err = json.NewDecoder(resp.Body).Decode(&page)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode tree %s: %w", dir, err)
		}
		entries = append(entries, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	return entries, nil
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		return strings.Trim(strings.TrimSpace(target), "<>")
	}
	return ""
}

// splitShards picks the split's files out of a directory listing, sorted by
// path. Files named for the split in any format other than parquet are an
// error, since publishing beside them would leave the split ambiguous.
func splitShards(entries []treeEntry, split string) ([]treeEntry, error) {
	var shards []treeEntry
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		base := path.Base(e.Path)
		stem, _, _ := strings.Cut(base, ".")
		if stem != split && !strings.HasPrefix(stem, split+"-") {
			continue
		}
		if !strings.HasSuffix(base, parquetExt) {
			return nil, fmt.Errorf("split %q has non-parquet file %s", split, e.Path)
		}
		shards = append(shards, e)
	}
	slices.SortFunc(shards, func(a, b treeEntry) int { return strings.Compare(a.Path, b.Path) })
	return shards, nil
}
