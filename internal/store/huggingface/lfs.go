package huggingface

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	uploadModeLFS     = "lfs"
	uploadModeRegular = "regular"
	sampleBytes       = 512
)

type preuploadFile struct {
	Path   string `json:"path"`
	Sample string `json:"sample"`
	Size   int    `json:"size"`
}

type preuploadResponse struct {
	Files []struct {
		Path         string `json:"path"`
		UploadMode   string `json:"uploadMode"`
		ShouldIgnore bool   `json:"shouldIgnore"`
	} `json:"files"`
}

// uploadMode asks the Hub whether data, committed at file, belongs in LFS.
func (s *Store) uploadMode(ctx context.Context, file string, data []byte) (string, error) {
	sample := data
	if len(sample) > sampleBytes {
		sample = sample[:sampleBytes]
	}
	body := map[string][]preuploadFile{
		"files": {{Path: file, Sample: base64.StdEncoding.EncodeToString(sample), Size: len(data)}},
	}
	var resp preuploadResponse
	url := fmt.Sprintf("%s/api/datasets/%s/preupload/%s", s.cfg.Endpoint, s.cfg.Repo, s.revision())
	if err := s.doJSON(ctx, request{method: http.MethodPost, url: url}, body, &resp); err != nil {
		return "", fmt.Errorf("preupload %s: %w", file, err)
	}
	for _, f := range resp.Files {
		if f.Path == file && f.UploadMode != "" {
			return f.UploadMode, nil
		}
	}
	return uploadModeRegular, nil
}

type lfsObject struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsBatchRequest struct {
	Operation string      `json:"operation"`
	Transfers []string    `json:"transfers"`
	Objects   []lfsObject `json:"objects"`
	HashAlgo  string      `json:"hash_algo"`
	Ref       struct {
		Name string `json:"name"`
	} `json:"ref"`
}

type lfsBatchResponse struct {
	Objects []struct {
		lfsObject
		Actions map[string]lfsAction `json:"actions"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"objects"`
}

type completionPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

// uploadLFS pushes data to LFS storage as obj. Objects the Hub already
// holds come back without an upload action and are skipped.
func (s *Store) uploadLFS(ctx context.Context, obj lfsObject, data []byte) error {
	oid := obj.OID
	batch := lfsBatchRequest{
		Operation: "upload",
		Transfers: []string{"basic", "multipart"},
		Objects:   []lfsObject{obj},
		HashAlgo:  "sha256",
	}
	batch.Ref.Name = gitRef(s.cfg.Revision)

	var resp lfsBatchResponse
	url := fmt.Sprintf("%s/datasets/%s.git/info/lfs/objects/batch", s.cfg.Endpoint, s.cfg.Repo)
	err := s.doJSON(ctx, request{
		method:      http.MethodPost,
		url:         url,
		contentType: lfsMediaType,
		accept:      lfsMediaType,
	}, batch, &resp)
	if err != nil {
		return fmt.Errorf("lfs batch: %w", err)
	}
	if len(resp.Objects) != 1 {
		return fmt.Errorf("lfs batch: expected 1 object, got %d", len(resp.Objects))
	}
	got := resp.Objects[0]
	if got.Error != nil {
		return fmt.Errorf("lfs batch: object %s: %d %s", oid, got.Error.Code, got.Error.Message)
	}

	upload, ok := got.Actions["upload"]
	if !ok {
		s.logger.Debug("LFS object already present", zap.String("oid", oid))
		return nil
	}
	if chunk, ok := upload.Header["chunk_size"]; ok {
		if err := s.uploadMultipart(ctx, obj, upload, chunk, data); err != nil {
			return err
		}
	} else if err := s.uploadSingle(ctx, upload, data); err != nil {
		return err
	}

	if verify, ok := got.Actions["verify"]; ok {
		err := s.doJSON(ctx, request{
			method:      http.MethodPost,
			url:         verify.Href,
			contentType: lfsMediaType,
			accept:      lfsMediaType,
			headers:     verify.Header,
		}, obj, nil)
		if err != nil {
			return fmt.Errorf("lfs verify: %w", err)
		}
	}
	return nil
}

// gitRef qualifies a branch name; full refs such as refs/pr/1 pass through.
func gitRef(revision string) string {
	if strings.HasPrefix(revision, "refs/") {
		return revision
	}
	return "refs/heads/" + revision
}

func (s *Store) uploadSingle(ctx context.Context, action lfsAction, data []byte) error {
	resp, err := s.do(ctx, request{
		method:    http.MethodPut,
		url:       action.Href,
		body:      bytes.NewReader(data),
		headers:   action.Header,
		anonymous: true,
	})
	if err != nil {
		return fmt.Errorf("lfs upload: %w", err)
	}
	return resp.Body.Close()
}

// uploadMultipart PUTs each chunk to its presigned part URL, then reports
// the collected ETags to the completion endpoint.
func (s *Store) uploadMultipart(ctx context.Context, obj lfsObject, action lfsAction, chunkHeader string, data []byte) error {
	chunkSize, err := strconv.Atoi(chunkHeader)
	if err != nil || chunkSize <= 0 {
		return fmt.Errorf("lfs multipart: invalid chunk_size %q", chunkHeader)
	}

	// Part URLs are keyed by their (possibly zero-padded) part number.
	keys := make(map[int]string)
	var numbers []int
	for key := range action.Header {
		if n, err := strconv.Atoi(key); err == nil {
			keys[n] = key
			numbers = append(numbers, n)
		}
	}
	slices.Sort(numbers)
	want := (len(data) + chunkSize - 1) / chunkSize
	if len(numbers) != want {
		return fmt.Errorf("lfs multipart: expected %d part urls, got %d", want, len(numbers))
	}

	parts := make([]completionPart, 0, len(numbers))
	for i, n := range numbers {
		start := i * chunkSize
		end := min(start+chunkSize, len(data))
		resp, err := s.do(ctx, request{
			method:    http.MethodPut,
			url:       action.Header[keys[n]],
			body:      bytes.NewReader(data[start:end]),
			anonymous: true,
		})
		if err != nil {
			return fmt.Errorf("lfs multipart part %d: %w", n, err)
		}
		etag := resp.Header.Get("ETag")
		_ = resp.Body.Close()
		if etag == "" {
			return fmt.Errorf("lfs multipart part %d: missing ETag", n)
		}
		parts = append(parts, completionPart{PartNumber: i + 1, ETag: etag})
	}

	completion := struct {
		OID   string           `json:"oid"`
		Parts []completionPart `json:"parts"`
	}{OID: obj.OID, Parts: parts}
	err = s.doJSON(ctx, request{
		method:      http.MethodPost,
		url:         action.Href,
		contentType: lfsMediaType,
		accept:      lfsMediaType,
	}, completion, nil)
	if err != nil {
		return fmt.Errorf("lfs multipart completion: %w", err)
	}
	return nil
}
