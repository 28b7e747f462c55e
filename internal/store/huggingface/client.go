// Package huggingface stores the snapshot as parquet shards of a split in a
// Hugging Face Hub dataset repository, the layout the datasets library
// reads and writes.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	lfsMediaType  = "application/vnd.git-lfs+json"
	errorCodeKey  = "X-Error-Code"
	maxErrorBytes = 4 << 10
)

// APIError is a non-2xx response from the Hub.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	// Code is the Hub's X-Error-Code header, e.g. RepoNotFound.
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) notFound() bool {
	switch e.Code {
	case "RepoNotFound", "EntryNotFound", "RevisionNotFound":
		return true
	}
	return e.StatusCode == http.StatusNotFound
}

type request struct {
	method      string
	url         string
	body        io.Reader
	contentType string
	accept      string
	headers     map[string]string
	// anonymous omits the bearer token, for presigned upload URLs.
	anonymous bool
}

func (s *Store) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.method, r.url, err)
	}
	if !r.anonymous {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.url, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close() //nolint:errcheck // error path
	return nil, newAPIError(r.method, r.url, resp)
}

func newAPIError(method, url string, resp *http.Response) *APIError {
	apiErr := &APIError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Code:       resp.Header.Get(errorCodeKey),
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// doJSON sends in as a JSON body and decodes the response into out when
// out is non-nil.
func (s *Store) doJSON(ctx context.Context, r request, in, out any) error {
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", r.url, err)
		}
		r.body = bytes.NewReader(payload)
		if r.contentType == "" {
			r.contentType = "application/json"
		}
	}
	resp, err := s.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // fully drained below
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.url, err)
	}
	return nil
}

type whoami struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Authenticate checks the token against the Hub and returns the account
// name it belongs to.
func (s *Store) Authenticate(ctx context.Context) (string, error) {
	var who whoami
	err := s.doJSON(ctx, request{method: http.MethodGet, url: s.cfg.Endpoint + "/api/whoami-v2"}, nil, &who)
	if err != nil {
		return "", fmt.Errorf("authenticate with hub: %w", err)
	}
	if who.Name == "" {
		return "", fmt.Errorf("authenticate with hub: empty account name")
	}
	return who.Name, nil
}

type createRepoRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Type         string `json:"type"`
	Private      bool   `json:"private"`
}

// ensureRepo creates the dataset repository, treating a conflict as success.
func (s *Store) ensureRepo(ctx context.Context) error {
	owner, name, _ := strings.Cut(s.cfg.Repo, "/")
	body := createRepoRequest{Name: name, Organization: owner, Type: "dataset", Private: s.cfg.Private}
	err := s.doJSON(ctx, request{method: http.MethodPost, url: s.cfg.Endpoint + "/api/repos/create"}, body, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create repo %s: %w", s.cfg.Repo, err)
	}
	return nil
}
