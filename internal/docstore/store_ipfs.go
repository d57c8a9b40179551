package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	dErrors "idverse/pkg/domain-errors"
	"idverse/pkg/platform/sentinel"
)

// IPFSStore stores documents through the IPFS node RPC API (Kubo style:
// POST /api/v0/add and /api/v0/cat). The node pins everything it adds.
type IPFSStore struct {
	apiURL     string
	httpClient *http.Client
	maxRetries uint64
}

type IPFSOption func(*IPFSStore)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) IPFSOption {
	return func(s *IPFSStore) { s.httpClient = c }
}

// WithRetries overrides the retry budget for node calls.
func WithRetries(n uint64) IPFSOption {
	return func(s *IPFSStore) { s.maxRetries = n }
}

func NewIPFSStore(apiURL string, opts ...IPFSOption) *IPFSStore {
	s := &IPFSStore{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type addResponse struct {
	Hash string `json:"Hash"`
}

func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	var ref string
	op := func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "document.json")
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := part.Write(data); err != nil {
			return backoff.Permanent(err)
		}
		if err := writer.Close(); err != nil {
			return backoff.Permanent(err)
		}

		endpoint := s.apiURL + "/api/v0/add?cid-version=1&pin=true"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ipfs add: unexpected status %d", resp.StatusCode)
		}

		var parsed addResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("ipfs add: decode response: %w", err))
		}
		if parsed.Hash == "" {
			return backoff.Permanent(fmt.Errorf("ipfs add: empty hash in response"))
		}
		ref = parsed.Hash
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "store document")
	}
	return ref, nil
}

func (s *IPFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	notFound := false
	op := func() error {
		endpoint := s.apiURL + "/api/v0/cat?arg=" + url.QueryEscape(ref)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
			// Kubo reports unknown or malformed CIDs as client errors.
			notFound = true
			return nil
		default:
			return fmt.Errorf("ipfs cat: unexpected status %d", resp.StatusCode)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "fetch document")
	}
	if notFound {
		return nil, sentinel.ErrNotFound
	}
	return data, nil
}

func (s *IPFSStore) retry(ctx context.Context, op backoff.Operation) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx))
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*IPFSStore)(nil)
)
