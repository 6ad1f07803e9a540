package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/session"
)

// HTTPStore talks to the assessments API on behalf of one authenticated user.
type HTTPStore struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ session.RemoteStore = (*HTTPStore)(nil)

type Option func(*HTTPStore)

func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPStore) { s.http = c }
}

func NewHTTPStore(baseURL, token string, opts ...Option) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type progressBody struct {
	TopicID      string `json:"topic_id"`
	Answers      []int  `json:"answers"`
	RemainingSec int    `json:"remaining_sec"`
	Locked       []int  `json:"locked"`
	Flags        []int  `json:"flags"`
}

type submitBody struct {
	TopicID     string `json:"topic_id"`
	Answers     []int  `json:"answers"`
	DurationSec int    `json:"duration_sec"`
}

type retakeBody struct {
	TopicID string `json:"topic_id"`
}

func (s *HTTPStore) setPath(setID string, parts ...string) string {
	p := "/assessments"
	if setID != "" {
		p += "/" + url.PathEscape(setID)
	}
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func statusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", session.ErrNotFound, msg)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", session.ErrAlreadyCompleted, msg)
	case code >= 500 || code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", session.ErrPersistenceUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, msg)
	}
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", session.ErrPersistenceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (s *HTTPStore) FetchSet(ctx context.Context, setID string) (*session.Set, error) {
	var set session.Set
	if err := s.do(ctx, http.MethodGet, s.setPath(setID), nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *HTTPStore) ListSets(ctx context.Context) ([]session.SetStatus, error) {
	var sets []session.SetStatus
	if err := s.do(ctx, http.MethodGet, s.setPath(""), nil, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *HTTPStore) SaveProgress(ctx context.Context, setID, topicID string, snap session.Snapshot) error {
	return s.do(ctx, http.MethodPatch, s.setPath(setID, "progress"), progressBody{
		TopicID:      topicID,
		Answers:      snap.Answers,
		RemainingSec: snap.RemainingSec,
		Locked:       snap.Locked,
		Flags:        snap.Flags,
	}, nil)
}

func (s *HTTPStore) Submit(ctx context.Context, setID, topicID string, answers []int, durationSec int) (*session.Result, error) {
	var res session.Result
	err := s.do(ctx, http.MethodPost, s.setPath(setID, "submit"), submitBody{
		TopicID:     topicID,
		Answers:     answers,
		DurationSec: durationSec,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *HTTPStore) Retake(ctx context.Context, setID, topicID string) error {
	return s.do(ctx, http.MethodPost, s.setPath(setID, "retake"), retakeBody{TopicID: topicID}, nil)
}

// Regenerate asks the server to run generation for the set again.
func (s *HTTPStore) Regenerate(ctx context.Context, setID string) error {
	return s.do(ctx, http.MethodPost, s.setPath(setID, "generate"), nil, nil)
}
