package firebasetree

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/storage/tree"
)

// Store talks to a Firebase Realtime Database over its REST surface.
// Reads and writes map one-to-one onto GET/PUT/DELETE of `<path>.json`;
// subscriptions use the SSE streaming protocol and rebuild a local
// snapshot from put/patch events so listeners always see the full value
// at their path, like the native SDKs do.
type Store struct {
	baseURL string
	secret  string
	client  *resty.Client
	logger  core.Logger
}

var _ tree.Store = (*Store)(nil)

func NewStore(conf *core.Config, logger core.Logger) *Store {
	return &Store{
		baseURL: strings.TrimRight(conf.Firebase.DatabaseURL, "/"),
		secret:  conf.Firebase.DatabaseSecret,
		client:  resty.New().SetTimeout(30 * time.Second),
		logger:  logger,
	}
}

func (s *Store) url(path string) string {
	return s.baseURL + "/" + tree.Join(path) + ".json"
}

func (s *Store) auth(req *resty.Request) *resty.Request {
	if s.secret != "" {
		req.SetQueryParam("auth", s.secret)
	}
	return req
}

func (s *Store) Read(ctx context.Context, path string, dest interface{}) error {
	resp, err := s.auth(s.client.R().SetContext(ctx)).Get(s.url(path))
	if err != nil {
		return errors.Wrapf(err, "reading %q", path)
	}
	if resp.IsError() {
		return errors.Errorf("reading %q: %s", path, resp.Status())
	}
	body := resp.Body()
	if isNull(body) {
		return tree.ErrAbsent
	}
	return errors.Wrapf(json.Unmarshal(body, dest), "unmarshaling %q", path)
}

func (s *Store) Write(ctx context.Context, path string, value interface{}) error {
	req := s.auth(s.client.R().SetContext(ctx))

	var resp *resty.Response
	var err error
	if value == nil {
		resp, err = req.Delete(s.url(path))
	} else {
		resp, err = req.SetHeader("Content-Type", "application/json").SetBody(value).Put(s.url(path))
	}
	if err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	if resp.IsError() {
		return errors.Errorf("writing %q: %s", path, resp.Status())
	}
	return nil
}

func (s *Store) Subscribe(path string, fn func(raw json.RawMessage)) (tree.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(context.Background())
	go s.stream(ctx, path, fn)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (s *Store) GenerateKey(parentPath string) string {
	return tree.NewKey()
}

// stream keeps one SSE connection open for the path, reconnecting with a
// flat backoff until the subscription is torn down.
func (s *Store) stream(ctx context.Context, path string, fn func(raw json.RawMessage)) {
	for {
		if err := s.streamOnce(ctx, path, fn); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(fmt.Sprintf("stream %q dropped, reconnecting: %v", path, err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (s *Store) streamOnce(ctx context.Context, path string, fn func(raw json.RawMessage)) error {
	url := s.url(path)
	if s.secret != "" {
		url += "?auth=" + s.secret
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building stream request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "opening stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("opening stream: %s", resp.Status)
	}

	var snapshot interface{}
	var event string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "put", "patch":
				if err := applyEvent(&snapshot, event, data); err != nil {
					return err
				}
				fn(marshalSnapshot(snapshot))
			case "auth_revoked":
				return errors.New("stream auth revoked")
			// keep-alive and cancel events carry nothing actionable
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading stream")
	}
	return errors.New("stream closed by server")
}

func applyEvent(snapshot *interface{}, event, data string) error {
	var ev struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return errors.Wrap(err, "unmarshaling stream event")
	}
	var val interface{}
	if !isNull(ev.Data) {
		if err := json.Unmarshal(ev.Data, &val); err != nil {
			return errors.Wrap(err, "unmarshaling event data")
		}
	}
	segs := tree.Split(ev.Path)
	if event == "patch" {
		fields, ok := val.(map[string]interface{})
		if !ok {
			return errors.New("patch event without an object payload")
		}
		for k, v := range fields {
			*snapshot = apply(*snapshot, append(segs, k), v)
		}
		return nil
	}
	*snapshot = apply(*snapshot, segs, val)
	return nil
}

func apply(node interface{}, segs []string, value interface{}) interface{} {
	if len(segs) == 0 {
		return value
	}
	m, ok := node.(map[string]interface{})
	if !ok {
		if value == nil {
			return node
		}
		m = make(map[string]interface{})
	}
	child := apply(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func marshalSnapshot(snapshot interface{}) json.RawMessage {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

func isNull(body []byte) bool {
	return len(body) == 0 || string(body) == "null"
}
