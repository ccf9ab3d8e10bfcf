package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophLibrary/internal/models"
)

// maxErrorBody caps how much of an error response is read into messages.
const maxErrorBody = 4 << 10

// Options configures a RESTStore.
type Options struct {
	// Endpoint is the base URL of the table API, e.g. https://host/rest/v1.
	Endpoint string
	// APIKey is sent in the apikey header and as a bearer token.
	APIKey string
	// Salt prefixes every table name.
	Salt string
	// Timeout bounds each call. Zero means no per-call deadline.
	Timeout time.Duration
	// HTTPClient defaults to a client with no overall timeout.
	HTTPClient *http.Client
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// RESTStore is a Store speaking the PostgREST dialect of the table server.
type RESTStore struct {
	client   *http.Client
	endpoint string
	apiKey   string
	salt     string
	timeout  time.Duration
	log      *zap.Logger
}

// NewRESTStore validates opts and returns a RESTStore.
func NewRESTStore(opts Options) (*RESTStore, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", opts.Endpoint)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &RESTStore{
		client:   client,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		apiKey:   opts.APIKey,
		salt:     opts.Salt,
		timeout:  opts.Timeout,
		log:      log,
	}, nil
}

// Endpoint returns the base URL of the table API.
func (s *RESTStore) Endpoint() string { return s.endpoint }

// Table returns the remote table name of kind.
func (s *RESTStore) Table(kind models.Kind) string {
	return s.salt + kind.TableName()
}

// Ping implements Store.
func (s *RESTStore) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	return s.do(ctx, http.MethodGet, models.KindEmployee, q, nil, nil)
}

// FetchAll implements Store.
func (s *RESTStore) FetchAll(ctx context.Context, kind models.Kind) ([]models.Record, error) {
	if kind.New() == nil {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrQuery, kind)
	}
	var rows []json.RawMessage
	if err := s.do(ctx, http.MethodGet, kind, url.Values{"select": {"*"}}, nil, &rows); err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		r := kind.New()
		if err := json.Unmarshal(row, r); err != nil {
			return nil, fmt.Errorf("%w: decode %s row: %v", ErrQuery, s.Table(kind), err)
		}
		r.PostLoadHook()
		records = append(records, r)
	}
	return records, nil
}

// Exists implements Store.
func (s *RESTStore) Exists(ctx context.Context, kind models.Kind, id models.ID) (bool, error) {
	var rows []json.RawMessage
	if err := s.do(ctx, http.MethodGet, kind, idFilter(id, "id"), nil, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert implements Store.
func (s *RESTStore) Insert(ctx context.Context, r models.Record) error {
	kind := models.KindOf(r)
	exists, err := s.Exists(ctx, kind, r.Identifier())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s id %d", ErrConflictingEntry, s.Table(kind), r.Identifier())
	}
	return s.write(ctx, http.MethodPost, kind, nil, r)
}

// Update implements Store.
func (s *RESTStore) Update(ctx context.Context, r models.Record) error {
	kind := models.KindOf(r)
	if err := s.mustExist(ctx, kind, r.Identifier()); err != nil {
		return err
	}
	return s.write(ctx, http.MethodPatch, kind, idFilter(r.Identifier(), ""), r)
}

// Delete implements Store.
func (s *RESTStore) Delete(ctx context.Context, kind models.Kind, id models.ID) error {
	if err := s.mustExist(ctx, kind, id); err != nil {
		return err
	}
	return s.write(ctx, http.MethodDelete, kind, idFilter(id, ""), nil)
}

// write performs a mutation and confirms it from the returned rows. A
// store that matched nothing answers with an empty array, which happens
// when another writer removed the row after the existence check.
func (s *RESTStore) write(ctx context.Context, method string, kind models.Kind, q url.Values, in any) error {
	var rows []json.RawMessage
	if err := s.do(ctx, method, kind, q, in, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s %s matched no row", ErrMissingEntry, method, s.Table(kind))
	}
	return nil
}

func (s *RESTStore) mustExist(ctx context.Context, kind models.Kind, id models.ID) error {
	exists, err := s.Exists(ctx, kind, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s id %d", ErrMissingEntry, s.Table(kind), id)
	}
	return nil
}

func idFilter(id models.ID, sel string) url.Values {
	q := url.Values{"id": {fmt.Sprintf("eq.%d", id)}}
	if sel != "" {
		q.Set("select", sel)
	}
	return q
}

// do performs one call against the table of kind. in is encoded as the
// JSON body when non-nil; out receives the decoded response when non-nil.
func (s *RESTStore) do(ctx context.Context, method string, kind models.Kind, q url.Values, in, out any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	target := s.endpoint + "/" + url.PathEscape(s.Table(kind))
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrQuery, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuery, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("remote call failed",
			zap.String("method", method), zap.String("table", s.Table(kind)),
			zap.String("request_id", requestID), zap.Error(err))
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	s.log.Debug("remote call",
		zap.String("method", method), zap.String("table", s.Table(kind)),
		zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classify(ctx, err)
		}
		return fmt.Errorf("%w: invalid response: %v", ErrQuery, err)
	}
	return nil
}

// classify maps a transport failure onto ErrTimeout or ErrConnection.
func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// statusError maps an unsuccessful response onto the package errors.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var doc struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &doc) == nil && doc.Message != "" {
		msg = doc.Message
	}

	switch {
	case resp.StatusCode == http.StatusConflict || doc.Code == "23505":
		return fmt.Errorf("%w: %s", ErrConflictingEntry, msg)
	case doc.Code == "PGRST116":
		return fmt.Errorf("%w: %s", ErrMissingEntry, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrQuery, resp.StatusCode, msg)
	}
}
