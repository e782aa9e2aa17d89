// Package envelope builds and sends one DAAP HTTP request and maps the
// response status to the client's error taxonomy. It knows nothing about
// DMAP atoms; the root package decodes whatever bytes Get returns. Request
// shape and status mapping are grounded on §4.4 of the protocol design;
// the request/response plumbing itself (fixed headers, query-map
// accumulation, status-to-error mapping, drain-before-close) is carried
// over from gravwell-gravwell/client's Client.staticRequest /
// Client.populateHeaders / Client.getResponse.
package envelope

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/tominsam/godaap/internal/hashv"
)

const (
	headerVersion    = "Client-DAAP-Version"
	headerAccessIdx  = "Client-DAAP-Access-Index"
	headerRequestID  = "Client-DAAP-Request-ID"
	headerValidation = "Client-DAAP-Validation"
	headerAcceptEnc  = "Accept-Encoding"

	protocolVersion = "3.0"
	accessIndex     = "2"
)

// Transport owns the single HTTP connection a Client uses, and the two
// pieces of request-shaping state the validation hash depends on:
// old-iTunes detection and the monotonic request counter. Per §5 a
// Transport is single-threaded by protocol design (iTunes-family servers
// 503 a client that opens concurrent connections), but the counter is
// still guarded so a caller who ignores that advice fails safe rather than
// racing.
type Transport struct {
	httpClient *http.Client
	baseURL    string

	mu         sync.Mutex
	requestID  int
	everSent   bool
	oldItunes  bool
}

// NewTransport builds a Transport against host:port. httpClient may be nil,
// in which case http.DefaultClient is used.
func NewTransport(httpClient *http.Client, host string, port int) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{
		httpClient: httpClient,
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
	}
}

// SetOldItunes records whether the connected server's apro atom equals 2;
// it selects hash_v2 over hash_v3 for every subsequent request.
func (t *Transport) SetOldItunes(v bool) {
	t.mu.Lock()
	t.oldItunes = v
	t.mu.Unlock()
}

// OldItunes reports the current old-iTunes flag.
func (t *Transport) OldItunes() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.oldItunes
}

// RequestID returns the current counter value without advancing it.
func (t *Transport) RequestID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requestID
}

// IncrementRequestID advances and returns the counter. Only Track.Open
// calls this, per §4.6.
func (t *Transport) IncrementRequestID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestID++
	t.everSent = true
	return t.requestID
}

// Result is what Get returns on a 200/204: the (already gunzipped) body
// bytes, and whether the server sent a body at all.
type Result struct {
	Body    []byte
	NoBody  bool // true for a 204
}

// Options controls per-request behavior that isn't implied by the path.
type Options struct {
	// DisableGzip suppresses Accept-Encoding: gzip. Used for media
	// streaming, where the payload is already compressed audio and a
	// gzip wrapper only adds overhead and a decode step.
	DisableGzip bool
}

// Get issues one GET request for path (already starting with "/") with
// the given query parameters, and returns the decoded status per §4.4.
// On 200 it gunzips the body if needed and returns it whole; on 204 it
// returns Result{NoBody: true}. Any other status becomes a typed error.
func (t *Transport) Get(path string, params map[string]string, opts Options) (*Result, error) {
	return t.GetWithContext(context.Background(), path, params, opts)
}

// GetWithContext is Get with an explicit context for cancellation,
// mirroring the plain/WithContext pairing the teacher uses for its own
// blocking request methods.
func (t *Transport) GetWithContext(ctx context.Context, path string, params map[string]string, opts Options) (*Result, error) {
	resp, err := t.do(ctx, path, params, opts)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if err := statusError(path, resp.StatusCode); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return &Result{NoBody: true}, nil
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, &ProtocolError{Path: path, Reason: err.Error()}
	}
	return &Result{Body: body}, nil
}

// Stream issues a gzip-disabled GET and returns the live response body for
// the caller to read in chunks, per §4.6. The caller owns closing it. A
// status other than 200 or 204 still maps to a typed error and closes the
// body itself.
func (t *Transport) Stream(path string, params map[string]string) (io.ReadCloser, error) {
	return t.StreamWithContext(context.Background(), path, params)
}

func (t *Transport) StreamWithContext(ctx context.Context, path string, params map[string]string) (io.ReadCloser, error) {
	resp, err := t.do(ctx, path, params, Options{DisableGzip: true})
	if err != nil {
		return nil, err
	}
	if err := statusError(path, resp.StatusCode); err != nil {
		drainAndClose(resp.Body)
		return nil, err
	}
	return resp.Body, nil
}

func (t *Transport) do(ctx context.Context, path string, params map[string]string, opts Options) (*http.Response, error) {
	pathWithQuery := buildPathWithQuery(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+pathWithQuery, nil)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}

	t.populateHeaders(req, pathWithQuery, !opts.DisableGzip)

	// net/http adds its own Accept-Encoding: gzip to a request that has
	// none unless compression is disabled on the transport, so a
	// gzip-disabled request goes out over a one-off clone that has it off.
	httpClient := t.httpClient
	if opts.DisableGzip {
		rt := httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		if ht, ok := rt.(*http.Transport); ok && !ht.DisableCompression {
			nt := ht.Clone()
			nt.DisableCompression = true
			nt.DisableKeepAlives = true
			hc := *httpClient
			hc.Transport = nt
			httpClient = &hc
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	return resp, nil
}

func (t *Transport) populateHeaders(req *http.Request, pathWithQuery string, gzipOK bool) {
	req.Header.Set(headerVersion, protocolVersion)
	req.Header.Set(headerAccessIdx, accessIndex)
	if gzipOK {
		req.Header.Set(headerAcceptEnc, "gzip")
	}

	t.mu.Lock()
	requestID := t.requestID
	everSent := t.everSent
	oldItunes := t.oldItunes
	t.mu.Unlock()

	if everSent {
		req.Header.Set(headerRequestID, strconv.Itoa(requestID))
	}

	var validation string
	if oldItunes {
		validation = hashv.HashV2(pathWithQuery, hashv.Select)
	} else {
		validation = hashv.HashV3(pathWithQuery, hashv.Select, requestID)
	}
	req.Header.Set(headerValidation, validation)
}

func buildPathWithQuery(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}

func statusError(path string, status int) error {
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return &AuthRequiredError{Path: path}
	case http.StatusForbidden:
		return &AuthFailedError{Path: path}
	case http.StatusServiceUnavailable:
		return &ServerBusyError{Path: path}
	default:
		return &ProtocolError{Path: path, Status: status}
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(r)
}

// drainAndClose mirrors the teacher's drainResponse/nilWriter helper: a
// connection returned to the pool without its body fully read can't be
// reused, so every non-streaming path reads to EOF before closing.
func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
