package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/farxc/envelopa-rreo/internal/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

// Response is a decoded upstream JSON body. Numbers are kept as json.Number.
type Response struct {
	StatusCode int
	Body       any
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// Fetcher issues rate limited GET requests and decodes JSON bodies.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiter
	logger    *logger.Logger
	userAgent string
}

func New(limiter *RateLimiter, log *logger.Logger, opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		req.Header.Set("User-Agent", ua)
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return &Fetcher{client: client, limiter: limiter, logger: log, userAgent: ua}
}

// Fetch waits for the rate limiter, then GETs url. Transport failures,
// statuses >= 400 and undecodable bodies come back as *TransportError,
// *StatusError and *MalformedResponseError respectively.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers http.Header) (*Response, error) {
	const component = "Fetcher"

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Error(component, "Failed to create HTTP request: error=%v", err)
		observeRequest(outcomeTransport)
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	f.logger.Debug(component, "GET url=%s", url)
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn(component, "HTTP request failed: error=%v", err)
		observeRequest(outcomeTransport)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		f.logger.Warn(component, "Non-OK HTTP response: status=%s statusCode=%d", resp.Status, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		observeRequest(outcomeStatus)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		observeRequest(outcomeTransport)
		return nil, &TransportError{Err: err}
	}

	body, err := decodeJSON(raw)
	if err != nil {
		f.logger.Warn(component, "Undecodable body: statusCode=%d size=%d error=%v", resp.StatusCode, len(raw), err)
		observeRequest(outcomeMalformed)
		return nil, &MalformedResponseError{Reason: "body is not valid JSON", Err: err}
	}

	observeRequest(outcomeOK)
	f.logger.Debug(component, "Response decoded: statusCode=%d size=%d elapsed=%s", resp.StatusCode, len(raw), time.Since(start))
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return body, nil
}
