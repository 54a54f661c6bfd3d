package siconfi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
)

// Getter is the upstream transport used by the pager.
type Getter interface {
	Fetch(ctx context.Context, url string, headers http.Header) (*fetcher.Response, error)
}

// Pager walks every page of one attempt.
type Pager struct {
	getter   Getter
	baseURL  string
	endpoint string
	limit    int
	maxPages int
	headers  http.Header
	logger   *logger.Logger
}

// Collected is the accumulated result of one attempt.
type Collected struct {
	Items     []fiscal.LineItem
	Meta      fiscal.Metadata
	Pages     int
	Truncated bool
}

func NewPager(getter Getter, cfg Config, log *logger.Logger) *Pager {
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Pager{
		getter:   getter,
		baseURL:  cfg.BaseURL,
		endpoint: cfg.Endpoint,
		limit:    limit,
		maxPages: maxPages,
		headers:  cfg.Headers,
		logger:   log,
	}
}

func (p *Pager) attemptURL(a Attempt, offset int) string {
	values := a.Values()
	values.Set(paramLimit, strconv.Itoa(p.limit))
	values.Set(paramOffset, strconv.Itoa(offset))
	return strings.TrimRight(p.baseURL, "/") + "/" + strings.TrimLeft(p.endpoint, "/") + "?" + values.Encode()
}

// Collect fetches pages until the upstream signals the end or maxPages
// requests were issued. A next link is followed verbatim; otherwise the
// offset advances by limit while hasMore holds. Reaching maxPages with more
// data pending marks the result truncated. Any fetch or decode failure
// discards what was accumulated for this attempt.
func (p *Pager) Collect(ctx context.Context, a Attempt) (*Collected, error) {
	const component = "Pager"

	out := &Collected{}
	offset := 0
	next := ""

	for {
		if out.Pages >= p.maxPages {
			p.logger.Warn(component, "page limit reached: maxPages=%d", p.maxPages)
			out.Truncated = true
			observeTruncation()
			break
		}

		requestURL := next
		if requestURL == "" {
			requestURL = p.attemptURL(a, offset)
		}

		resp, err := p.getter.Fetch(ctx, requestURL, p.headers)
		if err != nil {
			return nil, err
		}
		page, err := ExtractPage(resp.Body, p.baseURL)
		if err != nil {
			return nil, err
		}
		out.Pages++
		observePage()

		p.logger.Debug(component, "page received: page=%d items=%d dropped=%d hasMore=%v link=%v",
			out.Pages, len(page.Items), page.Dropped, page.HasMore, page.NextLink != "")

		out.Items = append(out.Items, page.Items...)
		if out.Meta == (fiscal.Metadata{}) {
			out.Meta = page.Meta
		}

		next = page.NextLink
		if next != "" {
			continue
		}
		if page.HasMore {
			offset += p.limit
			continue
		}
		break
	}
	return out, nil
}
