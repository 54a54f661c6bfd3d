package rreo

import (
	"context"
	"errors"
	"net/http"

	"github.com/farxc/envelopa-rreo/internal/cache"
	"github.com/farxc/envelopa-rreo/internal/fetcher"
	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/siconfi"
)

// Kind is the machine readable error category shown to API clients.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid_request"
	KindNoData              Kind = "no_data"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindPersistence         Kind = "persistence"
	KindInternal            Kind = "internal"
)

// Classify maps an error to its kind, HTTP status and a message safe to show
// to clients. Upstream URLs and raw transport errors never leak through.
func Classify(err error) (Kind, int, string) {
	var (
		verr      *fiscal.ValidationError
		transport *fetcher.TransportError
		status    *fetcher.StatusError
		malformed *fetcher.MalformedResponseError
	)
	switch {
	case err == nil:
		return "", http.StatusOK, ""
	case errors.As(err, &verr):
		return KindInvalidRequest, http.StatusBadRequest, verr.Error()
	case errors.Is(err, siconfi.ErrNoData):
		return KindNoData, http.StatusNotFound, siconfi.ErrNoData.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return KindUpstreamUnavailable, http.StatusGatewayTimeout, "fiscal data source timed out"
	case errors.As(err, &transport), errors.As(err, &status), errors.As(err, &malformed):
		return KindUpstreamUnavailable, http.StatusBadGateway, "fiscal data source unavailable"
	case cache.IsPersistence(err):
		return KindPersistence, http.StatusInternalServerError, "local cache unavailable"
	default:
		return KindInternal, http.StatusInternalServerError, "internal error"
	}
}
