package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind is the taxonomy tag attached to every AppError.
type Kind string

const (
	KindNetwork      Kind = "NETWORK_ERROR"
	KindTimeout      Kind = "TIMEOUT_ERROR"
	KindAuth         Kind = "AUTH_ERROR"
	KindPermission   Kind = "PERMISSION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindRateLimit    Kind = "RATE_LIMIT_ERROR"
	KindServer       Kind = "SERVER_ERROR"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindStorage      Kind = "STORAGE_ERROR"
	KindStorageParse Kind = "STORAGE_PARSE_ERROR"
	KindUnknown      Kind = "UNKNOWN_ERROR"
)

// kindSentinels maps each kind to the sentinel its AppErrors unwrap to.
var kindSentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindTimeout:      ErrTimeout,
	KindAuth:         ErrUnauthorized,
	KindPermission:   ErrForbidden,
	KindNotFound:     ErrNotFound,
	KindRateLimit:    ErrRateLimited,
	KindServer:       ErrServer,
	KindValidation:   ErrInvalidInput,
	KindStorage:      ErrStorage,
	KindStorageParse: ErrStorageParse,
	KindUnknown:      ErrUnknown,
}

// sentinelOrder is the lookup order used by KindOf. Parse errors are checked before
// generic storage errors because a parse error may wrap both.
var sentinelOrder = []Kind{
	KindStorageParse,
	KindStorage,
	KindTimeout,
	KindNetwork,
	KindAuth,
	KindPermission,
	KindNotFound,
	KindRateLimit,
	KindServer,
	KindValidation,
	KindUnknown,
}

// Sentinel returns the sentinel error for the kind, or ErrUnknown.
func (k Kind) Sentinel() error {
	if s, ok := kindSentinels[k]; ok {
		return s
	}
	return ErrUnknown
}

// Retryable reports whether failures of this kind are retried by the HTTP client.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimit, KindServer:
		return true
	default:
		return false
	}
}

// KindOf classifies err into the taxonomy without allocating an AppError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	for _, k := range sentinelOrder {
		if errors.Is(err, kindSentinels[k]) {
			return k
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	return KindUnknown
}

// KindForStatus maps an HTTP status code to a kind. Successful codes map to "".
func KindForStatus(status int) Kind {
	switch {
	case status < http.StatusBadRequest:
		return ""
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= http.StatusInternalServerError:
		return KindServer
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindUnknown
	}
}
