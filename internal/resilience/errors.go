package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind classifies why a call to an external service failed. The pipeline
// never retries; the kind only shapes the operator-facing diagnostic.
type Kind string

const (
	// KindBadKey means the credentials were rejected.
	KindBadKey Kind = "bad_key"
	// KindQuota means the account ran out of calls or was rate limited.
	KindQuota Kind = "quota"
	// KindConnectivity means the service could not be reached.
	KindConnectivity Kind = "connectivity"
	// KindBackend covers every other server-side or protocol failure.
	KindBackend Kind = "backend"
	// KindConfig means the call was never attempted because of missing or
	// invalid configuration.
	KindConfig Kind = "config"
)

// Hint returns a short operator hint for the kind.
func (k Kind) Hint() string {
	switch k {
	case KindBadKey:
		return "API key invalid or expired"
	case KindQuota:
		return "API call limit reached"
	case KindConnectivity:
		return "connection problem"
	case KindConfig:
		return "missing or invalid configuration"
	default:
		return "backend error"
	}
}

// quotaPatterns match quota exhaustion reported with a non-429 status.
var quotaPatterns = []string{
	"run out of searches",
	"not enough credits",
	"quota",
	"rate limit",
}

// ClassifyStatus maps an HTTP status and the backend's message to a Kind.
func ClassifyStatus(statusCode int, message string) Kind {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindBadKey
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return KindQuota
	}

	msg := strings.ToLower(message)
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return KindQuota
		}
	}
	if strings.Contains(msg, "invalid api key") || strings.Contains(msg, "unauthorized") {
		return KindBadKey
	}
	return KindBackend
}

// ClassifyError maps a transport-level error to a Kind: network failures are
// KindConnectivity, anything else KindBackend.
func ClassifyError(err error) Kind {
	if IsTransient(err) {
		return KindConnectivity
	}
	return KindBackend
}

// IsTransient returns true if the error (or any error in its chain) matches
// common network-level failure patterns (timeouts, connection resets, DNS).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for errors flattened by wrapping.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"context deadline exceeded",
		"client.timeout exceeded",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
