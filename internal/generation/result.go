package generation

import (
	"net/http"
	"strings"
)

// Kind is the category of one backend call's outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindRateLimited
	KindNotFound
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is what a Backend returns for one call. Adapters translate their
// provider's response shape into it; nothing past the adapter looks at raw
// payloads.
type Result struct {
	Kind       Kind
	Text       string
	StatusCode int
	Message    string
}

func Success(text string) Result {
	return Result{Kind: KindSuccess, Text: text, StatusCode: http.StatusOK}
}

func RateLimited(status int, message string) Result {
	return Result{Kind: KindRateLimited, StatusCode: status, Message: message}
}

func NotFound(status int, message string) Result {
	return Result{Kind: KindNotFound, StatusCode: status, Message: message}
}

func Failed(status int, message string) Result {
	return Result{Kind: KindError, StatusCode: status, Message: message}
}

// ClassifyStatus maps an HTTP status and provider message to a Kind. Some
// providers answer 400 for unknown model ids, so the message is checked too.
func ClassifyStatus(status int, message string) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindNotFound
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "rate-limited"):
		return KindRateLimited
	case strings.Contains(msg, "not a valid model"), strings.Contains(msg, "model not found"),
		strings.Contains(msg, "no endpoints found"), strings.Contains(msg, "is not supported"),
		strings.Contains(msg, "is not found"):
		return KindNotFound
	}
	return KindError
}

// FromStatus builds a non-success Result using ClassifyStatus.
func FromStatus(status int, message string) Result {
	return Result{Kind: ClassifyStatus(status, message), StatusCode: status, Message: message}
}
