package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit creates per-IP rate limiting middleware for unauthenticated routes.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded(windowLength)),
	)
}

// UserRateLimit creates per-user rate limiting middleware. It must run after Auth.
func UserRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(userKey("user")),
		httprate.WithLimitHandler(limitExceeded(windowLength)),
	)
}

// AIRateLimit is the tighter per-user limiter in front of the AI gateways.
func AIRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(userKey("ai")),
		httprate.WithLimitHandler(limitExceeded(windowLength)),
	)
}

func userKey(prefix string) httprate.KeyFunc {
	return func(r *http.Request) (string, error) {
		if userID := GetUserID(r.Context()); userID != "" {
			return prefix + ":user:" + userID, nil
		}
		ip, err := httprate.KeyByIP(r)
		if err != nil {
			return "", err
		}
		return prefix + ":ip:" + ip, nil
	}
}

func limitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", retryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + retryAfter + `}`))
	}
}
