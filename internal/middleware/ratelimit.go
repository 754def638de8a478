package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
)

// RateLimiter rejects requests beyond a token-bucket rate with 429
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter allows rps requests per second with the given burst
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Handler implements rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		retry := 1
		if limit := float64(rl.limiter.Limit()); limit > 0 {
			retry = int(math.Ceil(1 / limit))
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		_ = render.Render(w, r, apperrors.NewProblemDetails(http.StatusTooManyRequests, apperrors.TypeRateLimit,
			"Too Many Requests", "Rate limit exceeded", r.URL.Path).
			WithExtension("retry_after", retry))
	})
}
