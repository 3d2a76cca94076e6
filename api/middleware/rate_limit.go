package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitRule caps how many requests sharing one key may pass per window.
// A rule whose key resolves to "" does not apply to the request.
type RateLimitRule struct {
	scope    string
	limit    int
	needBody bool
	key      func(r *http.Request, body []byte) string
}

// ByClientIP keys requests on the caller address.
func ByClientIP(limit int) RateLimitRule {
	return RateLimitRule{
		scope: "ip",
		limit: limit,
		key: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		},
	}
}

// ByBodyField keys requests on a hashed, lower-cased top level JSON string field
// such as "email" or "orderId".
func ByBodyField(field string, limit int) RateLimitRule {
	return RateLimitRule{
		scope:    strings.ToLower(field),
		limit:    limit,
		needBody: true,
		key: func(_ *http.Request, body []byte) string {
			value := strings.ToLower(strings.TrimSpace(bodyField(body, field)))
			if value == "" {
				return ""
			}
			return hashValue(value)
		},
	}
}

// RateLimitPolicy groups rules sharing one window under a name used in keys and logs.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []RateLimitRule
}

// NewRateLimitPolicy builds a policy. Rules with a non-positive limit are dropped.
func NewRateLimitPolicy(name string, window time.Duration, rules ...RateLimitRule) RateLimitPolicy {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.limit > 0 && rule.key != nil {
			active = append(active, rule)
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, rules: active}
}

// NewAuthRateLimitPolicy limits an auth surface per caller IP and per submitted email.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	return NewRateLimitPolicy(name, window, ByClientIP(ipLimit), ByBodyField("email", emailLimit))
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

func (p RateLimitPolicy) needsBody() bool {
	for _, rule := range p.rules {
		if rule.needBody {
			return true
		}
	}
	return false
}

func (p RateLimitPolicy) counterKey(rule RateLimitRule, value string) string {
	return fmt.Sprintf("%s:%s:%s", p.name, rule.scope, value)
}

// RateLimit rejects requests with RATE_LIMIT_EXCEEDED once any rule of the policy
// is over its limit. Counters live in the shared store so every replica agrees.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() && r.Body != nil {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, rule := range policy.rules {
				value := rule.key(r, body)
				if value == "" {
					continue
				}
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.counterKey(rule, value)), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(rule.limit) {
					respondRateLimited(ctx, logg, w, policy, rule, value, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, rule RateLimitRule, value string, count int64) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"scope":          rule.scope,
			"key":            value,
			"attempts":       count,
			"limit":          rule.limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func bodyField(payload []byte, field string) string {
	if len(payload) == 0 {
		return ""
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	raw, ok := body[field]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
