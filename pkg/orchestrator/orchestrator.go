// Package orchestrator composes token verification, scope-to-path
// authorization, and rate-limit enforcement into the single decision a
// CDN viewer-request hook needs: forward this request (annotated) or
// short-circuit it with a 401/403/429 response.
package orchestrator

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dmitrymomot/edgegate/pkg/authz"
	"github.com/dmitrymomot/edgegate/pkg/ratelimiter"
	"github.com/dmitrymomot/edgegate/pkg/verifier"
)

const bearerPrefix = "Bearer "

// Orchestrator wires together the limiter selector, the token verifier,
// and the authorization predicate to answer one request at a time.
type Orchestrator struct {
	Selector   *ratelimiter.Selector
	Verifier   verifier.Verifier
	Authorizer *authz.Authorizer
	Logger     *slog.Logger
}

// New builds an Orchestrator. A nil logger falls back to slog.Default().
func New(selector *ratelimiter.Selector, v verifier.Verifier, a *authz.Authorizer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Selector: selector, Verifier: v, Authorizer: a, Logger: logger}
}

// Handle evaluates one inbound envelope and returns the outbound
// envelope: either the (possibly header-annotated) original request, or
// a short-circuit response.
func (o *Orchestrator) Handle(ctx context.Context, in Envelope) Envelope {
	if len(in.Records) == 0 {
		return in
	}
	req := in.Records[0].CF.Request
	if req.Headers == nil {
		req.Headers = Headers{}
	}

	authHeader, present := headerValue(req.Headers, "authorization")
	if !present || authHeader == "" {
		setHeaderValue(req.Headers, "x-client-id", "unknown")
		return forward(req)
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return shortCircuit(401, unauthorizedBody, nil)
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	claims, err := o.Verifier.Verify(token)
	if err != nil {
		o.Logger.Warn("orchestrator: token verification failed", "error", err, "tokenFingerprint", verifier.Fingerprint(token))
		return shortCircuit(401, unauthorizedBody, nil)
	}

	clientID, err := verifier.ClientID(claims)
	if err != nil {
		o.Logger.Warn("orchestrator: verified token has no client id claim")
		return shortCircuit(401, unauthorizedBody, nil)
	}

	if !o.Authorizer.Authorized(claims.Scope, req.URI) {
		o.Logger.Info("orchestrator: scope does not authorize path", "clientId", clientID, "path", req.URI)
		return shortCircuit(403, forbiddenBody, nil)
	}

	requestedKey, _ := headerValue(req.Headers, "x-rate-limiter")
	limiter, resolvedKey, err := o.Selector.Resolve(ratelimiter.Key(requestedKey))
	if err != nil {
		// No limiter at all is a deployment error, not a per-request
		// one; it degrades to 401 the same way a verifier failure does.
		o.Logger.Error("orchestrator: limiter selector failed", "error", err)
		return shortCircuit(401, unauthorizedBody, nil)
	}

	decision, err := limiter.Apply(ctx, clientID)
	if err != nil {
		// Only the fully-atomic limiter ever returns an error here; it
		// stays on the same generic-catch path as a verifier failure
		// rather than introducing a distinct 503.
		o.Logger.Warn("orchestrator: rate limiter store unavailable", "error", err, "limiter", resolvedKey)
		return shortCircuit(401, unauthorizedBody, nil)
	}

	headers := rateLimitHeaders(decision)

	o.Logger.Info("orchestrator: rate limit decision",
		"allowed", decision.Allowed,
		"limiter", resolvedKey,
		"clientId", clientID,
		"collision", decision.Collision,
	)

	if !decision.Allowed {
		return shortCircuit(429, tooManyRequestsBody, headers)
	}

	for name, values := range headers {
		req.Headers[name] = values
	}
	setHeaderValue(req.Headers, "x-client-id", clientID)
	return forward(req)
}

func rateLimitHeaders(d ratelimiter.Decision) Headers {
	h := Headers{}
	setHeaderValue(h, "x-ratelimit-limit", strconv.FormatInt(d.RateLimitLimit, 10))
	setHeaderValue(h, "x-ratelimit-remaining", strconv.FormatInt(d.RateLimitRemaining, 10))
	setHeaderValue(h, "x-ratelimit-reset", strconv.FormatInt(d.RateLimitReset, 10))
	if d.Collision {
		setHeaderValue(h, "x-ratelimit-collision", "true")
	}
	return h
}

func forward(req Request) Envelope {
	return NewEnvelope(req)
}

func shortCircuit(status int, body string, headers Headers) Envelope {
	return Envelope{Records: []Record{{CF: CFEvent{
		Request: Request{},
		Response: &Response{
			Status:            strconv.Itoa(status),
			StatusDescription: statusDescription(status),
			Body:              body,
			Headers:           headers,
		},
	}}}}
}

func statusDescription(status int) string {
	switch status {
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 429:
		return "Too Many Requests"
	default:
		return ""
	}
}
