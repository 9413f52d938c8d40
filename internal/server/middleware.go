package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/campustix/campustix/internal/actorcontext"
	"github.com/campustix/campustix/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorRole  = "X-Actor-Role"
	HeaderActorEmail = "X-Actor-Email"
)

// ActorContext resolves the identity headers set by the fronting proxy and
// places an explicit Actor into the request context. Requests without an
// identity pass through; guarded routes reject them downstream.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if rawID == "" {
			c.Next()
			return
		}
		id, err := snowflake.ParseString(rawID)
		if err != nil || id == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		role, ok := actorcontext.ParseRole(c.GetHeader(HeaderActorRole))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		actor := actorcontext.Actor{
			ID:    id,
			Role:  role,
			Email: strings.TrimSpace(c.GetHeader(HeaderActorEmail)),
		}
		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireActor rejects requests that carry no verified identity.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorcontext.ActorFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (actorcontext.Actor, bool) {
	return actorcontext.ActorFromContext(c.Request.Context())
}

// RateLimit guards an endpoint with the shared token bucket. A nil limiter
// (no redis configured) passes everything through; a redis outage fails
// open with a warning rather than blocking payments.
func RateLimit(limiter *ratelimit.TokenBucket, log *zap.Logger, name string, rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		res, err := limiter.Allow(c.Request.Context(), key, rate, burst)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("endpoint", name), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%.0f", res.RetryAfter.Seconds()))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
