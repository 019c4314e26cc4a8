package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	"github.com/crownlab/crownlab/internal/auditctx"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/ratelimit"
)

const (
	contextKeyUserID    = "user_id"
	contextKeySessionID = "session_id"

	labHeader = "X-Lab-ID"
)

// RequestContext stamps every request with an ID and records the caller's
// network identity for audit enrichment.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		ctx := c.Request.Context()
		ctx = auditctx.WithRequestID(ctx, requestID)
		ctx = auditctx.WithIPAddress(ctx, c.ClientIP())
		ctx = auditctx.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// WebAuthRequired resolves the session cookie to a user and rejects
// unauthenticated requests.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := s.sessions.Read(c)
		if rawToken == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			s.sessions.Clear(c)
			AbortWithError(c, err)
			return
		}

		c.Set(contextKeyUserID, sess.UserID)
		c.Set(contextKeySessionID, sess.ID)

		ctx := auditctx.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), sess.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// LabContext resolves the active lab for the request. The X-Lab-ID header
// wins, then the configured default lab, then the user's first membership.
// Membership in the resolved lab is always verified.
func (s *Server) LabContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		labID, err := s.resolveLabID(c, userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if _, err := s.labSvc.GetMember(c.Request.Context(), labID, userID); err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := labctx.WithLabID(c.Request.Context(), int64(labID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (s *Server) resolveLabID(c *gin.Context, userID snowflake.ID) (snowflake.ID, error) {
	if header := strings.TrimSpace(c.GetHeader(labHeader)); header != "" {
		labID, err := snowflake.ParseString(header)
		if err != nil || labID == 0 {
			return 0, newValidationError("lab_id", "invalid lab id header")
		}
		return labID, nil
	}

	if s.cfg.DefaultLabID != 0 {
		return snowflake.ID(s.cfg.DefaultLabID), nil
	}

	memberships, err := s.labSvc.MembershipsForUser(c.Request.Context(), userID)
	if err != nil {
		return 0, err
	}
	if len(memberships) == 0 {
		return 0, newValidationError("lab_id", "user belongs to no lab")
	}
	return memberships[0].LabID, nil
}

// authorizeLabAction enforces a capability for the authenticated user
// within the active lab.
func (s *Server) authorizeLabAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		labID, ok := labctx.LabIDFromContext(c.Request.Context())
		if !ok || labID == 0 {
			AbortWithError(c, newValidationError("lab_id", "no active lab"))
			return
		}

		actor := "user:" + userID.String()
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, labID.String(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

// LoginRateLimit throttles login attempts per client IP.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return rateLimitByIP(s.loginLimiter, s.log)
}

// SendEmailRateLimit throttles invoice email dispatch per client IP.
func (s *Server) SendEmailRateLimit() gin.HandlerFunc {
	return rateLimitByIP(s.sendEmailLimiter, s.log)
}

func rateLimitByIP(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextKeyUserID)
	if !exists {
		return 0, false
	}
	userID, ok := value.(snowflake.ID)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}
