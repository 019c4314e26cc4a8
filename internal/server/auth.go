package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func newUserResponse(user *authdomain.User) userResponse {
	return userResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid login payload"))
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	userID := result.User.ID.String()
	if err := s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		ActorType:  string(auditdomain.ActorTypeUser),
		ActorID:    &userID,
		Action:     "auth.login",
		TargetType: "user",
		TargetID:   &userID,
	}); err != nil {
		s.log.Warn("login audit failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       newUserResponse(result.User),
		"expires_at": result.ExpiresAt,
	})
}

func (s *Server) Logout(c *gin.Context) {
	rawToken := s.sessions.Read(c)
	if rawToken != "" {
		if err := s.authsvc.Logout(c.Request.Context(), rawToken); err != nil {
			s.log.Warn("logout failed", zap.Error(err))
		}
	}
	s.sessions.Clear(c)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	memberships, err := s.labSvc.MembershipsForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	labs := make([]gin.H, 0, len(memberships))
	for _, member := range memberships {
		labs = append(labs, gin.H{
			"lab_id": member.LabID.String(),
			"role":   member.Role,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user": newUserResponse(user),
		"labs": labs,
	})
}
