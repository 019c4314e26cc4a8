package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/crownlab/crownlab/internal/labctx"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
)

type updateLabRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type labResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type labMemberResponse struct {
	ID     string `json:"id"`
	LabID  string `json:"lab_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func newLabResponse(lab *labdomain.Lab) labResponse {
	return labResponse{
		ID:      lab.ID.String(),
		Name:    lab.Name,
		Slug:    lab.Slug,
		Email:   lab.Email,
		Phone:   lab.Phone,
		Address: lab.Address,
	}
}

func newLabMemberResponse(member *labdomain.LabMember) labMemberResponse {
	return labMemberResponse{
		ID:     member.ID.String(),
		LabID:  member.LabID.String(),
		UserID: member.UserID.String(),
		Role:   member.Role,
	}
}

func activeLabID(c *gin.Context) (snowflake.ID, bool) {
	return labctx.LabIDFromContext(c.Request.Context())
}

func (s *Server) GetCurrentLab(c *gin.Context) {
	labID, ok := activeLabID(c)
	if !ok {
		AbortWithError(c, newValidationError("lab_id", "no active lab"))
		return
	}

	lab, err := s.labSvc.Get(c.Request.Context(), labID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLabResponse(lab))
}

func (s *Server) UpdateCurrentLab(c *gin.Context) {
	labID, ok := activeLabID(c)
	if !ok {
		AbortWithError(c, newValidationError("lab_id", "no active lab"))
		return
	}

	var req updateLabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid lab payload"))
		return
	}

	lab, err := s.labSvc.Update(c.Request.Context(), labID, labdomain.UpdateLabRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLabResponse(lab))
}

func (s *Server) ListLabMembers(c *gin.Context) {
	labID, ok := activeLabID(c)
	if !ok {
		AbortWithError(c, newValidationError("lab_id", "no active lab"))
		return
	}

	members, err := s.labSvc.ListMembers(c.Request.Context(), labID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]labMemberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, newLabMemberResponse(&members[i]))
	}
	c.JSON(http.StatusOK, gin.H{"members": resp})
}

func (s *Server) AddLabMember(c *gin.Context) {
	labID, ok := activeLabID(c)
	if !ok {
		AbortWithError(c, newValidationError("lab_id", "no active lab"))
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid member payload"))
		return
	}
	userID, err := snowflake.ParseString(req.UserID)
	if err != nil || userID == 0 {
		AbortWithError(c, newValidationError("user_id", "invalid user id"))
		return
	}

	member, err := s.labSvc.AddMember(c.Request.Context(), labID, userID, req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLabMemberResponse(member))
}
