package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type createDentistRequest struct {
	Name       string `json:"name" binding:"required"`
	ClinicName string `json:"clinic_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
}

type updateDentistRequest struct {
	Name       *string `json:"name"`
	ClinicName *string `json:"clinic_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
}

type listDentistsQuery struct {
	pagination.Pagination
	Query string `form:"q"`
}

func (s *Server) CreateDentist(c *gin.Context) {
	var req createDentistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid dentist payload"))
		return
	}

	dentist, err := s.dentistSvc.Create(c.Request.Context(), dentistdomain.CreateRequest{
		Name:       req.Name,
		ClinicName: req.ClinicName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dentist)
}

func (s *Server) UpdateDentist(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid dentist id"))
		return
	}

	var req updateDentistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid dentist payload"))
		return
	}

	dentist, err := s.dentistSvc.Update(c.Request.Context(), id, dentistdomain.UpdateRequest{
		Name:       req.Name,
		ClinicName: req.ClinicName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dentist)
}

func (s *Server) GetDentistByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid dentist id"))
		return
	}

	dentist, err := s.dentistSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dentist)
}

func (s *Server) ListDentists(c *gin.Context) {
	var query listDentistsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError("invalid query parameters"))
		return
	}

	resp, err := s.dentistSvc.List(c.Request.Context(), dentistdomain.ListRequest{
		Pagination: query.Pagination,
		Query:      query.Query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
