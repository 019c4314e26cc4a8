package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type createWorksheetRequest struct {
	Number      string   `json:"number"`
	DentistID   string   `json:"dentist_id" binding:"required"`
	PatientName string   `json:"patient_name"`
	Description string   `json:"description"`
	ToothRefs   []string `json:"tooth_refs"`
	PriceCents  int64    `json:"price_cents"`
}

type rollbackWorksheetRequest struct {
	Reason string `json:"reason"`
}

type listWorksheetsQuery struct {
	pagination.Pagination
	DentistID string `form:"dentist_id"`
	Status    string `form:"status"`
}

// worksheetJSON folds the derived INVOICED state into the reported status.
func worksheetJSON(w *worksheetdomain.Worksheet) worksheetdomain.Worksheet {
	out := *w
	out.Status = out.EffectiveStatus()
	return out
}

func (s *Server) CreateWorksheet(c *gin.Context) {
	var req createWorksheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid worksheet payload"))
		return
	}
	dentistID, err := snowflake.ParseString(req.DentistID)
	if err != nil || dentistID == 0 {
		AbortWithError(c, newValidationError("dentist_id", "invalid dentist id"))
		return
	}

	worksheet, err := s.worksheetSvc.Create(c.Request.Context(), worksheetdomain.CreateRequest{
		Number:      req.Number,
		DentistID:   dentistID,
		PatientName: req.PatientName,
		Description: req.Description,
		ToothRefs:   req.ToothRefs,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worksheetJSON(worksheet))
}

func (s *Server) GetWorksheetByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid worksheet id"))
		return
	}

	worksheet, err := s.worksheetSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, worksheetJSON(worksheet))
}

func (s *Server) ListWorksheets(c *gin.Context) {
	var query listWorksheetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError("invalid query parameters"))
		return
	}

	var dentistID snowflake.ID
	if query.DentistID != "" {
		parsed, err := snowflake.ParseString(query.DentistID)
		if err != nil {
			AbortWithError(c, newValidationError("dentist_id", "invalid dentist id"))
			return
		}
		dentistID = parsed
	}

	resp, err := s.worksheetSvc.List(c.Request.Context(), worksheetdomain.ListRequest{
		Pagination: query.Pagination,
		DentistID:  dentistID,
		Status:     query.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	for i := range resp.Worksheets {
		resp.Worksheets[i].Status = resp.Worksheets[i].EffectiveStatus()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) StartWorksheetProduction(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid worksheet id"))
		return
	}

	worksheet, err := s.worksheetSvc.StartProduction(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, worksheetJSON(worksheet))
}

func (s *Server) RollbackWorksheet(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid worksheet id"))
		return
	}

	var req rollbackWorksheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid rollback payload"))
		return
	}

	worksheet, err := s.worksheetSvc.Rollback(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"worksheet": worksheetJSON(worksheet),
		"message":   "worksheet rolled back to draft",
	})
}
