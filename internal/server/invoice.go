package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type customItemRequest struct {
	Kind           string `json:"kind"`
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type createInvoiceRequest struct {
	DentistID    string              `json:"dentist_id" binding:"required"`
	WorksheetIDs []string            `json:"worksheet_ids"`
	CustomItems  []customItemRequest `json:"custom_items"`
	IssueDate    *time.Time          `json:"issue_date"`
	Currency     string              `json:"currency"`
	Finalize     bool                `json:"finalize"`
}

type sendInvoiceEmailRequest struct {
	Recipient string `json:"recipientEmail"`
}

type replaceLineItemsRequest struct {
	Items []customItemRequest `json:"items"`
}

type listInvoicesQuery struct {
	pagination.Pagination
	DentistID string `form:"dentist_id"`
	Status    string `form:"status"`
}

func toCustomItems(items []customItemRequest) []invoicedomain.CustomItem {
	out := make([]invoicedomain.CustomItem, 0, len(items))
	for _, item := range items {
		out = append(out, invoicedomain.CustomItem{
			Kind:           item.Kind,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return out
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid invoice payload"))
		return
	}
	dentistID, err := snowflake.ParseString(req.DentistID)
	if err != nil || dentistID == 0 {
		AbortWithError(c, newValidationError("dentist_id", "invalid dentist id"))
		return
	}

	worksheetIDs := make([]snowflake.ID, 0, len(req.WorksheetIDs))
	for i, raw := range req.WorksheetIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("worksheet_ids", fmt.Sprintf("invalid worksheet id at index %d", i)))
			return
		}
		worksheetIDs = append(worksheetIDs, id)
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		DentistID:    dentistID,
		WorksheetIDs: worksheetIDs,
		CustomItems:  toCustomItems(req.CustomItems),
		IssueDate:    req.IssueDate,
		Currency:     req.Currency,
		Finalize:     req.Finalize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid invoice id"))
		return
	}

	invoice, err := s.invoiceSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listInvoicesQuery
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

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Pagination: query.Pagination,
		DentistID:  dentistID,
		Status:     query.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) SendInvoiceEmail(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid invoice id"))
		return
	}

	var req sendInvoiceEmailRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError("invalid send payload"))
			return
		}
	}

	result, err := s.invoiceSvc.SendEmail(c.Request.Context(), id, req.Recipient)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ReplaceInvoiceLineItems(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid invoice id"))
		return
	}

	var req replaceLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid line items payload"))
		return
	}

	invoice, err := s.invoiceSvc.ReplaceCustomLineItems(c.Request.Context(), id, toCustomItems(req.Items))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) RecomputeInvoiceTotal(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid invoice id"))
		return
	}

	result, err := s.invoiceSvc.RecomputeTotal(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) RenderInvoice(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid invoice id"))
		return
	}

	pdfBytes, err := s.invoiceSvc.Render(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=invoice-%s.pdf", id.String()))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
