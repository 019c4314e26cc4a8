package server

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	productdomain "github.com/crownlab/crownlab/internal/product/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type createProductRequest struct {
	Code           string `json:"code" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Category       string `json:"category" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Active         *bool  `json:"active"`
}

type updateProductRequest struct {
	Code           *string `json:"code"`
	Name           *string `json:"name"`
	Category       *string `json:"category"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	Active         *bool   `json:"active"`
}

type bulkUpdateProductsRequest struct {
	IDs   []string                `json:"ids" binding:"required"`
	Patch productdomain.BulkPatch `json:"data"`
}

type bulkDeleteProductsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type listProductsQuery struct {
	pagination.Pagination
	Category string `form:"category"`
	Active   *bool  `form:"active"`
	Query    string `form:"q"`
}

func parseProductIDs(raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	for i, value := range raw {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return nil, newValidationError("ids", fmt.Sprintf("invalid product id at index %d", i))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid product payload"))
		return
	}

	product, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateRequest{
		Code:           req.Code,
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
		Active:         req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid product id"))
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid product payload"))
		return
	}

	product, err := s.productSvc.Update(c.Request.Context(), id, productdomain.UpdateRequest{
		Code:           req.Code,
		Name:           req.Name,
		Category:       req.Category,
		UnitPriceCents: req.UnitPriceCents,
		Active:         req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) GetProductByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid product id"))
		return
	}

	product, err := s.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) ListProducts(c *gin.Context) {
	var query listProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError("invalid query parameters"))
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListRequest{
		Pagination: query.Pagination,
		Category:   query.Category,
		Active:     query.Active,
		Query:      query.Query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) BulkUpdateProducts(c *gin.Context) {
	var req bulkUpdateProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid bulk update payload"))
		return
	}
	ids, err := parseProductIDs(req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.productSvc.BulkUpdate(c.Request.Context(), ids, req.Patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   result.Count,
		"message": fmt.Sprintf("%d products updated", result.Count),
	})
}

func (s *Server) BulkDeleteProducts(c *gin.Context) {
	var req bulkDeleteProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid bulk delete payload"))
		return
	}
	ids, err := parseProductIDs(req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.productSvc.BulkDelete(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   result.Count,
		"message": fmt.Sprintf("%d products deleted", result.Count),
	})
}
