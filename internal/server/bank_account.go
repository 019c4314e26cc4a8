package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
)

type createBankAccountRequest struct {
	BankName      string `json:"bank_name" binding:"required"`
	IBAN          string `json:"iban" binding:"required"`
	BIC           string `json:"bic"`
	AccountHolder string `json:"account_holder"`
	IsDefault     bool   `json:"is_default"`
}

type updateBankAccountRequest struct {
	BankName      *string `json:"bank_name"`
	IBAN          *string `json:"iban"`
	BIC           *string `json:"bic"`
	AccountHolder *string `json:"account_holder"`
	IsDefault     *bool   `json:"is_default"`
}

func (s *Server) CreateBankAccount(c *gin.Context) {
	var req createBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid bank account payload"))
		return
	}

	account, err := s.bankAccountSvc.Create(c.Request.Context(), bankdomain.CreateRequest{
		BankName:      req.BankName,
		IBAN:          req.IBAN,
		BIC:           req.BIC,
		AccountHolder: req.AccountHolder,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) UpdateBankAccount(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid bank account id"))
		return
	}

	var req updateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("invalid bank account payload"))
		return
	}

	account, err := s.bankAccountSvc.Update(c.Request.Context(), id, bankdomain.UpdateRequest{
		BankName:      req.BankName,
		IBAN:          req.IBAN,
		BIC:           req.BIC,
		AccountHolder: req.AccountHolder,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) GetBankAccountByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid bank account id"))
		return
	}

	account, err := s.bankAccountSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) ListBankAccounts(c *gin.Context) {
	accounts, err := s.bankAccountSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_accounts": accounts})
}

func (s *Server) DeleteBankAccount(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid bank account id"))
		return
	}

	if err := s.bankAccountSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
