package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	connectdomain "github.com/rushr-app/rushr/internal/connect/domain"
)

type createConnectAccountRequest struct {
	ContractorID string `json:"contractorId"`
	Email        string `json:"email"`
	BusinessName string `json:"businessName"`
}

func (s *Server) CreateConnectAccount(c *gin.Context) {
	var req createConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.ContractorID == "" {
		AbortWithError(c, newValidationError("contractorId", "required", "contractorId is required"))
		return
	}

	result, err := s.connectSvc.CreateAccount(c.Request.Context(), connectdomain.CreateAccountRequest{
		ContractorID: req.ContractorID,
		Email:        req.Email,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"accountId":          result.Account.StripeAccountID,
		"alreadyExists":      result.AlreadyExists,
		"onboardingComplete": result.Account.OnboardingComplete(),
		"kycStatus":          result.Account.KYCStatus,
	})
}

type onboardingLinkRequest struct {
	ContractorID string `json:"contractorId"`
}

func (s *Server) CreateOnboardingLink(c *gin.Context) {
	var req onboardingLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.ContractorID == "" {
		AbortWithError(c, newValidationError("contractorId", "required", "contractorId is required"))
		return
	}

	result, err := s.connectSvc.OnboardingLink(c.Request.Context(), connectdomain.OnboardingLinkRequest{
		ContractorID: req.ContractorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"url":       result.URL,
		"expiresAt": result.ExpiresAt,
	})
}

type checkStatusRequest struct {
	ContractorID string `json:"contractorId"`
}

func (s *Server) CheckConnectStatus(c *gin.Context) {
	var req checkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.ContractorID == "" {
		AbortWithError(c, newValidationError("contractorId", "required", "contractorId is required"))
		return
	}

	account, err := s.connectSvc.CheckStatus(c.Request.Context(), req.ContractorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"accountId":          account.StripeAccountID,
		"onboardingComplete": account.OnboardingComplete(),
		"detailsSubmitted":   account.DetailsSubmitted,
		"chargesEnabled":     account.ChargesEnabled,
		"payoutsEnabled":     account.PayoutsEnabled,
		"kycStatus":          account.KYCStatus,
		"requirements":       account.RequirementsDue,
	})
}
