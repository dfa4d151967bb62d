package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	escrowdomain "github.com/rushr-app/rushr/internal/escrow/domain"
)

type createHoldRequest struct {
	BidID          string `json:"bidId"`
	HomeownerID    string `json:"homeownerId"`
	HomeownerEmail string `json:"homeownerEmail"`
}

func (s *Server) CreateHold(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.BidID == "" {
		AbortWithError(c, newValidationError("bidId", "required", "bidId is required"))
		return
	}
	if req.HomeownerID == "" {
		AbortWithError(c, newValidationError("homeownerId", "required", "homeownerId is required"))
		return
	}

	result, err := s.escrowSvc.CreateHold(c.Request.Context(), escrowdomain.CreateHoldRequest{
		BidID:          req.BidID,
		HomeownerID:    req.HomeownerID,
		HomeownerEmail: req.HomeownerEmail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"paymentHoldId":        result.Hold.ID.String(),
		"clientSecret":         result.ClientSecret,
		"status":               result.Hold.Status,
		"amount":               result.Fees.Amount,
		"platformFee":          result.Fees.PlatformFee,
		"contractorPayout":     result.Fees.ContractorPayout,
		"processorFeeEstimate": result.Fees.ProcessorFeeEstimate,
	})
}

// contactFields ride along on payment mutations so the outbox can reach
// both parties; the backend stores no user contact details itself.
type contactFields struct {
	HomeownerEmail  string `json:"homeownerEmail"`
	HomeownerPhone  string `json:"homeownerPhone"`
	ContractorEmail string `json:"contractorEmail"`
	ContractorPhone string `json:"contractorPhone"`
}

func (f contactFields) toDomain() escrowdomain.Contact {
	return escrowdomain.Contact{
		HomeownerEmail:  f.HomeownerEmail,
		HomeownerPhone:  f.HomeownerPhone,
		ContractorEmail: f.ContractorEmail,
		ContractorPhone: f.ContractorPhone,
	}
}

type capturePaymentRequest struct {
	PaymentHoldID string `json:"paymentHoldId"`
	HomeownerID   string `json:"homeownerId"`
	contactFields
}

func (s *Server) CapturePayment(c *gin.Context) {
	var req capturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PaymentHoldID == "" {
		AbortWithError(c, newValidationError("paymentHoldId", "required", "paymentHoldId is required"))
		return
	}
	if req.HomeownerID == "" {
		AbortWithError(c, newValidationError("homeownerId", "required", "homeownerId is required"))
		return
	}

	hold, err := s.escrowSvc.Capture(c.Request.Context(), escrowdomain.CaptureRequest{
		PaymentHoldID: req.PaymentHoldID,
		HomeownerID:   req.HomeownerID,
		Contact:       req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"success":       true,
		"paymentHoldId": hold.ID.String(),
		"status":        hold.Status,
		"amount":        hold.Amount,
	}
	if hold.StripeChargeID != nil {
		resp["chargeId"] = *hold.StripeChargeID
	}
	c.JSON(http.StatusOK, resp)
}

type confirmCompleteRequest struct {
	PaymentHoldID string `json:"paymentHoldId"`
	JobID         string `json:"jobId"`
	UserID        string `json:"userId"`
	UserType      string `json:"userType"`
	contactFields
}

func (s *Server) ConfirmComplete(c *gin.Context) {
	var req confirmCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PaymentHoldID == "" && req.JobID == "" {
		AbortWithError(c, newValidationError("paymentHoldId", "required", "paymentHoldId or jobId is required"))
		return
	}
	if req.UserID == "" {
		AbortWithError(c, newValidationError("userId", "required", "userId is required"))
		return
	}
	if req.UserType == "" {
		AbortWithError(c, newValidationError("userType", "required", "userType is required"))
		return
	}

	result, err := s.escrowSvc.ConfirmComplete(c.Request.Context(), escrowdomain.ConfirmCompleteRequest{
		PaymentHoldID: req.PaymentHoldID,
		JobID:         req.JobID,
		UserID:        req.UserID,
		UserType:      req.UserType,
		Contact:       req.toDomain(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"paymentHoldId":       result.Hold.ID.String(),
		"status":              result.Hold.Status,
		"homeownerConfirmed":  result.Hold.HomeownerConfirmedComplete,
		"contractorConfirmed": result.Hold.ContractorConfirmedComplete,
		"bothConfirmed":       result.BothConfirmed,
		"paymentReleased":     result.PaymentReleased,
	})
}

type releasePaymentRequest struct {
	PaymentHoldID string `json:"paymentHoldId"`
}

func (s *Server) ReleasePayment(c *gin.Context) {
	var req releasePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PaymentHoldID == "" {
		AbortWithError(c, newValidationError("paymentHoldId", "required", "paymentHoldId is required"))
		return
	}

	hold, err := s.escrowSvc.Release(c.Request.Context(), req.PaymentHoldID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"success":       true,
		"paymentHoldId": hold.ID.String(),
		"status":        hold.Status,
		"amount":        hold.ContractorPayout,
	}
	if hold.StripeTransferID != nil {
		resp["transferId"] = *hold.StripeTransferID
	}
	if hold.ReleasedAt != nil {
		resp["releasedAt"] = hold.ReleasedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetPaymentHold(c *gin.Context) {
	hold, err := s.escrowSvc.Get(c.Request.Context(), escrowdomain.GetHoldRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"paymentHold": hold,
	})
}
