package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	biddomain "github.com/rushr-app/rushr/internal/bid/domain"
)

type bidActionRequest struct {
	BidID           string `json:"bidId"`
	HomeownerID     string `json:"homeownerId"`
	JobTitle        string `json:"jobTitle"`
	ContractorEmail string `json:"contractorEmail"`
	ContractorPhone string `json:"contractorPhone"`
}

func (s *Server) AcceptBid(c *gin.Context) {
	var req bidActionRequest
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

	result, err := s.bidSvc.Accept(c.Request.Context(), biddomain.AcceptBidRequest{
		BidID:           req.BidID,
		HomeownerID:     req.HomeownerID,
		JobTitle:        req.JobTitle,
		ContractorEmail: req.ContractorEmail,
		ContractorPhone: req.ContractorPhone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"bidId":            result.Bid.ID.String(),
		"status":           result.Bid.Status,
		"rejectedSiblings": result.RejectedSiblings,
	})
}

func (s *Server) RejectBid(c *gin.Context) {
	var req bidActionRequest
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

	bid, err := s.bidSvc.Reject(c.Request.Context(), biddomain.RejectBidRequest{
		BidID:           req.BidID,
		HomeownerID:     req.HomeownerID,
		JobTitle:        req.JobTitle,
		ContractorEmail: req.ContractorEmail,
		ContractorPhone: req.ContractorPhone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bidId":   bid.ID.String(),
		"status":  bid.Status,
	})
}
