package domain

import "context"

type RejectBidRequest struct {
	BidID       string
	HomeownerID string
	// JobTitle and contractor contact details come from the caller; the
	// service has no user directory to resolve them from.
	JobTitle        string
	ContractorEmail string
	ContractorPhone string
}

type AcceptBidRequest struct {
	BidID           string
	HomeownerID     string
	JobTitle        string
	ContractorEmail string
	ContractorPhone string
}

type AcceptBidResult struct {
	Bid              JobBid
	RejectedSiblings int
}

type Service interface {
	Reject(ctx context.Context, req RejectBidRequest) (JobBid, error)
	Accept(ctx context.Context, req AcceptBidRequest) (AcceptBidResult, error)
}
