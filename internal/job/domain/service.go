package domain

import "context"

type GetJobRequest struct {
	ID          string
	HomeownerID string
}

type ListJobsRequest struct {
	HomeownerID string
	Limit       int
	// AfterID is an exclusive cursor: only jobs with a smaller id are
	// returned. Empty means from the newest.
	AfterID string
}

type ConfirmArrivalRequest struct {
	JobID       string
	HomeownerID string
}

type Service interface {
	Get(ctx context.Context, req GetJobRequest) (HomeownerJob, error)
	List(ctx context.Context, req ListJobsRequest) ([]HomeownerJob, error)
	ConfirmArrival(ctx context.Context, req ConfirmArrivalRequest) (HomeownerJob, error)
}
