package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/rushr-app/rushr/internal/job/domain"
	"github.com/rushr-app/rushr/pkg/db/pagination"
)

func (s *Server) ListJobs(c *gin.Context) {
	homeownerID := c.Query("homeownerId")
	if homeownerID == "" {
		AbortWithError(c, newValidationError("homeownerId", "required", "homeownerId is required"))
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if page.PageSize <= 0 || page.PageSize > 100 {
		page.PageSize = 20
	}

	var afterID string
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			AbortWithError(c, newValidationError("page_token", "invalid", "page_token is not a valid cursor"))
			return
		}
		afterID = cursor.ID
	}

	// Fetch one extra row to detect a following page.
	jobs, err := s.jobSvc.List(c.Request.Context(), jobdomain.ListJobsRequest{
		HomeownerID: homeownerID,
		Limit:       page.PageSize + 1,
		AfterID:     afterID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]*jobdomain.HomeownerJob, len(jobs))
	for i := range jobs {
		items[i] = &jobs[i]
	}
	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(job *jobdomain.HomeownerJob) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: job.ID.String()})
		return token
	})
	if len(jobs) > page.PageSize {
		jobs = jobs[:page.PageSize]
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"jobs":     jobs,
		"pageInfo": pageInfo,
	})
}

func (s *Server) GetJob(c *gin.Context) {
	homeownerID := c.Query("homeownerId")
	if homeownerID == "" {
		AbortWithError(c, newValidationError("homeownerId", "required", "homeownerId is required"))
		return
	}

	job, err := s.jobSvc.Get(c.Request.Context(), jobdomain.GetJobRequest{
		ID:          c.Param("id"),
		HomeownerID: homeownerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job":     job,
	})
}

type confirmArrivalRequest struct {
	HomeownerID string `json:"homeownerId"`
}

func (s *Server) ConfirmArrival(c *gin.Context) {
	var req confirmArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.HomeownerID == "" {
		AbortWithError(c, newValidationError("homeownerId", "required", "homeownerId is required"))
		return
	}

	job, err := s.jobSvc.ConfirmArrival(c.Request.Context(), jobdomain.ConfirmArrivalRequest{
		JobID:       c.Param("id"),
		HomeownerID: req.HomeownerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job":     job,
	})
}
