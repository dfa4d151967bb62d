package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service is the fire-and-forget notification surface. Notify and Enqueue
// log failures instead of returning them so payment flows never fail on a
// notification problem.
type Service interface {
	Notify(ctx context.Context, req NotifyRequest)
	Enqueue(ctx context.Context, req EnqueueRequest)
	List(ctx context.Context, userID snowflake.ID, limit int) ([]Notification, error)
}
