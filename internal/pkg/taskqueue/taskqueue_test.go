package taskqueue

import (
	"context"
	"testing"
	"time"

	redisc "github.com/JuanFRosales/MindsetGo/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableService returns a service whose Redis backend always errors.
func unreachableService() *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewService(redisc.NewClient(rdb))
}

func TestUpdateStatusPropagatesBackendError(t *testing.T) {
	svc := unreachableService()

	err := svc.UpdateStatus(context.Background(), "task-1", TaskFailed, "boom")
	require.Error(t, err)
	// A backend failure must not masquerade as a missing task.
	assert.NotEqual(t, "task not found", err.Error())
	assert.Contains(t, err.Error(), "load task task-1")
}
