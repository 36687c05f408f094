// Package queue reads jobs from a BullMQ-managed Redis queue without
// pulling in a full client port. It speaks just enough of the BullMQ
// key protocol to fetch, complete, and requeue jobs cooperatively with
// producers using the real library.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// JobData is the payload every audit job carries.
type JobData struct {
	AuditSessionID string `json:"auditSessionId"`
	UserID         string `json:"userId"`
}

// Job is one unit of work claimed from the queue.
type Job struct {
	ID   string
	Name string
	Data JobData
}

// moveToActive mirrors BullMQ's claim step: nothing moves while the
// queue is paused, the wait list is drained before the priority set,
// and the claimed id always lands on the active list.
var moveToActive = redis.NewScript(`
local rcall = redis.call
local queueKey = KEYS[1]
local priorityKey = KEYS[2]
local activeKey = KEYS[3]
local pausedKey = KEYS[4]

local isPaused = rcall("EXISTS", pausedKey) == 1
if isPaused then
    return nil
end

local jobId = rcall("RPOPLPUSH", queueKey, activeKey)
if not jobId then
    jobId = rcall("ZPOPMIN", priorityKey, 1)[1]
    if jobId then
        rcall("LPUSH", activeKey, jobId)
    end
end

return jobId
`)

// Adapter claims and settles jobs on one named BullMQ queue.
type Adapter struct {
	rdb    redis.UniversalClient
	queue  string
	logger *slog.Logger
}

func NewAdapter(rdb redis.UniversalClient, queueName string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{rdb: rdb, queue: queueName, logger: logger}
}

func (a *Adapter) key(suffix string) string {
	return fmt.Sprintf("bull:%s:%s", a.queue, suffix)
}

// FetchNext blocks up to five seconds on the queue marker, then claims
// one job. A nil job with a nil error means the queue was idle.
func (a *Adapter) FetchNext(ctx context.Context) (*Job, error) {
	_, err := a.rdb.BZPopMin(ctx, 5*time.Second, a.key("marker")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("wait on queue marker: %w", err)
	}

	jobID, err := moveToActive.Run(ctx, a.rdb, []string{
		a.key("wait"),
		a.key("priority"),
		a.key("active"),
		a.key("paused"),
	}).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("move job to active: %w", err)
	}
	if jobID == "" {
		return nil, nil
	}

	hash, err := a.rdb.HGetAll(ctx, a.key(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch job hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, nil
	}

	name, ok := hash["name"]
	if !ok {
		return nil, fmt.Errorf("job %s: missing name field", jobID)
	}
	raw, ok := hash["data"]
	if !ok {
		return nil, fmt.Errorf("job %s: missing data field", jobID)
	}

	var data JobData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("job %s: decode data: %w", jobID, err)
	}

	a.logger.Debug("claimed job", "job_id", jobID, "name", name)
	return &Job{ID: jobID, Name: name, Data: data}, nil
}

// Acknowledge records a job as completed the way BullMQ expects:
// removed from active, scored into completed, and stamped finishedOn.
func (a *Adapter) Acknowledge(ctx context.Context, jobID string) error {
	now := time.Now().UnixMilli()

	if err := a.rdb.LRem(ctx, a.key("active"), 1, jobID).Err(); err != nil {
		return fmt.Errorf("remove job from active: %w", err)
	}
	if err := a.rdb.ZAdd(ctx, a.key("completed"), redis.Z{Score: float64(now), Member: jobID}).Err(); err != nil {
		return fmt.Errorf("add job to completed: %w", err)
	}
	if err := a.rdb.HSet(ctx, a.key(jobID), "finishedOn", now).Err(); err != nil {
		return fmt.Errorf("stamp finishedOn: %w", err)
	}

	a.logger.Info("job completed", "job_id", jobID)
	return nil
}

// Requeue returns a job to the wait list and refreshes the marker so
// blocked consumers wake up.
func (a *Adapter) Requeue(ctx context.Context, jobID string) error {
	if err := a.rdb.LRem(ctx, a.key("active"), 1, jobID).Err(); err != nil {
		return fmt.Errorf("remove job from active: %w", err)
	}
	if err := a.rdb.LPush(ctx, a.key("wait"), jobID).Err(); err != nil {
		return fmt.Errorf("push job to wait: %w", err)
	}
	now := time.Now().UnixMilli()
	if err := a.rdb.ZAdd(ctx, a.key("marker"), redis.Z{Score: float64(now), Member: "0"}).Err(); err != nil {
		return fmt.Errorf("refresh queue marker: %w", err)
	}

	a.logger.Info("job requeued", "job_id", jobID)
	return nil
}
