package queue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func testAdapter(t *testing.T) (*Adapter, *redis.Client, string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	queueName := "test-leads-" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := rdb.Keys(context.Background(), "bull:"+queueName+":*").Result()
		if len(keys) > 0 {
			rdb.Del(context.Background(), keys...)
		}
	})

	return NewAdapter(rdb, queueName, nil), rdb, queueName
}

// enqueue stages a job the way a BullMQ producer would.
func enqueue(t *testing.T, rdb *redis.Client, queueName, jobID, name, data string) {
	t.Helper()
	ctx := context.Background()
	jobKey := fmt.Sprintf("bull:%s:%s", queueName, jobID)
	if err := rdb.HSet(ctx, jobKey, "name", name, "data", data).Err(); err != nil {
		t.Fatalf("stage job hash: %v", err)
	}
	if err := rdb.LPush(ctx, fmt.Sprintf("bull:%s:wait", queueName), jobID).Err(); err != nil {
		t.Fatalf("push to wait: %v", err)
	}
	if err := rdb.ZAdd(ctx, fmt.Sprintf("bull:%s:marker", queueName), redis.Z{Score: float64(time.Now().UnixMilli()), Member: "0"}).Err(); err != nil {
		t.Fatalf("set marker: %v", err)
	}
}

func TestFetchNextClaimsStagedJob(t *testing.T) {
	a, rdb, queueName := testAdapter(t)
	ctx := context.Background()

	enqueue(t, rdb, queueName, "1", "lead-audit", `{"auditSessionId":"sess-1","userId":"user-1"}`)

	job, err := a.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
	if job.ID != "1" || job.Name != "lead-audit" {
		t.Errorf("job = %+v", job)
	}
	if job.Data.AuditSessionID != "sess-1" || job.Data.UserID != "user-1" {
		t.Errorf("job data = %+v", job.Data)
	}

	active, err := rdb.LRange(ctx, fmt.Sprintf("bull:%s:active", queueName), 0, -1).Result()
	if err != nil {
		t.Fatalf("read active: %v", err)
	}
	if len(active) != 1 || active[0] != "1" {
		t.Errorf("active list = %v, want [1]", active)
	}
}

func TestFetchNextIdleQueue(t *testing.T) {
	a, _, _ := testAdapter(t)

	start := time.Now()
	job, err := a.FetchNext(context.Background())
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if job != nil {
		t.Fatalf("expected no job, got %+v", job)
	}
	if elapsed := time.Since(start); elapsed < 4*time.Second {
		t.Errorf("returned after %v, expected a blocking wait near 5s", elapsed)
	}
}

func TestFetchNextPausedQueue(t *testing.T) {
	a, rdb, queueName := testAdapter(t)
	ctx := context.Background()

	enqueue(t, rdb, queueName, "1", "lead-audit", `{"auditSessionId":"s","userId":"u"}`)
	if err := rdb.Set(ctx, fmt.Sprintf("bull:%s:paused", queueName), "1", 0).Err(); err != nil {
		t.Fatalf("pause queue: %v", err)
	}

	job, err := a.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if job != nil {
		t.Fatalf("paused queue yielded job %+v", job)
	}

	wait, _ := rdb.LRange(ctx, fmt.Sprintf("bull:%s:wait", queueName), 0, -1).Result()
	if len(wait) != 1 {
		t.Errorf("wait list = %v, job should stay queued while paused", wait)
	}
}

func TestFetchNextPriorityFallback(t *testing.T) {
	a, rdb, queueName := testAdapter(t)
	ctx := context.Background()

	jobKey := fmt.Sprintf("bull:%s:2", queueName)
	if err := rdb.HSet(ctx, jobKey, "name", "lead-audit", "data", `{"auditSessionId":"s","userId":"u"}`).Err(); err != nil {
		t.Fatalf("stage job hash: %v", err)
	}
	if err := rdb.ZAdd(ctx, fmt.Sprintf("bull:%s:priority", queueName), redis.Z{Score: 1, Member: "2"}).Err(); err != nil {
		t.Fatalf("stage priority: %v", err)
	}
	if err := rdb.ZAdd(ctx, fmt.Sprintf("bull:%s:marker", queueName), redis.Z{Score: float64(time.Now().UnixMilli()), Member: "0"}).Err(); err != nil {
		t.Fatalf("set marker: %v", err)
	}

	job, err := a.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if job == nil || job.ID != "2" {
		t.Fatalf("job = %+v, want id 2 from priority set", job)
	}
}

func TestAcknowledgeSettlesJob(t *testing.T) {
	a, rdb, queueName := testAdapter(t)
	ctx := context.Background()

	enqueue(t, rdb, queueName, "1", "lead-audit", `{"auditSessionId":"s","userId":"u"}`)
	job, err := a.FetchNext(ctx)
	if err != nil || job == nil {
		t.Fatalf("FetchNext: job=%v err=%v", job, err)
	}

	if err := a.Acknowledge(ctx, job.ID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	active, _ := rdb.LRange(ctx, fmt.Sprintf("bull:%s:active", queueName), 0, -1).Result()
	if len(active) != 0 {
		t.Errorf("active list = %v, want empty", active)
	}
	score, err := rdb.ZScore(ctx, fmt.Sprintf("bull:%s:completed", queueName), "1").Result()
	if err != nil {
		t.Fatalf("job missing from completed set: %v", err)
	}
	if score <= 0 {
		t.Errorf("completed score = %v", score)
	}
	finishedOn, err := rdb.HGet(ctx, fmt.Sprintf("bull:%s:1", queueName), "finishedOn").Result()
	if err != nil || finishedOn == "" {
		t.Errorf("finishedOn not stamped: %v", err)
	}
}

func TestRequeueReturnsJobToWait(t *testing.T) {
	a, rdb, queueName := testAdapter(t)
	ctx := context.Background()

	enqueue(t, rdb, queueName, "1", "unknown-job", `{"auditSessionId":"s","userId":"u"}`)
	job, err := a.FetchNext(ctx)
	if err != nil || job == nil {
		t.Fatalf("FetchNext: job=%v err=%v", job, err)
	}

	if err := a.Requeue(ctx, job.ID); err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	active, _ := rdb.LRange(ctx, fmt.Sprintf("bull:%s:active", queueName), 0, -1).Result()
	if len(active) != 0 {
		t.Errorf("active list = %v, want empty after requeue", active)
	}
	wait, _ := rdb.LRange(ctx, fmt.Sprintf("bull:%s:wait", queueName), 0, -1).Result()
	if len(wait) != 1 || wait[0] != "1" {
		t.Errorf("wait list = %v, want [1]", wait)
	}

	// The refreshed marker lets the next fetch claim it again.
	again, err := a.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext after requeue: %v", err)
	}
	if again == nil || again.ID != "1" {
		t.Fatalf("job after requeue = %+v, want id 1", again)
	}
}
