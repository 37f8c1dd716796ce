// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/metrics"
)

// RedisQueue implements Service over Redis: one sorted set of queued job
// IDs per pool (score encodes priority then enqueue time, so ZPOPMIN
// yields the highest-priority oldest job), a second sorted set of leased
// job IDs scored by lease expiry (used to reclaim crashed-worker jobs),
// and one hash per job record. This generalizes the teacher's RPUSH/BLPOP
// list queue with priority ordering and lease recovery, neither of which
// a plain list can express.
type RedisQueue struct {
	client *redis.Client

	leaseScript *redis.Script
	failScript  *redis.Script
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:      client,
		leaseScript: redis.NewScript(leaseLua),
		failScript:  redis.NewScript(failLua),
	}
}

func queuedKey(pool string) string { return fmt.Sprintf("arkham:queue:%s:queued", pool) }
func leasedKey(pool string) string { return fmt.Sprintf("arkham:queue:%s:leased", pool) }
func jobKey(jobID string) string   { return "arkham:job:" + jobID }

// queueScore orders lower-priority-number-first (higher priority first),
// then earlier enqueue time first, within a single float64 without
// collisions for any realistic priority range (1-9).
func queueScore(priority Priority, enqueuedAt time.Time) float64 {
	return float64(priority)*1e15 + float64(enqueuedAt.UnixMilli())
}

func (q *RedisQueue) Enqueue(ctx context.Context, pool, jobID string, payload map[string]interface{}, priority Priority, maxRetries int) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validation("marshal payload: %v", err)
	}

	now := time.Now()
	score := queueScore(priority, now)

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), map[string]interface{}{
		"job_id":      jobID,
		"pool":        pool,
		"priority":    int(priority),
		"payload":     string(payloadJSON),
		"state":       string(StateQueued),
		"attempts":    0,
		"max_retries": maxRetries,
		"enqueued_at": now.UnixMilli(),
		"queue_score": score,
	})
	pipe.ZAdd(ctx, queuedKey(pool), redis.Z{Score: score, Member: jobID})
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.DependencyUnavailable(err, "enqueue job %s", jobID)
	}

	lo := float64(priority) * 1e15
	depth, _ := q.client.ZCount(ctx, queuedKey(pool), strconv.FormatFloat(lo, 'f', -1, 64), "("+strconv.FormatFloat(lo+1e15, 'f', -1, 64)).Result()
	metrics.QueueDepth.WithLabelValues(pool, strconv.Itoa(int(priority))).Set(float64(depth))
	return nil
}

// leaseLua reclaims expired leases into the queued set (incrementing
// attempts, the "recovered lease" path from the lease invariant), then
// pops and leases the highest-priority oldest queued job.
const leaseLua = `
local queuedKey = KEYS[1]
local leasedKey = KEYS[2]
local now = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local jobPrefix = ARGV[3]

local expired = redis.call('ZRANGEBYSCORE', leasedKey, '-inf', now)
for _, jobID in ipairs(expired) do
    redis.call('ZREM', leasedKey, jobID)
    local jkey = jobPrefix .. jobID
    local score = redis.call('HGET', jkey, 'queue_score')
    if score then
        redis.call('ZADD', queuedKey, score, jobID)
        redis.call('HINCRBY', jkey, 'attempts', 1)
        redis.call('HSET', jkey, 'state', 'queued')
    end
end

local popped = redis.call('ZPOPMIN', queuedKey)
if table.getn(popped) == 0 then
    return nil
end
local jobID = popped[1]
local jkey = jobPrefix .. jobID
local leaseExpiresAt = now + ttl
redis.call('HSET', jkey, 'state', 'leased', 'last_heartbeat', now, 'lease_expires_at', leaseExpiresAt)
redis.call('ZADD', leasedKey, leaseExpiresAt, jobID)
return jobID
`

func (q *RedisQueue) Lease(ctx context.Context, pool, workerID string, leaseTTL time.Duration) (*Record, error) {
	now := time.Now()
	res, err := q.leaseScript.Run(ctx, q.client, []string{queuedKey(pool), leasedKey(pool)},
		now.UnixMilli(), leaseTTL.Milliseconds(), "arkham:job:").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DependencyUnavailable(err, "lease from pool %s", pool)
	}
	if res == nil {
		return nil, nil
	}
	jobID, ok := res.(string)
	if !ok {
		return nil, nil
	}

	logger.Printf("queue: worker %s leased job %s from pool %s", workerID, jobID, pool)
	return q.Get(ctx, jobID)
}

func (q *RedisQueue) Heartbeat(ctx context.Context, jobID string, leaseTTL time.Duration) error {
	now := time.Now()
	newExpiry := now.Add(leaseTTL)

	rec, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.NotFound("job %s", jobID)
	}
	if rec.State != StateLeased {
		return apperr.Conflict("job %s is not leased (state=%s)", jobID, rec.State)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), map[string]interface{}{
		"last_heartbeat":   now.UnixMilli(),
		"lease_expires_at": newExpiry.UnixMilli(),
	})
	pipe.ZAdd(ctx, leasedKey(rec.Pool), redis.Z{Score: float64(newExpiry.UnixMilli()), Member: jobID})
	_, err = pipe.Exec(ctx)
	if err != nil {
		return apperr.DependencyUnavailable(err, "heartbeat job %s", jobID)
	}
	return nil
}

func (q *RedisQueue) Complete(ctx context.Context, jobID string, result map[string]interface{}) error {
	rec, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.NotFound("job %s", jobID)
	}
	if rec.State == StateCompleted {
		// idempotent: a duplicate complete is a no-op, per spec.md §8
		// round-trip law.
		return nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return apperr.Validation("marshal result: %v", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), map[string]interface{}{
		"state":  string(StateCompleted),
		"result": string(resultJSON),
	})
	pipe.ZRem(ctx, leasedKey(rec.Pool), jobID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return apperr.DependencyUnavailable(err, "complete job %s", jobID)
	}
	return nil
}

// failLua increments attempts and either requeues (preserving the
// original queue_score, so retries keep their original priority/enqueue
// ordering bias) or dead-letters when attempts reach max_retries.
const failLua = `
local queuedKey = KEYS[1]
local leasedKey = KEYS[2]
local jkey = KEYS[3]
local errMsg = ARGV[1]

redis.call('ZREM', leasedKey, ARGV[2])
local attempts = tonumber(redis.call('HINCRBY', jkey, 'attempts', 1))
local maxRetries = tonumber(redis.call('HGET', jkey, 'max_retries'))
redis.call('HSET', jkey, 'error', errMsg)

if attempts < maxRetries then
    local score = redis.call('HGET', jkey, 'queue_score')
    redis.call('HSET', jkey, 'state', 'queued')
    redis.call('ZADD', queuedKey, score, ARGV[2])
    return 'queued'
else
    redis.call('HSET', jkey, 'state', 'dead')
    return 'dead'
end
`

func (q *RedisQueue) Fail(ctx context.Context, jobID string, cause error) error {
	rec, err := q.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.NotFound("job %s", jobID)
	}

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	res, err := q.failScript.Run(ctx, q.client,
		[]string{queuedKey(rec.Pool), leasedKey(rec.Pool), jobKey(jobID)},
		msg, jobID).Result()
	if err != nil {
		return apperr.DependencyUnavailable(err, "fail job %s", jobID)
	}
	if res == "dead" {
		metrics.JobsDeadLettered.WithLabelValues(rec.Pool).Inc()
		logger.Warnf("queue: job %s dead-lettered in pool %s after %d attempts: %v", jobID, rec.Pool, rec.Attempts+1, cause)
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, jobID string) (*Record, error) {
	fields, err := q.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return nil, apperr.DependencyUnavailable(err, "get job %s", jobID)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeRecord(fields)
}

func (q *RedisQueue) Depth(ctx context.Context, pool string) (int64, error) {
	n, err := q.client.ZCard(ctx, queuedKey(pool)).Result()
	if err != nil {
		return 0, apperr.DependencyUnavailable(err, "depth of pool %s", pool)
	}
	return n, nil
}

func decodeRecord(fields map[string]string) (*Record, error) {
	rec := &Record{
		JobID: fields["job_id"],
		Pool:  fields["pool"],
		State: State(fields["state"]),
		Error: fields["error"],
	}
	if v, err := strconv.Atoi(fields["priority"]); err == nil {
		rec.Priority = Priority(v)
	}
	if v, err := strconv.Atoi(fields["attempts"]); err == nil {
		rec.Attempts = v
	}
	if v, err := strconv.Atoi(fields["max_retries"]); err == nil {
		rec.MaxRetries = v
	}
	if v, err := strconv.ParseInt(fields["enqueued_at"], 10, 64); err == nil {
		rec.EnqueuedAt = time.UnixMilli(v)
	}
	if v, err := strconv.ParseInt(fields["last_heartbeat"], 10, 64); err == nil {
		rec.LastHeartbeat = time.UnixMilli(v)
	}
	if v, err := strconv.ParseInt(fields["lease_expires_at"], 10, 64); err == nil {
		rec.LeaseExpiresAt = time.UnixMilli(v)
	}
	if p, ok := fields["payload"]; ok && p != "" {
		if err := json.Unmarshal([]byte(p), &rec.Payload); err != nil {
			return nil, apperr.Validation("decode payload for job %s: %v", rec.JobID, err)
		}
	}
	if r, ok := fields["result"]; ok && r != "" {
		if err := json.Unmarshal([]byte(r), &rec.Result); err != nil {
			return nil, apperr.Validation("decode result for job %s: %v", rec.JobID, err)
		}
	}
	return rec, nil
}
