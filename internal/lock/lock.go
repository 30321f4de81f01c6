// Package lock implements the ephemeral seat lock store on Redis. A
// lock is an admission-control artifact only: it decides which
// reservation attempt may proceed to the durable ledger, but it is
// never the source of truth for a booking outcome. Every hold carries
// a TTL so abandoned attempts cannot leak seats forever.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces lock hashes in Redis. One hash per schedule;
// each field maps a seat to the token of the attempt holding it.
const keyPrefix = "lock:schedule:"

// acquireScript checks every requested field is absent and then sets
// them all with a shared TTL in one atomic evaluation. No other client
// can ever observe a partially locked seat set. On conflict it fails
// fast and returns the first conflicting field without writing
// anything.
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])
local holder = ARGV[2]
local n = tonumber(ARGV[3])
for i = 1, n do
    if redis.call('HEXISTS', key, ARGV[3 + i]) == 1 then
        return {0, ARGV[3 + i]}
    end
end
for i = 1, n do
    redis.call('HSET', key, ARGV[3 + i], holder)
end
redis.call('EXPIRE', key, ttl)
return {1}
`)

// releaseOwnedScript deletes only the fields still held by the given
// token. The reconciler uses it so a stale booking can never delete a
// newer reservation's hold on the same seat. Returns the number of
// fields removed.
var releaseOwnedScript = redis.NewScript(`
local key = KEYS[1]
local holder = ARGV[1]
local n = tonumber(ARGV[2])
local removed = 0
for i = 1, n do
    if redis.call('HGET', key, ARGV[2 + i]) == holder then
        removed = removed + redis.call('HDEL', key, ARGV[2 + i])
    end
end
return removed
`)

// Conflict reports a seat that is currently held and by whom. Holder
// tokens are opaque to callers; they are only ever compared for
// equality.
type Conflict struct {
	Seat   string `json:"seat"`
	Holder string `json:"holder"`
}

// AcquireResult is the outcome of an acquisition attempt. When Granted
// is false, Conflicts names the seat that caused the rejection so the
// caller can report precisely which seats were lost.
type AcquireResult struct {
	Granted   bool
	Conflicts []Conflict
}

// Manager performs atomic seat lock operations against Redis. It is
// safe for concurrent use; all coordination happens server-side in
// Redis.
type Manager struct {
	rdb *redis.Client
}

// NewManager returns a Manager bound to the given Redis client. The
// client must be non-nil: unlike caching or rate limiting, the seat
// lock store cannot degrade gracefully when Redis is unavailable.
func NewManager(rdb *redis.Client) *Manager {
	if rdb == nil {
		panic("nil redis client passed to lock.NewManager")
	}
	return &Manager{rdb: rdb}
}

// scheduleKey builds the Redis hash key for a schedule's locks.
func scheduleKey(scheduleID uint64) string {
	return fmt.Sprintf("%s%d", keyPrefix, scheduleID)
}

// seatField builds the hash field for a seat. Seat numbers like "A1"
// repeat across categories, so the field is qualified with the
// category label to keep holds in different categories from colliding.
func seatField(category, seat string) string {
	return category + ":" + seat
}

// Acquire attempts to lock every seat in the set for the given holder
// token with a shared TTL. Either all seats become held or none do.
// A rejected attempt reports the conflicting seat and leaves existing
// holds untouched.
func (m *Manager) Acquire(ctx context.Context, scheduleID uint64, category string, seats []string, holder string, ttl time.Duration) (*AcquireResult, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("acquire: no seats requested")
	}
	args := make([]interface{}, 0, len(seats)+3)
	args = append(args, int(ttl.Seconds()), holder, len(seats))
	for _, s := range seats {
		args = append(args, seatField(category, s))
	}
	raw, err := acquireScript.Run(ctx, m.rdb, []string{scheduleKey(scheduleID)}, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, fmt.Errorf("acquire: unexpected script reply %v", raw)
	}
	granted, _ := reply[0].(int64)
	if granted == 1 {
		return &AcquireResult{Granted: true}, nil
	}
	res := &AcquireResult{Granted: false}
	if len(reply) > 1 {
		if field, ok := reply[1].(string); ok {
			res.Conflicts = append(res.Conflicts, Conflict{Seat: trimCategory(category, field)})
		}
	}
	return res, nil
}

// Release unconditionally deletes the lock fields for the given seats.
// Releasing seats that are already expired or were never locked is a
// no-op, not an error.
func (m *Manager) Release(ctx context.Context, scheduleID uint64, category string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	fields := make([]string, len(seats))
	for i, s := range seats {
		fields[i] = seatField(category, s)
	}
	if err := m.rdb.HDel(ctx, scheduleKey(scheduleID), fields...).Err(); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// ReleaseOwned deletes only the lock fields that are still held by the
// given token and returns how many were removed. Fields held by other
// tokens are left alone.
func (m *Manager) ReleaseOwned(ctx context.Context, scheduleID uint64, category string, seats []string, holder string) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, holder, len(seats))
	for _, s := range seats {
		args = append(args, seatField(category, s))
	}
	removed, err := releaseOwnedScript.Run(ctx, m.rdb, []string{scheduleKey(scheduleID)}, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("release owned: %w", err)
	}
	return removed, nil
}

// Probe reports which of the given seats are currently held and by
// whom. It is a read-only pre-check: a race can still occur between
// Probe and Acquire, which is why Acquire re-checks atomically.
func (m *Manager) Probe(ctx context.Context, scheduleID uint64, category string, seats []string) ([]Conflict, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	fields := make([]string, len(seats))
	for i, s := range seats {
		fields[i] = seatField(category, s)
	}
	vals, err := m.rdb.HMGet(ctx, scheduleKey(scheduleID), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	var conflicts []Conflict
	for i, v := range vals {
		if v == nil {
			continue
		}
		holder, _ := v.(string)
		conflicts = append(conflicts, Conflict{Seat: seats[i], Holder: holder})
	}
	return conflicts, nil
}

// Holds returns every live lock field for a schedule, mapping the
// category-qualified seat field to its holder token. Used by the
// availability endpoint to merge live holds into the seat map.
func (m *Manager) Holds(ctx context.Context, scheduleID uint64) (map[string]string, error) {
	holds, err := m.rdb.HGetAll(ctx, scheduleKey(scheduleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("holds: %w", err)
	}
	return holds, nil
}

// trimCategory strips the category qualifier from a hash field so
// callers see plain seat numbers again.
func trimCategory(category, field string) string {
	prefix := category + ":"
	if len(field) > len(prefix) && field[:len(prefix)] == prefix {
		return field[len(prefix):]
	}
	return field
}
