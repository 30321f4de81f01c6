package lock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireGrantsWholeSeatSet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectEvalSha(acquireScript.Hash(),
		[]string{"lock:schedule:7"},
		300, "9:1700000000000", 2, "prime:A1", "prime:A2",
	).SetVal([]interface{}{int64(1)})

	res, err := m.Acquire(context.Background(), 7, "prime", []string{"A1", "A2"}, "9:1700000000000", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Empty(t, res.Conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireReportsConflictingSeat(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectEvalSha(acquireScript.Hash(),
		[]string{"lock:schedule:7"},
		300, "9:1700000000000", 2, "prime:A1", "prime:A2",
	).SetVal([]interface{}{int64(0), "prime:A2"})

	res, err := m.Acquire(context.Background(), 7, "prime", []string{"A1", "A2"}, "9:1700000000000", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Granted)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "A2", res.Conflicts[0].Seat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireRejectsEmptySeatSet(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	m := NewManager(rdb)

	_, err := m.Acquire(context.Background(), 7, "prime", nil, "h", time.Minute)
	assert.Error(t, err)
}

func TestProbeReturnsOnlyHeldSeats(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectHMGet("lock:schedule:7", "classic:B1", "classic:B2").
		SetVal([]interface{}{nil, "4:1699999999999"})

	conflicts, err := m.Probe(context.Background(), 7, "classic", []string{"B1", "B2"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "B2", conflicts[0].Seat)
	assert.Equal(t, "4:1699999999999", conflicts[0].Holder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseDeletesFields(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectHDel("lock:schedule:7", "prime:A1", "prime:A2").SetVal(2)

	err := m.Release(context.Background(), 7, "prime", []string{"A1", "A2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseEmptySeatSetIsNoop(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	require.NoError(t, m.Release(context.Background(), 7, "prime", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOwnedCountsRemovedFields(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectEvalSha(releaseOwnedScript.Hash(),
		[]string{"lock:schedule:7"},
		"9:1700000000000", 2, "prime:A1", "prime:A2",
	).SetVal(int64(1))

	removed, err := m.ReleaseOwned(context.Background(), 7, "prime", []string{"A1", "A2"}, "9:1700000000000")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldsReturnsFullHash(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m := NewManager(rdb)

	mock.ExpectHGetAll("lock:schedule:7").SetVal(map[string]string{
		"prime:A1": "9:1700000000000",
	})

	holds, err := m.Holds(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "9:1700000000000", holds["prime:A1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
