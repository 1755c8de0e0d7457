package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker(timeout time.Duration) (*Tracker, *time.Time) {
	tr := New(timeout, zap.NewNop())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestTracker_Track_PreservesSessionIdentity(t *testing.T) {
	tr, now := newTestTracker(time.Minute)

	tr.Track(1, 10000, "node-a", "auth")
	first := tr.Snapshot()[0]

	*now = now.Add(30 * time.Second)
	tr.Track(1, 10000, "node-b", "fetch")

	s := tr.Snapshot()[0]
	require.Equal(t, first.SessionID, s.SessionID)
	require.Equal(t, first.ConnectedAt, s.ConnectedAt)
	require.Equal(t, "node-b", s.ServerNode)
	require.Equal(t, "fetch", s.Meta)
	require.True(t, s.LastActiveAt.After(first.LastActiveAt))
	require.Equal(t, 1, tr.Count())
}

func TestTracker_IsOnline_TimeoutEvicts(t *testing.T) {
	tr, now := newTestTracker(time.Minute)

	tr.Track(1, 10000, "node-a", "auth")
	require.True(t, tr.IsOnline(1))

	*now = now.Add(59 * time.Second)
	require.True(t, tr.IsOnline(1))

	*now = now.Add(2 * time.Second)
	require.False(t, tr.IsOnline(1))
	// the expired entry is gone, not just hidden
	require.Equal(t, 0, tr.Count())
}

func TestTracker_Touch_ExtendsSession(t *testing.T) {
	tr, now := newTestTracker(time.Minute)

	tr.Track(1, 10000, "node-a", "auth")
	*now = now.Add(50 * time.Second)
	tr.Touch(1)
	*now = now.Add(50 * time.Second)
	require.True(t, tr.IsOnline(1))

	// touching an unknown account does nothing
	tr.Touch(99)
	require.Equal(t, 1, tr.Count())
}

func TestTracker_IsOnline_Unknown(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	require.False(t, tr.IsOnline(404))
}

func TestTracker_Sweep(t *testing.T) {
	tr, now := newTestTracker(time.Minute)

	tr.Track(1, 10000, "node-a", "auth")
	tr.Track(2, 10001, "node-a", "auth")
	*now = now.Add(30 * time.Second)
	tr.Track(3, 10002, "node-b", "auth")

	*now = now.Add(45 * time.Second)
	require.Equal(t, 2, tr.Sweep())
	require.Equal(t, 1, tr.Count())
	require.True(t, tr.IsOnline(3))
}

func TestTracker_Stats(t *testing.T) {
	tr, now := newTestTracker(time.Hour)

	tr.Track(1, 10000, "node-a", "auth")
	*now = now.Add(2 * time.Minute)
	tr.Track(2, 10001, "node-a", "auth")
	*now = now.Add(2 * time.Minute)
	tr.Track(3, 10002, "node-b", "auth")

	st := tr.Stats()
	require.Equal(t, 3, st.Sessions)
	require.Equal(t, time.Duration(0), st.MinAge)
	require.Equal(t, 4*time.Minute, st.MaxAge)
	require.Equal(t, 2*time.Minute, st.AvgAge)
	require.Equal(t, 2, st.PerNode["node-a"])
	require.Equal(t, 1, st.PerNode["node-b"])
}

func TestTracker_Stats_Empty(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	st := tr.Stats()
	require.Equal(t, 0, st.Sessions)
	require.Empty(t, st.PerNode)
}

func TestNew_Defaults(t *testing.T) {
	tr := New(0, nil)
	require.Equal(t, DefaultTimeout, tr.timeout)
	require.NotNil(t, tr.log)
}
