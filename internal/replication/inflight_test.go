package replication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestInflight_TakeRemoves(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	f, err := newInflight(8, time.Minute, clk.now)
	require.NoError(t, err)

	f.add("x")
	assert.True(t, f.take("x"))
	assert.False(t, f.take("x"))
	assert.Equal(t, 0, f.len())
}

func TestInflight_AgedEntriesAreAbsent(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	f, err := newInflight(8, time.Minute, clk.now)
	require.NoError(t, err)

	f.add("old")
	clk.advance(2 * time.Minute)
	assert.False(t, f.take("old"))

	f.add("a")
	clk.advance(2 * time.Minute)
	f.add("b")
	// add poda lo vencido desde la punta más vieja
	assert.False(t, f.contains("a"))
	assert.True(t, f.contains("b"))
}

func TestInflight_BoundedBySize(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	f, err := newInflight(2, time.Hour, clk.now)
	require.NoError(t, err)

	f.add("1")
	f.add("2")
	f.add("3")
	assert.Equal(t, 2, f.len())
	assert.False(t, f.contains("1"))
	assert.True(t, f.take("3"))
}
