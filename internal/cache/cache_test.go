package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

func mult(id int64, node string, state types.MultiplierState) types.Multiplier {
	return types.Multiplier{ID: id, Scope: types.ScopePerNode, NodeID: node, Amount: 2, DurationMinutes: 10, State: state}
}

func TestCache_Balances(t *testing.T) {
	req := require.New(t)
	c := New()

	req.Equal(Unknown, c.Balance("u1"))

	c.SetBalance("u1", 100)
	c.SetBalance("u2", 5)
	req.Equal(100.0, c.Balance("u1"))
	req.Equal(map[string]float64{"u1": 100, "u2": 5}, c.Balances())

	c.RemoveUser("u1")
	req.Equal(Unknown, c.Balance("u1"))
}

func TestCache_SingleActivePerNode(t *testing.T) {
	req := require.New(t)
	c := New()

	_, ok := c.Multiplier("lobby")
	req.False(ok)

	c.PutMultiplier("lobby", mult(1, "lobby", types.StateEnabled))
	c.PutMultiplier("lobby", mult(2, "lobby", types.StateEnabled))

	got, ok := c.Multiplier("lobby")
	req.True(ok)
	req.Equal(int64(2), got.ID)
	req.Len(c.Active(), 1)
}

func TestCache_QueueOrderAndPromotion(t *testing.T) {
	req := require.New(t)
	c := New()

	c.Enqueue(mult(1, "lobby", types.StateQueued))
	c.Enqueue(mult(2, "lobby", types.StateQueued))
	c.Enqueue(mult(1, "lobby", types.StateQueued)) // upsert, no duplica
	req.Len(c.Queued("lobby"), 2)

	// promover una instancia encolada la saca de la cola
	c.PutMultiplier("lobby", mult(2, "lobby", types.StateEnabled))
	q := c.Queued("lobby")
	req.Len(q, 1)
	req.Equal(int64(1), q[0].ID)

	head, ok := c.Dequeue("lobby")
	req.True(ok)
	req.Equal(int64(1), head.ID)
	_, ok = c.Dequeue("lobby")
	req.False(ok)
}

func TestCache_RemoveMultiplier(t *testing.T) {
	req := require.New(t)
	c := New()

	c.PutMultiplier("lobby", mult(1, "lobby", types.StateEnabled))
	c.Enqueue(mult(2, "lobby", types.StateQueued))
	req.Len(c.Multipliers(), 2)

	req.True(c.RemoveMultiplier(mult(2, "lobby", types.StateDisabled)))
	req.True(c.RemoveMultiplier(mult(1, "lobby", types.StateDisabled)))
	req.False(c.RemoveMultiplier(mult(3, "lobby", types.StateDisabled)))
	req.Empty(c.Multipliers())
}

func TestCache_IdentityIncludesOrigin(t *testing.T) {
	req := require.New(t)
	c := New()

	// el #1 de otro nodo no es el #1 propio
	own := mult(1, "lobby", types.StateEnabled)
	foreign := mult(1, "survival", types.StateQueued)
	c.PutMultiplier("lobby", own)
	c.Enqueue(foreign)

	req.False(c.RemoveMultiplier(mult(1, "proxy", types.StateDisabled)))
	req.Len(c.Multipliers(), 2)

	got, ok := c.Find(own.Key())
	req.True(ok)
	req.Equal(types.StateEnabled, got.State)
	got, ok = c.Find(foreign.Key())
	req.True(ok)
	req.Equal("survival", got.NodeID)
	_, ok = c.Find(types.MultiplierKey{Origin: "proxy", ID: 1, Scope: types.ScopePerNode})
	req.False(ok)

	req.True(c.RemoveMultiplier(mult(1, "survival", types.StateDisabled)))
	active, ok := c.Multiplier("lobby")
	req.True(ok)
	req.True(active.SameAs(own))
}

func TestCache_ReturnsCopies(t *testing.T) {
	req := require.New(t)
	c := New()

	m := mult(1, "lobby", types.StateEnabled)
	m.Extra = map[string]string{"k": "v"}
	c.PutMultiplier("lobby", m)

	got, _ := c.Multiplier("lobby")
	got.Extra["k"] = "changed"

	again, _ := c.Multiplier("lobby")
	req.Equal("v", again.Extra["k"])
}

func TestCache_Reset(t *testing.T) {
	c := New()
	c.SetBalance("u1", 1)
	c.PutMultiplier("lobby", mult(1, "lobby", types.StateEnabled))
	c.Reset()
	require.Empty(t, c.Balances())
	require.Empty(t, c.Multipliers())
}
