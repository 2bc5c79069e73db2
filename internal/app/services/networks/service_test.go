package networks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

func TestListAttachesPolicies(t *testing.T) {
	store := memory.New()
	main := store.AddNetwork(network.Network{ID: "b", Name: network.Mainnet})
	store.AddNetwork(network.Network{ID: "a", Name: network.Preview})
	store.AddPolicy(network.Policy{Network: main.ID, PolicyID: "old", StartingSlot: 10})
	store.AddPolicy(network.Policy{Network: main.ID, PolicyID: "new", StartingSlot: 20})

	nets, err := New(store, logger.Discard()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, nets, 2)

	assert.Equal(t, "b", nets[0].ID)
	require.Len(t, nets[0].Policies, 2)
	assert.Equal(t, "new", nets[0].Policies[0].PolicyID)
	assert.Equal(t, "old", nets[0].Policies[1].PolicyID)
	assert.NotNil(t, nets[1].Policies)
	assert.Empty(t, nets[1].Policies)
}

type countingStore struct {
	storage.NetworkStore
	lists   int
	lookups int
	fail    bool
}

func (c *countingStore) ListNetworks(ctx context.Context) ([]network.Network, error) {
	c.lists++
	if c.fail {
		return nil, errors.New("db down")
	}
	return c.NetworkStore.ListNetworks(ctx)
}

func (c *countingStore) GetNetworkByName(ctx context.Context, name string) (network.Network, error) {
	c.lookups++
	return c.NetworkStore.GetNetworkByName(ctx, name)
}

func TestDirectoryServesFromCache(t *testing.T) {
	mem := memory.New()
	mem.AddNetwork(network.Network{ID: "1", Name: network.Mainnet})
	store := &countingStore{NetworkStore: mem}

	dir := NewDirectory(store, "@every 1h", logger.Discard())
	require.NoError(t, dir.Start(context.Background()))
	t.Cleanup(func() { _ = dir.Stop(context.Background()) })
	assert.Equal(t, 1, store.lists)
	assert.False(t, dir.LoadedAt().IsZero())

	for i := 0; i < 3; i++ {
		n, err := dir.GetNetworkByName(context.Background(), network.Mainnet)
		require.NoError(t, err)
		assert.Equal(t, "1", n.ID)
	}
	assert.Zero(t, store.lookups)

	// Added after the load: resolved through the store, then cached.
	mem.AddNetwork(network.Network{ID: "2", Name: network.Preview})
	n, err := dir.GetNetworkByName(context.Background(), network.Preview)
	require.NoError(t, err)
	assert.Equal(t, "2", n.ID)
	_, _ = dir.GetNetworkByName(context.Background(), network.Preview)
	assert.Equal(t, 1, store.lookups)

	_, err = dir.GetNetworkByName(context.Background(), "Nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDirectoryStartToleratesFailedLoad(t *testing.T) {
	mem := memory.New()
	mem.AddNetwork(network.Network{ID: "1", Name: network.Mainnet})
	store := &countingStore{NetworkStore: mem, fail: true}

	dir := NewDirectory(store, "", logger.Discard())
	require.NoError(t, dir.Start(context.Background()))
	defer dir.Stop(context.Background())

	n, err := dir.GetNetworkByName(context.Background(), network.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "1", n.ID)
}

func TestDirectoryRejectsBadSchedule(t *testing.T) {
	dir := NewDirectory(memory.New(), "every now and then", logger.Discard())
	assert.Error(t, dir.Start(context.Background()))
}

func TestDirectoryStopIsIdempotent(t *testing.T) {
	dir := NewDirectory(memory.New(), "@every 1h", logger.Discard())
	require.NoError(t, dir.Start(context.Background()))
	require.NoError(t, dir.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, dir.Stop(ctx))
	require.NoError(t, dir.Stop(ctx))
}
