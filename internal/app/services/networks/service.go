package networks

import (
	"context"
	"fmt"

	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
	"github.com/R3E-Network/explorer_api/internal/app/storage"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Service lists networks together with their minting policies.
type Service struct {
	store storage.NetworkStore
	log   *logger.Logger
}

// New constructs a network service.
func New(store storage.NetworkStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("networks")
	}
	return &Service{store: store, log: log}
}

// List returns every network, newest id first, each carrying its policies
// ordered by starting slot descending.
func (s *Service) List(ctx context.Context) ([]network.Network, error) {
	nets, err := s.store.ListNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	if len(nets) == 0 {
		return []network.Network{}, nil
	}

	ids := make([]string, 0, len(nets))
	for _, n := range nets {
		ids = append(ids, n.ID)
	}
	policies, err := s.store.ListPolicies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}

	byNetwork := make(map[string][]network.Policy, len(nets))
	for _, p := range policies {
		byNetwork[p.Network] = append(byNetwork[p.Network], p)
	}
	for i := range nets {
		nets[i].Policies = byNetwork[nets[i].ID]
		if nets[i].Policies == nil {
			nets[i].Policies = []network.Policy{}
		}
	}
	return nets, nil
}
