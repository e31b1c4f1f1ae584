package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-concierge/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-concierge/agent/catalog"
	"github.com/tanpawarit/chative-concierge/agent/intent"
	"github.com/tanpawarit/chative-concierge/agent/outlet"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	"github.com/tanpawarit/chative-concierge/agent/tool"
	configx "github.com/tanpawarit/chative-concierge/pkg/config"
)

type app struct {
	catalog      *catalog.Catalog
	outlets      outlet.Store
	orchestrator *orchestrator.Orchestrator
}

func wireApp(ctx context.Context) (*app, error) {
	catalogCfg, err := configx.New[catalog.Config]("CATALOG")
	if err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	stateCfg, err := configx.New[statex.Config]("STATE")
	if err != nil {
		return nil, fmt.Errorf("load state config: %w", err)
	}
	outletCfg, err := configx.New[outlet.Config]("OUTLET_DB")
	if err != nil {
		return nil, fmt.Errorf("load outlet db config: %w", err)
	}
	orchestratorCfg, err := configx.New[orchestrator.Config]("ORCHESTRATOR")
	if err != nil {
		return nil, fmt.Errorf("load orchestrator config: %w", err)
	}

	cat, err := catalog.Load(*catalogCfg)
	if err != nil {
		return nil, err
	}

	outlets, err := outlet.Open(ctx, *outletCfg)
	if err != nil {
		return nil, fmt.Errorf("open outlet store: %w", err)
	}

	store, err := statex.NewMemoryStore(*stateCfg)
	if err != nil {
		_ = outlets.Close()
		return nil, fmt.Errorf("create conversation store: %w", err)
	}

	gateway := tool.NewConciergeGateway(cat, outlets)
	o, err := orchestrator.New(store, intent.Classifier{}, gateway, *orchestratorCfg)
	if err != nil {
		_ = outlets.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	log.Info().
		Str("outlet_driver", outletCfg.Driver).
		Int("history_window", stateCfg.HistoryWindow).
		Strs("tools", gateway.Names()).
		Msg("concierge wired")

	return &app{catalog: cat, outlets: outlets, orchestrator: o}, nil
}

func (a *app) Close() {
	if err := a.outlets.Close(); err != nil {
		log.Warn().Err(err).Msg("close outlet store")
	}
}
