package gen

import (
	"fmt"

	"bantudesa/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake", fx.Provide(ProvideNode))

// ProvideNode builds the id node from NODE_ID. Each replica needs its own id.
func ProvideNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to init snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
