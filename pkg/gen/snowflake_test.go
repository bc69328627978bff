package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bantudesa/pkg/config"
)

func TestProvideNode(t *testing.T) {
	cfg := &config.Config{NodeID: 3}
	node, err := ProvideNode(cfg)
	require.NoError(t, err)
	require.NotEqual(t, node.Generate(), node.Generate())

	cfg.NodeID = 5000
	_, err = ProvideNode(cfg)
	require.Error(t, err)
}
