package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDonationSequenceKey(t *testing.T) {
	require.Equal(t, "seq:donation:DON:250101", BuildDonationSequenceKey("DON", "250101"))
}
