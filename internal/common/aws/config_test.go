package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RequiresRegion(t *testing.T) {
	_, err := LoadConfig(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region is required")
}

func TestLoadConfig_SetsRegion(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadConfig(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
}
