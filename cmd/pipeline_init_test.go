//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/workflow"
)

func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	c, err := config.Load()
	require.NoError(t, err)
	c.Queue.Driver = "memory"
	cfg = c
	return c
}

func TestInitPipeline_ValidatesKeys(t *testing.T) {
	c := useTestConfig(t)
	c.Anthropic.Key = ""

	_, err := initPipeline(context.Background(), config.ModeRun)
	assert.ErrorContains(t, err, "anthropic.key is required")
}

func TestInitPipeline_WiresDependencies(t *testing.T) {
	c := useTestConfig(t)
	c.Anthropic.Key = "sk-test"
	c.Jina.Key = "jina-test"
	c.Perplexity.Key = "pplx-test"
	c.Google.Key = "places-test"

	env, err := initPipeline(context.Background(), config.ModeRun)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Orchestrator)
	assert.NotNil(t, env.Queue)
	assert.NotNil(t, env.Registry)
	assert.ElementsMatch(t,
		[]string{workflow.DepInference, workflow.DepSearch, workflow.DepFetch, workflow.DepResearch, workflow.DepPlaces},
		env.Gates.Names())

	stats, err := env.Orchestrator.GetWorkflowStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.QueueLength)
	for _, a := range stats.Agents {
		assert.Equal(t, "ready", a.Status, a.Name)
	}
}

func TestInitPipeline_QueueModeNeedsNoKeys(t *testing.T) {
	c := useTestConfig(t)
	c.Anthropic.Key = ""
	c.Jina.Key = ""
	c.Perplexity.Key = ""
	c.Google.Key = ""

	env, err := initPipeline(context.Background(), config.ModeQueue)
	require.NoError(t, err)
	defer env.Close()

	assert.NotContains(t, env.Gates.Names(), workflow.DepResearch)
	assert.NotContains(t, env.Gates.Names(), workflow.DepCRM)
}

func TestInitPipeline_BadReliabilityFile(t *testing.T) {
	c := useTestConfig(t)
	c.Anthropic.Key = "sk-test"
	c.Jina.Key = "jina-test"
	c.Verify.ReliabilityFile = t.TempDir() + "/missing.yaml"

	_, err := initPipeline(context.Background(), config.ModeRun)
	assert.Error(t, err)
}
