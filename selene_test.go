package selene

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowSpeedChase/selene-sub000/backend"
	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/observer"
)

func testRegistry() []core.BackendConfig {
	return []core.BackendConfig{
		{Name: "local", Tasks: []string{"summarize", "extract_tasks"}, Priority: 1},
		{Name: "remote", Tasks: []string{"summarize"}, Priority: 2},
	}
}

func TestEngine_Process(t *testing.T) {
	mock := backend.NewMock()
	mock.AddResponse("summarize", "local", "the summary")
	engine := New(testRegistry(), mock)
	defer engine.Close()

	res, err := engine.Process(context.Background(), "summarize", "raw notes")
	require.NoError(t, err)

	assert.Equal(t, core.ChainSucceeded, res.OverallStatus)
	sum, ok := res.Result("summarize")
	require.True(t, ok)
	assert.Equal(t, "the summary", sum.Output)
}

func TestEngine_RunChain(t *testing.T) {
	mock := backend.NewMock()
	mock.AddResponse("summarize", "local", "the summary")
	mock.AddResponse("extract_tasks", "local", "- buy milk")
	engine := New(testRegistry(), mock)
	defer engine.Close()

	res, err := engine.RunChain(context.Background(), core.Chain{
		Seed: "raw notes",
		Steps: []core.ChainStep{
			{ID: "sum", Task: "summarize"},
			{ID: "ext", Task: "extract_tasks"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, core.ChainSucceeded, res.OverallStatus)
	assert.Equal(t, map[string]string{"sum": "the summary", "ext": "- buy milk"}, res.Outputs())
}

func TestEngine_RunChain_InvalidDefinition(t *testing.T) {
	engine := New(testRegistry(), backend.NewMock())
	defer engine.Close()

	res, err := engine.RunChain(context.Background(), core.Chain{Seed: "x"})
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestEngine_Compare(t *testing.T) {
	mock := backend.NewMock()
	mock.AddResponse("summarize", "local", "local out")
	mock.AddResponse("summarize", "remote", "remote out")
	engine := New(testRegistry(), mock)
	defer engine.Close()

	results := engine.Compare(context.Background(), "summarize", "raw notes", []string{"local", "remote"})
	require.Len(t, results, 2)
	assert.Equal(t, "local out", results["local"].Output)
	assert.Equal(t, "remote out", results["remote"].Output)
}

func TestEngine_Router(t *testing.T) {
	engine := New(testRegistry(), backend.NewMock())
	defer engine.Close()

	cfg, err := engine.Router().Resolve("summarize")
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Name)
}

func TestEngine_ObserverReceivesEvents(t *testing.T) {
	mock := backend.NewMock()
	stats := observer.NewStats()
	engine := New(testRegistry(), mock, WithObserver(stats))

	_, err := engine.Process(context.Background(), "summarize", "raw notes")
	require.NoError(t, err)
	engine.Close()

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Chains.Completed)
	assert.Equal(t, 1, snap.Steps["summarize"].Succeeded)
}
