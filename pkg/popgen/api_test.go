package popgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"popgen/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "artifacts"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func sexedRequest() RunRequest {
	capacity := 120
	return RunRequest{
		Population: Population{
			Alleles:           []string{"A", "a"},
			AlleleFrequencies: []float64{0.6, 0.4},
			Size:              100,
			Sexed:             true,
			Fitness:           map[string]float64{"aa": 0.8},
		},
		Generations:      6,
		Seed:             42,
		GrowthRate:       1.1,
		CarryingCapacity: &capacity,
		MaxDrift:         0.05,
	}
}

func TestClientRunRunsAndExport(t *testing.T) {
	ctx := context.Background()
	client, base := newTestClient(t)

	summary, err := client.Run(ctx, sexedRequest())
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
	assert.Len(t, summary.Sizes, 7)
	assert.Equal(t, 100, summary.InitialSize)
	assert.Equal(t, summary.Sizes[6], summary.FinalSize)
	assert.False(t, summary.Extinct)
	for _, n := range summary.Sizes {
		assert.LessOrEqual(t, n, 120)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.True(t, runs[0].Sexed)
	assert.Equal(t, []string{"A", "a"}, runs[0].Alleles)

	exported, err := client.Export(ctx, ExportRequest{RunRef: RunRef{Latest: true}})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	assert.Equal(t, filepath.Join(base, "exports", summary.RunID), exported.Directory)
	_, err = os.Stat(filepath.Join(exported.Directory, "history.json"))
	require.NoError(t, err)
}

func TestClientRunIsReproducible(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	first, err := client.Run(ctx, sexedRequest())
	require.NoError(t, err)
	second, err := client.Run(ctx, sexedRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Sizes, second.Sizes)

	_, a, err := client.History(ctx, RunRef{RunID: first.RunID})
	require.NoError(t, err)
	_, b, err := client.History(ctx, RunRef{RunID: second.RunID})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClientStatsAndPlot(t *testing.T) {
	ctx := context.Background()
	client, base := newTestClient(t)

	summary, err := client.Run(ctx, sexedRequest())
	require.NoError(t, err)

	result, err := client.Stats(ctx, StatsRequest{RunRef: RunRef{RunID: summary.RunID}, Stat: stats.StatAlleleFrequencies})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, result.RunID)
	assert.Equal(t, 7, result.Series.Generations())
	assert.InDelta(t, 0.6, result.Series.Values["A"][0], 1e-9)
	require.Len(t, result.Summaries, 2)

	out := filepath.Join(base, "freqs.png")
	path, err := client.Plot(ctx, PlotRequest{RunRef: RunRef{Latest: true}, Stat: stats.StatPopulationSizes, Out: out})
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = client.Stats(ctx, StatsRequest{RunRef: RunRef{Latest: true}, Stat: "heterozygosity"})
	assert.Error(t, err)
}

func TestClientHistoryFallsBackToArtifacts(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	opts := Options{StoreKind: "memory", ArtifactsDir: filepath.Join(base, "artifacts")}

	writer, err := New(opts)
	require.NoError(t, err)
	summary, err := writer.Run(ctx, sexedRequest())
	require.NoError(t, err)

	reader, err := New(opts)
	require.NoError(t, err)
	runID, history, err := reader.History(ctx, RunRef{RunID: summary.RunID})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, runID)
	assert.Len(t, history, 7)

	_, _, err = reader.History(ctx, RunRef{RunID: "missing"})
	assert.Error(t, err)
}

func TestClientRunsAndLatestSurviveNewClient(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	opts := Options{StoreKind: "memory", ArtifactsDir: filepath.Join(base, "artifacts"), ExportsDir: filepath.Join(base, "exports")}

	writer, err := New(opts)
	require.NoError(t, err)
	first, err := writer.Run(ctx, sexedRequest())
	require.NoError(t, err)
	second, err := writer.Run(ctx, sexedRequest())
	require.NoError(t, err)

	reader, err := New(opts)
	require.NoError(t, err)
	runs, err := reader.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
	assert.Equal(t, []string{"A", "a"}, runs[0].Alleles)

	limited, err := reader.Runs(ctx, RunsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.RunID, limited[0].RunID)

	result, err := reader.Stats(ctx, StatsRequest{RunRef: RunRef{Latest: true}, Stat: stats.StatPopulationSizes})
	require.NoError(t, err)
	assert.Equal(t, second.RunID, result.RunID)

	exported, err := reader.Export(ctx, ExportRequest{RunRef: RunRef{Latest: true}})
	require.NoError(t, err)
	assert.Equal(t, second.RunID, exported.RunID)

	// A run made by the reader is listed alongside the indexed ones once.
	third, err := reader.Run(ctx, sexedRequest())
	require.NoError(t, err)
	runs, err = reader.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, third.RunID, runs[0].RunID)
}

func TestClientBottleneckAndExtinction(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	req := sexedRequest()
	req.CarryingCapacity = nil
	req.GrowthRate = 0
	req.Bottleneck = &Bottleneck{Generation: 2, Size: 10}
	summary, err := client.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 100, 10, 10, 10, 10}, summary.Sizes)

	req = sexedRequest()
	req.GrowthRate = -1
	summary, err = client.Run(ctx, req)
	require.NoError(t, err)
	assert.True(t, summary.Extinct)
	assert.Equal(t, 0, summary.FinalSize)
}

func TestClientRequestValidation(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	req := sexedRequest()
	req.Generations = -1
	_, err := client.Run(ctx, req)
	assert.Error(t, err)

	req = sexedRequest()
	req.MaxDrift = 1.5
	_, err = client.Run(ctx, req)
	assert.Error(t, err)

	req = sexedRequest()
	req.Population.Alleles = nil
	_, err = client.Run(ctx, req)
	assert.Error(t, err)

	_, err = client.Export(ctx, ExportRequest{RunRef: RunRef{RunID: "x", Latest: true}})
	assert.Error(t, err)
	_, err = client.Export(ctx, ExportRequest{})
	assert.Error(t, err)
	_, err = client.Stats(ctx, StatsRequest{RunRef: RunRef{Latest: true}, Stat: stats.StatGenotypeCounts})
	assert.Error(t, err, "no runs stored yet")
	_, err = client.Plot(ctx, PlotRequest{RunRef: RunRef{Latest: true}, Stat: stats.StatGenotypeCounts})
	assert.Error(t, err)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{StoreKind: "postgres"})
	assert.Error(t, err)
}
