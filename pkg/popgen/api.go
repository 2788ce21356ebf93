// Package popgen is the client facade over the simulator, the run store
// and the statistics exporters. popgenctl is built on it.
package popgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"popgen/internal/genotype"
	"popgen/internal/logging"
	"popgen/internal/model"
	"popgen/internal/plot"
	"popgen/internal/sampling"
	"popgen/internal/simulation"
	"popgen/internal/stats"
	"popgen/internal/storage"

	"github.com/rs/xid"
)

const (
	defaultArtifactsDir = "popgen_artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "popgen.db"
	defaultRunsLimit    = 20

	// Fixed width so stored timestamps sort lexically.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type (
	Population = genotype.GenerateConfig
	Data       = genotype.Data
	Bottleneck = simulation.Bottleneck
	Series     = stats.Series
	Summary    = stats.Summary
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store       storage.Store
	initialized bool
	logger      *slog.Logger

	artifactsDir string
	exportsDir   string
}

type RunRequest struct {
	Population  Population
	Generations int
	Seed        uint64

	GrowthRate       float64
	CarryingCapacity *int
	MaxDrift         float64
	MutationRate     *float64
	Bottleneck       *Bottleneck
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Sizes        []int
	InitialSize  int
	FinalSize    int
	Extinct      bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Seed         uint64
	Generations  int
	Alleles      []string
	Sexed        bool
	InitialSize  int
	FinalSize    int
	Extinct      bool
}

// RunRef selects a stored run by id or, with Latest, the newest one.
type RunRef struct {
	RunID  string
	Latest bool
}

type StatsRequest struct {
	RunRef
	Stat string
}

type StatsResult struct {
	RunID     string
	Series    Series
	Summaries []Summary
}

type PlotRequest struct {
	RunRef
	Stat string
	// Out is the image path. The format follows its extension.
	Out string
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

// Run generates the initial population, simulates req.Generations
// generations, persists the run and writes its artifacts. The stored
// trajectory holds the data entering every generation followed by the final
// data, so it has Generations+1 entries.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Generations < 0 {
		return RunSummary{}, errors.New("generations must be >= 0")
	}
	if req.Bottleneck != nil && req.Bottleneck.Generation >= req.Generations {
		c.logger.Warn("bottleneck generation is never reached", "generation", req.Bottleneck.Generation, "generations", req.Generations)
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	rng := sampling.NewRand(req.Seed)
	initial, err := genotype.Generate(req.Population, rng)
	if err != nil {
		return RunSummary{}, fmt.Errorf("generate population: %w", err)
	}

	sim := simulation.New(simulation.Config{Rand: rng, Logger: c.logger})
	if err := sim.SetParams(simulation.Params{
		GrowthRate:       req.GrowthRate,
		CarryingCapacity: req.CarryingCapacity,
		MaxDrift:         req.MaxDrift,
		MutationRate:     req.MutationRate,
	}); err != nil {
		return RunSummary{}, err
	}
	if err := sim.SetData(initial); err != nil {
		return RunSummary{}, err
	}
	history, err := sim.Run(req.Generations, req.Bottleneck)
	if err != nil {
		return RunSummary{}, err
	}
	final, _ := sim.Data()
	trajectory := append(history, final)

	now := time.Now().UTC()
	record := storage.Stamp(model.RunRecord{
		ID:               xid.NewWithTime(now).String(),
		CreatedAtUTC:     now.Format(createdAtLayout),
		GrowthRate:       req.GrowthRate,
		CarryingCapacity: req.CarryingCapacity,
		MaxDrift:         req.MaxDrift,
		MutationRate:     req.MutationRate,
		Generations:      req.Generations,
		Seed:             req.Seed,
		Initial:          req.Population,
		InitialSize:      initial.Total(),
		FinalSize:        final.Total(),
		Extinct:          final.Total() == 0,
	})
	if req.Bottleneck != nil {
		generation, size := req.Bottleneck.Generation, req.Bottleneck.Size
		record.BottleneckGeneration = &generation
		record.BottleneckSize = &size
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveHistory(ctx, record.ID, trajectory); err != nil {
		return RunSummary{}, err
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{Record: record, History: trajectory})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, record); err != nil {
		return RunSummary{}, err
	}
	c.logger.Info("run stored", "run_id", record.ID, "generations", req.Generations, "final_size", record.FinalSize)

	sizes := make([]int, len(trajectory))
	for i, data := range trajectory {
		sizes[i] = data.Total()
	}
	return RunSummary{
		RunID:        record.ID,
		ArtifactsDir: filepath.Clean(runDir),
		Sizes:        sizes,
		InitialSize:  record.InitialSize,
		FinalSize:    record.FinalSize,
		Extinct:      record.Extinct,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.listRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunItem{
			RunID:        r.ID,
			CreatedAtUTC: r.CreatedAtUTC,
			Seed:         r.Seed,
			Generations:  r.Generations,
			Alleles:      append([]string(nil), r.Initial.Alleles...),
			Sexed:        r.Initial.Sexed,
			InitialSize:  r.InitialSize,
			FinalSize:    r.FinalSize,
			Extinct:      r.Extinct,
		})
	}
	return out, nil
}

// History returns the stored trajectory of a run. Runs missing from the
// store are read back from their history artifact.
func (c *Client) History(ctx context.Context, ref RunRef) (string, []Data, error) {
	runID, err := c.resolveRunID(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	history, ok, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		history, ok, err = stats.ReadRunHistory(c.artifactsDir, runID)
		if err != nil {
			return "", nil, err
		}
	}
	if !ok {
		return "", nil, fmt.Errorf("history not found for run id: %s", runID)
	}
	return runID, history, nil
}

func (c *Client) Stats(ctx context.Context, req StatsRequest) (StatsResult, error) {
	if req.Stat == "" {
		return StatsResult{}, errors.New("stat name is required")
	}
	runID, history, err := c.History(ctx, req.RunRef)
	if err != nil {
		return StatsResult{}, err
	}
	series, err := stats.Extract(req.Stat, history)
	if err != nil {
		return StatsResult{}, err
	}
	return StatsResult{RunID: runID, Series: series, Summaries: stats.Summarize(series)}, nil
}

// Plot renders one statistic of a run to req.Out and returns the path.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (string, error) {
	if req.Out == "" {
		return "", errors.New("plot output path is required")
	}
	result, err := c.Stats(ctx, StatsRequest{RunRef: req.RunRef, Stat: req.Stat})
	if err != nil {
		return "", err
	}
	title := fmt.Sprintf("%s (%s)", result.Series.Title, result.RunID)
	if err := plot.Render(title, result.Series, result.Series.YLabel, req.Out); err != nil {
		return "", err
	}
	return filepath.Clean(req.Out), nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if ref.RunID == "" && !ref.Latest {
		return "", errors.New("run id or latest is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return "", err
	}
	if ref.Latest {
		runs, err := c.listRuns(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", errors.New("no runs available")
		}
		return runs[0].ID, nil
	}
	return ref.RunID, nil
}

// listRuns merges the store's runs with the artifacts run index, newest
// first. The index keeps runs made by earlier processes visible when the
// store does not persist.
func (c *Client) listRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	indexed, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(runs))
	for _, r := range runs {
		seen[r.ID] = struct{}{}
	}
	for _, r := range indexed {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}
