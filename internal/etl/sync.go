package etl

import (
	"context"
	"fmt"
	"time"

	"wageflow/internal/logger"
)

// ── Pipeline run ───────────────────────────────────────────
// Orchestrates: source.Read → transform chain → destination.Write
// for both datasets, then join → write → export.
//
// Every stage fully consumes the previous one; the first error ends the run.

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusRunning = "running"
)

// PipelineResult is the outcome of running a pipeline.
type PipelineResult struct {
	RunID         string        `json:"runId"`
	Pipeline      string        `json:"pipeline"`
	Status        string        `json:"status"` // "success" | "error"
	Stage         string        `json:"stage,omitempty"`
	WageRows      int           `json:"wageRows"`
	InflationRows int           `json:"inflationRows"`
	MergedRows    int           `json:"mergedRows"`
	OutputPath    string        `json:"outputPath"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

// RunLog is a historical record of a pipeline run.
type RunLog struct {
	ID            string    `json:"id"`
	Pipeline      string    `json:"pipeline"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Status        string    `json:"status"`
	WageRows      int       `json:"wageRows"`
	InflationRows int       `json:"inflationRows"`
	MergedRows    int       `json:"mergedRows"`
	OutputPath    string    `json:"outputPath"`
	Error         string    `json:"error,omitempty"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs pipelines against an explicitly provided store.
type Engine struct {
	Store    Store
	Exporter Exporter
}

// RunPipeline executes a pipeline end-to-end.
func (e *Engine) RunPipeline(ctx context.Context, p *Pipeline) (*PipelineResult, error) {
	log := logger.FromContext(ctx).With("pipeline", p.Name)
	start := time.Now()
	result := &PipelineResult{Pipeline: p.Name, OutputPath: p.Output.Path}

	fail := func(stage string, err error) (*PipelineResult, error) {
		result.Status = StatusError
		result.Stage = stage
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	// 1. Load + normalize both sources.
	wage, err := e.LoadDataset(ctx, p.Wage)
	if err != nil {
		return fail("load "+p.Wage.Name, err)
	}
	result.WageRows = len(wage.Records)

	inflation, err := e.LoadDataset(ctx, p.Inflation)
	if err != nil {
		return fail("load "+p.Inflation.Name, err)
	}
	result.InflationRows = len(inflation.Records)

	// 2. Persist each table, replacing previous runs.
	for _, t := range []*Table{wage, inflation} {
		n, err := e.Store.Write(ctx, t.Name, t.Schema, t.Records, SyncReplace)
		if err != nil {
			return fail("store "+t.Name, err)
		}
		log.Info("table replaced", "table", t.Name, "rows", n)
	}

	// 3. Join on the shared date key.
	spec := JoinSpec{
		Left:         p.Wage.Table,
		Right:        p.Inflation.Table,
		Key:          p.Join.Key,
		RightColumns: p.Join.RightColumns,
		KeyType:      FieldDate,
	}
	schema, merged, err := e.Store.InnerJoin(ctx, spec)
	if err != nil {
		return fail("join", err)
	}
	result.MergedRows = len(merged)

	if _, err := e.Store.Write(ctx, p.MergedTable, schema, merged, SyncReplace); err != nil {
		return fail("store "+p.MergedTable, err)
	}
	log.Info("tables joined", "table", p.MergedTable, "rows", len(merged))

	// 4. Export.
	if _, err := e.Exporter.Export(ctx, p.Output, schema, merged); err != nil {
		return fail("export", err)
	}
	log.Info("merged rows exported", "path", p.Output.Path, "rows", len(merged))

	result.Status = StatusSuccess
	result.Duration = time.Since(start)
	return result, nil
}

// LoadDataset reads one source and runs it through its transformer chain.
func (e *Engine) LoadDataset(ctx context.Context, ds DatasetConfig) (*Table, error) {
	log := logger.FromContext(ctx).With("source", ds.Name)

	source, err := GetSource(ds.SourceType)
	if err != nil {
		return nil, err
	}
	transformers, err := BuildTransformers(ds.Transforms)
	if err != nil {
		return nil, err
	}

	schema, raw, err := source.Read(ctx, ds.SourceCfg)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := schema.Require(ds.RequiredColumns...); err != nil {
		return nil, err
	}
	outSchema, err := TransformSchema(schema, transformers)
	if err != nil {
		return nil, fmt.Errorf("transform schema: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for i, rec := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		transformed, keep, err := ApplyTransformers(rec, transformers)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if keep {
			records = append(records, transformed)
		}
	}
	records = ApplyBatchSort(records, transformers)

	log.Info("source loaded", "rows_read", len(raw), "rows", len(records))
	return &Table{Name: ds.Table, Schema: outSchema, Records: records}, nil
}

// Discover returns the raw header schema of a dataset's source, checked
// against its required columns. No rows are transformed.
func (e *Engine) Discover(ctx context.Context, ds DatasetConfig) (*Schema, error) {
	source, err := GetSource(ds.SourceType)
	if err != nil {
		return nil, err
	}
	schema, err := source.Discover(ctx, ds.SourceCfg)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if err := schema.Require(ds.RequiredColumns...); err != nil {
		return nil, err
	}
	return schema, nil
}

// Preview loads and normalizes a dataset without persisting anything and
// returns at most maxRows records.
func (e *Engine) Preview(ctx context.Context, ds DatasetConfig, maxRows int) (*Table, error) {
	t, err := e.LoadDataset(ctx, ds)
	if err != nil {
		return nil, err
	}
	if maxRows > 0 && len(t.Records) > maxRows {
		t.Records = t.Records[:maxRows]
	}
	return t, nil
}
