package common

import (
	"context"
	"fmt"
	"time"

	"resumelens/internal/analysis"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"
)

// BuildAnalyzer assembles an Analyzer from the analysis configuration:
// taxonomy file, stopword list, tokenizer mode, frequency size and word
// cloud settings.
func BuildAnalyzer(cfg config.AnalysisConfig, logger *errors.Logger) (*analysis.Analyzer, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	taxonomy := analysis.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		loaded, err := analysis.LoadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load taxonomy: %w", err)
		}
		taxonomy = loaded
	}

	resources := analysis.ProbeResources(analysis.ResourceOptions{
		StopwordsFile: cfg.StopwordsFile,
		Tokenizer:     cfg.Tokenizer,
	}, logger)

	visualizer, err := analysis.NewVisualizer(analysis.VisualizerOptions{
		Width:       cfg.WordCloud.Width,
		Height:      cfg.WordCloud.Height,
		MaxWords:    cfg.WordCloud.MaxWords,
		FontFile:    cfg.WordCloud.FontFile,
		FontMaxSize: cfg.WordCloud.FontMaxSize,
		FontMinSize: cfg.WordCloud.FontMinSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create word cloud renderer: %w", err)
	}

	opts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithTaxonomy(taxonomy),
		analysis.WithResources(resources),
		analysis.WithTopN(cfg.TopN),
		analysis.WithVisualizer(visualizer),
	}
	if !cfg.WordCloud.Enabled {
		opts = append(opts, analysis.WithoutWordCloud())
	}

	analyzer, err := analysis.New(opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("Analyzer ready",
		"categories", taxonomy.Len(),
		"stopword_source", resources.StopwordSource,
		"tokenizer", resources.Tokenizer.Name(),
		"degraded", resources.Degraded,
		"top_n", analyzer.TopN())
	return analyzer, nil
}

// AnalyzeWithContext runs an analysis and gives up waiting when ctx is done.
// The abandoned analysis finishes in the background and its result is dropped.
func AnalyzeWithContext(ctx context.Context, analyzer *analysis.Analyzer, doc []byte, jobDescription string, opts ...analysis.AnalyzeOption) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			"analysis did not complete in time", err)
	}

	done := make(chan *types.AnalysisResult, 1)
	go func() {
		done <- analyzer.Analyze(doc, jobDescription, opts...)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			"analysis did not complete in time", ctx.Err())
	}
}

// RunAnalyzeCommand reads a resume, analyzes it, and writes the report and
// optional word cloud.
func RunAnalyzeCommand(
	ctx context.Context,
	logger *errors.Logger,
	analyzer *analysis.Analyzer,
	handler *OutputHandler,
	fileProcessor *FileProcessor,
	cmdConfig CommandConfig,
	resumePath string,
) (*types.AnalysisResult, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	doc, err := fileProcessor.ReadDocument(resumePath)
	if err != nil {
		return nil, err
	}

	opts := []analysis.AnalyzeOption{analysis.SkipWordCloud()}
	if cmdConfig.WordCloudFile != "" {
		opts = []analysis.AnalyzeOption{analysis.IncludeWordCloud()}
	}

	logger.Info("Analyzing resume",
		"file", resumePath,
		"bytes", len(doc),
		"job_description", analysis.HasJobDescription(cmdConfig.JobDescription))

	start := time.Now()
	result, err := AnalyzeWithContext(ctx, analyzer, doc, cmdConfig.JobDescription, opts...)
	if err != nil {
		return nil, err
	}
	if result.ExtractionFailed {
		logger.Warn("Resume text could not be extracted", "file", resumePath)
	}

	logger.Debug("Analysis finished",
		"file", resumePath,
		"duration_ms", time.Since(start).Milliseconds(),
		"skills", result.SkillCount())

	if err := handler.WriteWordCloud(result, cmdConfig); err != nil {
		return nil, err
	}
	if err := handler.HandleOutput(result, cmdConfig); err != nil {
		return nil, err
	}
	return result, nil
}
