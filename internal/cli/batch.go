package cli

import (
	"fmt"
	"sync"

	"resumelens/internal/common"
	"resumelens/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var batchCmd = &cobra.Command{
	Use:   "batch [resume.pdf...]",
	Short: "Analyze several PDF resumes into one report each",
	Long: `Analyze several PDF resumes in parallel and write one report per resume
into --out-dir. A resume named jane.pdf produces jane.report.txt (or .json, .md
for the other formats).

Every resume is matched against the same job description when one is given.
Resumes are not ranked against each other. Up to analysis.workers resumes are
processed at a time; a failing resume does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if batchOutDir == "" {
			return fmt.Errorf("--out-dir is required")
		}
		if batchFormat == "" {
			batchFormat = cfg.App.DefaultFormat
		}
		if err := common.ValidateJobInput(batchJobFile, batchJobText); err != nil {
			return err
		}
		return common.ValidateOutputFormat(batchFormat, cfg.App.SupportedFormats)
	},
	RunE: runBatch,
}

var (
	batchOutDir  string
	batchFormat  string
	batchJobFile string
	batchJobText string
)

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Directory receiving one report per resume")
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "Report format: json, text, or markdown")
	batchCmd.Flags().StringVar(&batchJobFile, "job", "", "Job description file to match every resume against")
	batchCmd.Flags().StringVar(&batchJobText, "job-text", "", "Job description text to match every resume against")

	_ = batchCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

// batchFailure records a resume whose report could not be produced
type batchFailure struct {
	resume string
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}

	analyzer, err := common.BuildAnalyzer(cfg.Analysis, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare analyzer: %w", err)
	}

	fileProcessor := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	jobDescription, err := readJobDescription(fileProcessor, batchJobFile, batchJobText)
	if err != nil {
		return err
	}

	handler := common.NewOutputHandler(logger, reportRegistry(cfg))

	var (
		mu       sync.Mutex
		failures []batchFailure
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Analysis.Workers)

	for _, resume := range args {
		resume := resume
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			cmdConfig := common.CommandConfig{
				OutputFile:     utils.ReportFileName(resume, batchOutDir, batchFormat),
				OutputFormat:   batchFormat,
				JobDescription: jobDescription,
			}

			analysisCtx, cancel := analysisContext(ctx, cfg.Analysis.Timeout)
			defer cancel()

			if _, err := common.RunAnalyzeCommand(analysisCtx, logger, analyzer, handler, fileProcessor, cmdConfig, resume); err != nil {
				logger.LogError(err, "Failed to analyze resume", "file", resume)
				mu.Lock()
				failures = append(failures, batchFailure{resume: resume, err: err})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", resume, cmdConfig.OutputFile)
			mu.Unlock()
			return nil
		})
	}

	// Only cancellation is returned from the workers
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch analysis interrupted: %w", err)
	}

	logger.Info("Batch analysis completed",
		"resumes", len(args),
		"failed", len(failures),
		"out_dir", batchOutDir)

	if len(failures) > 0 {
		for _, failure := range failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s: %v\n", failure.resume, failure.err)
		}
		return fmt.Errorf("%d of %d resumes failed", len(failures), len(args))
	}
	return nil
}
