package cli

import (
	"fmt"
	"io"

	"resumelens/internal/common"
	"resumelens/internal/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume.pdf]",
	Short: "Analyze a PDF resume",
	Long: `Analyze a PDF resume and print a report.

The analysis includes:
- Email address and phone number
- Skills found in the skill taxonomy, grouped by category
- The most frequent keywords
- Keyword overlap with a job description (--job or --job-text)
- A word cloud image (--wordcloud)`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if err := common.ValidateJobInput(analyzeJobFile, analyzeConfig.JobDescription); err != nil {
			return err
		}
		if cmd.Flags().Changed("top") && analyzeTopN <= 0 {
			return fmt.Errorf("--top must be positive, got %d", analyzeTopN)
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig  common.CommandConfig
	analyzeJobFile string
	analyzeTopN    int
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().StringVar(&analyzeConfig.WordCloudFile, "wordcloud", "", "Write the word cloud PNG to this file")
	analyzeCmd.Flags().StringVar(&analyzeJobFile, "job", "", "Job description file to match against")
	analyzeCmd.Flags().StringVar(&analyzeConfig.JobDescription, "job-text", "", "Job description text to match against")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 0, "Number of words in the frequency table (default from config)")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}

	analysisCfg := cfg.Analysis
	if analyzeTopN > 0 {
		analysisCfg.TopN = analyzeTopN
	}

	analyzer, err := common.BuildAnalyzer(analysisCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare analyzer: %w", err)
	}

	fileProcessor := common.NewFileProcessor(logger, cfg.App.MaxFileSize)

	cmdConfig := analyzeConfig
	cmdConfig.JobDescription, err = readJobDescription(fileProcessor, analyzeJobFile, analyzeConfig.JobDescription)
	if err != nil {
		return err
	}

	ctx, cancel := analysisContext(cmd.Context(), analysisCfg.Timeout)
	defer cancel()

	handler := common.NewOutputHandler(logger, reportRegistry(cfg))
	handler.SetStdout(cmd.OutOrStdout())

	result, err := common.RunAnalyzeCommand(ctx, logger, analyzer, handler, fileProcessor, cmdConfig, args[0])
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	printMatchSummary(cmd.ErrOrStderr(), result.JobMatch)

	logger.Info("Resume analysis completed successfully",
		"file", args[0],
		"skills", result.SkillCount(),
		"extraction_failed", result.ExtractionFailed)
	return nil
}

// printMatchSummary writes a one-line job match summary with the rating in
// its color. Nothing is written without a job match.
func printMatchSummary(w io.Writer, match *types.JobMatch) {
	if match == nil {
		return
	}

	ratingColor := color.New(color.FgRed, color.Bold)
	switch match.Rating {
	case types.RatingStrong:
		ratingColor = color.New(color.FgGreen, color.Bold)
	case types.RatingModerate:
		ratingColor = color.New(color.FgYellow, color.Bold)
	}

	fmt.Fprintf(w, "Job match: %.1f%% (%s), %d matching, %d missing keywords\n",
		match.Percentage,
		ratingColor.Sprint(match.Rating),
		len(match.Matching),
		len(match.Missing))
}
