package cli

import (
	"context"
	"fmt"
	"time"

	"resumelens/internal/common"
	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/formatters"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumelens",
	Short: "A CLI tool for analyzing resumes",
	Long: `Resumelens extracts the text of PDF resumes and analyzes it: contact
details, skills from a configurable taxonomy, keyword frequencies, a word
cloud, and the keyword overlap with a job description.

Use "resumelens serve" to expose the same analysis over HTTP.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if ctx == nil {
		return nil, fmt.Errorf("command has no context")
	}
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if ctx == nil {
		return nil, fmt.Errorf("command has no context")
	}
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

// commandDeps returns the config and logger carried by cmd's context
func commandDeps(cmd *cobra.Command) (*config.Config, *errors.Logger, error) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// analysisContext bounds one analysis by the configured timeout
func analysisContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// reportRegistry builds the formatter registry with the configured report limits
func reportRegistry(cfg *config.Config) *formatters.FormatterRegistry {
	return formatters.NewFormatterRegistryWithOptions(formatters.ReportOptions{
		TopKeywords:  cfg.Analysis.ReportKeywords,
		KeywordLimit: cfg.Analysis.KeywordDisplayLimit,
	})
}

// completeFormats offers the configured output formats for --format
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveError
	}
	return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
}

// readJobDescription returns the job description from --job or --job-text
func readJobDescription(fp *common.FileProcessor, jobFile, jobText string) (string, error) {
	if err := common.ValidateJobInput(jobFile, jobText); err != nil {
		return "", err
	}
	if jobFile == "" {
		return jobText, nil
	}
	return fp.ReadText(jobFile)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
