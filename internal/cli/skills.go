package cli

import (
	"fmt"

	"resumelens/internal/common"

	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List the skill taxonomy",
	Long: `List the skill categories and terms used to detect skills. The built-in
taxonomy is replaced by analysis.taxonomyFile when one is configured.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if skillsConfig.OutputFormat == "" {
			skillsConfig.OutputFormat = "text"
		}
		return common.ValidateOutputFormat(skillsConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runSkills,
}

var skillsConfig common.CommandConfig

func init() {
	skillsCmd.Flags().StringVarP(&skillsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	skillsCmd.Flags().StringVar(&skillsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown (default text)")

	_ = skillsCmd.RegisterFlagCompletionFunc("format", completeFormats)
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}

	analyzer, err := common.BuildAnalyzer(cfg.Analysis, logger)
	if err != nil {
		return fmt.Errorf("failed to load skill taxonomy: %w", err)
	}

	handler := common.NewOutputHandler(logger, reportRegistry(cfg))
	handler.SetStdout(cmd.OutOrStdout())
	return handler.HandleOutput(analyzer.Taxonomy().Listing(), skillsConfig)
}
