package cli

import (
	"fmt"

	"resumelens/internal/common"
	"resumelens/internal/config"
	"resumelens/internal/extractor"
	"resumelens/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for resume analysis",
	Long: `Start an HTTP server that provides REST API endpoints for resume analysis.

Available endpoints:
- POST /analyze: Analyze a resume, returns the JSON result
- POST /report: Analyze a resume, returns the text report
- POST /wordcloud: Render the word cloud of a resume as PNG
- GET /skills: The active skill taxonomy
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

Resumes are uploaded as multipart/form-data (field "resume", optional
"jobDescription"). With analysis.remote.enabled, a JSON body
{"resumeUrl": ..., "jobDescription": ...} is accepted as well.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}

	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return err
		}
		*o.target = value
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}

	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	analyzer, err := common.BuildAnalyzer(cfg.Analysis, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare analyzer: %w", err)
	}

	serverCfg := server.ServerConfigFromConfig(cfg, Version)
	serverCfg.Analyzer = analyzer
	serverCfg.Registry = reportRegistry(cfg)
	if cfg.Analysis.Remote.Enabled {
		serverCfg.Fetcher = extractor.NewRemoteFetcher(cfg.Analysis.Remote, logger)
	}

	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}
