package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/testutil"
	"resumelens/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Analysis.Tokenizer = "whitespace"
	return cfg
}

// resetFlags restores every flag to its default so commands can run again
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute(context.Background(), cfg, errors.NewNopLogger())
	return stdout.String(), stderr.String(), err
}

func writeResume(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, testutil.MinimalPDF(text), 0600))
	return path
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, testConfig(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "resumelens version dev\n")
}

func TestSkillsCommand(t *testing.T) {
	stdout, _, err := runCLI(t, testConfig(), "skills")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "=== SKILL TAXONOMY ==="))
	assert.Contains(t, stdout, "Programming (")

	stdout, _, err = runCLI(t, testConfig(), "skills", "--format", "json")
	require.NoError(t, err)
	var listing types.TaxonomyListing
	require.NoError(t, json.Unmarshal([]byte(stdout), &listing))
	assert.NotEmpty(t, listing.Categories)
}

func TestSkillsCommandWithTaxonomyFile(t *testing.T) {
	dir := t.TempDir()
	taxonomy := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(taxonomy, []byte("cloud:\n  - aws\n"), 0600))

	cfg := testConfig()
	cfg.Analysis.TaxonomyFile = taxonomy

	stdout, _, err := runCLI(t, cfg, "skills", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "## Cloud\n")
	assert.NotContains(t, stdout, "Programming")
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "jane.pdf", "Jane jane@example.com Python and Docker engineer")

	stdout, stderr, err := runCLI(t, testConfig(), "analyze", resume, "--job-text", "python")
	require.NoError(t, err)

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "jane@example.com", result.Email)
	require.NotNil(t, result.JobMatch)
	assert.Equal(t, 100.0, result.JobMatch.Percentage)
	assert.Contains(t, stderr, "Job match: 100.0% (strong)")
}

func TestAnalyzeCommandWritesFiles(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "jane.pdf", "Jane jane@example.com Python and Docker engineer")
	job := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(job, []byte("Kubernetes and Python"), 0600))

	report := filepath.Join(dir, "out", "report.txt")
	cloud := filepath.Join(dir, "out", "cloud.png")

	stdout, _, err := runCLI(t, testConfig(), "analyze", resume,
		"--format", "text", "-o", report, "--wordcloud", cloud, "--job", job, "--top", "5")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(content), "- Email: jane@example.com\n")
	assert.Contains(t, string(content), "Job Match: 50.0%\n")

	png, err := os.ReadFile(cloud)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestAnalyzeCommandRejectsInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	resume := writeResume(t, dir, "jane.pdf", "Python")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "both job inputs", args: []string{"--job", "job.txt", "--job-text", "python"}, wantErr: "mutually exclusive"},
		{name: "unsupported format", args: []string{"--format", "yaml"}, wantErr: "unsupported output format"},
		{name: "non-positive top", args: []string{"--top", "0"}, wantErr: "--top must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"analyze", resume}, tt.args...)
			_, _, err := runCLI(t, testConfig(), args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnalyzeCommandMissingFile(t *testing.T) {
	_, _, err := runCLI(t, testConfig(), "analyze", filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to analyze resume")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	first := writeResume(t, dir, "first.pdf", "first@example.com Python")
	second := writeResume(t, dir, "second.pdf", "second@example.com Java")
	outDir := filepath.Join(dir, "reports")

	stdout, _, err := runCLI(t, testConfig(), "batch", first, second,
		"--out-dir", outDir, "--format", "markdown", "--job-text", "python")
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(outDir, "first.report.md"))
	assert.Contains(t, stdout, filepath.Join(outDir, "second.report.md"))

	content, err := os.ReadFile(filepath.Join(outDir, "first.report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "first@example.com")

	content, err = os.ReadFile(filepath.Join(outDir, "second.report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "second@example.com")
}

func TestBatchCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeResume(t, dir, "good.pdf", "Python")
	missing := filepath.Join(dir, "missing.pdf")
	outDir := filepath.Join(dir, "reports")

	_, stderr, err := runCLI(t, testConfig(), "batch", good, missing, "--out-dir", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 resumes failed")
	assert.Contains(t, stderr, "FAILED "+missing)

	_, err = os.Stat(filepath.Join(outDir, "good.report.json"))
	assert.NoError(t, err)
}

func TestBatchCommandRequiresOutDir(t *testing.T) {
	_, _, err := runCLI(t, testConfig(), "batch", "resume.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out-dir is required")
}

func TestApplyServeFlags(t *testing.T) {
	resetFlags(serveCmd)
	t.Cleanup(func() { resetFlags(serveCmd) })

	cfg := testConfig()
	require.NoError(t, serveCmd.Flags().Set("port", "9999"))
	require.NoError(t, serveCmd.Flags().Set("tls-mode", config.TLSModeServer))

	require.NoError(t, applyServeFlags(serveCmd, cfg))
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, config.TLSModeServer, cfg.Server.TLS.Mode)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestServeRejectsInvalidTLS(t *testing.T) {
	_, _, err := runCLI(t, testConfig(), "serve", "--tls-mode", "server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid TLS configuration")
}

func TestPrintMatchSummary(t *testing.T) {
	var buf bytes.Buffer
	printMatchSummary(&buf, nil)
	assert.Empty(t, buf.String())

	printMatchSummary(&buf, &types.JobMatch{
		Percentage: 40,
		Matching:   []string{"python"},
		Missing:    []string{"go", "kubernetes"},
		Rating:     types.RatingWeak,
	})
	assert.Contains(t, buf.String(), "Job match: 40.0% (")
	assert.Contains(t, buf.String(), "1 matching, 2 missing keywords")
}

func TestContextHelpers(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	_, err = getLoggerFromContext(context.Background())
	assert.Error(t, err)

	ctx := context.WithValue(context.Background(), configKey, testConfig())
	cfg, err := getConfigFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}
