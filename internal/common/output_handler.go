package common

import (
	"fmt"
	"io"
	"os"

	"resumelens/internal/errors"
	"resumelens/internal/formatters"
	"resumelens/internal/types"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile     string
	OutputFormat   string
	WordCloudFile  string
	JobDescription string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler. A nil registry selects
// formatters.GlobalRegistry.
func NewOutputHandler(logger *errors.Logger, registry *formatters.FormatterRegistry) *OutputHandler {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if registry == nil {
		registry = formatters.GlobalRegistry
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      registry,
		logger:        logger,
		stdout:        os.Stdout,
	}
}

// SetStdout redirects output that has no target file
func (oh *OutputHandler) SetStdout(w io.Writer) {
	oh.stdout = w
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile != "" {
		if err := oh.fileProcessor.WriteFile(config.OutputFile, []byte(output)); err != nil {
			return err
		}

		oh.logger.Info("Output written successfully",
			"file", config.OutputFile, "format", config.OutputFormat)
		return nil
	}

	if _, err := fmt.Fprint(oh.stdout, output); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write output", err)
	}
	return nil
}

// WriteWordCloud saves the result's word cloud PNG when a target file is set
func (oh *OutputHandler) WriteWordCloud(result *types.AnalysisResult, config CommandConfig) error {
	if config.WordCloudFile == "" {
		return nil
	}
	if len(result.WordCloud) == 0 {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest, "word cloud was not rendered", nil)
	}

	if err := oh.fileProcessor.ValidateOutputFile(config.WordCloudFile); err != nil {
		return err
	}
	if err := oh.fileProcessor.WriteFile(config.WordCloudFile, result.WordCloud); err != nil {
		return err
	}

	oh.logger.Info("Word cloud written successfully",
		"file", config.WordCloudFile, "bytes", len(result.WordCloud))
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
