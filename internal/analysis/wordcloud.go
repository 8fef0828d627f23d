package analysis

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"
	"sync"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Word cloud defaults
const (
	DefaultCloudWidth    = 800
	DefaultCloudHeight   = 400
	DefaultCloudMaxWords = 100
	DefaultFontMaxSize   = 72
	DefaultFontMinSize   = 10
)

// cloudPalette is a viridis-like ramp from dark purple to yellow
var cloudPalette = []color.Color{
	color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
	color.RGBA{R: 0x41, G: 0x44, B: 0x87, A: 0xff},
	color.RGBA{R: 0x2a, G: 0x78, B: 0x8e, A: 0xff},
	color.RGBA{R: 0x22, G: 0xa8, B: 0x84, A: 0xff},
	color.RGBA{R: 0x7a, G: 0xd1, B: 0x51, A: 0xff},
	color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
}

// renderMu serializes all renders. Font faces keep a glyph cache that is not
// safe for concurrent use.
var renderMu sync.Mutex

// VisualizerOptions configures word cloud rendering
type VisualizerOptions struct {
	Width       int
	Height      int
	MaxWords    int
	FontFile    string
	FontMaxSize float64
	FontMinSize float64
}

// DefaultVisualizerOptions returns the fixed 800x400, 100-word configuration
func DefaultVisualizerOptions() VisualizerOptions {
	return VisualizerOptions{
		Width:       DefaultCloudWidth,
		Height:      DefaultCloudHeight,
		MaxWords:    DefaultCloudMaxWords,
		FontMaxSize: DefaultFontMaxSize,
		FontMinSize: DefaultFontMinSize,
	}
}

// Visualizer renders frequency-weighted word clouds as PNG images
type Visualizer struct {
	opts   VisualizerOptions
	font   *truetype.Font
	logger *errors.Logger
}

// NewVisualizer parses the configured font, or the bundled Go Regular face
// when no font file is set.
func NewVisualizer(opts VisualizerOptions, logger *errors.Logger) (*Visualizer, error) {
	defaults := DefaultVisualizerOptions()
	if opts.Width <= 0 {
		opts.Width = defaults.Width
	}
	if opts.Height <= 0 {
		opts.Height = defaults.Height
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = defaults.MaxWords
	}
	if opts.FontMaxSize <= 0 {
		opts.FontMaxSize = defaults.FontMaxSize
	}
	if opts.FontMinSize <= 0 {
		opts.FontMinSize = defaults.FontMinSize
	}
	if opts.FontMinSize > opts.FontMaxSize {
		opts.FontMinSize = opts.FontMaxSize
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	fontData := goregular.TTF
	if opts.FontFile != "" {
		data, err := os.ReadFile(opts.FontFile)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("cannot read font file: %s", opts.FontFile), err)
		}
		fontData = data
	}

	parsed, err := truetype.Parse(fontData)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid font file", err)
	}

	return &Visualizer{opts: opts, font: parsed, logger: logger}, nil
}

// Options returns the effective rendering options
func (v *Visualizer) Options() VisualizerOptions {
	return v.opts
}

// Render builds the cloud for text. Empty input and render failures both
// produce a blank canvas; Render never fails.
func (v *Visualizer) Render(text string, res Resources) []byte {
	tokens := res.Tokenizer.Tokenize(Normalize(text))
	return v.renderTokens(tokens, res.Stopwords)
}

func (v *Visualizer) renderTokens(tokens []string, stopwords StopwordSet) []byte {
	words := rankWords(keywordTokens(tokens, stopwords), v.opts.MaxWords)

	renderMu.Lock()
	defer renderMu.Unlock()

	if len(words) == 0 {
		return v.blank()
	}

	img, err := v.draw(words)
	if err != nil {
		v.logger.Warn("Word cloud render failed, returning blank canvas",
			"error", err.Error(),
			"words", len(words))
		return v.blank()
	}
	return img
}

// keywordTokens drops stopwords and short tokens but keeps digits and mixed
// tokens.
func keywordTokens(tokens []string, stopwords StopwordSet) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) < minTokenLength || stopwords.Contains(token) {
			continue
		}
		out = append(out, token)
	}
	return out
}

type placedBox struct {
	x0, y0, x1, y1 float64
}

func (b placedBox) overlaps(o placedBox) bool {
	return b.x0 < o.x1 && o.x0 < b.x1 && b.y0 < o.y1 && o.y0 < b.y1
}

func (v *Visualizer) draw(words []types.WordCount) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("word cloud renderer panicked: %v", r)
		}
	}()

	width, height := float64(v.opts.Width), float64(v.opts.Height)
	dc := gg.NewContext(v.opts.Width, v.opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	maxCount, minCount := words[0].Count, words[len(words)-1].Count

	var placed []placedBox
	for i, word := range words {
		size := v.fontSize(word.Count, minCount, maxCount)
		dc.SetFontFace(truetype.NewFace(v.font, &truetype.Options{Size: size}))
		w, h := dc.MeasureString(word.Word)
		if w > width || h > height {
			continue
		}

		box, ok := findSpot(placed, w, h, width, height)
		if !ok {
			continue
		}
		placed = append(placed, box)

		dc.SetColor(cloudPalette[i%len(cloudPalette)])
		dc.DrawStringAnchored(word.Word, (box.x0+box.x1)/2, (box.y0+box.y1)/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode word cloud: %w", err)
	}
	return buf.Bytes(), nil
}

// fontSize scales linearly between the configured minimum and maximum sizes
func (v *Visualizer) fontSize(count, minCount, maxCount int) float64 {
	if maxCount == minCount {
		return v.opts.FontMaxSize
	}
	ratio := float64(count-minCount) / float64(maxCount-minCount)
	return v.opts.FontMinSize + ratio*(v.opts.FontMaxSize-v.opts.FontMinSize)
}

// findSpot walks an Archimedean spiral out from the canvas center until the
// box fits without overlapping earlier words.
func findSpot(placed []placedBox, w, h, width, height float64) (placedBox, bool) {
	cx, cy := width/2, height/2
	maxRadius := math.Hypot(width, height) / 2
	aspect := width / height

	for t := 0.0; ; t += 0.1 {
		r := 2 * t
		if r > maxRadius {
			return placedBox{}, false
		}
		x := cx + aspect*r*math.Cos(t)/2 - w/2
		y := cy + r*math.Sin(t)/2 - h/2
		box := placedBox{x0: x, y0: y, x1: x + w, y1: y + h}
		if box.x0 < 0 || box.y0 < 0 || box.x1 > width || box.y1 > height {
			continue
		}

		free := true
		for _, other := range placed {
			if box.overlaps(other) {
				free = false
				break
			}
		}
		if free {
			return box, true
		}
	}
}

// blank renders an empty white canvas
func (v *Visualizer) blank() []byte {
	dc := gg.NewContext(v.opts.Width, v.opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		v.logger.Warn("Failed to encode blank canvas", "error", err.Error())
		return nil
	}
	return buf.Bytes()
}
