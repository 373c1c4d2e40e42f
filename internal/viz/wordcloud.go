// Package viz renders a word-frequency cloud for display next to answers.
package viz

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"regexp"
	"strings"

	"github.com/psykhi/wordclouds"
)

// Renderer draws word clouds from arbitrary UTF-8 text.
type Renderer struct {
	fontFile     string
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewRenderer(fontFile string) *Renderer {
	return &Renderer{
		fontFile:     fontFile,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Frequencies tokenizes the text, drops stopwords and counts occurrences.
func (r *Renderer) Frequencies(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range r.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := r.stopwords[tok]; ok {
			continue
		}
		counts[tok]++
	}
	return counts
}

// Render produces a word-cloud image for the text. Text with no countable
// words degenerates to a no-op: a nil image and no error.
func (r *Renderer) Render(text string) (image.Image, error) {
	counts := r.Frequencies(text)
	if len(counts) == 0 {
		return nil, nil
	}

	// The font is only read at draw time, so check it up front to fail with
	// a usable error instead of a panic inside the renderer.
	if _, err := os.Stat(r.fontFile); err != nil {
		return nil, fmt.Errorf("word cloud font %q not available: %w", r.fontFile, err)
	}

	cloud := wordclouds.NewWordcloud(
		counts,
		wordclouds.FontFile(r.fontFile),
		wordclouds.Width(800),
		wordclouds.Height(400),
		wordclouds.BackgroundColor(color.White),
		wordclouds.FontMaxSize(96),
		wordclouds.FontMinSize(12),
	)
	return cloud.Draw(), nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
