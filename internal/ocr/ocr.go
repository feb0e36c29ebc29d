// Package ocr adapts text-recognition engines to the verification pipeline.
// Recognizers may fail; Reader never does.
package ocr

import (
	"context"
	"strings"
	"time"
)

// LanguageCroatian is reported for every recognition result.
const LanguageCroatian = "hr"

// Result is recognized text with a 0-100 confidence score.
type Result struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
	Language   string `json:"language"`
	// Engine names what produced the text: textract, pdf_text, placeholder.
	Engine string `json:"engine"`
	// Fallback is set when the configured engine failed and the placeholder
	// stood in.
	Fallback bool     `json:"fallback,omitempty"`
	Capture  *Capture `json:"capture,omitempty"`
}

// Capture is photo metadata read from EXIF.
type Capture struct {
	TakenAt  time.Time `json:"takenAt,omitzero"`
	Make     string    `json:"make,omitempty"`
	Model    string    `json:"model,omitempty"`
	Software string    `json:"software,omitempty"`
}

// Edited reports whether the photo was saved by known editing software.
func (c *Capture) Edited() bool {
	if c == nil || c.Software == "" {
		return false
	}
	s := strings.ToLower(c.Software)
	for _, editor := range []string{"photoshop", "gimp", "lightroom", "snapseed", "picsart", "canva"} {
		if strings.Contains(s, editor) {
			return true
		}
	}
	return false
}

// Recognizer extracts text from image bytes.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}

// Combine merges the front and back of a document. Text is concatenated and
// the confidence averaged over the sides that were read.
func Combine(front Result, back *Result) Result {
	if back == nil {
		return front
	}
	out := front
	out.Text = strings.TrimSpace(front.Text + "\n" + back.Text)
	out.Confidence = (front.Confidence + back.Confidence) / 2
	out.Fallback = front.Fallback || back.Fallback
	if out.Capture == nil {
		out.Capture = back.Capture
	}
	return out
}

func clampConfidence(c float64) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return int(c + 0.5)
	}
}
