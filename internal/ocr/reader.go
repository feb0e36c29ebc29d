package ocr

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	// minPDFText is how much embedded text a PDF needs before the text layer
	// is trusted over recognition.
	minPDFText = 50
	// pdfTextConfidence is reported for text read from a PDF text layer.
	pdfTextConfidence = 95
)

// Reader turns uploaded bytes into text. It never fails: a broken engine
// yields the zero-confidence placeholder so the upload can still be
// reviewed by hand.
type Reader struct {
	recognizer Recognizer
	logger     *slog.Logger
	timeout    time.Duration
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithTimeout bounds a single recognition call.
func WithTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewReader wraps recognizer. A nil recognizer reads placeholder text.
func NewReader(recognizer Recognizer, opts ...Option) *Reader {
	if recognizer == nil {
		recognizer = Placeholder{}
	}
	r := &Reader{
		recognizer: recognizer,
		logger:     slog.New(slog.DiscardHandler),
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read recognizes one side of a document. PDFs with a usable text layer
// skip recognition; photos also report EXIF capture metadata.
func (r *Reader) Read(ctx context.Context, data []byte) Result {
	if IsPDF(data) {
		text, err := PDFText(data)
		if err != nil {
			r.logger.WarnContext(ctx, "pdf text layer unavailable", "error", err)
		} else if len([]rune(text)) >= minPDFText {
			return Result{Text: text, Confidence: pdfTextConfidence, Language: LanguageCroatian, Engine: "pdf_text"}
		}
		return r.recognize(ctx, data)
	}

	res := r.recognize(ctx, data)
	if capture, err := ReadCapture(data); err == nil {
		res.Capture = capture
	}
	return res
}

// ReadPair reads the front and, when present, the back of a document.
func (r *Reader) ReadPair(ctx context.Context, front, back []byte) Result {
	res := r.Read(ctx, front)
	if len(back) == 0 {
		return res
	}
	b := r.Read(ctx, back)
	return Combine(res, &b)
}

func (r *Reader) recognize(ctx context.Context, data []byte) (res Result) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "text recognition panicked", "panic", p)
			res = fallback()
		}
	}()

	res, err := r.recognizer.Recognize(ctx, data)
	if err != nil {
		r.logger.WarnContext(ctx, "text recognition failed, using placeholder",
			"error", err,
			"bytes", len(data),
		)
		return fallback()
	}
	if res.Language == "" {
		res.Language = LanguageCroatian
	}
	return res
}

func fallback() Result {
	res := placeholderResult()
	res.Fallback = true
	return res
}
