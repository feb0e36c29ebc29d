// Command verifyctl runs text extraction and validation on local document
// files, the same way an upload is processed, without touching any store or
// registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"verity/internal/document"
	"verity/internal/ocr"
	"verity/internal/platform/logger"
	"verity/internal/validation"
)

type options struct {
	front    string
	back     string
	docType  string
	taxID    string
	name     string
	format   string
	engine   string
	region   string
	noColor  bool
	logLevel string
}

func main() {
	var opts options
	flag.StringVar(&opts.front, "front", "", "front side image or PDF (required)")
	flag.StringVar(&opts.back, "back", "", "back side image, optional")
	flag.StringVar(&opts.docType, "type", string(document.TypeRPOSolution), "document type: RPO_SOLUTION, LICENSE or ID_CARD")
	flag.StringVar(&opts.taxID, "oib", "", "declared OIB to compare against")
	flag.StringVar(&opts.name, "name", "", "declared name to compare against")
	flag.StringVar(&opts.format, "format", "text", "output format: text or yaml")
	flag.StringVar(&opts.engine, "engine", "placeholder", "OCR engine: textract or placeholder")
	flag.StringVar(&opts.region, "region", "eu-central-1", "AWS region for textract")
	flag.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.Parse()

	if opts.front == "" {
		fmt.Fprintln(os.Stderr, "verifyctl: -front is required")
		flag.Usage()
		os.Exit(2)
	}
	if opts.noColor {
		color.NoColor = true
	}

	rep, err := run(context.Background(), opts)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "verifyctl: %v\n", err)
		os.Exit(1)
	}

	switch opts.format {
	case "yaml":
		err = writeYAML(os.Stdout, rep)
	default:
		writeText(os.Stdout, rep)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifyctl: %v\n", err)
		os.Exit(1)
	}
	if rep.Blocked {
		os.Exit(3)
	}
}

// report is what verifyctl prints for one document.
type report struct {
	File       string            `yaml:"file"`
	Type       string            `yaml:"documentType"`
	Engine     string            `yaml:"engine"`
	Fallback   bool              `yaml:"fallback,omitempty"`
	Confidence int               `yaml:"confidence"`
	TextLength int               `yaml:"textLength"`
	Fields     map[string]string `yaml:"fields"`
	Valid      bool              `yaml:"valid"`
	Blocked    bool              `yaml:"blocked"`
	Errors     []issue           `yaml:"errors,omitempty"`
	Warnings   []issue           `yaml:"warnings,omitempty"`
	Edited     bool              `yaml:"edited,omitempty"`
	Camera     string            `yaml:"camera,omitempty"`
}

type issue struct {
	Code    string `yaml:"code"`
	Field   string `yaml:"field,omitempty"`
	Message string `yaml:"message"`
}

func run(ctx context.Context, opts options) (*report, error) {
	docType, ok := document.ParseType(opts.docType)
	if !ok {
		return nil, fmt.Errorf("unknown document type %q", opts.docType)
	}
	front, err := os.ReadFile(opts.front)
	if err != nil {
		return nil, err
	}
	var back []byte
	if opts.back != "" {
		if back, err = os.ReadFile(opts.back); err != nil {
			return nil, err
		}
	}

	var recognizer ocr.Recognizer = ocr.Placeholder{}
	if opts.engine == "textract" {
		t, err := ocr.NewTextract(ctx, opts.region)
		if err != nil {
			return nil, fmt.Errorf("textract: %w", err)
		}
		recognizer = t
	}
	reader := ocr.NewReader(recognizer, ocr.WithLogger(logger.New(opts.logLevel)))

	text := reader.ReadPair(ctx, front, back)
	data := document.Extract(text.Text, docType)
	data.Confidence = text.Confidence
	val := validation.Validate(data, validation.Declared{TaxID: opts.taxID, FullName: opts.name}, time.Now())

	rep := &report{
		File:       filepath.Base(opts.front),
		Type:       string(data.DocumentType),
		Engine:     text.Engine,
		Fallback:   text.Fallback,
		Confidence: text.Confidence,
		TextLength: data.TextLength,
		Fields:     make(map[string]string, len(data.Fields)),
		Valid:      val.Valid,
		Blocked:    val.Blocking(),
		Errors:     issues(val.Errors),
		Warnings:   issues(val.Warnings),
	}
	for f, v := range data.Fields {
		rep.Fields[string(f)] = v
	}
	if c := text.Capture; c != nil {
		rep.Edited = c.Edited()
		if c.Make != "" || c.Model != "" {
			rep.Camera = fmt.Sprintf("%s %s", c.Make, c.Model)
		}
	}
	return rep, nil
}

func issues(in []validation.Issue) []issue {
	out := make([]issue, 0, len(in))
	for _, i := range in {
		out = append(out, issue{Code: string(i.Code), Field: string(i.Field), Message: i.Message})
	}
	return out
}

func writeYAML(w io.Writer, rep *report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeText(w io.Writer, rep *report) {
	title := color.New(color.FgWhite, color.Bold)
	header := color.New(color.FgBlue, color.Bold)
	positive := color.New(color.FgGreen)
	negative := color.New(color.FgRed)
	warning := color.New(color.FgYellow)

	title.Fprintf(w, "%s (%s)\n", rep.File, rep.Type)
	fmt.Fprintf(w, "  engine: %s, confidence: %d, characters: %d\n", rep.Engine, rep.Confidence, rep.TextLength)
	if rep.Fallback {
		warning.Fprintln(w, "  text recognition failed, placeholder text was used")
	}
	if rep.Edited {
		warning.Fprintln(w, "  photo was saved by editing software")
	}

	header.Fprintln(w, "Fields")
	if len(rep.Fields) == 0 {
		fmt.Fprintln(w, "  none found")
	}
	for _, f := range fieldOrder(rep.Fields) {
		fmt.Fprintf(w, "  %-16s %s\n", f, rep.Fields[f])
	}

	header.Fprintln(w, "Validation")
	switch {
	case rep.Blocked:
		negative.Fprintln(w, "  blocked")
	case rep.Valid:
		positive.Fprintln(w, "  valid")
	default:
		warning.Fprintln(w, "  needs review")
	}
	for _, e := range rep.Errors {
		negative.Fprintf(w, "  ✗ %s: %s\n", e.Code, e.Message)
	}
	for _, e := range rep.Warnings {
		warning.Fprintf(w, "  ! %s: %s\n", e.Code, e.Message)
	}
}

// fieldOrder lists extracted fields in a stable, readable order.
func fieldOrder(fields map[string]string) []string {
	known := []document.Field{
		document.FieldHolderName,
		document.FieldTaxID,
		document.FieldDocumentNumber,
		document.FieldLicenseType,
		document.FieldIssuingAuthority,
		document.FieldIssuedAt,
		document.FieldExpiresAt,
		document.FieldDateOfBirth,
	}
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range known {
		if _, ok := fields[string(f)]; ok {
			out = append(out, string(f))
			seen[string(f)] = true
		}
	}
	var rest []string
	for f := range fields {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}
