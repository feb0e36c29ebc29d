package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// TextractAPI is the subset of the Textract client used here.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, in *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Textract recognizes text with Amazon Textract.
type Textract struct {
	client TextractAPI
}

// NewTextract loads the default AWS configuration for region.
func NewTextract(ctx context.Context, region string) (*Textract, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Textract{client: textract.NewFromConfig(cfg)}, nil
}

// NewTextractWithClient wraps an existing client.
func NewTextractWithClient(client TextractAPI) *Textract {
	return &Textract{client: client}
}

// Recognize joins LINE blocks and averages their confidence.
func (t *Textract) Recognize(ctx context.Context, image []byte) (Result, error) {
	out, err := t.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: image},
	})
	if err != nil {
		return Result{}, fmt.Errorf("textract detect text: %w", err)
	}

	var text strings.Builder
	var total float32
	var lines int
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		text.WriteString(*block.Text)
		text.WriteByte('\n')
		if block.Confidence != nil {
			total += *block.Confidence
			lines++
		}
	}

	res := Result{
		Text:     text.String(),
		Language: LanguageCroatian,
		Engine:   "textract",
	}
	if lines > 0 {
		res.Confidence = clampConfidence(float64(total) / float64(lines))
	}
	return res, nil
}
