package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"verity/internal/document"
	"verity/internal/registry"
	"verity/internal/trust"
	"verity/internal/validation"
	"verity/pkg/requestcontext"
)

// UploadDocument reads an uploaded document, validates what it finds and,
// for registration documents carrying a tax ID, reconciles it against the
// registries before merging the evidence into the user's record.
func (s *Service) UploadDocument(ctx context.Context, req UploadRequest) (res Result) {
	start := time.Now()
	ctx, cancel, span := s.begin(ctx, "verification.upload_document")
	defer cancel()
	defer span.End()
	span.SetAttributes(attribute.String("document_type", string(req.DocumentType)))

	res = newResult()
	defer func() { s.finish(ctx, opUpload, span, &res, start) }()

	if len(req.Front) == 0 {
		res.fail(FailureInvalidRequest, msgNoDocument)
		return res
	}
	if req.DocumentType == "" {
		req.DocumentType = document.TypeRPOSolution
	}

	unlock := s.aggregator.Lock(req.UserID)
	defer unlock()
	now := requestcontext.Now(ctx)

	rec, err := s.current(ctx, req.UserID, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load verification record",
			"user_id", req.UserID.String(),
			"error", err,
		)
		res.fail(FailureStorage, msgStorage)
		return res
	}

	text := s.reader.ReadPair(ctx, req.Front, req.Back)
	s.metrics.ObserveConfidence(text.Confidence)

	data := document.Extract(text.Text, req.DocumentType)
	data.Confidence = text.Confidence
	val := validation.Validate(data, req.Declared, now)
	lowConfidence := text.Fallback || text.Confidence < MinConfidence
	if lowConfidence {
		val.Warnings = append(val.Warnings, validation.Issue{
			Code:    validation.CodeLowConfidence,
			Message: fmt.Sprintf("Text recognition confidence %d is below %d.", text.Confidence, MinConfidence),
		})
	}
	res.ExtractedData = &data
	res.Validation = &val

	var ev trust.Evidence
	channel := documentChannel(data.DocumentType)
	switch {
	case val.Blocking():
		res.fail(FailureDocumentBlocked, "")
		for _, e := range val.Errors {
			switch e.Code {
			case validation.CodeChecksumInvalid:
				res.say(msgChecksum)
			case validation.CodeDocumentExpired:
				res.say(msgExpired)
			}
		}
	case val.Has(validation.CodeDocumentUnreadable):
		pend(&ev, rec, channel, "unreadable")
		res.say(msgUnreadable)
	case lowConfidence:
		pend(&ev, rec, channel, "low confidence")
		res.say(msgLowConfidence)
	default:
		s.documentEvidence(ctx, data, val, req.Declared, rec, &ev, &res)
	}

	s.commit(ctx, req.UserID, ev, now, &res, opUpload)
	return res
}

// documentEvidence turns a readable, non-blocked document into evidence. A
// finding that needs a human holds the document's channel in review, and a
// held channel is not confirmed by the registries either.
func (s *Service) documentEvidence(ctx context.Context, data document.ExtractedData, val validation.Result,
	declared validation.Declared, rec *trust.Record, ev *trust.Evidence, res *Result) {
	channel := documentChannel(data.DocumentType)
	held := false
	hold := func(reason, msg string) {
		held = true
		pend(ev, rec, channel, reason)
		res.say(msg)
	}

	taxID, hasTaxID := data.Get(document.FieldTaxID)
	if hasTaxID {
		ev.TaxID = taxID
		ev.TaxIDValid = validation.ValidOIB(taxID)
	} else {
		hold("tax ID not found", msgTaxIDMissing)
	}
	if warned(val, validation.CodeFieldMismatch, document.FieldTaxID) {
		hold("tax ID mismatch", msgTaxIDMismatch)
	}
	for _, e := range val.Errors {
		switch {
		case e.Code == validation.CodeFieldNotExtracted && e.Field == document.FieldDocumentNumber:
			hold("document number not found", msgNumberMissing)
		case e.Code == validation.CodeInvalidDates:
			hold("inconsistent dates", msgInvalidDates)
		default:
			hold(string(e.Code), e.Message)
		}
	}

	name, hasName := data.Get(document.FieldHolderName)
	switch {
	case !hasName:
		hold("name not found", msgNameMissing)
	case warned(val, validation.CodeFieldMismatch, document.FieldHolderName):
		hold("name mismatch", msgNameMismatch)
	}
	if held {
		return
	}

	switch data.DocumentType {
	case document.TypeIDCard:
		if strings.TrimSpace(declared.FullName) == "" {
			pend(ev, rec, trust.ChannelIDDocument, "no profile name to compare")
			return
		}
		ev.IDDocumentMatched = true
	case document.TypeRPOSolution, document.TypeLicense:
		if !ev.TaxIDValid {
			return
		}
		lookupName := strings.TrimSpace(declared.FullName)
		if lookupName == "" {
			lookupName = rec.CompanyName
		}
		if lookupName == "" {
			lookupName = name
		}
		s.reconcile(ctx, registry.Request{
			TaxID:       taxID,
			Name:        lookupName,
			LegalStatus: rec.LegalStatus,
			Profession:  registry.Profession(rec.Profession),
		}, rec, ev, res)
	}
}

// documentChannel is the channel a document type can confirm.
func documentChannel(t document.Type) trust.Channel {
	if t == document.TypeIDCard {
		return trust.ChannelIDDocument
	}
	return trust.ChannelCompany
}

func warned(val validation.Result, code validation.Code, field document.Field) bool {
	for _, w := range val.Warnings {
		if w.Code == code && w.Field == field {
			return true
		}
	}
	return false
}
