// Package service orchestrates the document extraction pipeline: OCR on
// both faces, model extraction, normalization for registrations,
// validation and persistence, then a best-effort processed event.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/internal/document/normalize"
	"github.com/docflow/docflow-backend/internal/document/repository"
	"github.com/docflow/docflow-backend/internal/document/schema"
	"github.com/docflow/docflow-backend/pkg/logger"
)

// OCRClient reads the printed text off a document photograph.
type OCRClient interface {
	ReadText(ctx context.Context, image []byte) (string, error)
}

// Extractor turns OCR text into structured document records.
type Extractor interface {
	ExtractCIN(ctx context.Context, rawText string) (*domain.CINRecord, error)
	ExtractPermis(ctx context.Context, rawText string) (*domain.PermisRecord, error)
	ExtractGris(ctx context.Context, rawText string) (map[string]any, error)
}

// EventPublisher announces processed documents.
type EventPublisher interface {
	DocumentProcessed(ctx context.Context, docType domain.DocumentType, naturalKey, userID string, warnings []string)
}

// CINStore persists identity card records.
type CINStore interface {
	Save(ctx context.Context, rec *domain.CINRecord) (*repository.CINRow, error)
	List(ctx context.Context) ([]*repository.CINRow, error)
}

// PermisStore persists driving-license records.
type PermisStore interface {
	Save(ctx context.Context, rec *domain.PermisRecord) (*repository.PermisRow, error)
	List(ctx context.Context) ([]*repository.PermisRow, error)
}

// GrisStore persists vehicle registration records.
type GrisStore interface {
	Save(ctx context.Context, rec *domain.GrisRecord) (*repository.GrisRow, error)
	List(ctx context.Context) ([]*repository.GrisRow, error)
	MonthlyEvolution(ctx context.Context) ([]repository.MonthCount, error)
}

// Timeouts bound the two slow external calls of each request. Each OCR
// read and each model call gets its own deadline on top of whatever the
// request context carries.
type Timeouts struct {
	OCR   time.Duration
	Model time.Duration
}

// DefaultTimeouts returns deadlines generous enough for photographed
// documents on the free model tiers.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		OCR:   60 * time.Second,
		Model: 120 * time.Second,
	}
}

// Service runs the extraction pipeline for all three document types.
type Service struct {
	ocr        OCRClient
	extractor  Extractor
	validator  *schema.Validator
	normalizer *normalize.Normalizer
	cin        CINStore
	permis     PermisStore
	gris       GrisStore
	events     EventPublisher
	timeouts   Timeouts
	log        *logger.Logger
}

func New(
	ocr OCRClient,
	extractor Extractor,
	validator *schema.Validator,
	normalizer *normalize.Normalizer,
	cin CINStore,
	permis PermisStore,
	gris GrisStore,
	events EventPublisher,
	timeouts Timeouts,
	log *logger.Logger,
) *Service {
	return &Service{
		ocr:        ocr,
		extractor:  extractor,
		validator:  validator,
		normalizer: normalizer,
		cin:        cin,
		permis:     permis,
		gris:       gris,
		events:     events,
		timeouts:   timeouts,
		log:        log,
	}
}

// ProcessCIN runs the full pipeline over the two faces of an identity card.
func (s *Service) ProcessCIN(ctx context.Context, recto, verso []byte, userID string) (*repository.CINRow, error) {
	log := s.log.WithDocumentType(string(domain.DocumentTypeCIN))

	text, err := s.readBothFaces(ctx, log, recto, verso)
	if err != nil {
		return nil, err
	}

	rec, err := s.extractCIN(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("extraction failed")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StageParsed)).Msg("model output parsed")

	if err := s.validator.ValidateCIN(rec); err != nil {
		log.Warn().Err(err).Str("stage", string(domain.StageFailed)).Msg("validation rejected record")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StageValidated)).Msg("record validated")

	row, err := s.cin.Save(ctx, rec)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("persistence failed")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StagePersisted)).Str("cin", rec.CIN).Msg("record persisted")

	s.events.DocumentProcessed(ctx, domain.DocumentTypeCIN, rec.CIN, userID, nil)
	return row, nil
}

// ProcessPermis runs the full pipeline over the two faces of a driving license.
func (s *Service) ProcessPermis(ctx context.Context, recto, verso []byte, userID string) (*repository.PermisRow, error) {
	log := s.log.WithDocumentType(string(domain.DocumentTypePermis))

	text, err := s.readBothFaces(ctx, log, recto, verso)
	if err != nil {
		return nil, err
	}

	rec, err := s.extractPermis(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("extraction failed")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StageParsed)).Msg("model output parsed")

	if err := s.validator.ValidatePermis(rec); err != nil {
		log.Warn().Err(err).Str("stage", string(domain.StageFailed)).Msg("validation rejected record")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StageValidated)).Msg("record validated")

	row, err := s.permis.Save(ctx, rec)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("persistence failed")
		return nil, err
	}
	log.Info().Str("stage", string(domain.StagePersisted)).Str("numero_permis", rec.Permis.NumeroPermis).Msg("record persisted")

	s.events.DocumentProcessed(ctx, domain.DocumentTypePermis, rec.Permis.NumeroPermis, userID, nil)
	return row, nil
}

// ProcessGris runs the full pipeline over the two faces of a vehicle
// registration card. Unreadable plate, usage and numeric fields are
// repaired rather than rejected; every repair is returned as a warning.
func (s *Service) ProcessGris(ctx context.Context, recto, verso []byte, userID string) (*repository.GrisRow, []string, error) {
	log := s.log.WithDocumentType(string(domain.DocumentTypeGris))

	text, err := s.readBothFaces(ctx, log, recto, verso)
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.extractGris(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("extraction failed")
		return nil, nil, err
	}
	log.Info().Str("stage", string(domain.StageParsed)).Msg("model output parsed")

	doc, warnings := s.normalizer.Apply(doc)
	for _, w := range warnings {
		log.Warn().Str("warning", w).Msg("normalization fallback used")
	}

	rec, err := decodeGris(doc)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("normalized document malformed")
		return nil, nil, err
	}

	if err := s.validator.ValidateGris(rec); err != nil {
		log.Warn().Err(err).Str("stage", string(domain.StageFailed)).Msg("validation rejected record")
		return nil, nil, err
	}
	log.Info().Str("stage", string(domain.StageValidated)).Msg("record validated")

	row, err := s.gris.Save(ctx, rec)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Msg("persistence failed")
		return nil, nil, err
	}
	log.Info().Str("stage", string(domain.StagePersisted)).
		Str("numero_matricule", rec.NumeroMatriculeMarocain.Numero).
		Int("warnings", len(warnings)).
		Msg("record persisted")

	s.events.DocumentProcessed(ctx, domain.DocumentTypeGris, rec.NumeroMatriculeMarocain.Numero, userID, warnings)
	return row, warnings, nil
}

// ListCIN returns all stored identity cards.
func (s *Service) ListCIN(ctx context.Context) ([]*repository.CINRow, error) {
	return s.cin.List(ctx)
}

// ListPermis returns all stored driving licenses.
func (s *Service) ListPermis(ctx context.Context) ([]*repository.PermisRow, error) {
	return s.permis.List(ctx)
}

// ListGris returns all stored vehicle registrations.
func (s *Service) ListGris(ctx context.Context) ([]*repository.GrisRow, error) {
	return s.gris.List(ctx)
}

// MonthlyEvolution returns first registrations per YYYY-MM month. The map
// serializes with sorted keys, oldest month first.
func (s *Service) MonthlyEvolution(ctx context.Context) (map[string]int, error) {
	counts, err := s.gris.MonthlyEvolution(ctx)
	if err != nil {
		return nil, err
	}

	evolution := make(map[string]int, len(counts))
	for _, c := range counts {
		evolution[c.Month] = c.Count
	}
	return evolution, nil
}

// readBothFaces reads the recto then the verso and joins the two texts
// with a newline, the same shape the extraction prompts were tuned on.
func (s *Service) readBothFaces(ctx context.Context, log *logger.Logger, recto, verso []byte) (string, error) {
	log.Info().Str("stage", string(domain.StageReceived)).Msg("processing document")

	rectoText, err := s.readText(ctx, recto)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Str("face", "recto").Msg("ocr failed")
		return "", err
	}
	versoText, err := s.readText(ctx, verso)
	if err != nil {
		log.Error().Err(err).Str("stage", string(domain.StageFailed)).Str("face", "verso").Msg("ocr failed")
		return "", err
	}

	log.Info().Str("stage", string(domain.StageOCRDone)).Msg("both faces read")
	return rectoText + "\n" + versoText, nil
}

func (s *Service) readText(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.OCR)
	defer cancel()
	return s.ocr.ReadText(ctx, image)
}

func (s *Service) extractCIN(ctx context.Context, text string) (*domain.CINRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Model)
	defer cancel()
	return s.extractor.ExtractCIN(ctx, text)
}

func (s *Service) extractPermis(ctx context.Context, text string) (*domain.PermisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Model)
	defer cancel()
	return s.extractor.ExtractPermis(ctx, text)
}

func (s *Service) extractGris(ctx context.Context, text string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Model)
	defer cancel()
	return s.extractor.ExtractGris(ctx, text)
}

// decodeGris converts a normalized document map into a typed record.
func decodeGris(doc map[string]any) (*domain.GrisRecord, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("re-encoding normalized document: %w", err)}
	}
	var rec domain.GrisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &domain.ParsingError{Err: fmt.Errorf("decoding normalized document: %w", err)}
	}
	return &rec, nil
}
