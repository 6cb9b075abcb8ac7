// Package handler exposes the document extraction endpoints. Each process
// endpoint takes a multipart form with the two faces of the photographed
// document under the recto and verso fields.
package handler

import (
	goerrors "errors"
	"io"
	"net/http"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/internal/document/service"
	"github.com/docflow/docflow-backend/pkg/errors"
	"github.com/docflow/docflow-backend/pkg/httputil"
	"github.com/docflow/docflow-backend/pkg/logger"
)

const maxUploadSize = 10 << 20 // per face

// Handler handles document extraction endpoints
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// New creates a new document handler
func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// ProcessCIN extracts, validates and stores an identity card
func (h *Handler) ProcessCIN(w http.ResponseWriter, r *http.Request) {
	recto, verso, err := readFaces(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	row, err := h.service.ProcessCIN(r.Context(), recto, verso, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, mapDomainError(err))
		return
	}

	httputil.JSON(w, http.StatusOK, row)
}

// ProcessPermis extracts, validates and stores a driving license
func (h *Handler) ProcessPermis(w http.ResponseWriter, r *http.Request) {
	recto, verso, err := readFaces(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	row, err := h.service.ProcessPermis(r.Context(), recto, verso, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, mapDomainError(err))
		return
	}

	httputil.JSON(w, http.StatusOK, row)
}

// GrisResult is the process response for a vehicle registration: the
// stored row plus any normalization fallbacks that were applied.
type GrisResult struct {
	Record   interface{} `json:"record"`
	Warnings []string    `json:"warnings"`
}

// ProcessGris extracts, normalizes, validates and stores a vehicle registration
func (h *Handler) ProcessGris(w http.ResponseWriter, r *http.Request) {
	recto, verso, err := readFaces(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	row, warnings, err := h.service.ProcessGris(r.Context(), recto, verso, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, mapDomainError(err))
		return
	}
	if warnings == nil {
		warnings = []string{}
	}

	httputil.JSON(w, http.StatusOK, GrisResult{Record: row, Warnings: warnings})
}

// ListCIN returns all stored identity cards
func (h *Handler) ListCIN(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListCIN(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// ListPermis returns all stored driving licenses
func (h *Handler) ListPermis(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListPermis(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// ListGris returns all stored vehicle registrations
func (h *Handler) ListGris(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListGris(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

// MonthlyEvolution returns vehicle first registrations per month
func (h *Handler) MonthlyEvolution(w http.ResponseWriter, r *http.Request) {
	evolution, err := h.service.MonthlyEvolution(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, evolution)
}

// readFaces extracts the recto and verso images from the multipart form.
// Both faces are required.
func readFaces(r *http.Request) ([]byte, []byte, error) {
	if err := r.ParseMultipartForm(2 * maxUploadSize); err != nil {
		return nil, nil, errors.BadRequest("request must be a multipart form with recto and verso files")
	}

	recto, err := readFace(r, "recto")
	if err != nil {
		return nil, nil, err
	}
	verso, err := readFace(r, "verso")
	if err != nil {
		return nil, nil, err
	}
	return recto, verso, nil
}

func readFace(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.BadRequest("missing " + field + " file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, errors.BadRequest("could not read " + field + " file")
	}
	if len(data) > maxUploadSize {
		return nil, errors.BadRequest(field + " file exceeds the size limit")
	}
	if len(data) == 0 {
		return nil, errors.BadRequest(field + " file is empty")
	}
	return data, nil
}

// mapDomainError translates pipeline failures into API errors. Rejected
// fields and unparseable model output are client-visible 400s; provider,
// OCR and storage failures stay internal.
func mapDomainError(err error) error {
	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		return appErr
	}

	var verr *domain.ValidationError
	if goerrors.As(err, &verr) {
		return errors.Validation(map[string]string{verr.Field: verr.Reason})
	}

	var perr *domain.ParsingError
	if goerrors.As(err, &perr) {
		return errors.BadRequest("document could not be parsed: " + perr.Error())
	}

	return errors.Internal("document processing failed")
}
