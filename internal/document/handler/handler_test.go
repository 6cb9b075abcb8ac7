package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/internal/document/handler"
	"github.com/docflow/docflow-backend/internal/document/normalize"
	"github.com/docflow/docflow-backend/internal/document/repository"
	"github.com/docflow/docflow-backend/internal/document/schema"
	"github.com/docflow/docflow-backend/internal/document/service"
	"github.com/docflow/docflow-backend/pkg/logger"
)

type stubOCR struct {
	text string
	err  error
}

func (s *stubOCR) ReadText(ctx context.Context, image []byte) (string, error) {
	return s.text, s.err
}

type stubExtractor struct {
	cin    *domain.CINRecord
	permis *domain.PermisRecord
	gris   map[string]any
	err    error
}

func (s *stubExtractor) ExtractCIN(ctx context.Context, rawText string) (*domain.CINRecord, error) {
	return s.cin, s.err
}

func (s *stubExtractor) ExtractPermis(ctx context.Context, rawText string) (*domain.PermisRecord, error) {
	return s.permis, s.err
}

func (s *stubExtractor) ExtractGris(ctx context.Context, rawText string) (map[string]any, error) {
	return s.gris, s.err
}

type stubCINStore struct {
	rows    []*repository.CINRow
	saveErr error
	listErr error
}

func (s *stubCINStore) Save(ctx context.Context, rec *domain.CINRecord) (*repository.CINRow, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return &repository.CINRow{ID: 1, CIN: rec.CIN}, nil
}

func (s *stubCINStore) List(ctx context.Context) ([]*repository.CINRow, error) {
	return s.rows, s.listErr
}

type stubPermisStore struct{}

func (s *stubPermisStore) Save(ctx context.Context, rec *domain.PermisRecord) (*repository.PermisRow, error) {
	return &repository.PermisRow{ID: 1, NumeroPermis: rec.Permis.NumeroPermis}, nil
}

func (s *stubPermisStore) List(ctx context.Context) ([]*repository.PermisRow, error) {
	return nil, nil
}

type stubGrisStore struct {
	months []repository.MonthCount
}

func (s *stubGrisStore) Save(ctx context.Context, rec *domain.GrisRecord) (*repository.GrisRow, error) {
	return &repository.GrisRow{ID: 1, NumeroMatriculeMarocain: rec.NumeroMatriculeMarocain.Numero}, nil
}

func (s *stubGrisStore) List(ctx context.Context) ([]*repository.GrisRow, error) {
	return nil, nil
}

func (s *stubGrisStore) MonthlyEvolution(ctx context.Context) ([]repository.MonthCount, error) {
	return s.months, nil
}

type stubEvents struct{}

func (s *stubEvents) DocumentProcessed(ctx context.Context, docType domain.DocumentType, naturalKey, userID string, warnings []string) {
}

func validCINRecord() *domain.CINRecord {
	return &domain.CINRecord{
		CIN: "AB123456",
		Identite: domain.Identity{
			Nom:    domain.BilingualText{Fr: "EL AMRANI", Ar: "العمراني"},
			Prenom: domain.BilingualText{Fr: "MOHAMED", Ar: "محمد"},
		},
		Naissance: domain.Birth{
			Date: "01.01.1990",
			Lieu: domain.BilingualText{Fr: "CASABLANCA", Ar: "الدار البيضاء"},
		},
		Adresse:  domain.BilingualText{Fr: "HAY SALAM RUE 5", Ar: "حي السلام"},
		Sexe:     "M",
		Validite: "01.01.2030",
		Parents: domain.Parents{
			Pere: domain.BilingualText{Fr: "AHMED", Ar: "أحمد"},
			Mere: domain.BilingualText{Fr: "FATIMA", Ar: "فاطمة"},
		},
	}
}

func grisDoc() map[string]any {
	return map[string]any{
		"numero_matricule_marocain":    map[string]any{"numero": "1107-1-81"},
		"immatriculation_anterieure":   map[string]any{"numero": "WW131384"},
		"mise_en_circulation":          map[string]any{"date": "01.01.2015"},
		"mise_en_circulation_au_maroc": map[string]any{"date": "01.06.2015"},
		"mutation":                     map[string]any{"date": "01.06.2020"},
		"usage":                        map[string]any{"type": "privé", "description": "usage personnel"},
		"marque":                       "DACIA",
		"type":                         "LOGAN",
		"genre":                        "VP",
		"type_carburant":               "ESSENCE",
		"numero_chassis":               "UU1LSDABC12345678",
		"nombre_cylindres":             float64(4),
		"puissance_fiscale":            float64(8),
		"restriction":                  "Aucune",
		"identite": map[string]any{
			"nom":    map[string]any{"fr": "EL AMRANI", "ar": "العمراني"},
			"prenom": map[string]any{"fr": "MOHAMED", "ar": "محمد"},
		},
		"adresse":  map[string]any{"fr": "HAY SALAM RUE 5", "ar": "حي السلام"},
		"validite": "01.01.2030",
	}
}

func newTestHandler(ocr *stubOCR, ex *stubExtractor, cin *stubCINStore, gris *stubGrisStore) *handler.Handler {
	log := logger.New("test", "test")
	svc := service.New(
		ocr, ex,
		schema.NewValidator(schema.DefaultTables()),
		normalize.New(normalize.DefaultTables()),
		cin, &stubPermisStore{}, gris, &stubEvents{},
		service.DefaultTimeouts(),
		log,
	)
	return handler.New(svc, log)
}

// multipartBody builds a form with the named file fields.
func multipartBody(t *testing.T, fields map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range fields {
		part, err := writer.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestProcessCIN_Success(t *testing.T) {
	h := newTestHandler(
		&stubOCR{text: "ROYAUME DU MAROC"},
		&stubExtractor{cin: validCINRecord()},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/cin/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "AB123456", data["cin"])
}

func TestProcessCIN_MissingVerso(t *testing.T) {
	h := newTestHandler(&stubOCR{}, &stubExtractor{}, &stubCINStore{}, &stubGrisStore{})

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
	})
	req := httptest.NewRequest("POST", "/api/v1/cin/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
}

func TestProcessCIN_NotMultipart(t *testing.T) {
	h := newTestHandler(&stubOCR{}, &stubExtractor{}, &stubCINStore{}, &stubGrisStore{})

	req := httptest.NewRequest("POST", "/api/v1/cin/process", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessCIN_ValidationFailure(t *testing.T) {
	invalid := validCINRecord()
	invalid.Sexe = "X"

	h := newTestHandler(
		&stubOCR{text: "text"},
		&stubExtractor{cin: invalid},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/cin/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Contains(t, details, "sexe")
}

func TestProcessCIN_ParsingFailure(t *testing.T) {
	h := newTestHandler(
		&stubOCR{text: "text"},
		&stubExtractor{err: &domain.ParsingError{Err: errors.New("invalid character")}},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/cin/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessCIN_OCRFailure(t *testing.T) {
	h := newTestHandler(
		&stubOCR{err: &domain.OCRError{Err: errors.New("endpoint unreachable")}},
		&stubExtractor{cin: validCINRecord()},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/cin/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessCIN(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProcessGris_Success(t *testing.T) {
	h := newTestHandler(
		&stubOCR{text: "CARTE GRISE"},
		&stubExtractor{gris: grisDoc()},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/gris/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessGris(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	record := data["record"].(map[string]any)
	assert.Equal(t, "1107 أ 81", record["numero_matricule_marocain"])
	assert.Empty(t, data["warnings"])
}

func TestProcessGris_SurfacesWarnings(t *testing.T) {
	doc := grisDoc()
	doc["puissance_fiscale"] = "illisible"

	h := newTestHandler(
		&stubOCR{text: "CARTE GRISE"},
		&stubExtractor{gris: doc},
		&stubCINStore{},
		&stubGrisStore{},
	)

	body, contentType := multipartBody(t, map[string][]byte{
		"recto": []byte("front"),
		"verso": []byte("back"),
	})
	req := httptest.NewRequest("POST", "/api/v1/gris/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ProcessGris(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	warnings := data["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].(string), "puissance_fiscale")
}

func TestListCIN(t *testing.T) {
	store := &stubCINStore{rows: []*repository.CINRow{
		{ID: 2, CIN: "CD789012"},
		{ID: 1, CIN: "AB123456"},
	}}
	h := newTestHandler(&stubOCR{}, &stubExtractor{}, store, &stubGrisStore{})

	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	rec := httptest.NewRecorder()

	h.ListCIN(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	rows := envelope["data"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "CD789012", rows[0].(map[string]any)["cin"])
}

func TestMonthlyEvolution(t *testing.T) {
	gris := &stubGrisStore{months: []repository.MonthCount{
		{Month: "2015-01", Count: 3},
		{Month: "2015-06", Count: 1},
	}}
	h := newTestHandler(&stubOCR{}, &stubExtractor{}, &stubCINStore{}, gris)

	req := httptest.NewRequest("GET", "/api/v1/gris/evolution-mensuel", nil)
	rec := httptest.NewRecorder()

	h.MonthlyEvolution(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, float64(3), data["2015-01"])
	assert.Equal(t, float64(1), data["2015-06"])
}
