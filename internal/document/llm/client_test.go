package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/config"
)

const grisJSON = `{
	"numero_matricule_marocain": {"numero": "1107-1-81"},
	"immatriculation_anterieure": {"numero": "WW131384"},
	"mise_en_circulation": {"date": "01.01.2015"},
	"mise_en_circulation_au_maroc": {"date": "01.06.2015"},
	"mutation": {"date": "01.06.2020"},
	"usage": {"type": "privé", "description": "usage personnel"},
	"marque": "DACIA",
	"type": "LOGAN",
	"genre": "VP",
	"type_carburant": "ESSENCE",
	"numero_chassis": "UU1LSDABC12345678",
	"nombre_cylindres": 4,
	"puissance_fiscale": "8",
	"restriction": "Aucune",
	"identite": {
		"nom": {"fr": "EL AMRANI", "ar": "العمراني"},
		"prenom": {"fr": "MOHAMED", "ar": "محمد"}
	},
	"adresse": {"fr": "HAY SALAM RUE 5", "ar": "حي السلام"},
	"validite": "01.01.2030"
}`

func completionWith(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	})
	return string(body)
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e := NewExtractor(config.ModelConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-token",
		Name:        "test-model",
		MaxAttempts: 5,
	})
	e.baseDelay = time.Millisecond
	return e
}

func TestExtractCIN(t *testing.T) {
	var gotBody map[string]any

	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		content := `{
			"cin": "AB123456",
			"identite": {
				"nom": {"fr": "EL AMRANI", "ar": "العمراني"},
				"prenom": {"fr": "MOHAMED", "ar": "محمد"}
			},
			"naissance": {"date": "01.01.1990", "lieu": {"fr": "CASABLANCA", "ar": "الدار البيضاء"}},
			"adresse": {"fr": "HAY SALAM RUE 5", "ar": "حي السلام"},
			"sexe": "M",
			"validite": "01.01.2030",
			"parents": {
				"pere": {"fr": "AHMED", "ar": "أحمد"},
				"mere": {"fr": "FATIMA", "ar": "فاطمة"}
			},
			"etat_civil": {"numero_etat_civil": "123/1995"}
		}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith(content))
	})

	rec, err := e.ExtractCIN(context.Background(), "ROYAUME DU MAROC ...")
	require.NoError(t, err)

	assert.Equal(t, "AB123456", rec.CIN)
	assert.Equal(t, "EL AMRANI", rec.Identite.Nom.Fr)
	require.NotNil(t, rec.EtatCivil.NumeroEtatCivil)
	assert.Equal(t, "123/1995", *rec.EtatCivil.NumeroEtatCivil)

	// Structured output is requested for identity cards.
	assert.Equal(t, "test-model", gotBody["model"])
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
}

func TestExtractGris(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith("```json\n"+grisJSON+"\n```"))
	})

	doc, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.NoError(t, err)

	plate := doc["numero_matricule_marocain"].(map[string]any)
	assert.Equal(t, "1107-1-81", plate["numero"])
	assert.Equal(t, "DACIA", doc["marque"])
}

func TestExtractGris_SchemaMismatch(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith(`{"marque": "DACIA"}`))
	})

	_, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.Error(t, err)

	var perr *domain.ParsingError
	assert.True(t, errors.As(err, &perr))
}

func TestExtractGris_UnparseableOutput(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith("je ne peux pas analyser ce document"))
	})

	_, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.Error(t, err)

	var perr *domain.ParsingError
	assert.True(t, errors.As(err, &perr))
}

func TestComplete_TransientFailuresRetried(t *testing.T) {
	var calls atomic.Int32

	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, `{"error":{"message":"bad gateway"}}`, http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith(grisJSON))
	})

	_, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_TransientFailuresExhaustAttempts(t *testing.T) {
	var calls atomic.Int32

	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.Error(t, err)
	assert.Equal(t, int32(5), calls.Load())
	assert.True(t, domain.IsTransient(err))
}

func TestComplete_PermanentFailureNotRetried(t *testing.T) {
	var calls atomic.Int32

	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid request"}}`, http.StatusBadRequest)
	})

	_, err := e.ExtractGris(context.Background(), "CARTE GRISE ...")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, domain.IsTransient(err))
}
