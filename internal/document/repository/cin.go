package repository

import (
	"context"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/database"
)

// CINRow is the flattened storage form of an identity card record.
type CINRow struct {
	ID              int64     `db:"id" json:"id"`
	CIN             string    `db:"cin" json:"cin"`
	NomFr           string    `db:"nom_fr" json:"nom_fr"`
	NomAr           string    `db:"nom_ar" json:"nom_ar"`
	PrenomFr        string    `db:"prenom_fr" json:"prenom_fr"`
	PrenomAr        string    `db:"prenom_ar" json:"prenom_ar"`
	DateNaissance   time.Time `db:"date_naissance" json:"date_naissance"`
	LieuFr          string    `db:"lieu_fr" json:"lieu_fr"`
	LieuAr          string    `db:"lieu_ar" json:"lieu_ar"`
	AdresseFr       string    `db:"adresse_fr" json:"adresse_fr"`
	AdresseAr       string    `db:"adresse_ar" json:"adresse_ar"`
	Sexe            string    `db:"sexe" json:"sexe"`
	Validite        time.Time `db:"validite" json:"validite"`
	PereFr          string    `db:"pere_fr" json:"pere_fr"`
	PereAr          string    `db:"pere_ar" json:"pere_ar"`
	MereFr          string    `db:"mere_fr" json:"mere_fr"`
	MereAr          string    `db:"mere_ar" json:"mere_ar"`
	NumeroEtatCivil *string   `db:"numero_etat_civil" json:"numero_etat_civil"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// GenderCount is one slice of the gender distribution.
type GenderCount struct {
	Sexe  string `db:"sexe"`
	Count int    `db:"count"`
}

// PlaceRow carries the free-text location columns used for the city chart.
type PlaceRow struct {
	LieuFr    string `db:"lieu_fr"`
	AdresseFr string `db:"adresse_fr"`
}

// CINRepository handles identity card persistence.
type CINRepository struct {
	db *database.DB
}

func NewCINRepository(db *database.DB) *CINRepository {
	return &CINRepository{db: db}
}

// Save inserts a validated identity card record. The cin column carries a
// unique constraint, so re-processing the same card yields a conflict.
func (r *CINRepository) Save(ctx context.Context, rec *domain.CINRecord) (*CINRow, error) {
	dateNaissance, err := parseDate("date_naissance", rec.Naissance.Date)
	if err != nil {
		return nil, err
	}
	validite, err := parseDate("validite", rec.Validite)
	if err != nil {
		return nil, err
	}

	row := CINRow{
		CIN:             rec.CIN,
		NomFr:           rec.Identite.Nom.Fr,
		NomAr:           rec.Identite.Nom.Ar,
		PrenomFr:        rec.Identite.Prenom.Fr,
		PrenomAr:        rec.Identite.Prenom.Ar,
		DateNaissance:   dateNaissance,
		LieuFr:          rec.Naissance.Lieu.Fr,
		LieuAr:          rec.Naissance.Lieu.Ar,
		AdresseFr:       rec.Adresse.Fr,
		AdresseAr:       rec.Adresse.Ar,
		Sexe:            rec.Sexe,
		Validite:        validite,
		PereFr:          rec.Parents.Pere.Fr,
		PereAr:          rec.Parents.Pere.Ar,
		MereFr:          rec.Parents.Mere.Fr,
		MereAr:          rec.Parents.Mere.Ar,
		NumeroEtatCivil: rec.EtatCivil.NumeroEtatCivil,
	}

	query := `
		INSERT INTO cin_data (
			cin, nom_fr, nom_ar, prenom_fr, prenom_ar, date_naissance,
			lieu_fr, lieu_ar, adresse_fr, adresse_ar, sexe, validite,
			pere_fr, pere_ar, mere_fr, mere_ar, numero_etat_civil
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		row.CIN, row.NomFr, row.NomAr, row.PrenomFr, row.PrenomAr, row.DateNaissance,
		row.LieuFr, row.LieuAr, row.AdresseFr, row.AdresseAr, row.Sexe, row.Validite,
		row.PereFr, row.PereAr, row.MereFr, row.MereAr, row.NumeroEtatCivil,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	return &row, nil
}

// List returns all stored identity cards, newest first.
func (r *CINRepository) List(ctx context.Context) ([]*CINRow, error) {
	rows := []*CINRow{}
	query := `
		SELECT id, cin, nom_fr, nom_ar, prenom_fr, prenom_ar, date_naissance,
		       lieu_fr, lieu_ar, adresse_fr, adresse_ar, sexe, validite,
		       pere_fr, pere_ar, mere_fr, mere_ar, numero_etat_civil, created_at
		FROM cin_data
		ORDER BY id DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// Count returns the number of stored identity cards.
func (r *CINRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM cin_data`); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// GenderCounts returns the number of cards per sex marker.
func (r *CINRepository) GenderCounts(ctx context.Context) ([]GenderCount, error) {
	counts := []GenderCount{}
	query := `SELECT sexe, COUNT(*) AS count FROM cin_data GROUP BY sexe`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, mapError(err)
	}
	return counts, nil
}

// Places returns the location text of every card for city classification.
func (r *CINRepository) Places(ctx context.Context) ([]PlaceRow, error) {
	places := []PlaceRow{}
	query := `SELECT lieu_fr, adresse_fr FROM cin_data`
	if err := r.db.SelectContext(ctx, &places, query); err != nil {
		return nil, mapError(err)
	}
	return places, nil
}
