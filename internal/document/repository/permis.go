package repository

import (
	"context"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/database"
)

// PermisRow is the flattened storage form of a driving-license record.
type PermisRow struct {
	ID             int64     `db:"id" json:"id"`
	NumeroPermis   string    `db:"numero_permis" json:"numero_permis"`
	NomFr          string    `db:"nom_fr" json:"nom_fr"`
	NomAr          string    `db:"nom_ar" json:"nom_ar"`
	PrenomFr       string    `db:"prenom_fr" json:"prenom_fr"`
	PrenomAr       string    `db:"prenom_ar" json:"prenom_ar"`
	DateNaissance  time.Time `db:"date_naissance" json:"date_naissance"`
	LieuFr         string    `db:"lieu_fr" json:"lieu_fr"`
	LieuAr         string    `db:"lieu_ar" json:"lieu_ar"`
	DateDelivrance time.Time `db:"date_delivrance" json:"date_delivrance"`
	DateExpiration time.Time `db:"date_expiration" json:"date_expiration"`
	Categorie      string    `db:"categorie" json:"categorie"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CategoryCount is one slice of the license category distribution.
type CategoryCount struct {
	Categorie string `db:"categorie"`
	Count     int    `db:"count"`
}

// PermisRepository handles driving-license persistence.
type PermisRepository struct {
	db *database.DB
}

func NewPermisRepository(db *database.DB) *PermisRepository {
	return &PermisRepository{db: db}
}

// Save inserts a validated driving-license record. numero_permis carries a
// unique constraint.
func (r *PermisRepository) Save(ctx context.Context, rec *domain.PermisRecord) (*PermisRow, error) {
	dateNaissance, err := parseDate("date_naissance", rec.Naissance.Date)
	if err != nil {
		return nil, err
	}
	dateDelivrance, err := parseDate("date_delivrance", rec.Permis.DateDelivrance)
	if err != nil {
		return nil, err
	}
	dateExpiration, err := parseDate("date_expiration", rec.Permis.DateExpiration)
	if err != nil {
		return nil, err
	}

	row := PermisRow{
		NumeroPermis:   rec.Permis.NumeroPermis,
		NomFr:          rec.Identite.Nom.Fr,
		NomAr:          rec.Identite.Nom.Ar,
		PrenomFr:       rec.Identite.Prenom.Fr,
		PrenomAr:       rec.Identite.Prenom.Ar,
		DateNaissance:  dateNaissance,
		LieuFr:         rec.Naissance.Lieu.Fr,
		LieuAr:         rec.Naissance.Lieu.Ar,
		DateDelivrance: dateDelivrance,
		DateExpiration: dateExpiration,
		Categorie:      rec.Permis.Categorie,
	}

	query := `
		INSERT INTO permi_data (
			numero_permis, nom_fr, nom_ar, prenom_fr, prenom_ar, date_naissance,
			lieu_fr, lieu_ar, date_delivrance, date_expiration, categorie
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		row.NumeroPermis, row.NomFr, row.NomAr, row.PrenomFr, row.PrenomAr, row.DateNaissance,
		row.LieuFr, row.LieuAr, row.DateDelivrance, row.DateExpiration, row.Categorie,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	return &row, nil
}

// List returns all stored driving licenses, newest first.
func (r *PermisRepository) List(ctx context.Context) ([]*PermisRow, error) {
	rows := []*PermisRow{}
	query := `
		SELECT id, numero_permis, nom_fr, nom_ar, prenom_fr, prenom_ar, date_naissance,
		       lieu_fr, lieu_ar, date_delivrance, date_expiration, categorie, created_at
		FROM permi_data
		ORDER BY id DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// Count returns the number of stored driving licenses.
func (r *PermisRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM permi_data`); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// CategoryCounts returns the number of licenses per category.
func (r *PermisRepository) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	counts := []CategoryCount{}
	query := `SELECT categorie, COUNT(*) AS count FROM permi_data GROUP BY categorie`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, mapError(err)
	}
	return counts, nil
}
