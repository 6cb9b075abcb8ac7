package repository

import (
	"context"
	"time"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/database"
)

// GrisRow is the flattened storage form of a vehicle registration record.
type GrisRow struct {
	ID                          int64     `db:"id" json:"id"`
	NumeroMatriculeMarocain     string    `db:"numero_matricule_marocain" json:"numero_matricule_marocain"`
	ImmatriculationAnterieure   string    `db:"immatriculation_anterieure" json:"immatriculation_anterieure"`
	DatePremiereImmatriculation time.Time `db:"date_premiere_immatriculation" json:"date_premiere_immatriculation"`
	DateDerniereImmatriculation time.Time `db:"date_derniere_immatriculation" json:"date_derniere_immatriculation"`
	DateMutation                time.Time `db:"date_mutation" json:"date_mutation"`
	Marque                      string    `db:"marque" json:"marque"`
	Type                        string    `db:"type" json:"type"`
	Genre                       string    `db:"genre" json:"genre"`
	TypeCarburant               string    `db:"type_carburant" json:"type_carburant"`
	NumeroChassis               string    `db:"numero_chassis" json:"numero_chassis"`
	NombreCylindres             int       `db:"nombre_cylindres" json:"nombre_cylindres"`
	PuissanceFiscale            int       `db:"puissance_fiscale" json:"puissance_fiscale"`
	Restriction                 string    `db:"restriction" json:"restriction"`
	UsageType                   string    `db:"usage_type" json:"usage_type"`
	UsageDescription            string    `db:"usage_description" json:"usage_description"`
	NomFr                       string    `db:"nom_fr" json:"nom_fr"`
	NomAr                       string    `db:"nom_ar" json:"nom_ar"`
	PrenomFr                    string    `db:"prenom_fr" json:"prenom_fr"`
	PrenomAr                    string    `db:"prenom_ar" json:"prenom_ar"`
	AdresseFr                   string    `db:"adresse_fr" json:"adresse_fr"`
	AdresseAr                   string    `db:"adresse_ar" json:"adresse_ar"`
	DateValidite                time.Time `db:"date_validite" json:"date_validite"`
	CreatedAt                   time.Time `db:"created_at" json:"created_at"`
}

// UsageCount is one slice of the vehicle usage distribution.
type UsageCount struct {
	UsageType string `db:"usage_type"`
	Count     int    `db:"count"`
}

// MonthCount is the number of first registrations in one YYYY-MM month.
type MonthCount struct {
	Month string `db:"month"`
	Count int    `db:"count"`
}

// GrisRepository handles vehicle registration persistence.
type GrisRepository struct {
	db *database.DB
}

func NewGrisRepository(db *database.DB) *GrisRepository {
	return &GrisRepository{db: db}
}

// Save inserts a validated vehicle registration record. The plate number
// carries a unique constraint.
func (r *GrisRepository) Save(ctx context.Context, rec *domain.GrisRecord) (*GrisRow, error) {
	premiere, err := parseDate("mise_en_circulation", rec.MiseEnCirculation.Date)
	if err != nil {
		return nil, err
	}
	derniere, err := parseDate("mise_en_circulation_au_maroc", rec.MiseEnCirculationAuMaroc.Date)
	if err != nil {
		return nil, err
	}
	mutation, err := parseDate("mutation", rec.Mutation.Date)
	if err != nil {
		return nil, err
	}
	validite, err := parseDate("validite", rec.Validite)
	if err != nil {
		return nil, err
	}

	row := GrisRow{
		NumeroMatriculeMarocain:     rec.NumeroMatriculeMarocain.Numero,
		ImmatriculationAnterieure:   rec.ImmatriculationAnterieure.Numero,
		DatePremiereImmatriculation: premiere,
		DateDerniereImmatriculation: derniere,
		DateMutation:                mutation,
		Marque:                      rec.Marque,
		Type:                        rec.Type,
		Genre:                       rec.Genre,
		TypeCarburant:               rec.TypeCarburant,
		NumeroChassis:               rec.NumeroChassis,
		NombreCylindres:             rec.NombreCylindres,
		PuissanceFiscale:            rec.PuissanceFiscale,
		Restriction:                 rec.Restriction,
		UsageType:                   rec.Usage.Type,
		UsageDescription:            rec.Usage.Description,
		NomFr:                       rec.Identite.Nom.Fr,
		NomAr:                       rec.Identite.Nom.Ar,
		PrenomFr:                    rec.Identite.Prenom.Fr,
		PrenomAr:                    rec.Identite.Prenom.Ar,
		AdresseFr:                   rec.Adresse.Fr,
		AdresseAr:                   rec.Adresse.Ar,
		DateValidite:                validite,
	}

	query := `
		INSERT INTO gris_data (
			numero_matricule_marocain, immatriculation_anterieure,
			date_premiere_immatriculation, date_derniere_immatriculation, date_mutation,
			marque, type, genre, type_carburant, numero_chassis,
			nombre_cylindres, puissance_fiscale, restriction,
			usage_type, usage_description,
			nom_fr, nom_ar, prenom_fr, prenom_ar, adresse_fr, adresse_ar, date_validite
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		          $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		row.NumeroMatriculeMarocain, row.ImmatriculationAnterieure,
		row.DatePremiereImmatriculation, row.DateDerniereImmatriculation, row.DateMutation,
		row.Marque, row.Type, row.Genre, row.TypeCarburant, row.NumeroChassis,
		row.NombreCylindres, row.PuissanceFiscale, row.Restriction,
		row.UsageType, row.UsageDescription,
		row.NomFr, row.NomAr, row.PrenomFr, row.PrenomAr, row.AdresseFr, row.AdresseAr, row.DateValidite,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}

	return &row, nil
}

// List returns all stored vehicle registrations, newest first.
func (r *GrisRepository) List(ctx context.Context) ([]*GrisRow, error) {
	rows := []*GrisRow{}
	query := `
		SELECT id, numero_matricule_marocain, immatriculation_anterieure,
		       date_premiere_immatriculation, date_derniere_immatriculation, date_mutation,
		       marque, type, genre, type_carburant, numero_chassis,
		       nombre_cylindres, puissance_fiscale, restriction,
		       usage_type, usage_description,
		       nom_fr, nom_ar, prenom_fr, prenom_ar, adresse_fr, adresse_ar,
		       date_validite, created_at
		FROM gris_data
		ORDER BY id DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// Count returns the number of stored vehicle registrations.
func (r *GrisRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM gris_data`); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// UsageCounts returns the number of registrations per usage type.
func (r *GrisRepository) UsageCounts(ctx context.Context) ([]UsageCount, error) {
	counts := []UsageCount{}
	query := `SELECT usage_type, COUNT(*) AS count FROM gris_data GROUP BY usage_type`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, mapError(err)
	}
	return counts, nil
}

// MonthlyEvolution returns first registrations per month, oldest first.
func (r *GrisRepository) MonthlyEvolution(ctx context.Context) ([]MonthCount, error) {
	counts := []MonthCount{}
	query := `
		SELECT to_char(date_premiere_immatriculation, 'YYYY-MM') AS month, COUNT(*) AS count
		FROM gris_data
		GROUP BY month
		ORDER BY month
	`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, mapError(err)
	}
	return counts, nil
}
