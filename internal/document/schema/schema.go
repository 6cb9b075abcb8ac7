// Package schema composes the per-field validators into whole-record
// validation for each document type. Validation canonicalizes records in
// place: a record that validates is also in canonical form afterwards.
package schema

import (
	"fmt"
	"strings"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/internal/document/field"
)

// Tables holds the closed value sets used during validation. They are
// provided at construction and never mutated, so a single Validator is
// safe for concurrent use.
type Tables struct {
	LicenseCategories []string
	UsageTypes        []string
}

// DefaultTables returns the value sets for current Moroccan documents.
func DefaultTables() Tables {
	return Tables{
		LicenseCategories: []string{"A1", "A", "B", "C", "D", "E(B)", "E(C)", "E(D)"},
		UsageTypes: []string{
			"Particulier",
			"Transport de marchandises",
			"Transport en commun",
			"Location avec chauffeur",
			"Location sans chauffeur",
		},
	}
}

// Validator validates extracted document records against the field formats
// and cross-field rules of each document type.
type Validator struct {
	tables Tables
}

func NewValidator(tables Tables) *Validator {
	return &Validator{tables: tables}
}

// ValidateCIN checks and canonicalizes an identity card record.
func (v *Validator) ValidateCIN(rec *domain.CINRecord) error {
	var err error

	if rec.CIN, err = field.CIN("cin", rec.CIN); err != nil {
		return err
	}
	if err = v.bilingual("nom", &rec.Identite.Nom, field.LatinLoose); err != nil {
		return err
	}
	if err = v.bilingual("prenom", &rec.Identite.Prenom, field.LatinLoose); err != nil {
		return err
	}
	if rec.Naissance.Date, err = field.Date("date_naissance", rec.Naissance.Date); err != nil {
		return err
	}
	if err = v.bilingual("lieu_naissance", &rec.Naissance.Lieu, field.LatinLoose); err != nil {
		return err
	}
	if err = v.bilingual("adresse", &rec.Adresse, field.LatinLoose); err != nil {
		return err
	}
	if rec.Sexe, err = field.Sex("sexe", rec.Sexe); err != nil {
		return err
	}
	if rec.Validite, err = field.Date("validite", rec.Validite); err != nil {
		return err
	}
	if err = v.bilingual("nom_pere", &rec.Parents.Pere, field.LatinLoose); err != nil {
		return err
	}
	if err = v.bilingual("nom_mere", &rec.Parents.Mere, field.LatinLoose); err != nil {
		return err
	}

	if rec.EtatCivil.NumeroEtatCivil != nil {
		canon, err := field.CivilRegistry("numero_etat_civil", *rec.EtatCivil.NumeroEtatCivil)
		if err != nil {
			return err
		}
		if canon == "" {
			rec.EtatCivil.NumeroEtatCivil = nil
		} else {
			rec.EtatCivil.NumeroEtatCivil = &canon
		}
	}

	return nil
}

// ValidatePermis checks and canonicalizes a driving-license record.
// Expiration must fall strictly after delivery.
func (v *Validator) ValidatePermis(rec *domain.PermisRecord) error {
	var err error

	if rec.Permis.NumeroPermis, err = field.LicenseNumber("numero_permis", rec.Permis.NumeroPermis); err != nil {
		return err
	}
	if rec.Permis.DateDelivrance, err = field.Date("date_delivrance", rec.Permis.DateDelivrance); err != nil {
		return err
	}
	if rec.Permis.DateExpiration, err = field.Date("date_expiration", rec.Permis.DateExpiration); err != nil {
		return err
	}
	if rec.Permis.Categorie, err = field.Member("categorie", rec.Permis.Categorie, v.tables.LicenseCategories); err != nil {
		return err
	}
	if err = v.bilingual("nom", &rec.Identite.Nom, field.LatinStrict); err != nil {
		return err
	}
	if err = v.bilingual("prenom", &rec.Identite.Prenom, field.LatinStrict); err != nil {
		return err
	}
	if rec.Naissance.Date, err = field.Date("date_naissance", rec.Naissance.Date); err != nil {
		return err
	}
	if err = v.bilingual("lieu_naissance", &rec.Naissance.Lieu, field.LatinLoose); err != nil {
		return err
	}

	if !dateAfter(rec.Permis.DateExpiration, rec.Permis.DateDelivrance) {
		return domain.NewValidationError("date_expiration", rec.Permis.DateExpiration,
			fmt.Sprintf("expiration date must fall after delivery date %s", rec.Permis.DateDelivrance))
	}

	return nil
}

// ValidateGris checks and canonicalizes a vehicle registration record.
// It runs after normalization, so plate, usage and numeric fields are
// expected in canonical form already.
func (v *Validator) ValidateGris(rec *domain.GrisRecord) error {
	var err error

	if rec.NumeroMatriculeMarocain.Numero, err = field.Plate("numero_matricule_marocain", rec.NumeroMatriculeMarocain.Numero); err != nil {
		return err
	}
	if rec.ImmatriculationAnterieure.Numero, err = field.PriorPlate("immatriculation_anterieure", rec.ImmatriculationAnterieure.Numero); err != nil {
		return err
	}
	if rec.MiseEnCirculation.Date, err = field.Date("mise_en_circulation", rec.MiseEnCirculation.Date); err != nil {
		return err
	}
	if rec.MiseEnCirculationAuMaroc.Date, err = field.Date("mise_en_circulation_au_maroc", rec.MiseEnCirculationAuMaroc.Date); err != nil {
		return err
	}
	if rec.Mutation.Date, err = field.Date("mutation", rec.Mutation.Date); err != nil {
		return err
	}
	if rec.Usage.Type, err = field.Member("usage", rec.Usage.Type, v.tables.UsageTypes); err != nil {
		return err
	}
	if rec.Usage.Description, err = field.MinLen("usage_description", rec.Usage.Description, 3); err != nil {
		return err
	}
	if err = v.bilingual("nom", &rec.Identite.Nom, field.LatinLoose); err != nil {
		return err
	}
	if err = v.bilingual("prenom", &rec.Identite.Prenom, field.LatinLoose); err != nil {
		return err
	}
	if err = v.bilingual("adresse", &rec.Adresse, field.LatinLoose); err != nil {
		return err
	}
	if rec.Marque, err = field.MinLen("marque", rec.Marque, 2); err != nil {
		return err
	}
	if rec.Type, err = field.MinLen("type", rec.Type, 1); err != nil {
		return err
	}
	if rec.Genre, err = field.MinLen("genre", rec.Genre, 1); err != nil {
		return err
	}
	if rec.TypeCarburant, err = field.MinLen("type_carburant", rec.TypeCarburant, 1); err != nil {
		return err
	}
	if rec.NumeroChassis, err = field.MinLen("numero_chassis", rec.NumeroChassis, 2); err != nil {
		return err
	}
	if rec.Validite, err = field.Date("validite", rec.Validite); err != nil {
		return err
	}

	return nil
}

// bilingual applies the given validator to the Latin side and the Arabic
// validator to the Arabic side of a bilingual field, canonicalizing both.
func (v *Validator) bilingual(name string, bt *domain.BilingualText, latin func(string, string) (string, error)) error {
	var err error
	if bt.Fr, err = latin(name+"_fr", bt.Fr); err != nil {
		return err
	}
	if bt.Ar, err = field.Arabic(name+"_ar", bt.Ar); err != nil {
		return err
	}
	return nil
}

// dateAfter reports whether a falls strictly after b. Both are canonical
// DD.MM.YYYY strings; comparison is lexicographic on (year, month, day).
func dateAfter(a, b string) bool {
	ka, oka := dateKey(a)
	kb, okb := dateKey(b)
	if !oka || !okb {
		return false
	}
	return ka > kb
}

func dateKey(s string) (string, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return "", false
	}
	return parts[2] + parts[1] + parts[0], true
}
