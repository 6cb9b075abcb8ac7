package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow-backend/internal/document/domain"
)

func validCIN() domain.CINRecord {
	num := "123-1995"
	return domain.CINRecord{
		CIN: "ab123456",
		Identite: domain.Identity{
			Nom:    domain.BilingualText{Fr: "EL AMRANI", Ar: "العمراني"},
			Prenom: domain.BilingualText{Fr: "MOHAMED", Ar: "محمد"},
		},
		Naissance: domain.Birth{
			Date: "01/01/1990",
			Lieu: domain.BilingualText{Fr: "CASABLANCA", Ar: "الدار البيضاء"},
		},
		Adresse:  domain.BilingualText{Fr: "HAY SALAM RUE 5", Ar: "حي السلام"},
		Sexe:     "M",
		Validite: "01.01.2030",
		Parents: domain.Parents{
			Pere: domain.BilingualText{Fr: "AHMED", Ar: "أحمد"},
			Mere: domain.BilingualText{Fr: "FATIMA", Ar: "فاطمة"},
		},
		EtatCivil: domain.CivilStatus{NumeroEtatCivil: &num},
	}
}

func validPermis() domain.PermisRecord {
	return domain.PermisRecord{
		Permis: domain.LicenseDetails{
			NumeroPermis:   "55/193059",
			DateDelivrance: "15-06-2015",
			DateExpiration: "15.06.2025",
			Categorie:      "B",
		},
		Identite: domain.Identity{
			Nom:    domain.BilingualText{Fr: "EL AMRANI", Ar: "العمراني"},
			Prenom: domain.BilingualText{Fr: "MOHAMED", Ar: "محمد"},
		},
		Naissance: domain.Birth{
			Date: "01.01.1990",
			Lieu: domain.BilingualText{Fr: "CASABLANCA", Ar: "الدار البيضاء"},
		},
	}
}

func validGris() domain.GrisRecord {
	return domain.GrisRecord{
		NumeroMatriculeMarocain:   domain.PlateNumber{Numero: "1107 أ 81"},
		ImmatriculationAnterieure: domain.PlateNumber{Numero: "WW-123456"},
		MiseEnCirculation:         domain.DateField{Date: "01.01.2015"},
		MiseEnCirculationAuMaroc:  domain.DateField{Date: "01.06.2015"},
		Mutation:                  domain.DateField{Date: "01.06.2020"},
		Usage:                     domain.Usage{Type: "Particulier", Description: "usage personnel"},
		Marque:                    "DACIA",
		Type:                      "LOGAN",
		Genre:                     "VP",
		TypeCarburant:             "ESSENCE",
		NumeroChassis:             "UU1LSDABC12345678",
		NombreCylindres:           4,
		PuissanceFiscale:          8,
		Identite: domain.Identity{
			Nom:    domain.BilingualText{Fr: "EL AMRANI", Ar: "العمراني"},
			Prenom: domain.BilingualText{Fr: "MOHAMED", Ar: "محمد"},
		},
		Adresse:  domain.BilingualText{Fr: "HAY SALAM RUE 5", Ar: "حي السلام"},
		Validite: "01.01.2030",
	}
}

func TestValidateCIN_Canonicalizes(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validCIN()

	require.NoError(t, v.ValidateCIN(&rec))

	assert.Equal(t, "AB123456", rec.CIN)
	assert.Equal(t, "01.01.1990", rec.Naissance.Date)
	require.NotNil(t, rec.EtatCivil.NumeroEtatCivil)
	assert.Equal(t, "123/1995", *rec.EtatCivil.NumeroEtatCivil)
}

func TestValidateCIN_CANRegistryDiscarded(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validCIN()
	num := "CAN279975"
	rec.EtatCivil.NumeroEtatCivil = &num

	require.NoError(t, v.ValidateCIN(&rec))
	assert.Nil(t, rec.EtatCivil.NumeroEtatCivil)
}

func TestValidateCIN_FieldErrorNamesField(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validCIN()
	rec.Sexe = "X"

	err := v.ValidateCIN(&rec)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sexe", verr.Field)
	assert.Equal(t, "X", verr.Raw)
}

func TestValidatePermis_Canonicalizes(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validPermis()

	require.NoError(t, v.ValidatePermis(&rec))
	assert.Equal(t, "15.06.2015", rec.Permis.DateDelivrance)
}

func TestValidatePermis_ExpirationMustFollowDelivery(t *testing.T) {
	v := NewValidator(DefaultTables())

	rec := validPermis()
	rec.Permis.DateExpiration = "15.06.2015"
	err := v.ValidatePermis(&rec)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "date_expiration", verr.Field)

	// Later day within the same month is fine.
	rec = validPermis()
	rec.Permis.DateExpiration = "16.06.2015"
	assert.NoError(t, v.ValidatePermis(&rec))
}

func TestValidatePermis_Category(t *testing.T) {
	v := NewValidator(DefaultTables())

	for _, c := range []string{"A1", "A", "B", "C", "D", "E(B)", "E(C)", "E(D)"} {
		rec := validPermis()
		rec.Permis.Categorie = c
		assert.NoError(t, v.ValidatePermis(&rec), c)
	}

	rec := validPermis()
	rec.Permis.Categorie = "F"
	assert.Error(t, v.ValidatePermis(&rec))
}

func TestValidateGris(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validGris()

	require.NoError(t, v.ValidateGris(&rec))

	rec = validGris()
	rec.NumeroMatriculeMarocain.Numero = "1107-1-81"
	assert.Error(t, v.ValidateGris(&rec), "dash plates must be normalized before validation")

	rec = validGris()
	rec.Usage.Type = "privé"
	assert.Error(t, v.ValidateGris(&rec), "usage synonyms must be normalized before validation")

	// Zero is a value the coercion helper can produce and the card can carry.
	rec = validGris()
	rec.NombreCylindres = 0
	assert.NoError(t, v.ValidateGris(&rec))
}

func TestValidateGris_UsageDescriptionTooShort(t *testing.T) {
	v := NewValidator(DefaultTables())
	rec := validGris()
	rec.Usage.Description = "ab"

	err := v.ValidateGris(&rec)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "usage_description", verr.Field)
}

func TestBilingualProfiles(t *testing.T) {
	v := NewValidator(DefaultTables())

	// Identity cards and registration cards accept mixed-case Latin text;
	// only the share of Arabic code points is limited.
	cin := validCIN()
	cin.Identite.Prenom.Fr = "Jean"
	assert.NoError(t, v.ValidateCIN(&cin))

	gris := validGris()
	gris.Identite.Prenom.Fr = "Jean"
	assert.NoError(t, v.ValidateGris(&gris))

	// Driving licenses keep the strict uppercase charset.
	permis := validPermis()
	permis.Identite.Prenom.Fr = "Jean"
	assert.Error(t, v.ValidatePermis(&permis))
}

func TestValidatorTablesAreInjected(t *testing.T) {
	v := NewValidator(Tables{
		LicenseCategories: []string{"B"},
		UsageTypes:        []string{"Particulier"},
	})

	rec := validPermis()
	rec.Permis.Categorie = "A"
	assert.Error(t, v.ValidatePermis(&rec))
}
