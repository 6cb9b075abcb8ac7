package domain

// DocumentType identifies which physical document a request concerns.
type DocumentType string

const (
	DocumentTypeCIN    DocumentType = "cin"    // carte nationale d'identité
	DocumentTypePermis DocumentType = "permis" // permis de conduire
	DocumentTypeGris   DocumentType = "gris"   // carte grise
)

// Valid reports whether the document type is one of the supported types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeCIN, DocumentTypePermis, DocumentTypeGris:
		return true
	}
	return false
}

// Stage tracks the progress of an extraction request through the pipeline.
type Stage string

const (
	StageReceived    Stage = "received"
	StageOCRDone     Stage = "ocr_done"
	StageModelCalled Stage = "model_called"
	StageParsed      Stage = "parsed"
	StageValidated   Stage = "validated"
	StagePersisted   Stage = "persisted"
	StageFailed      Stage = "failed"
)

// BilingualText carries independent Latin-script and Arabic-script
// representations of a value. The two sides are not a translation pair:
// no cross-side consistency is enforced.
type BilingualText struct {
	Fr string `json:"fr"`
	Ar string `json:"ar"`
}

// Identity is a bilingual surname/given-name pair.
type Identity struct {
	Nom    BilingualText `json:"nom"`
	Prenom BilingualText `json:"prenom"`
}

// Birth is a birth date with a bilingual birthplace.
type Birth struct {
	Date string        `json:"date"`
	Lieu BilingualText `json:"lieu"`
}

// Parents holds the bilingual names of both parents.
type Parents struct {
	Pere BilingualText `json:"pere"`
	Mere BilingualText `json:"mere"`
}

// CivilStatus holds the optional civil-registry number. The pointer is nil
// when the document carries no usable number (including CAN verso codes,
// which are deliberately discarded).
type CivilStatus struct {
	NumeroEtatCivil *string `json:"numero_etat_civil"`
}

// CINRecord is the structured form of a national identity card.
type CINRecord struct {
	CIN       string        `json:"cin"`
	Identite  Identity      `json:"identite"`
	Naissance Birth         `json:"naissance"`
	Adresse   BilingualText `json:"adresse"`
	Sexe      string        `json:"sexe"`
	Validite  string        `json:"validite"`
	Parents   Parents       `json:"parents"`
	EtatCivil CivilStatus   `json:"etat_civil"`
}

// LicenseDetails holds the license-specific fields of a driving license.
type LicenseDetails struct {
	NumeroPermis   string `json:"numero_permis"`
	DateDelivrance string `json:"date_delivrance"`
	DateExpiration string `json:"date_expiration"`
	Categorie      string `json:"categorie"`
}

// PermisRecord is the structured form of a driving license.
type PermisRecord struct {
	Permis    LicenseDetails `json:"permis"`
	Identite  Identity       `json:"identite"`
	Naissance Birth          `json:"naissance"`
}

// PlateNumber wraps a registration plate value.
type PlateNumber struct {
	Numero string `json:"numero"`
}

// DateField wraps a single date value.
type DateField struct {
	Date string `json:"date"`
}

// Usage is the declared use of a registered vehicle.
type Usage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// GrisRecord is the structured form of a vehicle registration card.
type GrisRecord struct {
	NumeroMatriculeMarocain   PlateNumber   `json:"numero_matricule_marocain"`
	ImmatriculationAnterieure PlateNumber   `json:"immatriculation_anterieure"`
	MiseEnCirculation         DateField     `json:"mise_en_circulation"`
	MiseEnCirculationAuMaroc  DateField     `json:"mise_en_circulation_au_maroc"`
	Mutation                  DateField     `json:"mutation"`
	Usage                     Usage         `json:"usage"`
	Marque                    string        `json:"marque"`
	Type                      string        `json:"type"`
	Genre                     string        `json:"genre"`
	TypeCarburant             string        `json:"type_carburant"`
	NumeroChassis             string        `json:"numero_chassis"`
	NombreCylindres           int           `json:"nombre_cylindres"`
	PuissanceFiscale          int           `json:"puissance_fiscale"`
	Restriction               string        `json:"restriction"`
	Identite                  Identity      `json:"identite"`
	Adresse                   BilingualText `json:"adresse"`
	Validite                  string        `json:"validite"`
}
