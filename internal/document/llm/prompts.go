package llm

import "fmt"

const (
	cinSystemPrompt = "Tu es expert en cartes d'identité marocaines bilingues. " +
		"Sépare parfaitement le FRANÇAIS et l'ARABE, retourne uniquement JSON."

	permisSystemPrompt = "Tu es un expert en permis de conduire marocains bilingues. " +
		"Extrais les champs avec séparation FR/AR."

	grisSystemPrompt = "Tu extrais des données de cartes grises. " +
		"JSON valide uniquement, formats exacts requis."
)

func cinUserPrompt(rawText string) string {
	return fmt.Sprintf(`Voici du texte OCR extrait d'une carte nationale d'identité marocaine CNIE bilingue.

INSTRUCTIONS STRICTES:
1. SÉPARE le texte français du texte arabe pour chaque champ.
2. Le français utilise l'alphabet latin (A-Z, 0-9).
3. L'arabe utilise l'alphabet arabe (٠-٩, ا-ي).
4. Pour l'adresse : cherche 'RES', 'IMM', 'NR', 'CASA' = français / cherche 'إقامة', 'عمارة', 'رقم' = arabe.
5. Pour les noms : cherche la version MAJUSCULES = français / cherche les caractères arabes = arabe.
6. Pour les lieux : ex 'AIN SEBAA' = français / 'عين السبع' = arabe.
7. Numéro d'état civil = uniquement registre naissance. Ne pas mettre le numéro du verso (ex: CAN 279975).
8. Concernant les noms des parents, ignore Fils de / Fille de / Et de / و.
9. Concernant le lieu de naissance en arabe ignore ب.

Texte OCR à analyser:
%s`, rawText)
}

func permisUserPrompt(rawText string) string {
	return fmt.Sprintf(`Voici du texte OCR extrait d'un permis de conduire marocain bilingue.

INSTRUCTIONS STRICTES:
1. SÉPARE le texte français du texte arabe pour chaque champ.
2. Le numéro de permis est au format N/MMMMMM (ex: 55/193059).
3. DÉTECTION DE LA CATÉGORIE :
   - Cherche dans le texte les catégories suivantes UNIQUEMENT : A1, A, B, C, D, E(B), E(C), E(D)
   - Ces catégories peuvent apparaître :
     * Dans un carré sur le recto du permis
     * Dans le tableau "Catégories | Date de délivrance | Restrictions" au verso
     * Accompagnées de leur équivalent arabe : A1 (1أ), A (أ), B (ب), C (ج), D (د)
   - Si plusieurs catégories sont présentes, prends celle associée à la date de délivrance principale
4. Les dates sont au format DD.MM.YYYY.

IMPORTANT : La catégorie doit être exactement l'une de ces valeurs : A1, A, B, C, D, E(B), E(C), E(D)

Texte OCR :
%s`, rawText)
}

func grisUserPrompt(rawText string) string {
	return fmt.Sprintf(`Tu es un expert en extraction de données de cartes grises marocaines.
Analyse le texte OCR et retourne UNIQUEMENT un JSON avec les données extraites.

ATTENTION FORMATS CRITIQUES :
- numero_matricule_marocain : Format EXACT "NNNN L NN" avec espaces (ex: "1234 أ 56")
- immatriculation_anterieure : Format EXACT "WW-NNNNNN" avec tiret (ex: "WW-123456")
- usage.type : EXACTEMENT un de ces mots: "Particulier", "Transport de marchandises", "Transport en commun", "Location avec chauffeur", "Location sans chauffeur"

STRUCTURE JSON ATTENDUE:
{
  "numero_matricule_marocain": { "numero": "1234 أ 56" },
  "immatriculation_anterieure": { "numero": "WW-123456" },
  "mise_en_circulation": { "date": "01.01.2020" },
  "mise_en_circulation_au_maroc": { "date": "01.01.2020" },
  "mutation": { "date": "01.01.2021" },
  "usage": { "type": "Particulier", "description": "Usage personnel" },
  "marque": "Toyota",
  "type": "Berline",
  "genre": "VP",
  "type_carburant": "Essence",
  "numero_chassis": "ABC123456789",
  "nombre_cylindres": 4,
  "puissance_fiscale": 8,
  "restriction": "Aucune",
  "identite": {
    "nom": { "fr": "DUPONT", "ar": "دوبونت" },
    "prenom": { "fr": "Jean", "ar": "جان" }
  },
  "adresse": { "fr": "Casablanca", "ar": "الدار البيضاء" },
  "validite": "31.12.2025"
}

RÈGLES IMPORTANTES :
- Si un numéro ressemble à "1107-1-81", convertis en "1107 أ 81" (remplace tirets par espaces et chiffre du milieu par lettre arabe)
- Si immatriculation est "WW131384", convertis en "WW-131384"
- Pour usage, utilise EXACTEMENT "Particulier" au lieu de "Propriétaire"
- JAMAIS de valeur null pour les nombres, utilise des valeurs par défaut réalistes
- Retourne UNIQUEMENT le JSON, aucun autre texte

Texte OCR :
%s`, rawText)
}
