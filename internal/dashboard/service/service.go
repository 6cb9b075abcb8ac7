// Package service computes the dashboard chart data. All charts are
// derived from the stored document rows; the monthly and daily series
// spread the current totals over a fixed calendar shape because rows do
// not carry a processing timestamp usable for real series yet.
package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/docflow/docflow-backend/internal/document/repository"
	"github.com/docflow/docflow-backend/pkg/logger"
)

// CINStats exposes the identity card aggregates the charts need.
type CINStats interface {
	Count(ctx context.Context) (int, error)
	GenderCounts(ctx context.Context) ([]repository.GenderCount, error)
	Places(ctx context.Context) ([]repository.PlaceRow, error)
}

// PermisStats exposes the driving-license aggregates the charts need.
type PermisStats interface {
	Count(ctx context.Context) (int, error)
	CategoryCounts(ctx context.Context) ([]repository.CategoryCount, error)
}

// GrisStats exposes the vehicle registration aggregates the charts need.
type GrisStats interface {
	Count(ctx context.Context) (int, error)
	UsageCounts(ctx context.Context) ([]repository.UsageCount, error)
}

// Overview is the per-type card count summary.
type Overview struct {
	TotalCIN        int `json:"total_cin"`
	TotalGris       int `json:"total_gris"`
	TotalPermi      int `json:"total_permi"`
	TotalCards      int `json:"total_cards"`
	PercentageCIN   int `json:"percentage_cin"`
	PercentageGris  int `json:"percentage_gris"`
	PercentagePermi int `json:"percentage_permi"`
}

// Slice is one labelled segment of a distribution chart.
type Slice struct {
	Name       string  `json:"name"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

// MonthlyStat is one month of the processing volume series.
type MonthlyStat struct {
	Mois      string `json:"mois"`
	CIN       int    `json:"cin"`
	Gris      int    `json:"gris"`
	Permis    int    `json:"permis"`
	Precision int    `json:"precision"`
}

// DailyStat is one weekday of the processing volume series.
type DailyStat struct {
	Jour   string `json:"jour"`
	CIN    int    `json:"cin"`
	Gris   int    `json:"gris"`
	Permis int    `json:"permis"`
}

// SimpleStats is the reduced stat block of the essential dashboard.
type SimpleStats struct {
	TotalDocuments   int    `json:"total_documents"`
	CINCount         int    `json:"cin_count"`
	GrisCount        int    `json:"gris_count"`
	PermiCount       int    `json:"permi_count"`
	MostCommonGender string `json:"most_common_gender"`
}

// Essential bundles the charts that never depend on free-text parsing.
type Essential struct {
	Overview           Overview    `json:"overview"`
	GenderDistribution []Slice     `json:"gender_distribution"`
	SimpleStats        SimpleStats `json:"simple_stats"`
	Status             string      `json:"status"`
}

// Dashboard bundles every chart in one payload.
type Dashboard struct {
	Overview           Overview      `json:"overview"`
	GenderDistribution []Slice       `json:"gender_distribution"`
	CitiesDistribution []Slice       `json:"cities_distribution"`
	LicenseCategories  []Slice       `json:"license_categories"`
	CarUsageTypes      []Slice       `json:"car_usage_types"`
	MonthlyStats       []MonthlyStat `json:"monthly_stats"`
	DailyStats         []DailyStat   `json:"daily_stats"`
}

// city buckets, checked in order. Free-text birthplaces and addresses
// mention the city with inconsistent spelling.
var cityBuckets = []struct {
	name     string
	keywords []string
}{
	{"CASABLANCA", []string{"CASABLANCA", "CASA"}},
	{"RABAT", []string{"RABAT"}},
	{"FES", []string{"FES", "FÈS"}},
	{"MARRAKECH", []string{"MARRAKECH", "MARRAKESH"}},
	{"AGADIR", []string{"AGADIR"}},
	{"TANGER", []string{"TANGER", "TANGIER"}},
	{"MEKNES", []string{"MEKNES", "MEKNÈS"}},
	{"OUJDA", []string{"OUJDA"}},
	{"KENITRA", []string{"KENITRA", "KÉNITRA"}},
	{"TETOUAN", []string{"TETOUAN", "TÉTOUAN"}},
}

const otherCities = "AUTRES"

var monthLabels = []string{"Avr", "Mai", "Jun", "Jul", "Aoû", "Sep", "Oct"}
var dayLabels = []string{"Lun", "Mar", "Mer", "Jeu", "Ven", "Sam", "Dim"}

// Service computes dashboard chart data from the stored rows.
type Service struct {
	cin    CINStats
	permis PermisStats
	gris   GrisStats
	log    *logger.Logger
}

// New creates a new dashboard service
func New(cin CINStats, permis PermisStats, gris GrisStats, log *logger.Logger) *Service {
	return &Service{cin: cin, permis: permis, gris: gris, log: log}
}

// Overview returns the per-type totals and their share of all cards.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	totalCIN, err := s.cin.Count(ctx)
	if err != nil {
		return Overview{}, err
	}
	totalGris, err := s.gris.Count(ctx)
	if err != nil {
		return Overview{}, err
	}
	totalPermi, err := s.permis.Count(ctx)
	if err != nil {
		return Overview{}, err
	}

	total := totalCIN + totalGris + totalPermi
	return Overview{
		TotalCIN:        totalCIN,
		TotalGris:       totalGris,
		TotalPermi:      totalPermi,
		TotalCards:      total,
		PercentageCIN:   wholePercent(totalCIN, total),
		PercentageGris:  wholePercent(totalGris, total),
		PercentagePermi: wholePercent(totalPermi, total),
	}, nil
}

// GenderDistribution buckets identity cards into Hommes, Femmes and
// Non spécifié, most common first.
func (s *Service) GenderDistribution(ctx context.Context) ([]Slice, error) {
	counts, err := s.cin.GenderCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []Slice{}, nil
	}

	var hommes, femmes, other, total int
	for _, c := range counts {
		switch c.Sexe {
		case "M":
			hommes += c.Count
		case "F":
			femmes += c.Count
		default:
			other += c.Count
		}
		total += c.Count
	}

	slices := make([]Slice, 0, 3)
	for _, bucket := range []struct {
		name  string
		count int
	}{
		{"Hommes", hommes},
		{"Femmes", femmes},
		{"Non spécifié", other},
	} {
		if bucket.count == 0 {
			continue
		}
		slices = append(slices, Slice{
			Name:       bucket.name,
			Value:      bucket.count,
			Percentage: float64(wholePercent(bucket.count, total)),
		})
	}
	sortSlices(slices)
	return slices, nil
}

// CitiesDistribution classifies identity cards by city keywords found in
// the birthplace, falling back to the address, and returns the top ten
// buckets.
func (s *Service) CitiesDistribution(ctx context.Context) ([]Slice, error) {
	places, err := s.cin.Places(ctx)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return []Slice{}, nil
	}

	counts := make(map[string]int)
	for _, p := range places {
		counts[classifyCity(p)]++
	}

	slices := make([]Slice, 0, len(counts))
	for city, count := range counts {
		slices = append(slices, Slice{
			Name:       city,
			Value:      count,
			Percentage: onePercent(count, len(places)),
		})
	}
	sortSlices(slices)
	if len(slices) > 10 {
		slices = slices[:10]
	}
	return slices, nil
}

// LicenseCategories returns the distribution of driving-license
// categories. Rows without a category count as category B.
func (s *Service) LicenseCategories(ctx context.Context) ([]Slice, error) {
	counts, err := s.permis.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []Slice{}, nil
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	merged := make(map[string]int)
	for _, c := range counts {
		category := c.Categorie
		if category == "" {
			category = "B"
		}
		merged["Catégorie "+category] += c.Count
	}

	slices := make([]Slice, 0, len(merged))
	for name, count := range merged {
		slices = append(slices, Slice{
			Name:       name,
			Value:      count,
			Percentage: onePercent(count, total),
		})
	}
	sortSlices(slices)
	return slices, nil
}

// CarUsageTypes returns the distribution of vehicle usage types. Rows
// without a usage count as Particulier.
func (s *Service) CarUsageTypes(ctx context.Context) ([]Slice, error) {
	counts, err := s.gris.UsageCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []Slice{}, nil
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	merged := make(map[string]int)
	for _, c := range counts {
		usage := c.UsageType
		if usage == "" {
			usage = "Particulier"
		}
		merged[usage] += c.Count
	}

	slices := make([]Slice, 0, len(merged))
	for name, count := range merged {
		slices = append(slices, Slice{
			Name:       name,
			Value:      count,
			Percentage: onePercent(count, total),
		})
	}
	sortSlices(slices)
	return slices, nil
}

// MonthlyStats spreads the current totals over the season with a ramp-up
// shape and a peak on the last month.
func (s *Service) MonthlyStats(ctx context.Context) ([]MonthlyStat, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}

	baseCIN := monthlyBase(overview.TotalCIN)
	baseGris := monthlyBase(overview.TotalGris)
	basePermi := monthlyBase(overview.TotalPermi)

	stats := make([]MonthlyStat, 0, len(monthLabels))
	for i, month := range monthLabels {
		factor := 2.0
		if i < len(monthLabels)-1 {
			factor = 0.3 + float64(i)*0.1
		}
		precision := 85 + i*2
		if precision > 98 {
			precision = 98
		}
		stats = append(stats, MonthlyStat{
			Mois:      month,
			CIN:       scaled(baseCIN, factor),
			Gris:      scaled(baseGris, factor),
			Permis:    scaled(basePermi, factor),
			Precision: precision,
		})
	}
	return stats, nil
}

// DailyStats spreads the current totals over a week: ramping weekdays, a
// quiet Saturday and a peak on the last day.
func (s *Service) DailyStats(ctx context.Context) ([]DailyStat, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}

	baseCIN := monthlyBase(overview.TotalCIN)
	baseGris := monthlyBase(overview.TotalGris)
	basePermi := monthlyBase(overview.TotalPermi)

	stats := make([]DailyStat, 0, len(dayLabels))
	for i, day := range dayLabels {
		var factor float64
		switch {
		case i == len(dayLabels)-1:
			factor = 2.0
		case i < 5:
			factor = 1.0 + float64(i)*0.2
		default:
			factor = 0.2
		}
		stats = append(stats, DailyStat{
			Jour:   day,
			CIN:    scaled(baseCIN, factor),
			Gris:   scaled(baseGris, factor),
			Permis: scaled(basePermi, factor),
		})
	}
	return stats, nil
}

// Essential returns only the charts backed by structured columns.
func (s *Service) Essential(ctx context.Context) (Essential, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return Essential{}, err
	}
	gender, err := s.GenderDistribution(ctx)
	if err != nil {
		return Essential{}, err
	}

	mostCommon := "Non déterminé"
	if len(gender) > 0 && gender[0].Name == "Hommes" {
		mostCommon = "Hommes"
	}

	return Essential{
		Overview:           overview,
		GenderDistribution: gender,
		SimpleStats: SimpleStats{
			TotalDocuments:   overview.TotalCards,
			CINCount:         overview.TotalCIN,
			GrisCount:        overview.TotalGris,
			PermiCount:       overview.TotalPermi,
			MostCommonGender: mostCommon,
		},
		Status: "success",
	}, nil
}

// Dashboard returns every chart in one payload.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	gender, err := s.GenderDistribution(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	cities, err := s.CitiesDistribution(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	categories, err := s.LicenseCategories(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	usages, err := s.CarUsageTypes(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	monthly, err := s.MonthlyStats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	daily, err := s.DailyStats(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Overview:           overview,
		GenderDistribution: gender,
		CitiesDistribution: cities,
		LicenseCategories:  categories,
		CarUsageTypes:      usages,
		MonthlyStats:       monthly,
		DailyStats:         daily,
	}, nil
}

func classifyCity(p repository.PlaceRow) string {
	text := p.LieuFr
	if text == "" {
		text = p.AdresseFr
	}
	text = strings.ToUpper(text)

	for _, bucket := range cityBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(text, keyword) {
				return bucket.name
			}
		}
	}
	return otherCities
}

func sortSlices(slices []Slice) {
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Name < slices[j].Name
	})
}

func wholePercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func onePercent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func monthlyBase(total int) int {
	base := total / 7
	if base < 1 {
		base = 1
	}
	return base
}

func scaled(base int, factor float64) int {
	v := int(float64(base) * factor)
	if v < 0 {
		return 0
	}
	return v
}
