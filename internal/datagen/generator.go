// Package datagen generates a synthetic pharmaceutical sales dataset.
package datagen

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-pharma/internal/logging"
	"github.com/pgEdge/pgedge-pharma/internal/model"
)

var (
	regions        = []string{"North", "South", "East", "West", "Central"}
	teams          = []string{"Team A", "Team B", "Team C", "Team D"}
	tiers          = []string{"Top", "Medium", "Low"}
	tierWeights    = []int{20, 60, 20}
	specialties    = []string{"Cardiology", "Oncology", "Neurology", "Endocrinology", "General Practice"}
	volumes        = []string{"High", "Medium", "Low"}
	volumeWeights  = []int{30, 50, 20}
	categories     = []string{"Cardiovascular", "Diabetes", "Pain Management", "Antibiotics", "Oncology"}
	patentStatuses = []string{"Active", "Expiring Soon"}
	patentWeights  = []int{70, 30}
	potentials     = []string{model.PotentialHigh, model.PotentialMedium, model.PotentialLow}
	potentialWts   = []int{30, 50, 20}
	hospitalKinds  = []string{"General Hospital", "Medical Center", "Memorial Hospital", "Regional Clinic"}
	drugSyllables  = []string{"car", "dio", "vex", "zol", "pra", "lin", "tor", "max", "nex", "ora", "vil", "ten", "zep", "mab", "cor"}
	drugSuffixes   = []string{"ol", "ine", "ex", "an", "ium", "ide"}
)

const (
	hospitalPool = 50
	cityPool     = 100
)

var (
	hireStart   = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	launchStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Config sizes the generated dataset.
type Config struct {
	// Seed makes generation reproducible. Zero picks a random seed.
	Seed uint64

	Reps        int
	Doctors     int
	Products    int
	Territories int
	Sales       int

	// Start and End bound the date dimension (inclusive).
	Start time.Time
	End   time.Time

	// ProgressInterval is how often to log sales progress (in rows).
	ProgressInterval int64
}

// DefaultConfig returns the default dataset size: two years of sales
// across 50 reps, 500 doctors, 20 products and 25 territories.
func DefaultConfig() Config {
	return Config{
		Reps:             50,
		Doctors:          500,
		Products:         20,
		Territories:      25,
		Sales:            50000,
		Start:            time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:              time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		ProgressInterval: 10000,
	}
}

// Generator builds synthetic datasets.
type Generator struct {
	faker *Faker
	cfg   Config
}

// NewGenerator creates a generator for the given configuration.
func NewGenerator(cfg Config) *Generator {
	faker := NewFaker()
	if cfg.Seed != 0 {
		faker = NewFakerWithSeed(cfg.Seed)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}
	return &Generator{faker: faker, cfg: cfg}
}

// Generate produces a complete dataset. Every sale references existing
// dimension rows, so the result always passes Dataset.Validate.
func (g *Generator) Generate(ctx context.Context) (*model.Dataset, error) {
	cfg := g.cfg
	if cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			cfg.End.Format(time.DateOnly), cfg.Start.Format(time.DateOnly))
	}
	if cfg.Reps < 1 || cfg.Doctors < 1 || cfg.Products < 1 || cfg.Territories < 1 {
		return nil, fmt.Errorf("every dimension needs at least one row")
	}

	logging.Info().
		Int("reps", cfg.Reps).
		Int("doctors", cfg.Doctors).
		Int("products", cfg.Products).
		Int("territories", cfg.Territories).
		Int("sales", cfg.Sales).
		Msg("Generating pharma data")

	ds := &model.Dataset{
		Dates:       g.generateDates(),
		Reps:        g.generateReps(),
		Doctors:     g.generateDoctors(),
		Products:    g.generateProducts(),
		Territories: g.generateTerritories(),
	}

	sales, err := g.generateSales(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fact_sales: %w", err)
	}
	ds.Sales = sales

	return ds, nil
}

func (g *Generator) generateDates() []model.DateDim {
	start := truncateDay(g.cfg.Start)
	end := truncateDay(g.cfg.End)

	dates := make([]model.DateDim, 0, int(end.Sub(start).Hours()/24)+1)
	key := 1
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, model.NewDateDim(key, d))
		key++
	}
	return dates
}

func (g *Generator) generateReps() []model.SalesRep {
	reps := make([]model.SalesRep, 0, g.cfg.Reps)
	for i := 1; i <= g.cfg.Reps; i++ {
		reps = append(reps, model.SalesRep{
			Key:             i,
			Name:            Truncate(g.faker.Name(), 100),
			Region:          Choose(g.faker, regions),
			Team:            Choose(g.faker, teams),
			HireDate:        hireStart.AddDate(0, 0, 15*(i-1)),
			ExperienceYears: g.faker.Int(1, 7),
			PerformanceTier: ChooseWeighted(g.faker, tiers, tierWeights),
		})
	}
	return reps
}

func (g *Generator) generateDoctors() []model.Doctor {
	hospitals := make([]string, hospitalPool)
	for i := range hospitals {
		hospitals[i] = g.faker.LastName() + " " + Choose(g.faker, hospitalKinds)
	}
	cities := make([]string, cityPool)
	for i := range cities {
		cities[i] = g.faker.City()
	}

	doctors := make([]model.Doctor, 0, g.cfg.Doctors)
	for i := 1; i <= g.cfg.Doctors; i++ {
		doctors = append(doctors, model.Doctor{
			Key:                i,
			Name:               Truncate("Dr. "+g.faker.Name(), 100),
			Specialty:          Choose(g.faker, specialties),
			Hospital:           Truncate(Choose(g.faker, hospitals), 100),
			City:               Truncate(Choose(g.faker, cities), 100),
			PrescriptionVolume: ChooseWeighted(g.faker, volumes, volumeWeights),
		})
	}
	return doctors
}

func (g *Generator) generateProducts() []model.Product {
	used := make(map[string]struct{}, g.cfg.Products)
	products := make([]model.Product, 0, g.cfg.Products)
	for i := 1; i <= g.cfg.Products; i++ {
		name := g.drugName(used, i)
		products = append(products, model.Product{
			Key:          i,
			Name:         name,
			Category:     Choose(g.faker, categories),
			UnitPrice:    g.faker.Money(50, 500),
			LaunchDate:   launchStart.AddDate(0, 0, 60*(i-1)),
			PatentStatus: ChooseWeighted(g.faker, patentStatuses, patentWeights),
		})
	}
	return products
}

// drugName returns a brand-like name not yet in used.
func (g *Generator) drugName(used map[string]struct{}, key int) string {
	for attempt := 0; attempt < 10; attempt++ {
		name := g.faker.Syllables(2) + Choose(g.faker, drugSuffixes)
		if _, dup := used[name]; !dup {
			used[name] = struct{}{}
			return name
		}
	}
	name := fmt.Sprintf("%s-%d", g.faker.Syllables(2), key)
	used[name] = struct{}{}
	return name
}

func (g *Generator) generateTerritories() []model.Territory {
	used := make(map[string]struct{}, g.cfg.Territories)
	territories := make([]model.Territory, 0, g.cfg.Territories)
	for i := 1; i <= g.cfg.Territories; i++ {
		name := Truncate(g.faker.City(), 90)
		if _, dup := used[name]; dup {
			name = fmt.Sprintf("%s %d", name, i)
		}
		used[name] = struct{}{}

		territories = append(territories, model.Territory{
			Key:             i,
			Name:            name,
			Region:          Choose(g.faker, regions),
			State:           g.faker.State(),
			Population:      g.faker.Int64(100000, 5000000),
			MarketPotential: ChooseWeighted(g.faker, potentials, potentialWts),
		})
	}
	return territories
}

func (g *Generator) generateSales(ctx context.Context, ds *model.Dataset) ([]model.Sale, error) {
	count := g.cfg.Sales
	sales := make([]model.Sale, 0, count)
	progress := NewProgressReporter("fact_sales", int64(count), g.cfg.ProgressInterval)

	for i := 1; i <= count; i++ {
		if int64(i)%g.cfg.ProgressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			progress.Update(g.cfg.ProgressInterval)
		}

		product := Choose(g.faker, ds.Products)
		quantity := g.faker.Int64(1, 99)
		discount := g.faker.Money(0, 15)

		sales = append(sales, model.Sale{
			ID:              int64(i),
			DateKey:         Choose(g.faker, ds.Dates).Key,
			RepKey:          Choose(g.faker, ds.Reps).Key,
			DoctorKey:       Choose(g.faker, ds.Doctors).Key,
			ProductKey:      product.Key,
			TerritoryKey:    Choose(g.faker, ds.Territories).Key,
			QuantitySold:    quantity,
			Revenue:         Revenue(quantity, product.UnitPrice, discount),
			DiscountPercent: discount,
			MarketingSpend:  g.faker.Money(100, 5000),
		})
	}
	progress.Done()

	return sales, nil
}

var hundred = decimal.NewFromInt(100)

// Revenue is quantity * unit price less the discount, rounded to cents.
func Revenue(quantity int64, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	return decimal.NewFromInt(quantity).Mul(unitPrice).Mul(factor).Round(2)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	if interval <= 0 {
		interval = 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(max(p.totalRows, 1)) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Rows returns the number of rows reported so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.totalRows).
		Msg("Table complete")
}
