package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/logging"
)

// Config controls the generated data set.
type Config struct {
	// Dir receives the files; it is created if missing.
	Dir string

	// Seed makes the output reproducible. Zero picks a random seed.
	Seed uint64

	StartYear int
	EndYear   int

	// Metros is the number of generated metropolitan areas.
	Metros int

	// FoodItems and States cap how many items and states are used.
	FoodItems int
	States    int

	// Malformed adds a few bad rows to every file.
	Malformed bool

	Files config.FilesConfig
}

// DefaultConfig returns the sample configuration used by the sample
// command.
func DefaultConfig() Config {
	return Config{
		Dir:       "data",
		StartYear: 2019,
		EndYear:   2023,
		Metros:    6,
		FoodItems: len(foodItems),
		States:    20,
		Malformed: true,
		Files:     config.DefaultFiles(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.StartYear < 1900 || c.EndYear < c.StartYear {
		return fmt.Errorf("invalid year range %d-%d", c.StartYear, c.EndYear)
	}
	if c.Metros < 0 || c.FoodItems < 1 || c.States < 1 {
		return fmt.Errorf("metros, food items and states must be positive")
	}
	return nil
}

// FileStats describes one written file.
type FileStats struct {
	Name  string
	Rows  int
	Bytes int64
}

// Generator writes a consistent set of source files.
type Generator struct {
	cfg   Config
	faker *Faker

	metros []area
	items  []foodItem
	states []string
}

// NewGenerator creates a generator for cfg.
func NewGenerator(cfg Config) *Generator {
	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}
	return &Generator{cfg: cfg, faker: f}
}

// Generate writes every source file and returns per-file statistics in
// write order.
func (g *Generator) Generate(ctx context.Context) ([]FileStats, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", g.cfg.Dir, err)
	}

	g.metros = g.genMetros()
	g.items = Sample(g.faker, foodItems, g.cfg.FoodItems)
	sort.Slice(g.items, func(i, j int) bool { return g.items[i].code < g.items[j].code })
	g.states = g.genStates()

	files := g.cfg.Files
	steps := []struct {
		name string
		rows func() [][]string
	}{
		{files.FoodItems, g.foodItemsFile},
		{files.FoodAreas, g.foodAreasFile},
		{files.FoodMetadata, g.foodMetadataFile},
		{files.FoodSeries, g.foodSeriesFile},
		{files.CPIBasket, g.cpiBasketFile},
		{files.CPIAreas, g.cpiAreasFile},
		{files.CPIMetadata, g.cpiMetadataFile},
		{files.CPISeries, g.cpiSeriesFile},
		{files.StateSales, g.stateSalesFile},
		{files.RegionalIncome, g.regionalIncomeFile},
		{files.StateIncomeCurrent, g.stateIncomeCurrentFile},
		{files.StateIncome2023, g.stateIncome2023File},
	}

	stats := make([]FileStats, 0, len(steps))
	var total int64
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		st, err := g.write(step.name, step.rows())
		if err != nil {
			return stats, err
		}
		total += st.Bytes
		stats = append(stats, st)

		logging.Debug().
			Str("file", st.Name).
			Int("rows", st.Rows).
			Msg("Wrote sample file")
	}

	logging.Info().
		Str("dir", g.cfg.Dir).
		Int("files", len(stats)).
		Str("size", FormatSize(total)).
		Msg("Sample data written")

	return stats, nil
}

// write stores header plus rows as CSV. rows[0] is the header.
func (g *Generator) write(name string, rows [][]string) (FileStats, error) {
	path := filepath.Join(g.cfg.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return FileStats{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return FileStats{}, err
	}
	return FileStats{Name: name, Rows: len(rows) - 1, Bytes: info.Size()}, nil
}

// genMetros builds BLS style metropolitan area names such as
// "Springfield-Riverside, OH-KY".
func (g *Generator) genMetros() []area {
	metros := make([]area, 0, g.cfg.Metros)
	seen := make(map[string]bool)
	for i := 0; len(metros) < g.cfg.Metros && i < g.cfg.Metros*10; i++ {
		code := fmt.Sprintf("S%02d%c", g.faker.Int(11, 49), 'A'+rune(g.faker.Int(0, 3)))
		if seen[code] {
			continue
		}
		seen[code] = true

		cities := []string{g.faker.City()}
		if g.faker.Chance(0.5) {
			cities = append(cities, g.faker.City())
		}
		states := []string{g.faker.StateAbr()}
		if g.faker.Chance(0.3) {
			states = append(states, g.faker.StateAbr())
		}
		metros = append(metros, area{
			code: code,
			name: strings.Join(cities, "-") + ", " + strings.Join(states, "-"),
		})
	}
	sort.Slice(metros, func(i, j int) bool { return metros[i].code < metros[j].code })
	return metros
}

func (g *Generator) genStates() []string {
	seen := make(map[string]bool)
	var states []string
	for i := 0; len(states) < g.cfg.States && i < g.cfg.States*20; i++ {
		s := g.faker.State()
		if !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}
	sort.Strings(states)
	return states
}

func (g *Generator) years() []int {
	years := make([]int, 0, g.cfg.EndYear-g.cfg.StartYear+1)
	for y := g.cfg.StartYear; y <= g.cfg.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// growth returns the compounded inflation factor of a month since the
// start of the range.
func (g *Generator) growth(year, month int, annual float64) float64 {
	months := float64((year-g.cfg.StartYear)*12 + month - 1)
	return math.Pow(1+annual, months/12)
}

func (g *Generator) foodItemsFile() [][]string {
	rows := [][]string{{"item_code", "item_name"}}
	for _, it := range g.items {
		rows = append(rows, []string{it.code, it.name})
	}
	return rows
}

func (g *Generator) foodAreas() []area {
	return append([]area{nationalArea}, g.metros...)
}

func (g *Generator) foodAreasFile() [][]string {
	rows := [][]string{{"area_code", "area_name"}}
	for _, a := range g.foodAreas() {
		rows = append(rows, []string{a.code, a.name})
	}
	return rows
}

func foodSeriesID(a area, it foodItem) string {
	return "APU" + a.code + it.code
}

func (g *Generator) foodMetadataFile() [][]string {
	rows := [][]string{{"series_id", "area_code", "item_code"}}
	for _, a := range g.foodAreas() {
		for _, it := range g.items {
			rows = append(rows, []string{foodSeriesID(a, it), a.code, it.code})
		}
	}
	return rows
}

func (g *Generator) foodSeriesFile() [][]string {
	rows := [][]string{{"series_id", "year", "period", "value"}}
	for _, a := range g.foodAreas() {
		for _, it := range g.items {
			level := g.faker.Jitter(it.price, 0.15)
			for _, y := range g.years() {
				for m := 1; m <= 12; m++ {
					price := g.faker.Jitter(level*g.growth(y, m, 0.03), 0.04)
					rows = append(rows, []string{
						foodSeriesID(a, it), strconv.Itoa(y), fmt.Sprintf("M%02d", m),
						strconv.FormatFloat(price, 'f', 3, 64),
					})
				}
			}
		}
	}
	if g.cfg.Malformed && len(g.items) > 0 {
		it := g.items[0]
		rows = append(rows,
			[]string{foodSeriesID(nationalArea, it), strconv.Itoa(g.cfg.EndYear), "M01", "not-a-price"},
			[]string{"APUS99X" + it.code, strconv.Itoa(g.cfg.EndYear), "M01", "1.000"},
		)
	}
	return rows
}

func (g *Generator) cpiBasketFile() [][]string {
	rows := [][]string{{"item_code", "item_name"}}
	for _, it := range cpiItems {
		rows = append(rows, []string{it.code, it.name})
	}
	return rows
}

func (g *Generator) cpiAreas() []area {
	areas := append([]area{nationalArea}, regionAreas...)
	return append(areas, g.metros...)
}

func (g *Generator) cpiAreasFile() [][]string {
	rows := [][]string{{"area_code", "area_name"}}
	for _, a := range g.cpiAreas() {
		rows = append(rows, []string{a.code, a.name})
	}
	return rows
}

func cpiSeriesID(a area, it cpiItem) string {
	return "CUUR" + a.code + it.code
}

func (g *Generator) cpiMetadataFile() [][]string {
	rows := [][]string{{"series_id", "area_code", "item_code", "base_period"}}
	for _, a := range g.cpiAreas() {
		for _, it := range cpiItems {
			base := ChooseWeighted(g.faker, cpiBases, []int{8, 1, 1})
			rows = append(rows, []string{cpiSeriesID(a, it), a.code, it.code, base})
		}
	}
	return rows
}

func (g *Generator) cpiSeriesFile() [][]string {
	rows := [][]string{{"series_id", "year", "period", "value"}}
	for _, a := range g.cpiAreas() {
		for _, it := range cpiItems {
			level := g.faker.Jitter(it.index, 0.05)
			for _, y := range g.years() {
				for m := 1; m <= 12; m++ {
					v := g.faker.Jitter(level*g.growth(y, m, 0.035), 0.005)
					rows = append(rows, []string{
						cpiSeriesID(a, it), strconv.Itoa(y), fmt.Sprintf("M%02d", m),
						strconv.FormatFloat(v, 'f', 3, 64),
					})
				}
				if g.faker.Chance(0.5) {
					v := level * g.growth(y, 7, 0.035)
					rows = append(rows, []string{
						cpiSeriesID(a, it), strconv.Itoa(y), "M13",
						strconv.FormatFloat(v, 'f', 3, 64),
					})
				}
			}
		}
	}
	if g.cfg.Malformed {
		rows = append(rows, []string{cpiSeriesID(nationalArea, cpiItems[0]), strconv.Itoa(g.cfg.EndYear), "X05", "300"})
	}
	return rows
}

func (g *Generator) stateSalesFile() [][]string {
	rows := [][]string{{"State", "Year", "Total_sales_million"}}
	for _, s := range g.states {
		level := g.faker.Float64(5000, 150000)
		for _, y := range g.years() {
			sales := level * g.growth(y, 1, 0.04)
			rows = append(rows, []string{s, strconv.Itoa(y), Grouped(sales, 1)})
		}
	}
	if g.cfg.Malformed && len(g.states) > 0 {
		// a re-spelled duplicate overrides the last year of its state
		dup := g.faker.Float64(5000, 150000)
		rows = append(rows,
			[]string{strings.ToLower(g.states[0]) + " ", strconv.Itoa(g.cfg.EndYear), Grouped(dup, 1)},
			[]string{g.states[len(g.states)-1], strconv.Itoa(g.cfg.EndYear), "-5"},
		)
	}
	return rows
}

func (g *Generator) regionalIncomeFile() [][]string {
	rows := [][]string{{
		"Region", "Year", "Number_thousands",
		"Median_income_Current_dollars", "Median_income_2023_dollars",
		"Mean_income_Current_dollars", "Mean_income_2023_dollars",
	}}
	for _, r := range incomeRegions {
		households := g.faker.Float64(20000, 50000)
		median := g.faker.Float64(65000, 85000)
		for _, y := range g.years() {
			deflator := g.deflator(y)
			adjusted := g.faker.Jitter(median, 0.03)
			mean := adjusted * g.faker.Float64(1.3, 1.45)
			year := strconv.Itoa(y)
			if g.faker.Chance(0.1) {
				year += fmt.Sprintf(" (%d)", g.faker.Int(30, 45))
			}
			rows = append(rows, []string{
				r, year, Grouped(households*g.growth(y, 1, 0.008), 0),
				Grouped(adjusted*deflator, 0), Grouped(adjusted, 0),
				Grouped(mean*deflator, 0), Grouped(mean, 0),
			})
		}
	}
	if g.cfg.Malformed {
		rows = append(rows, []string{"South", "bad", "1", "1", "1", "1", "1"})
	}
	return rows
}

// deflator converts 2023 dollars into the dollars of year.
func (g *Generator) deflator(year int) float64 {
	return math.Pow(1.035, float64(year-2023))
}

// stateIncome holds the generated state income per year.
type stateIncome struct {
	median float64
	err    float64
}

func (g *Generator) stateIncomes() map[string]map[int]stateIncome {
	out := make(map[string]map[int]stateIncome, len(g.states))
	// a separate faker keeps both wide files consistent
	f := NewFakerWithSeed(g.cfg.Seed + 1)
	for _, s := range g.states {
		median := f.Float64(50000, 95000)
		out[s] = make(map[int]stateIncome)
		for _, y := range g.years() {
			out[s][y] = stateIncome{
				median: f.Jitter(median, 0.03),
				err:    f.Float64(600, 2500),
			}
		}
	}
	return out
}

func (g *Generator) stateIncomeCurrentFile() [][]string {
	return g.stateIncomeFile("%d_Median_income", "%d_Standard_error", true)
}

func (g *Generator) stateIncome2023File() [][]string {
	return g.stateIncomeFile("%d Median income", "%d Standard error", false)
}

func (g *Generator) stateIncomeFile(medianCol, errCol string, current bool) [][]string {
	header := []string{"State"}
	for _, y := range g.years() {
		header = append(header, fmt.Sprintf(medianCol, y), fmt.Sprintf(errCol, y))
	}
	rows := [][]string{header}

	incomes := g.stateIncomes()
	for _, s := range g.states {
		row := []string{s}
		for _, y := range g.years() {
			inc := incomes[s][y]
			scale := 1.0
			if current {
				scale = g.deflator(y)
			}
			row = append(row, Grouped(inc.median*scale, 0), Grouped(inc.err*scale, 0))
		}
		rows = append(rows, row)
	}
	if g.cfg.Malformed && current {
		row := []string{"Nowhere"}
		for range g.years() {
			row = append(row, "1", "1")
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
