//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen writes synthetic source files shaped like the published
// food price, CPI, food sales and household income data sets.
package datagen

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Faker provides fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a random seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// City generates a random city name.
func (f *Faker) City() string {
	return f.faker.City()
}

// StateAbr generates a random US state abbreviation.
func (f *Faker) StateAbr() string {
	return f.faker.StateAbr()
}

// State generates a random US state name.
func (f *Faker) State() string {
	return f.faker.State()
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Jitter scales v by a random factor within +/- pct.
func (f *Faker) Jitter(v, pct float64) float64 {
	return v * (1 + f.Float64(-pct, pct))
}

// Chance returns true with probability p.
func (f *Faker) Chance(p float64) bool {
	return f.Float64(0, 1) < p
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

// Sample returns up to n distinct elements of items in random order.
func Sample[T any](f *Faker, items []T, n int) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := f.Int(0, i)
		out[i], out[j] = out[j], out[i]
	}
	if n < len(out) {
		out = out[:n]
	}
	return out
}

var grouped = message.NewPrinter(language.AmericanEnglish)

// Grouped formats v with thousands separators and the given number of
// decimals, as the published spreadsheets do ("120,500.5").
func Grouped(v float64, decimals int) string {
	return grouped.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}
