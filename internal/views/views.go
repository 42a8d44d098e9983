//-------------------------------------------------------------------------
//
// pgEdge Economic Indicators
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package views defines the analysis views served by the dashboard and
// the views command.
//
// A View is a parameterized read query joining fact tables to their
// dimensions. Views return a Table of plain values (int64, float64,
// string or nil) so that results look the same on every backend, plus
// an optional set of summary statistics computed in Go.
package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-econ/internal/db"
)

// ErrInvalidFilter is wrapped by errors caused by bad view parameters.
var ErrInvalidFilter = errors.New("invalid filter")

// Parameter names.
const (
	ParamRegion  = "region"
	ParamRegion2 = "region2"
	ParamItem    = "item"
	ParamItem2   = "item2"
	ParamYear    = "year"
	ParamMonth   = "month"
)

// Filter carries the parameters of a view. Zero values mean "not set".
type Filter struct {
	Region  string `json:"region,omitempty"`
	Region2 string `json:"region2,omitempty"`
	Item    string `json:"item,omitempty"`
	Item2   string `json:"item2,omitempty"`
	Year    int    `json:"year,omitempty"`
	Month   int    `json:"month,omitempty"`
}

// ParseFilter reads a Filter through get, typically url.Values.Get.
func ParseFilter(get func(string) string) (Filter, error) {
	f := Filter{
		Region:  strings.TrimSpace(get(ParamRegion)),
		Region2: strings.TrimSpace(get(ParamRegion2)),
		Item:    strings.TrimSpace(get(ParamItem)),
		Item2:   strings.TrimSpace(get(ParamItem2)),
	}

	var err error
	if f.Year, err = parseInt(get, ParamYear); err != nil {
		return f, err
	}
	if f.Month, err = parseInt(get, ParamMonth); err != nil {
		return f, err
	}
	return f, f.validate()
}

func parseInt(get func(string) string, name string) (int, error) {
	s := strings.TrimSpace(get(name))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidFilter, name, s)
	}
	return n, nil
}

func (f Filter) validate() error {
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidFilter)
	}
	if f.Year < 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidFilter)
	}
	return nil
}

// Get returns the value of a named parameter as a string.
func (f Filter) Get(name string) string {
	switch name {
	case ParamRegion:
		return f.Region
	case ParamRegion2:
		return f.Region2
	case ParamItem:
		return f.Item
	case ParamItem2:
		return f.Item2
	case ParamYear:
		if f.Year != 0 {
			return strconv.Itoa(f.Year)
		}
	case ParamMonth:
		if f.Month != 0 {
			return strconv.Itoa(f.Month)
		}
	}
	return ""
}

// Param describes one parameter a view accepts.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ChartKind names the figure drawn for a view.
type ChartKind string

// Chart kinds.
const (
	ChartNone    ChartKind = ""
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
	ChartBox     ChartKind = "box"
)

// Chart maps table columns onto a figure. Series, when set, splits the
// rows into one trace per distinct value.
type Chart struct {
	Kind   ChartKind `json:"kind"`
	X      string    `json:"x,omitempty"`
	Y      string    `json:"y"`
	Series string    `json:"series,omitempty"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
}

// RunFunc executes a view.
type RunFunc func(ctx context.Context, q db.Querier, f Filter) (*Table, error)

// View is a named analysis query.
type View struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Chart       Chart   `json:"chart"`

	Run RunFunc `json:"-"`
}

// Execute checks required parameters and runs the view.
func (v *View) Execute(ctx context.Context, q db.Querier, f Filter) (*Table, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	for _, p := range v.Params {
		if p.Required && f.Get(p.Name) == "" {
			return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidFilter, v.Name, p.Name)
		}
	}

	t, err := v.Run(ctx, q, f)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", v.Name, err)
	}
	return t, nil
}
