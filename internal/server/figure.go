package server

import (
	"fmt"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"

	"github.com/pgEdge/pgedge-econ/internal/views"
)

// series is one trace worth of points.
type series struct {
	name string
	x    []any
	y    []any
}

// Figure draws a view result as a plotly figure according to the view's
// chart description.
func Figure(v *views.View, t *views.Table) *grob.Fig {
	lay := &grob.Layout{
		Title: &grob.LayoutTitle{Text: v.Title},
	}
	if v.Chart.XLabel != "" {
		lay.Xaxis = &grob.LayoutXaxis{Title: &grob.LayoutXaxisTitle{Text: v.Chart.XLabel}}
	}
	if v.Chart.YLabel != "" {
		lay.Yaxis = &grob.LayoutYaxis{Title: &grob.LayoutYaxisTitle{Text: v.Chart.YLabel}}
	}
	if v.Chart.Series != "" {
		lay.Showlegend = grob.True
	}

	fig := &grob.Fig{Layout: lay}
	for _, s := range split(v, t) {
		fig.AddTraces(trace(v.Chart.Kind, s))
	}
	return fig
}

// split groups rows by the chart's series column, keeping first-seen
// order.
func split(v *views.View, t *views.Table) []*series {
	byName := make(map[string]*series)
	var out []*series

	xc, yc, sc := t.Col(v.Chart.X), t.Col(v.Chart.Y), t.Col(v.Chart.Series)
	for _, row := range t.Rows {
		name := v.Title
		if sc >= 0 {
			name = fmt.Sprint(row[sc])
		}
		s, ok := byName[name]
		if !ok {
			s = &series{name: name}
			byName[name] = s
			out = append(out, s)
		}
		if xc >= 0 {
			s.x = append(s.x, row[xc])
		}
		if yc >= 0 {
			y, ok := views.ToFloat(row[yc])
			if !ok {
				s.y = append(s.y, nil)
				continue
			}
			s.y = append(s.y, y)
		}
	}
	return out
}

func trace(kind views.ChartKind, s *series) grob.Trace {
	switch kind {
	case views.ChartBar:
		return &grob.Bar{Type: grob.TraceTypeBar, Name: s.name, X: s.x, Y: s.y}
	case views.ChartBox:
		return &grob.Box{Type: grob.TraceTypeBox, Name: s.name, Y: s.y}
	case views.ChartScatter:
		return &grob.Scatter{Type: grob.TraceTypeScatter, Name: s.name, X: s.x, Y: s.y,
			Mode: grob.ScatterModeMarkers}
	default:
		return &grob.Scatter{Type: grob.TraceTypeScatter, Name: s.name, X: s.x, Y: s.y,
			Mode: grob.ScatterModeLines}
	}
}
