/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/notargets/gorom/types"
)

// PlotResiduals draws the final residual of every state, against time for unsteady
// trajectories and against the query number for steady ones
func PlotResiduals(fileName, title string, trs []types.Trajectory) (err error) {
	var (
		p      = plot.New()
		steady = true
	)
	for _, tr := range trs {
		if len(tr.States) > 1 {
			steady = false
		}
	}
	p.Title.Text = title
	p.Y.Label.Text = "|F(x)|"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}
	if steady {
		p.X.Label.Text = "query"
		pts := make(plotter.XYs, len(trs))
		for i, tr := range trs {
			pts[i].X, pts[i].Y = float64(i), floor(tr.Last().Residual)
		}
		var sc *plotter.Scatter
		if sc, err = plotter.NewScatter(pts); err != nil {
			return
		}
		p.Add(sc)
	} else {
		p.X.Label.Text = "time"
		for i, tr := range trs {
			pts := make(plotter.XYs, len(tr.States))
			for n, s := range tr.States {
				pts[n].X, pts[n].Y = s.Time, floor(s.Residual)
			}
			var l *plotter.Line
			if l, err = plotter.NewLine(pts); err != nil {
				return
			}
			l.Color = plotutil.Color(i)
			p.Add(l)
			p.Legend.Add(fmt.Sprintf("%v", tr.Params), l)
		}
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, fileName)
}

// floor keeps exact zeros plottable on a log axis
func floor(r float64) float64 {
	if r < 1.e-16 {
		return 1.e-16
	}
	return r
}
