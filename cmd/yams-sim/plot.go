package main

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/yams/mechanism"
)

// trace records the mechanism position and profile setpoint at each tick.
type trace struct {
	m        *mechanism.Mechanism
	elapsed  float64
	position plotter.XYs
	setpoint plotter.XYs
}

func (tr *trace) record() {
	tr.elapsed += tr.m.Period().Seconds()
	tr.position = append(tr.position, plotter.XY{X: tr.elapsed, Y: tr.m.Position()})
	if tr.m.State() == mechanism.ClosedLoopPositionCommand {
		tr.setpoint = append(tr.setpoint, plotter.XY{X: tr.elapsed, Y: tr.m.Setpoint().Position})
	}
}

// save writes position and setpoint over time to path. The image format follows the extension.
func (tr *trace) save(path string) error {
	if len(tr.position) == 0 {
		return errors.New("nothing to plot")
	}
	p := plot.New()
	p.Title.Text = tr.m.Name()
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = fmt.Sprintf("position (%s)", tr.m.Units().Name)

	pos, err := plotter.NewLine(tr.position)
	if err != nil {
		return err
	}
	pos.Color = plotutil.Color(0)
	pos.Width = vg.Points(1)
	p.Add(pos)
	p.Legend.Add("position", pos)

	if len(tr.setpoint) > 0 {
		sp, err := plotter.NewLine(tr.setpoint)
		if err != nil {
			return err
		}
		sp.Color = plotutil.Color(1)
		sp.Width = vg.Points(1)
		sp.Dashes = plotutil.Dashes(1)
		p.Add(sp)
		p.Legend.Add("setpoint", sp)
	}
	return errors.Wrapf(p.Save(8*vg.Inch, 4*vg.Inch, path), "writing plot %q", path)
}
