/*
 * analyze_test.go, part of kinisi.
 *
 * Copyright 2021 Andrew R. McCluskey
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package analyze

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/bootstrap"
	"github.com/arm61/kinisi/cfg"
	"github.com/arm61/kinisi/dist"
	v3 "github.com/arm61/kinisi/v3"
)

//walkSource is a 4-particle random walk over 48 frames in a 10 A cell,
//with 0.2 A normal steps per axis per frame.
func walkSource(Te *testing.T, seed int64) *kinisi.Trajectory {
	rng := rand.New(rand.NewSource(seed))
	const nf, na = 48, 4
	pos := make([]float64, na*3)
	for i := range pos {
		pos[i] = 0.5
	}
	frames := make([]*v3.Matrix, nf)
	for t := 0; t < nf; t++ {
		data := make([]float64, na*3)
		copy(data, pos)
		m, err := v3.NewMatrix(data)
		if err != nil {
			Te.Fatal(err)
		}
		frames[t] = m
		for i := range pos {
			pos[i] += 0.02 * rng.NormFloat64()
			pos[i] -= math.Floor(pos[i])
		}
	}
	traj, err := kinisi.NewFracTrajectory(frames, []*v3.Lattice{v3.Cubic(10)})
	if err != nil {
		Te.Fatal(err)
	}
	return traj
}

func quiet() *bootstrap.Options {
	o := bootstrap.DefaultOptions()
	o.Gate(false)
	o.Seed(5)
	return o
}

var params = kinisi.Params{TimeStep: 1, MinObs: 1, Points: 10}

func TestDiffusionAnalyzer(Te *testing.T) {
	a, err := NewDiffusionAnalyzer(walkSource(Te, 11), params, kinisi.XYZ(), quiet())
	if err != nil {
		Te.Fatal(err)
	}
	n := len(a.Dt())
	if n < 2 || len(a.MSD()) != n || len(a.MSDErr()) != n || len(a.NGP()) != n {
		Te.Errorf("Mismatched observable lengths: %d %d %d %d", n, len(a.MSD()), len(a.MSDErr()), len(a.NGP()))
	}
	if a.Dims().N() != 3 {
		Te.Errorf("Wrong axes: %s", a.Dims().String())
	}
	if a.Relationship() != nil {
		Te.Errorf("There should be no fit before Diffusion runs")
	}
	if _, err := a.D(); err == nil {
		Te.Errorf("The coefficient should need a fit first")
	}
	if _, err := a.Distributions(3); err == nil {
		Te.Errorf("The curves should need a fit first")
	}
	if err := a.Diffusion(2); err != nil {
		Te.Fatal(err)
	}
	d, err := a.D()
	if err != nil {
		Te.Fatal(err)
	}
	//0.2 A steps at 1 ps spacing: D is 0.02 A^2/ps = 2e-6 cm^2/s
	if d.Size() != 1600 || d.N() < 0.5e-6 || d.N() > 8e-6 {
		Te.Errorf("Suspicious diffusion coefficient: %g over %d samples", d.N(), d.Size())
	}
	ne, err := a.NernstEinstein(300, 1000, 1)
	if err != nil {
		Te.Fatal(err)
	}
	if ne.N() <= 0 {
		Te.Errorf("The Nernst-Einstein conductivity should be positive: %g", ne.N())
	}
	curves, err := a.Distributions(4)
	if err != nil {
		Te.Fatal(err)
	}
	if len(curves) != 4 || len(curves[0]) != a.Relationship().NPoints() {
		Te.Errorf("Wrong curve sampling: %d x %d", len(curves), len(curves[0]))
	}
	//a refit from later in the run replaces the old window
	if err := a.Diffusion(5); err != nil {
		Te.Fatal(err)
	}
	if a.Relationship().Dt()[0] < 5 {
		Te.Errorf("The refit kept the old window: %v", a.Relationship().Dt())
	}
	fmt.Println("D*:", d.N())
}

func TestJumpAndConductivity(Te *testing.T) {
	j, err := NewJumpDiffusionAnalyzer(walkSource(Te, 11), params, kinisi.XYZ(), quiet())
	if err != nil {
		Te.Fatal(err)
	}
	if len(j.TMSD()) != len(j.Dt()) || len(j.TMSDErr()) != len(j.Dt()) {
		Te.Errorf("Mismatched collective observable lengths")
	}
	if err := j.Diffusion(2); err != nil {
		Te.Fatal(err)
	}
	dj, err := j.DJ()
	if err != nil {
		Te.Fatal(err)
	}
	src := walkSource(Te, 11)
	if err := src.SetCharges([]float64{1, 1, 1, 1}); err != nil {
		Te.Fatal(err)
	}
	c, err := NewConductivityAnalyzer(src, params, kinisi.XYZ(), nil, quiet())
	if err != nil {
		Te.Fatal(err)
	}
	if err := c.Diffusion(2); err != nil {
		Te.Fatal(err)
	}
	ds, err := c.DSigma()
	if err != nil {
		Te.Fatal(err)
	}
	//unit charges make the charge displacement the jump displacement
	if math.Abs(ds.N()/dj.N()-1) > 0.2 {
		Te.Errorf("Unit-charge D_sigma strays from D_J: %g vs %g", ds.N(), dj.N())
	}
	sigma, err := c.Conductivity(300, 1000)
	if err != nil {
		Te.Fatal(err)
	}
	if sigma.N() <= 0 {
		Te.Errorf("The conductivity should be positive: %g", sigma.N())
	}
	fmt.Println("D_J:", dj.N(), "D_sigma:", ds.N(), "sigma:", sigma.N())
}

func TestCharges(Te *testing.T) {
	//explicit charges must match the mobile count
	if _, err := NewConductivityAnalyzer(walkSource(Te, 3), params, kinisi.XYZ(), []float64{1, 1}, quiet()); err == nil {
		Te.Errorf("Two charges for four particles should be rejected")
	}
	//a source without charges cannot fill the gap
	if _, err := NewConductivityAnalyzer(walkSource(Te, 3), params, kinisi.XYZ(), nil, quiet()); err == nil {
		Te.Errorf("No charges anywhere should be rejected")
	}
	//a specie selection takes its charges from the source
	src := walkSource(Te, 3)
	if err := src.SetCharges([]float64{1, -1, 2, -2}); err != nil {
		Te.Fatal(err)
	}
	p := params
	p.Specie = []int{0, 2}
	c, err := NewConductivityAnalyzer(src, p, kinisi.XYZ(), nil, quiet())
	if err != nil {
		Te.Fatal(err)
	}
	if c.Result().NMobile() != 2 {
		Te.Errorf("Wrong mobile count: %d", c.Result().NMobile())
	}
}

func TestActivationEnergy(Te *testing.T) {
	temps := []float64{300, 400, 500, 600}
	ds := make([]*dist.Distribution, len(temps))
	for i, T := range temps {
		base := 1e-3 * math.Exp(-0.25/(kinisi.KBoltzEV*T))
		samples := make([]float64, 100)
		for j := range samples {
			samples[j] = base * (0.95 + 0.1*float64(j)/99)
		}
		var err error
		if ds[i], err = dist.New(samples); err != nil {
			Te.Fatal(err)
		}
	}
	F, err := ActivationEnergy(temps, ds, "arrhenius")
	if err != nil {
		Te.Fatal(err)
	}
	ea := F.ActivationEnergy()
	if ea.N() < 0.2 || ea.N() > 0.3 {
		Te.Errorf("Activation energy far from 0.25 eV: %f", ea.N())
	}
	if _, err := ActivationEnergy(temps, ds, "cubic"); err == nil {
		Te.Errorf("An unknown model should be rejected")
	}
	if _, err := ActivationEnergy(temps[:2], ds, "arrhenius"); err == nil {
		Te.Errorf("Mismatched lengths should be rejected")
	}
	ds[1] = nil
	if _, err := ActivationEnergy(temps, ds, "arrhenius"); err == nil {
		Te.Errorf("A nil posterior should be rejected")
	}
	fmt.Println("Ea from analyzers:", ea.N())
}

func TestFromCfg(Te *testing.T) {
	c := &cfg.Cfg{Method: cfg.MMSD, TimeStep: 1, MinObs: 1, Points: 10, NoGate: true, Seed: 3, StartDt: 2}
	R, err := FromCfg(c, walkSource(Te, 23))
	if err != nil {
		Te.Fatal(err)
	}
	if R.Method != cfg.MMSD || R.Result == nil || R.Relationship == nil {
		Te.Errorf("Incomplete report: %+v", R)
	}
	if R.Coefficient == nil || R.Coefficient.Size() != 1600 {
		Te.Errorf("Malformed coefficient posterior")
	}
	if R.Conductivity != nil {
		Te.Errorf("The msd method should not report a conductivity")
	}
	c.Method = cfg.MTMSD
	if R, err = FromCfg(c, walkSource(Te, 23)); err != nil {
		Te.Fatal(err)
	}
	if R.Coefficient == nil {
		Te.Errorf("The tmsd method should report a coefficient")
	}
	c.Method = cfg.MConductivity
	c.Charges = []float64{1, 1, 1, 1}
	c.Temperature = 300
	c.Volume = 1000
	src := walkSource(Te, 23)
	if R, err = FromCfg(c, src); err != nil {
		Te.Fatal(err)
	}
	if R.Conductivity == nil || R.Conductivity.N() <= 0 {
		Te.Errorf("The conductivity method should report a conductivity")
	}
	//a rewound source runs again
	src.Rewind()
	c.Method = cfg.MMSCD
	if R, err = FromCfg(c, src); err != nil {
		Te.Fatal(err)
	}
	if R.Conductivity != nil {
		Te.Errorf("The mscd method stops at the coefficient")
	}
	bad := &cfg.Cfg{TimeStep: 1}
	if _, err := FromCfg(bad, walkSource(Te, 23)); err == nil {
		Te.Errorf("A config without a method should be rejected")
	}
}
