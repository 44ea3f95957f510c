/*
 * cfg_test.go, part of kinisi.
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

package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `method: conductivity
timeStep: 0.1
stepSkip: 10
points: 20
spacing: logarithmic
dims: xy
specie: [0, 1, 2]
charges: [1, 1, 1]
resamples: 500
blocks: 3
alpha: 0.01
noGate: true
seed: 7
startDt: 5
gradientBounds: [0, 50]
interceptBounds: [-5, 5]
walkers: 64
steps: 200
temperature: 300
volume: 1250
`

func TestNewReader(Te *testing.T) {
	c, err := NewReader(strings.NewReader(sample))
	if err != nil {
		Te.Fatal(err)
	}
	if c.Method != MConductivity || c.TimeStep != 0.1 || c.Seed != 7 {
		Te.Errorf("Wrong decoded fields: %+v", c)
	}
	p := c.Params()
	if p.TimeStep != 0.1 || p.StepSkip != 10 || p.Points != 20 || len(p.Specie) != 3 {
		Te.Errorf("Wrong extraction parameters: %+v", p)
	}
	if p.Spacing != "logarithmic" {
		Te.Errorf("Wrong spacing: %s", p.Spacing)
	}
	d, err := c.DimsOf()
	if err != nil {
		Te.Fatal(err)
	}
	if d.N() != 2 || d.Has(2) {
		Te.Errorf("Wrong axes: %s", d.String())
	}
	b := c.Bootstrap()
	if b.Resamples() != 500 || b.Blocks() != 3 || b.Alpha() != 0.01 || b.Gate() || b.Seed() != 7 {
		Te.Errorf("Wrong resampling options")
	}
	f := c.Fit()
	if f.GradientBounds() != [2]float64{0, 50} || f.InterceptBounds() != [2]float64{-5, 5} {
		Te.Errorf("Wrong fit bounds")
	}
	s := f.Sampler()
	if s.Walkers() != 64 || s.Steps() != 200 || s.Seed() != 7 {
		Te.Errorf("Wrong sampler options")
	}
	//unset fields keep their defaults
	if s.Burn() != 500 || s.Thin() != 10 || b.MaxResamples() != 100000 {
		Te.Errorf("A zero field should keep the default")
	}
}

func TestDefaults(Te *testing.T) {
	c, err := NewReader(strings.NewReader("method: msd\ntimeStep: 1\n"))
	if err != nil {
		Te.Fatal(err)
	}
	d, err := c.DimsOf()
	if err != nil {
		Te.Fatal(err)
	}
	if d.N() != 3 {
		Te.Errorf("Empty dims should mean all three axes")
	}
	if !c.Bootstrap().Gate() {
		Te.Errorf("The gate should default on")
	}
	if c.Fit().GradientBounds() != [2]float64{0, 100} {
		Te.Errorf("Unset bounds should keep the default box")
	}
}

func TestCheck(Te *testing.T) {
	bad := []string{
		"timeStep: 1\n",                                      //no method
		"method: vac\ntimeStep: 1\n",                         //unknown method
		"method: msd\n",                                      //no time step
		"method: msd\ntimeStep: 1\nminDt: -2\n",              //negative interval
		"method: msd\ntimeStep: 1\nminDt: 5\nmaxDt: 2\n",     //inverted interval range
		"method: msd\ntimeStep: 1\nspacing: cubic\n",         //unknown spacing
		"method: msd\ntimeStep: 1\ndims: xw\n",               //unknown axis
		"method: msd\ntimeStep: 1\nspecie: [0]\nmolecules: [[0, 1]]\n", //both selections
		"method: msd\ntimeStep: 1\nalpha: 1.5\n",             //impossible level
		"method: msd\ntimeStep: 1\nblocks: -2\n",             //negative block size
		"method: msd\ntimeStep: 1\nstartDt: -1\n",            //negative window start
		"method: msd\ntimeStep: 1\ngradientBounds: [5, 1]\n", //inverted bounds
		"method: msd\ntimeStep: 1\nwalkers: -4\n",            //negative walkers
		"method: mscd\ntimeStep: 1\n",                        //mscd without charges
		"method: conductivity\ntimeStep: 1\ncharges: [1]\n",  //no temperature
		"method: conductivity\ntimeStep: 1\ncharges: [1]\ntemperature: 300\n", //no volume
	}
	for i, doc := range bad {
		if _, err := NewReader(strings.NewReader(doc)); err == nil {
			Te.Errorf("Case %d should have been rejected: %q", i, doc)
		}
	}
	if _, err := NewReader(strings.NewReader("method: [a, b\n")); err == nil {
		Te.Errorf("Broken YAML should surface the decode error")
	}
}

func TestNew(Te *testing.T) {
	path := filepath.Join(Te.TempDir(), "analysis.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		Te.Fatal(err)
	}
	c, err := New(path)
	if err != nil {
		Te.Fatal(err)
	}
	if c.Volume != 1250 || c.Temperature != 300 {
		Te.Errorf("Wrong conditions: %+v", c)
	}
	if _, err := New(filepath.Join(Te.TempDir(), "missing.yaml")); err == nil {
		Te.Errorf("A missing file should surface the open error")
	}
}
