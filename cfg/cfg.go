/*
 * cfg.go, part of kinisi.
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

//Package cfg reads an analysis configuration from a YAML file, so a
//whole uncertainty pipeline can be described in one document and run
//through the analyze package.
package cfg

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/bootstrap"
	"github.com/arm61/kinisi/diffusion"
)

// Method is the observable to analyze.
type Method string

// Here are the accepted methods. MSD is the mean squared displacement
// of single particles, TMSD the total (collective) one, MSCD the charge
// weighted one, and conductivity is MSCD carried on to an ionic
// conductivity.
var (
	MMSD          Method = "msd"
	MTMSD         Method = "tmsd"
	MMSCD         Method = "mscd"
	MConductivity Method = "conductivity"
)

// Cfg is a structure containing the parameters specified in the
// configuration file. It can be instanced through the New method or by
// "hand". If it is instanced by hand, please use the Check method to
// check if the Cfg meets the requirements.
type Cfg struct {
	// Method is the observable to analyze
	Method Method `yaml:"method"`

	// TimeStep is the MD integrator time step, in ps
	TimeStep float64 `yaml:"timeStep"`

	// StepSkip is the number of MD steps between stored frames. 0 means 1
	StepSkip int `yaml:"stepSkip"`

	// MinDt is the shortest time interval to evaluate, in ps. 0 means one
	// frame step
	MinDt float64 `yaml:"minDt"`

	// MaxDt is the longest time interval to evaluate, in ps. 0 means no cap
	MaxDt float64 `yaml:"maxDt"`

	// MinObs is the fewest observations allowed at the longest interval.
	// 0 means 30
	MinObs int `yaml:"minObs"`

	// Points is the number of points in the interval grid. 0 means 100
	Points int `yaml:"points"`

	// Spacing of the interval grid: linear (the default) or logarithmic
	Spacing string `yaml:"spacing"`

	// Dims are the cartesian axes to analyze, a subset of "xyz". Empty
	// means all three
	Dims string `yaml:"dims"`

	// Specie are the indices of the mobile particles. Empty, with
	// Molecules also empty, means every particle
	Specie []int `yaml:"specie"`

	// Framework are the indices of the particles whose drift is subtracted
	Framework []int `yaml:"framework"`

	// Molecules are groups of particle indices whose centers become the
	// mobile particles. Mutually exclusive with Specie
	Molecules [][]int `yaml:"molecules"`

	// Masses are the per-particle masses used to weight molecule centers
	Masses []float64 `yaml:"masses"`

	// Charges are the per-mobile-particle charges, in elementary charge
	// units. Required by the mscd and conductivity methods
	Charges []float64 `yaml:"charges"`

	// Resamples is the number of bootstrap resamples. 0 keeps the default
	Resamples int `yaml:"resamples"`

	// MaxResamples caps the resamples grown by the normality gate
	MaxResamples int `yaml:"maxResamples"`

	// Blocks overrides how many observations each replicate averages.
	// 0 keeps the per-interval independent count
	Blocks int `yaml:"blocks"`

	// Alpha is the significance level of the normality gate
	Alpha float64 `yaml:"alpha"`

	// NoGate disables the normality gate on the resampled distributions
	NoGate bool `yaml:"noGate"`

	// Seed seeds every resampler and sampler. 0 keeps the default
	Seed int64 `yaml:"seed"`

	// Cpus bounds the resampling workers. 0 keeps every core
	Cpus int `yaml:"cpus"`

	// StartDt is the time, in ps, where the diffusive regime starts and
	// the fit window opens
	StartDt float64 `yaml:"startDt"`

	// GradientBounds is the uniform prior on the fit gradient, in A^2/ps.
	// Both zero keeps the default
	GradientBounds [2]float64 `yaml:"gradientBounds"`

	// InterceptBounds is the uniform prior on the fit intercept, in A^2
	InterceptBounds [2]float64 `yaml:"interceptBounds"`

	// Walkers, Steps, Burn and Thin shape the posterior sampler. 0 keeps
	// the defaults
	Walkers int `yaml:"walkers"`
	Steps   int `yaml:"steps"`
	Burn    int `yaml:"burn"`
	Thin    int `yaml:"thin"`

	// Temperature of the simulation, in K. Required by conductivity
	Temperature float64 `yaml:"temperature"`

	// Volume of the simulation cell, in A^3. Required by conductivity
	Volume float64 `yaml:"volume"`
}

// New opens and decodes the specified configuration file. The file must
// be a YAML file. This method automatically calls the Check method to
// check the integrity of Cfg.
func New(path string) (*Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(bufio.NewReader(f))
}

// NewReader decodes a configuration from any reader and checks it.
func NewReader(r io.Reader) (*Cfg, error) {
	var c Cfg
	dec := yaml.NewDecoder(r)
	err := dec.Decode(&c)
	if err != nil {
		return nil, err
	}

	err = c.Check()
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	return &c, nil
}

// Check checks if Cfg is correct. It returns an error if a field
// doesn't meet the requirements.
func (c *Cfg) Check() error {
	switch c.Method {
	case MMSD, MTMSD, MMSCD, MConductivity:
	default:
		return fmt.Errorf("method must be msd, tmsd, mscd or conductivity")
	}

	if c.TimeStep <= 0 {
		return fmt.Errorf("timeStep must be greater than 0")
	}

	if c.StepSkip < 0 {
		return fmt.Errorf("stepSkip cannot be lower than 0")
	}

	if c.MinDt < 0 || c.MaxDt < 0 {
		return fmt.Errorf("minDt and maxDt cannot be lower than 0")
	}

	if c.MaxDt > 0 && c.MaxDt < c.MinDt {
		return fmt.Errorf("maxDt cannot be lower than minDt")
	}

	if c.MinObs < 0 || c.Points < 0 {
		return fmt.Errorf("minObs and points cannot be lower than 0")
	}

	switch c.Spacing {
	case "", kinisi.SpacingLinear, kinisi.SpacingLogarithmic:
	default:
		return fmt.Errorf("spacing must be linear or logarithmic")
	}

	if c.Dims != "" {
		if _, err := kinisi.NewDims(c.Dims); err != nil {
			return fmt.Errorf("dims must be a subset of xyz")
		}
	}

	if len(c.Specie) > 0 && len(c.Molecules) > 0 {
		return fmt.Errorf("specie and molecules cannot both be given")
	}

	if c.Resamples < 0 || c.MaxResamples < 0 || c.Blocks < 0 || c.Cpus < 0 {
		return fmt.Errorf("resamples, maxResamples, blocks and cpus cannot be lower than 0")
	}

	if c.Alpha < 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in [0, 1)")
	}

	if c.StartDt < 0 {
		return fmt.Errorf("startDt cannot be lower than 0")
	}

	if c.GradientBounds[0] != 0 || c.GradientBounds[1] != 0 {
		if c.GradientBounds[0] >= c.GradientBounds[1] {
			return fmt.Errorf("gradientBounds must be an increasing pair")
		}
	}

	if c.InterceptBounds[0] != 0 || c.InterceptBounds[1] != 0 {
		if c.InterceptBounds[0] >= c.InterceptBounds[1] {
			return fmt.Errorf("interceptBounds must be an increasing pair")
		}
	}

	if c.Walkers < 0 || c.Steps < 0 || c.Burn < 0 || c.Thin < 0 {
		return fmt.Errorf("walkers, steps, burn and thin cannot be lower than 0")
	}

	if c.Method == MMSCD || c.Method == MConductivity {
		if len(c.Charges) == 0 {
			return fmt.Errorf("the %s method needs charges", c.Method)
		}
	}

	if c.Method == MConductivity {
		if c.Temperature <= 0 {
			return fmt.Errorf("the conductivity method needs a temperature greater than 0")
		}
		if c.Volume <= 0 {
			return fmt.Errorf("the conductivity method needs a volume greater than 0")
		}
	}

	return nil
}

// Params returns the displacement extraction parameters described by
// the configuration.
func (c *Cfg) Params() kinisi.Params {
	var specie []int
	if len(c.Specie) > 0 {
		specie = c.Specie
	}
	var mols [][]int
	if len(c.Molecules) > 0 {
		mols = c.Molecules
	}
	return kinisi.Params{
		Specie:    specie,
		Framework: c.Framework,
		Molecules: mols,
		Masses:    c.Masses,
		TimeStep:  c.TimeStep,
		StepSkip:  c.StepSkip,
		MinDt:     c.MinDt,
		MaxDt:     c.MaxDt,
		MinObs:    c.MinObs,
		Points:    c.Points,
		Spacing:   c.Spacing,
	}
}

// DimsOf returns the axes described by the configuration, all three
// when the field is empty.
func (c *Cfg) DimsOf() (kinisi.Dims, error) {
	if c.Dims == "" {
		return kinisi.XYZ(), nil
	}
	return kinisi.NewDims(c.Dims)
}

// Bootstrap returns the resampling options described by the
// configuration, with zero fields keeping the defaults.
func (c *Cfg) Bootstrap() *bootstrap.Options {
	o := bootstrap.DefaultOptions()
	if c.Resamples > 0 {
		o.Resamples(c.Resamples)
	}
	if c.MaxResamples > 0 {
		o.MaxResamples(c.MaxResamples)
	}
	if c.Blocks > 0 {
		o.Blocks(c.Blocks)
	}
	if c.Alpha > 0 {
		o.Alpha(c.Alpha)
	}
	if c.NoGate {
		o.Gate(false)
	}
	if c.Seed != 0 {
		o.Seed(c.Seed)
	}
	if c.Cpus > 0 {
		o.Cpus(c.Cpus)
	}
	return o
}

// Fit returns the line-fitting options described by the configuration,
// with zero fields keeping the defaults.
func (c *Cfg) Fit() *diffusion.Options {
	o := diffusion.DefaultOptions()
	if c.GradientBounds[0] != 0 || c.GradientBounds[1] != 0 {
		o.GradientBounds(c.GradientBounds)
	}
	if c.InterceptBounds[0] != 0 || c.InterceptBounds[1] != 0 {
		o.InterceptBounds(c.InterceptBounds)
	}
	s := o.Sampler()
	if c.Walkers > 0 {
		s.Walkers(c.Walkers)
	}
	if c.Steps > 0 {
		s.Steps(c.Steps)
	}
	if c.Burn > 0 {
		s.Burn(c.Burn)
	}
	if c.Thin > 0 {
		s.Thin(c.Thin)
	}
	if c.Seed != 0 {
		s.Seed(c.Seed)
	}
	return o
}
