/*
 * analyze.go, part of kinisi.
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

//Package analyze wires the whole pipeline together: a frame source goes
//in, displacements are extracted and resampled, a line is fit through
//the diffusive regime and a transport coefficient with credible
//intervals comes out. Each analyzer wraps one observable; FromCfg runs
//whichever one a configuration asks for.
package analyze

import (
	"fmt"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/arrhenius"
	"github.com/arm61/kinisi/bootstrap"
	"github.com/arm61/kinisi/cfg"
	"github.com/arm61/kinisi/diffusion"
	"github.com/arm61/kinisi/dist"
)

//analyzer is the machinery every observable shares: the extracted
//displacements, the resampled observable and, once Diffusion has run,
//the fitted relationship.
type analyzer struct {
	disp *kinisi.Displacements
	dims kinisi.Dims
	res  *bootstrap.Result
	rel  *diffusion.Relationship
}

//Dt returns the observed time intervals, in ps.
func (a *analyzer) Dt() []float64 {
	return a.res.Dt()
}

//Displacements returns the extracted displacement data, for further
//analysis such as velocity correlations.
func (a *analyzer) Displacements() *kinisi.Displacements {
	return a.disp
}

//Dims returns the axes the observable runs over.
func (a *analyzer) Dims() kinisi.Dims {
	return a.dims
}

//Result returns the resampled observable.
func (a *analyzer) Result() *bootstrap.Result {
	return a.res
}

//Diffusion fits the diffusive regime, from startDt (ps) on, replacing
//any previous fit.
func (a *analyzer) Diffusion(startDt float64, options ...*diffusion.Options) error {
	rel, err := diffusion.New(a.res, startDt, options...)
	if err != nil {
		return err
	}
	a.rel = rel
	return nil
}

//Relationship returns the fitted relationship, or nil before Diffusion
//has run.
func (a *analyzer) Relationship() *diffusion.Relationship {
	return a.rel
}

//Distributions returns up to n posterior lines over the fit window, for
//credible bands.
func (a *analyzer) Distributions(n int) ([][]float64, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.Curves(n), nil
}

func (a *analyzer) fitted() error {
	if a.rel == nil {
		return fmt.Errorf("kinisi/analyze: No fit yet, call Diffusion first")
	}
	return nil
}

//DiffusionAnalyzer resamples the mean-squared displacement of a source
//and turns it into a self-diffusion coefficient.
type DiffusionAnalyzer struct {
	analyzer
}

//NewDiffusionAnalyzer extracts displacements from src under p and
//resamples the mean-squared displacement over the given axes.
func NewDiffusionAnalyzer(src kinisi.Source, p kinisi.Params, dims kinisi.Dims, options ...*bootstrap.Options) (*DiffusionAnalyzer, error) {
	disp, err := kinisi.ExtractDisplacements(src, p)
	if err != nil {
		return nil, err
	}
	res, err := bootstrap.MSD(disp, dims, options...)
	if err != nil {
		return nil, err
	}
	return &DiffusionAnalyzer{analyzer{disp: disp, dims: dims, res: res}}, nil
}

//MSD returns the mean-squared displacement at every interval, in A^2.
func (a *DiffusionAnalyzer) MSD() []float64 {
	return a.res.Values()
}

//MSDErr returns the standard deviation of the resampled mean-squared
//displacement at every interval, in A^2.
func (a *DiffusionAnalyzer) MSDErr() []float64 {
	return a.res.StdDevs()
}

//NGP returns the non-Gaussian parameter at every interval, which peaks
//where transport is most heterogeneous.
func (a *DiffusionAnalyzer) NGP() []float64 {
	return a.res.NGP()
}

//D returns the posterior of the self-diffusion coefficient, in cm^2/s.
func (a *DiffusionAnalyzer) D() (*dist.Distribution, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.DiffusionCoefficient()
}

//NernstEinstein returns the posterior of the Nernst-Einstein
//conductivity, in S/cm, for carriers of the given charge at the given
//temperature (K) and cell volume (A^3).
func (a *DiffusionAnalyzer) NernstEinstein(temperature, volume, charge float64) (*dist.Distribution, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.NernstEinstein(temperature, volume, charge)
}

//JumpDiffusionAnalyzer resamples the total mean-squared displacement of
//a source and turns it into a jump-diffusion coefficient.
type JumpDiffusionAnalyzer struct {
	analyzer
}

//NewJumpDiffusionAnalyzer extracts displacements from src under p and
//resamples the total mean-squared displacement over the given axes.
func NewJumpDiffusionAnalyzer(src kinisi.Source, p kinisi.Params, dims kinisi.Dims, options ...*bootstrap.Options) (*JumpDiffusionAnalyzer, error) {
	disp, err := kinisi.ExtractDisplacements(src, p)
	if err != nil {
		return nil, err
	}
	res, err := bootstrap.TMSD(disp, dims, options...)
	if err != nil {
		return nil, err
	}
	return &JumpDiffusionAnalyzer{analyzer{disp: disp, dims: dims, res: res}}, nil
}

//TMSD returns the total mean-squared displacement at every interval, in
//A^2.
func (a *JumpDiffusionAnalyzer) TMSD() []float64 {
	return a.res.Values()
}

//TMSDErr returns the standard deviation of the resampled total
//mean-squared displacement at every interval, in A^2.
func (a *JumpDiffusionAnalyzer) TMSDErr() []float64 {
	return a.res.StdDevs()
}

//DJ returns the posterior of the jump-diffusion coefficient, in cm^2/s.
func (a *JumpDiffusionAnalyzer) DJ() (*dist.Distribution, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.JumpDiffusionCoefficient()
}

//ConductivityAnalyzer resamples the mean-squared charge displacement of
//a source and turns it into a conductivity-diffusion coefficient or an
//ionic conductivity.
type ConductivityAnalyzer struct {
	analyzer
}

//NewConductivityAnalyzer extracts displacements from src under p and
//resamples the mean-squared charge displacement over the given axes.
//charges are per mobile particle, in elementary charge units; give nil
//to take them from the source, which must then implement Charger.
func NewConductivityAnalyzer(src kinisi.Source, p kinisi.Params, dims kinisi.Dims, charges []float64, options ...*bootstrap.Options) (*ConductivityAnalyzer, error) {
	disp, err := kinisi.ExtractDisplacements(src, p)
	if err != nil {
		return nil, err
	}
	q, err := mobileCharges(src, p, charges, disp.NMobile())
	if err != nil {
		return nil, err
	}
	res, err := bootstrap.MSCD(disp, dims, q, options...)
	if err != nil {
		return nil, err
	}
	return &ConductivityAnalyzer{analyzer{disp: disp, dims: dims, res: res}}, nil
}

//MSCD returns the mean-squared charge displacement at every interval,
//in A^2.
func (a *ConductivityAnalyzer) MSCD() []float64 {
	return a.res.Values()
}

//MSCDErr returns the standard deviation of the resampled mean-squared
//charge displacement at every interval, in A^2.
func (a *ConductivityAnalyzer) MSCDErr() []float64 {
	return a.res.StdDevs()
}

//DSigma returns the posterior of the conductivity-diffusion
//coefficient, in cm^2/s.
func (a *ConductivityAnalyzer) DSigma() (*dist.Distribution, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.SigmaDiffusionCoefficient()
}

//Conductivity returns the posterior of the ionic conductivity, in S/cm,
//at the given temperature (K) and cell volume (A^3).
func (a *ConductivityAnalyzer) Conductivity(temperature, volume float64) (*dist.Distribution, error) {
	if err := a.fitted(); err != nil {
		return nil, err
	}
	return a.rel.Conductivity(temperature, volume)
}

//mobileCharges settles the per-mobile-particle charges: explicit ones
//win, otherwise the source is asked and its per-particle charges are
//reduced the same way the displacements were.
func mobileCharges(src kinisi.Source, p kinisi.Params, explicit []float64, nMobile int) ([]float64, error) {
	if explicit != nil {
		if len(explicit) != nMobile {
			return nil, fmt.Errorf("kinisi/analyze: Got %d charges for %d mobile particles", len(explicit), nMobile)
		}
		q := make([]float64, nMobile)
		copy(q, explicit)
		return q, nil
	}
	ch, ok := src.(kinisi.Charger)
	if !ok {
		return nil, fmt.Errorf("kinisi/analyze: No charges given and the source cannot provide them")
	}
	all, err := ch.Charges()
	if err != nil {
		return nil, fmt.Errorf("kinisi/analyze: No charges given and the source has none: %v", err)
	}
	if len(all) != src.Len() {
		return nil, fmt.Errorf("kinisi/analyze: The source gave %d charges for %d particles", len(all), src.Len())
	}
	switch {
	case p.Molecules != nil:
		q := make([]float64, len(p.Molecules))
		for gi, g := range p.Molecules {
			for _, a := range g {
				q[gi] += all[a]
			}
		}
		return q, nil
	case p.Specie != nil:
		q := make([]float64, len(p.Specie))
		for i, a := range p.Specie {
			q[i] = all[a]
		}
		return q, nil
	default:
		q := make([]float64, len(all))
		copy(q, all)
		return q, nil
	}
}

//ActivationEnergy fits an activation-energy model to coefficient
//posteriors measured at several temperatures (K), using each
//posterior's mean and standard deviation. model is "arrhenius" or
//"vtf".
func ActivationEnergy(temps []float64, ds []*dist.Distribution, model string, options ...*arrhenius.Options) (*arrhenius.Fit, error) {
	if len(temps) != len(ds) {
		return nil, fmt.Errorf("kinisi/analyze: Got %d temperatures for %d posteriors", len(temps), len(ds))
	}
	d := make([]float64, len(ds))
	dErr := make([]float64, len(ds))
	for i, p := range ds {
		if p == nil {
			return nil, fmt.Errorf("kinisi/analyze: Posterior %d is nil", i)
		}
		d[i] = p.Mean()
		dErr[i] = p.StdDev()
	}
	switch model {
	case "arrhenius":
		return arrhenius.NewStandard(temps, d, dErr, options...)
	case "vtf":
		return arrhenius.NewSuper(temps, d, dErr, options...)
	default:
		return nil, fmt.Errorf("kinisi/analyze: Unknown model %q, want arrhenius or vtf", model)
	}
}

//Report is the outcome of a configured analysis: the resampled
//observable, the fitted relationship and the transport coefficient the
//method asked for. Conductivity is only set by the conductivity method.
type Report struct {
	Method       cfg.Method
	Dims         kinisi.Dims
	Result       *bootstrap.Result
	Relationship *diffusion.Relationship
	Coefficient  *dist.Distribution
	Conductivity *dist.Distribution
}

//FromCfg runs the analysis a configuration describes against a frame
//source and reports the outcome.
func FromCfg(c *cfg.Cfg, src kinisi.Source) (*Report, error) {
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("kinisi/analyze: Check: %w", err)
	}
	dims, err := c.DimsOf()
	if err != nil {
		return nil, err
	}
	p := c.Params()
	bo := c.Bootstrap()
	fo := c.Fit()
	R := &Report{Method: c.Method, Dims: dims}
	switch c.Method {
	case cfg.MMSD:
		a, err := NewDiffusionAnalyzer(src, p, dims, bo)
		if err != nil {
			return nil, err
		}
		if err := a.Diffusion(c.StartDt, fo); err != nil {
			return nil, err
		}
		R.Result = a.Result()
		R.Relationship = a.Relationship()
		if R.Coefficient, err = a.D(); err != nil {
			return nil, err
		}
	case cfg.MTMSD:
		a, err := NewJumpDiffusionAnalyzer(src, p, dims, bo)
		if err != nil {
			return nil, err
		}
		if err := a.Diffusion(c.StartDt, fo); err != nil {
			return nil, err
		}
		R.Result = a.Result()
		R.Relationship = a.Relationship()
		if R.Coefficient, err = a.DJ(); err != nil {
			return nil, err
		}
	case cfg.MMSCD, cfg.MConductivity:
		a, err := NewConductivityAnalyzer(src, p, dims, c.Charges, bo)
		if err != nil {
			return nil, err
		}
		if err := a.Diffusion(c.StartDt, fo); err != nil {
			return nil, err
		}
		R.Result = a.Result()
		R.Relationship = a.Relationship()
		if R.Coefficient, err = a.DSigma(); err != nil {
			return nil, err
		}
		if c.Method == cfg.MConductivity {
			if R.Conductivity, err = a.Conductivity(c.Temperature, c.Volume); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("kinisi/analyze: Unknown method %q", c.Method)
	}
	return R, nil
}
