/*
 * diffusion.go, part of kinisi.
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

//Package diffusion turns resampled displacement observables into transport
//coefficients with credible intervals. The mean-squared displacement is a
//straight line in time once the particles diffuse, but its points are
//correlated, so the line is fit by generalized least squares against the
//full covariance matrix of the resampled means: first a maximum-likelihood
//estimate, then an ensemble sampler around it for the posterior of the
//gradient and intercept. The gradient then becomes a self-diffusion,
//jump-diffusion or conductivity-diffusion coefficient.

package diffusion

import (
	"fmt"
	"math"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/bootstrap"
	"github.com/arm61/kinisi/dist"
	"github.com/arm61/kinisi/mcmc"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

//Options contains the options for fitting a relationship.
type Options struct {
	gradBounds  [2]float64
	interBounds [2]float64
	sampler     *mcmc.Options
}

//Returns an Options with the default options. The default prior box
//allows gradients between 0 and 100 A^2/ps and intercepts between -10
//and 10 A^2, which covers solid-state and liquid diffusion alike.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.gradBounds = [2]float64{0, 100}
	ret.interBounds = [2]float64{-10, 10}
	ret.sampler = mcmc.DefaultOptions()
	return ret
}

//Returns the bounds of the uniform prior on the gradient and sets them,
//if a valid pair is given.
func (r *Options) GradientBounds(b ...[2]float64) [2]float64 {
	ret := r.gradBounds
	if len(b) > 0 && b[0][0] < b[0][1] {
		r.gradBounds = b[0]
	}
	return ret
}

//Returns the bounds of the uniform prior on the intercept and sets them,
//if a valid pair is given.
func (r *Options) InterceptBounds(b ...[2]float64) [2]float64 {
	ret := r.interBounds
	if len(b) > 0 && b[0][0] < b[0][1] {
		r.interBounds = b[0]
	}
	return ret
}

//Returns the options of the posterior sampler and sets them, if given.
func (r *Options) Sampler(s ...*mcmc.Options) *mcmc.Options {
	ret := r.sampler
	if len(s) > 0 && s[0] != nil {
		r.sampler = s[0]
	}
	return ret
}

//Relationship is a linear model fit to a resampled observable against
//time: the Einstein relation in whichever flavor the observable implies.
//It holds the fit window, the covariance structure, the maximum
//likelihood point and the sampled posterior.
type Relationship struct {
	kind        string
	dims        int
	nMobile     int
	dt          []float64
	values      []float64
	chol        mat.Cholesky
	logDet      float64
	gradBounds  [2]float64
	interBounds [2]float64
	mle         []float64
	chain       *mcmc.Chain
	grad        *dist.Distribution
	inter       *dist.Distribution
}

//New fits a straight line to the resampled observable, ignoring
//intervals before startDt (in ps) where transport is not yet diffusive.
//The fit is generalized least squares under the covariance model of the
//result, polished into a maximum-likelihood point and then explored by
//the ensemble sampler.
func New(r *bootstrap.Result, startDt float64, options ...*Options) (*Relationship, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	tr, err := r.Truncate(startDt)
	if err != nil {
		return nil, err
	}
	cov, err := tr.Covariance()
	if err != nil {
		return nil, err
	}
	R := new(Relationship)
	R.kind = tr.Kind()
	R.dims = tr.Dims()
	R.nMobile = tr.NMobile()
	R.dt = tr.Dt()
	R.values = tr.Values()
	R.gradBounds = o.gradBounds
	R.interBounds = o.interBounds
	if !R.chol.Factorize(cov) {
		return nil, fmt.Errorf("kinisi/diffusion: The covariance matrix is not positive definite")
	}
	R.logDet = R.chol.LogDet()
	//weighted least squares gives the seed for the likelihood climb
	vars := tr.Vars()
	w := make([]float64, len(vars))
	for i, v := range vars {
		if v <= 0 {
			return nil, fmt.Errorf("kinisi/diffusion: Interval %d has no spread, cannot weight the fit", i)
		}
		w[i] = 1 / v
	}
	c0, m0 := stat.LinearRegression(R.dt, R.values, w, false)
	m0 = clamp(m0, o.gradBounds)
	c0 = clamp(c0, o.interBounds)
	lnPost := func(p []float64) float64 {
		if p[0] < R.gradBounds[0] || p[0] > R.gradBounds[1] || p[1] < R.interBounds[0] || p[1] > R.interBounds[1] {
			return math.Inf(-1)
		}
		return R.LogLikelihood(p[0], p[1])
	}
	prob := optimize.Problem{Func: func(p []float64) float64 { return -lnPost(p) }}
	res, err := optimize.Minimize(prob, []float64{m0, c0}, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("kinisi/diffusion: Likelihood maximization failed: %v", err)
	}
	R.mle = make([]float64, 2)
	copy(R.mle, res.X)
	chain, err := mcmc.Sample(lnPost, R.mle, o.sampler)
	if err != nil {
		return nil, err
	}
	R.chain = chain
	if R.grad, err = chain.Param(0, "gradient"); err != nil {
		return nil, err
	}
	if R.inter, err = chain.Param(1, "intercept"); err != nil {
		return nil, err
	}
	return R, nil
}

func clamp(v float64, b [2]float64) float64 {
	margin := (b[1] - b[0]) * 1e-6
	if v < b[0]+margin {
		return b[0] + margin
	}
	if v > b[1]-margin {
		return b[1] - margin
	}
	return v
}

//LogLikelihood returns the generalized least-squares log-likelihood of
//the fit window under the given straight line.
func (R *Relationship) LogLikelihood(gradient, intercept float64) float64 {
	n := len(R.dt)
	res := make([]float64, n)
	for i, t := range R.dt {
		res[i] = R.values[i] - (gradient*t + intercept)
	}
	rv := mat.NewVecDense(n, res)
	sol := mat.NewVecDense(n, nil)
	if err := R.chol.SolveVecTo(sol, rv); err != nil {
		return math.Inf(-1)
	}
	return -0.5 * (mat.Dot(rv, sol) + R.logDet + float64(n)*math.Log(2*math.Pi))
}

//MaxLikelihood returns the gradient (A^2/ps) and intercept (A^2) of the
//maximum-likelihood line.
func (R *Relationship) MaxLikelihood() (float64, float64) {
	return R.mle[0], R.mle[1]
}

//MaxLogLikelihood returns the log-likelihood at the maximum-likelihood
//point, which information criteria are built on.
func (R *Relationship) MaxLogLikelihood() float64 {
	return R.LogLikelihood(R.mle[0], R.mle[1])
}

//Gradient returns the posterior of the line gradient, in A^2/ps.
func (R *Relationship) Gradient() *dist.Distribution {
	return R.grad
}

//Intercept returns the posterior of the line intercept, in A^2.
func (R *Relationship) Intercept() *dist.Distribution {
	return R.inter
}

//Chain returns the sampled posterior chain.
func (R *Relationship) Chain() *mcmc.Chain {
	return R.chain
}

//Kind returns which observable was fit: "msd", "tmsd" or "mscd".
func (R *Relationship) Kind() string {
	return R.kind
}

//Dims returns the number of spatial dimensions of the observable.
func (R *Relationship) Dims() int {
	return R.dims
}

//NMobile returns the number of mobile particles behind the observable.
func (R *Relationship) NMobile() int {
	return R.nMobile
}

//NPoints returns the number of intervals in the fit window.
func (R *Relationship) NPoints() int {
	return len(R.dt)
}

//Dt returns a copy of the fit window times, in ps.
func (R *Relationship) Dt() []float64 {
	d := make([]float64, len(R.dt))
	copy(d, R.dt)
	return d
}

//Values returns a copy of the observable over the fit window, in A^2.
func (R *Relationship) Values() []float64 {
	d := make([]float64, len(R.values))
	copy(d, R.values)
	return d
}

//Bounds returns the uniform prior box of the fit: gradient bounds, then
//intercept bounds.
func (R *Relationship) Bounds() ([2]float64, [2]float64) {
	return R.gradBounds, R.interBounds
}

//Curves returns up to n posterior lines evaluated over the fit window,
//one row per posterior sample.
func (R *Relationship) Curves(n int) [][]float64 {
	flat := R.chain.Flat()
	if n > len(flat) {
		n = len(flat)
	}
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		m, c := flat[i][0], flat[i][1]
		row := make([]float64, len(R.dt))
		for j, t := range R.dt {
			row[j] = m*t + c
		}
		out[i] = row
	}
	return out
}

//Band returns the lower and upper credible bounds of the fit line at
//every interval of the fit window, at the given level (0.95 if not
//given).
func (R *Relationship) Band(level ...float64) ([]float64, []float64, error) {
	flat := R.chain.Flat()
	los := make([]float64, len(R.dt))
	his := make([]float64, len(R.dt))
	samples := make([]float64, len(flat))
	for j, t := range R.dt {
		for i, p := range flat {
			samples[i] = p[0]*t + p[1]
		}
		d, err := dist.New(samples, "band")
		if err != nil {
			return nil, nil, err
		}
		lo, hi, err := d.ConInt(level...)
		if err != nil {
			return nil, nil, err
		}
		los[j] = lo
		his[j] = hi
	}
	return los, his, nil
}

//DiffusionCoefficient returns the posterior of the self-diffusion
//coefficient, in cm^2/s, from the gradient of an msd fit through the
//Einstein relation D = gradient/(2 dims).
func (R *Relationship) DiffusionCoefficient() (*dist.Distribution, error) {
	if R.kind != "msd" {
		return nil, fmt.Errorf("kinisi/diffusion: The self-diffusion coefficient needs an msd fit, got %s", R.kind)
	}
	return R.scaledGradient(kinisi.A2PerPs2Cm2PerS/(2*float64(R.dims)), "D*")
}

//JumpDiffusionCoefficient returns the posterior of the jump-diffusion
//coefficient, in cm^2/s, from the gradient of a tmsd fit: the collective
//displacement grows with the particle count, so the gradient is further
//divided by it.
func (R *Relationship) JumpDiffusionCoefficient() (*dist.Distribution, error) {
	if R.kind != "tmsd" {
		return nil, fmt.Errorf("kinisi/diffusion: The jump-diffusion coefficient needs a tmsd fit, got %s", R.kind)
	}
	return R.scaledGradient(kinisi.A2PerPs2Cm2PerS/(2*float64(R.dims)*float64(R.nMobile)), "D_J")
}

//SigmaDiffusionCoefficient returns the posterior of the conductivity
//diffusion coefficient, in cm^2/s, from the gradient of an mscd fit.
func (R *Relationship) SigmaDiffusionCoefficient() (*dist.Distribution, error) {
	if R.kind != "mscd" {
		return nil, fmt.Errorf("kinisi/diffusion: The conductivity diffusion coefficient needs an mscd fit, got %s", R.kind)
	}
	return R.scaledGradient(kinisi.A2PerPs2Cm2PerS/(2*float64(R.dims)), "D_sigma")
}

func (R *Relationship) scaledGradient(factor float64, name string) (*dist.Distribution, error) {
	s := R.grad.Samples()
	for i := range s {
		s[i] *= factor
	}
	return dist.New(s, name)
}

//Conductivity returns the posterior of the ionic conductivity, in S/cm,
//from an mscd fit at the given temperature (K) in the given cell volume
//(A^3). The carrier charges are already inside the observable, in
//elementary charge units.
func (R *Relationship) Conductivity(temperature, volume float64) (*dist.Distribution, error) {
	dsig, err := R.SigmaDiffusionCoefficient()
	if err != nil {
		return nil, err
	}
	factor, err := conductivityFactor(temperature, volume, float64(R.nMobile))
	if err != nil {
		return nil, err
	}
	s := dsig.Samples()
	for i := range s {
		s[i] *= factor
	}
	return dist.New(s, "sigma")
}

//NernstEinstein returns the posterior of the Nernst-Einstein
//conductivity, in S/cm, from an msd fit: the conductivity the system
//would have if every carrier of charge q (in elementary charge units)
//moved independently.
func (R *Relationship) NernstEinstein(temperature, volume, charge float64) (*dist.Distribution, error) {
	dstar, err := R.DiffusionCoefficient()
	if err != nil {
		return nil, err
	}
	factor, err := conductivityFactor(temperature, volume, float64(R.nMobile))
	if err != nil {
		return nil, err
	}
	factor *= charge * charge
	s := dstar.Samples()
	for i := range s {
		s[i] *= factor
	}
	return dist.New(s, "sigma_NE")
}

//conductivityFactor is N e^2 / (V kB T) with the volume converted from
//A^3 to cm^3, so a coefficient in cm^2/s comes out in S/cm.
func conductivityFactor(temperature, volume, n float64) (float64, error) {
	if temperature <= 0 {
		return 0, fmt.Errorf("kinisi/diffusion: The temperature must be positive, got %v", temperature)
	}
	if volume <= 0 {
		return 0, fmt.Errorf("kinisi/diffusion: The cell volume must be positive, got %v", volume)
	}
	return n * kinisi.ECharge * kinisi.ECharge / (volume * kinisi.A32Cm3 * kinisi.KBoltzJ * temperature), nil
}

//HavenRatio returns the distribution of the ratio between the
//self-diffusion and conductivity-diffusion coefficients. A ratio below 1
//means the carriers move cooperatively. The two posteriors are paired
//sample by sample up to the shorter one.
func HavenRatio(dStar, dSigma *dist.Distribution) (*dist.Distribution, error) {
	a := dStar.Samples()
	b := dSigma.Samples()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	h := make([]float64, n)
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return nil, fmt.Errorf("kinisi/diffusion: The conductivity diffusion posterior touches zero, the ratio diverges")
		}
		h[i] = a[i] / b[i]
	}
	return dist.New(h, "H_R")
}
