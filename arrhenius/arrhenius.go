/*
 * arrhenius.go, part of kinisi.
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

//Package arrhenius relates diffusion coefficients measured at several
//temperatures to an activation energy. Two models are offered: the
//standard Arrhenius relation D = A exp(-Ea/kB T) and the
//Vogel-Tammann-Fulcher relation D = A exp(-Ea/kB (T-T0)) for
//super-Arrhenius transport, where T0 is the temperature at which the
//diffusivity would vanish. Both are fit by maximum likelihood against
//the per-temperature uncertainties and then sampled for posteriors, so
//the activation energy comes out as a distribution, not a bare number.
package arrhenius

import (
	"encoding/json"
	"fmt"
	"math"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/dist"
	"github.com/arm61/kinisi/mcmc"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

//Model is an activation-energy relation between temperature and a
//diffusion coefficient. Parameters are ordered as Names reports them,
//with the activation energy (eV) always first and the logarithm of the
//pre-exponential factor second.
type Model interface {
	//Eval returns the diffusion coefficient at temperature T (K) under
	//the given parameters.
	Eval(params []float64, T float64) float64
	//NParams returns how many parameters the model has.
	NParams() int
	//Bounds returns the uniform prior box, one pair per parameter.
	Bounds() [][2]float64
	//Names returns the parameter names, in order.
	Names() []string
}

//Standard is the Arrhenius relation, with parameters Ea (eV) and lnA.
type Standard struct {
	ea  [2]float64
	lnA [2]float64
}

func (m Standard) Eval(params []float64, T float64) float64 {
	return math.Exp(params[1] - params[0]/(kinisi.KBoltzEV*T))
}

func (m Standard) NParams() int {
	return 2
}

func (m Standard) Bounds() [][2]float64 {
	return [][2]float64{m.ea, m.lnA}
}

func (m Standard) Names() []string {
	return []string{"Ea", "lnA"}
}

//Super is the Vogel-Tammann-Fulcher relation, with parameters Ea (eV),
//lnA and the divergence temperature T0 (K).
type Super struct {
	ea  [2]float64
	lnA [2]float64
	t0  [2]float64
}

func (m Super) Eval(params []float64, T float64) float64 {
	return math.Exp(params[1] - params[0]/(kinisi.KBoltzEV*(T-params[2])))
}

func (m Super) NParams() int {
	return 3
}

func (m Super) Bounds() [][2]float64 {
	return [][2]float64{m.ea, m.lnA, m.t0}
}

func (m Super) Names() []string {
	return []string{"Ea", "lnA", "T0"}
}

//Options contains the options for fitting an activation-energy model.
type Options struct {
	eaBounds   [2]float64
	lnABounds  [2]float64
	t0Fraction float64
	sampler    *mcmc.Options
}

//Returns an Options with the default options. Activation energies
//between 0 and 2 eV and lnA between -20 and 20 cover ionic conductors
//comfortably; the divergence temperature of the VTF model is allowed up
//to 0.9 times the coldest measurement.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.eaBounds = [2]float64{0, 2}
	ret.lnABounds = [2]float64{-20, 20}
	ret.t0Fraction = 0.9
	ret.sampler = mcmc.DefaultOptions()
	return ret
}

//Returns the bounds of the uniform prior on the activation energy (eV)
//and sets them, if a valid pair is given.
func (r *Options) EaBounds(b ...[2]float64) [2]float64 {
	ret := r.eaBounds
	if len(b) > 0 && b[0][0] < b[0][1] {
		r.eaBounds = b[0]
	}
	return ret
}

//Returns the bounds of the uniform prior on the logarithm of the
//pre-exponential factor and sets them, if a valid pair is given.
func (r *Options) LnABounds(b ...[2]float64) [2]float64 {
	ret := r.lnABounds
	if len(b) > 0 && b[0][0] < b[0][1] {
		r.lnABounds = b[0]
	}
	return ret
}

//Returns the upper bound on the VTF divergence temperature, as a
//fraction of the coldest measured temperature, and sets it, if a value
//in (0, 1) is given.
func (r *Options) T0Fraction(f ...float64) float64 {
	ret := r.t0Fraction
	if len(f) > 0 && f[0] > 0 && f[0] < 1 {
		r.t0Fraction = f[0]
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

//Fit is an activation-energy model fit to diffusion coefficients
//measured at several temperatures. It holds the data, the
//maximum-likelihood parameters and the sampled posterior.
type Fit struct {
	model  Model
	temps  []float64
	d      []float64
	dErr   []float64
	mle    []float64
	chain  *mcmc.Chain
	params []*dist.Distribution
}

//NewStandard fits the Arrhenius relation to diffusion coefficients d
//with one-sigma uncertainties dErr, measured at the given temperatures
//(K). Units of d carry through to the pre-exponential factor.
func NewStandard(temps, d, dErr []float64, options ...*Options) (*Fit, error) {
	o := pick(options)
	if err := checkData(temps, d, dErr, 2); err != nil {
		return nil, err
	}
	m := Standard{ea: o.eaBounds, lnA: o.lnABounds}
	return fit(m, temps, d, dErr, o)
}

//NewSuper fits the Vogel-Tammann-Fulcher relation to diffusion
//coefficients d with one-sigma uncertainties dErr, measured at the
//given temperatures (K). The divergence temperature is kept below the
//coldest measurement.
func NewSuper(temps, d, dErr []float64, options ...*Options) (*Fit, error) {
	o := pick(options)
	if err := checkData(temps, d, dErr, 3); err != nil {
		return nil, err
	}
	m := Super{ea: o.eaBounds, lnA: o.lnABounds, t0: [2]float64{0, o.t0Fraction * minOf(temps)}}
	return fit(m, temps, d, dErr, o)
}

func pick(options []*Options) *Options {
	if len(options) > 0 && options[0] != nil {
		return options[0]
	}
	return DefaultOptions()
}

func minOf(v []float64) float64 {
	ret := v[0]
	for _, x := range v {
		if x < ret {
			ret = x
		}
	}
	return ret
}

func checkData(temps, d, dErr []float64, nparams int) error {
	if len(temps) != len(d) || len(temps) != len(dErr) {
		return fmt.Errorf("kinisi/arrhenius: Mismatched data: %d temperatures, %d coefficients, %d uncertainties", len(temps), len(d), len(dErr))
	}
	if len(temps) < nparams {
		return fmt.Errorf("kinisi/arrhenius: %d points cannot constrain %d parameters", len(temps), nparams)
	}
	for i, T := range temps {
		if T <= 0 {
			return fmt.Errorf("kinisi/arrhenius: Temperature %d is not positive: %v", i, T)
		}
		if d[i] <= 0 {
			return fmt.Errorf("kinisi/arrhenius: Coefficient %d is not positive: %v", i, d[i])
		}
		if dErr[i] <= 0 {
			return fmt.Errorf("kinisi/arrhenius: Uncertainty %d is not positive: %v", i, dErr[i])
		}
	}
	return nil
}

func fit(m Model, temps, d, dErr []float64, o *Options) (*Fit, error) {
	F := new(Fit)
	F.model = m
	F.temps = dup(temps)
	F.d = dup(d)
	F.dErr = dup(dErr)
	bounds := m.Bounds()
	lnPost := func(p []float64) float64 {
		for i, b := range bounds {
			if p[i] < b[0] || p[i] > b[1] {
				return math.Inf(-1)
			}
		}
		return F.LogLikelihood(p)
	}
	seed := seedParams(m, temps, d, dErr)
	prob := optimize.Problem{Func: func(p []float64) float64 { return -lnPost(p) }}
	res, err := optimize.Minimize(prob, seed, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("kinisi/arrhenius: Likelihood maximization failed: %v", err)
	}
	F.mle = dup(res.X)
	chain, err := mcmc.Sample(lnPost, F.mle, o.sampler)
	if err != nil {
		return nil, err
	}
	F.chain = chain
	names := m.Names()
	F.params = make([]*dist.Distribution, m.NParams())
	for i := range F.params {
		if F.params[i], err = chain.Param(i, names[i]); err != nil {
			return nil, err
		}
	}
	return F, nil
}

//the slope of ln D against the inverse of the thermally active
//temperature gap is -Ea/kB, which seeds the likelihood climb
func seedParams(m Model, temps, d, dErr []float64) []float64 {
	bounds := m.Bounds()
	t0 := 0.0
	if len(bounds) > 2 {
		t0 = 0.5 * (bounds[2][0] + bounds[2][1])
	}
	n := len(temps)
	x := make([]float64, n)
	y := make([]float64, n)
	w := make([]float64, n)
	for i := range temps {
		x[i] = 1 / (temps[i] - t0)
		y[i] = math.Log(d[i])
		r := d[i] / dErr[i]
		w[i] = r * r
	}
	lnA0, slope := stat.LinearRegression(x, y, w, false)
	seed := make([]float64, m.NParams())
	seed[0] = clamp(-slope*kinisi.KBoltzEV, bounds[0])
	seed[1] = clamp(lnA0, bounds[1])
	if len(seed) > 2 {
		seed[2] = t0
	}
	return seed
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

func dup(v []float64) []float64 {
	d := make([]float64, len(v))
	copy(d, v)
	return d
}

//LogLikelihood returns the log-likelihood of the data under the given
//parameters, with each point an independent Gaussian of the measured
//uncertainty.
func (F *Fit) LogLikelihood(params []float64) float64 {
	lnL := 0.0
	for i, T := range F.temps {
		f := F.model.Eval(params, T)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return math.Inf(-1)
		}
		r := (F.d[i] - f) / F.dErr[i]
		lnL -= 0.5 * (r*r + math.Log(2*math.Pi*F.dErr[i]*F.dErr[i]))
	}
	return lnL
}

//MaxLikelihood returns a copy of the maximum-likelihood parameters, in
//the order the model names them.
func (F *Fit) MaxLikelihood() []float64 {
	return dup(F.mle)
}

//MaxLogLikelihood returns the log-likelihood at the maximum-likelihood
//point.
func (F *Fit) MaxLogLikelihood() float64 {
	return F.LogLikelihood(F.mle)
}

//Model returns the fitted model.
func (F *Fit) Model() Model {
	return F.model
}

//NPoints returns the number of temperatures in the fit.
func (F *Fit) NPoints() int {
	return len(F.temps)
}

//Temps returns a copy of the fit temperatures, in K.
func (F *Fit) Temps() []float64 {
	return dup(F.temps)
}

//D returns a copy of the fitted diffusion coefficients.
func (F *Fit) D() []float64 {
	return dup(F.d)
}

//DErr returns a copy of the coefficient uncertainties.
func (F *Fit) DErr() []float64 {
	return dup(F.dErr)
}

//Chain returns the sampled posterior chain.
func (F *Fit) Chain() *mcmc.Chain {
	return F.chain
}

//Param returns the posterior of the i-th model parameter.
func (F *Fit) Param(i int) (*dist.Distribution, error) {
	if i < 0 || i >= len(F.params) {
		return nil, fmt.Errorf("kinisi/arrhenius: No parameter %d in a %d-parameter model", i, len(F.params))
	}
	return F.params[i], nil
}

//ActivationEnergy returns the posterior of the activation energy, in
//eV.
func (F *Fit) ActivationEnergy() *dist.Distribution {
	return F.params[0]
}

//Preexponent returns the posterior of the pre-exponential factor, in
//the units of the fitted coefficients.
func (F *Fit) Preexponent() (*dist.Distribution, error) {
	s := F.params[1].Samples()
	for i := range s {
		s[i] = math.Exp(s[i])
	}
	return dist.New(s, "A")
}

//T0 returns the posterior of the VTF divergence temperature, in K. It
//errors on a standard Arrhenius fit, which has no such temperature.
func (F *Fit) T0() (*dist.Distribution, error) {
	if len(F.params) < 3 {
		return nil, fmt.Errorf("kinisi/arrhenius: The standard Arrhenius model has no divergence temperature")
	}
	return F.params[2], nil
}

//Predict returns the posterior predictive distribution of the
//coefficient at temperature T (K).
func (F *Fit) Predict(T float64) (*dist.Distribution, error) {
	if T <= 0 {
		return nil, fmt.Errorf("kinisi/arrhenius: The temperature must be positive, got %v", T)
	}
	flat := F.chain.Flat()
	s := make([]float64, len(flat))
	for i, p := range flat {
		s[i] = F.model.Eval(p, T)
	}
	return dist.New(s, fmt.Sprintf("D at %g K", T))
}

//Curves returns up to n posterior curves evaluated at the given
//temperatures, one row per posterior sample, for credible bands.
func (F *Fit) Curves(temps []float64, n int) [][]float64 {
	flat := F.chain.Flat()
	if n > len(flat) {
		n = len(flat)
	}
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(temps))
		for j, T := range temps {
			row[j] = F.model.Eval(flat[i], T)
		}
		out[i] = row
	}
	return out
}

func (F *Fit) MarshalJSON() ([]byte, error) {
	var name string
	switch F.model.(type) {
	case Standard:
		name = "arrhenius"
	case Super:
		name = "vtf"
	default:
		return nil, fmt.Errorf("kinisi/arrhenius: Cannot serialize a model of type %T", F.model)
	}
	j, err := json.Marshal(struct {
		Model      string       `json:"model"`
		Bounds     [][2]float64 `json:"bounds"`
		Temps      []float64    `json:"temps"`
		D          []float64    `json:"d"`
		DErr       []float64    `json:"derr"`
		MLE        []float64    `json:"mle"`
		Chain      [][]float64  `json:"chain"`
		Acceptance float64      `json:"acceptance"`
	}{
		Model:      name,
		Bounds:     F.model.Bounds(),
		Temps:      F.temps,
		D:          F.d,
		DErr:       F.dErr,
		MLE:        F.mle,
		Chain:      F.chain.Flat(),
		Acceptance: F.chain.Acceptance(),
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (F *Fit) UnmarshalJSON(b []byte) error {
	var a struct {
		Model      string       `json:"model"`
		Bounds     [][2]float64 `json:"bounds"`
		Temps      []float64    `json:"temps"`
		D          []float64    `json:"d"`
		DErr       []float64    `json:"derr"`
		MLE        []float64    `json:"mle"`
		Chain      [][]float64  `json:"chain"`
		Acceptance float64      `json:"acceptance"`
	}
	err := json.Unmarshal(b, &a)
	if err != nil {
		return err
	}
	for i, bo := range a.Bounds {
		if bo[0] >= bo[1] {
			return fmt.Errorf("kinisi/arrhenius: Bound %d of a serialized fit is not increasing: %v", i, bo)
		}
	}
	var m Model
	switch a.Model {
	case "arrhenius":
		if len(a.Bounds) != 2 {
			return fmt.Errorf("kinisi/arrhenius: The standard model needs 2 bounds, got %d", len(a.Bounds))
		}
		m = Standard{ea: a.Bounds[0], lnA: a.Bounds[1]}
	case "vtf":
		if len(a.Bounds) != 3 {
			return fmt.Errorf("kinisi/arrhenius: The VTF model needs 3 bounds, got %d", len(a.Bounds))
		}
		m = Super{ea: a.Bounds[0], lnA: a.Bounds[1], t0: a.Bounds[2]}
	default:
		return fmt.Errorf("kinisi/arrhenius: Unknown model %s", a.Model)
	}
	if err := checkData(a.Temps, a.D, a.DErr, m.NParams()); err != nil {
		return err
	}
	if len(a.MLE) != m.NParams() {
		return fmt.Errorf("kinisi/arrhenius: A serialized %s fit needs %d maximum-likelihood parameters, got %d", a.Model, m.NParams(), len(a.MLE))
	}
	chain, err := mcmc.NewChain(a.Chain, a.Acceptance)
	if err != nil {
		return err
	}
	if chain.NDim() != m.NParams() {
		return fmt.Errorf("kinisi/arrhenius: A serialized %s chain needs %d parameters, got %d", a.Model, m.NParams(), chain.NDim())
	}
	names := m.Names()
	params := make([]*dist.Distribution, m.NParams())
	for i := range params {
		if params[i], err = chain.Param(i, names[i]); err != nil {
			return err
		}
	}
	F.model = m
	F.temps = a.Temps
	F.d = a.D
	F.dErr = a.DErr
	F.mle = a.MLE
	F.chain = chain
	F.params = params
	return nil
}
