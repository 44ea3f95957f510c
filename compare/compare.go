/*
 * compare.go, part of kinisi.
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

//Package compare ranks competing transport models. Quick rankings come
//from information criteria on the maximum likelihood; when the criteria
//disagree or the models are not nested, the Bayesian evidence from
//nested sampling settles it.
package compare

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/arm61/kinisi/arrhenius"
)

//Criteria holds the information criteria of a fitted model: the peak
//log-likelihood, the parameter count K, the data count N, and the
//Akaike, corrected Akaike and Bayesian criteria built from them. AICc
//is +Inf when N <= K+1, where the correction diverges.
type Criteria struct {
	LogL float64
	K    int
	N    int
	AIC  float64
	AICc float64
	BIC  float64
}

//NewCriteria builds the information criteria from a peak
//log-likelihood, a parameter count and a data count.
func NewCriteria(logL float64, k, n int) (Criteria, error) {
	var c Criteria
	if math.IsNaN(logL) || math.IsInf(logL, 0) {
		return c, fmt.Errorf("kinisi/compare: The log-likelihood is not finite: %v", logL)
	}
	if k < 1 {
		return c, fmt.Errorf("kinisi/compare: A model needs at least one parameter, got %d", k)
	}
	if n < 1 {
		return c, fmt.Errorf("kinisi/compare: A fit needs at least one point, got %d", n)
	}
	c.LogL = logL
	c.K = k
	c.N = n
	c.AIC = 2*float64(k) - 2*logL
	c.BIC = float64(k)*math.Log(float64(n)) - 2*logL
	if n > k+1 {
		c.AICc = c.AIC + 2*float64(k)*float64(k+1)/float64(n-k-1)
	} else {
		c.AICc = math.Inf(1)
	}
	return c, nil
}

//AkaikeWeights returns the relative likelihood of each model from its
//corrected Akaike criterion, normalized to sum to one. Models whose
//correction diverged get zero weight.
func AkaikeWeights(crit []Criteria) ([]float64, error) {
	if len(crit) == 0 {
		return nil, fmt.Errorf("kinisi/compare: No criteria to weight")
	}
	min := math.Inf(1)
	for _, c := range crit {
		if c.AICc < min {
			min = c.AICc
		}
	}
	if math.IsInf(min, 1) {
		return nil, fmt.Errorf("kinisi/compare: No model has a finite corrected Akaike criterion")
	}
	w := make([]float64, len(crit))
	total := 0.0
	for i, c := range crit {
		w[i] = math.Exp(-0.5 * (c.AICc - min))
		total += w[i]
	}
	for i := range w {
		w[i] /= total
	}
	return w, nil
}

//DeltaBIC returns b.BIC - a.BIC. Positive values favor a; by the usual
//reading, above 2 is positive and above 6 strong evidence.
func DeltaBIC(a, b Criteria) float64 {
	return b.BIC - a.BIC
}

//Evidence is the Bayesian evidence of a model from nested sampling: the
//log-evidence, its sampling error and the information H (the
//prior-to-posterior compression, in nats).
type Evidence struct {
	LogZ    float64
	LogZErr float64
	H       float64
}

//BayesFactor returns the evidence ratio Z_a/Z_b of two models.
func BayesFactor(a, b Evidence) float64 {
	return math.Exp(a.LogZ - b.LogZ)
}

//Options contains the options for nested sampling.
type Options struct {
	live     int
	walk     int
	tol      float64
	maxIters int
	seed     int64
}

//Returns an Options with the default options: 400 live points, 30-step
//constrained walks, and termination once the live points can no longer
//move the log-evidence by 0.001.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.live = 400
	ret.walk = 30
	ret.tol = 0.001
	ret.maxIters = 100000
	ret.seed = 1
	return ret
}

//Returns the number of live points and sets it, if a value above 1 is
//given.
func (r *Options) Live(n ...int) int {
	ret := r.live
	if len(n) > 0 && n[0] > 1 {
		r.live = n[0]
	}
	return ret
}

//Returns the number of steps in each constrained walk and sets it, if a
//positive value is given.
func (r *Options) Walk(n ...int) int {
	ret := r.walk
	if len(n) > 0 && n[0] > 0 {
		r.walk = n[0]
	}
	return ret
}

//Returns the termination tolerance on the remaining log-evidence and
//sets it, if a positive value is given.
func (r *Options) Tol(t ...float64) float64 {
	ret := r.tol
	if len(t) > 0 && t[0] > 0 {
		r.tol = t[0]
	}
	return ret
}

//Returns the iteration cap and sets it, if a positive value is given.
func (r *Options) MaxIters(n ...int) int {
	ret := r.maxIters
	if len(n) > 0 && n[0] > 0 {
		r.maxIters = n[0]
	}
	return ret
}

//Returns the seed of the sampler and sets it, if given.
func (r *Options) Seed(seed ...int64) int64 {
	ret := r.seed
	if len(seed) > 0 {
		r.seed = seed[0]
	}
	return ret
}

//NestedSampling integrates the likelihood over a uniform prior box by
//static nested sampling: the worst live point is retired with a
//prior-mass trapezoid weight and replaced by a constrained Metropolis
//walk from another live point, until the live set can no longer change
//the evidence. The returned error on logZ is the usual sqrt(H/nlive).
func NestedSampling(lnLike func([]float64) float64, bounds [][2]float64, options ...*Options) (*Evidence, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	ndim := len(bounds)
	if ndim == 0 {
		return nil, fmt.Errorf("kinisi/compare: No prior box given")
	}
	for i, b := range bounds {
		if b[0] >= b[1] {
			return nil, fmt.Errorf("kinisi/compare: Prior bound %d is empty: [%v, %v]", i, b[0], b[1])
		}
	}
	rng := rand.New(rand.NewSource(o.seed))
	live := make([][]float64, o.live)
	lnl := make([]float64, o.live)
	anyFinite := false
	for i := range live {
		live[i] = make([]float64, ndim)
		for d, b := range bounds {
			live[i][d] = b[0] + rng.Float64()*(b[1]-b[0])
		}
		lnl[i] = safeLn(lnLike(live[i]))
		if !math.IsInf(lnl[i], -1) {
			anyFinite = true
		}
	}
	if !anyFinite {
		return nil, fmt.Errorf("kinisi/compare: The likelihood is nowhere finite in the prior box")
	}
	n := float64(o.live)
	lnZ := math.Inf(-1)
	h := 0.0
	iters := 0
	for ; iters < o.maxIters; iters++ {
		worst := 0
		best := 0
		for i := range lnl {
			if lnl[i] < lnl[worst] {
				worst = i
			}
			if lnl[i] > lnl[best] {
				best = i
			}
		}
		//trapezoid weight around the shrinking prior mass exp(-(i+1)/n)
		i := float64(iters)
		lnw := math.Log(0.5 * (math.Exp(-i/n) - math.Exp(-(i+2)/n)))
		lnZ, h = accumulate(lnZ, h, lnl[worst], lnw)
		//the whole live set, at best, adds lnLmax plus the remaining mass
		if !math.IsInf(lnZ, -1) && logAddExp(lnZ, lnl[best]-(i+1)/n)-lnZ < o.tol {
			iters++
			break
		}
		start := worst
		if o.live > 1 {
			for start == worst {
				start = rng.Intn(o.live)
			}
		}
		point, value := constrainedWalk(lnLike, bounds, live[start], lnl[start], lnl[worst], o.walk, rng)
		copy(live[worst], point)
		lnl[worst] = value
	}
	//the survivors share the leftover mass evenly
	lnw := -float64(iters)/n - math.Log(n)
	for i := range lnl {
		lnZ, h = accumulate(lnZ, h, lnl[i], lnw)
	}
	if math.IsInf(lnZ, -1) || math.IsNaN(lnZ) {
		return nil, fmt.Errorf("kinisi/compare: Nested sampling failed to accumulate any evidence")
	}
	if h < 0 {
		h = 0
	}
	return &Evidence{LogZ: lnZ, LogZErr: math.Sqrt(h / n), H: h}, nil
}

//constrainedWalk runs a Metropolis walk from a live point, accepting
//only moves inside the box that beat the likelihood floor, with the
//step scale adapted toward a balanced acceptance.
func constrainedWalk(lnLike func([]float64) float64, bounds [][2]float64, start []float64, startVal, floor float64, steps int, rng *rand.Rand) ([]float64, float64) {
	ndim := len(bounds)
	cur := make([]float64, ndim)
	copy(cur, start)
	curVal := startVal
	try := make([]float64, ndim)
	scale := 0.1
	accept, reject := 0, 0
	for s := 0; s < steps; s++ {
		inside := true
		for d, b := range bounds {
			try[d] = cur[d] + scale*(b[1]-b[0])*rng.NormFloat64()
			if try[d] < b[0] || try[d] > b[1] {
				inside = false
			}
		}
		v := math.Inf(-1)
		if inside {
			v = safeLn(lnLike(try))
		}
		if inside && v > floor {
			copy(cur, try)
			curVal = v
			accept++
		} else {
			reject++
		}
		if accept > reject {
			scale *= math.Exp(1 / float64(accept))
		} else if reject > accept {
			scale /= math.Exp(1 / float64(reject))
		}
	}
	return cur, curVal
}

func safeLn(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

//accumulate folds one weighted likelihood shell into the running
//log-evidence and information.
func accumulate(lnZ, h, lnL, lnw float64) (float64, float64) {
	if math.IsInf(lnL, -1) {
		return lnZ, h
	}
	lnZnew := logAddExp(lnZ, lnL+lnw)
	hNew := math.Exp(lnL+lnw-lnZnew) * lnL
	if !math.IsInf(lnZ, -1) {
		hNew += math.Exp(lnZ-lnZnew) * (h + lnZ)
	}
	hNew -= lnZnew
	return lnZnew, hNew
}

func logAddExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

//ModelComparison is one model's entry in a ranking: its name, criteria,
//Akaike weight and, when requested, its evidence.
type ModelComparison struct {
	Name     string
	Criteria Criteria
	Weight   float64
	Evidence *Evidence
}

//CompareArrhenius ranks fitted activation-energy models by their
//corrected Akaike criterion, best first. With evidence set, each model
//also gets its nested-sampling evidence over the fit's own prior box,
//which is the sounder comparison when the models are not nested.
func CompareArrhenius(fits []*arrhenius.Fit, evidence bool, options ...*Options) ([]ModelComparison, error) {
	if len(fits) == 0 {
		return nil, fmt.Errorf("kinisi/compare: No fits to compare")
	}
	out := make([]ModelComparison, len(fits))
	crit := make([]Criteria, len(fits))
	for i, f := range fits {
		c, err := NewCriteria(f.MaxLogLikelihood(), f.Model().NParams(), f.NPoints())
		if err != nil {
			return nil, err
		}
		crit[i] = c
		out[i] = ModelComparison{Name: modelName(f.Model()), Criteria: c}
		if evidence {
			ev, err := NestedSampling(f.LogLikelihood, f.Model().Bounds(), options...)
			if err != nil {
				return nil, err
			}
			out[i].Evidence = ev
		}
	}
	w, err := AkaikeWeights(crit)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Weight = w[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Criteria.AICc < out[j].Criteria.AICc })
	return out, nil
}

func modelName(m arrhenius.Model) string {
	switch m.(type) {
	case arrhenius.Standard:
		return "arrhenius"
	case arrhenius.Super:
		return "vtf"
	default:
		return "unknown"
	}
}
