/*
 * mcmc.go, part of kinisi.
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

//Package mcmc samples posterior distributions with an affine-invariant
//ensemble of walkers using the stretch move. The sampler only ever sees
//the log-posterior as a black box, so models express their priors by
//returning -Inf outside the allowed region.

package mcmc

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arm61/kinisi/dist"
)

//Options contains the options for the ensemble sampler.
type Options struct {
	walkers int
	steps   int
	burn    int
	thin    int
	seed    int64
	stretch float64
}

//Returns an Options with the default options.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.walkers = 32
	ret.steps = 500
	ret.burn = 500
	ret.thin = 10
	ret.seed = 1
	ret.stretch = 2
	return ret
}

//Returns the number of walkers in the ensemble and sets it, if a valid
//value is given.
func (r *Options) Walkers(walkers ...int) int {
	ret := r.walkers
	if len(walkers) > 0 && walkers[0] > 1 {
		r.walkers = walkers[0]
	}
	return ret
}

//Returns the number of recorded steps each walker takes after burn-in
//and sets it, if a valid value is given.
func (r *Options) Steps(steps ...int) int {
	ret := r.steps
	if len(steps) > 0 && steps[0] > 0 {
		r.steps = steps[0]
	}
	return ret
}

//Returns the number of burn-in steps discarded from the start of the
//chain and sets it, if a valid value is given.
func (r *Options) Burn(burn ...int) int {
	ret := r.burn
	if len(burn) > 0 && burn[0] >= 0 {
		r.burn = burn[0]
	}
	return ret
}

//Returns the thinning interval (only every thin-th step is recorded)
//and sets it, if a valid value is given.
func (r *Options) Thin(thin ...int) int {
	ret := r.thin
	if len(thin) > 0 && thin[0] > 0 {
		r.thin = thin[0]
	}
	return ret
}

//Returns the seed of the random source and sets it, if given.
func (r *Options) Seed(seed ...int64) int64 {
	ret := r.seed
	if len(seed) > 0 {
		r.seed = seed[0]
	}
	return ret
}

//Returns the stretch parameter of the move and sets it, if a valid value
//is given. Larger values propose bolder jumps.
func (r *Options) Stretch(stretch ...float64) float64 {
	ret := r.stretch
	if len(stretch) > 0 && stretch[0] > 1 {
		r.stretch = stretch[0]
	}
	return ret
}

//Chain holds the flattened posterior samples of every parameter, plus
//the fraction of proposals that were accepted.
type Chain struct {
	ndim       int
	flat       [][]float64
	acceptance float64
}

//NewChain rebuilds a chain from flattened samples, as when reading a
//stored run back. Every sample must have the same number of parameters.
func NewChain(flat [][]float64, acceptance float64) (*Chain, error) {
	if len(flat) < 1 {
		return nil, fmt.Errorf("kinisi/mcmc: A chain needs at least one sample")
	}
	ndim := len(flat[0])
	if ndim < 1 {
		return nil, fmt.Errorf("kinisi/mcmc: A chain needs at least one parameter")
	}
	for i, s := range flat {
		if len(s) != ndim {
			return nil, fmt.Errorf("kinisi/mcmc: Sample %d has %d parameters, the first has %d", i, len(s), ndim)
		}
	}
	if acceptance < 0 || acceptance > 1 || math.IsNaN(acceptance) {
		return nil, fmt.Errorf("kinisi/mcmc: The acceptance fraction must be between 0 and 1")
	}
	c := new(Chain)
	c.ndim = ndim
	c.flat = flat
	c.acceptance = acceptance
	return c, nil
}

//Sample runs the ensemble over the log-posterior and returns the
//thinned, burned-in chain. start should be a decent guess (usually the
//maximum-likelihood point); the walkers begin in a tight ball around it.
func Sample(lnPost func([]float64) float64, start []float64, options ...*Options) (*Chain, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	ndim := len(start)
	if ndim < 1 {
		return nil, fmt.Errorf("kinisi/mcmc: Nothing to sample: the starting point has no parameters")
	}
	if o.walkers < 2*ndim {
		return nil, fmt.Errorf("kinisi/mcmc: %d walkers cannot explore %d dimensions, at least %d are needed", o.walkers, ndim, 2*ndim)
	}
	if !isFinite(lnPost(start)) {
		return nil, fmt.Errorf("kinisi/mcmc: The starting point has zero posterior probability")
	}
	rng := rand.New(rand.NewSource(o.seed))
	walkers, lnp, err := initBall(lnPost, start, o.walkers, rng)
	if err != nil {
		return nil, err
	}
	c := new(Chain)
	c.ndim = ndim
	c.flat = make([][]float64, 0, o.walkers*(o.steps/o.thin+1))
	accepted := 0
	total := o.burn + o.steps
	prop := make([]float64, ndim)
	for t := 0; t < total; t++ {
		for k := range walkers {
			//stretch move: jump along the line to another walker
			j := rng.Intn(len(walkers) - 1)
			if j >= k {
				j++
			}
			u := rng.Float64()
			z := (u*(o.stretch-1) + 1)
			z = z * z / o.stretch
			for d := 0; d < ndim; d++ {
				prop[d] = walkers[j][d] + z*(walkers[k][d]-walkers[j][d])
			}
			lp := lnPost(prop)
			dlnp := float64(ndim-1)*math.Log(z) + lp - lnp[k]
			if dlnp > 0 || math.Log(rng.Float64()) < dlnp {
				copy(walkers[k], prop)
				lnp[k] = lp
				accepted++
			}
		}
		if t >= o.burn && (t-o.burn)%o.thin == 0 {
			for k := range walkers {
				s := make([]float64, ndim)
				copy(s, walkers[k])
				c.flat = append(c.flat, s)
			}
		}
	}
	c.acceptance = float64(accepted) / float64(total*o.walkers)
	return c, nil
}

//initBall scatters the walkers in a tight gaussian ball around start,
//redrawing any that land where the posterior vanishes.
func initBall(lnPost func([]float64) float64, start []float64, n int, rng *rand.Rand) ([][]float64, []float64, error) {
	ndim := len(start)
	walkers := make([][]float64, n)
	lnp := make([]float64, n)
	for k := range walkers {
		w := make([]float64, ndim)
		ok := false
		for try := 0; try < 100; try++ {
			for d, s := range start {
				scale := math.Abs(s)
				if scale == 0 {
					scale = 1e-8
				}
				w[d] = s + scale*1e-3*rng.NormFloat64()
			}
			if lnp[k] = lnPost(w); isFinite(lnp[k]) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, nil, fmt.Errorf("kinisi/mcmc: Could not place walker %d near the starting point", k)
		}
		walkers[k] = w
	}
	return walkers, lnp, nil
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

//NDim returns the number of parameters in the chain.
func (C *Chain) NDim() int {
	return C.ndim
}

//Len returns the number of samples in the chain.
func (C *Chain) Len() int {
	return len(C.flat)
}

//Acceptance returns the fraction of proposals that were accepted.
//Healthy runs sit somewhere between 0.2 and 0.5.
func (C *Chain) Acceptance() float64 {
	return C.acceptance
}

//Flat returns the samples, one slice per sample. The outer and inner
//slices are views, not copies.
func (C *Chain) Flat() [][]float64 {
	return C.flat
}

//Param returns the marginal posterior of parameter d as a distribution
//with the given name.
func (C *Chain) Param(d int, name string) (*dist.Distribution, error) {
	if d < 0 || d >= C.ndim {
		return nil, fmt.Errorf("kinisi/mcmc: No parameter %d in a %d-parameter chain", d, C.ndim)
	}
	samples := make([]float64, len(C.flat))
	for i, s := range C.flat {
		samples[i] = s[d]
	}
	return dist.New(samples, name)
}
