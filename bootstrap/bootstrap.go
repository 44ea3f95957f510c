/*
 * bootstrap.go, part of kinisi.
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

//Package bootstrap estimates the uncertainty in mean-squared displacement
//observables by resampling. Displacement observations at a given time
//interval overlap in time and share particles, so the straight standard
//error of their mean is far too optimistic. Here each interval is
//resampled only as many times as it holds statistically independent
//observations, which recovers realistic variances, and the correlation
//between intervals is modelled so a generalized least-squares fit can use
//the whole curve.

package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/dist"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
)

//Options contains the options for the resampling functions.
type Options struct {
	resamples    int
	maxResamples int
	blocks       int
	alpha        float64
	gate         bool
	seed         int64
	cpus         int
}

//Returns an Options with the default options.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.resamples = 1000
	ret.maxResamples = 100000
	ret.blocks = 0
	ret.alpha = 0.05
	ret.gate = true
	ret.seed = 1
	ret.cpus = runtime.NumCPU()
	return ret
}

//Returns the number of bootstrap resamples drawn per round
//and sets it, if a valid value is given.
func (r *Options) Resamples(resamples ...int) int {
	ret := r.resamples
	if len(resamples) > 0 && resamples[0] > 1 {
		r.resamples = resamples[0]
	}
	return ret
}

//Returns the cap on the total resamples drawn while chasing normality
//and sets it, if a valid value is given.
func (r *Options) MaxResamples(max ...int) int {
	ret := r.maxResamples
	if len(max) > 0 && max[0] > 0 {
		r.maxResamples = max[0]
	}
	return ret
}

//Returns the number of observations averaged into each replicate and
//sets it, if a value is given. The default of 0 means every replicate
//averages as many observations as the interval holds statistically
//independent ones, which is what makes the spreads honest; override it
//only to study the effect of the block size itself.
func (r *Options) Blocks(blocks ...int) int {
	ret := r.blocks
	if len(blocks) > 0 && blocks[0] >= 0 {
		r.blocks = blocks[0]
	}
	return ret
}

//Returns the significance level of the normality test that gates the
//resampling, and sets it, if a valid value is given.
func (r *Options) Alpha(alpha ...float64) float64 {
	ret := r.alpha
	if len(alpha) > 0 && alpha[0] > 0 && alpha[0] < 1 {
		r.alpha = alpha[0]
	}
	return ret
}

//Returns whether resampling keeps drawing until the distribution of the
//mean passes a normality test, and sets the value to the one given, if any.
func (r *Options) Gate(gate ...bool) bool {
	ret := r.gate
	if len(gate) > 0 {
		r.gate = gate[0]
	}
	return ret
}

//Returns the seed of the random source and sets it, if given. Every
//interval derives its own source from this seed, so results are
//reproducible no matter how the work is spread over goroutines.
func (r *Options) Seed(seed ...int64) int64 {
	ret := r.seed
	if len(seed) > 0 {
		r.seed = seed[0]
	}
	return ret
}

//Returns the current value of the Cpus option (the number of goroutines
//used for the concurrent resampling) and sets it, if a valid value is
//given.
func (r *Options) Cpus(cpus ...int) int {
	ret := r.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		r.cpus = cpus[0]
	}
	return ret
}

//Result holds the resampled observable: one distribution of the mean per
//time interval, plus the point estimates and spreads taken from them.
type Result struct {
	kind    string
	dims    int
	nMobile int
	dt      []float64
	values  []float64
	stddevs []float64
	vars    []float64
	nIndep  []float64
	ngp     []float64
	distros []*dist.Distribution
}

//MSD resamples the mean-squared displacement at every interval of the
//grid. The returned result also carries the non-Gaussian parameter of
//the raw displacements at each interval.
func MSD(disp *kinisi.Displacements, dims kinisi.Dims, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	sqAt := func(m int) ([]float64, error) { return disp.SqDisp(m, dims), nil }
	r, err := run(disp, "msd", dims, sqAt, disp.NIndep, o)
	if err != nil {
		return nil, err
	}
	r.ngp = ngp(disp, dims)
	return r, nil
}

//TMSD resamples the total (collective) mean-squared displacement at every
//interval of the grid. The values are not normalized by the particle
//count; the jump-diffusion coefficient divides by it instead.
func TMSD(disp *kinisi.Displacements, dims kinisi.Dims, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	sqAt := func(m int) ([]float64, error) { return disp.CollectiveSqDisp(m, dims, nil) }
	return run(disp, "tmsd", dims, sqAt, disp.CollectiveNIndep, o)
}

//MSCD resamples the mean-squared charge displacement at every interval of
//the grid. charges are in elementary charge units, one per mobile
//particle.
func MSCD(disp *kinisi.Displacements, dims kinisi.Dims, charges []float64, options ...*Options) (*Result, error) {
	var o *Options
	if len(options) > 0 && options[0] != nil {
		o = options[0]
	} else {
		o = DefaultOptions()
	}
	nm := float64(disp.NMobile())
	sqAt := func(m int) ([]float64, error) {
		sq, err := disp.CollectiveSqDisp(m, dims, charges)
		if err != nil {
			return nil, err
		}
		for i := range sq {
			sq[i] /= nm
		}
		return sq, nil
	}
	return run(disp, "mscd", dims, sqAt, disp.CollectiveNIndep, o)
}

//run resamples every interval concurrently. Each goroutine writes only
//its own index, so the slices need no locking.
func run(disp *kinisi.Displacements, kind string, dims kinisi.Dims, sqAt func(int) ([]float64, error), nIndepAt func(int) int, o *Options) (*Result, error) {
	n := disp.NIntervals()
	r := new(Result)
	r.kind = kind
	r.dims = dims.N()
	r.nMobile = disp.NMobile()
	r.dt = disp.Dt()
	r.values = make([]float64, n)
	r.stddevs = make([]float64, n)
	r.vars = make([]float64, n)
	r.nIndep = make([]float64, n)
	r.distros = make([]*dist.Distribution, n)
	errs := make([]error, n)
	sem := semaphore.NewWeighted(int64(o.cpus))
	ctx := context.Background()
	var wg sync.WaitGroup
	for m := 0; m < n; m++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[m] = err
			break
		}
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			defer sem.Release(1)
			sq, err := sqAt(m)
			if err != nil {
				errs[m] = err
				return
			}
			distro, err := resample(sq, nIndepAt(m), m, r.dt[m], kind, o)
			if err != nil {
				errs[m] = err
				return
			}
			r.distros[m] = distro
			r.values[m] = distro.N()
			r.stddevs[m] = distro.StdDev()
			r.vars[m] = distro.Var()
			r.nIndep[m] = float64(nIndepAt(m))
		}(m)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("kinisi/bootstrap: %v", err)
		}
	}
	return r, nil
}

//resample draws distributions of the mean of sq, using only nIndep draws
//per replicate. When the gate is on, rounds of resamples are added until
//the distribution looks normal or the cap is hit.
func resample(sq []float64, nIndep, m int, dt float64, kind string, o *Options) (*dist.Distribution, error) {
	if o.blocks > 0 {
		nIndep = o.blocks
	}
	rng := rand.New(rand.NewSource(o.seed + int64(m)))
	name := fmt.Sprintf("%s at %g ps", kind, dt)
	distro, err := dist.New(replicate(sq, nIndep, o.resamples, rng), name)
	if err != nil {
		return nil, err
	}
	if !o.gate {
		return distro, nil
	}
	for !distro.Normal(o.alpha) && distro.Size() < o.maxResamples {
		distro.Add(replicate(sq, nIndep, o.resamples, rng)...)
	}
	if !distro.Normal(o.alpha) {
		log.Printf("kinisi/bootstrap: The distribution of the %s is still not normal after %d resamples", name, distro.Size())
	}
	return distro, nil
}

//replicate returns count means, each of nIndep draws from sq with
//replacement.
func replicate(sq []float64, nIndep, count int, rng *rand.Rand) []float64 {
	out := make([]float64, count)
	for i := range out {
		s := 0.0
		for j := 0; j < nIndep; j++ {
			s += sq[rng.Intn(len(sq))]
		}
		out[i] = s / float64(nIndep)
	}
	return out
}

//ngp returns the non-Gaussian parameter of the raw squared displacements
//at every interval. It peaks where the particles hop rather than flow,
//which helps pick the start of the diffusive regime.
func ngp(disp *kinisi.Displacements, dims kinisi.Dims) []float64 {
	d := float64(dims.N())
	out := make([]float64, disp.NIntervals())
	for m := range out {
		sq := disp.SqDisp(m, dims)
		var m2, m4 float64
		for _, v := range sq {
			m2 += v
			m4 += v * v
		}
		m2 /= float64(len(sq))
		m4 /= float64(len(sq))
		if m2 > 0 {
			out[m] = d*m4/((d+2)*m2*m2) - 1
		}
	}
	return out
}

//Kind returns which observable was resampled: "msd", "tmsd" or "mscd".
func (R *Result) Kind() string {
	return R.kind
}

//Len returns the number of time intervals in the result.
func (R *Result) Len() int {
	return len(R.dt)
}

//Dims returns the number of spatial dimensions the observable covers.
func (R *Result) Dims() int {
	return R.dims
}

//NMobile returns the number of mobile particles behind the observable.
func (R *Result) NMobile() int {
	return R.nMobile
}

//Dt returns a copy of the time intervals, in ps.
func (R *Result) Dt() []float64 {
	return dup(R.dt)
}

//Values returns a copy of the point estimates (distribution medians) of
//the observable at every interval, in A^2.
func (R *Result) Values() []float64 {
	return dup(R.values)
}

//StdDevs returns a copy of the standard deviations of the resampled
//means at every interval.
func (R *Result) StdDevs() []float64 {
	return dup(R.stddevs)
}

//Vars returns a copy of the variances of the resampled means at every
//interval.
func (R *Result) Vars() []float64 {
	return dup(R.vars)
}

//NIndep returns a copy of the number of independent observations used at
//every interval.
func (R *Result) NIndep() []float64 {
	return dup(R.nIndep)
}

//NGP returns the non-Gaussian parameter at every interval, or nil for
//collective observables, where it is not defined. The slice is a view,
//not a copy.
func (R *Result) NGP() []float64 {
	return R.ngp
}

//Distributions returns the resampled distributions, one per interval.
//The slice is a view, not a copy.
func (R *Result) Distributions() []*dist.Distribution {
	return R.distros
}

//CI returns the lower and upper confidence bounds of the observable at
//every interval, at the given level (0.95 if not given).
func (R *Result) CI(level ...float64) ([]float64, []float64, error) {
	los := make([]float64, len(R.distros))
	his := make([]float64, len(R.distros))
	for i, d := range R.distros {
		lo, hi, err := d.ConInt(level...)
		if err != nil {
			return nil, nil, err
		}
		los[i] = lo
		his[i] = hi
	}
	return los, his, nil
}

//Truncate returns a result restricted to intervals at or past startDt
//(in ps), which is how the fits skip the ballistic region. The returned
//result shares the receiver's backing arrays.
func (R *Result) Truncate(startDt float64) (*Result, error) {
	i := 0
	for i < len(R.dt) && R.dt[i] < startDt {
		i++
	}
	if len(R.dt)-i < 2 {
		return nil, fmt.Errorf("kinisi/bootstrap: Only %d intervals at or past %4.2f ps, at least 2 are needed", len(R.dt)-i, startDt)
	}
	nr := new(Result)
	nr.kind = R.kind
	nr.dims = R.dims
	nr.nMobile = R.nMobile
	nr.dt = R.dt[i:]
	nr.values = R.values[i:]
	nr.stddevs = R.stddevs[i:]
	nr.vars = R.vars[i:]
	nr.nIndep = R.nIndep[i:]
	nr.distros = R.distros[i:]
	if R.ngp != nil {
		nr.ngp = R.ngp[i:]
	}
	return nr, nil
}

//Covariance returns the covariance matrix between the mean observables
//at every pair of intervals. Observations at a long interval are a
//subset of those at a short one, so the covariance of the pair is the
//variance at the short interval scaled by the ratio of their independent
//counts. The diagonal is nudged up until the matrix admits a Cholesky
//factorization.
func (R *Result) Covariance() (*mat.SymDense, error) {
	n := len(R.values)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, R.vars[i]*R.nIndep[i]/R.nIndep[j])
		}
	}
	return nearestPD(cov)
}

func nearestPD(cov *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		return cov, nil
	}
	n, _ := cov.Dims()
	mean := 0.0
	for i := 0; i < n; i++ {
		mean += cov.At(i, i)
	}
	mean /= float64(n)
	jitter := mean * 1e-10
	for k := 0; k < 12; k++ {
		for i := 0; i < n; i++ {
			cov.SetSym(i, i, cov.At(i, i)+jitter)
		}
		if chol.Factorize(cov) {
			return cov, nil
		}
		jitter *= 10
	}
	return nil, fmt.Errorf("kinisi/bootstrap: Could not make the covariance matrix positive definite")
}

func (R *Result) MarshalJSON() ([]byte, error) {
	j, err := json.Marshal(struct {
		Kind    string               `json:"kind"`
		Dims    int                  `json:"dims"`
		NMobile int                  `json:"nmobile"`
		Dt      []float64            `json:"dt"`
		Values  []float64            `json:"values"`
		StdDevs []float64            `json:"stddevs"`
		Vars    []float64            `json:"vars"`
		NIndep  []float64            `json:"nindep"`
		NGP     []float64            `json:"ngp,omitempty"`
		Distros []*dist.Distribution `json:"distros"`
	}{
		Kind:    R.kind,
		Dims:    R.dims,
		NMobile: R.nMobile,
		Dt:      R.dt,
		Values:  R.values,
		StdDevs: R.stddevs,
		Vars:    R.vars,
		NIndep:  R.nIndep,
		NGP:     R.ngp,
		Distros: R.distros,
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (R *Result) UnmarshalJSON(b []byte) error {
	var a struct {
		Kind    string               `json:"kind"`
		Dims    int                  `json:"dims"`
		NMobile int                  `json:"nmobile"`
		Dt      []float64            `json:"dt"`
		Values  []float64            `json:"values"`
		StdDevs []float64            `json:"stddevs"`
		Vars    []float64            `json:"vars"`
		NIndep  []float64            `json:"nindep"`
		NGP     []float64            `json:"ngp"`
		Distros []*dist.Distribution `json:"distros"`
	}
	err := json.Unmarshal(b, &a)
	if err != nil {
		return err
	}
	if a.Kind != "msd" && a.Kind != "tmsd" && a.Kind != "mscd" {
		return fmt.Errorf("kinisi/bootstrap: Unknown observable kind %s", a.Kind)
	}
	n := len(a.Dt)
	if n < 1 {
		return fmt.Errorf("kinisi/bootstrap: A result needs at least one interval")
	}
	if len(a.Values) != n || len(a.StdDevs) != n || len(a.Vars) != n || len(a.NIndep) != n || len(a.Distros) != n {
		return fmt.Errorf("kinisi/bootstrap: Inconsistent interval counts in serialized result")
	}
	if a.NGP != nil && len(a.NGP) != n {
		return fmt.Errorf("kinisi/bootstrap: Inconsistent interval counts in serialized result")
	}
	R.kind = a.Kind
	R.dims = a.Dims
	R.nMobile = a.NMobile
	R.dt = a.Dt
	R.values = a.Values
	R.stddevs = a.StdDevs
	R.vars = a.Vars
	R.nIndep = a.NIndep
	R.ngp = a.NGP
	R.distros = a.Distros
	return nil
}

func dup(s []float64) []float64 {
	d := make([]float64, len(s))
	copy(d, s)
	return d
}
