/*
 * dist.go, part of kinisi.
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

//Package dist implements probability distributions represented by their
//samples, as produced by bootstrap resampling or posterior sampling. A
//Distribution reports point estimates (the median), dispersion and
//percentile confidence intervals, and can test its own normality, which
//resampling procedures use as a convergence gate.

package dist

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

//Distribution is a set of samples from some underlying probability
//distribution. It is the common currency of the uncertainty machinery:
//resampled mean-squared displacements, diffusion coefficients, activation
//energies and so on are all Distributions.
type Distribution struct {
	name    string
	samples []float64
}

//New returns a Distribution holding a copy of the given samples.
//A name for the distribution can be given; it is only used for printing.
func New(samples []float64, name ...string) (*Distribution, error) {
	if len(samples) < 1 {
		return nil, fmt.Errorf("kinisi/dist: A distribution needs at least one sample")
	}
	d := new(Distribution)
	d.name = "distribution"
	if len(name) > 0 && name[0] != "" {
		d.name = name[0]
	}
	d.samples = make([]float64, len(samples))
	copy(d.samples, samples)
	return d, nil
}

//Name returns the name given to the distribution on creation.
func (D *Distribution) Name() string {
	return D.name
}

//Size returns the number of samples in the distribution.
func (D *Distribution) Size() int {
	return len(D.samples)
}

//Samples returns a copy of the samples. If a slice with enough capacity
//is given, it is reused for the copy.
func (D *Distribution) Samples(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.samples), dest...)
	copy(d, D.samples)
	return d
}

//Add appends further samples to the distribution.
func (D *Distribution) Add(samples ...float64) {
	D.samples = append(D.samples, samples...)
}

//N returns the point estimate of the distribution: its median.
func (D *Distribution) N() float64 {
	m, err := stats.Median(D.samples)
	if err != nil {
		//unreachable: New guarantees at least one sample
		panic(fmt.Sprintf("kinisi/dist: %v", err))
	}
	return m
}

//Mean returns the sample mean.
func (D *Distribution) Mean() float64 {
	return stat.Mean(D.samples, nil)
}

//StdDev returns the sample standard deviation.
func (D *Distribution) StdDev() float64 {
	return stat.StdDev(D.samples, nil)
}

//Var returns the sample variance.
func (D *Distribution) Var() float64 {
	return stat.Variance(D.samples, nil)
}

//Percentile returns the p-th percentile of the samples, with p between
//0 and 100.
func (D *Distribution) Percentile(p float64) (float64, error) {
	v, err := stats.Percentile(D.samples, p)
	if err != nil {
		return 0, fmt.Errorf("kinisi/dist: Percentile: %v", err)
	}
	return v, nil
}

//ConInt returns the symmetric confidence interval of the distribution at
//the given level (a fraction, so 0.95 means a 95% interval). If no level
//is given, 0.95 is used.
func (D *Distribution) ConInt(level ...float64) (float64, float64, error) {
	lvl := 0.95
	if len(level) > 0 {
		lvl = level[0]
	}
	if lvl <= 0 || lvl >= 1 {
		return 0, 0, fmt.Errorf("kinisi/dist: ConInt: The confidence level must be between 0 and 1, exclusive: %4.2f", lvl)
	}
	tail := (1 - lvl) / 2 * 100
	lo, err := D.Percentile(tail)
	if err != nil {
		return 0, 0, err
	}
	hi, err := D.Percentile(100 - tail)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

//JarqueBera returns the Jarque-Bera statistic of the samples and the
//p-value for the null hypothesis that they come from a normal
//distribution. The statistic follows a chi-squared distribution with 2
//degrees of freedom. With fewer than 8 samples the test is meaningless,
//so NaN and a p-value of 0 are returned.
func (D *Distribution) JarqueBera() (float64, float64) {
	n := float64(len(D.samples))
	if n < 8 {
		return math.NaN(), 0
	}
	s := stat.Skew(D.samples, nil)
	k := stat.ExKurtosis(D.samples, nil)
	jb := n / 6 * (s*s + k*k/4)
	chi := distuv.ChiSquared{K: 2}
	return jb, 1 - chi.CDF(jb)
}

//Normal reports whether the samples pass the Jarque-Bera normality test
//at the given significance level (0.05 if not given).
func (D *Distribution) Normal(alpha ...float64) bool {
	a := 0.05
	if len(alpha) > 0 {
		a = alpha[0]
	}
	_, p := D.JarqueBera()
	return p > a
}

//String prints a short summary of the distribution.
func (D *Distribution) String() string {
	lo, hi, err := D.ConInt()
	if err != nil {
		return fmt.Sprintf("%s: n=%d", D.name, len(D.samples))
	}
	return fmt.Sprintf("%s: n=%d median=%6.4g 95%% ci=[%6.4g, %6.4g]", D.name, len(D.samples), D.N(), lo, hi)
}

func (D *Distribution) MarshalJSON() ([]byte, error) {
	j, err := json.Marshal(struct {
		Name    string    `json:"name"`
		Samples []float64 `json:"samples"`
	}{
		Name:    D.name,
		Samples: D.samples,
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (D *Distribution) UnmarshalJSON(b []byte) error {
	var a struct {
		Name    string    `json:"name"`
		Samples []float64 `json:"samples"`
	}
	err := json.Unmarshal(b, &a)
	if err != nil {
		return err
	}
	if len(a.Samples) < 1 {
		return fmt.Errorf("kinisi/dist: A distribution needs at least one sample")
	}
	D.name = a.Name
	D.samples = a.Samples
	return nil
}

//Histogram is a binned view of a set of samples. The bins are delimited
//by len(counts)+1 dividers, each bin covering [dividers[i], dividers[i+1]).
type Histogram struct {
	normalized bool
	total      int
	dividers   []float64
	counts     []float64
}

//NewHistogram returns a histogram of rawdata over the given dividers.
//rawdata can be nil, in which case an empty histogram is returned.
//Data points outside the dividers are omitted.
func NewHistogram(dividers []float64, rawdata []float64) (*Histogram, error) {
	if len(dividers) < 2 {
		return nil, fmt.Errorf("kinisi/dist: NewHistogram: At least 2 dividers are needed, got %d", len(dividers))
	}
	if !sort.Float64sAreSorted(dividers) {
		return nil, fmt.Errorf("kinisi/dist: NewHistogram: The dividers must be sorted")
	}
	h := new(Histogram)
	h.dividers = make([]float64, len(dividers))
	copy(h.dividers, dividers)
	h.rebin(rawdata)
	return h, nil
}

//HistogramFrom returns a histogram of the distribution's samples over
//bins equal-width bins spanning the sample range.
func HistogramFrom(D *Distribution, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("kinisi/dist: HistogramFrom: At least one bin is needed, got %d", bins)
	}
	s := D.Samples()
	sort.Float64s(s)
	lo := s[0]
	//the top divider is nudged up so the largest sample falls in the last bin
	hi := math.Nextafter(s[len(s)-1], math.Inf(1))
	if lo == hi {
		hi = lo + 1
	}
	dividers := make([]float64, bins+1)
	w := (hi - lo) / float64(bins)
	for i := range dividers {
		dividers[i] = lo + float64(i)*w
	}
	dividers[bins] = hi
	h := new(Histogram)
	h.dividers = dividers
	h.rebin(s)
	return h, nil
}

//rebin recounts rawdata into the histogram bins, replacing any previous
//counts. Values outside the dividers are dropped before the call to
//stat.Histogram, which panics on out-of-range values.
func (H *Histogram) rebin(rawdata []float64) {
	if rawdata != nil {
		r := make([]float64, len(rawdata))
		copy(r, rawdata)
		sort.Float64s(r)
		maxi := sort.SearchFloat64s(r, H.dividers[len(H.dividers)-1])
		mini := sort.SearchFloat64s(r, H.dividers[0])
		rawdata = r[mini:maxi]
	}
	H.total = len(rawdata)
	H.normalized = false
	H.counts = stat.Histogram(nil, H.dividers, rawdata, nil)
}

//AddData adds the given data points to the histogram, one by one. Points
//outside the dividers are omitted. A normalized histogram is un-normalized
//first and normalized again after.
func (H *Histogram) AddData(point ...float64) {
	norma := H.normalized
	if norma {
		H.UnNormalize()
	}
	for _, v := range point {
		for j := 0; j < len(H.dividers)-1; j++ {
			if H.dividers[j] <= v && v < H.dividers[j+1] {
				H.counts[j]++
				H.total++
				break
			}
		}
	}
	if norma {
		H.Normalize()
	}
}

//NBins returns the number of bins.
func (H *Histogram) NBins() int {
	return len(H.counts)
}

//Total returns the number of data points counted in the histogram.
func (H *Histogram) Total() int {
	return H.total
}

//Normalized returns true if the histogram is normalized.
func (H *Histogram) Normalized() bool {
	return H.normalized
}

//Normalize scales the counts so they sum to 1.
func (H *Histogram) Normalize() {
	H.normaunnorma(true)
}

//UnNormalize restores the counts to the actual numbers of data points.
func (H *Histogram) UnNormalize() {
	H.normaunnorma(false)
}

//normalizes or un-normalizes the histogram depending
//on whether normalize is true
func (H *Histogram) normaunnorma(normalize bool) {
	if H.total <= 0 || H.normalized == normalize {
		return
	}
	n := float64(H.total)
	H.normalized = false
	if normalize {
		n = 1 / float64(H.total)
		H.normalized = true
	}
	for i := range H.counts {
		H.counts[i] *= n
	}
}

//Counts returns a copy of the bin counts. If a slice with enough capacity
//is given, it is reused for the copy.
func (H *Histogram) Counts(dest ...[]float64) []float64 {
	d := getCopySlice(len(H.counts), dest...)
	copy(d, H.counts)
	return d
}

//Dividers returns a copy of the bin dividers. If a slice with enough
//capacity is given, it is reused for the copy.
func (H *Histogram) Dividers(dest ...[]float64) []float64 {
	d := getCopySlice(len(H.dividers), dest...)
	copy(d, H.dividers)
	return d
}

//String prints a representation of the histogram using two lines of text,
//one with the bin limits and one with the counts.
func (H *Histogram) String() string {
	ret := fmt.Sprintf("Normalized: %v, TotalData: %d\n", H.normalized, H.total)
	var d, c string
	for i, v := range H.counts {
		d += fmt.Sprintf("%4.2f-%4.2f ", H.dividers[i], H.dividers[i+1])
		c += fmt.Sprintf("%9.3f ", v)
	}
	return ret + d + "\n" + c
}

func (H *Histogram) MarshalJSON() ([]byte, error) {
	j, err := json.Marshal(struct {
		Normalized bool      `json:"normalized"`
		Total      int       `json:"total"`
		Dividers   []float64 `json:"dividers"`
		Counts     []float64 `json:"counts"`
	}{
		Normalized: H.normalized,
		Total:      H.total,
		Dividers:   H.dividers,
		Counts:     H.counts,
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (H *Histogram) UnmarshalJSON(b []byte) error {
	var a struct {
		Normalized bool      `json:"normalized"`
		Total      int       `json:"total"`
		Dividers   []float64 `json:"dividers"`
		Counts     []float64 `json:"counts"`
	}
	err := json.Unmarshal(b, &a)
	if err != nil {
		return err
	}
	H.normalized = a.Normalized
	H.total = a.Total
	H.dividers = a.Dividers
	H.counts = a.Counts
	return nil
}

func getCopySlice(N int, dest ...[]float64) []float64 {
	var d []float64
	if len(dest) > 0 && len(dest[0]) >= N {
		d = dest[0][:N]
	} else {
		d = make([]float64, N)
	}
	return d
}
