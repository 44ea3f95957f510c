/*
 * tcf.go, part of kinisi.
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

//Package tcf computes time-correlation functions of trajectory series by
//FFT, plus the transport quantities built on them: the velocity
//autocorrelation function, its Green-Kubo integral, and a fast
//windowed mean-squared displacement.

package tcf

import (
	"fmt"
	"math/cmplx"

	kinisi "github.com/arm61/kinisi"
	v3 "github.com/arm61/kinisi/v3"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/integrate"
)

//Auto returns the autocorrelation of x at lags 0 to maxLag-1, each lag
//averaged over the observations that hold it:
//
//	c[m] = (1/(n-m)) sum_t x(t)*x(t+m)
func Auto(x []float64, maxLag int) ([]float64, error) {
	return correlate(x, x, maxLag)
}

//Cross returns the cross-correlation of x against y at lags 0 to
//maxLag-1:
//
//	c[m] = (1/(n-m)) sum_t x(t)*y(t+m)
func Cross(x, y []float64, maxLag int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("kinisi/tcf: Series of different lengths: %d, %d", len(x), len(y))
	}
	return correlate(x, y, maxLag)
}

//Normalized returns the autocorrelation coefficient of x at lags 0 to
//maxLag-1: the mean is removed and the correlation scaled by its lag-0
//value, so c[0] is 1 and a fully decorrelated lag tends to 0.
func Normalized(x []float64, maxLag int) ([]float64, error) {
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	centered := make([]float64, len(x))
	for i, v := range x {
		centered[i] = v - mean
	}
	c, err := correlate(centered, centered, maxLag)
	if err != nil {
		return nil, err
	}
	if c[0] == 0 {
		return nil, fmt.Errorf("kinisi/tcf: A constant series has no correlation coefficient")
	}
	for i := range c {
		c[i] /= c[0]
	}
	return c, nil
}

//correlate is the FFT engine behind the exported functions. The series
//are zero-padded to twice their length so the circular correlation of
//the transform pair becomes a linear one.
func correlate(x, y []float64, maxLag int) ([]float64, error) {
	n := len(x)
	if n < 1 {
		return nil, fmt.Errorf("kinisi/tcf: Empty series")
	}
	if maxLag < 1 || maxLag > n {
		return nil, fmt.Errorf("kinisi/tcf: maxLag must be between 1 and the series length %d, got %d", n, maxLag)
	}
	xpad := make([]complex128, 2*n)
	ypad := make([]complex128, 2*n)
	for i := 0; i < n; i++ {
		xpad[i] = complex(x[i], 0)
		ypad[i] = complex(y[i], 0)
	}
	f := fourier.NewCmplxFFT(len(xpad))
	f.Coefficients(xpad, xpad)
	f.Coefficients(ypad, ypad)
	for i, v := range xpad {
		xpad[i] = cmplx.Conj(v) * ypad[i]
	}
	f.Sequence(xpad, xpad)
	norm := float64(len(xpad)) //Sequence does not normalize the inverse
	out := make([]float64, maxLag)
	for m := 0; m < maxLag; m++ {
		out[m] = real(xpad[m]) / norm / float64(n-m)
	}
	return out, nil
}

//VACF returns the velocity autocorrelation function over the axes in
//dims, averaged over particles, at lags 0 to maxLag-1. vels holds one
//velocity per particle per frame, in A/ps, as built by
//Displacements.Velocities.
func VACF(vels []*v3.Matrix, dims kinisi.Dims, maxLag int) ([]float64, error) {
	nf := len(vels)
	if nf < 2 {
		return nil, fmt.Errorf("kinisi/tcf: VACF needs at least 2 frames of velocities, got %d", nf)
	}
	na := 0
	for i, v := range vels {
		if v == nil {
			return nil, fmt.Errorf("kinisi/tcf: VACF: nil velocities at frame %d", i)
		}
		if i == 0 {
			na = v.NVecs()
			continue
		}
		if v.NVecs() != na {
			return nil, fmt.Errorf("kinisi/tcf: VACF: frame %d has %d particles, frame 0 has %d", i, v.NVecs(), na)
		}
	}
	total := make([]float64, maxLag)
	series := make([]float64, nf)
	for a := 0; a < na; a++ {
		for j := 0; j < 3; j++ {
			if !dims.Has(j) {
				continue
			}
			for t, v := range vels {
				series[t] = v.Vec(a)[j]
			}
			c, err := Auto(series, maxLag)
			if err != nil {
				return nil, err
			}
			for i, v := range c {
				total[i] += v
			}
		}
	}
	for i := range total {
		total[i] /= float64(na)
	}
	return total, nil
}

//GreenKuboD returns the self-diffusion coefficient from the Green-Kubo
//relation, in cm^2/s: the trapezoidal integral of the velocity
//autocorrelation function over time, divided by the number of
//dimensions. vacf is in (A/ps)^2 at lag spacing frameDt ps.
func GreenKuboD(vacf []float64, frameDt float64, dims int) (float64, error) {
	if len(vacf) < 2 {
		return 0, fmt.Errorf("kinisi/tcf: GreenKuboD needs at least 2 correlation points, got %d", len(vacf))
	}
	if frameDt <= 0 {
		return 0, fmt.Errorf("kinisi/tcf: The time between frames must be positive, got %v", frameDt)
	}
	if dims < 1 {
		return 0, fmt.Errorf("kinisi/tcf: GreenKuboD needs at least one dimension, got %d", dims)
	}
	t := make([]float64, len(vacf))
	for i := range t {
		t[i] = float64(i) * frameDt
	}
	return integrate.Trapezoidal(t, vacf) / float64(dims) * kinisi.A2PerPs2Cm2PerS, nil
}

//FFTMSD returns the mean-squared displacement at every lag of the frame
//grid, 1 to nframes-1, over the axes in dims, averaged over particles
//and over all sliding windows. It costs n*log(n) per particle where the
//direct average costs n^2, so it suits dense grids; the interval grid
//of ExtractDisplacements plus the bootstrap remains the way to get
//uncertainties. Returns the lag times in ps and the MSD in A^2.
func FFTMSD(disp *kinisi.Displacements, dims kinisi.Dims) ([]float64, []float64, error) {
	nf := disp.NFrames()
	na := disp.NMobile()
	msd := make([]float64, nf)
	series := make([]float64, nf)
	sq := make([]float64, nf)
	for a := 0; a < na; a++ {
		for j := 0; j < 3; j++ {
			if !dims.Has(j) {
				continue
			}
			sumsq := 0.0
			for t := 0; t < nf; t++ {
				v := disp.Frame(t).Vec(a)[j]
				series[t] = v
				sq[t] = v * v
				sumsq += sq[t]
			}
			s2, err := Auto(series, nf)
			if err != nil {
				return nil, nil, err
			}
			q := 2 * sumsq
			for m := 0; m < nf; m++ {
				if m > 0 {
					q -= sq[m-1] + sq[nf-m]
				}
				msd[m] += q/float64(nf-m) - 2*s2[m]
			}
		}
	}
	for i := range msd {
		msd[i] /= float64(na)
	}
	dt := make([]float64, nf)
	for i := range dt {
		dt[i] = float64(i) * disp.FrameDt()
	}
	return dt[1:], msd[1:], nil
}
