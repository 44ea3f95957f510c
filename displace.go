/*
 * displace.go, part of kinisi.
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

package kinisi

import (
	"fmt"
	"math"

	v3 "github.com/arm61/kinisi/v3"
)

//Spacings for the time-interval grid.
const (
	SpacingLinear      = "linear"
	SpacingLogarithmic = "logarithmic"
)

// Dims selects the cartesian axes an analysis runs over, some subset of
// "xyz". The zero value is invalid, use NewDims or XYZ.
type Dims struct {
	mask [3]bool
	n    int
}

// NewDims parses a subset of "xyz" into a Dims.
func NewDims(axes string) (Dims, error) {
	var d Dims
	if axes == "" {
		return d, fmt.Errorf("Empty dimension string")
	}
	for _, c := range axes {
		switch c {
		case 'x':
			d.mask[0] = true
		case 'y':
			d.mask[1] = true
		case 'z':
			d.mask[2] = true
		default:
			return d, fmt.Errorf("Unknown axis %q in dimension string %q", c, axes)
		}
	}
	for _, v := range d.mask {
		if v {
			d.n++
		}
	}
	return d, nil
}

// XYZ returns the Dims for all three axes, the usual case.
func XYZ() Dims {
	d, _ := NewDims("xyz") //cannot fail
	return d
}

//N returns the number of selected axes.
func (d Dims) N() int { return d.n }

//Has returns whether axis i (0, 1 or 2 for x, y or z) is selected.
func (d Dims) Has(i int) bool { return d.mask[i] }

//String returns the selected axes as a subset of "xyz".
func (d Dims) String() string {
	s := ""
	for i, c := range "xyz" {
		if d.mask[i] {
			s += string(c)
		}
	}
	return s
}

// Params controls how displacements are extracted from a Source.
type Params struct {
	//Indices of the mobile particles. Leave nil, with Molecules also nil,
	//to use every particle in the source.
	Specie []int
	//Indices of framework particles whose mean displacement is subtracted
	//from everything, frame by frame, to correct for drift of the
	//simulation cell contents. Empty means no correction.
	Framework []int
	//Groups of particle indices. The center of each group becomes one
	//mobile particle. Mutually exclusive with Specie.
	Molecules [][]int
	//Per-particle masses to weight group centers. If nil the source is
	//asked (Masser); if that fails too, plain centroids are used.
	Masses []float64
	//The MD integrator time step, in ps.
	TimeStep float64
	//Number of MD steps between stored frames. Zero means 1.
	StepSkip int
	//Shortest time interval to evaluate, ps. Zero means one frame step.
	MinDt float64
	//Longest time interval to evaluate, ps. Zero means no cap.
	MaxDt float64
	//Fewest observations allowed at the longest interval. Zero means 30.
	MinObs int
	//Number of points in the interval grid. Zero means 100.
	Points int
	//SpacingLinear (the default) or SpacingLogarithmic.
	Spacing string
}

// Displacements holds the unwrapped, drift-corrected trajectory of the mobile
// particles, together with the grid of time intervals to observe them over.
// At an interval of k frames the observations are u(t+k)-u(t) for every
// particle and every origin t, so overlapping windows share data and the
// observations are far from independent; NIndep counts the non-overlapping
// ones, which is what the uncertainty machinery wants.
type Displacements struct {
	u         []*v3.Matrix //one matrix per frame, one row per mobile particle
	intervals []int
	dt        []float64
	frameDt   float64
	nMobile   int
}

// ExtractDisplacements reads every frame of src, unwraps the coordinates
// through the periodic cell, corrects for framework drift and returns the
// displacement data for the mobile particles given in p.
//
// Unwrapping happens in fractional coordinates: the frame-to-frame change of
// each particle is folded into [-0.5, 0.5) and the folded steps are summed,
// so particles may wander out of the box but never jump across it. Cartesian
// sources are converted with each frame's cell first.
func ExtractDisplacements(src Source, p Params) (*Displacements, error) {
	if src == nil || !src.Readable() {
		return nil, fmt.Errorf("%s", TrajUnIniRead)
	}
	if p.TimeStep <= 0 {
		return nil, fmt.Errorf("TimeStep must be positive, got %v", p.TimeStep)
	}
	if p.StepSkip == 0 {
		p.StepSkip = 1
	}
	if p.StepSkip < 0 {
		return nil, fmt.Errorf("StepSkip must be positive, got %d", p.StepSkip)
	}
	if p.Specie != nil && p.Molecules != nil {
		return nil, fmt.Errorf("Specie and Molecules are mutually exclusive")
	}
	natoms := src.Len()
	frac := false
	if f, ok := src.(Fractional); ok {
		frac = f.Fractional()
	}
	frames := make([]*v3.Matrix, 0, 100)
	cells := make([]*v3.Lattice, 0, 100)
	cellbuf := make([]float64, 9, 9)
reading:
	for i := 0; ; i++ {
		coords := v3.Zeros(natoms)
		err := src.Next(coords, cellbuf)
		if err != nil {
			switch err := err.(type) {
			case LastFrameError:
				break reading
			case Error:
				err.Decorate(fmt.Sprintf("ExtractDisplacements: Failed while reading the %d th frame", i))
				return nil, err
			default:
				return nil, err
			}
		}
		cell, cerr := v3.NewLattice(cellbuf)
		if cerr != nil {
			return nil, errDecorate(cerr, fmt.Sprintf("ExtractDisplacements: frame %d", i))
		}
		frames = append(frames, coords)
		cells = append(cells, cell)
	}
	nframes := len(frames)
	if nframes < 2 {
		return nil, fmt.Errorf("%s: need at least 2 frames, got %d", NotEnoughData, nframes)
	}
	//everything becomes fractional for the unwrapping
	if !frac {
		for i, f := range frames {
			cells[i].Frac(f, f)
		}
	}
	//unwrapped cartesian displacement of every particle from its start
	disp := unwrap(frames, cells)
	if len(p.Framework) > 0 {
		if err := checkIndices(p.Framework, natoms); err != nil {
			return nil, err
		}
		correctDrift(disp, p.Framework)
	}
	u, err := mobile(disp, src, p, natoms)
	if err != nil {
		return nil, err
	}
	nMobile := u[0].NVecs()
	frameDt := p.TimeStep * float64(p.StepSkip)
	intervals, err := grid(nframes, nMobile, frameDt, p)
	if err != nil {
		return nil, err
	}
	D := new(Displacements)
	D.u = u
	D.intervals = intervals
	D.dt = make([]float64, len(intervals), len(intervals))
	for i, k := range intervals {
		D.dt[i] = float64(k) * frameDt
	}
	D.frameDt = frameDt
	D.nMobile = nMobile
	return D, nil
}

//unwrap turns fractional frames into cartesian displacements from frame 0,
//folding each frame-to-frame step into the minimum image.
func unwrap(frames []*v3.Matrix, cells []*v3.Lattice) []*v3.Matrix {
	natoms := frames[0].NVecs()
	nframes := len(frames)
	disp := make([]*v3.Matrix, nframes, nframes)
	disp[0] = v3.Zeros(natoms)
	delta := v3.Zeros(natoms)
	step := v3.Zeros(natoms)
	for t := 1; t < nframes; t++ {
		delta.Sub(frames[t].Dense, frames[t-1].Dense)
		delta.MinImage(delta)
		cells[t].Cart(step, delta)
		disp[t] = v3.Zeros(natoms)
		disp[t].Add(disp[t-1].Dense, step.Dense)
	}
	return disp
}

//correctDrift subtracts, frame by frame, the mean displacement of the
//framework particles from every particle.
func correctDrift(disp []*v3.Matrix, framework []int) {
	fw := v3.Zeros(len(framework))
	mean := v3.Zeros(1)
	for _, d := range disp {
		fw.SomeVecs(d, framework)
		mean.MeanVec(fw)
		d.SubVec(d, mean)
	}
}

//mobile reduces the per-particle displacements to the mobile set: an index
//selection, molecule-group centers, or everything.
func mobile(disp []*v3.Matrix, src Source, p Params, natoms int) ([]*v3.Matrix, error) {
	nframes := len(disp)
	if p.Molecules != nil {
		if len(p.Molecules) == 0 {
			return nil, fmt.Errorf("Empty molecule list")
		}
		masses := p.Masses
		if masses == nil {
			if m, ok := src.(Masser); ok {
				masses, _ = m.Masses() //a nil result just means centroids
			}
		}
		if masses != nil && len(masses) != natoms {
			return nil, fmt.Errorf("Got %d masses for %d particles", len(masses), natoms)
		}
		for gi, g := range p.Molecules {
			if len(g) == 0 {
				return nil, fmt.Errorf("Molecule %d is empty", gi)
			}
			if err := checkIndices(g, natoms); err != nil {
				return nil, err
			}
		}
		u := make([]*v3.Matrix, nframes, nframes)
		for t, d := range disp {
			u[t] = v3.Zeros(len(p.Molecules))
			for gi, g := range p.Molecules {
				var wsum, cx, cy, cz float64
				for _, a := range g {
					w := 1.0
					if masses != nil {
						w = masses[a]
					}
					row := d.Vec(a)
					cx += w * row[0]
					cy += w * row[1]
					cz += w * row[2]
					wsum += w
				}
				if wsum == 0 {
					return nil, fmt.Errorf("Molecule %d has zero total mass", gi)
				}
				u[t].Set(gi, 0, cx/wsum)
				u[t].Set(gi, 1, cy/wsum)
				u[t].Set(gi, 2, cz/wsum)
			}
		}
		return u, nil
	}
	if p.Specie != nil {
		if len(p.Specie) == 0 {
			return nil, fmt.Errorf("Empty specie index list")
		}
		if err := checkIndices(p.Specie, natoms); err != nil {
			return nil, err
		}
		u := make([]*v3.Matrix, nframes, nframes)
		for t, d := range disp {
			u[t] = v3.Zeros(len(p.Specie))
			u[t].SomeVecs(d, p.Specie)
		}
		return u, nil
	}
	return disp, nil
}

func checkIndices(list []int, natoms int) error {
	for _, v := range list {
		if v < 0 || v >= natoms {
			return fmt.Errorf("Particle index %d out of range (%d particles)", v, natoms)
		}
	}
	return nil
}

//grid works out the frame-count interval grid for the given run.
func grid(nframes, nMobile int, frameDt float64, p Params) ([]int, error) {
	minObs := p.MinObs
	if minObs == 0 {
		minObs = 30
	}
	points := p.Points
	if points == 0 {
		points = 100
	}
	minK := int(p.MinDt / frameDt)
	if minK < 1 {
		minK = 1
	}
	maxK := nframes - 1
	need := (minObs + nMobile - 1) / nMobile //observations to keep per particle
	if nframes-need < maxK {
		maxK = nframes - need
	}
	if p.MaxDt > 0 {
		if lim := int(p.MaxDt / frameDt); lim < maxK {
			maxK = lim
		}
	}
	if maxK < minK {
		return nil, fmt.Errorf("%s: longest usable interval %d frames, shortest requested %d", NotEnoughData, maxK, minK)
	}
	return Timesteps(minK, maxK, points, p.Spacing)
}

// Timesteps returns up to points integer interval lengths between min and max
// inclusive, spaced linearly or logarithmically. Values that coincide once
// truncated to integers appear only once, so the result is often shorter
// than points.
func Timesteps(min, max, points int, spacing string) ([]int, error) {
	if min < 1 || max < min {
		return nil, fmt.Errorf("%s: bad interval range %d to %d", NotEnoughData, min, max)
	}
	if points < 2 || min == max {
		return []int{min}, nil
	}
	raw := make([]float64, points, points)
	switch spacing {
	case "", SpacingLinear:
		step := float64(max-min) / float64(points-1)
		for i := range raw {
			raw[i] = float64(min) + step*float64(i)
		}
	case SpacingLogarithmic:
		ratio := float64(max) / float64(min)
		for i := range raw {
			raw[i] = float64(min) * math.Pow(ratio, float64(i)/float64(points-1))
		}
	default:
		return nil, fmt.Errorf("Unknown spacing %q", spacing)
	}
	ret := make([]int, 0, points)
	last := -1
	for _, v := range raw {
		k := int(v) //truncation, on purpose
		if k > max {
			k = max
		}
		if k != last {
			ret = append(ret, k)
			last = k
		}
	}
	return ret, nil
}

//Dt returns the time intervals, in ps, as a fresh slice.
func (D *Displacements) Dt() []float64 {
	r := make([]float64, len(D.dt), len(D.dt))
	copy(r, D.dt)
	return r
}

//Intervals returns the interval lengths, in frames, as a fresh slice.
func (D *Displacements) Intervals() []int {
	r := make([]int, len(D.intervals), len(D.intervals))
	copy(r, D.intervals)
	return r
}

//NIntervals returns the number of time intervals in the grid.
func (D *Displacements) NIntervals() int { return len(D.intervals) }

//NMobile returns the number of mobile particles.
func (D *Displacements) NMobile() int { return D.nMobile }

//NFrames returns the number of stored configurations.
func (D *Displacements) NFrames() int { return len(D.u) }

//FrameDt returns the time between stored configurations, ps.
func (D *Displacements) FrameDt() float64 { return D.frameDt }

//NObs returns the number of (overlapping) observations at interval index m.
func (D *Displacements) NObs(m int) int {
	return len(D.u) - D.intervals[m]
}

//NIndep returns the number of statistically independent observations at
//interval index m: every particle, times the non-overlapping windows that
//fit in the run.
func (D *Displacements) NIndep(m int) int {
	k := D.intervals[m]
	w := D.NObs(m) / k
	if w < 1 {
		w = 1
	}
	return D.nMobile * w
}

//CollectiveNIndep is NIndep for collective observables, where each origin
//gives a single observation no matter how many particles move.
func (D *Displacements) CollectiveNIndep(m int) int {
	k := D.intervals[m]
	w := D.NObs(m) / k
	if w < 1 {
		w = 1
	}
	return w
}

//SqDisp returns the squared displacement of every particle at every origin
//for interval index m, restricted to the axes in dims. The slice is origin
//major; the order does not matter to any caller.
func (D *Displacements) SqDisp(m int, dims Dims) []float64 {
	k := D.intervals[m]
	nobs := D.NObs(m)
	ret := make([]float64, 0, nobs*D.nMobile)
	for t := 0; t < nobs; t++ {
		late := D.u[t+k]
		early := D.u[t]
		for a := 0; a < D.nMobile; a++ {
			lr := late.Vec(a)
			er := early.Vec(a)
			s := 0.0
			for j := 0; j < 3; j++ {
				if !dims.Has(j) {
					continue
				}
				d := lr[j] - er[j]
				s += d * d
			}
			ret = append(ret, s)
		}
	}
	return ret
}

//CollectiveSqDisp returns, for every origin at interval index m, the squared
//norm of the weighted sum of particle displacements, restricted to the axes
//in dims. weights may be nil for unit weights. This is the raw material for
//total (jump) and charge displacements.
func (D *Displacements) CollectiveSqDisp(m int, dims Dims, weights []float64) ([]float64, error) {
	if weights != nil && len(weights) != D.nMobile {
		return nil, fmt.Errorf("Got %d weights for %d particles", len(weights), D.nMobile)
	}
	k := D.intervals[m]
	nobs := D.NObs(m)
	ret := make([]float64, nobs, nobs)
	for t := 0; t < nobs; t++ {
		late := D.u[t+k]
		early := D.u[t]
		var sx, sy, sz float64
		for a := 0; a < D.nMobile; a++ {
			w := 1.0
			if weights != nil {
				w = weights[a]
			}
			lr := late.Vec(a)
			er := early.Vec(a)
			sx += w * (lr[0] - er[0])
			sy += w * (lr[1] - er[1])
			sz += w * (lr[2] - er[2])
		}
		s := 0.0
		if dims.Has(0) {
			s += sx * sx
		}
		if dims.Has(1) {
			s += sy * sy
		}
		if dims.Has(2) {
			s += sz * sz
		}
		ret[t] = s
	}
	return ret, nil
}

//Frame returns a view of the displacement of every mobile particle at frame
//t, in A, relative to the first frame. The view shares storage with the
//receiver.
func (D *Displacements) Frame(t int) *v3.Matrix {
	return D.u[t]
}

//Velocities returns the velocity of every mobile particle at every frame but
//the last, in A/ps, from finite differences of consecutive frames.
func (D *Displacements) Velocities() []*v3.Matrix {
	vels := make([]*v3.Matrix, len(D.u)-1)
	for t := range vels {
		v := v3.Zeros(D.nMobile)
		v.Sub(D.u[t+1].Dense, D.u[t].Dense)
		v.Scale(1/D.frameDt, v.Dense)
		vels[t] = v
	}
	return vels
}

//MSD returns the mean-squared displacement at every interval of the grid, in
//A^2. For uncertainties use the bootstrap package.
func (D *Displacements) MSD(dims Dims) []float64 {
	ret := make([]float64, len(D.intervals), len(D.intervals))
	for m := range D.intervals {
		sq := D.SqDisp(m, dims)
		s := 0.0
		for _, v := range sq {
			s += v
		}
		ret[m] = s / float64(len(sq))
	}
	return ret
}

//TMSD returns the total (collective) mean-squared displacement at every
//interval: the squared norm of the summed particle displacements, averaged
//over origins. Feeding this to a linear fit gives the jump-diffusion
//coefficient after dividing by the particle count.
func (D *Displacements) TMSD(dims Dims) []float64 {
	ret := make([]float64, len(D.intervals), len(D.intervals))
	for m := range D.intervals {
		sq, _ := D.CollectiveSqDisp(m, dims, nil) //nil weights can't fail
		s := 0.0
		for _, v := range sq {
			s += v
		}
		ret[m] = s / float64(len(sq))
	}
	return ret
}

//MSCD returns the mean-squared charge displacement at every interval: the
//squared norm of the charge-weighted summed displacements, averaged over
//origins and divided by the number of charge carriers. charges are in
//elementary charge units, one per mobile particle.
func (D *Displacements) MSCD(dims Dims, charges []float64) ([]float64, error) {
	if len(charges) != D.nMobile {
		return nil, fmt.Errorf("Got %d charges for %d particles", len(charges), D.nMobile)
	}
	ret := make([]float64, len(D.intervals), len(D.intervals))
	for m := range D.intervals {
		sq, err := D.CollectiveSqDisp(m, dims, charges)
		if err != nil {
			return nil, err
		}
		s := 0.0
		for _, v := range sq {
			s += v
		}
		ret[m] = s / (float64(len(sq)) * float64(D.nMobile))
	}
	return ret, nil
}
