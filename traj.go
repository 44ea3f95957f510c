/*
 * traj.go, part of kinisi.
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

	v3 "github.com/arm61/kinisi/v3"
)

// Trajectory is an in-memory sequence of configurations plus the periodic
// cell for each of them. It implements Source, so everything downstream
// works the same whether the frames come from here or from somewhere else.
// Reading a file into one of these is the calling program's business.
type Trajectory struct {
	coords  []*v3.Matrix
	cells   []*v3.Lattice //one cell for the whole run, or one per frame (NPT)
	frac    bool
	natoms  int
	current int
	masses  []float64
	charges []float64
}

// NewTrajectory builds a Trajectory from cartesian coordinates, in A.
// cells must contain either a single cell, used for every frame, or one
// cell per frame.
func NewTrajectory(frames []*v3.Matrix, cells []*v3.Lattice) (*Trajectory, error) {
	return newTrajectory(frames, cells, false)
}

// NewFracTrajectory builds a Trajectory from fractional coordinates.
func NewFracTrajectory(frames []*v3.Matrix, cells []*v3.Lattice) (*Trajectory, error) {
	return newTrajectory(frames, cells, true)
}

func newTrajectory(frames []*v3.Matrix, cells []*v3.Lattice, frac bool) (*Trajectory, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("No frames given")
	}
	if len(cells) != 1 && len(cells) != len(frames) {
		return nil, fmt.Errorf("%s: %d cells for %d frames", MismatchedCells, len(cells), len(frames))
	}
	natoms := frames[0].NVecs()
	for i, v := range frames {
		if v == nil {
			return nil, fmt.Errorf("Frame %d is nil", i)
		}
		if v.NVecs() != natoms {
			return nil, fmt.Errorf("%s: frame %d has %d, want %d", MismatchedFrames, i, v.NVecs(), natoms)
		}
	}
	for i, v := range cells {
		if v == nil {
			return nil, fmt.Errorf("Cell %d is nil", i)
		}
	}
	T := new(Trajectory)
	T.coords = frames
	T.cells = cells
	T.frac = frac
	T.natoms = natoms
	T.current = 0
	return T, nil
}

//Readable returns true if it is possible to call Next on the trajectory.
func (T *Trajectory) Readable() bool {
	return T != nil && T.coords != nil
}

//Next puts in the given matrix the coordinates for the next frame of the
//trajectory and, if given, puts the 9 row-major elements of the frame's cell
//matrix in cell. When no frames remain it returns an error that implements
//LastFrameError, which signals normal termination, not an actual problem.
func (T *Trajectory) Next(output *v3.Matrix, cell ...[]float64) error {
	if !T.Readable() {
		return Err{TrajUnIniRead, "trajectory", []string{"Next"}, true}
	}
	if T.current >= len(T.coords) {
		return newlastFrameError("trajectory", "Next")
	}
	if output == nil {
		return Err{NilCoordinates, "trajectory", []string{"Next"}, true}
	}
	if output.NVecs() < T.natoms {
		return Err{NotEnoughSpace, "trajectory", []string{"Next"}, true}
	}
	output.Copy(T.coords[T.current].Dense)
	if len(cell) > 0 && cell[0] != nil {
		if len(cell[0]) < 9 {
			return Err{NotEnoughSpace, "trajectory", []string{"Next"}, true}
		}
		copy(cell[0], T.Cell(T.current).Slice())
	}
	T.current++
	return nil
}

//Len returns the number of particles in each frame of the trajectory.
func (T *Trajectory) Len() int {
	return T.natoms
}

//Frames returns the number of configurations stored.
func (T *Trajectory) Frames() int {
	return len(T.coords)
}

//Fractional returns whether the stored coordinates are fractional.
func (T *Trajectory) Fractional() bool {
	return T.frac
}

//Cell returns the periodic cell of the ith frame.
func (T *Trajectory) Cell(i int) *v3.Lattice {
	if len(T.cells) == 1 {
		return T.cells[0]
	}
	return T.cells[i]
}

//Rewind resets the trajectory so the next Next call returns the first frame.
func (T *Trajectory) Rewind() {
	T.current = 0
}

//SetMasses attaches per-particle masses to the trajectory, after which it
//satisfies Masser.
func (T *Trajectory) SetMasses(m []float64) error {
	if len(m) != T.natoms {
		return fmt.Errorf("Got %d masses for %d particles", len(m), T.natoms)
	}
	T.masses = m
	return nil
}

//Masses returns the per-particle masses, or an error if none were set.
func (T *Trajectory) Masses() ([]float64, error) {
	if T.masses == nil {
		return nil, fmt.Errorf("No masses set for this trajectory")
	}
	return T.masses, nil
}

//SetCharges attaches per-particle charges, in elementary charge units, after
//which the trajectory satisfies Charger.
func (T *Trajectory) SetCharges(q []float64) error {
	if len(q) != T.natoms {
		return fmt.Errorf("Got %d charges for %d particles", len(q), T.natoms)
	}
	T.charges = q
	return nil
}

//Charges returns the per-particle charges, or an error if none were set.
func (T *Trajectory) Charges() ([]float64, error) {
	if T.charges == nil {
		return nil, fmt.Errorf("No charges set for this trajectory")
	}
	return T.charges, nil
}
