/*
 * lattice.go, part of kinisi.
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

package v3

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//Lattice is a periodic simulation cell. The rows of the cell matrix are the
//cell vectors a, b and c, so a set of fractional coordinates F (one row per
//particle) transforms to cartesian as F*cell. The inverse is cached on
//creation, as trajectories convert every frame.
type Lattice struct {
	cell *mat.Dense
	inv  *mat.Dense
	vol  float64
}

//NewLattice builds a Lattice from the 9 elements of the cell matrix,
//row-major (ax, ay, az, bx, ...). Lengths in A.
func NewLattice(cell []float64) (*Lattice, error) {
	if len(cell) != 9 {
		return nil, Error{fmt.Sprintf("Lattice needs 9 elements, got %d", len(cell)), []string{"NewLattice"}, true}
	}
	c := make([]float64, 9, 9)
	copy(c, cell)
	m := mat.NewDense(3, 3, c)
	vol := mat.Det(m)
	if math.Abs(vol) <= appzero {
		return nil, Error{string(ErrSingularLattice), []string{"NewLattice"}, true}
	}
	inv := mat.NewDense(3, 3, nil)
	if err := inv.Inverse(m); err != nil {
		return nil, Error{fmt.Sprintf("%s: %s", ErrSingularLattice, err.Error()), []string{"NewLattice"}, true}
	}
	return &Lattice{cell: m, inv: inv, vol: vol}, nil
}

//Cubic returns the lattice of a cubic cell of side a.
func Cubic(a float64) *Lattice {
	L, _ := NewLattice([]float64{a, 0, 0, 0, a, 0, 0, 0, a}) //cannot fail for a>0
	return L
}

//Orthorhombic returns the lattice of an orthorhombic cell with sides a, b, c.
func Orthorhombic(a, b, c float64) *Lattice {
	L, _ := NewLattice([]float64{a, 0, 0, 0, b, 0, 0, 0, c})
	return L
}

//Volume returns the cell volume, in A^3.
func (L *Lattice) Volume() float64 {
	return math.Abs(L.vol)
}

//Slice returns the 9 elements of the cell matrix, row-major, in a fresh slice.
func (L *Lattice) Slice() []float64 {
	r := make([]float64, 9, 9)
	copy(r, L.cell.RawMatrix().Data)
	return r
}

//Cart puts in F the cartesian coordinates of the fractional vectors in A.
func (L *Lattice) Cart(F, A *Matrix) {
	F.Dense.Mul(A.Dense, L.cell)
}

//Frac puts in F the fractional coordinates of the cartesian vectors in A.
func (L *Lattice) Frac(F, A *Matrix) {
	F.Dense.Mul(A.Dense, L.inv)
}

//MinImage folds each fractional displacement vector of A into its closest
//periodic image, putting the result in the receiver. Each component d
//becomes d-round(d), so the result lies in [-0.5, 0.5].
func (F *Matrix) MinImage(A *Matrix) {
	ar, _ := A.Dims()
	fr, _ := F.Dims()
	if ar != fr {
		panic(ErrShape)
	}
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.Dense.RawRowView(i)
		for j := 0; j < 3; j++ {
			f[j] = a[j] - math.Round(a[j])
		}
	}
}
