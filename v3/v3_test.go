/*
 * v3_test.go
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
	"testing"
)

func TestNewMatrix(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Error(err)
	}
	ar, ac := A.Dims()
	if ar != 3 || ac != 3 {
		Te.Errorf("wrong dims %d %d", ar, ac)
	}
	_, err = NewMatrix([]float64{1, 2, 3, 4})
	if err == nil {
		Te.Error("expected an error for a slice not divisible by 3")
	}
	View := A.VecView(1)
	View.Set(0, 0, 100)
	if A.At(1, 0) != 100 {
		Te.Error("views should share the backing data")
	}
	fmt.Println("View\n", A, "\n", View)
}

func TestSomeVecs(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Error(err)
	}
	B := Zeros(3)
	cind := []int{1, 3, 5}
	err = B.SomeVecsSafe(A, cind)
	if err != nil {
		Te.Error(err)
	}
	if B.At(0, 0) != 4 || B.At(2, 2) != 18 {
		Te.Error("SomeVecs gathered the wrong rows", B)
	}
	C := Zeros(10) //wrong number of rows, should err, not panic
	err = C.SomeVecsSafe(A, cind)
	if err == nil {
		Te.Error("expected a shape error")
	}
	fmt.Println(A, "\n", B)
}

func TestVecOps(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		Te.Error(err)
	}
	row, _ := NewMatrix([]float64{10, 20, 30})
	A.AddVec(A, row)
	if A.At(0, 0) != 11 || A.At(1, 2) != 36 {
		Te.Error("AddVec wrong", A)
	}
	A.SubVec(A, row)
	if A.At(0, 0) != 1 || A.At(1, 2) != 6 {
		Te.Error("SubVec wrong", A)
	}
	m := Zeros(1)
	m.MeanVec(A)
	if m.At(0, 0) != 2.5 || m.At(0, 1) != 3.5 || m.At(0, 2) != 4.5 {
		Te.Error("MeanVec wrong", m)
	}
	n := A.VecNorm(0)
	if math.Abs(n-math.Sqrt(14)) > appzero {
		Te.Error("VecNorm wrong", n)
	}
	fmt.Println(A, m, n)
}

func TestLattice(Te *testing.T) {
	L, err := NewLattice([]float64{10, 0, 0, 0, 10, 0, 0, 0, 10})
	if err != nil {
		Te.Error(err)
	}
	if math.Abs(L.Volume()-1000) > appzero {
		Te.Error("wrong volume", L.Volume())
	}
	frac, _ := NewMatrix([]float64{0.1, 0.2, 0.3, 0.9, 0.5, 0.25})
	cart := Zeros(2)
	L.Cart(cart, frac)
	if math.Abs(cart.At(0, 0)-1.0) > appzero || math.Abs(cart.At(1, 2)-2.5) > appzero {
		Te.Error("Cart wrong", cart)
	}
	back := Zeros(2)
	L.Frac(back, cart)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(back.At(i, j)-frac.At(i, j)) > appzero {
				Te.Error("Frac did not invert Cart", back, frac)
			}
		}
	}
	//a triclinic cell, to make sure nothing assumes orthogonality
	T, err := NewLattice([]float64{10, 0, 0, 2, 9, 0, 1, 1, 8})
	if err != nil {
		Te.Error(err)
	}
	L2 := Zeros(2)
	T.Cart(L2, frac)
	T.Frac(L2, L2)
	fmt.Println("triclinic round trip", L2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(L2.At(i, j)-frac.At(i, j)) > 1e-10 {
				Te.Error("triclinic round trip failed", L2, frac)
			}
		}
	}
	_, err = NewLattice([]float64{1, 0, 0, 2, 0, 0, 0, 0, 1})
	if err == nil {
		Te.Error("expected an error for a singular cell")
	}
	_, err = NewLattice([]float64{1, 0, 0})
	if err == nil {
		Te.Error("expected an error for a short slice")
	}
}

func TestMinImage(Te *testing.T) {
	d, _ := NewMatrix([]float64{0.9, -0.7, 0.2, -0.95, 0.45, -0.1})
	w := Zeros(2)
	w.MinImage(d)
	want := []float64{-0.1, 0.3, 0.2, 0.05, 0.45, -0.1}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(w.At(i, j)-want[i*3+j]) > appzero {
				Te.Error("MinImage wrong at", i, j, w.At(i, j), want[i*3+j])
			}
		}
	}
	fmt.Println("min image", w)
}
