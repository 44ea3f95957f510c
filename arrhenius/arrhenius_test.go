/*
 * arrhenius_test.go, part of kinisi.
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

package arrhenius

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	kinisi "github.com/arm61/kinisi"
)

//standardData lies exactly on D = 1e-3 exp(-0.3 eV/kB T) with 5%
//uncertainties, so the likelihood peaks exactly at the truth.
func standardData() ([]float64, []float64, []float64) {
	temps := []float64{300, 350, 400, 450, 500, 550, 600}
	d := make([]float64, len(temps))
	dErr := make([]float64, len(temps))
	for i, T := range temps {
		d[i] = 1e-3 * math.Exp(-0.3/(kinisi.KBoltzEV*T))
		dErr[i] = 0.05 * d[i]
	}
	return temps, d, dErr
}

func TestStandard(Te *testing.T) {
	temps, d, dErr := standardData()
	F, err := NewStandard(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	mle := F.MaxLikelihood()
	if math.Abs(mle[0]-0.3) > 0.02 {
		Te.Errorf("Maximum-likelihood Ea far from 0.3 eV: %f", mle[0])
	}
	if math.Abs(mle[1]-math.Log(1e-3)) > 0.2 {
		Te.Errorf("Maximum-likelihood lnA far from ln(1e-3): %f", mle[1])
	}
	//exact data: the global maximum is the pure normalization term
	best := 0.0
	for _, s := range dErr {
		best -= 0.5 * math.Log(2*math.Pi*s*s)
	}
	if F.MaxLogLikelihood() < best-0.01 || F.MaxLogLikelihood() > best+1e-9 {
		Te.Errorf("Wrong peak log-likelihood: %f, want %f", F.MaxLogLikelihood(), best)
	}
	ea := F.ActivationEnergy()
	if ea.Size() != 1600 {
		Te.Errorf("Wrong posterior size: %d", ea.Size())
	}
	if ea.N() < 0.27 || ea.N() > 0.33 {
		Te.Errorf("Activation energy posterior far from 0.3 eV: %f", ea.N())
	}
	A, err := F.Preexponent()
	if err != nil {
		Te.Fatal(err)
	}
	if A.N() < 2e-4 || A.N() > 5e-3 {
		Te.Errorf("Pre-exponential factor far from 1e-3: %g", A.N())
	}
	if _, err := F.T0(); err == nil {
		Te.Errorf("A standard fit should not have a divergence temperature")
	}
	if _, err := F.Param(5); err == nil {
		Te.Errorf("Parameter 5 should not exist")
	}
	lo, hi, err := ea.ConInt()
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("Ea:", ea.N(), "in", lo, hi, "A:", A.N())
	//seeded end to end, so a rerun must reproduce exactly
	F2, err := NewStandard(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	if F2.ActivationEnergy().N() != ea.N() {
		Te.Errorf("A rerun on the same data did not reproduce: %v vs %v", F2.ActivationEnergy().N(), ea.N())
	}
}

func TestPredict(Te *testing.T) {
	temps, d, dErr := standardData()
	F, err := NewStandard(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	want := 1e-3 * math.Exp(-0.3/(kinisi.KBoltzEV*375))
	p, err := F.Predict(375)
	if err != nil {
		Te.Fatal(err)
	}
	if p.N() < 0.7*want || p.N() > 1.3*want {
		Te.Errorf("Prediction at 375 K far from %g: %g", want, p.N())
	}
	if _, err := F.Predict(-10); err == nil {
		Te.Errorf("A negative temperature should be rejected")
	}
	curves := F.Curves([]float64{300, 450, 600}, 7)
	if len(curves) != 7 || len(curves[0]) != 3 {
		Te.Errorf("Wrong curve sampling: %d x %d", len(curves), len(curves[0]))
	}
	for _, row := range curves {
		if row[0] >= row[2] {
			Te.Errorf("An activated coefficient should grow with temperature: %v", row)
		}
	}
}

func TestSuper(Te *testing.T) {
	temps := []float64{250, 300, 350, 400, 450, 500}
	d := make([]float64, len(temps))
	dErr := make([]float64, len(temps))
	for i, T := range temps {
		d[i] = 1e-3 * math.Exp(-0.05/(kinisi.KBoltzEV*(T-150)))
		dErr[i] = 0.05 * d[i]
	}
	F, err := NewSuper(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	best := 0.0
	for _, s := range dErr {
		best -= 0.5 * math.Log(2*math.Pi*s*s)
	}
	if F.MaxLogLikelihood() < best-3 {
		Te.Errorf("The VTF climb stopped far below the peak: %f, want near %f", F.MaxLogLikelihood(), best)
	}
	t0, err := F.T0()
	if err != nil {
		Te.Fatal(err)
	}
	if t0.N() < 50 || t0.N() > 225 {
		Te.Errorf("Divergence temperature posterior far from 150 K: %f", t0.N())
	}
	ea := F.ActivationEnergy()
	if ea.N() < 0.02 || ea.N() > 0.12 {
		Te.Errorf("VTF activation energy posterior far from 0.05 eV: %f", ea.N())
	}
	want := 1e-3 * math.Exp(-0.05/(kinisi.KBoltzEV*(275-150)))
	p, err := F.Predict(275)
	if err != nil {
		Te.Fatal(err)
	}
	if p.N() < 0.5*want || p.N() > 2*want {
		Te.Errorf("VTF prediction at 275 K far from %g: %g", want, p.N())
	}
	fmt.Println("VTF Ea:", ea.N(), "T0:", t0.N())
}

func TestBoundedT0(Te *testing.T) {
	temps := []float64{250, 300, 350, 400, 450, 500}
	d := make([]float64, len(temps))
	dErr := make([]float64, len(temps))
	for i, T := range temps {
		d[i] = 1e-3 * math.Exp(-0.05/(kinisi.KBoltzEV*(T-150)))
		dErr[i] = 0.05 * d[i]
	}
	o := DefaultOptions()
	if old := o.T0Fraction(0.5); old != 0.9 {
		Te.Errorf("Wrong default divergence fraction: %f", old)
	}
	o.T0Fraction(0) //invalid, must keep 0.5
	if o.T0Fraction() != 0.5 {
		Te.Errorf("An invalid fraction should be ignored")
	}
	F, err := NewSuper(temps, d, dErr, o)
	if err != nil {
		Te.Fatal(err)
	}
	t0, err := F.T0()
	if err != nil {
		Te.Fatal(err)
	}
	//the true 150 K sits outside the shrunken box, so every sample must
	//respect the 125 K wall
	for _, s := range t0.Samples() {
		if s > 125 || s < 0 {
			Te.Errorf("A sample escaped the prior box: %f", s)
		}
	}
}

func TestDataErrors(Te *testing.T) {
	temps, d, dErr := standardData()
	if _, err := NewStandard(temps[:1], d[:1], dErr[:1]); err == nil {
		Te.Errorf("One point cannot constrain two parameters")
	}
	if _, err := NewSuper(temps[:2], d[:2], dErr[:2]); err == nil {
		Te.Errorf("Two points cannot constrain three parameters")
	}
	if _, err := NewStandard(temps, d[:3], dErr); err == nil {
		Te.Errorf("Mismatched lengths should be rejected")
	}
	bad := dup(dErr)
	bad[2] = 0
	if _, err := NewStandard(temps, d, bad); err == nil {
		Te.Errorf("A zero uncertainty should be rejected")
	}
	badT := dup(temps)
	badT[0] = -300
	if _, err := NewStandard(badT, d, dErr); err == nil {
		Te.Errorf("A negative temperature should be rejected")
	}
	badD := dup(d)
	badD[1] = 0
	if _, err := NewStandard(temps, badD, dErr); err == nil {
		Te.Errorf("A vanishing coefficient should be rejected")
	}
}

func TestModels(Te *testing.T) {
	s := Standard{ea: [2]float64{0, 2}, lnA: [2]float64{-20, 20}}
	if s.NParams() != 2 || len(s.Bounds()) != 2 || s.Names()[0] != "Ea" {
		Te.Errorf("Malformed standard model")
	}
	//at kB T = Ea the exponential is exactly 1/e
	T := 0.3 / kinisi.KBoltzEV
	got := s.Eval([]float64{0.3, 0}, T)
	if math.Abs(got-1/math.E) > 1e-12 {
		Te.Errorf("Wrong standard evaluation: %g", got)
	}
	v := Super{ea: [2]float64{0, 2}, lnA: [2]float64{-20, 20}, t0: [2]float64{0, 225}}
	if v.NParams() != 3 || v.Names()[2] != "T0" {
		Te.Errorf("Malformed VTF model")
	}
	got = v.Eval([]float64{0.3, 0, 100}, T+100)
	if math.Abs(got-1/math.E) > 1e-12 {
		Te.Errorf("Wrong VTF evaluation: %g", got)
	}
}

func TestFitJSON(Te *testing.T) {
	temps, d, dErr := standardData()
	F, err := NewStandard(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	b, err := json.Marshal(F)
	if err != nil {
		Te.Fatal(err)
	}
	var back Fit
	if err := json.Unmarshal(b, &back); err != nil {
		Te.Fatal(err)
	}
	if back.NPoints() != F.NPoints() || back.Chain().Len() != F.Chain().Len() {
		Te.Errorf("Wrong shape after a round trip: %d %d", back.NPoints(), back.Chain().Len())
	}
	mle, bmle := F.MaxLikelihood(), back.MaxLikelihood()
	for i := range mle {
		if mle[i] != bmle[i] {
			Te.Errorf("A round trip changed the maximum-likelihood point: %v vs %v", mle, bmle)
		}
	}
	if back.MaxLogLikelihood() != F.MaxLogLikelihood() {
		Te.Errorf("A round trip changed the peak log-likelihood")
	}
	if back.ActivationEnergy().N() != F.ActivationEnergy().N() {
		Te.Errorf("A round trip changed the activation-energy posterior")
	}
	//the restored fit is fully functional
	p, err := back.Predict(375)
	if err != nil {
		Te.Fatal(err)
	}
	want, err := F.Predict(375)
	if err != nil {
		Te.Fatal(err)
	}
	if p.N() != want.N() {
		Te.Errorf("A round trip changed predictions: %g vs %g", p.N(), want.N())
	}
	//VTF fits carry the divergence temperature through
	F2, err := NewSuper(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	b, err = json.Marshal(F2)
	if err != nil {
		Te.Fatal(err)
	}
	var vback Fit
	if err := json.Unmarshal(b, &vback); err != nil {
		Te.Fatal(err)
	}
	t0, err := vback.T0()
	if err != nil {
		Te.Fatal(err)
	}
	wantT0, err := F2.T0()
	if err != nil {
		Te.Fatal(err)
	}
	if t0.N() != wantT0.N() {
		Te.Errorf("A round trip changed the divergence temperature")
	}
	bad := []string{
		`{"model":"cubic","bounds":[[0,2],[-20,20]],"temps":[300,400],"d":[1,1],"derr":[1,1],"mle":[0.3,0],"chain":[[0.3,0]],"acceptance":0.4}`,
		`{"model":"arrhenius","bounds":[[0,2]],"temps":[300,400],"d":[1,1],"derr":[1,1],"mle":[0.3,0],"chain":[[0.3,0]],"acceptance":0.4}`,
		`{"model":"arrhenius","bounds":[[2,0],[-20,20]],"temps":[300,400],"d":[1,1],"derr":[1,1],"mle":[0.3,0],"chain":[[0.3,0]],"acceptance":0.4}`,
		`{"model":"arrhenius","bounds":[[0,2],[-20,20]],"temps":[300,400],"d":[1,1],"derr":[1,1],"mle":[0.3],"chain":[[0.3,0]],"acceptance":0.4}`,
		`{"model":"arrhenius","bounds":[[0,2],[-20,20]],"temps":[300,400],"d":[1,1],"derr":[1,1],"mle":[0.3,0],"chain":[[0.3]],"acceptance":0.4}`,
		`{"model":"arrhenius","bounds":[[0,2],[-20,20]],"temps":[300],"d":[1],"derr":[1],"mle":[0.3,0],"chain":[[0.3,0]],"acceptance":0.4}`,
	}
	for i, doc := range bad {
		var v Fit
		if err := json.Unmarshal([]byte(doc), &v); err == nil {
			Te.Errorf("Bad document %d was accepted", i)
		}
	}
	fmt.Println("round-tripped Ea:", back.ActivationEnergy().N())
}
