/*
 * compare_test.go, part of kinisi.
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

package compare

import (
	"fmt"
	"math"
	"testing"

	kinisi "github.com/arm61/kinisi"
	"github.com/arm61/kinisi/arrhenius"
)

func TestCriteria(Te *testing.T) {
	c, err := NewCriteria(-10, 2, 10)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(c.AIC-24) > 1e-12 {
		Te.Errorf("Wrong AIC: %f", c.AIC)
	}
	if math.Abs(c.BIC-(2*math.Log(10)+20)) > 1e-12 {
		Te.Errorf("Wrong BIC: %f", c.BIC)
	}
	if math.Abs(c.AICc-(24+12.0/7)) > 1e-12 {
		Te.Errorf("Wrong AICc: %f", c.AICc)
	}
	c, err = NewCriteria(-10, 2, 3)
	if err != nil {
		Te.Fatal(err)
	}
	if !math.IsInf(c.AICc, 1) {
		Te.Errorf("The correction should diverge at N = K+1: %f", c.AICc)
	}
	if _, err := NewCriteria(math.NaN(), 2, 10); err == nil {
		Te.Errorf("A NaN log-likelihood should be rejected")
	}
	if _, err := NewCriteria(-10, 0, 10); err == nil {
		Te.Errorf("A parameter-free model should be rejected")
	}
	if _, err := NewCriteria(-10, 2, 0); err == nil {
		Te.Errorf("An empty fit should be rejected")
	}
}

func TestAkaikeWeights(Te *testing.T) {
	a, _ := NewCriteria(-10, 2, 10)
	b, _ := NewCriteria(-11, 2, 10) //AICc exactly 2 higher
	w, err := AkaikeWeights([]Criteria{a, b})
	if err != nil {
		Te.Fatal(err)
	}
	want := 1 / (1 + math.Exp(-1))
	if math.Abs(w[0]-want) > 1e-12 || math.Abs(w[0]+w[1]-1) > 1e-12 {
		Te.Errorf("Wrong weights: %v", w)
	}
	if _, err := AkaikeWeights(nil); err == nil {
		Te.Errorf("Empty criteria should be rejected")
	}
	saturated, _ := NewCriteria(-10, 2, 3)
	if _, err := AkaikeWeights([]Criteria{saturated}); err == nil {
		Te.Errorf("All-divergent criteria should be rejected")
	}
	if d := DeltaBIC(a, b); math.Abs(d-2) > 1e-12 {
		Te.Errorf("Wrong BIC difference: %f", d)
	}
}

func TestBayesFactor(Te *testing.T) {
	bf := BayesFactor(Evidence{LogZ: -1}, Evidence{LogZ: -3})
	if math.Abs(bf-math.Exp(2)) > 1e-9 {
		Te.Errorf("Wrong Bayes factor: %f", bf)
	}
}

func TestNestedSamplingBox(Te *testing.T) {
	//a constant likelihood integrates to itself over the unit prior
	flat := func(p []float64) float64 { return 2.5 }
	ev, err := NestedSampling(flat, [][2]float64{{0, 1}, {0, 1}})
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(ev.LogZ-2.5) > 0.05 {
		Te.Errorf("Wrong evidence for a flat likelihood: %f", ev.LogZ)
	}
	if ev.H > 0.05 || ev.LogZErr > 0.05 {
		Te.Errorf("A flat likelihood carries no information: H %f err %f", ev.H, ev.LogZErr)
	}
	fmt.Println("flat box logZ:", ev.LogZ, "+-", ev.LogZErr)
}

func TestNestedSamplingGaussian(Te *testing.T) {
	//a unit Gaussian on [-10, 10]: Z is the 1/20 prior density
	lnLike := func(p []float64) float64 {
		return -0.5*p[0]*p[0] - 0.5*math.Log(2*math.Pi)
	}
	ev, err := NestedSampling(lnLike, [][2]float64{{-10, 10}})
	if err != nil {
		Te.Fatal(err)
	}
	want := -math.Log(20)
	if math.Abs(ev.LogZ-want) > 0.5 {
		Te.Errorf("Gaussian evidence far from %f: %f +- %f", want, ev.LogZ, ev.LogZErr)
	}
	if ev.H <= 0 || ev.LogZErr <= 0 {
		Te.Errorf("A peaked likelihood must carry information: H %f err %f", ev.H, ev.LogZErr)
	}
	fmt.Println("gaussian logZ:", ev.LogZ, "+-", ev.LogZErr, "want", want)
	ev2, err := NestedSampling(lnLike, [][2]float64{{-10, 10}})
	if err != nil {
		Te.Fatal(err)
	}
	if ev2.LogZ != ev.LogZ {
		Te.Errorf("A seeded rerun did not reproduce: %f vs %f", ev2.LogZ, ev.LogZ)
	}
}

func TestNestedSamplingErrors(Te *testing.T) {
	flat := func(p []float64) float64 { return 0 }
	if _, err := NestedSampling(flat, nil); err == nil {
		Te.Errorf("An empty prior box should be rejected")
	}
	if _, err := NestedSampling(flat, [][2]float64{{1, 0}}); err == nil {
		Te.Errorf("An inverted bound should be rejected")
	}
	dead := func(p []float64) float64 { return math.Inf(-1) }
	if _, err := NestedSampling(dead, [][2]float64{{0, 1}}); err == nil {
		Te.Errorf("A nowhere-finite likelihood should be rejected")
	}
}

func TestCompareArrhenius(Te *testing.T) {
	temps := []float64{300, 350, 400, 450, 500, 550, 600}
	d := make([]float64, len(temps))
	dErr := make([]float64, len(temps))
	for i, T := range temps {
		d[i] = 1e-3 * math.Exp(-0.3/(kinisi.KBoltzEV*T))
		dErr[i] = 0.05 * d[i]
	}
	std, err := arrhenius.NewStandard(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	vtf, err := arrhenius.NewSuper(temps, d, dErr)
	if err != nil {
		Te.Fatal(err)
	}
	ranked, err := CompareArrhenius([]*arrhenius.Fit{vtf, std}, false)
	if err != nil {
		Te.Fatal(err)
	}
	//the data are plain Arrhenius, so the extra parameter cannot pay off
	if ranked[0].Name != "arrhenius" || ranked[1].Name != "vtf" {
		Te.Errorf("Wrong ranking: %s before %s", ranked[0].Name, ranked[1].Name)
	}
	if ranked[0].Weight <= ranked[1].Weight {
		Te.Errorf("The winner should carry the weight: %f vs %f", ranked[0].Weight, ranked[1].Weight)
	}
	if math.Abs(ranked[0].Weight+ranked[1].Weight-1) > 1e-12 {
		Te.Errorf("Weights should sum to one")
	}
	if ranked[0].Evidence != nil {
		Te.Errorf("No evidence was requested")
	}
	o := DefaultOptions()
	o.Live(200) //plenty for a 2-3 parameter box
	ranked, err = CompareArrhenius([]*arrhenius.Fit{vtf, std}, true, o)
	if err != nil {
		Te.Fatal(err)
	}
	for _, r := range ranked {
		if r.Evidence == nil || math.IsNaN(r.Evidence.LogZ) || r.Evidence.LogZErr <= 0 {
			Te.Errorf("Malformed evidence for %s: %+v", r.Name, r.Evidence)
		}
		fmt.Println(r.Name, "AICc:", r.Criteria.AICc, "weight:", r.Weight, "logZ:", r.Evidence.LogZ)
	}
	if _, err := CompareArrhenius(nil, false); err == nil {
		Te.Errorf("Nothing to compare should be rejected")
	}
}
