/*
 * doc.go, part of kinisi.
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

/*Package kinisi is the main package of the kinisi library: uncertainty
quantification for transport properties calculated from molecular-dynamics
trajectories. It holds the trajectory model, the unwrapping and drift
correction machinery, and the mean-squared displacement family; estimation and
model fitting live in the subpackages.


	**kinisi Capabilities**


    Extracts displacements from in-memory trajectories (cartesian or
	fractional coordinates, constant or per-frame cells), unwrapping
	through the periodic boundary and correcting for framework drift.

    Evaluates tracer (MSD), total (TMSD) and charge (MSCD) mean-squared
	displacements over linear or logarithmic grids of time intervals,
	along any subset of the cartesian axes.

    Block bootstrap uncertainties for all of the above, resampling only as
	many observations as are statistically independent (package bootstrap).

    Bayesian regression of the Einstein relationship with a covariance
	model for the correlation between time intervals, giving posterior
	distributions for the diffusion coefficient, the jump-diffusion
	coefficient and the ionic conductivity (package diffusion).

    Arrhenius and Vogel-Tammann-Fulcher models of the temperature
	dependence, with posterior distributions for the activation energy
	(package arrhenius).

    Model comparison through information criteria and nested-sampling
	evidence estimates (package compare).

    Velocity autocorrelation functions and Green-Kubo diffusion
	coefficients (package tcf).

    YAML-driven configuration (package cfg), high level analyzers
	(package analyze) and compressed persistence of results
	(package archive).


Trajectory file parsing and plotting are deliberately left to the calling
program.

kinisi stores coordinates in the v3.Matrix type, one row per particle, built
on gonum.org/v1/gonum/mat.*/
package kinisi
