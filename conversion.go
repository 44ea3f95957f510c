/*
 * conversion.go, part of kinisi.
 *
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
 *
 */

package kinisi

//This provides useful conversion factors and physical constants.
//Internally everything is A and ps; diffusion coefficients are reported in
//cm^2 s^-1, conductivities in S cm^-1 and activation energies in eV.

//Conversions
const (
	A2PerPs2Cm2PerS = 1e-4     //A^2/ps to cm^2/s
	A32Cm3          = 1e-24    //A^3 to cm^3
	Ps2S            = 1e-12    //ps to s
	EV2J            = 1.602176634e-19
	J2EV            = 1 / 1.602176634e-19
)

//Constants
const (
	KBoltzEV = 8.617333262e-5  //Boltzmann constant, eV/K
	KBoltzJ  = 1.380649e-23    //Boltzmann constant, J/K
	ECharge  = 1.602176634e-19 //elementary charge, C
)
