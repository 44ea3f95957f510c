/*
 * interfaces.go, part of kinisi.
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
 */

package kinisi

import v3 "github.com/arm61/kinisi/v3"

// Source is an interface for anything that can hand out the configurations of
// a simulation one frame at a time: an in-memory Trajectory, or whatever a
// calling program puts behind it. The displacement machinery only sees this
// interface, so it does not care where the numbers come from.
type Source interface {

	//Is the source ready to be read?
	Readable() bool

	//reads the next frame into output. It can also fill the (optional) cell
	//with the 9 row-major elements of the cell matrix for the frame, if given.
	Next(output *v3.Matrix, cell ...[]float64) error

	//Returns the number of particles per frame
	Len() int
}

// Fractional is implemented by sources whose coordinates are fractional
// (crystallographic) rather than cartesian. A source that does not implement
// it is taken to produce cartesian coordinates in A.
type Fractional interface {
	Fractional() bool
}

// Masser can return a slice with the masses of each particle in the source,
// used to weight the center of mass of molecule groups.
type Masser interface {

	//Returns a slice with the masses of all particles
	Masses() ([]float64, error)
}

// Charger can return a slice with the charge of each particle in the source,
// in units of the elementary charge. Needed for charge-displacement and
// conductivity work.
type Charger interface {
	Charges() ([]float64, error)
}

//Errors

//This error predates the "wrapping" error system of Go (i.e. the "%w" directive and the errors package). We should avoid
//using the Decorate method and/or make it use the "%w" directive internally.

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	Decorate(string) []string //This is the new thing for errors. It allows you to add information when you pass it up. Each call also returns the "decoration" slice of strins resulting from the current call. If passed an empty string, it should just return the current value, not add the empty string to the slice.
	//The decorate slice should contain a list of functions in the calling stack, plus, for each function any relevant information, or nothing. If information is to be added to an element of the slice, it should be in this format: "FunctionName: Extra info"
}

// SourceError is the interface for errors in frame sources
type SourceError interface {
	Error
	Critical() bool
	Source() string
}

// LastFrameError has a useless function to distinguish the harmless errors (i.e. last frame) so they can be
// filtered in a typeswitch that looks for this interface.
type LastFrameError interface {
	SourceError
	NormalLastFrameTermination() //does nothing, just to separate this interface from other SourceError's

}
