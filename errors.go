/*
 * errors.go, part of kinisi.
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

import "fmt"

//errDecorate is a helper function that asserts that the error
//implements Error and decorates it with the caller's name before returning it.
//if used with an error that doesn't implement Error, it will cause a panic.
func errDecorate(err error, caller string) error {
	err2 := err.(Error)
	err2.Decorate(caller)
	return err2
}

//Err is the general structure for frame-source errors. It fullfills Error and SourceError
type Err struct {
	message  string
	source   string //the source that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Err) Error() string {
	return fmt.Sprintf("source %s error: %s", err.source, err.message)
}

//Decorate Adds new information to the error
func (E Err) Decorate(deco string) []string {
	//Even thought this method does not use a pointer as a receiver, and tries to alter the received,
	//it should work, since E.deco is a slice, and hence a pointer itself.

	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//Source returns the name of the data source where the error originated
func (err Err) Source() string { return err.source }

//Critical returns true if the error is critical, false otherwise
func (err Err) Critical() bool { return err.critical }

const (
	TrajUnIniRead    = "Trajectory object uninitialized to read"
	ReadError        = "Error reading frame"
	NilCoordinates   = "Given nil coordinates"
	NotEnoughSpace   = "Not enough space in passed blocks"
	NotEnoughData    = "Not enough data to calculate displacements"
	MismatchedFrames = "Mismatched number of particles between frames"
	MismatchedCells  = "Number of cells must be 1 or the number of frames"
	EOF              = "EOF"
)

//lastFrameError implements LastFrameError
type lastFrameError struct {
	deco   []string
	source string
}

//lastFrameError does nothing
func (E lastFrameError) NormalLastFrameTermination() {}

func (E lastFrameError) Source() string { return E.source }

func (E lastFrameError) Error() string { return "EOF" }

func (E lastFrameError) Critical() bool { return false }

func (E lastFrameError) Decorate(deco string) []string {
	//Even thought this method does not use a pointer as a receiver, and tries to alter the received,
	//it should work, since E.deco is a slice, and hence a pointer itself.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(source string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.source = source
	e.deco = []string{caller}
	return e
}
