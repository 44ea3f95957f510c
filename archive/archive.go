/*
 * archive.go, part of kinisi.
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

//Package archive stores analysis products on disk as JSON, optionally
//compressed, so long resampling and sampling runs do not have to be
//repeated to look at their outcome again. The file name picks the
//codec: ".zst" and ".gz" compress, anything else is plain text.
package archive

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arm61/kinisi/analyze"
	"github.com/arm61/kinisi/bootstrap"
	"github.com/arm61/kinisi/cfg"
	"github.com/arm61/kinisi/dist"
	"github.com/klauspost/compress/zstd"
)

//Codec returns the compression codec a file name implies: "zst", "gz"
//or "" for plain JSON.
func Codec(name string) string {
	low := strings.ToLower(name)
	switch {
	case strings.HasSuffix(low, ".zst"):
		return "zst"
	case strings.HasSuffix(low, ".gz"):
		return "gz"
	}
	return ""
}

//Save writes the artifact to the named file, compressing as the name
//implies. Anything the encoding/json package can marshal will do, which
//covers the resampled results, the model fits and the Analysis wrapper.
func Save(name string, artifact any) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("kinisi/archive: Could not save %s: %w", name, err)
	}
	b := bufio.NewWriter(f)
	err = Write(b, artifact, Codec(name))
	if err == nil {
		err = b.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("kinisi/archive: Could not save %s: %w", name, err)
	}
	return nil
}

//Load reads the named file into the artifact, which must be a pointer,
//decompressing as the name implies.
func Load(name string, artifact any) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("kinisi/archive: Could not load %s: %w", name, err)
	}
	err = Read(bufio.NewReader(f), artifact, Codec(name))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("kinisi/archive: Could not load %s: %w", name, err)
	}
	return nil
}

//Write encodes the artifact as JSON onto w under the given codec, one
//of "zst", "gz" or "" for no compression.
func Write(w io.Writer, artifact any, codec string) error {
	var h io.WriteCloser
	var err error
	switch codec {
	case "zst":
		h, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case "gz":
		h, err = gzip.NewWriterLevel(w, gzip.BestCompression)
	case "":
		return json.NewEncoder(w).Encode(artifact)
	default:
		return fmt.Errorf("kinisi/archive: Unknown codec %s", codec)
	}
	if err != nil {
		return err
	}
	err = json.NewEncoder(h).Encode(artifact)
	if cerr := h.Close(); err == nil {
		err = cerr
	}
	return err
}

//*zstd.Decoder closes without an error, which keeps it a plain
//io.Reader; this wrapper turns it into an io.ReadCloser like the other
//codecs.
type zstdcloser struct {
	closeq func()
	*zstd.Decoder
}

func (z zstdcloser) Close() error {
	z.closeq()
	return nil
}

//Read decodes an artifact written by Write from r, under the same
//codec it was written with.
func Read(r io.Reader, artifact any, codec string) error {
	var h io.ReadCloser
	switch codec {
	case "zst":
		d, err := zstd.NewReader(r)
		if err != nil {
			return err
		}
		h = zstdcloser{d.Close, d}
	case "gz":
		g, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		h = g
	case "":
		return json.NewDecoder(r).Decode(artifact)
	default:
		return fmt.Errorf("kinisi/archive: Unknown codec %s", codec)
	}
	err := json.NewDecoder(h).Decode(artifact)
	if cerr := h.Close(); err == nil {
		err = cerr
	}
	return err
}

//Analysis is the storable state of a finished analysis: which
//observable was measured, over which axes, the resampled curve and the
//sampled outcomes. The least-squares fit itself is not stored; it is
//rebuilt exactly by refitting the stored result, which is
//deterministic.
type Analysis struct {
	Method       cfg.Method         `json:"method"`
	Dims         string             `json:"dims"`
	Result       *bootstrap.Result  `json:"result"`
	Gradient     *dist.Distribution `json:"gradient,omitempty"`
	Intercept    *dist.Distribution `json:"intercept,omitempty"`
	Coefficient  *dist.Distribution `json:"coefficient,omitempty"`
	Conductivity *dist.Distribution `json:"conductivity,omitempty"`
}

//NewAnalysis wraps a report for storage.
func NewAnalysis(r *analyze.Report) (*Analysis, error) {
	if r == nil || r.Result == nil {
		return nil, fmt.Errorf("kinisi/archive: Nothing to archive")
	}
	a := new(Analysis)
	a.Method = r.Method
	a.Dims = r.Dims.String()
	a.Result = r.Result
	if r.Relationship != nil {
		a.Gradient = r.Relationship.Gradient()
		a.Intercept = r.Relationship.Intercept()
	}
	a.Coefficient = r.Coefficient
	a.Conductivity = r.Conductivity
	return a, nil
}
