// Package elfinfo extracts build IDs from local ELF binaries, so tools
// can accept a path to a binary wherever a hex build ID is expected.
package elfinfo

import (
	"bytes"
	"debug/elf"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/grafana/dskit/multierror"
)

type BuildID struct {
	ID  string
	Typ string
}

func GNUBuildID(s string) BuildID {
	return BuildID{ID: s, Typ: "gnu"}
}

func GoBuildID(s string) BuildID {
	return BuildID{ID: s, Typ: "go"}
}

func (b *BuildID) Empty() bool {
	return b.ID == "" || b.Typ == ""
}

func (b *BuildID) GNU() bool {
	return b.Typ == "gnu"
}

var ErrNoBuildIDSection = fmt.Errorf("build ID section not found")

// File reads the build ID of the ELF binary at path, preferring the GNU
// note over the Go one.
func File(path string) (id BuildID, err error) {
	f, err := os.Open(path)
	if err != nil {
		return BuildID{}, err
	}
	defer func() {
		err = multierror.New(err, f.Close()).Err()
	}()

	ef, err := elf.NewFile(f)
	if err != nil {
		return BuildID{}, fmt.Errorf("reading ELF file %s: %w", path, err)
	}
	return fromFile(ef, path)
}

func fromFile(ef *elf.File, fpath string) (BuildID, error) {
	id, err := gnuBuildID(ef, fpath)
	if err != nil && !errors.Is(err, ErrNoBuildIDSection) {
		return BuildID{}, err
	}
	if !id.Empty() {
		return id, nil
	}
	id, err = goBuildID(ef, fpath)
	if err != nil && !errors.Is(err, ErrNoBuildIDSection) {
		return BuildID{}, err
	}
	if !id.Empty() {
		return id, nil
	}
	return BuildID{}, ErrNoBuildIDSection
}

func gnuBuildID(ef *elf.File, fpath string) (BuildID, error) {
	section := ef.Section(".note.gnu.build-id")
	if section == nil {
		return BuildID{}, ErrNoBuildIDSection
	}
	data, err := section.Data()
	if err != nil {
		return BuildID{}, fmt.Errorf("reading .note.gnu.build-id %w", err)
	}
	if len(data) < 16 {
		return BuildID{}, fmt.Errorf(".note.gnu.build-id is too small")
	}
	if !bytes.Equal([]byte("GNU"), data[12:15]) {
		return BuildID{}, fmt.Errorf(".note.gnu.build-id is not a GNU build-id")
	}
	rawBuildID := data[16:]
	if len(rawBuildID) != 20 && len(rawBuildID) != 8 { // 8 is xxhash, for example in Container-Optimized OS
		return BuildID{}, fmt.Errorf(".note.gnu.build-id has wrong size %s", fpath)
	}
	return GNUBuildID(hex.EncodeToString(rawBuildID)), nil
}

var goBuildIDSep = []byte("/")

func goBuildID(ef *elf.File, fpath string) (BuildID, error) {
	section := ef.Section(".note.go.buildid")
	if section == nil {
		return BuildID{}, ErrNoBuildIDSection
	}
	data, err := section.Data()
	if err != nil {
		return BuildID{}, fmt.Errorf("reading .note.go.buildid %w", err)
	}
	if len(data) < 17 {
		return BuildID{}, fmt.Errorf(".note.go.buildid is too small")
	}

	data = data[16 : len(data)-1]
	if len(data) < 40 || bytes.Count(data, goBuildIDSep) < 2 {
		return BuildID{}, fmt.Errorf("wrong .note.go.buildid %s", fpath)
	}
	id := string(data)
	if id == "redacted" {
		return BuildID{}, fmt.Errorf("blacklisted .note.go.buildid %s", fpath)
	}
	return GoBuildID(id), nil
}
