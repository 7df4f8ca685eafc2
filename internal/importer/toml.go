package importer

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// ReadTOML reads a TOML deck written as [[cards]], [[checklist]] and
// [[questions]] tables.
func ReadTOML(r io.Reader) (*Result, error) {
	var d Deck
	md, err := toml.NewDecoder(r).Decode(&d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidDeck, undecoded)
	}
	return normalize(d, indexRow), nil
}
