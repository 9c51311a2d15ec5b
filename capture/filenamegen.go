package capture

import (
	"errors"
	"fmt"
)

// FilenameGenerator mutates a fixed-width zero-padded numeric field of a
// filename template in place, rather than re-formatting a new string on
// every call. Grounded directly on the original's nested FilenameGenerator
// in original_source/.../video_capture.hpp (template_bytes, num_pos,
// counter), per spec.md §4.5 and §9.
type FilenameGenerator struct {
	template []byte
	numStart int
	numWidth int
	num      int64
}

// NewFilenameGenerator builds a generator for "{prefix}-{NNNNNN}.{ext}",
// with the numeric slot's position computed once at construction (right
// after the prefix and its '-'), matching the original's "locate the slot
// at construction" design.
func NewFilenameGenerator(prefix, extension string, numWidth int) *FilenameGenerator {
	if numWidth <= 0 {
		numWidth = 6
	}
	tmpl := fmt.Sprintf("%s-%0*d.%s", prefix, numWidth, 0, extension)
	numStart := len(prefix) + 1
	return &FilenameGenerator{
		template: []byte(tmpl),
		numStart: numStart,
		numWidth: numWidth,
	}
}

// ErrFilenameOverflow is FilenameGenerationOverflow's sentinel: the numeric
// field's digit width cannot represent the next index.
var ErrFilenameOverflow = errors.New("capture: filename numeric field exhausted")

// CurrentFilename returns the filename for the generator's current index;
// callers borrow the returned string read-only.
func (g *FilenameGenerator) CurrentFilename() string {
	return string(g.template)
}

// Index returns the generator's current numeric index.
func (g *FilenameGenerator) Index() int64 {
	return g.num
}

// Next increments the counter and rewrites the numeric slice in place,
// returning ErrFilenameOverflow (FilenameGenerationOverflow, spec.md §7) if
// the new index no longer fits the configured digit width.
func (g *FilenameGenerator) Next() error {
	g.num++
	maxValue := int64(1)
	for i := 0; i < g.numWidth; i++ {
		maxValue *= 10
	}
	if g.num >= maxValue {
		g.num--
		return fmt.Errorf("%w: index %d exceeds %d-digit field", ErrFilenameOverflow, g.num+1, g.numWidth)
	}
	formatted := fmt.Sprintf("%0*d", g.numWidth, g.num)
	copy(g.template[g.numStart:g.numStart+g.numWidth], formatted)
	return nil
}
