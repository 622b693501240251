package syntax

import (
	"fmt"

	"github.com/wippyai/wat-engine/errors"
	"github.com/wippyai/wat-engine/wat/token"
)

// Edit replaces the bytes [Start, End) of the old text with NewText.
type Edit struct {
	NewText string
	Start   int
	End     int
}

// Span returns the replaced range in the old text.
func (e Edit) Span() token.Span { return token.Span{Start: e.Start, End: e.End} }

// Delta is the change in length the edit causes.
func (e Edit) Delta() int { return len(e.NewText) - (e.End - e.Start) }

// Check validates the edit against a text of the given length.
func (e Edit) Check(length int) error {
	if e.Start < 0 || e.End < e.Start || e.End > length {
		return errors.OutOfRange(errors.PhaseReparse, e.Start, e.End, length)
	}
	return nil
}

// Apply returns src with the edit applied.
func (e Edit) Apply(src string) (string, error) {
	if err := e.Check(len(src)); err != nil {
		return "", err
	}
	return src[:e.Start] + e.NewText + src[e.End:], nil
}

func (e Edit) String() string {
	return fmt.Sprintf("%v -> %q", e.Span(), e.NewText)
}
