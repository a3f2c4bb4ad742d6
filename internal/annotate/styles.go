package annotate

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type styleKey struct {
	base   int
	color  string
	numFmt string
}

// styler derives fill-colored variants of existing cell styles. Variants are
// cached per workbook so repeated colors reuse one style id.
type styler struct {
	f     *excelize.File
	cache map[styleKey]int
}

func newStyler(f *excelize.File) *styler {
	return &styler{f: f, cache: make(map[styleKey]int)}
}

// paint keeps every attribute of the cell's current style and only replaces
// the fill and, when numFmt is set, the number format.
func (s *styler) paint(sheet, cell, color, numFmt string) error {
	base, err := s.f.GetCellStyle(sheet, cell)
	if err != nil {
		return fmt.Errorf("read style %s!%s: %w", sheet, cell, err)
	}

	key := styleKey{base: base, color: color, numFmt: numFmt}
	id, ok := s.cache[key]
	if !ok {
		style, err := s.f.GetStyle(base)
		if err != nil {
			return fmt.Errorf("load style %d: %w", base, err)
		}
		if style == nil {
			style = &excelize.Style{}
		}
		if color != "" {
			style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
		}
		if numFmt != "" {
			custom := numFmt
			style.NumFmt = 0
			style.CustomNumFmt = &custom
		}
		id, err = s.f.NewStyle(style)
		if err != nil {
			return fmt.Errorf("create style: %w", err)
		}
		s.cache[key] = id
	}
	return s.f.SetCellStyle(sheet, cell, cell, id)
}
