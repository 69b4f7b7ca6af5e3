package terminal

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
)

var (
	mapStyle    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGray)
	statusStyle = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	popupStyle  = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
)

// draw repaints the whole screen. Callers hold s.mu.
func (s *Surface) draw() {
	if s.closed || !s.loaded {
		return
	}
	s.screen.SetStyle(mapStyle)
	s.screen.Clear()

	vp := s.viewport()
	cols, rows := s.screen.Size()
	mapRows := rows - statusRows

	// paint low z-index first so the emphasized marker ends on top
	var popup *node
	for _, z := range s.zOrder() {
		n := s.nodes[z]
		x, y := s.cellOf(vp, n.Position)
		if y < 0 || y >= mapRows || x < 0 || x >= cols {
			continue
		}
		s.drawMarker(x, y, n)
		if n.style.PopupOpen {
			popup = n
		}
	}
	if popup != nil {
		x, y := s.cellOf(vp, popup.Position)
		s.drawPopup(x, y, cols, mapRows, popup)
	}

	status := fmt.Sprintf(" markers %d  zoom %.1f  center %s  [click/Tab] select  [q] quit", len(s.nodes), vp.Zoom, vp.Center)
	s.drawText(0, rows-1, cols, status, statusStyle)
	s.screen.Show()
}

func (s *Surface) zOrder() []string {
	out := slices.Clone(s.order)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(s.nodes[a].style.ZIndex, s.nodes[b].style.ZIndex)
	})
	return out
}

func (s *Surface) drawMarker(x, y int, n *node) {
	glyph := '?'
	for _, r := range n.Glyph {
		glyph = r
		break
	}
	st := tcell.StyleDefault.Background(tcell.GetColor(n.Color)).Foreground(tcell.ColorWhite).Bold(true)
	s.screen.SetContent(x, y, glyph, nil, st)
	if n.style.BorderWidth > 0 && n.style.PopupOpen {
		border := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.GetColor(n.style.BorderColor)).Bold(true)
		s.screen.SetContent(x-1, y, '[', nil, border)
		s.screen.SetContent(x+1, y, ']', nil, border)
	}
}

// drawPopup places the card above the marker, or below when there is no
// room, clamped to the map area.
func (s *Surface) drawPopup(x, y, cols, rows int, n *node) {
	lines := []string{
		" " + n.Popup.Title + " ",
		" Status: " + n.Popup.Status + " ",
		" Last contact: " + n.Popup.LastContact + " ",
	}
	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	top := y - len(lines) - 1
	if top < 0 {
		top = y + 2
	}
	left := x - width/2
	if left+width > cols {
		left = cols - width
	}
	if left < 0 {
		left = 0
	}
	for i, l := range lines {
		if top+i >= rows {
			break
		}
		st := popupStyle
		if i == 0 {
			st = st.Bold(true)
		}
		s.drawText(left, top+i, width, fmt.Sprintf("%-*s", width, l), st)
	}
}

func (s *Surface) drawText(x, y, maxWidth int, text string, st tcell.Style) {
	i := 0
	for _, r := range text {
		if i >= maxWidth {
			return
		}
		s.screen.SetContent(x+i, y, r, nil, st)
		i++
	}
	for ; i < maxWidth && x+i >= 0; i++ {
		s.screen.SetContent(x+i, y, ' ', nil, st)
	}
}
