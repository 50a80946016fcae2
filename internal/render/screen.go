// Package render draws the live creature population on a terminal. It only
// reads world state and never mutates it.
package render

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"

	"swarm/server/internal/creature"
	"swarm/server/internal/player"
	"swarm/server/internal/terrain"
)

// Source hands a consistent view of the world to fn. The hub satisfies it by
// holding its lock for the duration of the call.
type Source interface {
	View(fn func(reg *creature.Registry, world *terrain.Map, players []player.Player))
}

const (
	glyphSolid = '#'
	glyphPlain = ' '
	glyphFood  = ':'
	glyphHill  = '+'
)

var palette = [creature.Colors]tcell.Color{
	tcell.ColorRed, tcell.ColorBlue, tcell.ColorGreen, tcell.ColorYellow,
	tcell.ColorFuchsia, tcell.ColorAqua, tcell.ColorOrange, tcell.ColorWhite,
	tcell.ColorMaroon, tcell.ColorNavy, tcell.ColorOlive, tcell.ColorPurple,
	tcell.ColorTeal, tcell.ColorSilver, tcell.ColorLime, tcell.ColorPink,
}

var kindGlyph = [creature.Types]rune{'s', 'B', 'f', '?'}

// Screen paints one frame per Draw call.
type Screen struct {
	screen tcell.Screen
	base   tcell.Style
}

func NewScreen(screen tcell.Screen) *Screen {
	return &Screen{
		screen: screen,
		base:   tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGray),
	}
}

// Draw paints terrain, creatures and the scoreboard, then shows the frame.
func (s *Screen) Draw(reg *creature.Registry, world *terrain.Map, players []player.Player) {
	s.screen.Clear()
	width, height := world.Size()
	kothX, kothY := world.Koth()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			glyph := glyphPlain
			style := s.base
			switch {
			case !world.Walkable(x, y):
				glyph = glyphSolid
				style = style.Foreground(tcell.ColorDarkGray)
			case x == kothX && y == kothY:
				glyph = glyphHill
				style = style.Foreground(tcell.ColorGold)
			case world.FoodAt(x, y) > 0:
				glyph = glyphFood
				style = style.Foreground(tcell.ColorDarkGreen)
			}
			s.screen.SetContent(x, y, glyph, nil, style)
		}
	}

	reg.Each(func(c *creature.Creature) {
		style := s.base.Foreground(palette[c.Color%creature.Colors])
		if c.State == creature.StateAttack {
			style = style.Bold(true)
		}
		s.screen.SetContent(c.X, c.Y, kindGlyph[c.Type%creature.Types], nil, style)
	})

	s.drawScoreboard(width+2, reg, players)
	s.screen.Show()
}

func (s *Screen) drawScoreboard(left int, reg *creature.Registry, players []player.Player) {
	s.text(left, 0, fmt.Sprintf("tick %d  creatures %d", reg.Tick(), reg.Count()), s.base.Foreground(tcell.ColorWhite))

	ranked := append([]player.Player(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	king, hasKing := reg.KingPlayer()
	for i, p := range ranked {
		marker := ' '
		if hasKing && p.ID == king {
			marker = '*'
		}
		line := fmt.Sprintf("%c %-12s %6d %3d", marker, p.Name, p.Score, reg.CountOwned(p.ID))
		s.text(left, i+2, line, s.base.Foreground(palette[p.Color%creature.Colors]))
	}
}

func (s *Screen) text(x, y int, line string, style tcell.Style) {
	for i, r := range []rune(line) {
		s.screen.SetContent(x+i, y, r, nil, style)
	}
}

// Run redraws src every interval until ctx is done or the viewer presses q,
// Escape or Ctrl-C. The caller owns Init and Fini of the screen.
func Run(ctx context.Context, screen tcell.Screen, src Source, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("render interval must be positive, got %v", interval)
	}
	view := NewScreen(screen)
	quit := make(chan struct{})
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			if quitKey(ev) {
				select {
				case quit <- struct{}{}:
				case <-done:
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		src.View(view.Draw)
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case <-ticker.C:
		}
	}
}

func quitKey(ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return key.Rune() == 'q'
	}
	return false
}
