// pkg/render/engo/hud.go
package engo

import (
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-slingrope/pkg/engine"
)

// Notice is a short-lived HUD message such as a release or a failed send
type Notice struct {
	Message   string
	Timestamp time.Time
	Color     color.Color
}

type hudText struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// HUDSystem draws a status line and recent notices. Text needs a font;
// without one the HUD only keeps its state.
type HUDSystem struct {
	sink entitySink
	font *common.Font

	state   engine.State
	dropped uint64

	notices    []Notice
	maxNotices int
	noticeTTL  time.Duration

	texts []*hudText

	hudColor    color.Color
	okColor     color.Color
	failedColor color.Color

	mu sync.Mutex
}

// NewHUDSystem creates a HUD drawing text entities through sink
func NewHUDSystem(sink entitySink) *HUDSystem {
	return &HUDSystem{
		sink:        sink,
		maxNotices:  5,
		noticeTTL:   4 * time.Second,
		hudColor:    color.RGBA{255, 255, 255, 255},
		okColor:     color.RGBA{0, 255, 0, 255},
		failedColor: color.RGBA{255, 0, 0, 255},
	}
}

// Add satisfies the ecs.System interface
func (hud *HUDSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	// Not used for HUD system
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {
	// Not used for HUD system
}

// Update redraws the HUD text
func (hud *HUDSystem) Update(dt float32) {
	hud.mu.Lock()
	defer hud.mu.Unlock()

	if hud.font == nil {
		return
	}
	hud.expireNotices(time.Now())

	lines := []Notice{{Message: statusText(hud.state, hud.dropped), Color: hud.hudColor}}
	lines = append(lines, hud.notices...)

	for i, line := range lines {
		t := hud.textEntity(i)
		t.Drawable = common.Text{Font: hud.font, Text: line.Message}
		t.Color = line.Color
		t.Hidden = false
		t.Position = engo.Point{X: 10, Y: 10 + float32(i)*18}
	}
	for i := len(lines); i < len(hud.texts); i++ {
		hud.texts[i].Hidden = true
	}
}

func (hud *HUDSystem) textEntity(i int) *hudText {
	for len(hud.texts) <= i {
		t := &hudText{BasicEntity: ecs.NewBasic()}
		t.Scale = engo.Point{X: 1, Y: 1}
		hud.texts = append(hud.texts, t)
		hud.sink.Add(&t.BasicEntity, &t.RenderComponent, &t.SpaceComponent)
	}
	return hud.texts[i]
}

// statusText summarises one simulation frame
func statusText(s engine.State, dropped uint64) string {
	text := fmt.Sprintf("tick %d  %s  releases %d  last (%.2f, %.2f)",
		s.Tick, s.Gesture, s.Releases, s.ReleaseForce.X, s.ReleaseForce.Y)
	if s.Board != nil {
		text += fmt.Sprintf("  board (%.1f, %.1f)", s.Board.Position.X, s.Board.Position.Y)
	}
	if dropped > 0 {
		text += fmt.Sprintf("  dropped %d", dropped)
	}
	return text
}

// SetState records the frame to summarise
func (hud *HUDSystem) SetState(s engine.State, dropped uint64) {
	hud.mu.Lock()
	defer hud.mu.Unlock()
	hud.state = s
	hud.dropped = dropped
}

// AddNotice queues a message. failed selects the error colour.
func (hud *HUDSystem) AddNotice(message string, failed bool) {
	hud.mu.Lock()
	defer hud.mu.Unlock()

	c := hud.okColor
	if failed {
		c = hud.failedColor
	}
	hud.notices = append(hud.notices, Notice{Message: message, Timestamp: time.Now(), Color: c})
	if len(hud.notices) > hud.maxNotices {
		hud.notices = hud.notices[len(hud.notices)-hud.maxNotices:]
	}
}

// expireNotices drops notices older than the TTL
func (hud *HUDSystem) expireNotices(now time.Time) {
	keep := hud.notices[:0]
	for _, n := range hud.notices {
		if now.Sub(n.Timestamp) < hud.noticeTTL {
			keep = append(keep, n)
		}
	}
	hud.notices = keep
}

// GetNotices returns the queued notices
func (hud *HUDSystem) GetNotices() []Notice {
	hud.mu.Lock()
	defer hud.mu.Unlock()
	out := make([]Notice, len(hud.notices))
	copy(out, hud.notices)
	return out
}

// SetFont sets the font used for HUD text rendering
func (hud *HUDSystem) SetFont(font *common.Font) {
	hud.mu.Lock()
	defer hud.mu.Unlock()
	hud.font = font
}
