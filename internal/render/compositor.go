package render

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

// Quad is one textured slot ready to draw
type Quad struct {
	Tex      *image.RGBA
	State    timeline.SlotState
	Rotation media.Rotation
}

// Compositor renders one frame in two passes: the scene pass draws the
// current and next quads with transform, opacity and color grade over
// the background; the post pass applies the whole-frame effect or a
// direct copy.
//
// The same compositor drives live playback and export; only where the
// final buffer goes differs. That sharing is what keeps the two paths
// visually identical. Not safe for concurrent use; each loop owns one.
type Compositor struct {
	width  int
	height int
	bg     color.NRGBA
	grade  config.ColorGrade
	post   config.PostEffect
	seed   int64

	scene *image.RGBA
	pool  *framePool
}

// New creates a compositor for one session. seed drives the temporal
// variation of post effects and stays fixed for the session.
func New(set config.Settings, width, height int, seed int64) *Compositor {
	return &Compositor{
		width:  width,
		height: height,
		bg:     set.BackgroundColor(),
		grade:  set.Grade,
		post:   set.Post,
		seed:   seed,
		scene:  image.NewRGBA(image.Rect(0, 0, width, height)),
		pool:   newFramePool(),
	}
}

// Frame renders the resolved state for time t into dst, which must be
// width x height.
func (c *Compositor) Frame(dst *image.RGBA, cur, next *Quad, t float64) {
	draw.Draw(c.scene, c.scene.Bounds(), &image.Uniform{c.bg}, image.Point{}, draw.Src)

	if cur != nil {
		c.drawQuad(cur)
	}
	if next != nil {
		c.drawQuad(next)
	}

	rot := media.Rotate0
	if cur != nil {
		rot = cur.Rotation
	}
	postPass(dst, c.scene, c.post, t, c.seed, rot)
}

// drawQuad scales the texture to its aspect-fit rect under the slot's
// zoom and pan, grades it, and blends it over the scene at the slot
// opacity.
func (c *Compositor) drawQuad(q *Quad) {
	if q.Tex == nil || !q.State.Draw || q.State.Opacity <= 0 {
		return
	}

	dstRect := c.quadRect(q.Tex, q.State)
	if dstRect.Empty() {
		return
	}

	scratch := c.pool.get(image.Rect(0, 0, dstRect.Dx(), dstRect.Dy()))
	defer c.pool.put(scratch)

	xdraw.ApproxBiLinear.Scale(scratch, scratch.Bounds(), q.Tex, q.Tex.Bounds(), xdraw.Src, nil)
	ApplyGrade(scratch, c.grade)

	alpha := image.NewUniform(color.Alpha{A: uint8(q.State.Opacity*255 + 0.5)})
	draw.DrawMask(c.scene, dstRect, scratch, scratch.Bounds().Min, alpha, image.Point{}, draw.Over)
}

// quadRect computes the destination rectangle: aspect-fit into the
// frame, scaled about the frame center, then panned by the normalized
// offset.
func (c *Compositor) quadRect(tex *image.RGBA, st timeline.SlotState) image.Rectangle {
	tb := tex.Bounds()
	tw, th := float64(tb.Dx()), float64(tb.Dy())
	if tw == 0 || th == 0 {
		return image.Rectangle{}
	}

	fit := float64(c.width) / tw
	if s := float64(c.height) / th; s < fit {
		fit = s
	}

	w := tw * fit * st.Scale
	h := th * fit * st.Scale

	cx := float64(c.width)/2 + st.Offset.X*float64(c.width)
	cy := float64(c.height)/2 + st.Offset.Y*float64(c.height)

	return image.Rect(
		int(cx-w/2), int(cy-h/2),
		int(cx+w/2), int(cy+h/2),
	)
}
