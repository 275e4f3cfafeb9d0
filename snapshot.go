package boxsim

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/vector"
)

type Plane int

const (
	// PlaneXY looks down the -Z axis.
	PlaneXY Plane = iota
	// PlaneXZ looks along +Y.
	PlaneXZ
)

func ParsePlane(s string) (Plane, error) {
	switch s {
	case "xy", "top":
		return PlaneXY, nil
	case "xz", "side":
		return PlaneXZ, nil
	}
	return 0, fmt.Errorf("unknown plane %q (want xy or xz)", s)
}

type SnapshotOptions struct {
	Width, Height int
	Plane         Plane
	// PixelsPerUnit fixes the scale. Zero fits all bodies into the image.
	PixelsPerUnit float32
	// MaxSpeed is the speed rendered with the hottest tint.
	MaxSpeed   float32
	Background color.RGBA
}

func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{
		Width:      512,
		Height:     512,
		Plane:      PlaneXY,
		MaxSpeed:   5,
		Background: color.RGBA{24, 24, 28, 255},
	}
}

// box faces as corner indices, with the local axis and sign of the outward normal
var boxFaces = [6]struct {
	corners [4]int
	axis    int
	sign    float32
}{
	{[4]int{0, 2, 6, 4}, 0, -1},
	{[4]int{1, 3, 7, 5}, 0, 1},
	{[4]int{0, 1, 5, 4}, 1, -1},
	{[4]int{2, 3, 7, 6}, 1, 1},
	{[4]int{0, 1, 3, 2}, 2, -1},
	{[4]int{4, 5, 7, 6}, 2, 1},
}

// RenderSnapshot draws the visible faces of every body projected on the chosen
// plane, far bodies first.
func RenderSnapshot(bodies []*RigidBody, opts SnapshotOptions) *image.RGBA {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultSnapshotOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	if len(bodies) == 0 {
		return img
	}

	view, depth := planeAxes(opts.Plane)
	boxes := make([]Box, len(bodies))
	for i, b := range bodies {
		boxes[i] = BoxOf(b)
	}
	proj := newProjector(boxes, opts, view)

	order := make([]int, len(bodies))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		di, dj := boxes[i].Center.Dot(depth), boxes[j].Center.Dot(depth)
		switch {
		case di < dj:
			return -1
		case di > dj:
			return 1
		}
		return 0
	})

	r := vector.NewRasterizer(opts.Width, opts.Height)
	for _, idx := range order {
		base := bodyColor(bodies[idx], opts.MaxSpeed)
		box := boxes[idx]
		for _, f := range boxFaces {
			facing := box.Axes[f.axis].Mul(f.sign).Dot(depth)
			if facing <= 1e-4 {
				continue
			}
			r.Reset(opts.Width, opts.Height)
			for k, c := range f.corners {
				x, y := proj.toPixel(box.Corners[c])
				if k == 0 {
					r.MoveTo(x, y)
				} else {
					r.LineTo(x, y)
				}
			}
			r.ClosePath()
			r.Draw(img, img.Bounds(), image.NewUniform(shade(base, 0.45+0.55*facing)), image.Point{})
		}
	}
	return img
}

// WriteSnapshotPNG renders the bodies and encodes the image as PNG.
func WriteSnapshotPNG(w io.Writer, bodies []*RigidBody, opts SnapshotOptions) error {
	if err := png.Encode(w, RenderSnapshot(bodies, opts)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// planeAxes returns the two in-plane axes and the direction toward the viewer.
func planeAxes(p Plane) ([2]mgl32.Vec3, mgl32.Vec3) {
	if p == PlaneXZ {
		return [2]mgl32.Vec3{{1, 0, 0}, {0, 0, 1}}, mgl32.Vec3{0, -1, 0}
	}
	return [2]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}}, mgl32.Vec3{0, 0, 1}
}

type projector struct {
	view          [2]mgl32.Vec3
	center        mgl32.Vec2
	scale         float32
	width, height float32
}

func newProjector(boxes []Box, opts SnapshotOptions, view [2]mgl32.Vec3) projector {
	p := projector{view: view, width: float32(opts.Width), height: float32(opts.Height)}

	lo := mgl32.Vec2{float32(1e30), float32(1e30)}
	hi := mgl32.Vec2{-float32(1e30), -float32(1e30)}
	for _, b := range boxes {
		for _, c := range b.Corners {
			u, v := c.Dot(view[0]), c.Dot(view[1])
			lo = mgl32.Vec2{min(lo[0], u), min(lo[1], v)}
			hi = mgl32.Vec2{max(hi[0], u), max(hi[1], v)}
		}
	}
	p.center = lo.Add(hi).Mul(0.5)

	p.scale = opts.PixelsPerUnit
	if p.scale <= 0 {
		span := hi.Sub(lo)
		sx := p.width / max(span[0], 1e-3)
		sy := p.height / max(span[1], 1e-3)
		p.scale = 0.9 * min(sx, sy)
	}
	return p
}

func (p projector) toPixel(world mgl32.Vec3) (float32, float32) {
	u := world.Dot(p.view[0]) - p.center[0]
	v := world.Dot(p.view[1]) - p.center[1]
	return p.width/2 + u*p.scale, p.height/2 - v*p.scale
}

func bodyColor(b *RigidBody, maxSpeed float32) color.RGBA {
	if b.Fixed {
		return color.RGBA{128, 128, 128, 255}
	}
	t := float32(0)
	if maxSpeed > 0 {
		t = min(b.LinearVelocity.Len()/maxSpeed, 1)
	}
	cold := mgl32.Vec3{70, 130, 220}
	hot := mgl32.Vec3{220, 70, 60}
	c := cold.Add(hot.Sub(cold).Mul(t))
	return color.RGBA{uint8(c[0]), uint8(c[1]), uint8(c[2]), 255}
}

func shade(c color.RGBA, k float32) color.RGBA {
	k = min(max(k, 0), 1)
	return color.RGBA{
		uint8(float32(c.R) * k),
		uint8(float32(c.G) * k),
		uint8(float32(c.B) * k),
		c.A,
	}
}
