package software

import (
	"image"

	"github.com/gogpu/engine/driver"
	"github.com/gogpu/engine/handle"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/resource"
	"github.com/gogpu/gputypes"
)

// Texture is an RGBA image in host memory.
type Texture struct {
	handle.Handled
	resource.Ref

	label string
	img   *image.RGBA
}

var _ render.Texture = (*Texture)(nil)

var textureCounter = handle.For[render.Texture]()

func newTexture(img image.Image, desc render.TextureDescriptor, owner resource.Owner) (*Texture, error) {
	switch desc.Format {
	case gputypes.TextureFormatUndefined, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, driver.ErrInvalidPixelFormat
	}
	t := &Texture{
		Handled: handle.New(textureCounter),
		label:   desc.Label,
		img:     render.ConvertRGBA(img, int(desc.Width), int(desc.Height)),
	}
	t.Init(t, owner)
	return t, nil
}

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Width returns the width in pixels.
func (t *Texture) Width() uint32 { return uint32(t.img.Bounds().Dx()) } //nolint:gosec // G115: image sizes are non-negative

// Height returns the height in pixels.
func (t *Texture) Height() uint32 { return uint32(t.img.Bounds().Dy()) } //nolint:gosec // G115: image sizes are non-negative

// Format returns TextureFormatRGBA8Unorm.
func (t *Texture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Image returns the texels.
func (t *Texture) Image() *image.RGBA { return t.img }

// ReleaseResource frees the texels.
func (t *Texture) ReleaseResource() { t.img = &image.RGBA{} }

