// Package images generates resized showcase renditions from uploaded originals.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"
)

const (
	// WebPQuality is the encode quality for all renditions.
	WebPQuality = 75
	// uploadConcurrency caps parallel writes against the object store.
	uploadConcurrency = 3
)

// BreakpointWidths are the fixed rendition widths served to browsers.
var BreakpointWidths = []int{480, 768, 1080, 1440}

// Generator downloads an original, produces the rendition ladder, uploads the
// renditions and removes the original.
type Generator struct {
	store storage.ObjectStore
}

// NewGenerator creates a Generator backed by the given object store.
func NewGenerator(store storage.ObjectStore) *Generator {
	return &Generator{store: store}
}

type variant struct {
	key  string
	data []byte
}

// Generate runs the full pipeline for one original key. On failure the error
// is tagged internal; already-uploaded renditions are left in place.
func (g *Generator) Generate(ctx context.Context, originalKey string) error {
	data, err := g.store.Download(ctx, originalKey)
	if err != nil {
		middleware.VariantJobs.WithLabelValues("error").Inc()
		return models.NewInternalError(fmt.Errorf("download original %s: %w", originalKey, err))
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		middleware.VariantJobs.WithLabelValues("error").Inc()
		return models.NewInternalError(fmt.Errorf("decode original %s: %w", originalKey, err))
	}

	variants := make([]variant, 0, len(BreakpointWidths)+1)
	for _, width := range BreakpointWidths {
		resized := resizeToWidth(decoded, width)
		encoded, encErr := encodeWebP(resized, WebPQuality)
		if encErr != nil {
			middleware.VariantJobs.WithLabelValues("error").Inc()
			return models.NewInternalError(fmt.Errorf("encode %dpx rendition of %s: %w", width, originalKey, encErr))
		}
		variants = append(variants, variant{key: storage.VariantKey(originalKey, width), data: encoded})
	}

	full, err := encodeWebP(decoded, WebPQuality)
	if err != nil {
		middleware.VariantJobs.WithLabelValues("error").Inc()
		return models.NewInternalError(fmt.Errorf("encode full rendition of %s: %w", originalKey, err))
	}
	variants = append(variants, variant{key: storage.VariantKey(originalKey, 0), data: full})

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uploadConcurrency)
	for _, v := range variants {
		v := v
		eg.Go(func() error {
			return g.store.Upload(egCtx, v.key, v.data, "image/webp")
		})
	}
	if err := eg.Wait(); err != nil {
		middleware.VariantJobs.WithLabelValues("error").Inc()
		return models.NewInternalError(fmt.Errorf("upload renditions of %s: %w", originalKey, err))
	}

	if err := g.store.Delete(ctx, originalKey); err != nil {
		middleware.VariantJobs.WithLabelValues("error").Inc()
		return models.NewInternalError(fmt.Errorf("delete original %s: %w", originalKey, err))
	}

	middleware.VariantJobs.WithLabelValues("ok").Inc()
	return nil
}

// GenerateAsync runs Generate on its own goroutine, logging any failure.
func (g *Generator) GenerateAsync(ctx context.Context, originalKey string) {
	go func() {
		if err := g.Generate(ctx, originalKey); err != nil {
			middleware.Logger.ErrorContext(ctx, "variant generation failed",
				slog.String("key", originalKey),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// VariantKeysFor lists every rendition key Generate produces for an original.
func VariantKeysFor(originalKey string) []string {
	keys := make([]string, 0, len(BreakpointWidths)+1)
	for _, w := range BreakpointWidths {
		keys = append(keys, storage.VariantKey(originalKey, w))
	}
	return append(keys, storage.VariantKey(originalKey, 0))
}

// resizeToWidth scales src down to the target width preserving aspect ratio.
// Images already narrower than the target are re-encoded unscaled.
func resizeToWidth(src image.Image, width int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 || w <= width {
		return src
	}

	scale := float64(width) / float64(w)
	newH := int(float64(h) * scale)
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
