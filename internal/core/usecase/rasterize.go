package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const (
	DefaultRenderDPI = 300
	// DefaultMaxPages bounds latency and memory per request. Pages past the
	// limit are never rendered.
	DefaultMaxPages = 5
)

type RasterizerOptions struct {
	DPI      int
	MaxPages int
}

func (o RasterizerOptions) normalize() RasterizerOptions {
	out := o
	if out.DPI <= 0 {
		out.DPI = DefaultRenderDPI
	}
	if out.MaxPages <= 0 {
		out.MaxPages = DefaultMaxPages
	}
	return out
}

// PageRasterizer renders the leading pages of a PDF into colour-normalized
// images.
type PageRasterizer struct {
	renderer ports.PDFRenderer
	codec    ports.ImageCodec
	opts     RasterizerOptions
}

func NewPageRasterizer(renderer ports.PDFRenderer, codec ports.ImageCodec, opts RasterizerOptions) *PageRasterizer {
	return &PageRasterizer{
		renderer: renderer,
		codec:    codec,
		opts:     opts.normalize(),
	}
}

func (r *PageRasterizer) MaxPages() int {
	return r.opts.MaxPages
}

func (r *PageRasterizer) Rasterize(ctx context.Context, pdf []byte) ([]domain.PageImage, error) {
	images, err := r.renderer.Render(ctx, pdf, ports.RenderOptions{
		DPI:       r.opts.DPI,
		FirstPage: 1,
		LastPage:  r.opts.MaxPages,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrRasterization, "render pdf", err)
	}
	if len(images) == 0 {
		return nil, domain.WrapError(domain.ErrRasterization, "render pdf", errors.New("no pages found in pdf"))
	}
	if len(images) > r.opts.MaxPages {
		slog.Warn("renderer_returned_extra_pages", "returned", len(images), "max_pages", r.opts.MaxPages)
		images = images[:r.opts.MaxPages]
	}

	pages := make([]domain.PageImage, 0, len(images))
	for idx, img := range images {
		if img == nil {
			return nil, domain.WrapError(domain.ErrRasterization, "render pdf", fmt.Errorf("page %d rendered empty", idx+1))
		}
		pages = append(pages, domain.PageImage{
			Index: idx,
			Image: r.codec.Normalize(img),
			DPI:   r.opts.DPI,
		})
	}

	slog.Info("pdf_rasterized", "pages", len(pages), "dpi", r.opts.DPI)
	return pages, nil
}
