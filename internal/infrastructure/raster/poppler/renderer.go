// Package poppler renders PDF pages to images with the pdftoppm tool.
package poppler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

const (
	DefaultBinary = "pdftoppm"
	outputPrefix  = "page"
)

type Renderer struct {
	binary string
}

func New(binary string) *Renderer {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Renderer{binary: binary}
}

// Validate reports whether the pdftoppm binary can be found.
func (r *Renderer) Validate() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("pdftoppm not available (%s): %w", r.binary, err)
	}
	return nil
}

func (r *Renderer) Render(ctx context.Context, data []byte, opts ports.RenderOptions) ([]image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty pdf payload")
	}
	first := max(opts.FirstPage, 1)
	last := opts.LastPage

	if count, err := PageCount(data); err != nil {
		slog.Warn("pdf_page_count_failed", "error", err)
	} else {
		if count == 0 {
			return nil, errors.New("pdf has no pages")
		}
		if last <= 0 || last > count {
			last = count
		}
	}
	if last > 0 && last < first {
		return nil, fmt.Errorf("invalid page range %d-%d", first, last)
	}

	dir, err := os.MkdirTemp("", "pdftoppm-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("write render input: %w", err)
	}

	args := []string{"-png"}
	if opts.DPI > 0 {
		args = append(args, "-r", strconv.Itoa(opts.DPI))
	}
	args = append(args, "-f", strconv.Itoa(first))
	if last > 0 {
		args = append(args, "-l", strconv.Itoa(last))
	}
	args = append(args, input, filepath.Join(dir, outputPrefix))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("run %s: %w", r.binary, err)
		}
		return nil, fmt.Errorf("run %s: %w: %s", r.binary, err, msg)
	}

	files, err := pageFiles(dir)
	if err != nil {
		return nil, err
	}
	images := make([]image.Image, 0, len(files))
	for _, file := range files {
		img, err := decodePNG(file)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// PageCount reads the page tree of a PDF without rendering it.
func PageCount(data []byte) (count int, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			count, err = 0, fmt.Errorf("read pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return reader.NumPage(), nil
}

// pageFiles lists pdftoppm outputs ordered by page number. pdftoppm pads
// the number to the width of the last page, so lexical order is not enough.
func pageFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, outputPrefix+"-*.png"))
	if err != nil {
		return nil, fmt.Errorf("list rendered pages: %w", err)
	}
	type numbered struct {
		path string
		page int
	}
	pages := make([]numbered, 0, len(matches))
	for _, path := range matches {
		page, ok := pageNumber(path)
		if !ok {
			continue
		}
		pages = append(pages, numbered{path: path, page: page})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

func pageNumber(path string) (int, bool) {
	name := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndexByte(name, '-')
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
