package poppler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kirillkom/scan-classifier/internal/core/ports"
)

// buildPDF writes a minimal PDF with blank 72x72pt pages and a valid xref.
func buildPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 72 72] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func ensurePdftoppm(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		t.Skip("pdftoppm not installed in PATH")
	}
}

func TestPageCount(t *testing.T) {
	count, err := PageCount(buildPDF(7))
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7 pages, got %d", count)
	}
	if _, err := PageCount([]byte("not a pdf")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestPageFilesSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-02.png", "page-1.png", "other.txt", "page-x.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	files, err := pageFiles(dir)
	if err != nil {
		t.Fatalf("pageFiles() error = %v", err)
	}
	want := []string{"page-1.png", "page-02.png", "page-10.png"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for i, name := range want {
		if filepath.Base(files[i]) != name {
			t.Fatalf("file %d: expected %s, got %s", i, name, filepath.Base(files[i]))
		}
	}
}

func TestValidateMissingBinary(t *testing.T) {
	if err := New("/nonexistent/pdftoppm").Validate(); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestRenderEmptyPayload(t *testing.T) {
	if _, err := New("").Render(context.Background(), nil, ports.RenderOptions{}); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestRenderClampsToPageCount(t *testing.T) {
	ensurePdftoppm(t)

	images, err := New("").Render(context.Background(), buildPDF(7), ports.RenderOptions{DPI: 72, FirstPage: 1, LastPage: 5})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(images) != 5 {
		t.Fatalf("expected 5 pages, got %d", len(images))
	}

	images, err = New("").Render(context.Background(), buildPDF(2), ports.RenderOptions{DPI: 72, FirstPage: 1, LastPage: 5})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(images))
	}
	if b := images[0].Bounds(); b.Dx() != 72 || b.Dy() != 72 {
		t.Fatalf("unexpected page size at 72 dpi: %v", b)
	}
}

func TestRenderCorruptPDF(t *testing.T) {
	ensurePdftoppm(t)

	if _, err := New("").Render(context.Background(), []byte("%PDF-1.4 garbage"), ports.RenderOptions{DPI: 72}); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}
