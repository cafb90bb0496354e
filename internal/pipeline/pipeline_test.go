package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wpilibsuite/sphinxext-photofinish/internal/encoder"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/pngchunk"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/profile"
	"github.com/wpilibsuite/sphinxext-photofinish/internal/svgconv"
)

// fakeWebP stands in for cwebp; it writes png bytes under the webp name.
type fakeWebP struct{}

func (fakeWebP) Format() string    { return "webp" }
func (fakeWebP) Extension() string { return "webp" }
func (fakeWebP) Available() bool   { return true }

func (fakeWebP) Encode(img image.Image, opts encoder.Options) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	return buf.Bytes(), err
}

func testRegistry() *encoder.Registry {
	return encoder.NewRegistryWith(fakeWebP{}, &encoder.JPEGEncoder{}, &encoder.PNGEncoder{})
}

func writeTestPNG(t *testing.T, path string, w, h int, payload []byte) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if payload != nil {
		var err error
		data, err = pngchunk.InsertAfterData(data, pngchunk.Chunk{Type: pngchunk.VIType, Data: payload})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100">
<rect x="0" y="0" width="200" height="100" fill="#3060c0"/>
</svg>
`

func newTestPipeline(t *testing.T, log *bytes.Buffer, chain *svgconv.Chain) *Pipeline {
	t.Helper()
	// Keep host tools out of the svg chain.
	t.Setenv("PATH", t.TempDir())
	if chain == nil {
		chain = svgconv.New(svgconv.WithLibraries(svgconv.OKSVG{}))
	}
	return New(Config{
		Profile:  profile.Get("default"),
		Workers:  2,
		Log:      log,
		Chain:    chain,
		Registry: testRegistry(),
	})
}

func TestImage_Raster(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "arm.png")
	writeTestPNG(t, src, 1100, 550, nil)
	out := filepath.Join(dir, "out")

	d, err := p.Image(context.Background(), Request{
		SrcPath: src,
		URI:     "_images/arm.png",
		DestDir: out,
		Attrs:   map[string]string{"alt": "arm"},
	})
	if err != nil {
		t.Fatalf("Image: %v", err)
	}

	if len(d.Sources) != 1 || d.Sources[0].Type != "image/webp" {
		t.Fatalf("sources = %+v", d.Sources)
	}
	if got, want := d.Sources[0].Srcset, "_images/arm-500.webp 500w, _images/arm-800.webp 800w, _images/arm.webp 1100w"; got != want {
		t.Errorf("webp srcset = %q, want %q", got, want)
	}
	if got, want := d.Img.Srcset, "_images/arm-500.png 500w, _images/arm-800.png 800w, _images/arm.png 1100w"; got != want {
		t.Errorf("img srcset = %q, want %q", got, want)
	}
	if d.Img.Width != 1100 || d.Img.Height != 550 {
		t.Errorf("intrinsic size = %dx%d", d.Img.Width, d.Img.Height)
	}
	if p.Planned() != 6 {
		t.Errorf("planned %d variants, want 6", p.Planned())
	}

	results := p.Render()
	var names []string
	for _, r := range results {
		if r.Err != nil || !r.Written {
			t.Errorf("%s: written=%v err=%v", r.Spec.DestPath, r.Written, r.Err)
		}
		names = append(names, filepath.Base(r.Spec.DestPath))
	}
	want := []string{"arm-500.png", "arm-500.webp", "arm-800.png", "arm-800.webp", "arm.png", "arm.webp"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("rendered files (-want +got):\n%s", diff)
	}

	f, err := os.Open(filepath.Join(out, "arm-800.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 800 || cfg.Height != 400 {
		t.Errorf("arm-800.png is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImage_PayloadKeepsPNGOnly(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	dir := t.TempDir()
	src := filepath.Join(dir, "snippet.png")
	payload := []byte("labview snippet")
	writeTestPNG(t, src, 600, 300, payload)

	d, err := p.Image(context.Background(), Request{SrcPath: src, URI: "snippet.png", DestDir: dir + "/out"})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Sources) != 0 {
		t.Errorf("payload image lists alternative formats: %+v", d.Sources)
	}

	var skipped, written int
	for _, r := range p.Render() {
		switch {
		case r.Err != nil:
			t.Errorf("%v", r.Err)
		case r.Skipped:
			skipped++
			if r.Spec.Format == "png" {
				t.Errorf("png variant skipped: %s", r.Spec.DestPath)
			}
		case r.Written:
			written++
			data, err := os.ReadFile(r.Spec.DestPath)
			if err != nil {
				t.Fatal(err)
			}
			got, ok, err := pngchunk.Find(data, pngchunk.VIType)
			if err != nil || !ok || !bytes.Equal(got, payload) {
				t.Errorf("%s: payload = %q, %v, %v", r.Spec.DestPath, got, ok, err)
			}
		}
	}
	if skipped == 0 || written == 0 {
		t.Errorf("skipped=%d written=%d", skipped, written)
	}
}

func TestImage_EmptyPayloadIsNoPayload(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writeTestPNG(t, src, 900, 300, []byte{})

	d, err := p.Image(context.Background(), Request{SrcPath: src, URI: "a.png", DestDir: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Sources) != 1 || d.Sources[0].Type != "image/webp" {
		t.Fatalf("sources = %+v", d.Sources)
	}

	listed := map[string]bool{}
	for _, set := range []string{d.Sources[0].Srcset, d.Img.Srcset} {
		for _, c := range strings.Split(set, ", ") {
			listed[filepath.Join(dir, "out", strings.Fields(c)[0])] = true
		}
	}
	for _, r := range p.Render() {
		if r.Err != nil || !r.Written {
			t.Errorf("%s: written=%v err=%v", r.Spec.DestPath, r.Written, r.Err)
		}
		if !listed[r.Spec.DestPath] {
			t.Errorf("%s rendered but not in the markup", r.Spec.DestPath)
		}
	}
}

func TestImage_PassThrough(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	tests := []Request{
		{SrcPath: "ignored", URI: "https://example.com/logo.png"},
		{SrcPath: filepath.Join(t.TempDir(), "anim.gif"), URI: "anim.gif", BoxWidth: 50},
	}
	for _, req := range tests {
		d, err := p.Image(context.Background(), req)
		if err != nil {
			t.Errorf("%s: %v", req.URI, err)
		}
		if d.Img.Src != req.URI || d.Img.Srcset != "" || d.BoxWidth != req.BoxWidth {
			t.Errorf("%s: descriptor = %+v", req.URI, d)
		}
		if d.Img.Loading != "lazy" || d.Img.Decoding != "async" {
			t.Errorf("%s: hints = %q %q", req.URI, d.Img.Loading, d.Img.Decoding)
		}
	}
	if p.Planned() != 0 {
		t.Errorf("planned %d variants", p.Planned())
	}
}

func TestImage_BrokenSourceFallsBack(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	src := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(src, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := p.Image(context.Background(), Request{SrcPath: src, URI: "broken.png", Loading: "eager"})
	if err == nil {
		t.Fatal("broken source accepted")
	}
	if d.Img.Src != "broken.png" || d.Img.Loading != "eager" || len(d.Sources) != 0 {
		t.Errorf("fallback descriptor = %+v", d)
	}
	if !strings.Contains(log.String(), "broken.png") {
		t.Errorf("failure not logged: %q", log.String())
	}
}

func TestImage_SVGPreview(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, nil)
	dir := t.TempDir()
	src := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(src, []byte(testSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	preview := filepath.Join(dir, "diagram.png")

	d, err := p.Image(context.Background(), Request{SrcPath: src, URI: "diagram.svg", PreviewPath: preview})
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if d.Img.Width != svgconv.DefaultWidth || d.Img.Height != svgconv.DefaultWidth/2 {
		t.Errorf("intrinsic size = %dx%d", d.Img.Width, d.Img.Height)
	}
	if d.Img.Srcset != "" || len(d.Sources) != 0 {
		t.Errorf("svg got candidates: %+v", d)
	}
	if _, err := os.Stat(preview); err != nil {
		t.Errorf("preview not kept: %v", err)
	}
	if p.Planned() != 0 {
		t.Errorf("svg planned %d variants", p.Planned())
	}
}

func TestImage_SVGNoToolLoggedOnce(t *testing.T) {
	var log bytes.Buffer
	p := newTestPipeline(t, &log, svgconv.New(svgconv.WithLibraries()))
	dir := t.TempDir()
	for _, name := range []string{"a.svg", "b.svg"} {
		src := filepath.Join(dir, name)
		if err := os.WriteFile(src, []byte(testSVG), 0o644); err != nil {
			t.Fatal(err)
		}
		d, err := p.Image(context.Background(), Request{SrcPath: src, URI: name})
		if !errors.Is(err, svgconv.ErrToolUnavailable) {
			t.Fatalf("%s: got %v, want ErrToolUnavailable", name, err)
		}
		if d.Img.Src != name || d.Img.Width != 0 {
			t.Errorf("%s: descriptor = %+v", name, d)
		}
	}
	if n := strings.Count(log.String(), "no conversion tool was found"); n != 1 {
		t.Errorf("no-tool message printed %d times:\n%s", n, log.String())
	}
}
