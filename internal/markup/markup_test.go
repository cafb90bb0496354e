package markup

import (
	"mime"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// evalSizes evaluates the subset of CSS used by Sizes for a viewport width.
func evalSizes(t *testing.T, expr string, viewport float64) float64 {
	t.Helper()
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "min(") && strings.HasSuffix(expr, ")"):
		inner := expr[4 : len(expr)-1]
		depth := 0
		for i, r := range inner {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			case ',':
				if depth == 0 {
					return min(evalSizes(t, inner[:i], viewport), evalSizes(t, inner[i+1:], viewport))
				}
			}
		}
		t.Fatalf("bad min(): %q", expr)
	case strings.HasSuffix(expr, "px"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(expr, "px"), 64)
		if err != nil {
			t.Fatal(err)
		}
		return v
	case strings.HasSuffix(expr, "vw"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(expr, "vw"), 64)
		if err != nil {
			t.Fatal(err)
		}
		return v * viewport / 100
	}
	t.Fatalf("cannot evaluate %q", expr)
	return 0
}

func TestSizes(t *testing.T) {
	tests := []struct {
		name               string
		nw, nh, bw, bh, mv int
		want               string
	}{
		{"explicit width", 800, 600, 300, 0, 1000, "min(300px, 100vw)"},
		{"explicit width wins", 800, 600, 300, 100, 1000, "min(300px, 100vw)"},
		{"explicit height", 800, 600, 0, 150, 1000, "200px"},
		{"default", 800, 600, 0, 0, 1000, "min(min(800px, 100vw), 1000px)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sizes(tt.nw, tt.nh, tt.bw, tt.bh, tt.mv); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSizes_NeverExceedsNativeOrViewport(t *testing.T) {
	expr := Sizes(800, 600, 0, 0, 1000)
	for vw := 1.0; vw <= 4000; vw += 13 {
		got := evalSizes(t, expr, vw)
		if got > 800 || got > vw {
			t.Fatalf("viewport %v: sizes evaluates to %v", vw, got)
		}
	}
}

func testInput() Input {
	return Input{
		URI:          "_images/arm.png",
		NativeWidth:  1100,
		NativeHeight: 550,
		NativeFormat: "png",
		Sets: []FormatSet{
			{Format: "webp", Candidates: []Candidate{{"_images/arm-500.webp", 500}, {"_images/arm-800.webp", 800}, {"_images/arm.webp", 1100}}},
			{Format: "png", Candidates: []Candidate{{"_images/arm-500.png", 500}, {"_images/arm-800.png", 800}, {"_images/arm.png", 1100}}},
		},
		MaxViewportWidth: 1000,
		Attrs:            map[string]string{"alt": "Robot arm"},
	}
}

func TestBuild(t *testing.T) {
	got := Build(testInput())
	sizes := "min(min(1100px, 100vw), 1000px)"
	want := Descriptor{
		Sources: []Source{{
			Type:   "image/webp",
			Srcset: "_images/arm-500.webp 500w, _images/arm-800.webp 800w, _images/arm.webp 1100w",
			Sizes:  sizes,
		}},
		Img: Img{
			Src:      "_images/arm.png",
			Srcset:   "_images/arm-500.png 500w, _images/arm-800.png 800w, _images/arm.png 1100w",
			Sizes:    sizes,
			Width:    1100,
			Height:   550,
			Loading:  "lazy",
			Decoding: "async",
			Attrs:    map[string]string{"alt": "Robot arm"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("descriptor (-want +got):\n%s", diff)
	}
}

func TestBuild_KeepsCallerHints(t *testing.T) {
	in := testInput()
	in.Loading = "eager"
	in.Decoding = "sync"
	in.BoxWidth = 400
	got := Build(in)
	if got.Img.Loading != "eager" || got.Img.Decoding != "sync" {
		t.Errorf("caller hints overridden: %+v", got.Img)
	}
	if got.BoxWidth != 400 || got.Sources[0].Sizes != "min(400px, 100vw)" {
		t.Errorf("box not applied: %+v", got)
	}
}

func TestBuild_NativeOnly(t *testing.T) {
	in := testInput()
	in.Sets = in.Sets[1:]
	got := Build(in)
	if len(got.Sources) != 0 || got.Img.Srcset == "" {
		t.Errorf("unexpected descriptor: %+v", got)
	}
}

func TestHTML(t *testing.T) {
	in := testInput()
	in.BoxHeight = 200
	in.Attrs["alt"] = `"quoted" & <odd>`
	got := Build(in).String()
	want := `<picture height="200">` +
		`<source type="image/webp" srcset="_images/arm-500.webp 500w, _images/arm-800.webp 800w, _images/arm.webp 1100w" sizes="400px"/>` +
		`<img src="_images/arm.png" alt="&#34;quoted&#34; &amp; &lt;odd&gt;" srcset="_images/arm-500.png 500w, _images/arm-800.png 800w, _images/arm.png 1100w" sizes="400px" width="1100" height="550" loading="lazy" decoding="async"/>` +
		`</picture>`
	if got != want {
		t.Errorf("html mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestMIME(t *testing.T) {
	RegisterMIME()
	if got := mime.TypeByExtension(".webp"); got != "image/webp" {
		t.Errorf(".webp = %q", got)
	}
	if got := MIMEType("jpeg"); got != "image/jpeg" {
		t.Errorf("jpeg = %q", got)
	}
	if got := MIMEType("avif"); got != "image/avif" {
		t.Errorf("avif = %q", got)
	}
}
