package markup

import (
	"html"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Writer produces the final markup for a resolved image. Hosts with their
// own output representation implement it themselves.
type Writer interface {
	Write(w io.Writer, d Descriptor) error
}

// HTML writes a <picture> element.
type HTML struct{}

func (HTML) Write(w io.Writer, d Descriptor) error {
	var b strings.Builder
	b.WriteString("<picture")
	attrInt(&b, "width", d.BoxWidth)
	attrInt(&b, "height", d.BoxHeight)
	b.WriteString(">")

	for _, s := range d.Sources {
		b.WriteString("<source")
		attr(&b, "type", s.Type)
		attr(&b, "srcset", s.Srcset)
		attr(&b, "sizes", s.Sizes)
		b.WriteString("/>")
	}

	b.WriteString("<img")
	attr(&b, "src", d.Img.Src)
	keys := make([]string, 0, len(d.Img.Attrs))
	for k := range d.Img.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attr(&b, k, d.Img.Attrs[k])
	}
	attr(&b, "srcset", d.Img.Srcset)
	attr(&b, "sizes", d.Img.Sizes)
	attrInt(&b, "width", d.Img.Width)
	attrInt(&b, "height", d.Img.Height)
	attr(&b, "loading", d.Img.Loading)
	attr(&b, "decoding", d.Img.Decoding)
	b.WriteString("/></picture>")

	_, err := io.WriteString(w, b.String())
	return err
}

// String renders d with the HTML writer.
func (d Descriptor) String() string {
	var b strings.Builder
	_ = HTML{}.Write(&b, d)
	return b.String()
}

func attr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteString(`"`)
}

func attrInt(b *strings.Builder, name string, v int) {
	if v > 0 {
		attr(b, name, strconv.Itoa(v))
	}
}
