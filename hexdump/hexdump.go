// Package hexdump renders memory as a colored hex dump. Signature matches and
// values that look like pointers into mapped memory can be highlighted.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"sigmem/aob"
	"sigmem/process"
	"sigmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

type mark uint8

const (
	markNone mark = iota
	markMatch
	markWildcard
	markPointer
)

// Options controls the dump layout and coloring.
type Options struct {
	BytesPerLine int

	// StartAddress is printed for the first byte.
	StartAddress uint64

	// Color enables ANSI colors; off gives plain text.
	Color bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ZeroColor         coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	HighlightColor    coloransi.ColorCode
	HighlightBgColor  coloransi.ColorCode
	WildcardColor     coloransi.ColorCode
	PointerColor      coloransi.ColorCode

	// Highlight marks every match of the pattern; wildcard positions get
	// WildcardColor.
	Highlight *aob.Pattern

	// MemoryMap, when set, marks aligned PointerSize values that point into
	// readable memory.
	MemoryMap   []memory_map.MemoryMapItem
	PointerSize process.ProcessMemorySize

	// MaxLines limits the output, 0 for no limit.
	MaxLines int
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:      16,
		Color:             true,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.Green,
		ZeroColor:         coloransi.BrightBlack,
		NonPrintableColor: coloransi.BrightBlack,
		HighlightColor:    coloransi.Yellow,
		HighlightBgColor:  coloransi.Black,
		WildcardColor:     coloransi.Magenta,
		PointerColor:      coloransi.ColorOrange,
		PointerSize:       process.PointerSize64,
	}
}

// Dump creates a hex dump of data.
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of data to writer.
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	marks := markBytes(data, options)
	width := 8
	if options.StartAddress+uint64(len(data)) > 0xFFFFFFFF {
		width = 16
	}

	lines := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lines >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], marks[offset:end], options.StartAddress+uint64(offset), width, options)
		lines++
	}
}

func markBytes(data []byte, options Options) []mark {
	marks := make([]mark, len(data))

	if options.MemoryMap != nil && options.PointerSize != 0 {
		size := int(options.PointerSize)
		for i := 0; i+size <= len(data); i += size {
			ptr, err := process.DecodePointer(data[i:], options.PointerSize)
			if err != nil || ptr == 0 {
				continue
			}
			if item := memory_map.Lookup(uint64(ptr), options.MemoryMap); item != nil && item.IsReadable() {
				for j := i; j < i+size; j++ {
					marks[j] = markPointer
				}
			}
		}
	}

	if options.Highlight != nil {
		p := *options.Highlight
		for start := range p.ScanAll(data) {
			for j := 0; j < p.Len(); j++ {
				if p.IsWildcard(j) {
					marks[start+j] = markWildcard
				} else {
					marks[start+j] = markMatch
				}
			}
		}
	}

	return marks
}

func formatLine(writer io.Writer, data []byte, marks []mark, address uint64, width int, options Options) {
	paint := func(fg coloransi.ColorCode, s string) string {
		if !options.Color {
			return s
		}
		return coloransi.Foreground(fg, s)
	}

	fmt.Fprint(writer, paint(options.OffsetColor, fmt.Sprintf("%0*x", width, address)), "  ")

	var hex strings.Builder
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 && i%8 == 0 {
			hex.WriteByte(' ')
		}
		if i >= len(data) {
			hex.WriteString("   ")
			continue
		}

		b := data[i]
		text := fmt.Sprintf("%02x", b)
		switch {
		case !options.Color:
		case marks[i] == markMatch:
			text = coloransi.Color(options.HighlightColor, options.HighlightBgColor, text)
		case marks[i] == markWildcard:
			text = coloransi.Foreground(options.WildcardColor, text)
		case marks[i] == markPointer:
			text = coloransi.Foreground(options.PointerColor, text)
		case b == 0:
			text = coloransi.Foreground(options.ZeroColor, text)
		default:
			text = coloransi.Foreground(options.HexColor, text)
		}
		hex.WriteString(text)
		hex.WriteByte(' ')
	}
	fmt.Fprint(writer, hex.String())

	var ascii strings.Builder
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			ascii.WriteByte(b)
			continue
		}
		ascii.WriteString(paint(options.NonPrintableColor, "."))
	}
	fmt.Fprintf(writer, " |%s|\n", ascii.String())
}

// DumpBytes is a plain dump starting at address 0.
func DumpBytes(data []byte) string {
	options := DefaultOptions()
	options.Color = false
	return Dump(data, options)
}

// DumpMatch dumps data at address with every match of p highlighted.
func DumpMatch(data []byte, address process.ProcessMemoryAddress, p aob.Pattern) string {
	options := DefaultOptions()
	options.StartAddress = uint64(address)
	options.Highlight = &p
	return Dump(data, options)
}
