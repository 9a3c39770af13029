package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the lattice banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{" _       _   _   _          ", "#34d399"},
		{"| | __ _| |_| |_(_) ___ ___ ", "#2dd4bf"},
		{"| |/ _` | __| __| |/ __/ _ \\", "#22d3ee"},
		{"| | (_| | |_| |_| | (_|  __/", "#38bdf8"},
		{"|_|\\__,_|\\__|\\__|_|\\___\\___|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
