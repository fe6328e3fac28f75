// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gogpu/compositor"
)

var (
	keyColor  = color.New(color.FgCyan, color.Bold)
	kindColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
	skipColor = color.New(color.FgRed)
)

// printLibrary writes one block per node type: key, kind and display name,
// then pins and property defaults. Descriptors that failed to load are
// listed last.
func printLibrary(w io.Writer, lib *compositor.Library) {
	for _, key := range lib.Keys() {
		typ, _ := lib.Get(key)
		keyColor.Fprint(w, key)
		fmt.Fprint(w, " ")
		kindColor.Fprintf(w, "[%s]", typ.Kind())
		if typ.Name() != key {
			dimColor.Fprintf(w, " %s", typ.Name())
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "  inputs:  %s\n", formatPins(typ.Inputs()))
		fmt.Fprintf(w, "  outputs: %s\n", formatPins(typ.Outputs()))
		defaults := typ.Defaults()
		for _, name := range typ.PropertyNames() {
			p := defaults[name]
			fmt.Fprintf(w, "  %s %s = %s\n", name, dimColor.Sprint(p.Type()), p)
		}
	}
	for _, err := range lib.LoadErrors() {
		skipColor.Fprint(w, "skipped")
		fmt.Fprintf(w, " %v\n", err)
	}
}

func formatPins(pins []compositor.Pin) string {
	if len(pins) == 0 {
		return "-"
	}
	s := make([]string, len(pins))
	for i, p := range pins {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}
