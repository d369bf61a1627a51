package midi

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldName makes a new Caser per call; they keep state and can't be shared.
func foldName(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// FindPort returns the id of the port called name, or -1. Names compare
// without regard to case or Unicode normalisation; an exact match wins over
// the first port whose name contains name.
func FindPort(t Ports, name string) int {
	want := foldName(name)
	if want == "" {
		return -1
	}
	n := t.PortCount()
	names := make([]string, n)
	for id := range names {
		names[id] = foldName(t.PortName(id))
		if names[id] == want {
			return id
		}
	}
	for id, got := range names {
		if strings.Contains(got, want) {
			return id
		}
	}
	return -1
}
