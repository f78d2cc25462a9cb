package dialog

import (
	"fmt"
	"strings"

	"voxnav/internal/catalog"
	"voxnav/internal/dispatch"
)

const (
	dictationPrompt = "O que devo escrever? Termine com confirmar."
	itemCommands    = "Diga confirmar para reproduzir, editar, redirecionar, ou voltar."
)

// RenderListing speaks a numbered listing, reserved rows included.
func RenderListing(title string, entries []catalog.Entry) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(": ")
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s. ", e.Number, e.Label)
	}
	return strings.TrimSpace(b.String())
}

func renderItem(number int, item dispatch.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item %d: %s.", number, item.Label)
	if item.Body != "" {
		b.WriteString(" ")
		b.WriteString(item.Body)
		if !strings.HasSuffix(item.Body, ".") {
			b.WriteString(".")
		}
	}
	b.WriteString(" ")
	b.WriteString(itemCommands)
	return b.String()
}
