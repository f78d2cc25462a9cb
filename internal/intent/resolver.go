package intent

import (
	"strconv"
	"strings"

	"voxnav/internal/session"
)

// Terminator ends a dictation turn: "anotar leite confirmar" commits
// "anotar leite".
const Terminator = "confirmar"

// numberWords maps spoken Portuguese numbers onto their values. The menus
// never grow past a couple dozen rows, so twenty is plenty.
var numberWords = map[string]int{
	"um": 1, "uma": 1,
	"dois": 2, "duas": 2,
	"três": 3, "tres": 3,
	"quatro": 4,
	"cinco":  5,
	"seis":   6,
	"sete":   7,
	"oito":   8,
	"nove":   9,
	"dez":    10,
	"onze":   11,
	"doze":   12,
	"treze":  13,
	"quatorze": 14, "catorze": 14,
	"quinze":    15,
	"dezesseis": 16,
	"dezessete": 17,
	"dezoito":   18,
	"dezenove":  19,
	"vinte":     20,
}

// keywords is the ordered command table, consulted only after number
// parsing fails. That ordering is the tie-break policy: "um" is always the
// number one, never the start of a command phrase.
var keywords = []struct {
	word string
	kind Kind
}{
	{"confirmar", Confirm},
	{"redirecionar", Redirect},
	{"editar", Edit},
	{"cancelar", Cancel},
	{"pular", GoBack},
	{"voltar", GoBack},
	{"repetir", Repeat},
}

// Resolve classifies one utterance given the current session. Pure: it
// reads the session's level and LastListing, mutates nothing.
//
// Number range checks run against the listing the user last heard, not a
// freshly recomputed one. The listing may have changed under them (the
// desktop GUI edits the same lists); they are answering what was spoken.
func Resolve(s *session.Session, utterance string) Intent {
	text := normalize(utterance)

	// Dictation mode suspends the menu grammar entirely. Everything but
	// the control keywords is payload.
	if s.Level == session.LevelEditField {
		if text == "cancelar" {
			return Intent{Kind: Cancel}
		}
		if text == Terminator {
			// Bare terminator: nothing was dictated.
			return Intent{Kind: Edit}
		}
		return Intent{Kind: Edit, FreeText: text}
	}

	if text == "" {
		return Intent{Kind: Unrecognized}
	}

	if n, ok := parseNumber(text); ok {
		size := len(s.LastListing)
		switch {
		case size >= 2 && n == size-1:
			return Intent{Kind: Repeat}
		case size >= 2 && n == size:
			return Intent{Kind: GoBack}
		default:
			// In-range content or out of range; the machine decides
			// which, so it can restate the valid range.
			return Intent{Kind: SelectNumber, Number: n}
		}
	}

	first, rest, _ := strings.Cut(text, " ")
	for _, kw := range keywords {
		if first == kw.word {
			return Intent{Kind: kw.kind, FreeText: strings.TrimSpace(rest)}
		}
	}

	return Intent{Kind: Unrecognized}
}

// normalize lowercases, trims, and strips the dictation terminator from
// either end of the utterance.
func normalize(utterance string) string {
	text := strings.ToLower(strings.TrimSpace(utterance))
	text = strings.Trim(text, ".,!?")

	switch {
	case text == Terminator:
		return text
	case strings.HasSuffix(text, " "+Terminator):
		text = strings.TrimSuffix(text, " "+Terminator)
	case strings.HasPrefix(text, Terminator+" "):
		text = strings.TrimPrefix(text, Terminator+" ")
	}
	return strings.TrimSpace(text)
}

// parseNumber accepts a standalone digit string or number word, or one
// leading a phrase ("dois por favor").
func parseNumber(text string) (int, bool) {
	first, _, _ := strings.Cut(text, " ")
	if n, err := strconv.Atoi(first); err == nil && n > 0 {
		return n, true
	}
	if n, ok := numberWords[first]; ok {
		return n, true
	}
	return 0, false
}
