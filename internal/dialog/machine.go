// Package dialog is the menu-navigation state machine. One Step per voice
// turn: (session, intent) in, (mutated session, spoken reply) out.
package dialog

import (
	"context"
	"fmt"
	"strings"

	"voxnav/internal/catalog"
	"voxnav/internal/dispatch"
	"voxnav/internal/intent"
	"voxnav/internal/session"
)

type Machine struct {
	cat  *catalog.Catalog
	disp *dispatch.Dispatcher
}

func NewMachine(cat *catalog.Catalog, disp *dispatch.Dispatcher) *Machine {
	return &Machine{cat: cat, disp: disp}
}

// Step applies one resolved intent, mutating the session in place. A nil
// error covers every locally recovered condition (unrecognized input, out
// of range numbers, invalid edit payloads); a non-nil error means a
// collaborator call failed and the caller must roll the session back to
// its pre-turn value before replying.
func (m *Machine) Step(ctx context.Context, s *session.Session, in intent.Intent) (string, error) {
	switch in.Kind {
	case intent.Unrecognized:
		return m.reprompt(s), nil

	case intent.Cancel:
		// Cancelling a dictation returns to the item it was editing;
		// anywhere else, cancel means back to the top.
		if s.Level == session.LevelEditField {
			s.Level = session.LevelItem
			s.PendingField = ""
			return "Edição cancelada. " + m.itemHint(s), nil
		}
		return m.toMainMenu(s, "Ok. "), nil

	case intent.Repeat:
		return m.rerender(s), nil

	case intent.GoBack:
		return m.goBack(s), nil

	case intent.SelectNumber:
		return m.selectNumber(ctx, s, in.Number)

	case intent.Edit:
		return m.edit(ctx, s, in.FreeText)

	case intent.Redirect:
		return m.redirect(ctx, s, in.FreeText)

	case intent.Confirm:
		return m.confirm(ctx, s)
	}

	return m.reprompt(s), nil
}

// toMainMenu discards any in-progress edit and lands on the root listing.
// The root is static, so this cannot fail.
func (m *Machine) toMainMenu(s *session.Session, prefix string) string {
	s.Level = session.LevelMenu
	s.MenuPath = nil
	s.PendingField = ""
	s.LastListing = m.cat.Root()
	return prefix + RenderListing("Menu principal", s.LastListing)
}

func (m *Machine) rerender(s *session.Session) string {
	switch s.Level {
	case session.LevelItem:
		return m.itemHint(s)
	case session.LevelEditField:
		return dictationPrompt
	default:
		return RenderListing(m.title(s), s.LastListing)
	}
}

func (m *Machine) goBack(s *session.Session) string {
	switch s.Level {
	case session.LevelMenu:
		// Idempotent: already at the top.
		return "Você já está no menu principal. " + RenderListing("Menu principal", s.LastListing)

	case session.LevelSubmenu:
		return m.toMainMenu(s, "")

	case session.LevelItem, session.LevelEditField:
		// The submenu listing was kept untouched while inside the item,
		// so truncating the path restores it exactly.
		s.Level = session.LevelSubmenu
		s.MenuPath = s.MenuPath[:1]
		s.PendingField = ""
		return RenderListing(m.title(s), s.LastListing)
	}
	return m.reprompt(s)
}

func (m *Machine) selectNumber(ctx context.Context, s *session.Session, n int) (string, error) {
	if n < 1 || n > len(s.LastListing) {
		return fmt.Sprintf("O número %d não está nas opções. Diga um número de 1 a %d.",
			n, len(s.LastListing)), nil
	}
	entry := s.LastListing[n-1]

	switch s.Level {
	case session.LevelMenu:
		switch entry.Kind {
		case catalog.KindCategory:
			listing, err := m.cat.ResolveListing([]int{n})
			if err != nil {
				return "", err
			}
			s.Level = session.LevelSubmenu
			s.MenuPath = []int{n}
			s.LastListing = listing
			return RenderListing(entry.Label, listing), nil

		case catalog.KindAction:
			res, err := m.dispatchRootAction(ctx, entry)
			if err != nil {
				return "", err
			}
			// State stays at MENU; only the reply carries the result.
			return res.SpokenText, nil
		}
		return m.reprompt(s), nil

	case session.LevelSubmenu:
		res, err := m.disp.Dispatch(ctx, dispatch.Action{
			Op:       dispatch.OpFetchItem,
			Category: m.categoryID(s),
			Number:   n,
		})
		if err != nil {
			return "", err
		}
		s.Level = session.LevelItem
		s.MenuPath = append(s.MenuPath, n)
		return renderItem(n, res.Item), nil
	}

	// At ITEM a bare number has no meaning; only commands do.
	return m.reprompt(s), nil
}

func (m *Machine) edit(ctx context.Context, s *session.Session, freeText string) (string, error) {
	switch s.Level {
	case session.LevelItem:
		entry := s.LastListing[s.MenuPath[1]-1]
		if !entry.Editable {
			return "Este item não pode ser editado. " + m.itemHint(s), nil
		}
		s.Level = session.LevelEditField
		s.PendingField = "texto"
		return dictationPrompt, nil

	case session.LevelEditField:
		if strings.TrimSpace(freeText) == "" {
			// Invalid payload: stay put and ask again.
			return "Não entendi o texto. " + dictationPrompt, nil
		}
		categoryID := m.categoryID(s)
		res, err := m.disp.Dispatch(ctx, dispatch.Action{
			Op:       dispatch.OpCommitEdit,
			Category: categoryID,
			Number:   s.MenuPath[1],
			Field:    s.PendingField,
			Value:    freeText,
		})
		if err != nil {
			return "", err
		}
		// The cached listing is stale the moment the edit lands; any other
		// session must see the new content on its next resolve.
		m.cat.Invalidate(categoryID)
		s.Level = session.LevelItem
		s.PendingField = ""
		if res.Delta != nil {
			s.LastListing = catalog.WithReserved(res.Delta)
		}
		return res.SpokenText + " " + m.itemHint(s), nil
	}

	return m.reprompt(s), nil
}

func (m *Machine) redirect(ctx context.Context, s *session.Session, freeText string) (string, error) {
	if s.Level != session.LevelItem {
		return m.reprompt(s), nil
	}

	dest := strings.TrimSpace(strings.TrimPrefix(freeText, "para "))
	if dest == "" {
		return "Para qual lista devo redirecionar?", nil
	}
	node, ok := m.cat.CategoryByLabel(dest)
	if !ok {
		return fmt.Sprintf("Não conheço a lista %s.", dest), nil
	}

	categoryID := m.categoryID(s)
	res, err := m.disp.Dispatch(ctx, dispatch.Action{
		Op:       dispatch.OpMoveItem,
		Category: categoryID,
		Number:   s.MenuPath[1],
		Dest:     node.ID,
	})
	if err != nil {
		return "", err
	}
	// A move stales both listings: the source lost the item, the
	// destination gained it.
	m.cat.Invalidate(categoryID)
	m.cat.Invalidate(node.ID)
	if res.Delta != nil {
		s.LastListing = catalog.WithReserved(res.Delta)
	}
	return res.SpokenText, nil
}

// confirm at ITEM starts playback of the item's media. Outside an item
// there is nothing to confirm, so it re-prompts.
func (m *Machine) confirm(ctx context.Context, s *session.Session) (string, error) {
	if s.Level != session.LevelItem {
		return m.reprompt(s), nil
	}

	entry := s.LastListing[s.MenuPath[1]-1]
	if entry.Media == "" {
		return "Este item não tem áudio. " + m.itemHint(s), nil
	}
	res, err := m.disp.Dispatch(ctx, dispatch.Action{
		Op:       dispatch.OpPlay,
		Resource: entry.Media,
	})
	if err != nil {
		return "", err
	}
	return res.SpokenText, nil
}

func (m *Machine) dispatchRootAction(ctx context.Context, entry catalog.Entry) (dispatch.Result, error) {
	switch entry.NodeID {
	case "parar":
		return m.disp.Dispatch(ctx, dispatch.Action{Op: dispatch.OpStop})
	}
	return dispatch.Result{}, fmt.Errorf("unbound root action %q", entry.NodeID)
}

func (m *Machine) categoryID(s *session.Session) string {
	node, err := m.cat.CategoryByNumber(s.MenuPath[0])
	if err != nil {
		return ""
	}
	return node.ID
}

func (m *Machine) title(s *session.Session) string {
	if len(s.MenuPath) == 0 {
		return "Menu principal"
	}
	node, err := m.cat.CategoryByNumber(s.MenuPath[0])
	if err != nil {
		return "Menu"
	}
	return node.Label
}

func (m *Machine) itemHint(s *session.Session) string {
	entry := s.LastListing[s.MenuPath[1]-1]
	return fmt.Sprintf("Item %d: %s. %s", entry.Number, entry.Label, itemCommands)
}

func (m *Machine) reprompt(s *session.Session) string {
	switch s.Level {
	case session.LevelItem:
		return "Não entendi. " + itemCommands
	case session.LevelEditField:
		return dictationPrompt
	default:
		return fmt.Sprintf("Não entendi. Diga um número de 1 a %d, ou repetir.", len(s.LastListing))
	}
}
