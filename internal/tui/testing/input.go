package testing

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyPress is a printable key, e.g. "m" to cycle the ranking metric.
func KeyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// KeyEnter submits the focused form.
func KeyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

// KeyEsc leaves the card customizer.
func KeyEsc() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEsc} }

// KeyTab moves to the next page, or the next field on the sign-in page.
func KeyTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyTab} }

// KeyShiftTab moves to the previous page.
func KeyShiftTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyShiftTab} }

// KeyDown scrolls rows or moves the customizer cursor.
func KeyDown() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyDown} }

// KeyLeft selects the previous month or sheet tab.
func KeyLeft() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyLeft} }

// KeyRight selects the next month or sheet tab.
func KeyRight() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRight} }

// KeyCtrl is ctrl plus a single letter, e.g. KeyCtrl("g").
func KeyCtrl(letter string) tea.KeyMsg {
	if len(letter) != 1 {
		panic("KeyCtrl requires a single letter")
	}
	r := rune(letter[0])
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	// bubbletea's ctrl+letter key types equal the ASCII control codes.
	return tea.KeyMsg{Type: tea.KeyType(r - 'a' + 1)}
}

// Type returns one key press per rune of text, as a user typing into a field.
func Type(text string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(text))
	for _, r := range text {
		msgs = append(msgs, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return msgs
}

// SignIn fills in the sign-in form and submits it.
func SignIn(username, password string) []tea.Msg {
	msgs := Type(username)
	msgs = append(msgs, KeyEnter())
	msgs = append(msgs, Type(password)...)
	return append(msgs, KeyEnter())
}

// Send delivers msgs in order, running the commands each one triggers.
func Send(model tea.Model, renderer *TestRenderer, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		model = renderer.Send(model, msg)
	}
	return model
}
