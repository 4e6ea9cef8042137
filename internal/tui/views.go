package tui

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/directory"
	"github.com/wandergram/wanderchat/internal/status"
)

// ContactList renders the directory in priority order.
type ContactList struct {
	*tview.List
	contacts []directory.Contact
	onSelect func(directory.Contact)
}

// NewContactList creates an empty contact list.
func NewContactList() *ContactList {
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true).SetTitle(" Contacts ")
	return &ContactList{List: list}
}

// Update replaces the displayed contacts.
func (l *ContactList) Update(contacts []directory.Contact) {
	l.contacts = contacts
	l.Clear()
	for i, c := range contacts {
		idx := i
		l.AddItem(c.DisplayName, string(c.Relationship), 0, func() {
			if l.onSelect != nil {
				l.onSelect(l.contacts[idx])
			}
		})
	}
}

// SetSelectedFunc sets the callback for contact selection.
func (l *ContactList) SetSelectedFunc(fn func(directory.Contact)) {
	l.onSelect = fn
}

// MessageView renders the active conversation log.
type MessageView struct {
	*tview.TextView
}

// NewMessageView creates an empty conversation pane.
func NewMessageView() *MessageView {
	tv := tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	tv.SetBorder(true).SetTitle(" Conversation ")
	return &MessageView{TextView: tv}
}

// Render redraws the log. Messages from the current user are labeled "me";
// the log is shown in store order, which is arrival order.
func (v *MessageView) Render(contactName, myID string, msgs []conversation.Message) {
	v.Clear()
	if contactName != "" {
		v.SetTitle(" " + contactName + " ")
	}
	for _, m := range msgs {
		label := contactName
		color := "aqua"
		if m.SenderID == myID {
			label = "me"
			color = "lime"
		}
		line := fmt.Sprintf("[gray]%s[-] [%s]%s[-]: %s",
			m.Timestamp.Local().Format("15:04"), color, tview.Escape(label), tview.Escape(m.Content))
		if m.MediaURL != "" {
			line += fmt.Sprintf(" [yellow][%s][-] %s", m.MediaKind, tview.Escape(m.MediaURL))
		}
		_, _ = fmt.Fprintln(v, line)
	}
	v.ScrollToEnd()
}

// StatusBar shows the connection state and transient flash messages.
type StatusBar struct {
	*tview.TextView
	state status.State
	flash string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	return &StatusBar{TextView: tv}
}

// SetState updates the displayed connection state.
func (s *StatusBar) SetState(state status.State) {
	s.state = state
	s.redraw()
}

// SetFlash shows a transient message; empty clears it.
func (s *StatusBar) SetFlash(text string) {
	s.flash = text
	s.redraw()
}

func (s *StatusBar) redraw() {
	color := "yellow"
	switch s.state {
	case status.Connected:
		color = "lime"
	case status.Failed:
		color = "red"
	}
	text := fmt.Sprintf(" [%s]%s[-]", color, s.state)
	if s.flash != "" {
		text += "  [white]" + tview.Escape(s.flash)
	}
	s.SetText(text)
}
