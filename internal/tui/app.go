package tui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/wandergram/wanderchat/internal/bus"
	"github.com/wandergram/wanderchat/internal/composer"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/directory"
	"github.com/wandergram/wanderchat/internal/profile"
	"github.com/wandergram/wanderchat/internal/status"
	"github.com/wandergram/wanderchat/internal/upload"
	"go.uber.org/zap"
)

// App is the chat screen: contact list on the left, the active conversation
// and composer input on the right, a status bar at the bottom. All durable
// state lives in the store and directory; the app only renders and forwards
// input.
type App struct {
	app       *tview.Application
	contacts  *ContactList
	msgView   *MessageView
	input     *tview.InputField
	statusBar *StatusBar

	bus      *bus.Bus
	machine  *status.Machine
	dir      *directory.Directory
	store    *conversation.Store
	composer *composer.Composer
	identity *profile.Identity
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// pendingAttachment is the staged /attach path or /gif URL, consumed by
	// the next successful send.
	pendingAttachment string
	pendingIsURL      bool
}

// NewApp creates the TUI application.
func NewApp(b *bus.Bus, m *status.Machine, dir *directory.Directory, store *conversation.Store, comp *composer.Composer, id *profile.Identity, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		contacts:  NewContactList(),
		msgView:   NewMessageView(),
		input:     tview.NewInputField().SetLabel(" > ").SetFieldWidth(0),
		statusBar: NewStatusBar(),
		bus:       b,
		machine:   m,
		dir:       dir,
		store:     store,
		composer:  comp,
		identity:  id,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupCallbacks() {
	a.contacts.SetSelectedFunc(func(c directory.Contact) {
		a.openConversation(c)
	})

	a.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		a.handleInput(a.input.GetText())
	})
}

func (a *App) setupLayout() {
	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.input, 1, 0, false)

	main := tview.NewFlex().
		AddItem(a.contacts, 30, 0, true).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(main, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			a.store.Deselect()
			a.pendingAttachment = ""
			a.msgView.Clear()
			a.app.SetFocus(a.contacts)
			return nil
		}
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}
		if event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.input)
			return nil
		}
		if event.Key() == tcell.KeyRune && event.Rune() == 'q' {
			a.app.Stop()
			return nil
		}
		return event
	})
}

// Run starts the TUI and blocks until quit.
func (a *App) Run() error {
	go a.loadContacts()
	go a.eventLoop()
	a.statusBar.SetState(a.machine.Current())
	return a.app.Run()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) loadContacts() {
	contacts := a.dir.Build(a.ctx)
	a.app.QueueUpdateDraw(func() {
		a.contacts.Update(contacts)
		if len(contacts) == 0 {
			a.flash("No contacts to message yet")
		}
	})
}

// eventLoop reacts to bus events: connection state changes refresh the status
// bar, message events refresh the conversation pane.
func (a *App) eventLoop() {
	ch, unsub := a.bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			a.handleEvent(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStateChanged:
		change, ok := evt.Payload.(status.StateChange)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetState(change.To)
			if change.To == status.Failed {
				a.flash("Chat backend unavailable — restart the client to retry")
			}
		})
	case bus.KindChatAppended, bus.KindChatHistory:
		msgs := a.store.Messages()
		me := a.identity.UserID()
		_, name, _ := a.store.Active()
		a.app.QueueUpdateDraw(func() {
			a.msgView.Render(name, me, msgs)
		})
	}
}

func (a *App) openConversation(c directory.Contact) {
	go func() {
		if err := a.store.Select(a.ctx, c.ID, c.DisplayName); err != nil {
			a.logger.Warn("history load failed", zap.String("contact_id", c.ID), zap.Error(err))
			a.app.QueueUpdateDraw(func() {
				a.flash("Could not load conversation: " + err.Error())
			})
			return
		}
		msgs := a.store.Messages()
		me := a.identity.UserID()
		a.app.QueueUpdateDraw(func() {
			a.msgView.Render(c.DisplayName, me, msgs)
			a.app.SetFocus(a.input)
		})
	}()
}

// handleInput interprets composer commands (/attach, /gif) and plain text.
func (a *App) handleInput(text string) {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "/attach "):
		a.pendingAttachment = strings.TrimSpace(strings.TrimPrefix(trimmed, "/attach "))
		a.pendingIsURL = false
		a.input.SetText("")
		a.flash("Attached " + filepath.Base(a.pendingAttachment))
	case strings.HasPrefix(trimmed, "/gif "):
		a.pendingAttachment = strings.TrimSpace(strings.TrimPrefix(trimmed, "/gif "))
		a.pendingIsURL = true
		a.input.SetText("")
		a.flash("Attached animated image")
	default:
		a.send(trimmed)
	}
}

func (a *App) send(text string) {
	attachment := a.pendingAttachment
	isURL := a.pendingIsURL

	go func() {
		err := a.sendWithAttachment(text, attachment, isURL)
		a.app.QueueUpdateDraw(func() {
			a.finishSend(err)
		})
	}()
}

// finishSend settles the composer state after a send attempt. On failure the
// input and staged attachment stay intact for a retry; on success both are
// consumed.
func (a *App) finishSend(err error) {
	if err != nil {
		a.flash(err.Error())
		return
	}
	a.input.SetText("")
	a.pendingAttachment = ""
	a.pendingIsURL = false
}

func (a *App) sendWithAttachment(text, attachment string, isURL bool) error {
	if attachment == "" {
		return a.composer.Send(a.ctx, text, nil)
	}
	if isURL {
		return a.composer.Send(a.ctx, text, &upload.Input{RemoteURL: attachment})
	}

	f, err := os.Open(attachment)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer func() { _ = f.Close() }()

	in := upload.Input{
		Name:        filepath.Base(attachment),
		ContentType: mime.TypeByExtension(filepath.Ext(attachment)),
		Data:        f,
	}
	return a.composer.Send(a.ctx, text, &in)
}

func (a *App) flash(text string) {
	a.statusBar.SetFlash(text)
	time.AfterFunc(5*time.Second, func() {
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("")
		})
	})
}
