package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/wandergram/wanderchat/internal/api"
	"github.com/wandergram/wanderchat/internal/bus"
	"github.com/wandergram/wanderchat/internal/composer"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/directory"
	"github.com/wandergram/wanderchat/internal/profile"
	"github.com/wandergram/wanderchat/internal/status"
	"github.com/wandergram/wanderchat/internal/upload"
	"go.uber.org/zap"
)

type stubSource struct{}

func (stubSource) MessagingContacts(context.Context) ([]api.ContactRecord, error) { return nil, nil }
func (stubSource) Following(context.Context) ([]api.ContactRecord, error)         { return nil, nil }
func (stubSource) Followers(context.Context) ([]api.ContactRecord, error)         { return nil, nil }
func (stubSource) Senders(context.Context) ([]api.ContactRecord, error)           { return nil, nil }

type stubTx struct{}

func (stubTx) Send(conversation.Message) error { return nil }

type stubUploader struct{}

func (stubUploader) Upload(context.Context, upload.Input) (*upload.Result, error) {
	return &upload.Result{}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	b := bus.New()
	m := status.NewMachine(b)
	fetch := func(context.Context, string) ([]conversation.Message, error) { return nil, nil }
	store := conversation.NewStore(fetch, b, zap.NewNop())
	comp := composer.New(m, store, stubTx{}, stubUploader{}, func() string { return "7" }, zap.NewNop())
	return NewApp(b, m, directory.New(stubSource{}, zap.NewNop()), store, comp, profile.NewIdentity("main"), zap.NewNop())
}

// A successful send consumes the staged attachment entirely, including the
// remote-URL flag left over from a /gif staging.
func TestFinishSendClearsStagedAttachment(t *testing.T) {
	a := newTestApp(t)

	a.handleInput("/gif https://media.example.com/funny.gif")
	if a.pendingAttachment == "" || !a.pendingIsURL {
		t.Fatalf("staging = %q isURL=%v, want a staged remote url", a.pendingAttachment, a.pendingIsURL)
	}

	a.finishSend(nil)
	if a.pendingAttachment != "" || a.pendingIsURL {
		t.Errorf("staging = %q isURL=%v after success, want both cleared", a.pendingAttachment, a.pendingIsURL)
	}
}

func TestFinishSendPreservesStateOnFailure(t *testing.T) {
	a := newTestApp(t)
	a.handleInput("/attach /tmp/pic.png")
	a.input.SetText("hello again")

	a.finishSend(errors.New("send failed"))
	if a.pendingAttachment != "/tmp/pic.png" || a.pendingIsURL {
		t.Errorf("staging = %q isURL=%v, want attachment kept for retry", a.pendingAttachment, a.pendingIsURL)
	}
	if got := a.input.GetText(); got != "hello again" {
		t.Errorf("input = %q, want preserved for retry", got)
	}
}

func TestStagingCommands(t *testing.T) {
	a := newTestApp(t)

	a.handleInput("/gif https://media.example.com/funny.gif")
	a.handleInput("/attach /tmp/pic.png")

	if a.pendingAttachment != "/tmp/pic.png" || a.pendingIsURL {
		t.Errorf("staging = %q isURL=%v, want the later /attach to win", a.pendingAttachment, a.pendingIsURL)
	}
}
