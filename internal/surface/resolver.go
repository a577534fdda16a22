package surface

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"voicechat/internal/domain"
	"voicechat/internal/event"
	"voicechat/internal/ports"
)

// Resolver maps targets to Controllers using the host layout. Each widget
// keeps one Chat adapter until it is hidden.
type Resolver struct {
	bench Workbench
	log   *zap.Logger

	mu    sync.Mutex
	chats map[Widget]*cachedChat
}

type cachedChat struct {
	chat   *Chat
	hidden event.Disposable
}

func NewResolver(bench Workbench, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{bench: bench, log: logger.Named("resolver"), chats: map[Widget]*cachedChat{}}
}

// Resolve returns the Controller for target, or false when no surface is
// available.
func (r *Resolver) Resolve(ctx context.Context, target domain.Target) (ports.Controller, bool) {
	switch target {
	case domain.TargetFocused, "":
		return r.focused(ctx)
	case domain.TargetView:
		return r.view(ctx)
	case domain.TargetInline:
		return r.inline(ctx)
	case domain.TargetQuick:
		if err := r.bench.OpenQuickChat(ctx); err != nil {
			r.log.Debug("quick chat unavailable", zap.Error(err))
			return nil, false
		}
		return r.focused(ctx)
	}
	r.log.Debug("unknown target", zap.String("target", string(target)))
	return nil, false
}

// ResolveController accepts a Controller supplied directly by the caller.
func (r *Resolver) ResolveController(controller ports.Controller) (ports.Controller, bool) {
	return controller, controller != nil
}

func (r *Resolver) focused(ctx context.Context) (ports.Controller, bool) {
	if widget, ok := r.bench.FocusedWidget(); ok {
		return r.chat(kindOf(widget.Location()), widget), true
	}
	if editor, ok := r.bench.ActiveEditor(); ok && editor.InlineChatFocused() {
		if widget, ok := editor.InlineChat(); ok {
			return r.chat(domain.SurfaceInline, widget), true
		}
	}
	return r.view(ctx)
}

func (r *Resolver) view(ctx context.Context) (ports.Controller, bool) {
	widget, err := r.bench.ShowView(ctx)
	if err != nil || widget == nil {
		r.log.Debug("chat view unavailable", zap.Error(err))
		return nil, false
	}
	return r.chat(domain.SurfaceView, widget), true
}

func (r *Resolver) inline(ctx context.Context) (ports.Controller, bool) {
	editor, ok := r.bench.ActiveEditor()
	if !ok {
		return nil, false
	}
	if widget, ok := editor.InlineChat(); ok {
		return r.chat(domain.SurfaceInline, widget), true
	}
	widget, err := editor.StartInlineChat(ctx)
	if err != nil || widget == nil {
		r.log.Debug("inline chat unavailable", zap.Error(err))
		return nil, false
	}
	return r.chat(domain.SurfaceInline, widget), true
}

func (r *Resolver) chat(kind domain.SurfaceKind, widget Widget) *Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.chats[widget]; ok && cached.chat.Kind() == kind {
		return cached.chat
	}
	if cached, ok := r.chats[widget]; ok {
		cached.hidden.Dispose()
	}

	chat := NewChat(kind, widget)
	cached := &cachedChat{chat: chat}
	r.chats[widget] = cached
	cached.hidden = widget.OnHidden(func() { r.forget(widget, chat) })
	return chat
}

func (r *Resolver) forget(widget Widget, chat *Chat) {
	r.mu.Lock()
	cached, ok := r.chats[widget]
	if ok && cached.chat == chat {
		delete(r.chats, widget)
	}
	r.mu.Unlock()
	if ok && cached.chat == chat {
		cached.hidden.Dispose()
	}
}

func kindOf(location Location) domain.SurfaceKind {
	switch location {
	case LocationQuick:
		return domain.SurfaceQuick
	case LocationEditor:
		return domain.SurfaceEditor
	case LocationInline:
		return domain.SurfaceInline
	}
	return domain.SurfaceView
}
