package notificare

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

const (
	// sessionResumeWindow is how recent the persisted unload timestamp must
	// be for a restart to silently resume the previous session.
	sessionResumeWindow = 10 * time.Second

	// sessionCloseGrace is how long the host may stay in the background
	// before the active session is closed.
	sessionCloseGrace = 10 * time.Minute
)

// Session is the ephemeral analytics session, alive while the host stays in
// the foreground.
type Session struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
}

// Session returns the active analytics session, or nil when none is open.
func (c *Client) Session() *Session {
	return c.session.currentSession()
}

// sessionManager tracks the analytics session across launches, visibility
// changes and host restarts.
type sessionManager struct {
	BaseComponent
	client *Client

	mu        sync.Mutex
	current   *Session
	stopTimer Timer
}

func (m *sessionManager) Name() string { return "session" }

// Launch decides between resuming and restarting: a persisted unload
// timestamp younger than the resume window means the host reloaded quickly
// and the previous session continues; anything older (or a session without a
// timestamp) is closed and a new one opened.
func (m *sessionManager) Launch(ctx context.Context) error {
	stored, err := store.GetJSON[Session](ctx, m.client.store, storageSessionKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	if stored == nil {
		return m.start(ctx)
	}

	unloadAt, err := store.GetJSON[time.Time](ctx, m.client.store, storageSessionUnloadKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	if unloadAt != nil && m.client.clock.Now().Sub(*unloadAt) < sessionResumeWindow {
		m.mu.Lock()
		m.current = stored
		m.mu.Unlock()

		if err := m.client.store.Delete(ctx, storageSessionUnloadKey); err != nil {
			return err
		}
		m.client.log.Debug("resumed previous session", logger.SessionID(stored.ID))
		return nil
	}

	m.mu.Lock()
	m.current = stored
	m.mu.Unlock()

	if err := m.stop(ctx); err != nil {
		return err
	}
	return m.start(ctx)
}

func (m *sessionManager) Unlaunch(ctx context.Context) error {
	if m.currentSession() == nil {
		return nil
	}
	return m.stop(ctx)
}

func (m *sessionManager) ClearStorage(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.cancelStopTimerLocked()
	m.mu.Unlock()

	if err := m.client.store.Delete(ctx, storageSessionKey); err != nil {
		return err
	}
	return m.client.store.Delete(ctx, storageSessionUnloadKey)
}

func (m *sessionManager) ProcessBroadcast(ctx context.Context, event string, data any) {
	switch event {
	case BroadcastBackground:
		m.scheduleStop()
	case BroadcastForeground:
		m.handleForeground(ctx)
	case BroadcastUnload:
		m.persistUnloadTimestamp(ctx)
	}
}

func (m *sessionManager) currentSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	session := *m.current
	return &session
}

func (m *sessionManager) currentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ""
	}
	return m.current.ID
}

func (m *sessionManager) start(ctx context.Context) error {
	session := &Session{
		ID:    uuid.NewString(),
		Start: m.client.clock.Now(),
	}

	if err := store.SetJSON(ctx, m.client.store, storageSessionKey, session); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()

	if err := m.client.logInternalEvent(ctx, eventApplicationOpen, nil, ""); err != nil {
		return fmt.Errorf("log application open: %w", err)
	}

	m.client.log.Debug("session started", logger.SessionID(session.ID))
	return nil
}

func (m *sessionManager) stop(ctx context.Context) error {
	session := m.currentSession()
	if session == nil {
		return nil
	}

	length := m.client.clock.Now().Sub(session.Start).Seconds()
	data := map[string]any{
		"length": fmt.Sprintf("%.0f", length),
	}
	if err := m.client.logInternalEvent(ctx, eventApplicationClose, data, ""); err != nil {
		m.client.log.Warn("failed to log application close",
			logger.SessionID(session.ID),
			logger.Error(err),
		)
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.client.store.Delete(ctx, storageSessionKey); err != nil {
		return err
	}

	m.client.log.Debug("session stopped", logger.SessionID(session.ID))
	return nil
}

// scheduleStop arms the background grace timer. The session only closes when
// the host stays hidden past the whole grace window; returning to the
// foreground cancels the timer.
func (m *sessionManager) scheduleStop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.stopTimer != nil {
		return
	}
	m.stopTimer = m.client.clock.AfterFunc(sessionCloseGrace, m.graceExpired)
}

func (m *sessionManager) graceExpired() {
	m.mu.Lock()
	m.stopTimer = nil
	m.mu.Unlock()

	if err := m.stop(context.Background()); err != nil {
		m.client.log.Warn("failed to stop session after background grace", logger.Error(err))
	}
}

func (m *sessionManager) handleForeground(ctx context.Context) {
	m.mu.Lock()
	m.cancelStopTimerLocked()
	hasSession := m.current != nil
	m.mu.Unlock()

	if hasSession {
		return
	}

	if err := m.start(ctx); err != nil {
		m.client.log.Warn("failed to start session on foreground", logger.Error(err))
	}
}

func (m *sessionManager) persistUnloadTimestamp(ctx context.Context) {
	if m.currentSession() == nil {
		return
	}

	if err := store.SetJSON(ctx, m.client.store, storageSessionUnloadKey, m.client.clock.Now()); err != nil {
		m.client.log.Warn("failed to persist unload timestamp", logger.Error(err))
	}
}

func (m *sessionManager) cancelStopTimerLocked() {
	if m.stopTimer != nil {
		m.stopTimer.Stop()
		m.stopTimer = nil
	}
}
