package arena

// Result describes how a session finished.
type Result struct {
	Session   SessionView `json:"session"`
	Outcome   string      `json:"outcome"`
	WinnerID  string      `json:"winnerId,omitempty"`
	ByForfeit bool        `json:"byForfeit,omitempty"`
	Payout    int64       `json:"payout"`
}

// LifecycleObserver is notified of session lifecycle changes. Callbacks run
// with the session lock held and in lifecycle order for a given session, so
// they must not block or call back into the Coordinator.
type LifecycleObserver interface {
	OnSessionCreated(view SessionView)
	OnSessionStarted(view SessionView)
	OnSessionFinished(result Result)
	OnSessionRemoved(sessionID string)
}

func (c *Coordinator) SetLifecycleObserver(obs LifecycleObserver) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observer = obs
}

func (c *Coordinator) lifecycle() LifecycleObserver {
	c.obsMu.RLock()
	defer c.obsMu.RUnlock()
	return c.observer
}
