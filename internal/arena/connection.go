package arena

// Sender delivers events to one client. Send must not block; it reports
// false when the event could not be queued.
type Sender interface {
	Send(ev Event) bool
}

// Connection binds a transport channel to a resolved identity. The arena
// borrows it for broadcast and never closes it.
type Connection struct {
	ID       string
	UserID   string
	UserName string
	out      Sender
}

func NewConnection(id, userID, userName string, out Sender) *Connection {
	if userName == "" {
		userName = userID
	}
	return &Connection{ID: id, UserID: userID, UserName: userName, out: out}
}

func (c *Connection) Send(ev Event) bool {
	if c == nil || c.out == nil {
		return false
	}
	ok := c.out.Send(ev)
	if !ok {
		metricEventsDropped.Add(1)
	}
	return ok
}

func (c *Connection) player() Player {
	return Player{ID: c.UserID, Name: c.UserName}
}
