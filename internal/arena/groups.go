package arena

import "sync"

const lobbyGroup = "lobby"

// groups tracks broadcast membership. A connection belongs to at most one
// group: the lobby or a single session. The lock is a leaf.
type groups struct {
	mu       sync.Mutex
	members  map[string]map[string]*Connection
	memberOf map[string]string
}

func newGroups() *groups {
	return &groups{
		members:  map[string]map[string]*Connection{},
		memberOf: map[string]string{},
	}
}

// join moves conn into group and returns the group it left, if any.
func (g *groups) join(group string, conn *Connection) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.detachLocked(conn)
	m := g.members[group]
	if m == nil {
		m = map[string]*Connection{}
		g.members[group] = m
	}
	m[conn.ID] = conn
	g.memberOf[conn.ID] = group
	return prev
}

// leave removes conn from whatever group it is in.
func (g *groups) leave(conn *Connection) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detachLocked(conn)
}

// leaveIf removes conn only if it is currently in group.
func (g *groups) leaveIf(conn *Connection, group string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.memberOf[conn.ID] != group {
		return false
	}
	g.detachLocked(conn)
	return true
}

func (g *groups) current(conn *Connection) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memberOf[conn.ID]
}

func (g *groups) size(group string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members[group])
}

// drop dissolves a group; its members end up in no group.
func (g *groups) drop(group string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.members[group] {
		delete(g.memberOf, id)
	}
	delete(g.members, group)
}

func (g *groups) snapshot(group string) []*Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Connection, 0, len(g.members[group]))
	for _, c := range g.members[group] {
		out = append(out, c)
	}
	return out
}

// broadcast sends ev to every member of group. Delivery happens after the
// lock is released.
func (g *groups) broadcast(group string, ev Event) {
	for _, c := range g.snapshot(group) {
		c.Send(ev)
	}
}

func (g *groups) broadcastExcept(group string, skip *Connection, ev Event) {
	for _, c := range g.snapshot(group) {
		if skip != nil && c.ID == skip.ID {
			continue
		}
		c.Send(ev)
	}
}

func (g *groups) detachLocked(conn *Connection) string {
	prev, ok := g.memberOf[conn.ID]
	if !ok {
		return ""
	}
	delete(g.memberOf, conn.ID)
	if m := g.members[prev]; m != nil {
		delete(m, conn.ID)
		if len(m) == 0 {
			delete(g.members, prev)
		}
	}
	return prev
}
