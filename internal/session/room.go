package session

import (
	"sync"

	"notesync/internal/models"
)

// Room is the in-memory authority for one room id: the current note content
// and the set of connected members, in join order.
//
// Every read-modify-write against a room runs under r.mu, and the frames an
// operation produces are queued to member send buffers before the lock is
// released. Queueing never blocks, so broadcasts for the same room are always
// observed in the order of the mutations that produced them. Different rooms
// share nothing.
type Room struct {
	ID string

	mu       sync.Mutex
	members  []*Client
	content  string
	revision int64
	pristine bool // no edit accepted yet; a resolving hydration may still apply
	hydrated bool // hydration outcome already applied or discarded
}

func NewRoom(id string) *Room {
	return &Room{ID: id, pristine: true}
}

// Join adds c to the room and issues the join protocol: member-joined to the
// peers, the current (possibly still-hydrating) snapshot to c only, and the
// updated roster to the whole room including c.
func (r *Room) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members = append(r.members, c)

	joined := models.WSFrame{Type: models.TypeMemberJoined, Data: c.Member()}
	for _, m := range r.members {
		if m.ID != c.ID {
			m.Send(joined)
		}
	}

	c.Send(models.WSFrame{Type: models.TypeSnapshot, Data: r.docLocked()})

	roster := models.WSFrame{Type: models.TypeRoster, Data: r.rosterLocked()}
	for _, m := range r.members {
		m.Send(roster)
	}
}

// Leave removes the member with the given connection id and announces the
// departure plus the updated roster to the remaining members. Removing an id
// that is not present is a no-op, so duplicate disconnect signals produce no
// duplicate member-left broadcast.
func (r *Room) Leave(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m.ID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	gone := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	left := models.WSFrame{Type: models.TypeMemberLeft, Data: gone.Member()}
	roster := models.WSFrame{Type: models.TypeRoster, Data: r.rosterLocked()}
	for _, m := range r.members {
		m.Send(left)
		m.Send(roster)
	}
	return true
}

// Edit replaces the note content unconditionally (last-writer-wins) and
// broadcasts the update to every member except the editor. The returned
// revision is diagnostic only.
func (r *Room) Edit(content, editorID string) models.DocState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.content = content
	r.revision++
	r.pristine = false

	update := models.WSFrame{Type: models.TypeUpdate, Data: r.docLocked()}
	for _, m := range r.members {
		if m.ID != editorID {
			m.Send(update)
		}
	}
	return r.docLocked()
}

// Hydrate applies a loaded document to the room, but only if no edit has been
// accepted since the room was created: a member's edit is authoritative over
// a late-arriving load. On apply the new content is broadcast to all current
// members. Either way the hydration is consumed; it runs at most once.
func (r *Room) Hydrate(content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hydrated || !r.pristine {
		r.hydrated = true
		return false
	}
	r.hydrated = true
	r.content = content
	r.revision++

	update := models.WSFrame{Type: models.TypeUpdate, Data: r.docLocked()}
	for _, m := range r.members {
		m.Send(update)
	}
	return true
}

// Doc returns the current content and revision.
func (r *Room) Doc() models.DocState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docLocked()
}

// Roster returns the current member list in join order.
func (r *Room) Roster() []models.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked().Members
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) docLocked() models.DocState {
	return models.DocState{Content: r.content, Revision: r.revision}
}

func (r *Room) rosterLocked() models.Roster {
	members := make([]models.Member, len(r.members))
	for i, m := range r.members {
		members[i] = m.Member()
	}
	return models.Roster{Members: members}
}
