package engine

import "sync"

// EntryRole identifies which side of the conversation produced an entry.
type EntryRole string

const (
	EntryRoleUser      EntryRole = "user"
	EntryRoleAssistant EntryRole = "assistant"
)

// Entry is one line of the conversation log. Partial transcripts accumulate
// into an open entry until the terminating final transcript arrives.
type Entry struct {
	Role  EntryRole
	Text  string
	Final bool
}

// Conversation is the append-only transcript log kept per session.
type Conversation struct {
	mu      sync.Mutex
	entries []Entry
	open    map[EntryRole]int
}

func NewConversation() *Conversation {
	return &Conversation{open: map[EntryRole]int{}}
}

// AppendPartial extends the open entry for role without terminating it,
// creating one if needed.
func (c *Conversation) AppendPartial(role EntryRole, delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, ok := c.open[role]
	if !ok {
		c.entries = append(c.entries, Entry{Role: role})
		index = len(c.entries) - 1
		c.open[role] = index
	}
	c.entries[index].Text += delta
}

// AppendFinal terminates the open entry for role with the completed
// transcript. The final text replaces accumulated deltas because the
// service sends the authoritative transcript alongside the terminator.
func (c *Conversation) AppendFinal(role EntryRole, transcript string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index, ok := c.open[role]
	if !ok {
		c.entries = append(c.entries, Entry{Role: role})
		index = len(c.entries) - 1
	}
	c.entries[index].Text = transcript
	c.entries[index].Final = true
	delete(c.open, role)
}

// Snapshot returns a point-in-time copy of the log.
func (c *Conversation) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}
