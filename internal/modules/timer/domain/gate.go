package domain

// Gate is the scheduler's view at the moment a command arrives.
type Gate struct {
	Counting bool
	First    bool
	Last     bool
	Lookup   func(id string) (int, bool)
}

// Admitted is a command the scheduler must act on. Toggle never survives
// admission: it becomes Pause or Resume depending on the mode.
type Admitted struct {
	Command Command
	Index   int
}

// Admit filters a command against the current mode. Commands that make no
// sense right now are dropped without error.
func Admit(g Gate, cmd Command) (Admitted, bool) {
	switch c := cmd.(type) {
	case Pause:
		if g.Counting {
			return Admitted{Command: Pause{}}, true
		}
	case Resume:
		if !g.Counting {
			return Admitted{Command: Resume{}}, true
		}
	case Toggle:
		if g.Counting {
			return Admitted{Command: Pause{}}, true
		}
		return Admitted{Command: Resume{}}, true
	case Next:
		if !g.Last {
			return Admitted{Command: c}, true
		}
	case Prev:
		if !g.First {
			return Admitted{Command: c}, true
		}
	case Jump:
		if g.Lookup == nil {
			return Admitted{}, false
		}
		if idx, ok := g.Lookup(c.ID); ok {
			return Admitted{Command: c, Index: idx}, true
		}
	case Finish, Reload, Fetch, Listen:
		return Admitted{Command: c}, true
	}
	return Admitted{}, false
}
