package domain

// Sequence is an immutable cursor over the configured sessions. Transitions
// return a new value and never touch the receiver.
type Sequence struct {
	sessions  []Session
	position  int
	iteration int
	limit     IterationLimit
}

func NewSequence(sessions []Session, limit IterationLimit) Sequence {
	return Sequence{sessions: sessions, limit: limit}
}

func (q Sequence) Len() int              { return len(q.sessions) }
func (q Sequence) Position() int         { return q.position }
func (q Sequence) Iteration() int        { return q.iteration }
func (q Sequence) Limit() IterationLimit { return q.limit }

// Current panics on an empty sequence; callers check IsRunFinished first.
func (q Sequence) Current() Session {
	return q.sessions[q.position]
}

func (q Sequence) Advance() Sequence {
	next := q
	switch {
	case q.position < len(q.sessions)-1:
		next.position++
	case !q.limit.Bounded:
		next.position = 0
	case q.iteration < q.limit.Count-1:
		next.position = 0
		next.iteration++
	}
	return next
}

func (q Sequence) Retreat() Sequence {
	prev := q
	switch {
	case q.position > 0:
		prev.position--
	case len(q.sessions) == 0:
	case !q.limit.Bounded:
		prev.position = len(q.sessions) - 1
	case q.iteration > 0:
		prev.position = len(q.sessions) - 1
		prev.iteration--
	}
	return prev
}

// Jump does not validate index; callers resolve it through Config.Index.
func (q Sequence) Jump(index int) Sequence {
	jumped := q
	jumped.position = index
	return jumped
}

func (q Sequence) WithIteration(iteration int) Sequence {
	out := q
	out.iteration = iteration
	return out
}

func (q Sequence) IsFirst() bool {
	return q.limit.Bounded && q.position == 0 && q.iteration == 0
}

func (q Sequence) IsLast() bool {
	return q.limit.Bounded &&
		q.position == len(q.sessions)-1 &&
		q.iteration == q.limit.Count-1
}

func (q Sequence) IsRunFinished() bool {
	return len(q.sessions) == 0 || (q.limit.Bounded && q.limit.Count == 0)
}
