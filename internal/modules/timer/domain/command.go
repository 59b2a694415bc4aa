package domain

import "fmt"

type Kind uint8

const (
	KindPause Kind = iota + 1
	KindResume
	KindToggle
	KindNext
	KindPrev
	KindFinish
	KindJump
	KindReload
	KindFetch
	KindListen
)

func (k Kind) String() string {
	switch k {
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindToggle:
		return "toggle"
	case KindNext:
		return "next"
	case KindPrev:
		return "prev"
	case KindFinish:
		return "finish"
	case KindJump:
		return "jump"
	case KindReload:
		return "reload"
	case KindFetch:
		return "fetch"
	case KindListen:
		return "listen"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is a control request. The set of implementations is closed.
type Command interface {
	Kind() Kind
	command()
}

type (
	Pause  struct{}
	Resume struct{}
	Toggle struct{}
	Next   struct{}
	Prev   struct{}
	Finish struct{}
	Reload struct{}
	Jump   struct{ ID string }
	Fetch  struct{ Format string }
	Listen struct {
		Override    string
		HasOverride bool
	}
)

func (Pause) Kind() Kind  { return KindPause }
func (Resume) Kind() Kind { return KindResume }
func (Toggle) Kind() Kind { return KindToggle }
func (Next) Kind() Kind   { return KindNext }
func (Prev) Kind() Kind   { return KindPrev }
func (Finish) Kind() Kind { return KindFinish }
func (Reload) Kind() Kind { return KindReload }
func (Jump) Kind() Kind   { return KindJump }
func (Fetch) Kind() Kind  { return KindFetch }
func (Listen) Kind() Kind { return KindListen }

func (Pause) command()  {}
func (Resume) command() {}
func (Toggle) command() {}
func (Next) command()   {}
func (Prev) command()   {}
func (Finish) command() {}
func (Reload) command() {}
func (Jump) command()   {}
func (Fetch) command()  {}
func (Listen) command() {}

// KeepsConnection reports whether the daemon answers on the connection that carried the command.
func KeepsConnection(c Command) bool {
	switch c.(type) {
	case Fetch, Listen:
		return true
	default:
		return false
	}
}
