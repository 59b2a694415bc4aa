package dto

import "time"

type DaemonInput struct {
	ConfigPath   string
	SocketPath   string
	Quiet        bool
	TickInterval time.Duration
}

// CommandInput names a fire-and-forget control command. Argument is only read
// by "jump".
type CommandInput struct {
	SocketPath string
	Name       string
	Argument   string
}

type FetchInput struct {
	SocketPath string
	Format     string
}

type ListenInput struct {
	SocketPath  string
	Override    string
	HasOverride bool
}

type CompletionOutput struct {
	RunID      string
	SessionID  string
	Name       string
	Duration   time.Duration
	Forced     bool
	FinishedAt time.Time
}
