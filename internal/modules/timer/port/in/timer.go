package in

import (
	"context"

	"uair/internal/modules/timer/dto"
)

type Usecase interface {
	RunDaemon(ctx context.Context, input dto.DaemonInput) error

	Send(ctx context.Context, input dto.CommandInput) error
	Fetch(ctx context.Context, input dto.FetchInput) (string, error)
	Listen(ctx context.Context, input dto.ListenInput, onRecord func(string) error) error

	History(ctx context.Context, limit int) ([]dto.CompletionOutput, error)
}
