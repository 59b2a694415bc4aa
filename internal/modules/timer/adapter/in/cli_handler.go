package in

import (
	"context"

	"uair/internal/modules/timer/dto"
	timerin "uair/internal/modules/timer/port/in"
)

type CLIHandler struct {
	usecase timerin.Usecase
}

func NewCLIHandler(usecase timerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) RunDaemon(ctx context.Context, input dto.DaemonInput) error {
	return h.usecase.RunDaemon(ctx, input)
}

func (h CLIHandler) Send(ctx context.Context, input dto.CommandInput) error {
	return h.usecase.Send(ctx, input)
}

func (h CLIHandler) Fetch(ctx context.Context, input dto.FetchInput) (string, error) {
	return h.usecase.Fetch(ctx, input)
}

func (h CLIHandler) Listen(ctx context.Context, input dto.ListenInput, onRecord func(string) error) error {
	return h.usecase.Listen(ctx, input, onRecord)
}

func (h CLIHandler) History(ctx context.Context, limit int) ([]dto.CompletionOutput, error) {
	return h.usecase.History(ctx, limit)
}
