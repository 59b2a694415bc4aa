package usecase

import (
	"context"
	"fmt"
	"strings"

	"uair/internal/modules/timer/domain"
	"uair/internal/modules/timer/dto"
	timerin "uair/internal/modules/timer/port/in"
	"uair/internal/modules/timer/service"
	apperrors "uair/internal/platform/errors"
)

type servicePort interface {
	RunDaemon(ctx context.Context, opts service.DaemonOptions) error
	Send(ctx context.Context, socketPath string, cmd domain.Command) error
	Fetch(ctx context.Context, socketPath, format string) (string, error)
	Listen(ctx context.Context, socketPath string, cmd domain.Listen, onRecord func(string) error) error
	History(ctx context.Context, limit int) ([]domain.Completion, error)
}

type Interactor struct {
	svc servicePort
}

func NewInteractor(svc servicePort) timerin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) RunDaemon(ctx context.Context, input dto.DaemonInput) error {
	return i.svc.RunDaemon(ctx, service.DaemonOptions{
		ConfigPath:   input.ConfigPath,
		SocketPath:   input.SocketPath,
		Quiet:        input.Quiet,
		TickInterval: input.TickInterval,
	})
}

func (i *Interactor) Send(ctx context.Context, input dto.CommandInput) error {
	cmd, err := parseCommand(input.Name, input.Argument)
	if err != nil {
		return err
	}
	return i.svc.Send(ctx, input.SocketPath, cmd)
}

func (i *Interactor) Fetch(ctx context.Context, input dto.FetchInput) (string, error) {
	return i.svc.Fetch(ctx, input.SocketPath, input.Format)
}

func (i *Interactor) Listen(ctx context.Context, input dto.ListenInput, onRecord func(string) error) error {
	if onRecord == nil {
		return fmt.Errorf("%w: listen needs a record handler", apperrors.ErrInvalidInput)
	}
	cmd := domain.Listen{Override: input.Override, HasOverride: input.HasOverride}
	return i.svc.Listen(ctx, input.SocketPath, cmd, onRecord)
}

func (i *Interactor) History(ctx context.Context, limit int) ([]dto.CompletionOutput, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", apperrors.ErrInvalidInput)
	}
	items, err := i.svc.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CompletionOutput, 0, len(items))
	for _, item := range items {
		out = append(out, dto.CompletionOutput{
			RunID:      item.RunID,
			SessionID:  item.SessionID,
			Name:       item.Name,
			Duration:   item.Duration,
			Forced:     item.Forced,
			FinishedAt: item.FinishedAt,
		})
	}
	return out, nil
}

func parseCommand(name, argument string) (domain.Command, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pause":
		return domain.Pause{}, nil
	case "resume":
		return domain.Resume{}, nil
	case "toggle":
		return domain.Toggle{}, nil
	case "next":
		return domain.Next{}, nil
	case "prev":
		return domain.Prev{}, nil
	case "finish":
		return domain.Finish{}, nil
	case "reload":
		return domain.Reload{}, nil
	case "jump":
		if strings.TrimSpace(argument) == "" {
			return nil, fmt.Errorf("%w: jump needs a session id", apperrors.ErrInvalidInput)
		}
		return domain.Jump{ID: argument}, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", apperrors.ErrInvalidInput, name)
	}
}
