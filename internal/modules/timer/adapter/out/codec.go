package out

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"uair/internal/modules/timer/domain"
)

// Wire layout of a control command, protobuf compatible:
//
//	1: kind     varint
//	2: argument bytes   (jump id, fetch format, listen override; presence is significant)
const (
	fieldKind     protowire.Number = 1
	fieldArgument protowire.Number = 2

	maxCommandSize = 64 << 10
)

func EncodeCommand(cmd domain.Command) []byte {
	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(cmd.Kind()))
	switch c := cmd.(type) {
	case domain.Jump:
		b = appendArgument(b, c.ID)
	case domain.Fetch:
		b = appendArgument(b, c.Format)
	case domain.Listen:
		if c.HasOverride {
			b = appendArgument(b, c.Override)
		}
	}
	return b
}

func appendArgument(b []byte, arg string) []byte {
	b = protowire.AppendTag(b, fieldArgument, protowire.BytesType)
	return protowire.AppendString(b, arg)
}

func DecodeCommand(b []byte) (domain.Command, error) {
	if len(b) > maxCommandSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrMalformedCommand, len(b))
	}
	var (
		kind    uint64
		hasKind bool
		arg     string
		hasArg  bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCommand, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			kind, n = protowire.ConsumeVarint(b)
			hasKind = true
		case num == fieldArgument && typ == protowire.BytesType:
			arg, n = protowire.ConsumeString(b)
			hasArg = true
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCommand, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if !hasKind {
		return nil, fmt.Errorf("%w: missing kind", domain.ErrMalformedCommand)
	}
	if kind < uint64(domain.KindPause) || kind > uint64(domain.KindListen) {
		return nil, fmt.Errorf("%w: unknown kind %d", domain.ErrMalformedCommand, kind)
	}

	switch domain.Kind(kind) {
	case domain.KindPause:
		return domain.Pause{}, nil
	case domain.KindResume:
		return domain.Resume{}, nil
	case domain.KindToggle:
		return domain.Toggle{}, nil
	case domain.KindNext:
		return domain.Next{}, nil
	case domain.KindPrev:
		return domain.Prev{}, nil
	case domain.KindFinish:
		return domain.Finish{}, nil
	case domain.KindReload:
		return domain.Reload{}, nil
	case domain.KindJump:
		if !hasArg {
			return nil, fmt.Errorf("%w: jump without session id", domain.ErrMalformedCommand)
		}
		return domain.Jump{ID: arg}, nil
	case domain.KindFetch:
		if !hasArg {
			return nil, fmt.Errorf("%w: fetch without format", domain.ErrMalformedCommand)
		}
		return domain.Fetch{Format: arg}, nil
	case domain.KindListen:
		return domain.Listen{Override: arg, HasOverride: hasArg}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", domain.ErrMalformedCommand, kind)
	}
}
