package abi

import (
	"errors"
	"fmt"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidSignature = errors.New("invalid abi signature")
)

type ABI struct {
	ethabi.ABI
}

// ParseSignatures builds an ABI from human-readable declarations such as
// "event Transfer(address indexed from, address indexed to, uint256 value)"
// or "function balanceOf(address owner) view returns (uint256)".
// Tuple types are not supported.
func ParseSignatures(signatures ...string) (*ABI, error) {
	res := &ABI{ethabi.ABI{
		Methods: make(map[string]ethabi.Method),
		Events:  make(map[string]ethabi.Event),
	}}
	for _, sig := range signatures {
		if err := res.add(sig); err != nil {
			return nil, fmt.Errorf("can't parse %q: %w", sig, err)
		}
	}
	return res, nil
}

func MustParseSignatures(signatures ...string) *ABI {
	res, err := ParseSignatures(signatures...)
	if err != nil {
		panic(err)
	}
	return res
}

func (a *ABI) add(sig string) error {
	kind, rest, ok := strings.Cut(strings.TrimSpace(sig), " ")
	if !ok {
		return ErrInvalidSignature
	}
	open := strings.Index(rest, "(")
	if open <= 0 {
		return ErrInvalidSignature
	}
	name := strings.TrimSpace(rest[:open])
	closing := strings.Index(rest, ")")
	if closing < open {
		return ErrInvalidSignature
	}
	inputs, err := parseArguments(rest[open+1:closing], kind == "event")
	if err != nil {
		return err
	}
	modifiers := strings.Fields(rest[closing+1:])

	switch kind {
	case "event":
		anonymous := false
		for _, mod := range modifiers {
			if mod != "anonymous" {
				return fmt.Errorf("unexpected event modifier %q: %w", mod, ErrInvalidSignature)
			}
			anonymous = true
		}
		key := ethabi.ResolveNameConflict(name, func(s string) bool { _, ok := a.Events[s]; return ok })
		a.Events[key] = ethabi.NewEvent(key, name, anonymous, inputs)
		return nil
	case "function":
		mutability := "nonpayable"
		var outputs ethabi.Arguments
		tail := rest[closing+1:]
		if idx := strings.Index(tail, "returns"); idx >= 0 {
			modifiers = strings.Fields(tail[:idx])
			out := strings.TrimSpace(tail[idx+len("returns"):])
			if !strings.HasPrefix(out, "(") || !strings.HasSuffix(out, ")") {
				return fmt.Errorf("malformed returns clause: %w", ErrInvalidSignature)
			}
			outputs, err = parseArguments(out[1:len(out)-1], false)
			if err != nil {
				return err
			}
		}
		for _, mod := range modifiers {
			switch mod {
			case "view", "pure", "payable", "nonpayable":
				mutability = mod
			case "external", "public":
			default:
				return fmt.Errorf("unexpected function modifier %q: %w", mod, ErrInvalidSignature)
			}
		}
		isConst := mutability == "view" || mutability == "pure"
		key := ethabi.ResolveNameConflict(name, func(s string) bool { _, ok := a.Methods[s]; return ok })
		a.Methods[key] = ethabi.NewMethod(key, name, ethabi.Function, mutability, isConst, mutability == "payable", inputs, outputs)
		return nil
	default:
		return fmt.Errorf("unsupported declaration %q: %w", kind, ErrInvalidSignature)
	}
}

func parseArguments(list string, allowIndexed bool) (ethabi.Arguments, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	if strings.ContainsAny(list, "()") {
		return nil, fmt.Errorf("tuple arguments are not supported: %w", ErrInvalidSignature)
	}
	parts := strings.Split(list, ",")
	args := make(ethabi.Arguments, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 3 {
			return nil, fmt.Errorf("malformed argument %q: %w", part, ErrInvalidSignature)
		}
		typ, err := ethabi.NewType(fields[0], "", nil)
		if err != nil {
			return nil, fmt.Errorf("unknown type %q: %w", fields[0], err)
		}
		arg := ethabi.Argument{Type: typ}
		fields = fields[1:]
		if len(fields) > 0 && fields[0] == "indexed" {
			if !allowIndexed {
				return nil, fmt.Errorf("indexed argument outside of event: %w", ErrInvalidSignature)
			}
			arg.Indexed = true
			fields = fields[1:]
		}
		switch len(fields) {
		case 0:
		case 1:
			arg.Name = fields[0]
		default:
			return nil, fmt.Errorf("malformed argument %q: %w", part, ErrInvalidSignature)
		}
		args = append(args, arg)
	}
	return args, nil
}

func (a *ABI) FindMatchingEventABI(topics []common.Hash) *ethabi.Event {
	if len(topics) == 0 {
		return nil
	}
	for _, e := range a.Events {
		if e.ID == topics[0] && len(Indexed(e.Inputs)) == len(topics)-1 {
			event := e
			return &event
		}
	}
	return nil
}

// DecodeLog returns a nil event for logs that don't belong to this ABI.
func (a *ABI) DecodeLog(log *types.Log) (*ethabi.Event, map[string]interface{}, error) {
	if len(log.Topics) == 0 {
		return nil, nil, fmt.Errorf("cannot process event without topics: %w", ErrInvalidEvent)
	}
	event := a.FindMatchingEventABI(log.Topics)
	if event == nil {
		return nil, nil, nil
	}
	values, err := DecodeEventLog(event, log.Topics, log.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("can't decode event log: %w", err)
	}
	return event, values, nil
}

func (a *ABI) ParseLog(log *types.Log) (string, map[string]interface{}, error) {
	event, values, err := a.DecodeLog(log)
	if err != nil || event == nil {
		return "", nil, err
	}
	return event.String(), values, nil
}

func Indexed(args ethabi.Arguments) ethabi.Arguments {
	var indexed ethabi.Arguments
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func DecodeEventLog(event *ethabi.Event, topics []common.Hash, data []byte) (map[string]interface{}, error) {
	indexed := Indexed(event.Inputs)
	values := make(map[string]interface{})
	if len(indexed) < len(event.Inputs) {
		if err := event.Inputs.UnpackIntoMap(values, data); err != nil {
			return nil, fmt.Errorf("can't unpack data: %w", err)
		}
	}
	if err := ethabi.ParseTopicsIntoMap(values, indexed, topics[1:]); err != nil {
		return nil, fmt.Errorf("can't unpack topics: %w", err)
	}
	return values, nil
}
