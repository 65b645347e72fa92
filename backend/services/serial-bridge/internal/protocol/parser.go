package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("protocol: parse error")

// ParseError describes a malformed line under a recognized tag.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: %s in %q", e.Reason, e.Line)
}

// Is reports ErrParse as a match.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parser turns device lines into commands.
type Parser struct{}

// NewParser returns parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a single line. Lines with unknown tags yield Unrecognized and
// no error; malformed fields under a known tag yield a *ParseError.
func (p *Parser) Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)

	head, rest, _ := strings.Cut(line, ",")
	switch {
	case head == TagAddCards:
		return parseAddCards(line, rest)
	case head == TagAddData:
		return parseAddData(line, rest)
	case strings.HasPrefix(line, TagGet):
		id, err := parseID(line, strings.TrimPrefix(line, TagGet))
		if err != nil {
			return nil, err
		}
		return QueryCard{CardID: id}, nil
	case strings.HasPrefix(line, TagDelete):
		id, err := parseID(line, strings.TrimPrefix(line, TagDelete))
		if err != nil {
			return nil, err
		}
		return PurgeCard{CardID: id}, nil
	default:
		return Unrecognized{Line: line}, nil
	}
}

func parseAddCards(line, rest string) (Command, error) {
	f, err := splitFields(line, rest)
	if err != nil {
		return nil, err
	}
	id, err := f.id()
	if err != nil {
		return nil, err
	}
	cmd := UpsertCardFlags{CardID: id}
	if cmd.Pressure, err = f.flag(FieldPressure); err != nil {
		return nil, err
	}
	if cmd.Temperature, err = f.flag(FieldTemperature); err != nil {
		return nil, err
	}
	if cmd.Humidity, err = f.flag(FieldHumidity); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parseAddData(line, rest string) (Command, error) {
	f, err := splitFields(line, rest)
	if err != nil {
		return nil, err
	}
	id, err := f.id()
	if err != nil {
		return nil, err
	}
	cmd := InsertReading{CardID: id}
	if cmd.Pressure, err = f.measurement(FieldPressure); err != nil {
		return nil, err
	}
	if cmd.Temperature, err = f.measurement(FieldTemperature); err != nil {
		return nil, err
	}
	if cmd.Humidity, err = f.measurement(FieldHumidity); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parseID(line, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ParseError{Line: line, Reason: fmt.Sprintf("invalid card id %q", raw)}
	}
	return id, nil
}

type fields struct {
	line   string
	values map[string]string
}

// splitFields reads comma-separated key:value pairs. Only the first ':' splits
// key from value; a repeated key keeps its last value.
func splitFields(line, rest string) (fields, error) {
	f := fields{line: line, values: make(map[string]string)}
	for _, part := range strings.Split(rest, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return f, &ParseError{Line: line, Reason: fmt.Sprintf("field %q has no key", part)}
		}
		f.values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return f, nil
}

func (f fields) lookup(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", &ParseError{Line: f.line, Reason: fmt.Sprintf("missing field %q", key)}
	}
	return v, nil
}

func (f fields) id() (int64, error) {
	raw, err := f.lookup(FieldID)
	if err != nil {
		return 0, err
	}
	return parseID(f.line, raw)
}

// flag is true only for a case-insensitive TRUE. Anything else, empty
// included, is false.
func (f fields) flag(key string) (bool, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(raw, "TRUE"), nil
}

func (f fields) measurement(key string) (int32, error) {
	raw, err := f.lookup(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, &ParseError{Line: f.line, Reason: fmt.Sprintf("invalid %s value %q", key, raw)}
	}
	return int32(v), nil
}
