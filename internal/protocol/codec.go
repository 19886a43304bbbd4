package protocol

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// api mirrors encoding/json behaviour (HTML escaping, sorted map keys) so
// the sandbox sees stable, injection-safe output.
var api = sonic.ConfigStd

const (
	scriptPrefix = "window.postMessage("
	scriptSuffix = `, "*");`
)

// jsLineTerminators are valid inside JSON strings but terminate a line in
// older script engines.
var jsLineTerminators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// Encode serializes a message to its wire form.
func Encode(m Message) ([]byte, error) {
	if m.Type == "" {
		return nil, ErrEmptyType
	}
	data, err := api.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a wire message. Anything that is not a JSON object with a
// non-empty string "type" is rejected with ErrMalformed.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := api.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, ErrEmptyType)
	}
	return m, nil
}

// DecodeValue converts a value exported from the script realm (a string
// holding JSON, or a decoded object) into a Message.
func DecodeValue(v any) (Message, error) {
	switch data := v.(type) {
	case nil:
		return Message{}, fmt.Errorf("%w: nil value", ErrMalformed)
	case string:
		return Decode([]byte(data))
	case []byte:
		return Decode(data)
	default:
		raw, err := api.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Decode(raw)
	}
}

// Script renders the host to sandbox instruction that delivers m to the
// sandbox's window message listeners.
func Script(m Message) (string, error) {
	data, err := Encode(m)
	if err != nil {
		return "", err
	}
	return scriptPrefix + jsLiteral(data) + scriptSuffix, nil
}

// ParseScript recovers the message carried by a script rendered by Script.
func ParseScript(script string) (Message, error) {
	body, ok := strings.CutPrefix(script, scriptPrefix)
	if ok {
		body, ok = strings.CutSuffix(body, scriptSuffix)
	}
	if !ok {
		return Message{}, fmt.Errorf("%w: not a message script", ErrMalformed)
	}
	return Decode([]byte(body))
}

// jsLiteral makes JSON output safe to splice into script source.
func jsLiteral(data []byte) string {
	return jsLineTerminators.Replace(string(data))
}

// Quote renders s as a script string literal.
func Quote(s string) string {
	data, err := api.Marshal(s)
	if err != nil {
		// strings always marshal
		return `""`
	}
	return jsLiteral(data)
}

// Marshal encodes v with the wire codec.
func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

// Unmarshal decodes data with the wire codec.
func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }
