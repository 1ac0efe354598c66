// Package chat defines the chat message value, its wire encoding, the
// timestamp key scheme and the derivation of an ordered log from a record.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PlaceholderSender is the identity used until real attribution exists.
const PlaceholderSender = "admin"

var (
	// ErrMalformed marks a stored value that is not a valid chat message.
	ErrMalformed = errors.New("malformed chat message")
	// ErrInvalid marks a message that cannot be encoded.
	ErrInvalid = errors.New("invalid chat message")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Message is one chat entry. The JSON names are the short forms stored in
// the record.
type Message struct {
	Sender string `json:"u" validate:"required,nonblank"`
	Body   string `json:"m" validate:"required,nonblank"`
}

// Validate checks both fields are present and carry visible content.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	return nil
}

// Encode serializes m for storage in a record value.
func Encode(m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return string(data), nil
}

// Decoded is the per-entry decode result. Exactly one of Message or Err is
// meaningful.
type Decoded struct {
	Message Message
	Err     error
}

// OK reports whether decoding succeeded.
func (d Decoded) OK() bool {
	return d.Err == nil
}

// wireMessage accepts both the short field names and the long legacy ones.
// Anything else in the object is ignored.
type wireMessage struct {
	U      *string `json:"u"`
	M      *string `json:"m"`
	Sender *string `json:"sender"`
	Body   *string `json:"body"`
}

// Decode parses a stored value. It never panics; structural or schema
// problems come back as an Err wrapping ErrMalformed.
func Decode(raw string) Decoded {
	var w wireMessage
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		normalized, ok := normalizeLoose(raw)
		if !ok {
			return Decoded{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
		w = wireMessage{}
		if err := json.Unmarshal([]byte(normalized), &w); err != nil {
			return Decoded{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
	}
	msg := Message{
		Sender: firstOf(w.U, w.Sender),
		Body:   firstOf(w.M, w.Body),
	}
	if err := msg.Validate(); err != nil {
		return Decoded{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return Decoded{Message: msg}
}

func firstOf(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// normalizeLoose rewrites a JavaScript-style object literal
// ({sender:'a',body:'hi'}) into JSON: bare keys get quoted and single
// quoted strings become double quoted ones.
func normalizeLoose(raw string) (string, bool) {
	src := strings.TrimSpace(raw)
	if !strings.HasPrefix(src, "{") || !strings.HasSuffix(src, "}") {
		return "", false
	}
	var b strings.Builder
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			lit, next, ok := readQuoted(runes, i)
			if !ok {
				return "", false
			}
			quoted, err := json.Marshal(lit)
			if err != nil {
				return "", false
			}
			b.Write(quoted)
			i = next
		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			switch word {
			case "true", "false", "null":
				b.WriteString(word)
			default:
				b.WriteString(`"` + word + `"`)
			}
			i = j - 1
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}

// readQuoted reads the literal starting at runes[start] and returns its
// unescaped contents and the index of the closing quote.
func readQuoted(runes []rune, start int) (string, int, bool) {
	quote := runes[start]
	var b strings.Builder
	for i := start + 1; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			i++
			switch runes[i] {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				b.WriteRune(runes[i])
			}
			continue
		}
		if r == quote {
			return b.String(), i, true
		}
		b.WriteRune(r)
	}
	return "", 0, false
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
