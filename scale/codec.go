// Package scale implements the command grammar of a weighing scale and the typed
// operations of one connected scale.
//
// Commands and replies are ASCII tokens joined by '_' and terminated by CRLF. The
// first token of a reply identifies the command family, the second one is the status
// and the remaining tokens are parameters, e.g. "S_S_12.3400_g".
package scale

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	// Delimiter separates the tokens of commands and replies.
	Delimiter = "_"
	// Terminator ends every command and reply.
	Terminator = "\r\n"
)

// Command verbs.
const (
	VerbDisplay    = "D"
	VerbTare       = "T"
	VerbReset      = "R"
	VerbReadNow    = "SI"
	VerbReadStable = "S"
)

// Reply statuses.
const (
	StatusAck          = "A" // command executed
	StatusStable       = "S" // stable value, or tare executed
	StatusDynamic      = "D" // value not stable yet
	StatusInvalid      = "I" // cannot execute now, e.g. scale not stable
	StatusLogicalError = "L" // invalid parameters
)

// EncodeCommand builds the wire text of a command, terminator included.
func EncodeCommand(verb string, args ...string) string {
	var sb strings.Builder
	sb.WriteString(verb)
	for _, arg := range args {
		sb.WriteString(Delimiter)
		sb.WriteString(arg)
	}
	sb.WriteString(Terminator)

	return sb.String()
}

// Reply is a decoded device reply. Empty ID and Status stand for an empty or
// malformed reply.
type Reply struct {
	ID     string
	Status string
	Params []string
}

// DecodeReply decodes the raw text of a reply.
func DecodeReply(raw string) Reply {
	raw = strings.TrimRightFunc(raw, unicode.IsSpace)
	if raw == "" {
		return Reply{Params: []string{}}
	}

	tokens := strings.Split(raw, Delimiter)
	reply := Reply{ID: tokens[0], Params: []string{}}
	if len(tokens) > 1 {
		reply.Status = tokens[1]
	}
	if len(tokens) > 2 {
		reply.Params = tokens[2:]
	}

	return reply
}

// IsEmpty reports whether the reply carried no tokens.
func (r Reply) IsEmpty() bool {
	return r.ID == "" && r.Status == "" && len(r.Params) == 0
}

// Is reports whether the reply has the given id and one of the given statuses.
func (r Reply) Is(id string, statuses ...string) bool {
	if r.ID != id {
		return false
	}

	for _, status := range statuses {
		if r.Status == status {
			return true
		}
	}

	return false
}

// String returns the wire form of the reply without terminator.
func (r Reply) String() string {
	tokens := make([]string, 0, 2+len(r.Params))
	tokens = append(tokens, r.ID)
	if r.Status != "" || len(r.Params) > 0 {
		tokens = append(tokens, r.Status)
	}
	tokens = append(tokens, r.Params...)

	return strings.Join(tokens, Delimiter)
}

// Reading is a weight value reported by a scale.
type Reading struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	Stable bool    `json:"stable"`
}

// reading extracts the weight of a reply. It returns nil when the first parameter is
// missing or not a number.
func (r Reply) reading() *Reading {
	if len(r.Params) == 0 {
		return nil
	}

	if !isDecimal(r.Params[0]) {
		return nil
	}

	value, err := strconv.ParseFloat(r.Params[0], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}

	reading := &Reading{Value: value, Stable: r.Status == StatusStable}
	if len(r.Params) > 1 {
		reading.Unit = r.Params[1]
	}

	return reading
}

// isDecimal reports whether token only holds characters of a decimal number, which
// excludes NaN, Inf and hex floats accepted by strconv.ParseFloat.
func isDecimal(token string) bool {
	if token == "" {
		return false
	}

	for _, ch := range token {
		if !strings.ContainsRune("0123456789+-.eE", ch) {
			return false
		}
	}

	return true
}
