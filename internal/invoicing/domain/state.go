// Package domain holds the voucher tracking model and the pure policies that
// drive creation and monitoring: state normalization, completion, termination
// and reconciliation. Nothing in this package performs I/O.
package domain

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// State is the canonical authorization state of a voucher (estado_sri).
type State string

const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateAuthorized State = "AUTHORIZED"
	StateRejected   State = "REJECTED"
	StateError      State = "ERROR"
)

var knownStates = map[State]struct{}{
	StatePending:    {},
	StateProcessing: {},
	StateAuthorized: {},
	StateRejected:   {},
	StateError:      {},
}

// remoteSynonyms maps folded remote wording to canonical states. Processing
// synonyms fold into PENDING; PROCESSING is only ever set locally.
var remoteSynonyms = map[string]State{
	"autorizado": StateAuthorized,
	"authorized": StateAuthorized,
	"aprobado":   StateAuthorized,
	"approved":   StateAuthorized,

	"rechazado": StateRejected,
	"rejected":  StateRejected,
	"denied":    StateRejected,

	"pendiente":  StatePending,
	"pending":    StatePending,
	"processing": StatePending,
	"procesando": StatePending,
	"en_proceso": StatePending,

	"error":   StateError,
	"failed":  StateError,
	"fallido": StateError,
}

// Normalize maps free-form remote status text to a canonical state. It is
// total: unrecognized wording means "not decided yet" and yields PENDING.
func Normalize(raw string) State {
	if state, ok := remoteSynonyms[fold(raw)]; ok {
		return state
	}
	return StatePending
}

// ParseState parses a stored canonical value. Unlike Normalize it rejects
// anything outside the closed set.
func ParseState(value string) (State, error) {
	state := State(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := knownStates[state]; !ok {
		return "", fmt.Errorf("unknown voucher state %q", value)
	}
	return state, nil
}

// Equal compares a canonical state against raw text, trimmed and case-insensitive.
func (s State) Equal(other string) bool {
	return strings.EqualFold(strings.TrimSpace(other), string(s))
}

func (s State) String() string { return string(s) }

// fold lower-cases, strips accents and unifies separators so that
// "En Proceso", "en-proceso" and "EN_PROCESO" compare equal.
func fold(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, raw)
	if err != nil {
		stripped = raw
	}
	stripped = strings.ToLower(strings.TrimSpace(stripped))
	return strings.Join(strings.FieldsFunc(stripped, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
