// Package wire is the envelope codec for the session management protocol:
// the tagged option-value union, the three session action payloads, and the
// generic action/result envelopes that carry them. The JSON layout mirrors
// the option-value oneof of the binary protocol one field per kind; exactly
// one alternative may be set, and an envelope with none set decodes to an
// error rather than a default value.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stevelorddremio/arrow/sessions"
)

var (
	// ErrUnsetValue indicates an option-value envelope with no alternative
	// set. The protocol has no "unset" value; this is a decode error.
	ErrUnsetValue = errors.New("unset session option value")
	// ErrAmbiguousValue indicates an option-value envelope with more than
	// one alternative set.
	ErrAmbiguousValue = errors.New("ambiguous session option value")
	// ErrUnknownAction indicates an action envelope whose type is not one
	// of the session action types.
	ErrUnknownAction = errors.New("unknown action type")
)

// Action type identifiers carried in the Action envelope.
const (
	ActionSetSessionOptions = "SetSessionOptions"
	ActionGetSessionOptions = "GetSessionOptions"
	ActionCloseSession      = "CloseSession"
)

// Action is the generic request envelope: an opaque action type and its
// encoded body.
type Action struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Result is the generic response envelope.
type Result struct {
	Body json.RawMessage `json:"body,omitempty"`
}

// Value wraps a sessions.OptionValue for wire encoding. The zero Value
// (nil V) cannot be encoded; decoding always yields a non-nil V or an
// error.
type Value struct {
	V sessions.OptionValue
}

// stringList matches the wire shape of the string-list alternative.
type stringList struct {
	Values []string `json:"values"`
}

// valueEnvelope is the oneof layout: exactly one pointer is non-nil.
type valueEnvelope struct {
	StringValue     *string     `json:"stringValue,omitempty"`
	BoolValue       *bool       `json:"boolValue,omitempty"`
	Int32Value      *int32      `json:"int32Value,omitempty"`
	Int64Value      *int64      `json:"int64Value,omitempty"`
	FloatValue      *float32    `json:"floatValue,omitempty"`
	DoubleValue     *float64    `json:"doubleValue,omitempty"`
	StringListValue *stringList `json:"stringListValue,omitempty"`
}

var (
	_ json.Marshaler   = Value{}
	_ json.Unmarshaler = (*Value)(nil)
)

// MarshalJSON encodes the active alternative. The switch is exhaustive over
// the closed kind set; a foreign OptionValue implementation cannot exist.
func (v Value) MarshalJSON() ([]byte, error) {
	var env valueEnvelope
	switch val := v.V.(type) {
	case sessions.StringValue:
		s := string(val)
		env.StringValue = &s
	case sessions.BoolValue:
		b := bool(val)
		env.BoolValue = &b
	case sessions.Int32Value:
		i := int32(val)
		env.Int32Value = &i
	case sessions.Int64Value:
		i := int64(val)
		env.Int64Value = &i
	case sessions.Float32Value:
		f := float32(val)
		env.FloatValue = &f
	case sessions.Float64Value:
		f := float64(val)
		env.DoubleValue = &f
	case sessions.StringListValue:
		vals := make([]string, len(val))
		copy(vals, val)
		env.StringListValue = &stringList{Values: vals}
	default:
		return nil, fmt.Errorf("%w: cannot encode %T", ErrUnsetValue, v.V)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes an option-value envelope, rejecting unset and
// ambiguous alternatives.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var decoded sessions.OptionValue
	set := 0
	if env.StringValue != nil {
		decoded = sessions.StringValue(*env.StringValue)
		set++
	}
	if env.BoolValue != nil {
		decoded = sessions.BoolValue(*env.BoolValue)
		set++
	}
	if env.Int32Value != nil {
		decoded = sessions.Int32Value(*env.Int32Value)
		set++
	}
	if env.Int64Value != nil {
		decoded = sessions.Int64Value(*env.Int64Value)
		set++
	}
	if env.FloatValue != nil {
		decoded = sessions.Float32Value(*env.FloatValue)
		set++
	}
	if env.DoubleValue != nil {
		decoded = sessions.Float64Value(*env.DoubleValue)
		set++
	}
	if env.StringListValue != nil {
		list := make(sessions.StringListValue, len(env.StringListValue.Values))
		copy(list, env.StringListValue.Values)
		decoded = list
		set++
	}

	switch set {
	case 0:
		return ErrUnsetValue
	case 1:
		v.V = decoded
		return nil
	default:
		return ErrAmbiguousValue
	}
}

// SetOptionStatus is the per-key outcome of a SetSessionOptions request.
// Failures on some keys never block success on others.
type SetOptionStatus string

const (
	SetOptionUnspecified  SetOptionStatus = "unspecified"
	SetOptionOK           SetOptionStatus = "ok"
	SetOptionInvalidName  SetOptionStatus = "invalid_name"
	SetOptionInvalidValue SetOptionStatus = "invalid_value"
	SetOptionError        SetOptionStatus = "error"
)

// SetSessionOptionsRequest carries the option assignments to apply.
type SetSessionOptionsRequest struct {
	SessionOptions map[string]Value `json:"sessionOptions"`
}

// SetSessionOptionsResult reports one status per requested option name.
type SetSessionOptionsResult struct {
	Statuses map[string]SetOptionStatus `json:"statuses"`
}

// GetSessionOptionsRequest asks for the full option map of the call's
// session. It has no fields.
type GetSessionOptionsRequest struct{}

// GetSessionOptionsResult carries the session's option snapshot.
type GetSessionOptionsResult struct {
	SessionOptions map[string]Value `json:"sessionOptions"`
}

// CloseSessionRequest asks the server to discard the call's session. It has
// no fields.
type CloseSessionRequest struct{}

// CloseSessionStatus is the outcome of a CloseSession request.
type CloseSessionStatus string

const (
	CloseSessionUnspecified  CloseSessionStatus = "unspecified"
	CloseSessionClosed       CloseSessionStatus = "closed"
	CloseSessionClosing      CloseSessionStatus = "closing"
	CloseSessionNotCloseable CloseSessionStatus = "not_closeable"
)

// CloseSessionResult reports whether the session was discarded.
type CloseSessionResult struct {
	Status CloseSessionStatus `json:"status"`
}

// OptionsToWire converts a session option snapshot to its wire form.
func OptionsToWire(opts map[string]sessions.OptionValue) map[string]Value {
	out := make(map[string]Value, len(opts))
	for k, v := range opts {
		out[k] = Value{V: v}
	}
	return out
}
