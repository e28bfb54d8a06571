package sessions

// OptionValue is the closed set of value kinds a session option may hold:
// string, bool, int32, int64, float32, float64, or an ordered list of
// strings. The optionValue method is unexported so only the seven types in
// this package implement the interface; adding a kind is a compile-visible
// change for every switch over the set.
//
// There is no "unset" alternative. An absent option is modeled by the ok
// result of Session.GetOption, and an unset wire variant is a decode error
// in package wire, never a value.
type OptionValue interface {
	optionValue()
}

type (
	// StringValue holds a UTF-8 string option.
	StringValue string
	// BoolValue holds a boolean option.
	BoolValue bool
	// Int32Value holds a 32-bit signed integer option.
	Int32Value int32
	// Int64Value holds a 64-bit signed integer option.
	Int64Value int64
	// Float32Value holds a 32-bit float option.
	Float32Value float32
	// Float64Value holds a 64-bit float option.
	Float64Value float64
	// StringListValue holds an ordered list of UTF-8 strings. An empty,
	// non-nil list is a legal value distinct from an absent option.
	StringListValue []string
)

func (StringValue) optionValue()     {}
func (BoolValue) optionValue()       {}
func (Int32Value) optionValue()      {}
func (Int64Value) optionValue()      {}
func (Float32Value) optionValue()    {}
func (Float64Value) optionValue()    {}
func (StringListValue) optionValue() {}
