// Package args makes command line flags of parsed values.
package args

// Flag holds a value parsed from a command line flag.
//
// It is a flag.Value, and also a pflag.Value of cobra commands.
type Flag[T interface{ String() string }] struct {
	value  T
	name   string
	parser func(string) (T, error)
	isSet  bool
}

func (f *Flag[T]) String() string {
	if f.isSet {
		return f.value.String()
	}
	return ""
}

func (f *Flag[T]) Set(s string) error {
	v, err := f.parser(s)
	if err != nil {
		return err
	}
	f.isSet = true
	f.value = v
	return nil
}

// Type names the value in usages.
func (f *Flag[T]) Type() string {
	return f.name
}

// Value is the parsed value, or zero value if not set.
func (f *Flag[T]) Value() T {
	return f.value
}

func (f *Flag[T]) IsSet() bool {
	return f.isSet
}

// Parser makes a Flag parsing values with parser.
func Parser[T interface{ String() string }](parser func(string) (T, error)) *Flag[T] {
	return Named("value", parser)
}

// Named is Parser with the name of the value shown in usages.
func Named[T interface{ String() string }](name string, parser func(string) (T, error)) *Flag[T] {
	return &Flag[T]{name: name, parser: parser}
}
