package stepconf

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

const (
	tagName         = "env"
	secretMask      = "*****"
	unsetValue      = "<unset>"
	listSeparator   = "|"
	requiredOption  = "required"
	valueOptsPrefix = "opt["
)

// ErrNotStructPtr indicates a type is not a pointer to a struct.
var ErrNotStructPtr = errors.New("must be a pointer to a struct")

// ErrRequired indicates a required variable is not present.
var ErrRequired = errors.New("required variable is not present")

// ErrInvalidBool indicates a value is not a valid bool.
var ErrInvalidBool = errors.New("value is not a valid bool (yes/no/true/false)")

// ErrNotInValueOptions indicates a value is not in the accepted value options.
var ErrNotInValueOptions = errors.New("value is not in value options")

// EnvGetter is the read side of an env.Repository.
type EnvGetter interface {
	Get(key string) string
}

// Secret is a string input whose value never shows up in printed configuration.
type Secret string

// String masks the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return secretMask
}

// InputParser fills step input structs from an env source.
type InputParser interface {
	Parse(input interface{}) error
}

type envInputParser struct {
	envGetter EnvGetter
}

// NewInputParser returns an InputParser reading from envGetter.
func NewInputParser(envGetter EnvGetter) InputParser {
	return envInputParser{envGetter: envGetter}
}

// Parse ...
func (p envInputParser) Parse(input interface{}) error {
	return parse(input, p.envGetter)
}

func parse(conf interface{}, envGetter EnvGetter) error {
	c := reflect.ValueOf(conf)
	if c.Kind() != reflect.Ptr {
		return ErrNotStructPtr
	}
	c = c.Elem()
	if c.Kind() != reflect.Struct {
		return ErrNotStructPtr
	}
	t := c.Type()

	var errs []string
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup(tagName)
		if !ok {
			continue
		}
		key, constraint := parseTag(tag)
		value := envGetter.Get(key)

		if err := validateConstraint(value, constraint); err != nil {
			errs = append(errs, fmt.Sprintf("- %s: %s", key, err))
			continue
		}
		if err := setField(c.Field(i), value); err != nil {
			errs = append(errs, fmt.Sprintf("- %s: %s", key, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to parse config:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func parseTag(tag string) (string, string) {
	key, constraint, _ := strings.Cut(tag, ",")
	return key, constraint
}

func validateConstraint(value, constraint string) error {
	switch {
	case constraint == "":
		return nil
	case constraint == requiredOption:
		if value == "" {
			return ErrRequired
		}
		return nil
	case strings.HasPrefix(constraint, valueOptsPrefix) && strings.HasSuffix(constraint, "]"):
		for _, opt := range valueOptions(constraint) {
			if opt == value {
				return nil
			}
		}
		return ErrNotInValueOptions
	default:
		return fmt.Errorf("invalid constraint (%s)", constraint)
	}
}

// valueOptions splits `opt[a,b,'c,d']`; quoted options may contain commas.
func valueOptions(constraint string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(constraint, valueOptsPrefix), "]")

	var opts []string
	var current strings.Builder
	quoted := false
	for _, r := range inner {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ',' && !quoted:
			opts = append(opts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(opts, current.String())
}

func setField(field reflect.Value, value string) error {
	if value == "" {
		return nil
	}

	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		if err := setField(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := parseBool(value)
		if err != nil {
			return ErrInvalidBool
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("can't convert %q to int: %w", value, err)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("can't convert %q to float: %w", value, err)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		field.Set(reflect.ValueOf(strings.Split(value, listSeparator)))
	default:
		return fmt.Errorf("type is not supported (%s)", field.Kind())
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// Print writes the parsed configuration to the standard output, secrets masked.
func Print(config interface{}) {
	fmt.Fprint(os.Stdout, toString(config))
}

func toString(config interface{}) string {
	v := reflect.ValueOf(config)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\x1b[34;1m%s:\n\x1b[0m", capitalize(t.Name())))
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		if tag, ok := t.Field(i).Tag.Lookup(tagName); ok {
			name, _ = parseTag(tag)
		}

		value := valueString(v.Field(i))
		if isZero(v.Field(i)) {
			value = unsetValue
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", name, value))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isZero(v reflect.Value) bool {
	if v.Kind() == reflect.Ptr {
		return v.IsNil()
	}
	return v.IsZero()
}

func valueString(v reflect.Value) string {
	if v.Kind() != reflect.Ptr {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%v", v.Interface())
	}

	if !v.IsNil() {
		return fmt.Sprintf("%v", v.Elem().Interface())
	}

	return ""
}
