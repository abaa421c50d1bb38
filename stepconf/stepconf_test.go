package stepconf

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) Get(key string) string {
	return m[key]
}

var valid = mapEnv{
	"name":          "Example",
	"build_number":  "11",
	"is_update":     "yes",
	"items":         "item1|item2|item3",
	"password":      "pass1234",
	"empty":         "",
	"mandatory":     "present",
	"export_method": "dev",
	"emptyptr":      "",
	"ptr":           "test",
}

var invalid = mapEnv{
	"name":          "Invalid config",
	"build_number":  "notnumber",
	"is_update":     "notbool",
	"items":         "one,two,three",
	"password":      "pass1234",
	"export_method": "four",
}

type Config struct {
	Name         string   `env:"name"`
	BuildNumber  int      `env:"build_number"`
	IsUpdate     bool     `env:"is_update"`
	Items        []string `env:"items"`
	Password     Secret   `env:"password"`
	Empty        string   `env:"empty"`
	Mandatory    string   `env:"mandatory,required"`
	ExportMethod string   `env:"export_method,opt[dev,qa,prod]"`
	EmptyPtr     *string  `env:"emptyptr"`
	Ptr          *string  `env:"ptr"`
}

func TestParse(t *testing.T) {
	var c Config
	require.NoError(t, NewInputParser(valid).Parse(&c))

	assert.Equal(t, "Example", c.Name)
	assert.Equal(t, 11, c.BuildNumber)
	assert.True(t, c.IsUpdate)
	assert.Equal(t, []string{"item1", "item2", "item3"}, c.Items)
	assert.Equal(t, Secret("pass1234"), c.Password)
	assert.Equal(t, "", c.Empty)
	assert.Equal(t, "present", c.Mandatory)
	assert.Equal(t, "dev", c.ExportMethod)
	assert.Nil(t, c.EmptyPtr)
	require.NotNil(t, c.Ptr)
	assert.Equal(t, "test", *c.Ptr)
}

func TestNotPointer(t *testing.T) {
	var c Config
	assert.ErrorIs(t, NewInputParser(valid).Parse(c), ErrNotStructPtr)
}

func TestNotStruct(t *testing.T) {
	var basicType string
	assert.ErrorIs(t, NewInputParser(valid).Parse(&basicType), ErrNotStructPtr)
}

func TestInvalidEnvs(t *testing.T) {
	var c Config
	err := NewInputParser(invalid).Parse(&c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "- build_number:")
	assert.Contains(t, err.Error(), "- is_update:")
	assert.Contains(t, err.Error(), "- mandatory: "+ErrRequired.Error())
	assert.Contains(t, err.Error(), "- export_method: "+ErrNotInValueOptions.Error())
}

func TestUnknownConstraint(t *testing.T) {
	type config struct {
		Length string `env:"length,length"`
	}
	var c config
	assert.Error(t, NewInputParser(mapEnv{"length": "5"}).Parse(&c))
}

func TestRequired(t *testing.T) {
	type config struct {
		Required string `env:"required,required"`
	}
	var c config

	assert.Error(t, NewInputParser(mapEnv{}).Parse(&c))
	assert.NoError(t, NewInputParser(mapEnv{"required": "set"}).Parse(&c))
}

func TestValueOptionsWithComma(t *testing.T) {
	type config struct {
		Option string `env:"option,opt[opt1,opt2,'opt1,opt2']"`
	}
	var c config

	require.NoError(t, NewInputParser(mapEnv{"option": "opt1,opt2"}).Parse(&c))
	assert.Equal(t, "opt1,opt2", c.Option)

	assert.Error(t, NewInputParser(mapEnv{"option": ""}).Parse(&c))
}

func TestSecretString(t *testing.T) {
	assert.Equal(t, "*****", Secret("my-api-key").String())
	assert.Equal(t, "", Secret("").String())
	assert.Equal(t, "*****", fmt.Sprintf("%s", Secret("my-api-key")))
}

func Test_toString(t *testing.T) {
	type testConfig struct {
		SimpleString         string `env:"simple_string"`
		FieldWithoutEnvTag   string
		StringThatCanBeEmpty string `env:"string_that_can_be_empty"`
		IntThatCanBeEmpty    int    `env:"int_that_can_be_empty"`
		BoolThatCanBeEmpty   bool   `env:"bool_that_can_be_empty"`
		SensitiveInput       Secret `env:"sensitive_input"`
		ValueOptionInput     string `env:"value_option_input,opt[first,second,third]"`
		RequiredInput        string `env:"required_input,required"`
	}

	cfg := testConfig{
		SimpleString:       "simple value",
		FieldWithoutEnvTag: "This field doesn't have a struct tag",
		SensitiveInput:     "my secret",
		ValueOptionInput:   "second",
		RequiredInput:      "value",
	}

	expected := "\x1b[34;1mTestConfig:\n\x1b[0m" +
		"- simple_string: simple value\n" +
		"- FieldWithoutEnvTag: This field doesn't have a struct tag\n" +
		"- string_that_can_be_empty: <unset>\n" +
		"- int_that_can_be_empty: <unset>\n" +
		"- bool_that_can_be_empty: <unset>\n" +
		"- sensitive_input: *****\n" +
		"- value_option_input: second\n" +
		"- required_input: value\n"
	assert.Equal(t, expected, toString(cfg))
	assert.NotContains(t, toString(&cfg), "my secret")
}

func Test_valueString(t *testing.T) {
	var (
		s = "test"
		i = 99
		b = true
	)
	var (
		sNilPtr *string
		iNilPtr *int64
	)

	tests := []struct {
		name string
		v    reflect.Value
		want string
	}{
		{"string", reflect.ValueOf(s), "test"},
		{"string ptr", reflect.ValueOf(&s), "test"},
		{"string nil-ptr", reflect.ValueOf(sNilPtr), ""},
		{"int", reflect.ValueOf(i), "99"},
		{"int ptr", reflect.ValueOf(&i), "99"},
		{"int64 nil-ptr", reflect.ValueOf(iNilPtr), ""},
		{"bool", reflect.ValueOf(b), "true"},
		{"secret", reflect.ValueOf(Secret("x")), "*****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valueString(tt.v))
		})
	}
}
