package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Setting is a single resolved configuration value, used by the CLI report.
type Setting struct {
	Env    string
	Value  string
	Secret bool
}

func fieldsOf(v any) []reflect.StructField {
	t := reflect.TypeOf(v)
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields = append(fields, t.Field(i))
	}
	return fields
}

// Settings lists every setting in declaration order with secrets masked.
func (c *Config) Settings() []Setting {
	val := reflect.ValueOf(*c)
	out := make([]Setting, 0, val.NumField())
	for i, f := range fieldsOf(*c) {
		env := f.Tag.Get("envconfig")
		secret := isSecret(env)
		value := fmt.Sprint(val.Field(i).Interface())
		if secret {
			value = Mask(value)
		}
		out = append(out, Setting{Env: env, Value: value, Secret: secret})
	}
	return out
}

func isSecret(env string) bool {
	for _, marker := range []string{"KEY", "SECRET", "PASS"} {
		if strings.Contains(env, marker) {
			return true
		}
	}
	return false
}

// Mask hides all but the last four characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
