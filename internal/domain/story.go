package domain

import (
	"fmt"
	"strings"
)

type Field string

const (
	FieldName     Field = "name"
	FieldSetting  Field = "setting"
	FieldCreature Field = "creature"
)

func (f Field) IsValid() bool {
	switch f {
	case FieldName, FieldSetting, FieldCreature:
		return true
	}
	return false
}

func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return f, nil
}

// FormInput - три поля формы. Пустота проверяется как есть, без TrimSpace.
type FormInput struct {
	Name     string
	Setting  string
	Creature string
}

func (in *FormInput) Set(field Field, value string) error {
	switch field {
	case FieldName:
		in.Name = value
	case FieldSetting:
		in.Setting = value
	case FieldCreature:
		in.Creature = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	return nil
}

func (in FormInput) Get(field Field) string {
	switch field {
	case FieldName:
		return in.Name
	case FieldSetting:
		return in.Setting
	case FieldCreature:
		return in.Creature
	}
	return ""
}

func (in FormInput) MissingFields() []Field {
	var missing []Field
	for _, f := range []Field{FieldName, FieldSetting, FieldCreature} {
		if in.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func (in FormInput) Validate() error {
	missing := in.MissingFields()
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return fmt.Errorf("%w: %s", ErrEmptyField, strings.Join(names, ", "))
}
