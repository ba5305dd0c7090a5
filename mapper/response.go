package mapper

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ResponseMapper handles value formatting and type coercion for rows.
type ResponseMapper struct{}

// NewResponseMapper creates a new response mapper.
func NewResponseMapper() *ResponseMapper {
	return &ResponseMapper{}
}

// FormatLiteral renders a value as the decimal or text form sent on the wire.
// textual reports whether the value is text (space padded) rather than a
// number (zero padded).
func (m *ResponseMapper) FormatLiteral(value interface{}) (literal string, textual bool, err error) {
	switch v := value.(type) {
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	case fmt.Stringer:
		return v.String(), true, nil
	case int:
		return strconv.FormatInt(int64(v), 10), false, nil
	case int8:
		return strconv.FormatInt(int64(v), 10), false, nil
	case int16:
		return strconv.FormatInt(int64(v), 10), false, nil
	case int32:
		return strconv.FormatInt(int64(v), 10), false, nil
	case int64:
		return strconv.FormatInt(v, 10), false, nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), false, nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), false, nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), false, nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), false, nil
	case uint64:
		return strconv.FormatUint(v, 10), false, nil
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	default:
		return formatKind(value)
	}
}

// formatKind handles named types such as `type UID int64` by their
// underlying kind.
func formatKind(value interface{}) (string, bool, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), false, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), false, nil
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	default:
		return "", false, fmt.Errorf("unsupported value type %T", value)
	}
}

// formatFloat rejects NaN and infinities, which have no fixed-width decimal form.
func formatFloat(f float64, bitSize int) (string, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false, fmt.Errorf("non-finite float %v cannot be encoded", f)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize), false, nil
}


// ToString converts any value to a string.
func (m *ResponseMapper) ToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt converts a value to an integer.
func (m *ResponseMapper) ToInt(value interface{}) (int64, error) {
	if value == nil {
		return 0, fmt.Errorf("cannot convert nil to int")
	}

	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to int: %w", v, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

// ToFloat converts a value to a float.
func (m *ResponseMapper) ToFloat(value interface{}) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("cannot convert nil to float")
	}

	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert '%s' to float: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

// ScanStruct copies values into the exported fields of the struct pointed to
// by dst. A field is matched by its `cdbms:"name"` tag, or by its name when no
// tag is present. Fields tagged "-" are skipped. Nil values leave the field
// untouched.
func (m *ResponseMapper) ScanStruct(values map[string]interface{}, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("scan destination must be a non-nil pointer to a struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Name
		if tag, ok := field.Tag.Lookup("cdbms"); ok {
			if tag == "-" {
				continue
			}
			key = tag
		}

		value, ok := values[key]
		if !ok || value == nil {
			continue
		}
		if err := m.assign(rv.Field(i), value); err != nil {
			return fmt.Errorf("error mapping field '%s': %w", key, err)
		}
	}

	return nil
}

func (m *ResponseMapper) assign(field reflect.Value, value interface{}) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(m.ToString(value))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := m.ToInt(value)
		if err != nil {
			return err
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("value %d overflows %s", i, field.Type())
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := m.ToInt(value)
		if err != nil {
			return err
		}
		if i < 0 || field.OverflowUint(uint64(i)) {
			return fmt.Errorf("value %d overflows %s", i, field.Type())
		}
		field.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		f, err := m.ToFloat(value)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Interface:
		field.Set(reflect.ValueOf(value))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
