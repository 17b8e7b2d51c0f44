package search

import (
	"fmt"
	"reflect"
	"strings"
)

// Field is one searchable facet of a record: either a dotted property path
// resolved by reflection, or a computed selector. Extract wins when both are set.
type Field[R any] struct {
	ID      string
	Path    string
	Extract func(R) string
	// Weight scales the field's influence; a match in a field of weight 2
	// scores twice as well. Zero means 1.
	Weight float64
}

func (f Field[R]) weight() float64 {
	if f.Weight <= 0 {
		return 1
	}
	return f.Weight
}

// Value extracts the field's raw text from r
func (f Field[R]) Value(r R) string {
	if f.Extract != nil {
		return f.Extract(r)
	}
	if f.Path == "" {
		return ""
	}
	s, _ := ResolvePath(r, f.Path)
	return s
}

// ResolvePath walks a dotted path through structs (field name or json tag,
// case-insensitive), string-keyed maps and pointers, and renders the final
// value as text. Slices of scalars are joined with spaces.
func ResolvePath(v any, path string) (string, bool) {
	cur := reflect.ValueOf(v)
	for _, part := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return "", false
		}
		switch cur.Kind() {
		case reflect.Struct:
			cur = structField(cur, part)
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return "", false
			}
			cur = cur.MapIndex(reflect.ValueOf(part).Convert(cur.Type().Key()))
		default:
			return "", false
		}
		if !cur.IsValid() {
			return "", false
		}
	}
	return render(indirect(cur))
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if strings.EqualFold(sf.Name, name) || (tag != "" && tag == name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

func render(v reflect.Value) (string, bool) {
	if !v.IsValid() {
		return "", false
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if s, ok := render(indirect(v.Index(i))); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), true
	case reflect.Struct, reflect.Map:
		return "", false
	default:
		return fmt.Sprint(v.Interface()), true
	}
}
