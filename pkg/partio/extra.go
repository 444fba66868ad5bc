package partio

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds fields returned by the server that the client does not model.
// They are re-emitted on marshal so records survive a read-modify-write.
type Extra map[string]json.RawMessage

var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

// knownFields returns the lower-cased JSON names of t's exported fields.
// encoding/json matches keys case-insensitively, so extras must as well.
func knownFields(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]struct{})
	}

	fields := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" && f.Anonymous && f.Type.Kind() == reflect.Struct {
			for embedded := range knownFields(f.Type) {
				fields[embedded] = struct{}{}
			}
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[strings.ToLower(name)] = struct{}{}
	}

	knownFieldsCache.Store(t, fields)
	return fields
}

// unmarshalWithExtra decodes data into v and collects every key v does not
// declare into extra.
func unmarshalWithExtra(data []byte, v interface{}, extra *Extra) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	known := knownFields(reflect.TypeOf(v))
	for k := range all {
		if _, ok := known[strings.ToLower(k)]; ok {
			delete(all, k)
		}
	}

	if len(all) == 0 {
		*extra = nil
		return nil
	}
	*extra = all
	return nil
}

// marshalWithExtra encodes v and merges extra into the result. Declared fields
// win over extras with the same name.
func marshalWithExtra(v interface{}, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	known := knownFields(reflect.TypeOf(v))
	for k, raw := range extra {
		if _, ok := known[strings.ToLower(k)]; ok {
			continue
		}
		all[k] = raw
	}
	return json.Marshal(all)
}

// Bool returns a pointer to b, for optional boolean fields such as Active.
func Bool(b bool) *bool {
	return &b
}
