package save

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/nathoo/idlecore/container"
)

var (
	containerPkg = reflect.TypeOf(container.Set[string]{}).PkgPath()
	uuidType     = reflect.TypeOf(uuid.UUID{})
)

// Schema returns the JSON schema of the save envelope.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
	}
	r.Mapper = func(t reflect.Type) *jsonschema.Schema { return mapType(r, t) }

	s := r.ReflectFromType(reflect.TypeOf(Document{}))
	s.Title = "idlecore save"
	s.Description = "Versioned save envelope holding the full game state."
	return s
}

// mapType describes the tagged container encodings, which reflection alone
// would see as empty structs.
func mapType(r *jsonschema.Reflector, t reflect.Type) *jsonschema.Schema {
	if t == uuidType {
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	}
	if t.Kind() != reflect.Struct || t.PkgPath() != containerPkg {
		return nil
	}
	switch {
	case strings.HasPrefix(t.Name(), "OrderedMap["):
		k, _ := t.MethodByName("Keys")
		v, _ := t.MethodByName("Value")
		key := r.ReflectFromType(k.Type.Out(0).Elem())
		val := r.ReflectFromType(v.Type.Out(0))
		return tagged("Map", "entries", &jsonschema.Schema{
			Type:        "array",
			PrefixItems: []*jsonschema.Schema{stripped(key), stripped(val)},
			MinItems:    ptr(uint64(2)),
			MaxItems:    ptr(uint64(2)),
		})
	case strings.HasPrefix(t.Name(), "Set["):
		v, _ := t.MethodByName("Values")
		val := r.ReflectFromType(v.Type.Out(0).Elem())
		return tagged("Set", "values", stripped(val))
	}
	return nil
}

func tagged(tag, field string, item *jsonschema.Schema) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"__type", field},
	}
	s.Properties = jsonschema.NewProperties()
	s.Properties.Set("__type", &jsonschema.Schema{Type: "string", Const: tag})
	s.Properties.Set(field, &jsonschema.Schema{Type: "array", Items: item})
	return s
}

func stripped(s *jsonschema.Schema) *jsonschema.Schema {
	s.Version = ""
	s.ID = ""
	s.Definitions = nil
	return s
}

func ptr[T any](v T) *T { return &v }
