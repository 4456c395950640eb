package grove

import (
	"reflect"
	"strings"
	"sync"

	"github.com/reusee/e5"
)

// structPlan lists the injectable fields of an unregistered struct type.
type structPlan struct {
	target reflect.Type // the requested type, T or *T
	elem   reflect.Type // the struct type
	fields []fieldPlan
}

type fieldPlan struct {
	index []int
	typ   reflect.Type
	key   Key
}

// reflect.Type -> *structPlan, nil for types that cannot be autowired
var structPlans sync.Map

// structPlanFor returns the autowiring plan for t, or nil when t is not a
// struct or pointer to struct with at least one exported field tagged
//
//	grove:"inject"        resolve by field type
//	grove:"."             same as inject
//	grove:"name=primary"  resolve by field type under the given name
func structPlanFor(t reflect.Type) *structPlan {
	if v, ok := structPlans.Load(t); ok {
		return v.(*structPlan)
	}
	plan := makeStructPlan(t)
	v, _ := structPlans.LoadOrStore(t, plan)
	return v.(*structPlan)
}

func makeStructPlan(t reflect.Type) *structPlan {
	elem := t
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil
	}

	plan := &structPlan{
		target: t,
		elem:   elem,
	}
	for i := range elem.NumField() {
		field := elem.Field(i)
		if field.PkgPath != "" {
			// un-exported field
			continue
		}
		directive, ok := field.Tag.Lookup("grove")
		if !ok {
			continue
		}
		key := TypeKey(field.Type)
		switch {
		case directive == "inject" || directive == ".":
		case strings.HasPrefix(directive, "name="):
			key = key.Named(strings.TrimPrefix(directive, "name="))
		default:
			continue
		}
		plan.fields = append(plan.fields, fieldPlan{
			index: field.Index,
			typ:   field.Type,
			key:   key,
		})
	}
	if len(plan.fields) == 0 {
		return nil
	}
	return plan
}

// autowire builds a fresh instance of plan.target with every tagged field
// resolved. Autowired instances are never cached.
func (r *resolver) autowire(plan *structPlan) (any, error) {
	values := make([]any, len(plan.fields))
	for i, f := range plan.fields {
		v, err := r.resolve(f.key)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	if r.dry {
		return nil, nil
	}

	ptr := reflect.New(plan.elem)
	for i, f := range plan.fields {
		if values[i] == nil {
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(f.typ) {
			return nil, we.With(
				e5.Info("field %v of %v cannot hold %v", f.key, plan.target, v.Type()),
			)(
				ErrConstructionFailure,
			)
		}
		ptr.Elem().FieldByIndex(f.index).Set(v)
	}

	if plan.target.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}
