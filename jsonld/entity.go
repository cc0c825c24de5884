package jsonld

// Reserved JSON-LD keywords used throughout the pipeline.
const (
	KeyContext = "@context"
	KeyGraph   = "@graph"
	KeyType    = "@type"
	KeyID      = "@id"
)

// Entity is one schema.org object found in a document. Object points at
// the live node inside the document, so edits made through it are visible
// when the document is serialised.
type Entity struct {
	Type   string
	Types  []string
	ID     string
	Object *Object

	// Nested is true for entities discovered as a typed property value
	// rather than as the root or a graph member.
	Nested bool
}

// Has reports whether the entity declares the property.
func (e Entity) Has(prop string) bool { return e.Object.Has(prop) }

// Get returns the value of a property.
func (e Entity) Get(prop string) (*Value, bool) { return e.Object.Get(prop) }

// TypesOf returns the declared @type tags of obj. A string yields one tag;
// an array yields every string member.
func TypesOf(obj *Object) []string {
	if obj == nil {
		return nil
	}
	v, ok := obj.Get(KeyType)
	if !ok {
		return nil
	}
	if s, ok := v.AsString(); ok {
		return []string{s}
	}
	var out []string
	for _, item := range v.AsArray() {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

func newEntity(obj *Object, nested bool) Entity {
	types := TypesOf(obj)
	e := Entity{
		Types:  types,
		ID:     obj.GetString(KeyID),
		Object: obj,
		Nested: nested,
	}
	if len(types) > 0 {
		e.Type = types[0]
	}
	return e
}

// TopLevel returns the objects that make up the document body: every
// object member of @graph when present, otherwise the root itself.
func TopLevel(doc *Value) []*Object {
	root := doc.AsObject()
	if root == nil {
		return nil
	}
	g, ok := root.Get(KeyGraph)
	if !ok {
		return []*Object{root}
	}
	if obj := g.AsObject(); obj != nil {
		return []*Object{obj}
	}
	var out []*Object
	for _, item := range g.AsArray() {
		if obj := item.AsObject(); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// ExtractEntities flattens a document into its entities: the top-level
// objects, followed by every typed object held directly as a property
// value of one of them. Only one extra level is visited; a typed object
// nested inside another nested object is not returned.
func ExtractEntities(doc *Value) []Entity {
	top := TopLevel(doc)
	entities := make([]Entity, 0, len(top))
	for _, obj := range top {
		entities = append(entities, newEntity(obj, false))
	}

	n := len(entities)
	for i := 0; i < n; i++ {
		obj := entities[i].Object
		for _, key := range obj.Keys() {
			v, _ := obj.Get(key)
			child := v.AsObject()
			if child == nil || !child.Has(KeyType) {
				continue
			}
			entities = append(entities, newEntity(child, true))
		}
	}
	return entities
}

// IsBareReference reports whether v is an object carrying an @id and no
// @type, i.e. a pointer to an entity defined elsewhere.
func IsBareReference(v *Value) bool {
	obj := v.AsObject()
	if obj == nil {
		return false
	}
	return obj.GetString(KeyID) != "" && !obj.Has(KeyType)
}

// ReferenceIDs returns the @id values a link property points at. Objects
// contribute their @id, arrays contribute each member's @id and plain
// strings are taken as the id itself.
func ReferenceIDs(v *Value) []string {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		if s == "" {
			return nil
		}
		return []string{s}
	case KindObject:
		if id := v.AsObject().GetString(KeyID); id != "" {
			return []string{id}
		}
	case KindArray:
		var out []string
		for _, item := range v.AsArray() {
			if id := item.AsObject().GetString(KeyID); id != "" {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

// Walk calls fn for every value in the tree rooted at v, depth first and
// in key order. Returning false from fn skips that value's children.
func Walk(v *Value, fn func(*Value) bool) {
	if v == nil || !fn(v) {
		return
	}
	switch v.Kind() {
	case KindArray:
		for _, item := range v.arr {
			Walk(item, fn)
		}
	case KindObject:
		for _, k := range v.obj.keys {
			Walk(v.obj.vals[k], fn)
		}
	}
}
