package grove

import "reflect"

// Key identifies a service: the contract type plus an optional tag that
// tells apart several registrations of the same type. Keys are comparable
// and safe to use as map keys.
type Key struct {
	Type reflect.Type
	Tag  string
}

// KeyOf returns the [Key] for type T. At most one tag is used.
//
//	grove.KeyOf[*Database]()
//	grove.KeyOf[Cache]("redis")
func KeyOf[T any](tag ...string) Key {
	k := Key{Type: reflect.TypeOf((*T)(nil)).Elem()}
	if len(tag) > 0 {
		k.Tag = tag[0]
	}
	return k
}

// String renders the key as "type" or "type@tag".
func (k Key) String() string {
	if k.Type == nil {
		return "<invalid>"
	}
	if k.Tag == "" {
		return k.Type.String()
	}
	return k.Type.String() + "@" + k.Tag
}

// Valid reports whether the key names a type.
func (k Key) Valid() bool {
	return k.Type != nil
}

// elem returns the key of the element type for slice keys.
func (k Key) elem() (Key, bool) {
	if k.Type == nil || k.Type.Kind() != reflect.Slice {
		return Key{}, false
	}
	return Key{Type: k.Type.Elem(), Tag: k.Tag}, true
}
