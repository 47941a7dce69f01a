package dns

import "fmt"

// ResourceKey identifies a set of resource records: class, type and owner
// name. The name is stored normalized (lowercase, no trailing dot) so that
// two keys naming the same records compare equal with == and hash identically
// as Go map keys. Construct keys with NewKey to guarantee the normal form.
type ResourceKey struct {
	Class RecordClass
	Type  RecordType
	Name  string
}

// NewKey builds a ResourceKey with the name in normal form.
func NewKey(class RecordClass, typ RecordType, name string) ResourceKey {
	return ResourceKey{Class: class, Type: typ, Name: NormalizeName(name)}
}

// String renders the key the way dig prints question sections.
func (k ResourceKey) String() string {
	return fmt.Sprintf("%s %s %s", k.Name, k.Class, k.Type)
}

// IsPseudo reports whether the key cannot denote zone data because either
// its class or its type is a pseudo value (ANY, OPT, transfer types, ...).
func (k ResourceKey) IsPseudo() bool {
	return k.Class.IsPseudo() || k.Type.IsPseudo()
}

// Match applies mDNS matching rules between a lookup key and a concrete
// record (RFC 6762 Section 6): an ANY type matches any type, an ANY class
// matches any class, otherwise class and type must be equal; names compare
// case-insensitively. There is no CNAME chasing here.
func (k ResourceKey) Match(rr *ResourceRecord) bool {
	if k.Class != ClassANY && k.Class != rr.Key.Class {
		return false
	}
	if k.Type != TypeANY && k.Type != rr.Key.Type {
		return false
	}
	return k.Name == rr.Key.Name
}
