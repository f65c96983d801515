package event

// At walks a chain of object keys and returns the node at the end of the
// path. Any missing key or non-object intermediate yields (nil, false);
// traversal never panics on a surprising shape.
func At(v Value, path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		obj, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// StringAt returns the string at the given object path, or "" if the path
// is missing or the node is not a string.
func StringAt(v Value, path ...string) string {
	node, ok := At(v, path...)
	if !ok {
		return ""
	}
	s, _ := node.(String)
	return string(s)
}

// ObjectAt returns the object at the given path, or nil if the path is
// missing or the node is not an object.
func ObjectAt(v Value, path ...string) Object {
	node, ok := At(v, path...)
	if !ok {
		return nil
	}
	obj, _ := node.(Object)
	return obj
}

// AsString unwraps a string node, or returns "" for any other variant.
func AsString(v Value) string {
	s, _ := v.(String)
	return string(s)
}
