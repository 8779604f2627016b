package pgrecord

// Record is one table row as a column-name keyed map.
type Record map[string]any

// Value returns the value stored under key, or a KeyNotFoundError when the
// record has no such key. A stored nil is a valid value, distinct from an
// absent key.
func (r Record) Value(key string) (any, error) {
	value, ok := r[key]
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}

	return value, nil
}
