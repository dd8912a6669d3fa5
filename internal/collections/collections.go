package collections

import (
	"cmp"
	"slices"
)

// Contains reports whether elem is one of elements.
func Contains[T comparable](elem T, elements []T) bool {
	return slices.Contains(elements, elem)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
