// SPDX-License-Identifier: Apache-2.0

package kube

import (
	"slices"
)

type nameGetter interface {
	GetName() string
}

// names returns the object names of items in alphabetical order.
func names[T any, PT interface {
	*T
	nameGetter
}](items []T) []string {
	out := make([]string, 0, len(items))
	for i := range items {
		out = append(out, PT(&items[i]).GetName())
	}
	slices.Sort(out)
	return out
}
