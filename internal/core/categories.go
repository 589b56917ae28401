package core

import "strings"

// AllCategories is the selection value that stands for the whole list.
const AllCategories = "All"

// DefaultCategories is used when no category list is configured.
var DefaultCategories = []string{
	"Food",
	"Groceries",
	"Transport",
	"Housing",
	"Utilities",
	"Health",
	"Entertainment",
	"Shopping",
	"Education",
	"Travel",
	"Gifts",
	"Salary",
	"Investment",
	"Other",
}

// Categories is the fixed, ordered set of allowed category names.
type Categories struct {
	names []string
	index map[string]struct{}
}

// NewCategories trims and de-duplicates names, preserving order.
func NewCategories(names []string) Categories {
	c := Categories{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := c.index[n]; ok {
			continue
		}
		c.index[n] = struct{}{}
		c.names = append(c.names, n)
	}
	return c
}

func (c Categories) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// All returns a copy of the category names in configured order.
func (c Categories) All() []string {
	return append([]string(nil), c.names...)
}

func (c Categories) Len() int {
	return len(c.names)
}

// Resolve expands a user selection. An empty selection, or one containing
// AllCategories, selects every configured category. Other names pass
// through unchanged; membership is not re-validated here.
func (c Categories) Resolve(selection []string) []string {
	if len(selection) == 0 {
		return c.All()
	}
	for _, s := range selection {
		if s == AllCategories {
			return c.All()
		}
	}
	return append([]string(nil), selection...)
}
