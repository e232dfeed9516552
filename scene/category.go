package scene

import (
	"github.com/pkg/errors"
)

// Tagger assigns a category to every loaded object. Objects are passed in load order.
type Tagger func(objects []Object) []Category

// Names of the built in taggers.
const (
	TaggerIndex      = "index"
	TaggerNamePrefix = "name_prefix"
)

// TagByIndex gives every object its own category, numbered from 1 in load order and named
// after the object.
func TagByIndex(objects []Object) []Category {
	categories := make([]Category, len(objects))
	for i, obj := range objects {
		categories[i] = Category{ID: i + 1, Name: obj.Name}
	}
	return categories
}

// TagByNamePrefix groups objects whose names only differ in their last two characters, e.g.
// "rock_1" and "rock_2" both become "rock". IDs are numbered from 1 in order of first appearance.
func TagByNamePrefix(objects []Object) []Category {
	ids := map[string]int{}
	categories := make([]Category, len(objects))
	for i, obj := range objects {
		name := namePrefix(obj.Name)
		id, ok := ids[name]
		if !ok {
			id = len(ids) + 1
			ids[name] = id
		}
		categories[i] = Category{ID: id, Name: name}
	}
	return categories
}

func namePrefix(name string) string {
	runes := []rune(name)
	if len(runes) < 2 {
		return ""
	}
	return string(runes[:len(runes)-2])
}

// TaggerByName returns one of the built in taggers. An empty name selects TagByIndex.
func TaggerByName(name string) (Tagger, error) {
	switch name {
	case "", TaggerIndex:
		return TagByIndex, nil
	case TaggerNamePrefix:
		return TagByNamePrefix, nil
	default:
		return nil, errors.Errorf("unknown category tagger %q, expected %q or %q", name, TaggerIndex, TaggerNamePrefix)
	}
}

// Tag applies a tagger to objects, returning copies with their Category set.
func Tag(objects []Object, tagger Tagger) []Object {
	categories := tagger(objects)
	tagged := make([]Object, len(objects))
	for i, obj := range objects {
		obj.Category = categories[i]
		tagged[i] = obj
	}
	return tagged
}
