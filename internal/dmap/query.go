package dmap

import "strings"

// FindAtom walks atoms pre-order and returns the first atom whose symbolic
// name matches name, searching into container children. It is the lookup
// primitive the facade layer (Database/Playlist/Track) builds its lazy
// field accessors on top of, grounded on daap.py's DAAPObject.getAtom,
// which does the same single-result pre-order search by name.
func FindAtom(atoms []*Atom, name string) *Atom {
	for _, a := range atoms {
		if a.Name == name {
			return a
		}
		if a.Type.IsContainer() {
			if found := FindAtom(a.Children, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// FindAll walks atoms pre-order and returns every atom whose symbolic name
// matches name. Used for repeated fields such as the dmap.listingitem
// entries inside a dmap.listing container.
func FindAll(atoms []*Atom, name string) []*Atom {
	var out []*Atom
	var walk func([]*Atom)
	walk = func(as []*Atom) {
		for _, a := range as {
			if a.Name == name {
				out = append(out, a)
			}
			if a.Type.IsContainer() {
				walk(a.Children)
			}
		}
	}
	walk(atoms)
	return out
}

// Path resolves a chain of symbolic names, descending one level of
// children per segment (e.g. Path(root, "dmap.listing.dmap.listingitem")
// is not how this is meant to be used — Path takes explicit segments, not a
// dotted string, since DMAP names already contain dots). Each segment must
// name a direct child of the previous match.
func Path(atoms []*Atom, segments ...string) *Atom {
	cur := atoms
	var found *Atom
	for i, seg := range segments {
		found = nil
		for _, a := range cur {
			if a.Name == seg {
				found = a
				break
			}
		}
		if found == nil {
			return nil
		}
		if i < len(segments)-1 {
			if !found.Type.IsContainer() {
				return nil
			}
			cur = found.Children
		}
	}
	return found
}

// IsContentCodesResponse reports whether name looks like the top-level
// content-codes container, purely so callers can branch on it without
// importing a package-private constant.
func IsContentCodesResponse(name string) bool {
	return strings.EqualFold(name, "dmap.contentcodesresponse")
}
