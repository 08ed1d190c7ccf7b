package models

// Collection is the three-group view of a user's library. Each list is ordered newest first.
type Collection struct {
	Owned       []Item `json:"owned"`
	PassedAlong []Item `json:"passedAlong"`
	Ebook       []Item `json:"ebook"`
}

// NewCollection returns a collection with three empty, non-nil groups
func NewCollection() Collection {
	return Collection{
		Owned:       []Item{},
		PassedAlong: []Item{},
		Ebook:       []Item{},
	}
}

// Empty reports whether all three groups are empty
func (c Collection) Empty() bool {
	return len(c.Owned) == 0 && len(c.PassedAlong) == 0 && len(c.Ebook) == 0
}

// Len returns the number of items across all groups
func (c Collection) Len() int {
	return len(c.Owned) + len(c.PassedAlong) + len(c.Ebook)
}

// Group returns the items of g
func (c Collection) Group(g Group) []Item {
	switch g {
	case GroupPassedAlong:
		return c.PassedAlong
	case GroupEbook:
		return c.Ebook
	default:
		return c.Owned
	}
}

// SetGroup replaces the items of g
func (c *Collection) SetGroup(g Group, items []Item) {
	if items == nil {
		items = []Item{}
	}
	switch g {
	case GroupPassedAlong:
		c.PassedAlong = items
	case GroupEbook:
		c.Ebook = items
	default:
		c.Owned = items
	}
}

// Prepend inserts item at the head of the group implied by its ownership
func (c *Collection) Prepend(item Item) {
	g := item.Group()
	items := c.Group(g)
	next := make([]Item, 0, len(items)+1)
	next = append(next, item)
	next = append(next, items...)
	c.SetGroup(g, next)
}

// Append adds item at the tail of the group implied by its ownership
func (c *Collection) Append(item Item) {
	g := item.Group()
	c.SetGroup(g, append(c.Group(g), item))
}

// Find locates an item by id and reports the group holding it
func (c Collection) Find(id string) (Item, Group, bool) {
	for _, g := range Groups {
		for _, item := range c.Group(g) {
			if item.ID == id {
				return item, g, true
			}
		}
	}
	return Item{}, "", false
}

// Remove deletes the item with the given id from whichever group holds it
func (c *Collection) Remove(id string) bool {
	for _, g := range Groups {
		items := c.Group(g)
		for i, item := range items {
			if item.ID != id {
				continue
			}
			next := make([]Item, 0, len(items)-1)
			next = append(next, items[:i]...)
			next = append(next, items[i+1:]...)
			c.SetGroup(g, next)
			return true
		}
	}
	return false
}

// Replace swaps the item with the same id for item. When the ownership changed the item
// moves to the head of its new group; otherwise it keeps its position.
func (c *Collection) Replace(item Item) bool {
	_, from, ok := c.Find(item.ID)
	if !ok {
		return false
	}
	if from != item.Group() {
		c.Remove(item.ID)
		c.Prepend(item)
		return true
	}
	items := c.Group(from)
	next := make([]Item, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ID == item.ID {
			next[i] = item
		}
	}
	c.SetGroup(from, next)
	return true
}

// All returns every item, owned first, then passed along, then ebooks
func (c Collection) All() []Item {
	all := make([]Item, 0, c.Len())
	for _, g := range Groups {
		all = append(all, c.Group(g)...)
	}
	return all
}

// Clone returns a deep copy
func (c Collection) Clone() Collection {
	out := NewCollection()
	for _, g := range Groups {
		src := c.Group(g)
		items := make([]Item, len(src))
		for i, item := range src {
			items[i] = item.Clone()
		}
		out.SetGroup(g, items)
	}
	return out
}
