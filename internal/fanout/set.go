package fanout

import "context"

// Subscriber - a live connection handle that accepts serialized snapshots.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
}

// Set - subscribers of one game, keyed by handle id. Not safe for concurrent use;
// the owning session guards it.
type Set struct {
	members map[string]Subscriber
}

func NewSet() *Set {
	return &Set{members: make(map[string]Subscriber)}
}

// Add - reports false when the handle is already present.
func (that *Set) Add(sub Subscriber) bool {
	if _, ok := that.members[sub.ID()]; ok {
		return false
	}

	that.members[sub.ID()] = sub

	return true
}

// Remove - reports false when the handle was absent.
func (that *Set) Remove(sub Subscriber) bool {
	if _, ok := that.members[sub.ID()]; !ok {
		return false
	}

	delete(that.members, sub.ID())

	return true
}

func (that *Set) Contains(sub Subscriber) bool {
	_, ok := that.members[sub.ID()]
	return ok
}

func (that *Set) Len() int {
	return len(that.members)
}

// Members - a point-in-time copy, safe to use after the guard is released.
func (that *Set) Members() []Subscriber {
	members := make([]Subscriber, 0, len(that.members))
	for _, sub := range that.members {
		members = append(members, sub)
	}

	return members
}
