/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package callstate

// Store is the keyed mapping from call identifier to Call record. It is
// deliberately unsynchronized: every access runs on the connector's single
// processing queue, so the single-writer invariant holds by construction.
// Only the Reconciler mutates records; the session controller may only Clear
// the whole store on logout or seed it empty on a fresh connect.
type Store struct {
	calls map[string]*Call
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{calls: make(map[string]*Call)}
}

// Get returns the call with the given id, or nil.
func (s *Store) Get(id string) *Call {
	return s.calls[id]
}

// Put inserts or replaces the record under its ID.
func (s *Store) Put(c *Call) {
	s.calls[c.ID] = c
}

// Remove deletes the record with the given id, if present.
func (s *Store) Remove(id string) {
	delete(s.calls, id)
}

// All returns the active records in no particular order.
func (s *Store) All() []*Call {
	out := make([]*Call, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c)
	}
	return out
}

// Len returns the number of active records.
func (s *Store) Len() int {
	return len(s.calls)
}

// Clear removes every record.
func (s *Store) Clear() {
	s.calls = make(map[string]*Call)
}
