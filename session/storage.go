/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2025 Tejus Pratap <tejzpr@gmail.com>
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package session

import (
	"os"

	ini "gopkg.in/ini.v1"
)

// Storage persists the authenticated session state to an INI file so a
// session can be resumed across process restarts. Call state is never
// persisted, only the ticket.
type Storage struct {
	path string
}

// NewStorage creates a Storage backed by the given file path. An empty path
// disables persistence: Save and Clear become no-ops and Load always
// reports no session.
func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

const sessionSection = "session"

// Save writes the ticket to disk, replacing any previous session.
func (s *Storage) Save(t *Ticket) error {
	if s.path == "" {
		return nil
	}
	cfg := ini.Empty()
	sec := cfg.Section(sessionSection)
	sec.Key("token").SetValue(t.Token)
	sec.Key("address").SetValue(t.Address)
	sec.Key("domain").SetValue(t.Domain)
	sec.Key("username").SetValue(t.Username)
	sec.Key("stream_id").SetValue(t.StreamID)
	return cfg.SaveTo(s.path)
}

// Load reads the persisted ticket. A missing or never-written file is not
// an error; it reports (nil, nil).
func (s *Storage) Load() (*Ticket, error) {
	if s.path == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}
	cfg, err := ini.Load(s.path)
	if err != nil {
		return nil, err
	}
	sec := cfg.Section(sessionSection)
	t := &Ticket{
		Token:    sec.Key("token").String(),
		Address:  sec.Key("address").String(),
		Domain:   sec.Key("domain").String(),
		Username: sec.Key("username").String(),
		StreamID: sec.Key("stream_id").String(),
	}
	if t.Token == "" {
		return nil, nil
	}
	return t, nil
}

// Clear removes the persisted session.
func (s *Storage) Clear() error {
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
