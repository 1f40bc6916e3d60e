// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package perf

import (
	"errors"
	"fmt"
)

// Group configures a group of events.
type Group struct {
	// CountFormat configures the format of counts read from the event
	// leader. The Group option is set automatically.
	CountFormat CountFormat

	// Options configures options for all events in the group.
	Options Options

	err   error // sticky configuration error
	attrs []*Attr
}

// Add adds events to the group, as configured by cfgs.
//
// For each Configurator, a new *Attr is created, the group-specific settings
// are applied, then Configure is called on the *Attr to produce the final
// event attributes.
func (g *Group) Add(cfgs ...Configurator) {
	for _, cfg := range cfgs {
		g.add(cfg)
	}
}

func (g *Group) add(cfg Configurator) {
	if g.err != nil {
		return
	}
	attr := new(Attr)
	attr.Options = g.Options
	err := cfg.Configure(attr)
	if err != nil {
		g.err = err
		return
	}
	g.attrs = append(g.attrs, attr)
}

// Len returns the number of events added to the group.
func (g *Group) Len() int { return len(g.attrs) }

// Open opens all the events in the group, and returns their leader.
func (g *Group) Open(pid int, cpu int) (*Event, error) {
	if len(g.attrs) == 0 {
		return nil, errors.New("perf: empty event group")
	}
	if g.err != nil {
		return nil, fmt.Errorf("perf: configuration error: %w", g.err)
	}
	leaderattr := g.attrs[0]
	leaderattr.CountFormat = g.CountFormat
	leaderattr.CountFormat.Group = true
	leader, err := Open(leaderattr, pid, cpu, nil)
	if err != nil {
		return nil, fmt.Errorf("perf: failed to open event leader: %w", err)
	}
	for idx, attr := range g.attrs[1:] {
		if _, err := Open(attr, pid, cpu, leader); err != nil {
			leader.Close()
			return nil, fmt.Errorf("perf: failed to open group event #%d (%q): %w", idx+1, attr.Label, err)
		}
	}
	return leader, nil
}

// A Configurator configures event attributes. Implementations should only
// set the fields they need. See (*Group).Add for more details.
type Configurator interface {
	Configure(attr *Attr) error
}

// ConfiguratorFunc adapts a function to the Configurator interface.
type ConfiguratorFunc func(attr *Attr) error

// Configure calls cf(attr).
func (cf ConfiguratorFunc) Configure(attr *Attr) error { return cf(attr) }
