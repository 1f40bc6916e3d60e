// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package perf

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Special pid values for Open.
const (
	// CallingThread configures the event to measure the calling thread.
	CallingThread = 0

	// AllThreads configures the event to measure all threads on the
	// specified CPU.
	AllThreads = -1
)

// AnyCPU configures the specified process/thread to be measured on any CPU.
const AnyCPU = -1

// Event states.
const (
	eventStateUninitialized = 0
	eventStateOK            = 1
	eventStateClosed        = 2
)

// An Event is an open perf event file descriptor.
type Event struct {
	// state is the state of the event. See eventState* constants.
	state int32

	// fd is the event file descriptor.
	fd int

	// group contains other events in the event group, if this event is an
	// event group leader.
	group []*Event

	// attr is the set of attributes the Event was configured with.
	// It is a clone of the original.
	attr *Attr
}

// Open opens the event configured by attr.
//
// The pid and cpu parameters specify which thread and CPU to monitor:
//
//   - if pid == CallingThread and cpu == AnyCPU, the event measures
//     the calling thread on any CPU
//
//   - if pid == CallingThread and cpu >= 0, the event measures
//     the calling thread only when running on the specified CPU
//
//   - if pid > 0 and cpu == AnyCPU, the event measures the specified
//     thread on any CPU
//
//   - if pid == AllThreads and cpu >= 0, the event measures all threads
//     on the specified CPU
//
// If group is non-nil, the returned Event is made part of the group
// associated with the specified group Event, and the group leader controls
// when the entire group is enabled.
func Open(attr *Attr, pid, cpu int, group *Event) (*Event, error) {
	groupfd := -1
	if group != nil {
		if err := group.ok(); err != nil {
			return nil, err
		}
		groupfd = group.fd
	}
	fd, err := unix.PerfEventOpen(attr.sysAttr(), pid, cpu, groupfd, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("perf_event_open", err)
	}
	attrClone := new(Attr)
	*attrClone = *attr // ok to copy since no slices
	ev := &Event{
		state: eventStateOK,
		fd:    fd,
		attr:  attrClone,
	}
	if group != nil {
		group.group = append(group.group, ev)
	}
	return ev, nil
}

func (ev *Event) ok() error {
	if ev == nil {
		return os.ErrInvalid
	}
	switch ev.state {
	case eventStateUninitialized:
		return os.ErrInvalid
	case eventStateOK:
		return nil
	default: // eventStateClosed
		return os.ErrClosed
	}
}

// Measure disables the event, resets it, enables it, runs f, disables it again,
// then reads the Count associated with the event.
func (ev *Event) Measure(f func()) (Count, error) {
	if err := ev.around(f); err != nil {
		return Count{}, err
	}
	return ev.ReadCount()
}

// MeasureGroup is like Measure, but for event groups.
func (ev *Event) MeasureGroup(f func()) (GroupCount, error) {
	if err := ev.around(f); err != nil {
		return GroupCount{}, err
	}
	return ev.ReadGroupCount()
}

// around resets the counters, and runs f with the counters enabled.
func (ev *Event) around(f func()) error {
	if err := ev.Disable(); err != nil {
		return err
	}
	if err := ev.Reset(); err != nil {
		return err
	}
	if err := ev.Enable(); err != nil {
		return err
	}
	f()
	return ev.Disable()
}

// Enable enables the event. If ev is a group leader, all events in the
// group are enabled.
func (ev *Event) Enable() error {
	if err := ev.ok(); err != nil {
		return err
	}
	return ioctlEnable(ev.fd, ev.ioctlArg())
}

// Disable disables the event. If ev is a group leader, all events in the
// group are disabled.
func (ev *Event) Disable() error {
	if err := ev.ok(); err != nil {
		return err
	}
	return ioctlDisable(ev.fd, ev.ioctlArg())
}

// Reset resets the counters associated with the event. If ev is a group
// leader, the counters of all events in the group are reset.
func (ev *Event) Reset() error {
	if err := ev.ok(); err != nil {
		return err
	}
	return ioctlReset(ev.fd, ev.ioctlArg())
}

// ioctlArg returns the argument for the enable, disable and reset ioctls.
// Without PERF_IOC_FLAG_GROUP, they only act on the leader itself.
func (ev *Event) ioctlArg() int {
	if len(ev.group) > 0 {
		return unix.PERF_IOC_FLAG_GROUP
	}
	return 0
}

// Count is a measurement taken by an Event.
//
// The Value field is always present and populated.
//
// The Enabled field is populated if CountFormat.Enabled is set on the Event
// the Count was read from. Ditto for Running and ID.
//
// Label is the label of the Attr the Event was opened with.
type Count struct {
	Value   uint64
	Enabled time.Duration
	Running time.Duration
	ID      uint64
	Label   string
}

// ReadCount reads the measurement associated with ev. If the Event was
// configured with CountFormat.Group, ReadCount returns an error.
func (ev *Event) ReadCount() (Count, error) {
	var c Count
	if err := ev.ok(); err != nil {
		return c, err
	}
	if ev.attr.CountFormat.Group {
		return c, errors.New("perf: calling ReadCount on group Event")
	}
	buf := make([]byte, ev.attr.CountFormat.readSize())
	if _, err := unix.Read(ev.fd, buf); err != nil {
		return c, os.NewSyscallError("read", err)
	}
	f := fields(buf)
	f.count(&c, ev)
	return c, nil
}

// GroupCount is a group of measurements taken by an Event group.
//
// Values are in the order the events were added to the group. Fields are
// populated as described in the Count documentation.
type GroupCount struct {
	Enabled time.Duration
	Running time.Duration
	Values  []struct {
		Value uint64
		ID    uint64
		Label string
	}
}

// ReadGroupCount reads the measurements associated with ev. If the Event
// was not configued with CountFormat.Group, ReadGroupCount returns an error.
func (ev *Event) ReadGroupCount() (GroupCount, error) {
	var gc GroupCount
	if err := ev.ok(); err != nil {
		return gc, err
	}
	if !ev.attr.CountFormat.Group {
		return gc, errors.New("perf: calling ReadGroupCount on non-group Event")
	}
	headerSize := ev.attr.CountFormat.groupReadHeaderSize()
	countsSize := (1 + len(ev.group)) * ev.attr.CountFormat.groupReadCountSize()
	buf := make([]byte, headerSize+countsSize)
	if _, err := unix.Read(ev.fd, buf); err != nil {
		return gc, os.NewSyscallError("read", err)
	}
	f := fields(buf)
	f.groupCount(&gc, ev)
	return gc, nil
}

// Close closes the event, and all events in its group if ev is a group
// leader. Close must not be called concurrently with any other methods on
// the Event.
func (ev *Event) Close() error {
	if err := ev.ok(); err != nil {
		return err
	}
	ev.state = eventStateClosed
	var first error
	for _, member := range ev.group {
		if err := member.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := unix.Close(ev.fd); err != nil && first == nil {
		first = os.NewSyscallError("close", err)
	}
	return first
}

// Attr configures a perf event.
type Attr struct {
	// Label is a human readable label for the event. It is copied to
	// counts read from the event.
	Label string

	// Type is the major type of the event.
	Type EventType

	// Config is the type-specific event configuration.
	Config uint64

	// CountFormat specifies the format of counts read from the
	// Event using ReadCount or ReadGroupCount. See the CountFormat
	// documentation for more details.
	CountFormat CountFormat

	// Options contains more fine grained event configuration.
	Options Options
}

func (a Attr) sysAttr() *unix.PerfEventAttr {
	return &unix.PerfEventAttr{
		Type:        uint32(a.Type),
		Size:        uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config:      a.Config,
		Read_format: a.CountFormat.marshal(),
		Bits:        a.Options.marshal(),
	}
}

// EventType is the overall type of a performance event.
type EventType uint32

// Supported event types.
const (
	HardwareEvent EventType = unix.PERF_TYPE_HARDWARE
	SoftwareEvent EventType = unix.PERF_TYPE_SOFTWARE
)

// HardwareCounter is a hardware performance counter.
type HardwareCounter uint64

// Hardware performance counters.
const (
	CPUCycles             HardwareCounter = unix.PERF_COUNT_HW_CPU_CYCLES
	Instructions          HardwareCounter = unix.PERF_COUNT_HW_INSTRUCTIONS
	CacheReferences       HardwareCounter = unix.PERF_COUNT_HW_CACHE_REFERENCES
	CacheMisses           HardwareCounter = unix.PERF_COUNT_HW_CACHE_MISSES
	BranchInstructions    HardwareCounter = unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS
	BranchMisses          HardwareCounter = unix.PERF_COUNT_HW_BRANCH_MISSES
	BusCycles             HardwareCounter = unix.PERF_COUNT_HW_BUS_CYCLES
	StalledCyclesFrontend HardwareCounter = unix.PERF_COUNT_HW_STALLED_CYCLES_FRONTEND
	StalledCyclesBackend  HardwareCounter = unix.PERF_COUNT_HW_STALLED_CYCLES_BACKEND
	RefCPUCycles          HardwareCounter = unix.PERF_COUNT_HW_REF_CPU_CYCLES
)

var hardwareLabels = map[HardwareCounter]string{
	CPUCycles:             "cpu-cycles",
	Instructions:          "instructions",
	CacheReferences:       "cache-references",
	CacheMisses:           "cache-misses",
	BranchInstructions:    "branch-instructions",
	BranchMisses:          "branch-misses",
	BusCycles:             "bus-cycles",
	StalledCyclesFrontend: "stalled-cycles-frontend",
	StalledCyclesBackend:  "stalled-cycles-backend",
	RefCPUCycles:          "ref-cycles",
}

// Label returns the name the perf tool uses for the counter.
func (hwc HardwareCounter) Label() string {
	if l, ok := hardwareLabels[hwc]; ok {
		return l
	}
	return fmt.Sprintf("hardware-%d", uint64(hwc))
}

// Configure configures attr to measure hwc. It sets the Label, Type, and
// Config fields on attr.
func (hwc HardwareCounter) Configure(attr *Attr) error {
	attr.Label = hwc.Label()
	attr.Type = HardwareEvent
	attr.Config = uint64(hwc)
	return nil
}

// AllHardwareCounters returns a slice of all known hardware counters.
func AllHardwareCounters() []Configurator {
	return []Configurator{
		CPUCycles,
		Instructions,
		CacheReferences,
		CacheMisses,
		BranchInstructions,
		BranchMisses,
		BusCycles,
		StalledCyclesFrontend,
		StalledCyclesBackend,
		RefCPUCycles,
	}
}

// SoftwareCounter is a software performance counter.
type SoftwareCounter uint64

// Software performance counters.
const (
	CPUClock        SoftwareCounter = unix.PERF_COUNT_SW_CPU_CLOCK
	TaskClock       SoftwareCounter = unix.PERF_COUNT_SW_TASK_CLOCK
	PageFaults      SoftwareCounter = unix.PERF_COUNT_SW_PAGE_FAULTS
	ContextSwitches SoftwareCounter = unix.PERF_COUNT_SW_CONTEXT_SWITCHES
	CPUMigrations   SoftwareCounter = unix.PERF_COUNT_SW_CPU_MIGRATIONS
	MinorPageFaults SoftwareCounter = unix.PERF_COUNT_SW_PAGE_FAULTS_MIN
	MajorPageFaults SoftwareCounter = unix.PERF_COUNT_SW_PAGE_FAULTS_MAJ
	AlignmentFaults SoftwareCounter = unix.PERF_COUNT_SW_ALIGNMENT_FAULTS
	EmulationFaults SoftwareCounter = unix.PERF_COUNT_SW_EMULATION_FAULTS
	Dummy           SoftwareCounter = unix.PERF_COUNT_SW_DUMMY
)

var softwareLabels = map[SoftwareCounter]string{
	CPUClock:        "cpu-clock",
	TaskClock:       "task-clock",
	PageFaults:      "page-faults",
	ContextSwitches: "context-switches",
	CPUMigrations:   "cpu-migrations",
	MinorPageFaults: "minor-faults",
	MajorPageFaults: "major-faults",
	AlignmentFaults: "alignment-faults",
	EmulationFaults: "emulation-faults",
	Dummy:           "dummy",
}

// Label returns the name the perf tool uses for the counter.
func (swc SoftwareCounter) Label() string {
	if l, ok := softwareLabels[swc]; ok {
		return l
	}
	return fmt.Sprintf("software-%d", uint64(swc))
}

// Configure configures attr to measure swc. It sets the Label, Type, and
// Config fields on attr.
func (swc SoftwareCounter) Configure(attr *Attr) error {
	attr.Label = swc.Label()
	attr.Type = SoftwareEvent
	attr.Config = uint64(swc)
	return nil
}

// AllSoftwareCounters returns a slice of all known software counters.
func AllSoftwareCounters() []Configurator {
	return []Configurator{
		CPUClock,
		TaskClock,
		PageFaults,
		ContextSwitches,
		CPUMigrations,
		MinorPageFaults,
		MajorPageFaults,
		AlignmentFaults,
		EmulationFaults,
		Dummy,
	}
}

// LookupCounter returns the hardware or software counter with the
// specified label, as returned by the Label methods.
func LookupCounter(label string) (Configurator, error) {
	for hwc, l := range hardwareLabels {
		if l == label {
			return hwc, nil
		}
	}
	for swc, l := range softwareLabels {
		if l == label {
			return swc, nil
		}
	}
	return nil, fmt.Errorf("perf: unknown counter %q", label)
}

// CountFormat configures the format of Count or GroupCount measurements.
//
// Enabled and Running configure the Event to include time enabled and
// time running measurements to the counts. Usually, these two values are
// equal. They may differ when events are multiplexed.
//
// If ID is set, a unique ID is assigned to the associated event.
//
// If Group is set, callers must use ReadGroupCount on the associated Event.
// Otherwise, they must use ReadCount.
type CountFormat struct {
	Enabled bool
	Running bool
	ID      bool
	Group   bool
}

func (f CountFormat) readSize() int {
	size := 8 // value is always set
	if f.Enabled {
		size += 8
	}
	if f.Running {
		size += 8
	}
	if f.ID {
		size += 8
	}
	return size
}

func (f CountFormat) groupReadHeaderSize() int {
	size := 8 // number of events is always set
	if f.Enabled {
		size += 8
	}
	if f.Running {
		size += 8
	}
	return size
}

func (f CountFormat) groupReadCountSize() int {
	size := 8 // value is always set
	if f.ID {
		size += 8
	}
	return size
}

// marshal marshals the CountFormat into a uint64.
func (f CountFormat) marshal() uint64 {
	// Always keep this in sync with the type definition above.
	fields := []bool{
		f.Enabled,
		f.Running,
		f.ID,
		f.Group,
	}
	return marshalBitwiseUint64(fields)
}

// Options contains low level event options.
type Options struct {
	// Disabled disables the event by default. If the event is in a
	// group, but not a group leader, this option has no effect, since
	// the group leader controls when events are enabled or disabled.
	Disabled bool

	// Inherit specifies that this counter should count events of child
	// tasks as well as the specified task. Inherit does not work with
	// CountFormat.Group.
	Inherit bool

	// Pinned specifies that the counter should always be on the CPU if
	// possible. This bit applies only to hardware counters, and only
	// to group leaders.
	Pinned bool

	// Exclusive specifies that when this counter's group is on the CPU,
	// it should be the only group using the CPUs counters.
	Exclusive bool

	// ExcludeUser excludes events that happen in user space.
	ExcludeUser bool

	// ExcludeKernel excludes events that happen in kernel space.
	ExcludeKernel bool

	// ExcludeHypervisor excludes events that happen in the hypervisor.
	ExcludeHypervisor bool

	// ExcludeIdle disables counting while the CPU is idle.
	ExcludeIdle bool

	// EnableOnExec configures the counter to be enabled automatically
	// after a call to exec(2).
	EnableOnExec bool

	// ExcludeHost configures only events happening inside a guest
	// instance to be measured.
	ExcludeHost bool

	// ExcludeGuest is the opposite of ExcludeHost: it configures only
	// events outside a guest instance to be measured.
	ExcludeGuest bool
}

func (opt Options) marshal() uint64 {
	// Bit positions follow struct perf_event_attr. Sampling related
	// bits are not exposed and stay clear.
	fields := []bool{
		opt.Disabled,
		opt.Inherit,
		opt.Pinned,
		opt.Exclusive,
		opt.ExcludeUser,
		opt.ExcludeKernel,
		opt.ExcludeHypervisor,
		opt.ExcludeIdle,
		false, // mmap
		false, // comm
		false, // freq
		false, // inherit_stat
		opt.EnableOnExec,
		false, // task
		false, // watermark
		false, false, // precise_ip
		false, // mmap_data
		false, // sample_id_all
		opt.ExcludeHost,
		opt.ExcludeGuest,
	}
	return marshalBitwiseUint64(fields)
}
