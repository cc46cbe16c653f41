// Package enginetest provides a scripted, in-memory engine.Backend for tests.
package enginetest

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/gen2brain/wasapi/internal/engine"
)

// ErrNotFound is returned by the enumerator for unknown ids or missing defaults.
var ErrNotFound = errors.New("enginetest: not found")

// Backend is a fake engine.Backend.
type Backend struct {
	mu sync.Mutex

	Devices  []*Device
	Defaults map[uint32]*Device

	// LoopbackClient is returned by ActivateProcessLoopback unless LoopbackErr is set.
	LoopbackClient *Client
	LoopbackErr    error
	LoopbackPID    uint32
	LoopbackTree   bool

	InitErr       error
	Initialized   int
	Uninitialized int

	Events []*Event
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{Defaults: make(map[uint32]*Device)}
}

// AddDevice registers d. The first device of each flow becomes its default.
func (b *Backend) AddDevice(d *Device) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Devices = append(b.Devices, d)
	if _, ok := b.Defaults[d.FlowValue]; !ok {
		b.Defaults[d.FlowValue] = d
	}

	return d
}

// LastEvent returns the most recently created event.
func (b *Backend) LastEvent() *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.Events) == 0 {
		return nil
	}

	return b.Events[len(b.Events)-1]
}

func (b *Backend) Initialize(bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.InitErr != nil {
		return b.InitErr
	}
	b.Initialized++

	return nil
}

func (b *Backend) Uninitialize() {
	b.mu.Lock()
	b.Uninitialized++
	b.mu.Unlock()
}

func (b *Backend) Enumerator() (engine.Enumerator, error) {
	return &enumerator{b: b}, nil
}

func (b *Backend) NewEvent() (engine.Event, error) {
	ev := NewEvent()

	b.mu.Lock()
	b.Events = append(b.Events, ev)
	b.mu.Unlock()

	return ev, nil
}

func (b *Backend) ActivateProcessLoopback(pid uint32, includeTree bool) (engine.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.LoopbackPID, b.LoopbackTree = pid, includeTree
	if b.LoopbackErr != nil {
		return nil, b.LoopbackErr
	}
	if b.LoopbackClient == nil {
		b.LoopbackClient = NewClient()
	}

	return b.LoopbackClient, nil
}

type enumerator struct {
	b *Backend
}

func (e *enumerator) Devices(flow uint32) ([]engine.Device, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()

	var out []engine.Device
	for _, d := range e.b.Devices {
		if d.FlowValue == flow && d.StateValue == 1 {
			out = append(out, d)
		}
	}

	return out, nil
}

func (e *enumerator) Default(flow, _ uint32) (engine.Device, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()

	d, ok := e.b.Defaults[flow]
	if !ok {
		return nil, ErrNotFound
	}

	return d, nil
}

func (e *enumerator) Device(id string) (engine.Device, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()

	for _, d := range e.b.Devices {
		if d.IDValue == id {
			return d, nil
		}
	}

	return nil, ErrNotFound
}

func (e *enumerator) Close() error {
	return nil
}

// Device is a fake endpoint.
type Device struct {
	mu sync.Mutex

	IDValue     string
	Name        string
	Description string
	StateValue  uint32
	FlowValue   uint32

	// NewClient builds the client returned by each Activate call.
	NewClient func() *Client
	Clients   []*Client
}

// NewDevice returns an active device whose clients accept every format.
func NewDevice(id, name string, flow uint32) *Device {
	return &Device{IDValue: id, Name: name, Description: name, StateValue: 1, FlowValue: flow}
}

func (d *Device) ID() (string, error) {
	return d.IDValue, nil
}

func (d *Device) Property(key engine.PropertyKey) (string, error) {
	switch key {
	case engine.PKeyDeviceFriendlyName:
		return d.Name, nil
	case engine.PKeyDeviceDescription:
		return d.Description, nil
	default:
		return "", engine.E_INVALIDARG
	}
}

func (d *Device) State() (uint32, error) {
	return d.StateValue, nil
}

func (d *Device) Flow() (uint32, error) {
	return d.FlowValue, nil
}

func (d *Device) Activate() (engine.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var c *Client
	if d.NewClient != nil {
		c = d.NewClient()
	} else {
		c = NewClient()
	}
	d.Clients = append(d.Clients, c)

	return c, nil
}

func (d *Device) Close() error {
	return nil
}

// InitCall records the arguments of one Client.Initialize call.
type InitCall struct {
	ShareMode      uint32
	Flags          uint32
	BufferDuration int64
	Period         int64
	Format         []byte
}

// Client is a fake stream client.
type Client struct {
	mu sync.Mutex

	// InitializeErrs are returned by successive Initialize calls; a nil entry or an
	// exhausted list means success.
	InitializeErrs []error
	// Supported decides IsFormatSupported; nil accepts everything.
	Supported func(shareMode uint32, format []byte) ([]byte, error)

	MixFormatBlob []byte
	DefaultPeriod int64
	MinPeriod     int64
	BufferFrames  uint32
	Padding       uint32
	Latency       int64
	ServiceErr    error

	InitCalls    []InitCall
	SupportCalls [][]byte
	Starts       int
	Stops        int
	Resets       int
	Event        engine.Event
	Closed       bool

	Render  *Renderer
	Capture *Capturer
	Sess    *Session
	Clk     *Clock
}

// NewClient returns a client with a 10 ms default period and a 3 ms minimum period.
func NewClient() *Client {
	return &Client{
		DefaultPeriod: 100000,
		MinPeriod:     30000,
		BufferFrames:  4800,
		Latency:       100000,
		Render:        &Renderer{},
		Capture:       &Capturer{},
		Sess:          &Session{StateValue: 0},
		Clk:           &Clock{Freq: 48000},
	}
}

func (c *Client) Initialize(shareMode, flags uint32, bufferDuration, period int64, format []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.InitCalls = append(c.InitCalls, InitCall{
		ShareMode:      shareMode,
		Flags:          flags,
		BufferDuration: bufferDuration,
		Period:         period,
		Format:         append([]byte(nil), format...),
	})
	if len(c.InitializeErrs) > 0 {
		err := c.InitializeErrs[0]
		c.InitializeErrs = c.InitializeErrs[1:]
		if err != nil {
			return err
		}
	}

	blockAlign := uint32(binary.LittleEndian.Uint16(format[12:14]))
	c.Render.setBlockAlign(blockAlign)

	return nil
}

func (c *Client) BufferSize() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.BufferFrames, nil
}

func (c *Client) StreamLatency() (int64, error) {
	return c.Latency, nil
}

func (c *Client) CurrentPadding() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Padding, nil
}

func (c *Client) IsFormatSupported(shareMode uint32, format []byte) ([]byte, error) {
	c.mu.Lock()
	c.SupportCalls = append(c.SupportCalls, append([]byte(nil), format...))
	supported := c.Supported
	c.mu.Unlock()

	if supported == nil {
		return nil, nil
	}

	return supported(shareMode, format)
}

func (c *Client) MixFormat() ([]byte, error) {
	if c.MixFormatBlob == nil {
		return nil, engine.E_NOTIMPL
	}

	return append([]byte(nil), c.MixFormatBlob...), nil
}

func (c *Client) DevicePeriod() (int64, int64, error) {
	return c.DefaultPeriod, c.MinPeriod, nil
}

func (c *Client) Start() error {
	c.mu.Lock()
	c.Starts++
	c.mu.Unlock()

	return nil
}

func (c *Client) Stop() error {
	c.mu.Lock()
	c.Stops++
	c.mu.Unlock()

	return nil
}

func (c *Client) Reset() error {
	c.mu.Lock()
	c.Resets++
	c.mu.Unlock()

	return nil
}

func (c *Client) SetEventHandle(ev engine.Event) error {
	c.mu.Lock()
	c.Event = ev
	c.mu.Unlock()

	return nil
}

func (c *Client) Renderer() (engine.Renderer, error) {
	if c.ServiceErr != nil {
		return nil, c.ServiceErr
	}

	return c.Render, nil
}

func (c *Client) Capturer() (engine.Capturer, error) {
	if c.ServiceErr != nil {
		return nil, c.ServiceErr
	}

	return c.Capture, nil
}

func (c *Client) Session() (engine.Session, error) {
	if c.ServiceErr != nil {
		return nil, c.ServiceErr
	}

	return c.Sess, nil
}

func (c *Client) Clock() (engine.Clock, error) {
	if c.ServiceErr != nil {
		return nil, c.ServiceErr
	}

	return c.Clk, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()

	return nil
}

// Renderer is a fake render service that appends every released region to Data.
type Renderer struct {
	mu sync.Mutex

	blockAlign uint32
	pending    []byte

	GetErr    error
	Data      []byte
	Acquired  int
	Released  int
	FlagsSeen []uint32
}

func (r *Renderer) setBlockAlign(n uint32) {
	r.mu.Lock()
	r.blockAlign = n
	r.mu.Unlock()
}

func (r *Renderer) GetBuffer(frames uint32) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.GetErr != nil {
		return nil, r.GetErr
	}
	r.Acquired++
	r.pending = make([]byte, frames*r.blockAlign)

	return r.pending, nil
}

func (r *Renderer) ReleaseBuffer(frames, flags uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Released++
	r.FlagsSeen = append(r.FlagsSeen, flags)
	r.Data = append(r.Data, r.pending[:frames*r.blockAlign]...)
	r.pending = nil

	return nil
}

func (r *Renderer) Close() error {
	return nil
}

// Capturer is a fake capture service fed with Push.
type Capturer struct {
	mu sync.Mutex

	packets []engine.CapturedPacket

	Acquired       int
	Released       int
	ReleasedFrames []uint32
}

// Push queues a packet of frames carrying data.
func (c *Capturer) Push(data []byte, frames, flags uint32, devpos, qpc uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.packets = append(c.packets, engine.CapturedPacket{
		Data:           append([]byte(nil), data...),
		Frames:         frames,
		Flags:          flags,
		DevicePosition: devpos,
		Timestamp:      qpc,
	})
}

// Pending returns the number of queued packets.
func (c *Capturer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.packets)
}

func (c *Capturer) GetBuffer() (engine.CapturedPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Acquired++
	if len(c.packets) == 0 {
		return engine.CapturedPacket{}, nil
	}

	return c.packets[0], nil
}

func (c *Capturer) ReleaseBuffer(frames uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Released++
	c.ReleasedFrames = append(c.ReleasedFrames, frames)
	if frames > 0 && len(c.packets) > 0 {
		c.packets = c.packets[1:]
	}

	return nil
}

func (c *Capturer) NextPacketSize() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.packets) == 0 {
		return 0, nil
	}

	return c.packets[0].Frames, nil
}

func (c *Capturer) Close() error {
	return nil
}

// Session is a fake session control. Emit* methods deliver notifications from a
// separate goroutine and return after delivery.
type Session struct {
	mu sync.Mutex

	StateValue  uint32
	Name        string
	Icon        string
	Grouping    engine.GUID
	RegisterErr error

	// DeliverAfterUnregister keeps delivering to unregistered sinks, like
	// notifications the engine had already queued.
	DeliverAfterUnregister bool

	regs []*registration
}

type registration struct {
	s      *Session
	events engine.SessionEvents
	active bool
}

func (r *registration) Unregister() error {
	r.s.mu.Lock()
	r.active = false
	r.s.mu.Unlock()

	return nil
}

func (s *Session) State() (uint32, error) {
	return s.StateValue, nil
}

func (s *Session) DisplayName() (string, error) {
	return s.Name, nil
}

func (s *Session) IconPath() (string, error) {
	return s.Icon, nil
}

func (s *Session) GroupingParam() (engine.GUID, error) {
	return s.Grouping, nil
}

func (s *Session) Register(events engine.SessionEvents) (engine.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RegisterErr != nil {
		return nil, s.RegisterErr
	}
	r := &registration{s: s, events: events, active: true}
	s.regs = append(s.regs, r)

	return r, nil
}

// Registrations returns the number of still active registrations.
func (s *Session) Registrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.regs {
		if r.active {
			n++
		}
	}

	return n
}

func (s *Session) Close() error {
	return nil
}

func (s *Session) emit(fn func(engine.SessionEvents)) {
	s.mu.Lock()
	var targets []engine.SessionEvents
	for _, r := range s.regs {
		if r.active || s.DeliverAfterUnregister {
			targets = append(targets, r.events)
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, t := range targets {
			fn(t)
		}
	}()
	wg.Wait()
}

// EmitStateChanged delivers OnStateChanged.
func (s *Session) EmitStateChanged(state uint32) {
	s.emit(func(ev engine.SessionEvents) { ev.OnStateChanged(state) })
}

// EmitDisconnected delivers OnSessionDisconnected.
func (s *Session) EmitDisconnected(reason uint32) {
	s.emit(func(ev engine.SessionEvents) { ev.OnSessionDisconnected(reason) })
}

// EmitSimpleVolume delivers OnSimpleVolumeChanged.
func (s *Session) EmitSimpleVolume(volume float32, mute bool, ctx engine.GUID) {
	s.emit(func(ev engine.SessionEvents) { ev.OnSimpleVolumeChanged(volume, mute, ctx) })
}

// EmitChannelVolume delivers OnChannelVolumeChanged.
func (s *Session) EmitChannelVolume(volumes []float32, changed uint32, ctx engine.GUID) {
	s.emit(func(ev engine.SessionEvents) { ev.OnChannelVolumeChanged(volumes, changed, ctx) })
}

// EmitDisplayName delivers OnDisplayNameChanged.
func (s *Session) EmitDisplayName(name string, ctx engine.GUID) {
	s.emit(func(ev engine.SessionEvents) { ev.OnDisplayNameChanged(name, ctx) })
}

// EmitIconPath delivers OnIconPathChanged.
func (s *Session) EmitIconPath(path string, ctx engine.GUID) {
	s.emit(func(ev engine.SessionEvents) { ev.OnIconPathChanged(path, ctx) })
}

// EmitGroupingParam delivers OnGroupingParamChanged.
func (s *Session) EmitGroupingParam(param, ctx engine.GUID) {
	s.emit(func(ev engine.SessionEvents) { ev.OnGroupingParamChanged(param, ctx) })
}

// Clock is a fake stream clock.
type Clock struct {
	Freq uint64
	Pos  uint64
	QPC  uint64
}

func (c *Clock) Frequency() (uint64, error) {
	return c.Freq, nil
}

func (c *Clock) Position() (uint64, uint64, error) {
	return c.Pos, c.QPC, nil
}

func (c *Clock) Close() error {
	return nil
}

// Event is a fake auto-reset event.
type Event struct {
	ch     chan struct{}
	closed bool
}

// NewEvent returns an unsignaled event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Signal sets the event. Signaling a set event is a no-op.
func (e *Event) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *Event) Wait(timeoutMs uint32) (bool, error) {
	select {
	case <-e.ch:
		return true, nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return false, nil
	}
}

func (e *Event) Handle() uintptr {
	return 1
}

func (e *Event) Close() error {
	e.closed = true

	return nil
}
