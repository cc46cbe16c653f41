package wasapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gen2brain/wasapi/internal/engine"
)

// Device is an audio endpoint.
type Device struct {
	device    engine.Device
	direction Direction
	log       zerolog.Logger
}

func newDevice(d engine.Device, direction Direction) *Device {
	return &Device{
		device:    d,
		direction: direction,
		log:       componentLogger("device"),
	}
}

func flowCode(d Direction) uint32 {
	if d == Capture {
		return engine.FlowCapture
	}

	return engine.FlowRender
}

func directionFromFlow(flow uint32) (Direction, error) {
	switch flow {
	case engine.FlowRender:
		return Render, nil
	case engine.FlowCapture:
		return Capture, nil
	default:
		return 0, &IllegalEnumError{Kind: "data flow", Value: flow}
	}
}

func roleCode(r Role) (uint32, error) {
	switch r {
	case Console:
		return engine.RoleConsole, nil
	case Multimedia:
		return engine.RoleMultimedia, nil
	case Communications:
		return engine.RoleCommunications, nil
	default:
		return 0, &IllegalEnumError{Kind: "role", Value: uint32(r)}
	}
}

// DefaultDevice returns the default console device for direction.
func DefaultDevice(direction Direction) (*Device, error) {
	return DefaultDeviceForRole(direction, Console)
}

// DefaultDeviceForRole returns the default device for direction and role.
func DefaultDeviceForRole(direction Direction, role Role) (*Device, error) {
	code, err := roleCode(role)
	if err != nil {
		return nil, err
	}

	enumerator, err := backend.Enumerator()
	if err != nil {
		return nil, err
	}
	defer enumerator.Close()

	d, err := enumerator.Default(flowCode(direction), code)
	if err != nil {
		return nil, fmt.Errorf("failed to get default %s device for role %s: %w", direction, role, err)
	}

	return newDevice(d, direction), nil
}

// DeviceByID returns the device with the endpoint id, as returned by Device.ID.
func DeviceByID(id string) (*Device, error) {
	enumerator, err := backend.Enumerator()
	if err != nil {
		return nil, err
	}
	defer enumerator.Close()

	d, err := enumerator.Device(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", &DeviceNotFoundError{Name: id}, err)
	}

	flow, err := d.Flow()
	if err != nil {
		_ = d.Close()

		return nil, err
	}

	direction, err := directionFromFlow(flow)
	if err != nil {
		_ = d.Close()

		return nil, err
	}

	return newDevice(d, direction), nil
}

// Direction returns the data flow of the device.
func (d *Device) Direction() Direction {
	return d.direction
}

// Name returns the friendly name, e.g. "Speakers (Realtek Audio)".
func (d *Device) Name() (string, error) {
	name, err := d.device.Property(engine.PKeyDeviceFriendlyName)
	if err != nil {
		return "", fmt.Errorf("failed to read friendly name: %w", err)
	}

	return name, nil
}

// Description returns the device description, e.g. "Speakers".
func (d *Device) Description() (string, error) {
	desc, err := d.device.Property(engine.PKeyDeviceDescription)
	if err != nil {
		return "", fmt.Errorf("failed to read device description: %w", err)
	}

	return desc, nil
}

// ID returns the endpoint id string.
func (d *Device) ID() (string, error) {
	return d.device.ID()
}

// State returns the device state.
func (d *Device) State() (DeviceState, error) {
	code, err := d.device.State()
	if err != nil {
		return 0, err
	}

	switch s := DeviceState(code); s {
	case DeviceStateActive, DeviceStateDisabled, DeviceStateNotPresent, DeviceStateUnplugged:
		return s, nil
	default:
		return 0, &IllegalEnumError{Kind: "device state", Value: code}
	}
}

// String returns the friendly name and the direction of the device.
func (d *Device) String() string {
	name, err := d.Name()
	if err != nil {
		name = "<unknown>"
	}

	return fmt.Sprintf("%s [%s]", name, d.direction)
}

// NewAudioClient creates an unbound client on the device.
func (d *Device) NewAudioClient() (*AudioClient, error) {
	c, err := d.device.Activate()
	if err != nil {
		return nil, err
	}

	return newAudioClient(c, d.direction, false), nil
}

// Close releases the device.
func (d *Device) Close() error {
	if d == nil || d.device == nil {
		return nil
	}

	err := d.device.Close()
	d.device = nil

	return err
}

// NewInitializedClient creates a client on device and initializes it. If the engine rejects the
// period with AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED, the aligned buffer size it reports is converted
// to a period, the rejected client is released and a new client is initialized once more with
// that period.
func NewInitializedClient(device *Device, format WaveFormat, direction Direction, mode StreamMode) (*AudioClient, error) {
	client, err := device.NewAudioClient()
	if err != nil {
		return nil, err
	}

	err = client.Initialize(format, direction, mode)
	if err == nil {
		return client, nil
	}

	if !errors.Is(err, AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED) {
		_ = client.Close()

		return nil, err
	}

	// The buffer size of a client that failed with this error is the next aligned size.
	frames, berr := client.client.BufferSize()
	_ = client.Close()
	if berr != nil {
		return nil, fmt.Errorf("failed to read aligned buffer size: %w", berr)
	}

	period := Period100ns(int64(frames), format.SampleRate())
	device.log.Debug().Uint32("frames", frames).Int64("period", period).Msg("retrying with aligned period")

	mode.Period = period
	if mode.ShareMode == Shared {
		mode.BufferDuration = period
	}

	client, err = device.NewAudioClient()
	if err != nil {
		return nil, err
	}

	if err := client.Initialize(format, direction, mode); err != nil {
		_ = client.Close()

		return nil, err
	}

	return client, nil
}

// DeviceCollection is the list of active devices of one direction.
type DeviceCollection struct {
	direction Direction
	devices   []*Device
}

// Devices enumerates the active devices for direction.
func Devices(direction Direction) (*DeviceCollection, error) {
	enumerator, err := backend.Enumerator()
	if err != nil {
		return nil, err
	}
	defer enumerator.Close()

	list, err := enumerator.Devices(flowCode(direction))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s devices: %w", direction, err)
	}

	c := &DeviceCollection{direction: direction, devices: make([]*Device, 0, len(list))}
	for _, d := range list {
		c.devices = append(c.devices, newDevice(d, direction))
	}

	return c, nil
}

// Direction returns the direction of the devices.
func (c *DeviceCollection) Direction() Direction {
	return c.direction
}

// Len returns the number of devices.
func (c *DeviceCollection) Len() int {
	if c == nil {
		return 0
	}

	return len(c.devices)
}

// Device returns the device at index.
func (c *DeviceCollection) Device(index int) (*Device, error) {
	if c == nil {
		return nil, fmt.Errorf("device collection is nil")
	}

	if index < 0 || index >= len(c.devices) {
		return nil, fmt.Errorf("device index %d out of range [0, %d)", index, len(c.devices))
	}

	return c.devices[index], nil
}

// DeviceByName returns the first device whose friendly name equals name.
func (c *DeviceCollection) DeviceByName(name string) (*Device, error) {
	if c == nil {
		return nil, fmt.Errorf("device collection is nil")
	}

	for _, d := range c.devices {
		n, err := d.Name()
		if err != nil {
			continue
		}
		if strings.EqualFold(n, name) {
			return d, nil
		}
	}

	return nil, &DeviceNotFoundError{Name: name}
}

// All returns the devices.
func (c *DeviceCollection) All() []*Device {
	if c == nil {
		return nil
	}

	return c.devices
}

// Close releases every device of the collection.
func (c *DeviceCollection) Close() error {
	if c == nil {
		return nil
	}

	var errs []error
	for _, d := range c.devices {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.devices = nil

	return errors.Join(errs...)
}
