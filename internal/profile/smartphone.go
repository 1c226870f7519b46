package profile

import "math"

// DeviceState describes what the handset is doing at an instant; the load
// model maps it to a power draw.
type DeviceState struct {
	ScreenOn          bool
	ScreenBrightness  float64 // 0..1
	CPULoad           float64 // 0..1
	NetworkType       string  // "wifi", "5g", "4g", "none"
	NetworkThroughput float64 // 0..1
	GPSOn             bool
	AudioOn           bool
}

// Smartphone converts a usage schedule into battery current demand via a
// component power model. Power is converted to current through the present
// terminal voltage assuming a 95% efficient DC-DC stage, so demand rises as
// the cell sags.
type Smartphone struct {
	// component power budget, watts
	IdleBase   float64
	DeepSleep  float64
	ScreenMax  float64
	CPUIdle    float64
	CPUMax     float64
	WifiActive float64
	Net5G      float64
	Net4G      float64
	NetStandby float64
	GPS        float64
	Audio      float64

	// Schedule maps elapsed seconds to a device state. Nil means idle
	// with the screen off.
	Schedule func(t float64) DeviceState
}

// NewSmartphone returns a flagship-class handset power budget.
func NewSmartphone(schedule func(t float64) DeviceState) *Smartphone {
	return &Smartphone{
		IdleBase:   0.05,
		DeepSleep:  0.008,
		ScreenMax:  2.0,
		CPUIdle:    0.2,
		CPUMax:     5.0,
		WifiActive: 0.3,
		Net5G:      1.5,
		Net4G:      1.0,
		NetStandby: 0.02,
		GPS:        0.3,
		Audio:      0.3,
		Schedule:   schedule,
	}
}

func (s *Smartphone) Current(voltage, t float64) float64 {
	state := DeviceState{}
	if s.Schedule != nil {
		state = s.Schedule(t)
	}
	power := s.Power(state)

	v := math.Max(voltage, 2.5)
	return power / (v * 0.95)
}

// Power evaluates the component power model for one device state. The deep
// sleep path applies only when the screen is off, the CPU is near idle and
// the radio has no throughput.
func (s *Smartphone) Power(state DeviceState) float64 {
	if !state.ScreenOn && state.CPULoad < 0.02 && state.NetworkThroughput < 0.01 {
		return s.DeepSleep
	}

	power := s.IdleBase

	if state.ScreenOn {
		power += s.ScreenMax * state.ScreenBrightness
	}

	// CPU draw grows superlinearly with load (frequency scaling).
	power += s.CPUIdle + (s.CPUMax-s.CPUIdle)*math.Pow(state.CPULoad, 1.5)

	switch state.NetworkType {
	case "wifi":
		power += s.NetStandby + s.WifiActive*state.NetworkThroughput
	case "5g":
		power += s.NetStandby + s.Net5G*state.NetworkThroughput
	case "4g":
		power += s.NetStandby + s.Net4G*state.NetworkThroughput
	}

	if state.GPSOn {
		power += s.GPS
	}
	if state.AudioOn {
		power += s.Audio
	}

	return power
}

// MixedUseSchedule is a demo day: alternating screen-on browsing bursts and
// pocket time, with a GPS navigation stretch.
func MixedUseSchedule(t float64) DeviceState {
	minute := math.Mod(t/60.0, 30.0)
	switch {
	case minute < 5:
		return DeviceState{
			ScreenOn: true, ScreenBrightness: 0.6, CPULoad: 0.35,
			NetworkType: "wifi", NetworkThroughput: 0.4,
		}
	case minute < 10:
		return DeviceState{CPULoad: 0.01, NetworkType: "wifi"}
	case minute < 15:
		return DeviceState{
			ScreenOn: true, ScreenBrightness: 0.8, CPULoad: 0.5,
			NetworkType: "5g", NetworkThroughput: 0.6,
			GPSOn: true, AudioOn: true,
		}
	default:
		return DeviceState{CPULoad: 0.01}
	}
}
