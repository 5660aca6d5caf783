// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package profile loads peripheral setup profiles from YAML.
//
// A profile describes the one-time setup applied by adcmon.Init in terms of
// what it achieves, such as the clock, tick prescaler and ADC channel,
// rather than raw register values. Fields omitted from a profile keep the
// values of adcmon.DefaultConfig.
//
// Example profile:
//
//	clock: 16000000
//	timer:
//	  prescaler: 8
//	  reload: 55535
//	serial:
//	  ubrr: 51
//	adc:
//	  channel: 5
//	  prescaler: 64
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/warthog618/adcmon"
	"gopkg.in/yaml.v3"
)

var (
	// ErrBadProfile indicates a profile contains an invalid setting.
	ErrBadProfile = errors.New("bad profile")
)

// Profile is the YAML form of an adcmon.Config.
type Profile struct {
	Clock  uint32 `yaml:"clock"`
	Timer  Timer  `yaml:"timer"`
	Serial Serial `yaml:"serial"`
	ADC    ADC    `yaml:"adc"`
	Ports  Ports  `yaml:"ports"`
}

// Timer describes the Timer1 tick.
type Timer struct {
	Prescaler uint32  `yaml:"prescaler"`
	Reload    *uint16 `yaml:"reload"`
	Interrupt *bool   `yaml:"interrupt"`
}

// Serial describes the USART0 frame and rate.
type Serial struct {
	UBRR     uint16 `yaml:"ubrr"`
	DataBits uint8  `yaml:"data_bits"`
	StopBits uint8  `yaml:"stop_bits"`
	Receiver *bool  `yaml:"receiver"`
}

// ADC describes the converter setup.
type ADC struct {
	Channel   *uint8 `yaml:"channel"`
	Prescaler uint32 `yaml:"prescaler"`
	Reference *uint8 `yaml:"reference"`
	LeftAlign bool   `yaml:"left_align"`
}

// Ports holds raw port and external interrupt setup.
type Ports struct {
	DDRB  *uint8 `yaml:"ddrb"`
	DDRD  *uint8 `yaml:"ddrd"`
	PORTD *uint8 `yaml:"portd"`
	EICRA *uint8 `yaml:"eicra"`
	EIMSK *uint8 `yaml:"eimsk"`
}

// Load reads a profile file and returns the resulting Config.
func Load(path string) (adcmon.Config, error) {
	p, err := Read(path)
	if err != nil {
		return adcmon.Config{}, err
	}
	cfg, err := p.Config()
	if err != nil {
		return adcmon.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Read reads a profile file.
func Read(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	p, err := Decode(data)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode decodes a YAML profile. Unknown fields are rejected.
func Decode(data []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Parse decodes a YAML profile and returns the resulting Config.
func Parse(data []byte) (adcmon.Config, error) {
	p, err := Decode(data)
	if err != nil {
		return adcmon.Config{}, err
	}
	return p.Config()
}

// Default returns the profile matching adcmon.DefaultConfig.
func Default() Profile {
	c := adcmon.DefaultConfig()
	ch := c.Channel()
	ref := c.ADMUX >> 6
	reload := c.Reload
	irq := true
	rx := true
	return Profile{
		Clock: c.Clock,
		Timer: Timer{
			Prescaler: adcmon.TimerPrescale(c.TCCR1B),
			Reload:    &reload,
			Interrupt: &irq,
		},
		Serial: Serial{
			UBRR:     c.UBRR0,
			DataBits: 8,
			StopBits: 1,
			Receiver: &rx,
		},
		ADC: ADC{
			Channel:   &ch,
			Prescaler: adcmon.ADCPrescale(c.ADCSRA),
			Reference: &ref,
		},
	}
}

// Marshal returns the YAML form of the profile.
func (p Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

var timerSelect = map[uint32]uint8{1: 1, 8: 2, 64: 3, 256: 4, 1024: 5}

var adcSelect = map[uint32]uint8{2: 1, 4: 2, 8: 3, 16: 4, 32: 5, 64: 6, 128: 7}

// Config converts the profile to register values, starting from
// adcmon.DefaultConfig.
func (p Profile) Config() (adcmon.Config, error) {
	c := adcmon.DefaultConfig()
	if p.Clock != 0 {
		c.Clock = p.Clock
	}

	// Timer1
	if p.Timer.Prescaler != 0 {
		cs, ok := timerSelect[p.Timer.Prescaler]
		if !ok {
			return c, fmt.Errorf("%w: timer prescaler %d", ErrBadProfile, p.Timer.Prescaler)
		}
		c.TCCR1B = c.TCCR1B&^adcmon.CS1Mask | cs
	}
	if p.Timer.Reload != nil {
		c.Reload = *p.Timer.Reload
	}
	if p.Timer.Interrupt != nil && !*p.Timer.Interrupt {
		c.TIMSK1 &^= adcmon.TOIE1
	}

	// USART0
	if p.Serial.UBRR != 0 {
		if p.Serial.UBRR > 0x0fff {
			return c, fmt.Errorf("%w: ubrr %d", ErrBadProfile, p.Serial.UBRR)
		}
		c.UBRR0 = p.Serial.UBRR
	}
	if p.Serial.DataBits != 0 {
		if p.Serial.DataBits < 5 || p.Serial.DataBits > 8 {
			return c, fmt.Errorf("%w: data bits %d", ErrBadProfile, p.Serial.DataBits)
		}
		c.UCSR0C = c.UCSR0C&^adcmon.UCSZ0Mask | (p.Serial.DataBits-5)<<1
	}
	switch p.Serial.StopBits {
	case 0, 1:
	case 2:
		c.UCSR0C |= adcmon.USBS0
	default:
		return c, fmt.Errorf("%w: stop bits %d", ErrBadProfile, p.Serial.StopBits)
	}
	if p.Serial.Receiver != nil && !*p.Serial.Receiver {
		c.UCSR0B &^= adcmon.RXEN0
	}

	// ADC
	if p.ADC.Channel != nil {
		if !validChannel(*p.ADC.Channel) {
			return c, fmt.Errorf("%w: adc channel %d", ErrBadProfile, *p.ADC.Channel)
		}
		c.ADMUX = c.ADMUX&^adcmon.MUXMask | *p.ADC.Channel
	}
	if p.ADC.Reference != nil {
		if *p.ADC.Reference > 3 {
			return c, fmt.Errorf("%w: adc reference %d", ErrBadProfile, *p.ADC.Reference)
		}
		c.ADMUX = c.ADMUX&^adcmon.REFSMask | *p.ADC.Reference<<6
	}
	if p.ADC.LeftAlign {
		c.ADMUX |= adcmon.ADLAR
	}
	if p.ADC.Prescaler != 0 {
		ps, ok := adcSelect[p.ADC.Prescaler]
		if !ok {
			return c, fmt.Errorf("%w: adc prescaler %d", ErrBadProfile, p.ADC.Prescaler)
		}
		c.ADCSRA = c.ADCSRA&^adcmon.ADPSMask | ps
	}

	// Ports
	setIf(&c.DDRB, p.Ports.DDRB)
	setIf(&c.DDRD, p.Ports.DDRD)
	setIf(&c.PORTD, p.Ports.PORTD)
	setIf(&c.EICRA, p.Ports.EICRA)
	setIf(&c.EIMSK, p.Ports.EIMSK)
	return c, nil
}

// validChannel accepts the single ended inputs, the temperature sensor,
// and the 1V1 and GND references.
func validChannel(ch uint8) bool {
	return ch <= 8 || ch == 14 || ch == 15
}

func setIf(dst *uint8, v *uint8) {
	if v != nil {
		*dst = *v
	}
}
