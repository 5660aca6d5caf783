// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

// TimerTick handles the Timer1 overflow.
//
// It toggles the indicator, reloads the counter so the next tick is a full
// period away, and starts a conversion. It does no encoding or
// transmission, and never blocks.
func (a *Acquirer) TimerTick() {
	a.ind.Toggle()
	a.timer.Reload()
	a.adc.StartConversion()
	a.ticks.Add(1)
}

// ConversionComplete handles the ADC conversion complete interrupt.
//
// It only raises the ready flag. The sample stays in ADCL/ADCH until the
// next conversion overwrites it, so the main loop may read a result newer
// than the one that raised the flag it observed.
func (a *Acquirer) ConversionComplete() {
	a.ready.Set()
}
