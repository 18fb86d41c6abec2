//go:build tinygo

package sensor

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers/dht"
)

// Hardware sensor implementations for microcontroller builds.

// NewClimate returns the climate sensor selected by typ, wired to pin.
func NewClimate(typ string, pin machine.Pin) (ClimateSensor, error) {
	switch typ {
	case "DHT22":
		return NewDHT22(pin), nil
	default:
		return nil, fmt.Errorf("unsupported climate sensor %q", typ)
	}
}

// DHT22 reads temperature and humidity from a DHT22 on a GPIO pin.
type DHT22 struct {
	dev dht.DummyDevice
}

func NewDHT22(pin machine.Pin) *DHT22 {
	return &DHT22{dev: dht.New(pin, dht.DHT22)}
}

func (d *DHT22) Read() (float32, float32, error) {
	temperature, err := d.dev.TemperatureFloat(dht.C)
	if err != nil {
		return 0, 0, err
	}
	humidity, err := d.dev.HumidityFloat()
	if err != nil {
		return 0, 0, err
	}
	return temperature, humidity, nil
}

// ADCGas reads the raw MQ gas level from an ADC pin. The converter reports
// left-aligned 16-bit samples; shift down to the 12-bit range the record
// carries.
type ADCGas struct {
	adc machine.ADC
}

func NewADCGas(pin machine.Pin) *ADCGas {
	machine.InitADC()
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return &ADCGas{adc: adc}
}

func (g *ADCGas) Read() (int32, error) {
	return int32(g.adc.Get() >> 4), nil
}
