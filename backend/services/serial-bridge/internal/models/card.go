package models

// Card is a device-identified sensor unit. A nil flag means the setting is unconfigured.
type Card struct {
	ID          int64 `db:"id" json:"id"`
	Pressure    *bool `db:"pressure" json:"pressure"`
	Temperature *bool `db:"temperature" json:"temperature"`
	Humidity    *bool `db:"humidity" json:"humidity"`
}

// SetFlags replaces all three flags.
func (c *Card) SetFlags(pressure, temperature, humidity bool) {
	c.Pressure = &pressure
	c.Temperature = &temperature
	c.Humidity = &humidity
}

// ClearFlags resets all three flags to unconfigured.
func (c *Card) ClearFlags() {
	c.Pressure = nil
	c.Temperature = nil
	c.Humidity = nil
}
