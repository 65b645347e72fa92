package models

// Reading is one measurement sample reported for a card.
type Reading struct {
	CardID      int64 `db:"card_id" json:"card_id"`
	Pressure    int32 `db:"pressure" json:"pressure"`
	Temperature int32 `db:"temperature" json:"temperature"`
	Humidity    int32 `db:"humidity" json:"humidity"`
}
