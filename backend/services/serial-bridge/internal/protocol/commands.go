package protocol

// Line tags understood by the bridge.
const (
	TagAddCards = "ADDTO:cards"
	TagAddData  = "ADDTO:data"
	TagGet      = "GET:"
	TagDelete   = "DELETE:"
)

// Field keys used by the ADDTO commands.
const (
	FieldID          = "id"
	FieldPressure    = "pressure"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
)

// Command is one parsed device line. The concrete types below are the only
// implementations.
type Command interface {
	// Name identifies the command kind in logs.
	Name() string
	isCommand()
}

// UpsertCardFlags creates a card or overwrites its enable flags.
type UpsertCardFlags struct {
	CardID      int64
	Pressure    bool
	Temperature bool
	Humidity    bool
}

// InsertReading records a measurement for an existing card.
type InsertReading struct {
	CardID      int64
	Pressure    int32
	Temperature int32
	Humidity    int32
}

// QueryCard asks for a card's configured flags.
type QueryCard struct {
	CardID int64
}

// PurgeCard drops a card's readings and clears its flags.
type PurgeCard struct {
	CardID int64
}

// Unrecognized is a line whose tag the bridge does not handle. Applying it is a no-op.
type Unrecognized struct {
	Line string
}

func (UpsertCardFlags) Name() string { return "upsert_card_flags" }
func (InsertReading) Name() string   { return "insert_reading" }
func (QueryCard) Name() string       { return "query_card" }
func (PurgeCard) Name() string       { return "purge_card" }
func (Unrecognized) Name() string    { return "unrecognized" }

func (UpsertCardFlags) isCommand() {}
func (InsertReading) isCommand()   {}
func (QueryCard) isCommand()       {}
func (PurgeCard) isCommand()       {}
func (Unrecognized) isCommand()    {}
