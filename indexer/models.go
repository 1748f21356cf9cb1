package indexer

import "gorm.io/gorm"

// Event is one committed protocol event as stored by the indexer.
type Event struct {
	Sequence  uint64 `gorm:"primaryKey;autoIncrement:false" json:"sequence"`
	Type      string `gorm:"index;not null" json:"type"`
	ObjectID  string `gorm:"index" json:"objectId,omitempty"`
	Timestamp int64  `gorm:"index" json:"timestamp"`
	// Attributes holds the event attributes as a JSON object.
	Attributes string `gorm:"type:text" json:"attributes"`
}

// Object is the read model of an order, auction or escrow: its latest known
// status and the fields a UI lists it by. Rows are kept after the object
// leaves the engine so its outcome stays queryable.
type Object struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Kind        string `gorm:"index;not null" json:"kind"`
	Status      string `gorm:"index;not null" json:"status"`
	Owner       string `gorm:"index" json:"owner,omitempty"`
	Resolver    string `gorm:"index" json:"resolver,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Filled      string `json:"filled,omitempty"`
	SourceID    string `gorm:"index" json:"sourceId,omitempty"`
	FillIndex   string `json:"fillIndex,omitempty"`
	Hashlock    string `json:"hashlock,omitempty"`
	Secret      string `json:"secret,omitempty"`
	CreatedSeq  uint64 `json:"createdSequence"`
	UpdatedSeq  uint64 `json:"updatedSequence"`
	LastEventAt int64  `json:"lastEventAt"`
	EventsCount int    `json:"eventsCount"`
}

// Cursor remembers how far a consumer has read the event log.
type Cursor struct {
	Name     string `gorm:"primaryKey"`
	Sequence uint64
}

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Event{}, &Object{}, &Cursor{})
}
