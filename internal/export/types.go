package export

import (
	"errors"
	"time"
)

// #region item-state

// ItemState is the delivery state of one queued item.
type ItemState string

const (
	StateQueued                 ItemState = "queued"
	StateSending                ItemState = "sending"
	StateRetryPending           ItemState = "retry_pending"
	StateDelivered              ItemState = "delivered"
	StatePersistedForManualSync ItemState = "persisted_for_manual_sync"
)

// #endregion item-state

// #region errors

// ErrDelivery marks a transient failure talking to the ledger endpoint.
var ErrDelivery = errors.New("delivery failure")

// ErrPersistence marks a failed local durable write.
var ErrPersistence = errors.New("persistence failure")

// #endregion errors

// #region item

// Item is one mission result bound for the external ledger. It is immutable
// once enqueued; the queue keeps its own copy.
type Item struct {
	ID               string
	MissionID        string
	Digest           string
	SeedVersion      string
	Timestamp        int64 // mission start, unix ms
	Modules          []string
	ContributorID    string
	Heat             float64
	PerformanceScore float64
	Tier             string
	Signature        string // opaque, from an external signer; optional
}

func (it Item) clone() Item {
	it.Modules = append([]string(nil), it.Modules...)
	return it
}

// #endregion item

// #region receipt

// Receipt is the ledger's response to a successful delivery. Every field is
// optional; a 2xx without them still counts as delivered.
type Receipt struct {
	ReplayID   string `json:"replayId"`
	SignedSeed string `json:"signedSeed"`
	RemixSeed  string `json:"remixSeed"`
}

// #endregion receipt

// #region attempt

// Attempt describes one delivery attempt, handed to an AttemptRecorder.
type Attempt struct {
	ItemID    string
	MissionID string
	Digest    string
	Number    int // 1-based within the current retry cycle
	State     ItemState
	Error     string
	ReplayID  string
	CreatedAt time.Time
}

// #endregion attempt

// #region config

// Config holds retry and timing parameters.
type Config struct {
	MaxRetries     int           // attempts before persisting for manual sync (default 3)
	BackoffBase    float64       // wait = BackoffUnit * BackoffBase^(attempt-1) (default 2)
	BackoffUnit    time.Duration // default 1s
	MaxBackoff     time.Duration // cap on a single wait (default 5m)
	AttemptTimeout time.Duration // per-send timeout (default 10s)
}

// DefaultConfig returns 3 attempts with 1s, 2s waits between them.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BackoffBase:    2,
		BackoffUnit:    time.Second,
		MaxBackoff:     5 * time.Minute,
		AttemptTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BackoffBase < 1 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = def.BackoffUnit
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	return c
}

// #endregion config

// #region stats

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending   int
	Failed    int
	Delivered int
	Running   bool
}

// #endregion stats
