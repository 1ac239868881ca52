package domain

import (
	"time"

	"github.com/google/uuid"
)

// BackendConfig is the persisted definition of one monitored backend:
// enough to reconstruct the Insert call a VCL-equivalent config layer
// would have made. It is deliberately history-free — no bitmaps, no
// averages, no probe results — persisting probe history across process
// restarts is out of scope (spec Non-goals); only the *configuration*
// needed to resume monitoring is durable.
type BackendConfig struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Address4    string    `json:"address4,omitempty"`
	Address6    string    `json:"address6,omitempty"`
	HostHeader  string    `json:"host_header,omitempty"`
	Probe       ProbeSpec `json:"probe"`
	CreatedAt   time.Time `json:"created_at"`
}
