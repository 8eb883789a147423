package daemon

import (
	"encoding/json"
	"time"

	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

// Event is one revalidation outcome published over the watch-mode PUB
// socket, the structural analog of the block/chain events
// cmd/tztop subscribes to.
type Event struct {
	Path     string                  `json:"path"`
	Valid    bool                    `json:"valid"`
	Errors   []validator.ErrorRecord `json:"errors,omitempty"`
	Duration time.Duration           `json:"durationNs"`
	Err      string                  `json:"err,omitempty"` // set instead of Errors when the fixture cannot be built or Validate returns an error
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}

func unmarshalEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
