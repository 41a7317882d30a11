package public

import "encoding/json"

// mineRequest is the body of a mine call. An omitted data field mines the
// payloads waiting in the mempool.
type mineRequest struct {
	Data json.RawMessage `json:"data"`
}

type status struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}
