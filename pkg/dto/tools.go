package dto

import "encoding/json"

type ExecuteToolRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

type BridgeStatusResponse struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
}
