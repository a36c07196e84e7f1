package depthfeed

import (
	"encoding/json"

	"depth-feed/internal/depthview"
)

const (
	MsgLayout = "layout"
	MsgCells  = "cells"
	MsgStatus = "status"
	MsgError  = "error"
)

// Message is the envelope of everything pushed to presentation clients.
// Seq orders the cells messages; a client ignores batches at or below the
// seq of the full state it was greeted with.
type Message struct {
	Type   string                 `json:"type"`
	Seq    uint64                 `json:"seq,omitempty"`
	Symbol string                 `json:"symbol,omitempty"`
	Full   bool                   `json:"full,omitempty"`
	Layout *depthview.Layout      `json:"layout,omitempty"`
	Cells  []depthview.CellUpdate `json:"cells,omitempty"`
	Status *Status                `json:"status,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

type Status struct {
	Source string `json:"source"`
	Alive  bool   `json:"alive"`
}

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// ErrorMessage encodes a message reporting a rejected client command.
func ErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Type: MsgError, Error: text})

	return b
}
