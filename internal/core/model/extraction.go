package model

import (
	"strconv"
	"time"
)

// NodeError is a per-node extraction failure. The batch continues past it.
type NodeError struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

func (e NodeError) Error() string {
	return "node " + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e NodeError) Unwrap() error { return e.Err }

// Dataset is the raw last-ingested document kept for audit.
type Dataset struct {
	ID        string    `json:"id"`
	Payload   string    `json:"payload"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultDatasetID is the id of the single dataset record.
const DefaultDatasetID = "default"

// ImportReport summarises one ingestion pass.
type ImportReport struct {
	RunID           string      `json:"run_id"`
	PersonsImported int         `json:"persons_imported"`
	EdgesStored     int         `json:"edges_stored"`
	ClosureRows     int         `json:"closure_rows"`
	ClosureBuilt    bool        `json:"closure_built"`
	SkippedNodes    int         `json:"skipped_nodes"`
	NodeErrorCount  int         `json:"node_errors"`
	NodeErrors      []NodeError `json:"-"`
	RejectedEdges   []Edge      `json:"rejected_edges,omitempty"`
	MissingIDs      []string    `json:"missing_ids,omitempty"`
}

// MissingPreviewSize bounds how many missing identities a warning lists.
const MissingPreviewSize = 10

// MissingPreview returns at most MissingPreviewSize missing identities and
// whether the list was truncated.
func (r ImportReport) MissingPreview() ([]string, bool) {
	if len(r.MissingIDs) <= MissingPreviewSize {
		return r.MissingIDs, false
	}
	return r.MissingIDs[:MissingPreviewSize], true
}
