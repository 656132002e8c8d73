// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/taibuivan/vitalis/pkg/ident"
)

// # Flow States

// State is a step of the report flow for one identifier.
type State string

const (
	StatePendingAccessOTP   State = "pending_access_otp"
	StateAccessVerified     State = "access_verified"
	StateGenerated          State = "generated"
	StatePendingDownloadOTP State = "pending_download_otp"
	StateDownloadVerified   State = "download_verified"
	StateDecrypted          State = "decrypted"
)

// Flow is the state machine record for one identifier.
//
// Revision changes on every write; stores use it for compare-and-swap so a
// restarted flow can never be mistaken for the one a request started from.
type Flow struct {
	Identifier     string     `json:"identifier"`
	IdentifierType ident.Type `json:"identifier_type"`
	State          State      `json:"state"`
	UserID         string     `json:"user_id,omitempty"`
	ReportID       string     `json:"report_id,omitempty"`
	Revision       string     `json:"revision"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// In reports whether the flow is in one of states.
func (flow *Flow) In(states ...State) bool {
	return slices.Contains(states, flow.State)
}

// ErrFlowNotFound is returned by a FlowStore when no live flow exists.
var ErrFlowNotFound = errors.New("report: flow not found")

// # Flow Data Access

// FlowStore persists flows with a sliding TTL.
type FlowStore interface {

	/*
		Get returns the live flow for identifier.

		Parameters:
		  - context: context.Context
		  - identifier: string (normalized)

		Returns:
		  - *Flow: Current record
		  - error: ErrFlowNotFound or backend failures
	*/
	Get(context context.Context, identifier string) (*Flow, error)

	/*
		Put writes flow unconditionally, replacing any existing record.

		Parameters:
		  - context: context.Context
		  - flow: *Flow (Revision must already be set)

		Returns:
		  - error: Backend failures
	*/
	Put(context context.Context, flow *Flow) error

	/*
		CompareAndSwap writes next only if the stored revision equals expectedRevision.

		Parameters:
		  - context: context.Context
		  - next: *Flow (carrying its new Revision)
		  - expectedRevision: string

		Returns:
		  - bool: false when the flow changed or expired since it was read
		  - error: Backend failures
	*/
	CompareAndSwap(context context.Context, next *Flow, expectedRevision string) (bool, error)
}
