package entity

import (
	"fmt"

	"github.com/garyjia/leave-approval/internal/domain/workflow"
)

// Sheet column positions (1-based) for a leave request row.
// Row 1 of the sheet is the fixed header row.
const (
	ColID = iota + 1
	ColRequesterID
	ColLeaveType
	ColStartDate
	ColEndDate
	ColStatus
	ColHistory
	ColSubmittedAt
	ColReason

	ColumnCount = ColReason
)

// HeaderRow is the row index of the sheet header
const HeaderRow = 1

// Header holds the fixed column titles written at row 1
var Header = []string{
	"id", "requesterId", "leaveType", "startDate", "endDate",
	"status", "approvalHistory", "submittedAt", "reason",
}

// DefaultReason is the sentinel stored when the requester gave no reason
const DefaultReason = "無"

// LeaveRequest is one row-record describing a time-off application and its
// approval progress. All fields except Status and ApprovalHistory are
// immutable after submission; ApprovalHistory is append-only.
type LeaveRequest struct {
	ID              string
	RequesterID     string
	LeaveType       string
	StartDate       string
	EndDate         string
	Status          workflow.State
	ApprovalHistory string
	SubmittedAt     string
	Reason          string
}

// Row renders the request as sheet cells in fixed column order
func (r *LeaveRequest) Row() []string {
	return []string{
		r.ID,
		r.RequesterID,
		r.LeaveType,
		r.StartDate,
		r.EndDate,
		r.Status.String(),
		r.ApprovalHistory,
		r.SubmittedAt,
		r.Reason,
	}
}

// FromRow reconstructs a request from sheet cells. Short rows (trailing
// empty cells trimmed by the sheet backend) are padded with empty strings.
func FromRow(cells []string) (*LeaveRequest, error) {
	if len(cells) == 0 || cells[0] == "" {
		return nil, fmt.Errorf("row has no id cell")
	}
	if len(cells) < ColumnCount {
		padded := make([]string, ColumnCount)
		copy(padded, cells)
		cells = padded
	}

	return &LeaveRequest{
		ID:              cells[ColID-1],
		RequesterID:     cells[ColRequesterID-1],
		LeaveType:       cells[ColLeaveType-1],
		StartDate:       cells[ColStartDate-1],
		EndDate:         cells[ColEndDate-1],
		Status:          workflow.State(cells[ColStatus-1]),
		ApprovalHistory: cells[ColHistory-1],
		SubmittedAt:     cells[ColSubmittedAt-1],
		Reason:          cells[ColReason-1],
	}, nil
}
