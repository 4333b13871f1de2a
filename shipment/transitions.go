package shipment

import "fmt"

// FeeOp is an operation that moves the fee lifecycle
type FeeOp string

const (
	FeeOpSubmit         FeeOp = "SubmitFees"
	FeeOpApprove        FeeOp = "ApproveFees"
	FeeOpReject         FeeOp = "RejectFees"
	FeeOpConfirmPayment FeeOp = "ConfirmPayment"
)

// PhysicalOp is an operation that moves the physical lifecycle
type PhysicalOp string

const (
	PhysicalOpMarkArrived       PhysicalOp = "MarkArrived"
	PhysicalOpBeginProcessing   PhysicalOp = "BeginProcessing"
	PhysicalOpReceiveClean      PhysicalOp = "ReceiveClean"
	PhysicalOpReceiveDiscrepant PhysicalOp = "ReceiveDiscrepant"
	PhysicalOpResolve           PhysicalOp = "ResolveDiscrepancy"
	PhysicalOpComplete          PhysicalOp = "CompleteShipment"
)

// feeTransitions is the complete legal edge set of the fee lifecycle.
// Rejected -> PendingApproval is the only backward edge.
var feeTransitions = map[FeeStatus]map[FeeOp]FeeStatus{
	FeePendingSubmission: {
		FeeOpSubmit: FeePendingApproval,
	},
	FeePendingApproval: {
		FeeOpApprove: FeeApproved,
		FeeOpReject:  FeeRejected,
	},
	FeeRejected: {
		FeeOpSubmit: FeePendingApproval,
	},
	FeeApproved: {
		FeeOpConfirmPayment: FeePaymentConfirmed,
	},
}

// physicalTransitions is the complete legal edge set of the physical lifecycle.
// Receiving from AtWarehouse enters Processing implicitly, so both receive ops
// are legal from AtWarehouse as well as from Processing.
var physicalTransitions = map[PhysicalStatus]map[PhysicalOp]PhysicalStatus{
	PhysicalOnTime: {
		PhysicalOpMarkArrived: PhysicalAtWarehouse,
	},
	PhysicalDelayed: {
		PhysicalOpMarkArrived: PhysicalAtWarehouse,
	},
	PhysicalAtWarehouse: {
		PhysicalOpBeginProcessing:   PhysicalProcessing,
		PhysicalOpReceiveClean:      PhysicalProcessing,
		PhysicalOpReceiveDiscrepant: PhysicalDiscrepancyReview,
	},
	PhysicalProcessing: {
		PhysicalOpReceiveClean:      PhysicalProcessing,
		PhysicalOpReceiveDiscrepant: PhysicalDiscrepancyReview,
		PhysicalOpComplete:          PhysicalComplete,
	},
	PhysicalDiscrepancyReview: {
		PhysicalOpResolve:  PhysicalProcessing,
		PhysicalOpComplete: PhysicalComplete,
	},
}

// NextFeeStatus returns the fee status reached by applying op to from, or an
// INVALID_TRANSITION error when the edge is not in the table.
func NextFeeStatus(from FeeStatus, op FeeOp) (FeeStatus, error) {
	if to, ok := feeTransitions[from][op]; ok {
		return to, nil
	}
	return from, InvalidTransition(fmt.Sprintf("%s is not allowed while fee status is %s", op, from))
}

// NextPhysicalStatus returns the physical status reached by applying op to from
func NextPhysicalStatus(from PhysicalStatus, op PhysicalOp) (PhysicalStatus, error) {
	if to, ok := physicalTransitions[from][op]; ok {
		return to, nil
	}
	return from, InvalidTransition(fmt.Sprintf("%s is not allowed while physical status is %s", op, from))
}

// CanAdvancePhysical is the single cross-machine guard: the physical lifecycle
// only moves once payment has been confirmed.
func CanAdvancePhysical(s *Shipment) bool {
	return s.FeeStatus == FeePaymentConfirmed
}

// AdvancePhysical applies the cross-machine guard and then the physical table
func AdvancePhysical(s *Shipment, op PhysicalOp) (PhysicalStatus, error) {
	if !CanAdvancePhysical(s) {
		return s.PhysicalStatus, InvalidTransition(
			fmt.Sprintf("%s requires fee status %s, current fee status is %s", op, FeePaymentConfirmed, s.FeeStatus))
	}
	return NextPhysicalStatus(s.PhysicalStatus, op)
}
