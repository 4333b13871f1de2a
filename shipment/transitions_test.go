package shipment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFeeStatuses = []FeeStatus{
	FeePendingSubmission, FeePendingApproval, FeeApproved, FeeRejected, FeePaymentConfirmed,
}

var allFeeOps = []FeeOp{FeeOpSubmit, FeeOpApprove, FeeOpReject, FeeOpConfirmPayment}

var allPhysicalStatuses = []PhysicalStatus{
	PhysicalOnTime, PhysicalDelayed, PhysicalAtWarehouse, PhysicalProcessing,
	PhysicalDiscrepancyReview, PhysicalComplete,
}

var allPhysicalOps = []PhysicalOp{
	PhysicalOpMarkArrived, PhysicalOpBeginProcessing, PhysicalOpReceiveClean,
	PhysicalOpReceiveDiscrepant, PhysicalOpResolve, PhysicalOpComplete,
}

func TestNextFeeStatus(t *testing.T) {
	legal := map[FeeStatus]map[FeeOp]FeeStatus{
		FeePendingSubmission: {FeeOpSubmit: FeePendingApproval},
		FeePendingApproval:   {FeeOpApprove: FeeApproved, FeeOpReject: FeeRejected},
		FeeRejected:          {FeeOpSubmit: FeePendingApproval},
		FeeApproved:          {FeeOpConfirmPayment: FeePaymentConfirmed},
	}

	for _, from := range allFeeStatuses {
		for _, op := range allFeeOps {
			t.Run(string(from)+"/"+string(op), func(t *testing.T) {
				to, err := NextFeeStatus(from, op)
				want, ok := legal[from][op]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, to)
					return
				}
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, from, to)
			})
		}
	}
}

func TestFeeStatusNeverSkipsForward(t *testing.T) {
	order := map[FeeStatus]int{
		FeePendingSubmission: 0,
		FeePendingApproval:   1,
		FeeApproved:          2,
		FeeRejected:          2,
		FeePaymentConfirmed:  3,
	}
	for _, from := range allFeeStatuses {
		for _, op := range allFeeOps {
			to, err := NextFeeStatus(from, op)
			if err != nil {
				continue
			}
			if from == FeeRejected && to == FeePendingApproval {
				continue
			}
			assert.Equal(t, order[from]+1, order[to], "%s -(%s)-> %s", from, op, to)
		}
	}
}

func TestNextPhysicalStatus(t *testing.T) {
	legal := map[PhysicalStatus]map[PhysicalOp]PhysicalStatus{
		PhysicalOnTime:  {PhysicalOpMarkArrived: PhysicalAtWarehouse},
		PhysicalDelayed: {PhysicalOpMarkArrived: PhysicalAtWarehouse},
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

	for _, from := range allPhysicalStatuses {
		for _, op := range allPhysicalOps {
			t.Run(string(from)+"/"+string(op), func(t *testing.T) {
				to, err := NextPhysicalStatus(from, op)
				want, ok := legal[from][op]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, to)
					return
				}
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, from, to)
			})
		}
	}
}

func TestAdvancePhysicalRequiresPayment(t *testing.T) {
	for _, fee := range allFeeStatuses {
		t.Run(string(fee), func(t *testing.T) {
			s := &Shipment{FeeStatus: fee, PhysicalStatus: PhysicalOnTime}
			to, err := AdvancePhysical(s, PhysicalOpMarkArrived)
			if fee == FeePaymentConfirmed {
				require.NoError(t, err)
				assert.Equal(t, PhysicalAtWarehouse, to)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, PhysicalOnTime, to)
			assert.False(t, CanAdvancePhysical(s))
		})
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	for _, op := range allPhysicalOps {
		_, err := NextPhysicalStatus(PhysicalComplete, op)
		assert.ErrorIs(t, err, ErrInvalidTransition, string(op))
	}
	assert.True(t, PhysicalComplete.Terminal())
}
