package shipment

// FeeStatus is the state of an ASN's fee-approval lifecycle
type FeeStatus string

const (
	FeePendingSubmission FeeStatus = "PendingSubmission"
	FeePendingApproval   FeeStatus = "PendingApproval"
	FeeApproved          FeeStatus = "Approved"
	FeeRejected          FeeStatus = "Rejected"
	FeePaymentConfirmed  FeeStatus = "PaymentConfirmed"
)

// Valid reports whether s is one of the known fee statuses
func (s FeeStatus) Valid() bool {
	switch s {
	case FeePendingSubmission, FeePendingApproval, FeeApproved, FeeRejected, FeePaymentConfirmed:
		return true
	}
	return false
}

func (s FeeStatus) String() string {
	return string(s)
}

// PhysicalStatus is the state of an ASN's physical receiving lifecycle
type PhysicalStatus string

const (
	PhysicalOnTime            PhysicalStatus = "OnTime"
	PhysicalDelayed           PhysicalStatus = "Delayed"
	PhysicalAtWarehouse       PhysicalStatus = "AtWarehouse"
	PhysicalProcessing        PhysicalStatus = "Processing"
	PhysicalDiscrepancyReview PhysicalStatus = "DiscrepancyReview"
	PhysicalComplete          PhysicalStatus = "Complete"
)

// Valid reports whether s is one of the known physical statuses
func (s PhysicalStatus) Valid() bool {
	switch s {
	case PhysicalOnTime, PhysicalDelayed, PhysicalAtWarehouse, PhysicalProcessing,
		PhysicalDiscrepancyReview, PhysicalComplete:
		return true
	}
	return false
}

// Initial reports whether s is a status a record can be created in
func (s PhysicalStatus) Initial() bool {
	return s == PhysicalOnTime || s == PhysicalDelayed
}

// Terminal reports whether no further physical transition is possible
func (s PhysicalStatus) Terminal() bool {
	return s == PhysicalComplete
}

func (s PhysicalStatus) String() string {
	return string(s)
}
