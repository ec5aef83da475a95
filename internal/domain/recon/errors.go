package recon

import "errors"

var (
	// ErrUnknownCandidate is returned when a candidate id is not registered
	// with the engine.
	ErrUnknownCandidate = errors.New("unknown candidate")

	// ErrAlreadyResolved is returned when confirming or rejecting a
	// candidate that is already confirmed or rejected.
	ErrAlreadyResolved = errors.New("candidate already resolved")

	// ErrDuplicatePayment is returned when a payment record with the same
	// dedupe key already exists.
	ErrDuplicatePayment = errors.New("duplicate payment record")

	// ErrCandidateBlocked is returned when confirming a candidate that was
	// classified as a duplicate of an existing payment record.
	ErrCandidateBlocked = errors.New("candidate blocked by duplicate detection")

	// ErrMemberNotObligated is returned when assigning a payment to an
	// inactive member, who has no dues obligation.
	ErrMemberNotObligated = errors.New("member has no payment obligation")
)
