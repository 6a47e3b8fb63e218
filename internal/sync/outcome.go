package sync

// Outcome tags the result of a single per-user sync cycle
type Outcome string

const (
	// OutcomeSuccess means the cycle completed, whether or not the barcode changed
	OutcomeSuccess Outcome = "success"

	// OutcomeSkippedNotYetAdded means the barcode changed but the wallet object
	// does not exist yet because the user never added the pass. Benign.
	OutcomeSkippedNotYetAdded Outcome = "skipped_not_yet_added"

	// OutcomeCredentialRefreshFailed means the refresh credential was rejected
	// or the auth provider was unreachable
	OutcomeCredentialRefreshFailed Outcome = "credential_refresh_failed"

	// OutcomeFetchFailed means the barcode could not be fetched
	OutcomeFetchFailed Outcome = "fetch_failed"

	// OutcomeWalletUpdateFailed means the wallet provider rejected the update.
	// The stored barcode is already current, so the pass stays stale until the
	// barcode next changes.
	OutcomeWalletUpdateFailed Outcome = "wallet_update_failed"

	// OutcomeStoreWriteFailed means the record could not be persisted
	OutcomeStoreWriteFailed Outcome = "store_write_failed"
)

// Failed reports whether the outcome represents a cycle failure
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSuccess, OutcomeSkippedNotYetAdded:
		return false
	default:
		return true
	}
}
