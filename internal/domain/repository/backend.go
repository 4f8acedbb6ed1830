package repository

// Backend names a multi-step forecasting method.
type Backend string

const (
	BackendLagRegression Backend = "lagreg"
	BackendExpSmoothing  Backend = "expsmooth"
)

// IsValidBackend returns true if b is a known backend.
func IsValidBackend(b Backend) bool {
	switch b {
	case BackendLagRegression, BackendExpSmoothing:
		return true
	default:
		return false
	}
}

// DefaultBackend returns the default backend.
func DefaultBackend() Backend { return BackendLagRegression }
