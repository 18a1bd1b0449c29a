package fleet

// VendorProxy exposes the vendor API base URL for diagnostics.
type VendorProxy interface {
	BaseURL() string
}
