package mir

// FindGUID returns the GUID of the first record whose name equals name.
// A miss yields a *NotFoundError; names are not guaranteed unique by the vendor.
func FindGUID[T Record](records []T, kind, name string) (string, error) {
	for _, r := range records {
		if r.RecordName() == name {
			return r.RecordGUID(), nil
		}
	}
	return "", &NotFoundError{Kind: kind, Name: name}
}
