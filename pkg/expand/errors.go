package expand

import "errors"

var (
	// ErrInvalidAddress is returned when a specification does not parse under its declared family
	ErrInvalidAddress = errors.New("invalid address")
	// ErrPrefixTooNarrow is returned when the requested granularity is shorter than the prefix length
	ErrPrefixTooNarrow = errors.New("new prefix length cannot be shorter than existing")
	// ErrInvalidGranularity is returned when the granularity exceeds the family's address length
	ErrInvalidGranularity = errors.New("invalid granularity")
	// ErrRangeTooLarge is returned when a prefix would expand past MaxAddresses
	ErrRangeTooLarge = errors.New("address range too large")
	// ErrInvalidMode is returned for an unsupported family mode selector
	ErrInvalidMode = errors.New("invalid ip type")
)
