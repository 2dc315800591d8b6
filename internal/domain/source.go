package domain

// SourceType classifies where a frozen dataset came from.
type SourceType string

const (
	SourceTypeSynthetic SourceType = "synthetic"
	SourceTypeReal      SourceType = "real"
)

// String returns the string representation of SourceType.
func (s SourceType) String() string {
	return string(s)
}

// IsValid checks if the source type is a valid value.
func (s SourceType) IsValid() bool {
	return s == SourceTypeSynthetic || s == SourceTypeReal
}

// SourceFromURL derives the source type from a source descriptor: the
// synthetic marker (or an empty descriptor) yields SourceTypeSynthetic,
// anything else is treated as a real acquisition URL.
func SourceFromURL(url string) SourceType {
	if url == "" || url == SourceSyntheticURL {
		return SourceTypeSynthetic
	}
	return SourceTypeReal
}
