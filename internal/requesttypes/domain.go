package requesttypes

// RequestType categorizes client requests.
type RequestType struct {
	ID          int64
	Name        string
	Description string
}
