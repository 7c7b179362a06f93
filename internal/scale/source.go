package scale

// Source is a weight indicator, real or emulated. ReadWeight never blocks
// past the source's read timeout; a missing or unparsable reading is
// reported as ok=false, not as an error.
type Source interface {
	Connect() error
	Disconnect() error
	ReadWeight() (float64, bool)
}
