package badger

// Key prefixes for stored data
const (
	recordPrefix = "chassis:"
)

// makeRecordKey generates the key for a record by ID.
func makeRecordKey(id string) []byte {
	return []byte(recordPrefix + id)
}
