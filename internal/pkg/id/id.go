package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ULIDs sort by creation time, are safe as
// DynamoDB partition keys and double as the public ids handed to clients.
func New() string {
	return ulid.Make().String()
}
