package ncdb

import (
	"errors"
	"fmt"

	"howett.net/plist"
)

var errEmptyPayload = errors.New("empty payload")

// decodePayload extracts the title and subtitle from a record.data blob.
func decodePayload(data []byte) (title, subtitle string, err error) {
	if len(data) == 0 {
		return "", "", errEmptyPayload
	}

	var p recordPayload
	if _, err := plist.Unmarshal(data, &p); err != nil {
		return "", "", fmt.Errorf("decoding record payload: %w", err)
	}

	return p.Req.Title, p.Req.Subtitle, nil
}
