package storage

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxReceiptSize bounds archived responses (1 MiB).
const MaxReceiptSize = 1 << 20

// ReceiptKey builds the object key for a receipt. Receipts without an access
// key get a random name so repeated writes never collide.
func ReceiptKey(saleID, accessKey string) (string, error) {
	if err := validateSegment("sale id", saleID); err != nil {
		return "", err
	}
	name := strings.TrimSpace(accessKey)
	if name == "" {
		name = uuid.New().String()
	} else if err := validateSegment("access key", name); err != nil {
		return "", err
	}
	return path.Join(saleID, name+".json"), nil
}

// ValidateReceiptBody checks that body is a JSON document within limits.
func ValidateReceiptBody(body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("receipt body is empty")
	}
	if len(body) > MaxReceiptSize {
		return fmt.Errorf("receipt size %d bytes exceeds maximum allowed size of %d bytes", len(body), MaxReceiptSize)
	}
	if !json.Valid(body) {
		return fmt.Errorf("receipt body is not valid JSON")
	}
	return nil
}

func validateSegment(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return fmt.Errorf("%s %q is not a valid path segment", field, value)
	}
	return nil
}
