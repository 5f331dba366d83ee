package system

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	SubscriptionPrefix = "sub_"
	ClientPrefix       = "cli_"
)

func GenerateUUID() string {
	return uuid.New().String()
}

func newID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateSubscriptionID mints the opaque handle returned by Subscribe.
func GenerateSubscriptionID() string {
	return fmt.Sprintf("%s%s", SubscriptionPrefix, newID())
}

// GenerateClientID identifies one engine instance to the gateway.
func GenerateClientID() string {
	return fmt.Sprintf("%s%s", ClientPrefix, newID())
}
