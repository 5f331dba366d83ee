package system

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIDs(t *testing.T) {
	subID := GenerateSubscriptionID()
	assert.True(t, strings.HasPrefix(subID, SubscriptionPrefix))
	assert.NotEqual(t, subID, GenerateSubscriptionID())

	clientID := GenerateClientID()
	assert.True(t, strings.HasPrefix(clientID, ClientPrefix))
	assert.Equal(t, clientID, strings.ToLower(clientID))

	assert.Len(t, GenerateUUID(), 36)
}
