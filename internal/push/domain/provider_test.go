package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Identifier(t *testing.T) {
	assert.Equal(t, "", Identity{}.Identifier())
	assert.Equal(t, "sub-1", Identity{SubscriptionID: "sub-1"}.Identifier())
	assert.Equal(t, "user-1", Identity{UserID: "user-1", SubscriptionID: "sub-1"}.Identifier())
}
