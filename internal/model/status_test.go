package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusRejected}
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusAccepted}: true,
		{OrderStatusPending, OrderStatusRejected}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusAccepted.IsTerminal())
	assert.True(t, OrderStatusRejected.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus(" Accepted ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusAccepted, st)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestParseDeliveryType(t *testing.T) {
	cases := map[string]DeliveryType{
		"home":       DeliveryHome,
		"A Domicile": DeliveryHome,
		"pickup":     DeliveryPickup,
		"Bureau":     DeliveryPickup,
	}
	for in, want := range cases {
		got, err := ParseDeliveryType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseDeliveryType("drone")
	assert.Error(t, err)
}
