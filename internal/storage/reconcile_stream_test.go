package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileStream_InvokesCallbackPerAction(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.CreateCar(ctx, "r1", "Toyota", "Camry", "1HGBH41JXMN109186", "u@x")
	require.NoError(t, err)

	var seen []string

	result, err := e.ReconcileStream(ctx, "/Фото/R1", DepthRegion, func(action string) {
		seen = append(seen, action)
	})
	require.NoError(t, err)
	assert.Equal(t, result.ActionsPerformed, seen)
	assert.NotEmpty(t, seen)
}
