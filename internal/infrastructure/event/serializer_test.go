package event

import (
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchasingEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewPurchasingEventSerializer()

	assert.Equal(t, []string{
		purchasing.EventTypePurchaseOrderReceived,
		purchasing.EventTypePurchaseOrderStatusChanged,
		purchasing.EventTypePurchaseOrderSubmitted,
	}, serializer.RegisteredTypes())
	assert.False(t, serializer.IsRegistered("SalesOrderCreated"))
}

func TestEventSerializer_ReceivedEvent(t *testing.T) {
	serializer := NewPurchasingEventSerializer()
	orderID := uuid.New()
	variantID := uuid.New()
	receivedAt := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	event := &purchasing.PurchaseOrderReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(purchasing.EventTypePurchaseOrderReceived, purchasing.AggregateTypePurchaseOrder, orderID),
		OrderNumber:     "PO-20240305-abc123",
		ReceivedAt:      receivedAt,
		Lines:           []purchasing.ReceivedLine{{VariantID: variantID, Quantity: 10}},
	}

	data, err := serializer.Serialize(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"order_number":"PO-20240305-abc123"`)
	assert.Contains(t, string(data), `"aggregate_id":"`+orderID.String()+`"`)

	decoded, err := serializer.Deserialize(purchasing.EventTypePurchaseOrderReceived, data)
	require.NoError(t, err)

	received, ok := decoded.(*purchasing.PurchaseOrderReceivedEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID(), received.EventID())
	assert.Equal(t, orderID, received.AggregateID())
	assert.True(t, receivedAt.Equal(received.ReceivedAt))
	require.Len(t, received.Lines, 1)
	assert.Equal(t, variantID, received.Lines[0].VariantID)
	assert.Equal(t, 10, received.Lines[0].Quantity)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	serializer := NewPurchasingEventSerializer()

	_, err := serializer.Deserialize("unknown", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = serializer.Deserialize(purchasing.EventTypePurchaseOrderSubmitted, []byte(`{not json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}
