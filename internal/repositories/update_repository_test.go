package repositories

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToUpdateDocumentRejectsMalformedRecipient(t *testing.T) {
	_, err := toUpdateDocument(models.Update{
		RecipientUserID: "not-an-object-id",
		Payload:         models.SystemPayload{Content: models.Content{Title: "hi"}},
	}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestUpdateDocumentMapping(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recipient := primitive.NewObjectID().Hex()
	source := primitive.NewObjectID().Hex()

	doc, err := toUpdateDocument(models.Update{
		RecipientUserID: recipient,
		SourceUserID:    &source,
		TargetUserIDs:   []string{recipient, "bogus"},
		SourceEntityID:  "pin-1",
		WindowLabel:     "2h",
		Payload: models.EventStartingSoonPayload{
			Content:     models.Content{Title: "Picnic starts in 2 hours"},
			Pin:         models.PinPreview{ID: "pin-1", Type: models.PinTypeEvent, Title: "Picnic"},
			WindowLabel: "2h",
			WindowHours: 2,
		},
	}, now)
	require.NoError(t, err)

	assert.False(t, doc.ID.IsZero(), "store assigns the id")
	assert.Equal(t, now, doc.CreatedAt)
	require.NotNil(t, doc.DeliveredAt)
	assert.Equal(t, now, *doc.DeliveredAt)
	assert.Len(t, doc.TargetUserIDs, 1, "malformed target ids are dropped from the snapshot")
	assert.Equal(t, models.UpdateTypeEventStartingSoon, doc.Payload.Type)

	back, err := fromUpdateDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, recipient, back.RecipientUserID)
	require.NotNil(t, back.SourceUserID)
	assert.Equal(t, source, *back.SourceUserID)
	assert.Equal(t, "2h", back.WindowLabel)
	payload, ok := back.Payload.(models.EventStartingSoonPayload)
	require.True(t, ok)
	assert.Equal(t, "Picnic", payload.Pin.Title)
	assert.Nil(t, back.ReadAt)
}

func TestRequestedObjectIDsKeepsCallerSpelling(t *testing.T) {
	objID := primitive.NewObjectID()
	lower := objID.Hex()
	upper := strings.ToUpper(lower)

	requested, ids := requestedObjectIDs([]string{upper, "junk", lower, upper})

	assert.Equal(t, []primitive.ObjectID{objID}, ids)
	assert.Equal(t, []string{upper, lower, upper}, requested[objID])
}
