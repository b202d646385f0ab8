package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dee-mee/aquatrack/types"
)

func TestReminderMessage(t *testing.T) {
	due := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	msg := ReminderMessage("John Mwangi", "August 2024", types.KES(9750), due)

	assert.Equal(t,
		"Hello John Mwangi, this is a reminder that your AquaTrack bill for August 2024 of KES 97.50 is due on 15 September 2024. Thank you.",
		msg,
	)
}

func TestMessengerFunc(t *testing.T) {
	var gotPhone, gotMessage string
	m := MessengerFunc(func(_ context.Context, phone, message string) error {
		gotPhone, gotMessage = phone, message
		return nil
	})

	require.NoError(t, m.Send(context.Background(), "254712345678", "hi"))
	assert.Equal(t, "254712345678", gotPhone)
	assert.Equal(t, "hi", gotMessage)
}

func TestSMSLoggerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMSLogger(nil).Send(ctx, "254712345678", "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
