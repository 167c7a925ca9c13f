package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkops/internal/db"
)

func TestRedisNotifier_Notify(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer mock.ClearExpect()
	n := NewRedisNotifier(client, "parkops:tickets")

	ev := TransitionEvent{
		TicketID: "t-1",
		OrgID:    "org-1",
		StoreID:  "store-1",
		Event:    EventCheckout,
		From:     db.StatusPrePaid,
		To:       db.StatusCompleted,
		At:       t0,
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	mock.ExpectPublish("parkops:tickets:org-1", string(payload)).SetVal(1)
	require.NoError(t, n.Notify(context.Background(), ev))

	mock.ExpectPublish("parkops:tickets:org-1", string(payload)).SetErr(errors.New("connection refused"))
	err = n.Notify(context.Background(), ev)
	assert.ErrorContains(t, err, "publish transition event")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionEvent_JSON(t *testing.T) {
	raw, err := json.Marshal(TransitionEvent{TicketID: "t-1", Event: eventCheckIn, To: db.StatusParking, At: t0})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ticket_id": "t-1",
		"org_id": "",
		"store_id": "",
		"event": "check_in",
		"from": "",
		"to": "parking",
		"at": "2026-03-01T09:00:00Z"
	}`, string(raw))
}

func TestEngine_PublishesThroughRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	env := newTestEnv(t)
	env.engine = NewLifecycleEngine(env.tickets, env.fees, discardLogger(),
		WithClock(env.clock.Now), WithNotifier(NewRedisNotifier(client, "live")))
	mock.Regexp().ExpectPublish("live:org-1", `"to":"parking"`).SetVal(1)

	_, err := env.engine.CheckIn(context.Background(), NewTicket{OrgID: "org-1", StoreID: "store-1", PlateNumber: "AB12"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
