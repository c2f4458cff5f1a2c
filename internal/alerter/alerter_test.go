package alerter

import (
	"Go2SessionSpectra/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	subject string
	body    string
}

type fakeNotifier struct {
	msgs []sent
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, subject, body string) error {
	f.msgs = append(f.msgs, sent{subject: subject, body: body})
	return f.err
}

func viewWith(round uint64, reachable ...bool) model.View {
	names := []string{"ppp-1", "ppp-2", "socks-1"}
	classes := []model.Class{model.ClassPPP, model.ClassPPP, model.ClassSOCKS}
	addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.1.1"}

	v := model.View{
		CycleID:     "id",
		Round:       round,
		PublishedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Summary:     model.Summary{Total: 3, PPP: 2, SOCKS: 1},
	}
	for i, r := range reachable {
		v.Devices = append(v.Devices, model.DeviceStatus{
			Class: classes[i], Name: names[i], Address: addrs[i], Reachable: r,
		})
	}
	return v
}

func TestAlerter_NotifiesOnTransitions(t *testing.T) {
	n := &fakeNotifier{}
	a := NewAlerter(n, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, a.Publish(ctx, viewWith(1, true, true, true)))
	assert.Empty(t, n.msgs, "no change, no mail")

	require.NoError(t, a.Publish(ctx, viewWith(2, true, false, true)))
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "Go2SessionSpectra Reachability Alert (1 down, 0 recovered)", n.msgs[0].subject)
	assert.Contains(t, n.msgs[0].body, "<table>")
	assert.Contains(t, n.msgs[0].body, "ppp-2")
	assert.NotContains(t, n.msgs[0].body, "Recovered")

	require.NoError(t, a.Publish(ctx, viewWith(3, true, false, true)))
	assert.Len(t, n.msgs, 1, "still down is not a new change")

	require.NoError(t, a.Publish(ctx, viewWith(4, true, true, false)))
	require.Len(t, n.msgs, 2)
	assert.Equal(t, "Go2SessionSpectra Reachability Alert (1 down, 1 recovered)", n.msgs[1].subject)
	assert.Contains(t, n.msgs[1].body, "socks-1")
	assert.Contains(t, n.msgs[1].body, "Recovered")
}

func TestAlerter_FirstViewComparesToReachable(t *testing.T) {
	n := &fakeNotifier{}
	a := NewAlerter(n, zerolog.Nop())

	require.NoError(t, a.Publish(context.Background(), viewWith(1, false, true, true)))
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0].body, "ppp-1")
}

func TestAlerter_SendFailure(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp down")}
	a := NewAlerter(n, zerolog.Nop())

	err := a.Publish(context.Background(), viewWith(1, false, true, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, n.err)

	// The state was recorded, so the same outage is not re-sent every cycle.
	require.NoError(t, a.Publish(context.Background(), viewWith(2, false, true, true)))
	assert.Len(t, n.msgs, 1)
}

func TestReport(t *testing.T) {
	v := viewWith(9, false, true, true)
	md := Report(v, []Change{
		{Device: v.Devices[0]},
		{Device: v.Devices[1], Recovered: true},
	})

	assert.Contains(t, md, "# Go2SessionSpectra Reachability Alert")
	assert.Contains(t, md, "Round 9 (cycle `id`) published at 2026-05-01T08:00:00Z.")
	assert.Contains(t, md, "## Unreachable\n\n| Type | Name | Address |")
	assert.Contains(t, md, "| PPP | ppp-1 | 10.0.0.1 |")
	assert.Contains(t, md, "## Recovered")
	assert.Contains(t, md, "| PPP | ppp-2 | 10.0.0.2 |")
	assert.Contains(t, md, "- All: 3\n- PPP: 2\n- SOCKS: 1\n")
}
