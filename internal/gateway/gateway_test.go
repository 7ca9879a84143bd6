package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/inovacc/slack-mcp/internal/model"
	"github.com/inovacc/slack-mcp/internal/ratelimit"
	"github.com/inovacc/slack-mcp/internal/registry"
	"github.com/inovacc/slack-mcp/internal/slack"
	"github.com/inovacc/slack-mcp/internal/slack/slacktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1700000000, 0)

type harness struct {
	srv      *slacktest.Server
	registry *registry.Registry
	gateway  *Gateway

	mu     sync.Mutex
	sleeps []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{srv: slacktest.NewServer(t)}
	h.registry = registry.New(func(ws model.Workspace) *slack.Client {
		return slack.NewClient(ws.Token, slack.ClientOptions{BaseURL: h.srv.URL()})
	}, nil)
	h.registry.Register(model.Workspace{ID: "acme", Token: "xoxb-1", TeamID: "T1"})

	h.gateway = New(h.registry, ratelimit.New(ratelimit.WithMax(1000)),
		WithClock(func() time.Time { return testNow }),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.mu.Lock()
			defer h.mu.Unlock()

			h.sleeps = append(h.sleeps, d)

			return nil
		}),
	)

	return h
}

func (h *harness) slept() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]time.Duration(nil), h.sleeps...)
}

// ts formats a timestamp offset from testNow.
func ts(offset time.Duration) string {
	return slack.FormatTimestamp(testNow.Add(offset))
}

func msg(offset time.Duration, text string) map[string]any {
	return map[string]any{"ts": ts(offset), "text": text, "user": "U1"}
}

func channelList(channels ...map[string]any) slacktest.Handler {
	return slacktest.Static(map[string]any{"channels": channels})
}

func history(messages ...map[string]any) slacktest.Handler {
	return slacktest.Static(map[string]any{"messages": messages})
}

func throttle(seconds int) slacktest.Handler {
	return func(w http.ResponseWriter, _ *http.Request) { slacktest.Throttle(w, seconds) }
}

func fail(code string) slacktest.Handler {
	return func(w http.ResponseWriter, _ *http.Request) { slacktest.Fail(w, code) }
}

func TestTestConnection(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("auth.test", slacktest.Static(map[string]any{"team_id": "T1"}))

	ok, err := h.gateway.TestConnection(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.gateway.TestConnection(context.Background(), "missing")
	assert.False(t, ok)
	require.ErrorIs(t, err, registry.ErrSessionNotFound)

	h.srv.Handle("auth.test", fail("invalid_auth"))

	ok, err = h.gateway.TestConnection(context.Background(), "acme")
	assert.False(t, ok)
	require.Error(t, err)
}

func TestRetry_OnceThenSucceeds(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("auth.test", slacktest.Sequence(throttle(3), slacktest.Static(nil)))

	ok, err := h.gateway.TestConnection(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{3 * time.Second}, h.slept())
	assert.Equal(t, 2, h.srv.Calls("auth.test"))
}

func TestRetry_DefaultRetryAfterAndExhaustion(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", throttle(0))

	_, err := h.gateway.ListUsers(context.Background(), "acme")
	require.ErrorIs(t, err, ErrRateLimited)

	var rl *slack.RateLimitedError
	require.ErrorAs(t, err, &rl)

	assert.Equal(t, []time.Duration{DefaultRetryAfter}, h.slept())
	assert.Equal(t, 2, h.srv.Calls("users.list"), "exactly one retry")
}

func TestRetry_OtherErrorsNotRetried(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", fail("invalid_auth"))

	_, err := h.gateway.ListUsers(context.Background(), "acme")
	require.Error(t, err)
	assert.Equal(t, 1, h.srv.Calls("users.list"))
	assert.Empty(t, h.slept())
}

func TestRetry_SleepCancelled(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", throttle(1))
	h.gateway.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.gateway.ListUsers(ctx, "acme")
	require.Error(t, err)
}

func TestListChannels_SegmentedAndPaginated(t *testing.T) {
	h := newHarness(t)

	var types []string

	var mu sync.Mutex

	h.srv.Handle("conversations.list", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		types = append(types, r.Form.Get("types"))
		mu.Unlock()

		assert.Equal(t, "true", r.Form.Get("exclude_archived"))

		switch r.Form.Get("types") {
		case slack.TypePublic:
			if r.Form.Get("cursor") == "" {
				slacktest.OK(w, map[string]any{
					"channels":          []map[string]any{{"id": "C1", "name": "general", "is_channel": true}},
					"response_metadata": map[string]any{"next_cursor": "page2"},
				})

				return
			}

			slacktest.OK(w, map[string]any{"channels": []map[string]any{{"id": "C2", "name": "random", "is_channel": true}}})
		case slack.TypePrivate:
			slacktest.OK(w, map[string]any{"channels": []map[string]any{{"id": "G1", "name": "secret", "is_private": true}}})
		case slack.TypeIM:
			slacktest.OK(w, map[string]any{"channels": []map[string]any{{"id": "D1", "is_im": true, "user": "U7"}}})
		}
	})

	channels, err := h.gateway.ListChannels(context.Background(), "acme")
	require.NoError(t, err)

	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}

	assert.Equal(t, []string{"C1", "C2", "G1", "D1"}, ids)
	assert.Equal(t, "U7", channels[3].Name)
	assert.Equal(t, slack.KindDirect, channels[3].Kind)
	assert.Equal(t, []string{"public_channel", "public_channel", "private_channel", "im"}, types)
}

func TestGetMessages_Chronological(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.info", slacktest.Static(map[string]any{"channel": map[string]any{"id": "C1"}}))
	h.srv.Handle("conversations.history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.Form.Get("limit"))
		history(
			msg(-1*time.Minute, "newest"),
			msg(-3*time.Minute, "older"),
			msg(-2*time.Minute, "middle"),
			msg(-10*time.Minute, "oldest"),
		)(w, r)
	})

	messages, err := h.gateway.GetMessages(context.Background(), "acme", "C1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	for i := 0; i+1 < len(messages); i++ {
		assert.Negative(t, slack.CompareTimestamps(messages[i].Timestamp, messages[i+1].Timestamp))
	}

	assert.Equal(t, "oldest", messages[0].Text)
	assert.Equal(t, "newest", messages[3].Text)

	recent, err := h.gateway.GetMessages(context.Background(), "acme", "C1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "middle", recent[0].Text)
	assert.Equal(t, "newest", recent[1].Text)
}

func TestGetMessages_ChannelNotFound(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.info", fail("channel_not_found"))

	_, err := h.gateway.GetMessages(context.Background(), "acme", "C404", 10)
	require.ErrorIs(t, err, ErrChannelNotFound)
	assert.True(t, IsChannelNotFound(err))
	assert.Zero(t, h.srv.Calls("conversations.history"))
}

func TestSendMessage_NotInChannelNoRetry(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("chat.postMessage", fail("not_in_channel"))

	_, err := h.gateway.SendMessage(context.Background(), "acme", "C1", "hi", "")

	var sendErr *SendFailedError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "not_in_channel", sendErr.Code)
	assert.Equal(t, 1, h.srv.Calls("chat.postMessage"))
	assert.Empty(t, h.slept())
}

func TestSendMessage_RateLimitedAfterRetry(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("chat.postMessage", throttle(2))

	_, err := h.gateway.SendMessage(context.Background(), "acme", "C1", "hi", "")

	var sendErr *SendFailedError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, slack.ErrorRateLimited, sendErr.Code)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, h.srv.Calls("chat.postMessage"))
}

func TestSendMessage_Thread(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1700000000.000100", r.PostForm.Get("thread_ts"))
		slacktest.OK(w, map[string]any{"channel": "C1", "ts": "1700000001.000000"})
	})

	res, err := h.gateway.SendMessage(context.Background(), "acme", "C1", "reply", "1700000000.000100")
	require.NoError(t, err)
	assert.Equal(t, "1700000001.000000", res.Timestamp)
}

func TestSendMessage_UnknownWorkspace(t *testing.T) {
	h := newHarness(t)

	_, err := h.gateway.SendMessage(context.Background(), "missing", "C1", "hi", "")
	require.ErrorIs(t, err, registry.ErrSessionNotFound)

	var sendErr *SendFailedError
	assert.False(t, errors.As(err, &sendErr))
}

func TestGetUser(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.info", func(w http.ResponseWriter, r *http.Request) {
		if r.Form.Get("user") == "U1" {
			slacktest.OK(w, map[string]any{"user": map[string]any{"id": "U1", "name": "alice"}})
			return
		}

		slacktest.Fail(w, "user_not_found")
	})

	user, err := h.gateway.GetUser(context.Background(), "acme", "U1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Handle)

	user, err = h.gateway.GetUser(context.Background(), "acme", "U404")
	require.NoError(t, err)
	assert.Nil(t, user)

	_, err = h.gateway.GetUser(context.Background(), "missing", "U1")
	require.ErrorIs(t, err, registry.ErrSessionNotFound)
}

func TestListUsers_Paginates(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", func(w http.ResponseWriter, r *http.Request) {
		if r.Form.Get("cursor") == "" {
			slacktest.OK(w, map[string]any{
				"members":           []map[string]any{{"id": "U1", "name": "alice"}},
				"response_metadata": map[string]any{"next_cursor": "c2"},
			})

			return
		}

		slacktest.OK(w, map[string]any{"members": []map[string]any{{"id": "U2", "name": "bob"}}})
	})

	users, err := h.gateway.ListUsers(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[1].Handle)
}

func TestUnread_RecentActivityHeuristic(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.list", channelList(
		map[string]any{"id": "C-active", "name": "active", "is_channel": true, "is_member": true},
		map[string]any{"id": "C-stale", "name": "stale", "is_channel": true, "is_member": true},
		map[string]any{"id": "C-notmember", "name": "lurk", "is_channel": true, "is_member": false},
		map[string]any{"id": "D1", "is_im": true, "user": "U2"},
		map[string]any{"id": "C-broken", "name": "broken", "is_channel": true, "is_member": true},
		map[string]any{"id": "C-empty", "name": "empty", "is_channel": true, "is_member": true},
	))

	stale := make([]map[string]any, 0, 10)
	for i := range 10 {
		stale = append(stale, msg(-time.Duration(61+i)*time.Minute, fmt.Sprintf("old %d", i)))
	}

	h.srv.Handle("conversations.history", slacktest.ByChannel(map[string]slacktest.Handler{
		"C-active": history(
			msg(-70*time.Minute, "a"),
			msg(-71*time.Minute, "b"),
			msg(-72*time.Minute, "c"),
			msg(-5*time.Minute, "fresh"),
			msg(-75*time.Minute, "d"),
			msg(-76*time.Minute, "e"),
		),
		"C-stale":     history(stale...),
		"C-notmember": history(msg(-time.Minute, "x")),
		"D1":          history(msg(-10*time.Minute, "dm"), msg(-20*time.Minute, "dm earlier")),
		"C-broken":    fail("not_in_channel"),
		"C-empty":     history(),
	}))

	unread, err := h.gateway.GetAllUnreadConversations(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, unread, 2)

	assert.Equal(t, "C-active", unread[0].Channel.ID)
	assert.Equal(t, 5, unread[0].UnreadCount)
	require.Len(t, unread[0].Messages, 5)
	assert.Equal(t, "acme", unread[0].WorkspaceID)

	for i := 0; i+1 < len(unread[0].Messages); i++ {
		assert.Negative(t, slack.CompareTimestamps(unread[0].Messages[i].Timestamp, unread[0].Messages[i+1].Timestamp))
	}

	assert.Equal(t, "D1", unread[1].Channel.ID)
	assert.Equal(t, "dm earlier", unread[1].Messages[0].Text)

	assert.Zero(t, h.srv.Calls("conversations.info"))
}

func TestUnread_StaleChannelExcluded(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.list", channelList(
		map[string]any{"id": "C1", "name": "general", "is_channel": true, "is_member": true},
	))

	// The 5 newest are all older than an hour; a newer-looking 6th must not count.
	h.srv.Handle("conversations.history", history(
		msg(-61*time.Minute, "1"),
		msg(-62*time.Minute, "2"),
		msg(-63*time.Minute, "3"),
		msg(-64*time.Minute, "4"),
		msg(-65*time.Minute, "5"),
		msg(-time.Minute, "6"),
	))

	unread, err := h.gateway.GetAllUnreadConversations(context.Background(), "acme")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestUnread_ThrottleRestartsAggregation(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.list", channelList(
		map[string]any{"id": "C1", "name": "general", "is_channel": true, "is_member": true},
	))
	h.srv.Handle("conversations.history", slacktest.Sequence(throttle(4), history(msg(-time.Minute, "hi"))))

	unread, err := h.gateway.GetAllUnreadConversations(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, unread, 1)

	assert.Equal(t, 2, h.srv.Calls("conversations.list"), "whole aggregation re-runs")
	assert.Equal(t, []time.Duration{4 * time.Second}, h.slept())
}

func TestFindUserByIdentifier(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", slacktest.Static(map[string]any{
		"members": []map[string]any{
			{"id": "U1", "name": "bob.smith", "real_name": "Robert Smith", "profile": map[string]any{"display_name": "sam"}},
			{"id": "U2", "name": "sam", "real_name": "Samantha Jones", "profile": map[string]any{"display_name": "Sammy"}},
			{"id": "U3", "name": "carol", "real_name": "Carol Danvers", "profile": map[string]any{"display_name": ""}},
		},
	}))

	cases := []struct {
		query string
		want  string
	}{
		{"sam", "U2"},           // handle exact beats display exact on U1
		{"@SAM", "U2"},          // case-insensitive, leading @ stripped
		{"sammy", "U2"},         // display exact
		{"carol danvers", "U3"}, // real name exact
		{"smith", "U1"},         // substring on handle
		{"dan", "U3"},           // substring on real name
		{"nobody", ""},
		{"@", ""},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			user, err := h.gateway.FindUserByIdentifier(context.Background(), "acme", tc.query)
			require.NoError(t, err)

			if tc.want == "" {
				assert.Nil(t, user)
				return
			}

			require.NotNil(t, user)
			assert.Equal(t, tc.want, user.ID)
		})
	}
}

func TestResolveDMChannel(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", slacktest.Static(map[string]any{
		"members": []map[string]any{{"id": "UA1", "name": "alice"}},
	}))
	h.srv.Handle("conversations.open", func(w http.ResponseWriter, r *http.Request) {
		if r.PostForm.Get("users") == "UBOT" {
			slacktest.Fail(w, "cannot_dm_bot")
			return
		}

		slacktest.OK(w, map[string]any{"channel": map[string]any{"id": "D-" + r.PostForm.Get("users")}})
	})

	id, err := h.gateway.ResolveDMChannel(context.Background(), "acme", "UA1")
	require.NoError(t, err)
	assert.Equal(t, "D-UA1", id)
	assert.Zero(t, h.srv.Calls("users.list"), "raw IDs skip the directory")

	again, err := h.gateway.ResolveDMChannel(context.Background(), "acme", "UA1")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	id, err = h.gateway.ResolveDMChannel(context.Background(), "acme", "@alice")
	require.NoError(t, err)
	assert.Equal(t, "D-UA1", id)
	assert.Equal(t, 1, h.srv.Calls("users.list"))

	id, err = h.gateway.ResolveDMChannel(context.Background(), "acme", "nobody")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = h.gateway.ResolveDMChannel(context.Background(), "acme", "UBOT")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFindUser_WithDM(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", slacktest.Static(map[string]any{
		"members": []map[string]any{{"id": "UA1", "name": "alice"}},
	}))
	h.srv.Handle("conversations.open", slacktest.Static(map[string]any{"channel": map[string]any{"id": "D1"}}))

	match, err := h.gateway.FindUser(context.Background(), "acme", "ali")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "UA1", match.User.ID)
	assert.Equal(t, "D1", match.DMChannelID)

	match, err = h.gateway.FindUser(context.Background(), "acme", "zed")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestResolveUserIds_SingleDirectoryFetch(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("users.list", slacktest.Static(map[string]any{
		"members": []map[string]any{
			{"id": "U1", "name": "alice"},
			{"id": "U2", "name": "bob"},
			{"id": "U3", "name": "carol"},
		},
	}))

	resolved, err := h.gateway.ResolveUserIds(context.Background(), "acme", []string{"U1", "U3", "U9"})
	require.NoError(t, err)
	assert.Len(t, resolved, 2)
	assert.Equal(t, "alice", resolved["U1"].Handle)
	assert.Equal(t, "carol", resolved["U3"].Handle)
	assert.NotContains(t, resolved, "U9")

	all, err := h.gateway.ResolveUserIds(context.Background(), "acme", []string{"U1", "U2", "U3"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Equal(t, 2, h.srv.Calls("users.list"))
	assert.Zero(t, h.srv.Calls("users.info"))
}

func TestListRecentConversations(t *testing.T) {
	h := newHarness(t)
	h.srv.Handle("conversations.list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.Form.Get("limit"))
		channelList(
			map[string]any{"id": "C1", "name": "general", "is_channel": true, "is_member": true, "num_members": 40},
			map[string]any{"id": "G1", "name": "ops", "is_private": true, "is_member": true},
			map[string]any{"id": "M1", "name": "mpdm-a-b", "is_mpim": true, "is_private": true},
			map[string]any{"id": "D1", "is_im": true, "user": "U2"},
			map[string]any{"id": "D2", "is_im": true, "user": "U404"},
		)(w, r)
	})
	h.srv.Handle("users.list", slacktest.Static(map[string]any{
		"members": []map[string]any{{"id": "U2", "name": "bob", "real_name": "Bob B", "profile": map[string]any{"display_name": ""}}},
	}))
	h.srv.Handle("conversations.history", slacktest.ByChannel(map[string]slacktest.Handler{
		"C1": history(msg(-30*time.Minute, "x")),
		"G1": history(),
		"M1": history(msg(-time.Minute, "x")),
		"D1": history(msg(-10*time.Minute, "x")),
		"D2": fail("channel_not_found"),
	}))

	summaries, err := h.gateway.ListRecentConversations(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	assert.Equal(t, "M1", summaries[0].ID)
	assert.Equal(t, SummaryGroupDM, summaries[0].Type)

	assert.Equal(t, "D1", summaries[1].ID)
	assert.Equal(t, SummaryDM, summaries[1].Type)
	assert.Equal(t, "@Bob B", summaries[1].Name)

	assert.Equal(t, "C1", summaries[2].ID)
	assert.Equal(t, SummaryChannel, summaries[2].Type)
	assert.Equal(t, 40, summaries[2].UserCount)

	assert.Equal(t, "G1", summaries[3].ID)
	assert.Equal(t, SummaryPrivateChannel, summaries[3].Type)
	assert.Equal(t, "0", summaries[3].LastActivity)

	assert.Equal(t, 1, h.srv.Calls("users.list"))
}

func TestConcurrentWorkspaces(t *testing.T) {
	h := newHarness(t)
	h.registry.Register(model.Workspace{ID: "globex", Token: "xoxb-2"})
	h.srv.Handle("auth.test", slacktest.Static(nil))

	var wg sync.WaitGroup

	for range 20 {
		for _, id := range []string{"acme", "globex"} {
			wg.Add(1)

			go func() {
				defer wg.Done()

				ok, err := h.gateway.TestConnection(context.Background(), id)
				assert.NoError(t, err)
				assert.True(t, ok)
			}()
		}
	}

	wg.Wait()
	assert.Equal(t, 40, h.srv.Calls("auth.test"))
}
