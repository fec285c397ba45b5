package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/task"
)

func TestDecodeFilter(t *testing.T) {
	ast, err := json.Marshal(mustFilter(t, "list = Work AND NOT completed = true"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   string
		want  string // String() of the decoded filter, "" for match-all
		empty bool
	}{
		{name: "absent", raw: "", empty: true},
		{name: "null", raw: "null", empty: true},
		{name: "expression string", raw: `"priority = high"`, want: "priority = 'high'"},
		{name: "shortcut string", raw: `"incomplete"`, want: "completed = 'false'"},
		{name: "expression object", raw: `{"expression": "list IN (A, B)"}`, want: "list IN ('A', 'B')"},
		{name: "ast object", raw: string(ast), want: "(list = 'Work' AND NOT completed = 'true')"},
		{name: "legacy lists and completion", raw: `{"listNames": ["Work", "Home"], "completed": "true"}`,
			want: "((list = 'Work' OR list = 'Home') AND completed = 'true')"},
		{name: "legacy lists only", raw: `{"listNames": ["Work"], "completed": "all"}`, want: "list = 'Work'"},
		{name: "legacy completion only", raw: `{"completed": "FALSE"}`, want: "completed = 'false'"},
		{name: "legacy match all", raw: `{"listNames": [], "completed": "all"}`, empty: true},
		{name: "legacy blank names skipped", raw: `{"listNames": ["", " "]}`, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFilter(json.RawMessage(tt.raw), filter.DefaultShortcuts)
			require.NoError(t, err)
			require.NotNil(t, f)
			if tt.empty {
				require.True(t, f.IsEmpty())
				return
			}
			require.Equal(t, tt.want, f.String())
		})
	}
}

func TestDecodeFilterErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"number":             `42`,
		"array":              `["list = Work"]`,
		"bad expression":     `"list = "`,
		"bad object":         `{"expression": 7}`,
		"bad legacy":         `{"completed": "sometimes"}`,
		"legacy wrong types": `{"listNames": "Work"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFilter(json.RawMessage(raw), filter.DefaultShortcuts)
			require.Error(t, err)
		})
	}
}

func TestDecodeFilterUsesGivenShortcuts(t *testing.T) {
	shortcuts, err := filter.DefaultShortcuts.Merge(map[string]string{"chores": "list = Chores"})
	require.NoError(t, err)
	f, err := DecodeFilter(json.RawMessage(`"chores AND incomplete"`), shortcuts)
	require.NoError(t, err)
	require.Equal(t, "(list = 'Chores' AND completed = 'false')", f.String())

	_, err = DecodeFilter(json.RawMessage(`"chores"`), filter.DefaultShortcuts)
	require.Error(t, err)
}

func TestLegacyFilterMatches(t *testing.T) {
	f, err := LegacyFilter{ListNames: []string{"Work", "Home"}, Completed: "false"}.Filter()
	require.NoError(t, err)

	env := filter.Env{}
	require.True(t, f.Matches(&task.Task{ListName: "work"}, env))
	require.True(t, f.Matches(&task.Task{ListName: "Home"}, env))
	require.False(t, f.Matches(&task.Task{ListName: "Home", Completed: true}, env))
	require.False(t, f.Matches(&task.Task{ListName: "Errands"}, env))
}

func TestSubscriptionJSONRoundTrip(t *testing.T) {
	sub := Subscription{
		ID:     "abc",
		URL:    "https://example.com/hook",
		Name:   "work",
		Active: true,
		Filter: mustFilter(t, "list = Work OR dueDate < today"),
	}
	data, err := json.Marshal(sub)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	for _, k := range []string{"id", "url", "name", "isActive", "filter"} {
		require.Contains(t, keys, k)
	}

	var back Subscription
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, sub.ID, back.ID)
	require.Equal(t, sub.URL, back.URL)
	require.Equal(t, sub.Active, back.Active)
	require.Equal(t, sub.Filter.String(), back.Filter.String())
}

func TestSubscriptionWithoutFilterMatchesEverything(t *testing.T) {
	var sub Subscription
	require.NoError(t, json.Unmarshal([]byte(`{"id": "x", "url": "http://h/", "isActive": true}`), &sub))
	require.True(t, sub.Filter.IsEmpty())
	require.True(t, sub.Matches(&task.Task{Title: "anything"}, filter.Env{}))
}

func TestValidateURL(t *testing.T) {
	for _, ok := range []string{"http://localhost:8080/hook", "https://example.com", " https://example.com/x?y=1 "} {
		require.NoError(t, ValidateURL(ok), ok)
	}
	for _, bad := range []string{"", "example.com", "/relative", "ftp://example.com", "https://", "::"} {
		require.ErrorIs(t, ValidateURL(bad), ErrInvalidURL, bad)
	}
}
