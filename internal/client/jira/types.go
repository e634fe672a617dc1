package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp format of the Jira REST API.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid jira time %q", raw)
}

func (t *Time) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type Named struct {
	Name string `json:"name"`
}

type Project struct {
	Key string `json:"key"`
}

type User struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

type Sprint struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Fields holds the standard fields the syncer reads. Custom fields are looked
// up by id through Issue.CustomField.
type Fields struct {
	Summary        string   `json:"summary"`
	IssueType      *Named   `json:"issuetype"`
	Project        *Project `json:"project"`
	Status         *Named   `json:"status"`
	Resolution     *Named   `json:"resolution"`
	ResolutionDate *Time    `json:"resolutiondate"`
	Created        Time     `json:"created"`
	Updated        Time     `json:"updated"`
	Priority       *Named   `json:"priority"`
	Labels         []string `json:"labels"`
	Assignee       *User    `json:"assignee"`
	Reporter       *User    `json:"reporter"`
}

type Issue struct {
	ID     string
	Key    string
	Fields Fields
	Raw    json.RawMessage

	custom map[string]json.RawMessage
}

func (i *Issue) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID     string                     `json:"id"`
		Key    string                     `json:"key"`
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	i.ID = envelope.ID
	i.Key = envelope.Key
	i.Raw = append(json.RawMessage(nil), data...)
	i.custom = envelope.Fields
	i.Fields = Fields{}
	if len(envelope.Fields) == 0 {
		return nil
	}
	fieldsJSON, err := json.Marshal(envelope.Fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(fieldsJSON, &i.Fields); err != nil {
		return fmt.Errorf("decode fields of %s: %w", envelope.Key, err)
	}
	return nil
}

// CustomField decodes field id into out. It reports false when the field is
// absent or null.
func (i Issue) CustomField(id string, out any) (bool, error) {
	raw, ok := i.custom[id]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s of %s: %w", id, i.Key, err)
	}
	return true, nil
}

type SearchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
	IsLast        bool    `json:"isLast"`
}
