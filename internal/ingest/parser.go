package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Format identifies one of the supported chat export formats.
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Marker WhatsApp-style exports insert in place of attachments.
const mediaMarker = "<Media omitted>"

// Message is one chat message in canonical form, independent of the
// export format it was parsed from.
type Message struct {
	Timestamp   *time.Time
	SenderAlias string
	Body        string
	IsMedia     bool
	Language    string
}

// DetectFormat maps a chat file's extension to its parser format.
// Files without a recognized extension are rejected.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return FormatText, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case "":
		return "", fmt.Errorf("no extension on chat file %q: expected .txt, .csv, or .json", path)
	default:
		return "", fmt.Errorf("unsupported chat file format %q: expected .txt, .csv, or .json", ext)
	}
}

// Parse turns raw chat content into canonical messages, in input order.
// Record-level problems (bad timestamps, incomplete rows, unmatched lines)
// are reported as warnings, not errors; only structurally unreadable input
// fails the parse. Parsers are pure: no I/O, no datastore.
func Parse(format Format, content string) ([]Message, []string, error) {
	switch format {
	case FormatText:
		return parseTranscript(content)
	case FormatCSV:
		return parseCSV(content)
	case FormatJSON:
		return parseJSON(content)
	default:
		return nil, nil, fmt.Errorf("unsupported chat format: %s", format)
	}
}

var (
	// 6/25/25, 10:00 - Ramesh SP: Team, please prepare the crime report.
	transcriptLine = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2})\s*-\s*([^:]+):\s*(.+)$`)
	// Looser fallback for lines with a mangled or missing date prefix.
	looseLine = regexp.MustCompile(`^(.+?)\s*-\s*([^:]+):\s*(.+)$`)
)

// Transcript dates are month/day/year, two- or four-digit year.
var transcriptLayouts = []string{"1/2/06, 15:04", "1/2/2006, 15:04"}

func parseTranscript(content string) ([]Message, []string, error) {
	var messages []Message
	var warnings []string

	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := transcriptLine.FindStringSubmatch(line); m != nil {
			ts, err := parseTranscriptTime(m[1])
			if err != nil {
				// A dated line with an unparseable timestamp is dropped
				// entirely rather than kept as timestamp-less noise.
				warnings = append(warnings, fmt.Sprintf("line %d: invalid timestamp %q, line skipped", i+1, m[1]))
				continue
			}
			messages = append(messages, newMessage(&ts, m[2], m[3]))
			continue
		}

		if m := looseLine.FindStringSubmatch(line); m != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: non-standard format, saved without timestamp", i+1))
			messages = append(messages, newMessage(nil, m[2], m[3]))
			continue
		}

		warnings = append(warnings, fmt.Sprintf("line %d: unparsable line skipped", i+1))
	}

	return messages, warnings, nil
}

func parseCSV(content string) ([]Message, []string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv chat: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}

	var messages []Message
	var warnings []string
	for i, rec := range records[1:] {
		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		alias, body := field("senderAlias"), field("message")
		if alias == "" || body == "" {
			warnings = append(warnings, fmt.Sprintf("csv record %d: missing senderAlias or message, skipped", i+1))
			continue
		}

		var ts *time.Time
		if raw := field("timestamp"); raw != "" {
			if t, err := parseRecordTime(raw); err != nil {
				warnings = append(warnings, fmt.Sprintf("csv record %d: invalid timestamp %q", i+1, raw))
			} else {
				ts = &t
			}
		}

		messages = append(messages, newMessage(ts, alias, body))
	}

	return messages, warnings, nil
}

type jsonChatRecord struct {
	Timestamp   string `json:"timestamp"`
	SenderAlias string `json:"senderAlias"`
	Message     string `json:"message"`
}

func parseJSON(content string) ([]Message, []string, error) {
	var records []jsonChatRecord
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		return nil, nil, fmt.Errorf("failed to parse json chat: %w", err)
	}

	var messages []Message
	var warnings []string
	for i, rec := range records {
		alias, body := strings.TrimSpace(rec.SenderAlias), strings.TrimSpace(rec.Message)
		if alias == "" || body == "" {
			warnings = append(warnings, fmt.Sprintf("json record %d: missing senderAlias or message, skipped", i+1))
			continue
		}

		var ts *time.Time
		if rec.Timestamp != "" {
			if t, err := parseRecordTime(rec.Timestamp); err != nil {
				warnings = append(warnings, fmt.Sprintf("json record %d: invalid timestamp %q", i+1, rec.Timestamp))
			} else {
				ts = &t
			}
		}

		messages = append(messages, newMessage(ts, alias, body))
	}

	return messages, warnings, nil
}

func newMessage(ts *time.Time, alias, body string) Message {
	body = strings.TrimSpace(body)
	return Message{
		Timestamp:   ts,
		SenderAlias: strings.TrimSpace(alias),
		Body:        body,
		IsMedia:     strings.Contains(body, mediaMarker),
		Language:    detectLanguage(body),
	}
}

func parseTranscriptTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range transcriptLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Layouts accepted for the freeform timestamp column in CSV/JSON exports.
var recordLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/06, 15:04",
	"1/2/2006, 15:04",
}

func parseRecordTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range recordLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
