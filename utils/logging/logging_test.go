package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerFansOut(t *testing.T) {
	jsonOut, textOut := new(bytes.Buffer), new(bytes.Buffer)

	logger := NewLogger(jsonOut, textOut, Options{Service: "data_catalog"})
	logger.Info("product created", "code", CATALOG_PRODUCT, "product_id", 7)

	var entry map[string]interface{}
	if err := json.Unmarshal(jsonOut.Bytes(), &entry); err != nil {
		t.Fatalf("json output is not valid json: %v", err)
	}
	if entry["service"] != "data_catalog" || entry["code"] != string(CATALOG_PRODUCT) || entry[slog.MessageKey] != "product created" {
		t.Fatalf("invalid json entry %v", entry)
	}

	if !strings.Contains(textOut.String(), "product created") {
		t.Fatalf("text output missing message: %q", textOut.String())
	}
}

func TestVictoriaLogsKeys(t *testing.T) {
	jsonOut := new(bytes.Buffer)

	logger := NewLogger(jsonOut, new(bytes.Buffer), Options{Service: "data_catalog", VictoriaLogs: true})
	logger.Debug("debug entries are kept")

	var entry map[string]interface{}
	if err := json.Unmarshal(jsonOut.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["_msg"] != "debug entries are kept" {
		t.Fatalf("message should use the _msg key: %v", entry)
	}
	if _, ok := entry["_time"]; !ok {
		t.Fatalf("time should use the _time key: %v", entry)
	}
	if _, ok := entry[slog.MessageKey]; ok {
		t.Fatalf("msg key should be renamed: %v", entry)
	}
}
