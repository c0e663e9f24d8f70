package dialect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := Load("testdata/common_subset.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return table
}

func TestLoadCommonSubset(t *testing.T) {
	table := loadTestTable(t)

	if table.Name != "common" {
		t.Errorf("dialect name = %q, want %q", table.Name, "common")
	}
	if table.Len() != 5 {
		t.Errorf("Len() = %d, want 5", table.Len())
	}

	att, ok := table.Message(30)
	if !ok {
		t.Fatal("ATTITUDE (30) not found")
	}
	if att.Name != "ATTITUDE" {
		t.Errorf("message 30 name = %q, want ATTITUDE", att.Name)
	}
	if att.CRCExtra != 39 {
		t.Errorf("ATTITUDE crc_extra = %d, want 39", att.CRCExtra)
	}
	if att.EncodedLength != 28 {
		t.Errorf("ATTITUDE encoded_length = %d, want 28", att.EncodedLength)
	}

	// roll sits after the uint32 timestamp in the size-ordered layout
	if att.Fields[1].Name != "roll" || att.Fields[1].Offset != 4 {
		t.Errorf("ATTITUDE field[1] = %s@%d, want roll@4", att.Fields[1].Name, att.Fields[1].Offset)
	}

	if _, ok := table.Message(999); ok {
		t.Error("Message(999) found a message that should not exist")
	}
}

func TestMessageByName(t *testing.T) {
	table := loadTestTable(t)

	hud, ok := table.MessageByName("VFR_HUD")
	if !ok {
		t.Fatal("VFR_HUD not found by name")
	}
	if hud.ID != 74 {
		t.Errorf("VFR_HUD id = %d, want 74", hud.ID)
	}

	if _, ok := table.MessageByName("NO_SUCH_MESSAGE"); ok {
		t.Error("found a message that should not exist")
	}
}

func TestScalarFields(t *testing.T) {
	table := loadTestTable(t)

	st, ok := table.Message(253)
	if !ok {
		t.Fatal("STATUSTEXT not found")
	}

	// the char[50] text field is not plottable; severity and the two
	// extension fields are
	scalars := st.ScalarFields()
	if len(scalars) != 3 {
		t.Fatalf("STATUSTEXT scalar fields = %d, want 3", len(scalars))
	}
	want := []string{"severity", "id", "chunk_seq"}
	for i, f := range scalars {
		if f.Name != want[i] {
			t.Errorf("scalar[%d] = %s, want %s", i, f.Name, want[i])
		}
	}

	text := st.Fields[1]
	if text.Name != "text" {
		t.Fatalf("STATUSTEXT field[1] = %s, want text", text.Name)
	}
	if text.Scalar() {
		t.Error("char array reported as scalar")
	}
}

func TestMessagesOrderedByID(t *testing.T) {
	table := loadTestTable(t)

	msgs := table.Messages()
	if len(msgs) != table.Len() {
		t.Fatalf("Messages() len = %d, want %d", len(msgs), table.Len())
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].ID >= msgs[i].ID {
			t.Errorf("Messages() not ascending at %d: %d >= %d", i, msgs[i-1].ID, msgs[i].ID)
		}
	}
}

func TestHeartbeatInjectedWhenMissing(t *testing.T) {
	// a minimal table without message 0
	data := `{
		"schema_version": "1.0.0",
		"dialect": {"name": "minimal", "version": 3},
		"messages": {
			"30": {
				"id": 30, "name": "ATTITUDE", "crc_extra": 39, "encoded_length": 28,
				"fields": [
					{"name": "time_boot_ms", "type": "uint32_t", "base_type": "uint32_t", "offset": 0, "size": 4, "array_length": 1}
				]
			}
		}
	}`

	table, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (parsed message + injected HEARTBEAT)", table.Len())
	}

	hb, ok := table.Message(0)
	if !ok {
		t.Fatal("HEARTBEAT not injected")
	}
	if hb.CRCExtra != 50 || hb.EncodedLength != 9 {
		t.Errorf("injected HEARTBEAT crc/len = %d/%d, want 50/9", hb.CRCExtra, hb.EncodedLength)
	}
}

func TestBuiltinHeartbeatValid(t *testing.T) {
	if err := Heartbeat().validate(); err != nil {
		t.Errorf("built-in HEARTBEAT fails validation: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "invalid JSON",
			data: `{not json`,
			want: "parse dialect JSON",
		},
		{
			name: "no messages",
			data: `{"schema_version": "1.0.0", "dialect": {"name": "x", "version": 3}, "messages": {}}`,
			want: "no messages",
		},
		{
			name: "key id mismatch",
			data: `{"messages": {"5": {"id": 6, "name": "X", "crc_extra": 1, "encoded_length": 1, "fields": []}}}`,
			want: "does not match",
		},
		{
			name: "unnamed message",
			data: `{"messages": {"5": {"id": 5, "name": "", "crc_extra": 1, "encoded_length": 1, "fields": []}}}`,
			want: "no name",
		},
		{
			name: "unknown base type",
			data: `{"messages": {"5": {"id": 5, "name": "X", "crc_extra": 1, "encoded_length": 4,
				"fields": [{"name": "f", "type": "quad_t", "base_type": "quad_t", "offset": 0, "size": 4, "array_length": 1}]}}}`,
			want: "unknown base type",
		},
		{
			name: "field past end",
			data: `{"messages": {"5": {"id": 5, "name": "X", "crc_extra": 1, "encoded_length": 4,
				"fields": [{"name": "f", "type": "uint32_t", "base_type": "uint32_t", "offset": 2, "size": 4, "array_length": 1}]}}}`,
			want: "extends past",
		},
		{
			name: "size type mismatch",
			data: `{"messages": {"5": {"id": 5, "name": "X", "crc_extra": 1, "encoded_length": 4,
				"fields": [{"name": "f", "type": "uint32_t", "base_type": "uint32_t", "offset": 0, "size": 2, "array_length": 1}]}}}`,
			want: "size",
		},
		{
			name: "duplicate name",
			data: `{"messages": {
				"5": {"id": 5, "name": "X", "crc_extra": 1, "encoded_length": 1, "fields": []},
				"6": {"id": 6, "name": "X", "crc_extra": 1, "encoded_length": 1, "fields": []}}}`,
			want: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	_, err := Load("dialect.yaml")
	if err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("Load(.yaml) error = %v, want extension complaint", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOversizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	if err := os.WriteFile(path, make([]byte, maxFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Load(oversize) error = %v, want size complaint", err)
	}
}
