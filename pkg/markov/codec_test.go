package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	m := trainTestModel(t, "www.example.com", "my-host.example.org", "a.io")

	var buf bytes.Buffer
	if err := m.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	loaded, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}

	var want, got bytes.Buffer
	_ = m.WriteJSON(&want)
	_ = loaded.WriteJSON(&got)
	if want.String() != got.String() {
		t.Errorf("round trip changed the document:\n%s\n---\n%s", want.String(), got.String())
	}
	if !equalStrings(loaded.SpecialChars(), m.SpecialChars()) {
		t.Errorf("SpecialChars() = %v, want %v", loaded.SpecialChars(), m.SpecialChars())
	}
}

func equalStrings(a, b []string) bool {
	return strings.Join(a, "\x00") == strings.Join(b, "\x00")
}

func TestDocumentLayout(t *testing.T) {
	m := trainTestModel(t, "ab.cd")

	var raw map[string]map[string]json.RawMessage
	var buf bytes.Buffer
	_ = m.WriteJSON(&buf)
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("document is not a JSON object: %v", err)
	}
	for _, key := range []string{"freq_char", "freq_word_length", "freq_first", "freq_dom_length"} {
		if _, ok := raw["dist"][key]; !ok {
			t.Errorf("dist is missing %q", key)
		}
	}

	doc := m.Document()
	// depth is 1-based, levels are 0-based
	if doc.Dist.FreqDomLength["2"] != 1 {
		t.Errorf("freq_dom_length = %v, want {\"2\": 1}", doc.Dist.FreqDomLength)
	}
	if doc.Dist.FreqFirst["0"]["c"] != 1 || doc.Dist.FreqFirst["1"]["a"] != 1 {
		t.Errorf("freq_first = %v", doc.Dist.FreqFirst)
	}
	if doc.Trans["0"]["cd"] != 1 || doc.Trans["1"]["ab"] != 1 {
		t.Errorf("trans = %v", doc.Trans)
	}
	for _, level := range []string{"0", "1", "2", "3"} {
		if _, ok := doc.Trans[level]; !ok {
			t.Errorf("trans is missing level %s", level)
		}
	}
}

func TestReadJSONTolerant(t *testing.T) {
	const doc = `{
  "dist": {
    "freq_char": {"a": 0.5, "b": "0.25", ".": 0.25},
    "freq_word_length": {"0": {"1": 1}},
    "freq_first": {"0": {"a": "1"}},
    "freq_dom_length": {"1": 1, "2": "0"}
  },
  "trans": {"0": {"ab": 1}}
}`
	m, err := ReadJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadJSON() failed: %v", err)
	}
	if p, ok := m.Depth().Prob(2); !ok || p != 0 {
		t.Errorf("zero depth entry = %v (%v), want kept at 0", p, ok)
	}
	if p, _ := m.CharFrequencies().Prob("b"); p != 0.25 {
		t.Errorf("string probability decoded as %v, want 0.25", p)
	}
	if got := m.SpecialChars(); len(got) != 1 || got[0] != "." {
		t.Errorf("SpecialChars() = %v, want [.]", got)
	}
	if m.NamesTrained() != 0 {
		t.Errorf("NamesTrained() = %d for a decoded model, want 0", m.NamesTrained())
	}
}

func TestReadJSONErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "Malformed JSON", doc: `{"dist": `},
		{name: "Bad level key", doc: `{"dist": {"freq_first": {"x": {"a": 1}}}}`},
		{name: "Level out of range", doc: `{"dist": {"freq_word_length": {"4": {"1": 1}}}}`},
		{name: "Bad length key", doc: `{"dist": {"freq_word_length": {"0": {"0": 1}}}}`},
		{name: "Bad depth key", doc: `{"dist": {"freq_dom_length": {"9": 1}}}`},
		{name: "Trigram key", doc: `{"dist": {}, "trans": {"0": {"abc": 1}}}`},
		{name: "Negative probability", doc: `{"dist": {"freq_char": {"a": -1}}}`},
		{name: "Unparsable probability", doc: `{"dist": {"freq_char": {"a": "many"}}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tc.doc))
			if !errors.Is(err, ErrModelLoad) {
				t.Errorf("expected ErrModelLoad, got %v", err)
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	m := trainTestModel(t, "www.example.com", "ftp.example.com")

	if err := m.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if p, _ := loaded.Depth().Prob(3); p != 1 {
		t.Errorf("loaded depth P(3) = %v, want 1", p)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadFile(bad)
	var le *ModelLoadError
	if !errors.As(err, &le) || le.Path != bad {
		t.Errorf("expected ModelLoadError for %s, got %v", bad, err)
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrModelLoad) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrModelLoad wrapping os.ErrNotExist, got %v", err)
	}
}
