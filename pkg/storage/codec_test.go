package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{"login": "a", "outcome": "acted", "followers": "10"},
		{"login": "b", "outcome": "skipped"},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	// CSV and XML stringify values, so the sample uses string values only.
	for _, ext := range []string{".json", ".jsonl", ".ndjson", ".csv", ".xml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data"+ext)
			codec, err := CodecFor(path)
			if err != nil {
				t.Fatal(err)
			}

			want := sampleRecords()
			if err := codec.Write(path, want); err != nil {
				t.Fatal(err)
			}

			got, err := codec.Read(path)
			if err != nil {
				t.Fatal(err)
			}

			if len(got) != len(want) {
				t.Fatalf("expected %d records, got %d", len(want), len(got))
			}
			for i := range want {
				for key, value := range want[i] {
					if got[i][key] != value {
						t.Errorf("record %d key %q: expected %v, got %v", i, key, value, got[i][key])
					}
				}
			}
		})
	}
}

func TestCodecForUnknownExtension(t *testing.T) {
	_, err := CodecFor("data.parquet")
	if err == nil {
		t.Fatal("expected an error for an unregistered extension")
	}
	// The error names the registered formats so a config typo is
	// self-explaining.
	for _, ext := range SupportedExtensions() {
		if !strings.Contains(err.Error(), ext) {
			t.Errorf("error %q does not mention %s", err, ext)
		}
	}
}

func TestCSVHeaderIsSortedUnion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	records := []Record{
		{"zeta": "1"},
		{"alpha": "2", "mid": "3"},
	}
	if err := (csvCodec{}).Write(path, records); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "alpha,mid,zeta" {
		t.Errorf("expected sorted union header, got %q", header)
	}
}

func TestCSVMissingKeysBecomeEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	records := []Record{
		{"login": "a", "extra": "x"},
		{"login": "b"},
	}
	if err := (csvCodec{}).Write(path, records); err != nil {
		t.Fatal(err)
	}

	got, err := (csvCodec{}).Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[1]["extra"]; ok {
		t.Error("empty cell must not produce a key on read")
	}
	if got[1]["login"] != "b" {
		t.Errorf("expected login b, got %v", got[1]["login"])
	}
}

func TestXMLSanitizesFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xml")
	records := []Record{
		{"weird key!": "v", "9lives": "cat"},
	}
	if err := (xmlCodec{}).Write(path, records); err != nil {
		t.Fatal(err)
	}

	got, err := (xmlCodec{}).Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got[0]["weird_key_"] != "v" {
		t.Errorf("expected sanitized element name, got %v", got[0])
	}
	if got[0]["f_9lives"] != "cat" {
		t.Errorf("digit-leading names need a prefix, got %v", got[0])
	}
}

func TestJSONLSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.ndjson")
	content := "{\"login\":\"a\"}\n\n{\"login\":\"b\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := (jsonlCodec{}).Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}
